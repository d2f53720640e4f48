package expected

import "errors"

// Error marks delivery failures that are ordinary and anticipated.
// Params: wrapped root cause.
// Returns: typed expected-failure marker.
type Error struct {
	Err error
}

// Error returns wrapped error message.
// Params: none.
// Returns: string representation.
func (e Error) Error() string {
	if e.Err == nil {
		return "expected delivery failure"
	}
	return e.Err.Error()
}

// Unwrap exposes wrapped cause for errors.Is/errors.As.
// Params: none.
// Returns: wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// Expected marks the error as an anticipated delivery failure.
// Params: none.
// Returns: true.
func (Error) Expected() bool {
	return true
}

// Mark wraps error with expected-failure marker.
// Params: source error.
// Returns: wrapped error or nil.
func Mark(err error) error {
	if err == nil {
		return nil
	}
	return Error{Err: err}
}

// Is reports whether error carries the expected-failure marker.
// Params: candidate error.
// Returns: true when the anticipated-failure marker is present.
func Is(err error) bool {
	if err == nil {
		return false
	}
	type marker interface {
		Expected() bool
	}
	var tagged marker
	if !errors.As(err, &tagged) {
		return false
	}
	return tagged.Expected()
}
