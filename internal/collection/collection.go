package collection

import (
	"errors"
	"iter"

	"courier/internal/target"
)

// ErrIndexRange marks flattened index lookups past the logical length.
var ErrIndexRange = errors.New("flattened index out of range")

// Source is one multi-entry slot backed by external configuration.
// Params: lazily produced target list and delegated removal.
// Returns: container contract consumed by flattened addressing.
type Source interface {
	// Servers returns the current target list; implementations may
	// parse lazily and cache between calls.
	Servers() []target.Target

	// Pop removes and returns the target at the local index, mutating
	// the source's own backing storage.
	Pop(index int) (target.Target, error)

	// Tags returns source-level routing tags filtering whether this
	// source is consulted at all.
	Tags() []string
}

// Collection is a virtual concatenation of direct targets and sources.
// Params: ordered slots, each one target or one multi-entry source.
// Returns: flat addressing without physically merging backing storage.
type Collection struct {
	slots []slot
}

// slot is one direct or multi entry position.
// Params: exactly one of direct/multi set.
// Returns: current contribution to the flattened sequence.
type slot struct {
	direct target.Target
	multi  Source
}

// size returns the slot's current flattened contribution.
// Params: none.
// Returns: 1 for direct slots, live source length for multi slots.
func (s slot) size() int {
	if s.multi != nil {
		return len(s.multi.Servers())
	}
	return 1
}

// New creates an empty flattened collection.
// Params: none.
// Returns: collection ready for Append/AppendSource.
func New() *Collection {
	return &Collection{}
}

// Append adds one direct target slot.
// Params: target instance.
// Returns: nothing; nil targets are ignored.
func (c *Collection) Append(entry target.Target) {
	if entry == nil {
		return
	}
	c.slots = append(c.slots, slot{direct: entry})
}

// AppendSource adds one multi-entry slot.
// Params: source container.
// Returns: nothing; nil sources are ignored.
func (c *Collection) AppendSource(source Source) {
	if source == nil {
		return
	}
	c.slots = append(c.slots, slot{multi: source})
}

// Sources returns every multi-entry slot in order.
// Params: none.
// Returns: source list for group-definition aggregation.
func (c *Collection) Sources() []Source {
	var sources []Source
	for _, entry := range c.slots {
		if entry.multi != nil {
			sources = append(sources, entry.multi)
		}
	}
	return sources
}

// Len recomputes the current flattened length.
// Params: none.
// Returns: direct slots plus live lengths of every source.
func (c *Collection) Len() int {
	total := 0
	for _, entry := range c.slots {
		total += entry.size()
	}
	return total
}

// Clear removes every slot.
// Params: none.
// Returns: empty collection for lifecycle reuse.
func (c *Collection) Clear() {
	c.slots = nil
}

// cursor locates the slot covering one flattened index.
// Params: flattened index.
// Returns: slot position and local index, or ErrIndexRange.
func (c *Collection) cursor(index int) (int, int, error) {
	if index < 0 {
		return 0, 0, ErrIndexRange
	}
	offset := 0
	for position, entry := range c.slots {
		// Zero-size multi slots advance the offset by nothing and are
		// skipped without perturbing the arithmetic.
		size := entry.size()
		if index < offset+size {
			return position, index - offset, nil
		}
		offset += size
	}
	return 0, 0, ErrIndexRange
}

// Get returns the target at one flattened index without removal.
// Params: flattened index.
// Returns: target or ErrIndexRange past the logical length.
func (c *Collection) Get(index int) (target.Target, error) {
	position, local, err := c.cursor(index)
	if err != nil {
		return nil, err
	}
	entry := c.slots[position]
	if entry.multi != nil {
		servers := entry.multi.Servers()
		if local >= len(servers) {
			return nil, ErrIndexRange
		}
		return servers[local], nil
	}
	return entry.direct, nil
}

// Pop removes and returns the target at one flattened index.
// Params: flattened index.
// Returns: removed target; removal is delegated to the owning slot so
// source-backed storage is never force-flattened into a copy.
func (c *Collection) Pop(index int) (target.Target, error) {
	position, local, err := c.cursor(index)
	if err != nil {
		return nil, err
	}
	entry := c.slots[position]
	if entry.multi != nil {
		return entry.multi.Pop(local)
	}
	c.slots = append(c.slots[:position], c.slots[position+1:]...)
	return entry.direct, nil
}

// All iterates current targets in slot order.
// Params: none.
// Returns: lazy sequence reflecting live source state, not a snapshot.
func (c *Collection) All() iter.Seq[target.Target] {
	return func(yield func(target.Target) bool) {
		for _, entry := range c.slots {
			if entry.multi != nil {
				for _, server := range entry.multi.Servers() {
					if !yield(server) {
						return
					}
				}
				continue
			}
			if !yield(entry.direct) {
				return
			}
		}
	}
}
