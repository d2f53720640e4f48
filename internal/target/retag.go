package target

// retagged overrides routing tags assigned by configuration.
// Params: wrapped target and effective tags.
// Returns: target whose assigned tags take precedence over URL tags.
type retagged struct {
	Target
	tags []string
}

// Tags returns the overriding routing tags.
// Params: none.
// Returns: effective tag list.
func (t *retagged) Tags() []string {
	return t.tags
}

// Retag wraps a target with replacement routing tags.
// Params: target and effective tags.
// Returns: wrapped target, or the original when no tags are given.
func Retag(entry Target, tags []string) Target {
	if entry == nil || len(tags) == 0 {
		return entry
	}
	return &retagged{Target: entry, tags: tags}
}
