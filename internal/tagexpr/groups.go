package tagexpr

import (
	"sort"
	"strings"
)

// GroupDefs resolves named tag aliases to their member tokens.
// Params: group name lookup.
// Returns: merged member tokens and group-name enumeration.
type GroupDefs interface {
	// Members returns the effective member tokens bound to one group name.
	Members(name string) ([]string, bool)

	// Names enumerates every bound group name.
	Names() []string
}

// GroupBinding is one ordered group assignment line.
// Params: group name and member tokens (tags or other group names).
// Returns: one occurrence inside an OrderedGroups document.
type GroupBinding struct {
	Name   string
	Tokens []string
}

// OrderedGroups is the list-style group source shape.
// Params: bindings in document order.
// Returns: group defs where repeated names accumulate (set union).
type OrderedGroups []GroupBinding

// Members unions every binding occurrence for the name.
// Params: group name.
// Returns: accumulated member tokens in first-seen order.
func (g OrderedGroups) Members(name string) ([]string, bool) {
	var (
		members []string
		seen    = map[string]struct{}{}
		found   bool
	)
	for _, binding := range g {
		if binding.Name != name {
			continue
		}
		found = true
		for _, token := range binding.Tokens {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			members = append(members, token)
		}
	}
	return members, found
}

// Names enumerates distinct bound group names in document order.
// Params: none.
// Returns: deduplicated name list.
func (g OrderedGroups) Names() []string {
	var (
		names []string
		seen  = map[string]struct{}{}
	)
	for _, binding := range g {
		if _, ok := seen[binding.Name]; ok {
			continue
		}
		seen[binding.Name] = struct{}{}
		names = append(names, binding.Name)
	}
	return names
}

// MapGroups is the map-style group source shape.
// Params: one binding per group name; rebinding replaced at parse time.
// Returns: group defs with last-write-wins per key.
type MapGroups map[string][]string

// Members returns the single binding for the name.
// Params: group name.
// Returns: member tokens without blanks.
func (g MapGroups) Members(name string) ([]string, bool) {
	tokens, ok := g[name]
	if !ok {
		return nil, false
	}
	members := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		members = append(members, token)
	}
	return members, true
}

// Names enumerates bound group names sorted for determinism.
// Params: none.
// Returns: sorted name list.
func (g MapGroups) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expand resolves one tag or group name to its concrete tag closure.
// Params: group definitions and starting token.
// Returns: transitive literal tag set; always terminates on cycles.
func Expand(defs GroupDefs, start string) map[string]struct{} {
	result := map[string]struct{}{}
	start = strings.TrimSpace(start)
	if start == "" {
		return result
	}
	if defs == nil {
		result[start] = struct{}{}
		return result
	}
	if _, ok := defs.Members(start); !ok {
		// Not a group name; the token is itself a literal tag.
		result[start] = struct{}{}
		return result
	}

	visited := map[string]struct{}{}
	queue := []string{start}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := visited[name]; ok {
			continue
		}
		visited[name] = struct{}{}

		members, _ := defs.Members(name)
		for _, token := range members {
			if _, ok := defs.Members(token); ok {
				queue = append(queue, token)
				continue
			}
			result[token] = struct{}{}
		}
	}
	return result
}

// ExpandTags expands every tag of a candidate through group definitions.
// Params: group definitions and candidate tag list.
// Returns: effective tag set with group names replaced by their closure
// and kept alongside it, so filters may address groups directly too.
func ExpandTags(defs GroupDefs, tags []string) map[string]struct{} {
	effective := map[string]struct{}{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		effective[tag] = struct{}{}
		for expanded := range Expand(defs, tag) {
			effective[expanded] = struct{}{}
		}
	}
	return effective
}
