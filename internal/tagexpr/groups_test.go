package tagexpr

import (
	"sort"
	"testing"
)

func expandSorted(defs GroupDefs, start string) []string {
	expanded := Expand(defs, start)
	result := make([]string, 0, len(expanded))
	for tag := range expanded {
		result = append(result, tag)
	}
	sort.Strings(result)
	return result
}

func TestExpandLiteralTag(t *testing.T) {
	t.Parallel()

	defs := MapGroups{"devops": {"alice", "bob"}}
	got := expandSorted(defs, "carol")
	if len(got) != 1 || got[0] != "carol" {
		t.Fatalf("literal tag must expand to itself, got %v", got)
	}
}

func TestExpandTransitiveClosure(t *testing.T) {
	t.Parallel()

	defs := MapGroups{
		"all":    {"devops", "qa", "standalone"},
		"devops": {"alice", "bob"},
		"qa":     {"carol"},
	}
	got := expandSorted(defs, "all")
	want := []string{"alice", "bob", "carol", "standalone"}
	if len(got) != len(want) {
		t.Fatalf("expansion = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expansion = %v, want %v", got, want)
		}
	}
}

func TestExpandIdempotent(t *testing.T) {
	t.Parallel()

	defs := MapGroups{
		"outer": {"inner", "x"},
		"inner": {"y"},
	}
	first := expandSorted(defs, "outer")

	// Re-expanding each produced literal must reproduce the same set.
	again := map[string]struct{}{}
	for _, tag := range first {
		for expanded := range Expand(defs, tag) {
			again[expanded] = struct{}{}
		}
	}
	if len(again) != len(first) {
		t.Fatalf("re-expansion changed the set: %v vs %v", again, first)
	}
	for _, tag := range first {
		if _, ok := again[tag]; !ok {
			t.Fatalf("re-expansion lost tag %q", tag)
		}
	}
}

func TestExpandSelfReferenceTerminates(t *testing.T) {
	t.Parallel()

	defs := MapGroups{"g": {"g"}}
	got := expandSorted(defs, "g")
	if len(got) != 0 {
		t.Fatalf("self-referential group must be inert, got %v", got)
	}
}

func TestExpandMutualCycleTerminates(t *testing.T) {
	t.Parallel()

	defs := MapGroups{
		"g1": {"g2", "a"},
		"g2": {"g1", "b"},
	}
	got := expandSorted(defs, "g1")
	want := []string{"a", "b"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("cyclic expansion = %v, want %v", got, want)
	}
}

func TestExpandBlankTokens(t *testing.T) {
	t.Parallel()

	defs := MapGroups{"g": {" ", "", "a"}}
	got := expandSorted(defs, "g")
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("blank tokens must be discarded, got %v", got)
	}

	inert := MapGroups{"empty": {"", "  "}}
	if got := expandSorted(inert, "empty"); len(got) != 0 {
		t.Fatalf("all-blank binding must contribute nothing, got %v", got)
	}
}

func TestOrderedGroupsUnionMerge(t *testing.T) {
	t.Parallel()

	defs := OrderedGroups{
		{Name: "g", Tokens: []string{"a", "b"}},
		{Name: "other", Tokens: []string{"x"}},
		{Name: "g", Tokens: []string{"b", "c"}},
	}
	members, ok := defs.Members("g")
	if !ok {
		t.Fatalf("expected group g to exist")
	}
	want := []string{"a", "b", "c"}
	if len(members) != len(want) {
		t.Fatalf("members = %v, want %v", members, want)
	}
	for i := range want {
		if members[i] != want[i] {
			t.Fatalf("members = %v, want %v", members, want)
		}
	}

	names := defs.Names()
	if len(names) != 2 || names[0] != "g" || names[1] != "other" {
		t.Fatalf("names = %v, want [g other]", names)
	}
}

func TestMapGroupsOverwritePolicy(t *testing.T) {
	t.Parallel()

	// Map-style rebinding replaces outright; building through plain map
	// assignment models the document's last-write-wins decode.
	defs := MapGroups{}
	defs["g"] = []string{"a", "b"}
	defs["g"] = []string{"c"}

	members, ok := defs.Members("g")
	if !ok || len(members) != 1 || members[0] != "c" {
		t.Fatalf("map-style rebinding must replace, got %v", members)
	}
}

func TestExpandTagsKeepsGroupNameAndClosure(t *testing.T) {
	t.Parallel()

	defs := MapGroups{"devops": {"alice", "bob"}}
	effective := ExpandTags(defs, []string{"devops", "extra"})

	for _, tag := range []string{"devops", "alice", "bob", "extra"} {
		if _, ok := effective[tag]; !ok {
			t.Fatalf("effective set %v missing %q", effective, tag)
		}
	}
	if len(effective) != 4 {
		t.Fatalf("effective set %v has unexpected extras", effective)
	}
}

func TestExpandNilDefs(t *testing.T) {
	t.Parallel()

	got := expandSorted(nil, "a")
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("nil defs must pass literals through, got %v", got)
	}
}
