package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"courier/internal/registry"
	"courier/internal/tagexpr"
	"courier/internal/target"
)

type fakeTarget struct {
	mu      sync.Mutex
	name    string
	tags    []string
	format  target.Format
	enabled bool
	fail    bool
	panics  bool
	bodies  []string
}

func newFakeTarget(name string, tags ...string) *fakeTarget {
	return &fakeTarget{name: name, tags: tags, format: target.FormatText, enabled: true}
}

func (f *fakeTarget) Notify(_ context.Context, body, _ string, _ target.Kind) bool {
	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()
	if f.panics {
		panic("injected fault")
	}
	return !f.fail
}

func (f *fakeTarget) Tags() []string        { return f.tags }
func (f *fakeTarget) Format() target.Format { return f.format }
func (f *fakeTarget) Enabled() bool         { return f.enabled }
func (f *fakeTarget) URL() string           { return "fake://" + f.name }

func (f *fakeTarget) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

func (f *fakeTarget) lastBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) == 0 {
		return ""
	}
	return f.bodies[len(f.bodies)-1]
}

type fakeSource struct {
	entries []target.Target
	groups  tagexpr.GroupDefs
}

func (s *fakeSource) Servers() []target.Target { return s.entries }
func (s *fakeSource) Tags() []string           { return nil }

func (s *fakeSource) Pop(index int) (target.Target, error) {
	if index < 0 || index >= len(s.entries) {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	entry := s.entries[index]
	s.entries = append(s.entries[:index], s.entries[index+1:]...)
	return entry, nil
}

func (s *fakeSource) Groups() tagexpr.GroupDefs { return s.groups }

func newDispatcher(opts ...Option) *Dispatcher {
	return New(registry.New(), opts...)
}

func TestDeliverIsolatesPanickingTarget(t *testing.T) {
	t.Parallel()

	first := newFakeTarget("first")
	broken := newFakeTarget("broken")
	broken.panics = true
	last := newFakeTarget("last")

	d := newDispatcher()
	for _, entry := range []target.Target{first, broken, last} {
		d.Collection().Append(entry)
	}

	if d.Deliver(context.Background(), tagexpr.MatchAll(), "body", "title", target.KindInfo) {
		t.Fatalf("batch with a faulting target must report failure")
	}
	if first.calls() != 1 || last.calls() != 1 {
		t.Fatalf("siblings of a faulting target must still be invoked: first=%d last=%d",
			first.calls(), last.calls())
	}
}

func TestDeliverEmptyListFails(t *testing.T) {
	t.Parallel()

	d := newDispatcher()
	if d.Deliver(context.Background(), tagexpr.MatchAll(), "body", "", target.KindInfo) {
		t.Fatalf("empty delivery list must report failure, not vacuous success")
	}
}

func TestDeliverNoMatchFails(t *testing.T) {
	t.Parallel()

	entry := newFakeTarget("tagged", "ops")
	d := newDispatcher()
	d.Collection().Append(entry)

	filter := tagexpr.Expr{tagexpr.Tag("finance")}
	if d.Deliver(context.Background(), filter, "body", "", target.KindInfo) {
		t.Fatalf("fully filtered list must report failure")
	}
	if entry.calls() != 0 {
		t.Fatalf("non-matching target must not be invoked")
	}
}

func TestDeliverSkipsDisabledTargets(t *testing.T) {
	t.Parallel()

	on := newFakeTarget("on")
	off := newFakeTarget("off")
	off.enabled = false

	d := newDispatcher()
	d.Collection().Append(on)
	d.Collection().Append(off)

	if !d.Deliver(context.Background(), tagexpr.MatchAll(), "body", "", target.KindInfo) {
		t.Fatalf("delivery to the enabled target must succeed")
	}
	if off.calls() != 0 {
		t.Fatalf("disabled target must be skipped")
	}
	if on.calls() != 1 {
		t.Fatalf("enabled target invoked %d times, want 1", on.calls())
	}
}

func TestDeliverConvertsBodyPerTargetFormat(t *testing.T) {
	t.Parallel()

	plain := newFakeTarget("plain")
	rich := newFakeTarget("rich")
	rich.format = target.FormatHTML

	d := newDispatcher(WithBodyFormat(target.FormatText))
	d.Collection().Append(plain)
	d.Collection().Append(rich)

	body := "a < b & c"
	if !d.Deliver(context.Background(), tagexpr.MatchAll(), body, "", target.KindInfo) {
		t.Fatalf("delivery failed")
	}
	if got := plain.lastBody(); got != body {
		t.Fatalf("text target body = %q, want original %q", got, body)
	}
	got := rich.lastBody()
	if !strings.Contains(got, "&lt;") || !strings.Contains(got, "&amp;") {
		t.Fatalf("html target body = %q, want escaped markup", got)
	}
}

func TestDeliverExpandsRegisteredGroups(t *testing.T) {
	t.Parallel()

	entry := newFakeTarget("db", "postgres")
	d := newDispatcher(WithGroups(tagexpr.MapGroups{"storage": {"postgres", "redis"}}))
	d.Collection().Append(entry)

	filter := tagexpr.Expr{tagexpr.Tag("storage")}
	if !d.Deliver(context.Background(), filter, "body", "", target.KindInfo) {
		t.Fatalf("group member must match a filter naming the group")
	}
	if entry.calls() != 1 {
		t.Fatalf("target invoked %d times, want 1", entry.calls())
	}
}

func TestDeliverExpandsNestedGroups(t *testing.T) {
	t.Parallel()

	entry := newFakeTarget("db", "postgres")
	d := newDispatcher(WithGroups(tagexpr.MapGroups{
		"infra":   {"storage"},
		"storage": {"postgres"},
	}))
	d.Collection().Append(entry)

	filter := tagexpr.Expr{tagexpr.Tag("infra")}
	if !d.Deliver(context.Background(), filter, "body", "", target.KindInfo) {
		t.Fatalf("member of a nested group must match a filter naming the outer group")
	}
}

func TestDeliverExpandsSourceGroups(t *testing.T) {
	t.Parallel()

	entry := newFakeTarget("db", "postgres")
	source := &fakeSource{
		entries: []target.Target{entry},
		groups:  tagexpr.MapGroups{"storage": {"postgres"}},
	}

	d := newDispatcher()
	d.AddSource(source)

	filter := tagexpr.Expr{tagexpr.Tag("storage")}
	if !d.Deliver(context.Background(), filter, "body", "", target.KindInfo) {
		t.Fatalf("source-provided groups must apply to tag filtering")
	}
}

func TestDeliverParallelAttemptsEveryCall(t *testing.T) {
	t.Parallel()

	var targets []*fakeTarget
	d := newDispatcher(WithWorkers(4))
	for i := 0; i < 8; i++ {
		entry := newFakeTarget(fmt.Sprintf("worker-%d", i))
		entry.fail = i == 3
		targets = append(targets, entry)
		d.Collection().Append(entry)
	}

	if d.Deliver(context.Background(), tagexpr.MatchAll(), "body", "", target.KindInfo) {
		t.Fatalf("one failing target must fail the batch")
	}
	for _, entry := range targets {
		if entry.calls() != 1 {
			t.Fatalf("target %s invoked %d times, want 1", entry.name, entry.calls())
		}
	}
}

func TestAddSoftAndStrict(t *testing.T) {
	t.Parallel()

	d := newDispatcher()
	if d.Add("ghost://nowhere") {
		t.Fatalf("unknown schema must be rejected in soft mode")
	}
	if err := d.AddStrict("ghost://nowhere"); err == nil {
		t.Fatalf("unknown schema must error in strict mode")
	}
	if d.Len() != 0 {
		t.Fatalf("rejected URLs must not grow the list")
	}
}

func TestURLsAndClear(t *testing.T) {
	t.Parallel()

	d := newDispatcher()
	d.Collection().Append(newFakeTarget("a"))
	d.Collection().Append(newFakeTarget("b"))

	urls := d.URLs()
	if len(urls) != 2 || urls[0] != "fake://a" || urls[1] != "fake://b" {
		t.Fatalf("URLs = %v, want flattened order", urls)
	}

	d.Clear()
	if d.Len() != 0 {
		t.Fatalf("Clear must empty the list, got %d entries", d.Len())
	}
}
