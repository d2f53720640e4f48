// Package dispatch walks a flattened, tag-filtered target collection and
// delivers one notification to every matching destination with per-target
// fault isolation.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"courier/internal/collection"
	"courier/internal/registry"
	"courier/internal/tagexpr"
	"courier/internal/target"
)

// Outcome classifies one per-target delivery attempt.
// Params: delivered/expected-failure/unexpected-failure constants.
// Returns: explicit result replacing exception-type signaling.
type Outcome int

const (
	// OutcomeDelivered indicates the target accepted the notification.
	OutcomeDelivered Outcome = iota
	// OutcomeExpectedFailure indicates an ordinary delivery failure.
	OutcomeExpectedFailure
	// OutcomeUnexpectedFailure indicates a recovered internal fault.
	OutcomeUnexpectedFailure
)

// GroupProvider is an optional source capability exposing tag groups.
// Params: none.
// Returns: group definitions parsed out of the source document.
type GroupProvider interface {
	Groups() tagexpr.GroupDefs
}

// Dispatcher owns one addressable delivery list and its batch loop.
// Params: schema registry, flattened collection, and delivery policy.
// Returns: filter-and-deliver front for heterogeneous targets.
type Dispatcher struct {
	registry   *registry.Registry
	col        *collection.Collection
	logger     *slog.Logger
	groups     []tagexpr.GroupDefs
	bodyFormat target.Format
	workers    int
}

// Option mutates optional dispatcher settings.
// Params: dispatcher under construction.
// Returns: applied option side effect.
type Option func(*Dispatcher)

// WithLogger attaches a logger for per-entry diagnostics.
// Params: slog logger.
// Returns: option attaching the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithBodyFormat declares the markup of bodies passed to Deliver.
// Params: input body format.
// Returns: option setting the conversion origin (default text).
func WithBodyFormat(format target.Format) Option {
	return func(d *Dispatcher) { d.bodyFormat = format }
}

// WithGroups registers standalone tag-group definitions.
// Params: group definitions applied to every entry's tags.
// Returns: option appending a definitions layer.
func WithGroups(defs tagexpr.GroupDefs) Option {
	return func(d *Dispatcher) {
		if defs != nil {
			d.groups = append(d.groups, defs)
		}
	}
}

// WithWorkers enables concurrent delivery on a bounded pool.
// Params: worker count; values below two keep the sequential path.
// Returns: option setting delivery parallelism.
func WithWorkers(workers int) Option {
	return func(d *Dispatcher) { d.workers = workers }
}

// New creates a dispatcher with its own empty collection.
// Params: schema registry and options.
// Returns: initialized dispatcher.
func New(reg *registry.Registry, opts ...Option) *Dispatcher {
	dispatcher := &Dispatcher{
		registry:   reg,
		col:        collection.New(),
		bodyFormat: target.FormatText,
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	return dispatcher
}

// Collection exposes the flattened delivery list for addressing.
// Params: none.
// Returns: backing collection.
func (d *Dispatcher) Collection() *collection.Collection {
	return d.col
}

// Add instantiates one target URL into the list, soft failure mode.
// Params: raw URL and optional overriding tags.
// Returns: false with a log entry when the URL cannot be loaded.
func (d *Dispatcher) Add(rawURL string, tags ...string) bool {
	if err := d.AddStrict(rawURL, tags...); err != nil {
		if d.logger != nil {
			d.logger.Warn("target URL rejected", "error", err.Error())
		}
		return false
	}
	return true
}

// AddStrict instantiates one target URL into the list, strict mode.
// Params: raw URL and optional overriding tags.
// Returns: parse or instantiation error.
func (d *Dispatcher) AddStrict(rawURL string, tags ...string) error {
	instance, err := d.registry.Instantiate(rawURL)
	if err != nil {
		return err
	}
	d.col.Append(target.Retag(instance, tags))
	return nil
}

// AddSource appends one multi-entry configuration source.
// Params: source container; its group definitions (when exposed) apply
// to tag filtering for every entry in the list.
// Returns: nothing.
func (d *Dispatcher) AddSource(source collection.Source) {
	d.col.AppendSource(source)
}

// Len returns the current flattened target count.
// Params: none.
// Returns: live collection length.
func (d *Dispatcher) Len() int {
	return d.col.Len()
}

// URLs returns the canonical URL of every loaded target.
// Params: none.
// Returns: URL list in flattened order.
func (d *Dispatcher) URLs() []string {
	var urls []string
	for entry := range d.col.All() {
		urls = append(urls, entry.URL())
	}
	return urls
}

// Clear drops every loaded target and source.
// Params: none.
// Returns: empty delivery list for lifecycle reuse.
func (d *Dispatcher) Clear() {
	d.col.Clear()
}

// call is one prepared delivery invocation.
// Params: destination and pre-converted body.
// Returns: unit of work for the sequential and concurrent paths.
type call struct {
	entry target.Target
	body  string
}

// Deliver sends one notification to every matching enabled target.
// Params: context, tag filter, body, title, and notification kind.
// Returns: true only when at least one target matched and none failed;
// an empty or fully filtered list is a failure, not a vacuous success.
func (d *Dispatcher) Deliver(ctx context.Context, filter tagexpr.Expr, body, title string, kind target.Kind) bool {
	defs := d.groupDefs()

	// Body conversion is computed at most once per required format and
	// reused for every target sharing that format.
	converted := map[target.Format]string{}
	var calls []call

	for entry := range d.col.All() {
		if !entry.Enabled() {
			d.debug("skipping disabled target", "url", entry.URL())
			continue
		}
		effective := expandAll(defs, entry.Tags())
		if !filter.Matches(effective) {
			continue
		}
		format := entry.Format()
		if _, ok := converted[format]; !ok {
			converted[format] = target.Convert(d.bodyFormat, format, body)
		}
		calls = append(calls, call{entry: entry, body: converted[format]})
	}

	if len(calls) == 0 {
		if d.logger != nil {
			d.logger.Error("no targets to notify")
		}
		return false
	}

	if d.workers > 1 && len(calls) > 1 {
		return d.deliverParallel(ctx, calls, title, kind)
	}
	return d.deliverSequential(ctx, calls, title, kind)
}

// deliverSequential runs calls one at a time in collection order.
// Params: context, prepared calls, title, and kind.
// Returns: true when every call delivered.
func (d *Dispatcher) deliverSequential(ctx context.Context, calls []call, title string, kind target.Kind) bool {
	success := true
	for _, c := range calls {
		if d.deliverOne(ctx, c, title, kind) != OutcomeDelivered {
			success = false
		}
	}
	return success
}

// deliverParallel runs calls on a bounded worker pool.
// Params: context, prepared calls, title, and kind.
// Returns: same reduction as the sequential path; every call is
// attempted and sibling failures never cancel one another.
func (d *Dispatcher) deliverParallel(ctx context.Context, calls []call, title string, kind target.Kind) bool {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		success   = true
		semaphore = make(chan struct{}, d.workers)
	)
	for _, c := range calls {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(c call) {
			defer wg.Done()
			defer func() { <-semaphore }()
			if d.deliverOne(ctx, c, title, kind) != OutcomeDelivered {
				mu.Lock()
				success = false
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()
	return success
}

// deliverOne invokes one target with panic isolation.
// Params: context, prepared call, title, and kind.
// Returns: explicit outcome; a panicking target is recovered, logged
// as unexpected, and never aborts the batch.
func (d *Dispatcher) deliverOne(ctx context.Context, c call, title string, kind target.Kind) (outcome Outcome) {
	defer func() {
		if recovered := recover(); recovered != nil {
			outcome = OutcomeUnexpectedFailure
			if d.logger != nil {
				d.logger.Error("unhandled target failure",
					"url", c.entry.URL(), "panic", fmt.Sprint(recovered))
			}
		}
	}()

	if c.entry.Notify(ctx, c.body, title, kind) {
		return OutcomeDelivered
	}
	if d.logger != nil {
		d.logger.Warn("target delivery failed", "url", c.entry.URL())
	}
	return OutcomeExpectedFailure
}

// groupDefs merges registered and source-provided group definitions.
// Params: none.
// Returns: definitions layers in registration then slot order.
func (d *Dispatcher) groupDefs() []tagexpr.GroupDefs {
	defs := make([]tagexpr.GroupDefs, 0, len(d.groups))
	defs = append(defs, d.groups...)
	for _, source := range d.col.Sources() {
		if provider, ok := source.(GroupProvider); ok {
			if sourceDefs := provider.Groups(); sourceDefs != nil {
				defs = append(defs, sourceDefs)
			}
		}
	}
	return defs
}

// expandAll expands candidate tags through every definitions layer.
// Params: definitions layers and candidate tag list.
// Returns: union of per-layer expansions, plus every group name whose
// member closure intersects the candidate tags, so a filter may address
// a group the entry belongs to by name.
func expandAll(defs []tagexpr.GroupDefs, tags []string) map[string]struct{} {
	if len(defs) == 0 {
		return tagexpr.TagSet(tags)
	}
	effective := map[string]struct{}{}
	for _, layer := range defs {
		for tag := range tagexpr.ExpandTags(layer, tags) {
			effective[tag] = struct{}{}
		}
	}
	for _, layer := range defs {
		for _, name := range layer.Names() {
			if _, ok := effective[name]; ok {
				continue
			}
			for member := range tagexpr.Expand(layer, name) {
				if _, ok := effective[member]; ok {
					effective[name] = struct{}{}
					break
				}
			}
		}
	}
	return effective
}

// debug logs one dispatcher diagnostic when a logger is attached.
// Params: message and key/value attrs.
// Returns: nothing.
func (d *Dispatcher) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
