package target

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"courier/internal/expected"
)

// NotifyFunc is a bare delivery callback wrapped into a full target.
// Params: context, converted body, title, and notification kind.
// Returns: delivery error; mark with expected.Mark for ordinary failures.
type NotifyFunc func(ctx context.Context, body, title string, kind Kind) error

// FuncPlugin adapts one delivery callback into a registrable implementation.
// Params: callback, provenance name, schema list, and optional default URL.
// Returns: implementation object usable by the schema registry.
type FuncPlugin struct {
	name       string
	schemas    []string
	defaultURL string
	fn         NotifyFunc
	format     Format
	logger     *slog.Logger
	enabled    atomic.Bool
}

// FuncOption mutates optional callback-plugin settings.
// Params: plugin under construction.
// Returns: applied option side effect.
type FuncOption func(*FuncPlugin)

// WithFuncFormat sets the body format the callback expects.
// Params: format constant.
// Returns: option setting the expected format.
func WithFuncFormat(format Format) FuncOption {
	return func(p *FuncPlugin) { p.format = format }
}

// WithFuncDefaultURL sets the provenance URL for the callback.
// Params: default URL associated with the wrapped function.
// Returns: option recording provenance.
func WithFuncDefaultURL(url string) FuncOption {
	return func(p *FuncPlugin) { p.defaultURL = url }
}

// WithFuncLogger sets the logger used for callback failures.
// Params: slog logger.
// Returns: option attaching the logger.
func WithFuncLogger(logger *slog.Logger) FuncOption {
	return func(p *FuncPlugin) { p.logger = logger }
}

// NewFuncPlugin wraps one delivery callback as a target implementation.
// Params: provenance name, answered schemas, callback, and options.
// Returns: initialized plugin or nil when input is unusable.
func NewFuncPlugin(name string, schemas []string, fn NotifyFunc, opts ...FuncOption) *FuncPlugin {
	if fn == nil || len(schemas) == 0 {
		return nil
	}
	plugin := &FuncPlugin{
		name:    name,
		schemas: schemas,
		fn:      fn,
		format:  FormatText,
	}
	plugin.enabled.Store(true)
	for _, opt := range opts {
		opt(plugin)
	}
	return plugin
}

// Name returns callback provenance name.
// Params: none.
// Returns: originating function or registration name.
func (p *FuncPlugin) Name() string {
	return p.name
}

// DefaultURL returns the provenance URL recorded at registration.
// Params: none.
// Returns: default URL or empty string.
func (p *FuncPlugin) DefaultURL() string {
	return p.defaultURL
}

// Schemas returns every URL scheme the callback answers to.
// Params: none.
// Returns: schema list from registration.
func (p *FuncPlugin) Schemas() []string {
	return p.schemas
}

// Enabled reports shared implementation enable flag.
// Params: none.
// Returns: current flag value.
func (p *FuncPlugin) Enabled() bool {
	return p.enabled.Load()
}

// SetEnabled toggles shared implementation enable flag.
// Params: new flag value.
// Returns: flag side effect shared by all schemas.
func (p *FuncPlugin) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// New instantiates one callback-backed destination from a parsed URL.
// Params: parsed target URL.
// Returns: bound target instance.
func (p *FuncPlugin) New(u *ParsedURL) (Target, error) {
	if u == nil {
		return nil, fmt.Errorf("callback target %q requires a parsed URL", p.name)
	}
	instance := &funcTarget{plugin: p, tags: u.Tags, format: p.format, raw: u.Raw()}
	if u.HasFormat {
		instance.format = u.Format
	}
	return instance, nil
}

// funcTarget is one instantiated callback destination.
// Params: owning plugin and per-URL routing metadata.
// Returns: target capability implementation.
type funcTarget struct {
	plugin *FuncPlugin
	tags   []string
	format Format
	raw    string
}

// Notify invokes the wrapped callback with converted content.
// Params: context, body, title, and notification kind.
// Returns: false on any callback error; never panics for transport issues.
func (t *funcTarget) Notify(ctx context.Context, body, title string, kind Kind) bool {
	err := t.plugin.fn(ctx, body, title, kind)
	if err == nil {
		return true
	}
	if t.plugin.logger != nil {
		if expected.Is(err) {
			t.plugin.logger.Warn("callback target delivery failed",
				"name", t.plugin.name, "error", err.Error())
		} else {
			t.plugin.logger.Error("callback target unexpected failure",
				"name", t.plugin.name, "error", err.Error())
		}
	}
	return false
}

// Tags returns routing tags from the instantiating URL.
// Params: none.
// Returns: tag list.
func (t *funcTarget) Tags() []string {
	return t.tags
}

// Format returns the body markup the callback expects.
// Params: none.
// Returns: effective format after URL override.
func (t *funcTarget) Format() Format {
	return t.format
}

// Enabled reports the shared implementation flag.
// Params: none.
// Returns: owning plugin flag value.
func (t *funcTarget) Enabled() bool {
	return t.plugin.Enabled()
}

// URL reconstructs the instantiating URL.
// Params: none.
// Returns: raw URL or provenance default.
func (t *funcTarget) URL() string {
	if t.raw != "" {
		return t.raw
	}
	return t.plugin.defaultURL
}
