// Package providers holds the builtin notification target implementations
// and the static discovery table the schema registry scans instead of
// loading code from the filesystem at runtime.
package providers

import (
	"log/slog"
	"sync/atomic"

	"courier/internal/registry"
	"courier/internal/target"
)

// pluginBase carries the shared enable flag and schema list for builtins.
// Params: answered schemas.
// Returns: common implementation-level plumbing embedded by providers.
type pluginBase struct {
	schemas []string
	logger  *slog.Logger
	enabled atomic.Bool
}

// initPluginBase fills shared plugin plumbing in enabled state.
// Params: base to initialize, schema list and optional logger.
// Returns: nothing; the base is initialized in place.
func initPluginBase(base *pluginBase, schemas []string, logger *slog.Logger) {
	base.schemas = schemas
	base.logger = logger
	base.enabled.Store(true)
}

// Schemas returns every URL scheme this implementation answers to.
// Params: none.
// Returns: schema list.
func (b *pluginBase) Schemas() []string {
	return b.schemas
}

// Enabled reports the shared implementation enable flag.
// Params: none.
// Returns: current flag value.
func (b *pluginBase) Enabled() bool {
	return b.enabled.Load()
}

// SetEnabled toggles the shared implementation enable flag.
// Params: new flag value.
// Returns: flag side effect shared by all schemas.
func (b *pluginBase) SetEnabled(enabled bool) {
	b.enabled.Store(enabled)
}

// warn logs one provider diagnostic when a logger is attached.
// Params: message and key/value attrs.
// Returns: nothing.
func (b *pluginBase) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

// Builtins returns the static discovery table for the schema registry.
// Params: optional logger shared by provider implementations.
// Returns: descriptor list in deterministic load order.
func Builtins(logger *slog.Logger) []registry.Descriptor {
	return []registry.Descriptor{
		{Name: "telegram", Build: func() target.Plugin { return NewTelegramPlugin(logger) }},
		{Name: "webhook", Build: func() target.Plugin { return NewWebhookPlugin(logger) }},
		{Name: "natspub", Build: func() target.Plugin { return NewNATSPlugin(logger) }},
	}
}
