package target

import "context"

// Format is the body markup a target expects at delivery time.
// Params: text/html/markdown constants.
// Returns: conversion key for dispatcher body caching.
type Format string

const (
	// FormatText expects plain text bodies.
	FormatText Format = "text"
	// FormatHTML expects HTML bodies.
	FormatHTML Format = "html"
	// FormatMarkdown expects markdown bodies.
	FormatMarkdown Format = "markdown"
)

// ParseFormat resolves a configured format name.
// Params: raw format value from URL query or config.
// Returns: format constant and whether the value was recognized.
func ParseFormat(raw string) (Format, bool) {
	switch Format(normalizeToken(raw)) {
	case FormatText:
		return FormatText, true
	case FormatHTML:
		return FormatHTML, true
	case FormatMarkdown:
		return FormatMarkdown, true
	default:
		return FormatText, false
	}
}

// Kind is the notification category passed through to each target.
// Params: info/success/warning/failure constants.
// Returns: category presented by provider payloads.
type Kind string

const (
	// KindInfo identifies informational notifications.
	KindInfo Kind = "info"
	// KindSuccess identifies success notifications.
	KindSuccess Kind = "success"
	// KindWarning identifies warning notifications.
	KindWarning Kind = "warning"
	// KindFailure identifies failure notifications.
	KindFailure Kind = "failure"
)

// ParseKind resolves a configured notification kind name.
// Params: raw kind value from CLI or config.
// Returns: kind constant and whether the value was recognized.
func ParseKind(raw string) (Kind, bool) {
	switch Kind(normalizeToken(raw)) {
	case KindInfo:
		return KindInfo, true
	case KindSuccess:
		return KindSuccess, true
	case KindWarning:
		return KindWarning, true
	case KindFailure:
		return KindFailure, true
	default:
		return KindInfo, false
	}
}

// Target is one concrete notification destination.
// Params: delivery payload plus routing metadata accessors.
// Returns: capability contract consumed by the dispatch layer.
type Target interface {
	// Notify delivers one message. Ordinary delivery failures (transport
	// errors, non-2xx responses) return false and never panic.
	Notify(ctx context.Context, body, title string, kind Kind) bool

	// Tags returns the routing tags attached to this destination.
	Tags() []string

	// Format returns the body markup this destination expects.
	Format() Format

	// Enabled reports whether the owning implementation accepts deliveries.
	Enabled() bool

	// URL reconstructs a canonical URL from current configuration.
	URL() string
}

// Plugin is one registered target implementation shared by its schemas.
// Params: schema accessor, enable toggle, and target constructor.
// Returns: implementation descriptor stored in the schema registry.
type Plugin interface {
	// Schemas returns every URL scheme this implementation answers to.
	Schemas() []string

	// Enabled reports the shared implementation-level enable flag.
	Enabled() bool

	// SetEnabled toggles the shared implementation-level enable flag.
	SetEnabled(enabled bool)

	// New instantiates one destination from a parsed URL.
	New(u *ParsedURL) (Target, error)
}
