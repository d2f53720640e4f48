package providers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"courier/internal/target"

	"github.com/nats-io/nats.go"
)

// NATSPlugin answers the natspub:// schema via core NATS publish.
// Params: shared enable flag and schema binding.
// Returns: implementation publishing notification payloads to a subject.
type NATSPlugin struct {
	pluginBase
}

// NewNATSPlugin creates the NATS publisher implementation object.
// Params: optional logger.
// Returns: initialized plugin.
func NewNATSPlugin(logger *slog.Logger) *NATSPlugin {
	p := &NATSPlugin{}
	initPluginBase(&p.pluginBase, []string{"natspub"}, logger)
	return p
}

// New instantiates one NATS destination from a parsed URL.
// Params: parsed URL in natspub://host:port/subject form; the connection
// is established lazily on first delivery so parsing stays I/O free.
// Returns: bound target or configuration error.
func (p *NATSPlugin) New(u *target.ParsedURL) (target.Target, error) {
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("nats host is required")
	}
	subject := strings.Trim(u.Path, "/")
	if subject == "" {
		return nil, errors.New("nats subject is required in the URL path")
	}

	serverURL := "nats://" + u.Host
	if u.Port != "" {
		serverURL = "nats://" + u.Host + ":" + u.Port
	}

	instance := &natsTarget{
		plugin:  p,
		server:  serverURL,
		subject: strings.ReplaceAll(subject, "/", "."),
		tags:    u.Tags,
		format:  target.FormatText,
		raw:     u.Raw(),
	}
	if u.HasFormat {
		instance.format = u.Format
	}
	return instance, nil
}

// natsTarget is one instantiated NATS subject destination.
// Params: server URL, subject, and routing metadata.
// Returns: target capability implementation.
type natsTarget struct {
	plugin  *NATSPlugin
	server  string
	subject string
	tags    []string
	format  target.Format
	raw     string

	connectOnce sync.Once
	conn        *nats.Conn
	connectErr  error
}

// natsPayload is the wire body published to the subject.
// Params: title, message, and notification kind.
// Returns: JSON document shape.
type natsPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Notify publishes one JSON payload to the configured subject.
// Params: context, converted body, title, and notification kind.
// Returns: false on connect, publish, or flush failure.
func (t *natsTarget) Notify(ctx context.Context, body, title string, kind target.Kind) bool {
	t.connectOnce.Do(func() {
		t.conn, t.connectErr = nats.Connect(t.server)
	})
	if t.connectErr != nil {
		t.plugin.warn("nats connect failed", "server", t.server, "error", t.connectErr.Error())
		return false
	}

	encoded, err := json.Marshal(natsPayload{Title: title, Message: body, Type: string(kind)})
	if err != nil {
		t.plugin.warn("nats payload encoding failed", "error", err.Error())
		return false
	}
	if err := t.conn.Publish(t.subject, encoded); err != nil {
		t.plugin.warn("nats publish failed", "subject", t.subject, "error", err.Error())
		return false
	}
	if err := t.conn.FlushWithContext(ctx); err != nil {
		t.plugin.warn("nats flush failed", "subject", t.subject, "error", err.Error())
		return false
	}
	return true
}

// Tags returns routing tags from the instantiating URL.
// Params: none.
// Returns: tag list.
func (t *natsTarget) Tags() []string {
	return t.tags
}

// Format returns the body markup this destination expects.
// Params: none.
// Returns: text unless overridden on the URL.
func (t *natsTarget) Format() target.Format {
	return t.format
}

// Enabled reports the shared implementation flag.
// Params: none.
// Returns: owning plugin flag value.
func (t *natsTarget) Enabled() bool {
	return t.plugin.Enabled()
}

// URL reconstructs the instantiating URL.
// Params: none.
// Returns: raw URL the target was built from.
func (t *natsTarget) URL() string {
	return t.raw
}
