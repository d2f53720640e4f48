package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"courier/internal/target"
)

const webhookTimeout = 10 * time.Second

// WebhookPlugin answers the json:// and jsons:// schemas.
// Params: shared enable flag and schema binding.
// Returns: implementation posting JSON payloads over HTTP(S).
type WebhookPlugin struct {
	pluginBase
}

// NewWebhookPlugin creates the generic JSON webhook implementation.
// Params: optional logger.
// Returns: initialized plugin.
func NewWebhookPlugin(logger *slog.Logger) *WebhookPlugin {
	p := &WebhookPlugin{}
	initPluginBase(&p.pluginBase, []string{"json", "jsons"}, logger)
	return p
}

// New instantiates one webhook destination from a parsed URL.
// Params: parsed URL; json:// posts over http, jsons:// over https.
// Returns: bound target or configuration error.
func (p *WebhookPlugin) New(u *target.ParsedURL) (target.Target, error) {
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("webhook host is required")
	}

	endpoint := url.URL{
		Scheme: "http",
		Host:   u.Host,
		Path:   u.Path,
	}
	if u.Schema == "jsons" {
		endpoint.Scheme = "https"
	}
	if u.Port != "" {
		endpoint.Host = u.Host + ":" + u.Port
	}
	if u.User != "" {
		if u.Password != "" {
			endpoint.User = url.UserPassword(u.User, u.Password)
		} else {
			endpoint.User = url.User(u.User)
		}
	}

	instance := &webhookTarget{
		plugin:   p,
		endpoint: endpoint.String(),
		client:   &http.Client{Timeout: webhookTimeout},
		tags:     u.Tags,
		format:   target.FormatText,
		raw:      u.Raw(),
	}
	if u.HasFormat {
		instance.format = u.Format
	}
	return instance, nil
}

// webhookTarget is one instantiated JSON webhook destination.
// Params: endpoint, HTTP client, and routing metadata.
// Returns: target capability implementation.
type webhookTarget struct {
	plugin   *WebhookPlugin
	endpoint string
	client   *http.Client
	tags     []string
	format   target.Format
	raw      string
}

// webhookPayload is the wire body posted to the endpoint.
// Params: version marker, title, message, and notification kind.
// Returns: JSON document shape.
type webhookPayload struct {
	Version string `json:"version"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Notify posts one JSON payload to the configured endpoint.
// Params: context, converted body, title, and notification kind.
// Returns: false on transport error or non-2xx status.
func (t *webhookTarget) Notify(ctx context.Context, body, title string, kind target.Kind) bool {
	encoded, err := json.Marshal(webhookPayload{
		Version: "1.0",
		Title:   title,
		Message: body,
		Type:    string(kind),
	})
	if err != nil {
		t.plugin.warn("webhook payload encoding failed", "error", err.Error())
		return false
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(encoded))
	if err != nil {
		t.plugin.warn("webhook request build failed", "error", err.Error())
		return false
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := t.client.Do(request)
	if err != nil {
		t.plugin.warn("webhook send failed", "error", err.Error())
		return false
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		t.plugin.warn("webhook send rejected", "error", httpStatusError("webhook", response).Error())
		return false
	}
	return true
}

// Tags returns routing tags from the instantiating URL.
// Params: none.
// Returns: tag list.
func (t *webhookTarget) Tags() []string {
	return t.tags
}

// Format returns the body markup this destination expects.
// Params: none.
// Returns: text unless overridden on the URL.
func (t *webhookTarget) Format() target.Format {
	return t.format
}

// Enabled reports the shared implementation flag.
// Params: none.
// Returns: owning plugin flag value.
func (t *webhookTarget) Enabled() bool {
	return t.plugin.Enabled()
}

// URL reconstructs the instantiating URL.
// Params: none.
// Returns: raw URL the target was built from.
func (t *webhookTarget) URL() string {
	return t.raw
}

// httpStatusError formats non-2xx HTTP response with optional body.
// Params: provider prefix label and HTTP response pointer.
// Returns: status-only or status+body error.
func httpStatusError(prefix string, response *http.Response) error {
	if response == nil {
		return fmt.Errorf("%s status=0", prefix)
	}
	rawBody, readErr := io.ReadAll(io.LimitReader(response.Body, 2048))
	if readErr != nil {
		return fmt.Errorf("%s status=%d (read body error: %w)", prefix, response.StatusCode, readErr)
	}
	trimmedBody := strings.TrimSpace(string(rawBody))
	if trimmedBody == "" {
		return fmt.Errorf("%s status=%d", prefix, response.StatusCode)
	}
	return fmt.Errorf("%s status=%d body=%s", prefix, response.StatusCode, trimmedBody)
}
