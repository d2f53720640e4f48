package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"courier/internal/registry"
	"courier/internal/target"
)

func parse(t *testing.T, raw string) *target.ParsedURL {
	t.Helper()
	parsed, err := target.ParseURL(raw)
	if err != nil {
		t.Fatalf("ParseURL(%q): %v", raw, err)
	}
	return parsed
}

func TestBuiltinsRegister(t *testing.T) {
	t.Parallel()

	reg := registry.New(registry.WithBuiltins(Builtins(nil)))
	for _, schema := range []string{"tgram", "json", "jsons", "natspub"} {
		if !reg.Contains(schema) {
			t.Fatalf("builtin schema %q is not registered", schema)
		}
	}
}

func TestWebhookDelivery(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received webhookPayload
		path     string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	host := strings.TrimPrefix(server.URL, "http://")
	plugin := NewWebhookPlugin(nil)
	instance, err := plugin.New(parse(t, "json://"+host+"/hooks/alerts?tag=ops"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !instance.Notify(context.Background(), "the body", "the title", target.KindWarning) {
		t.Fatalf("delivery to a 200 endpoint must succeed")
	}

	mu.Lock()
	defer mu.Unlock()
	if path != "/hooks/alerts" {
		t.Fatalf("request path = %q", path)
	}
	if received.Version != "1.0" || received.Title != "the title" ||
		received.Message != "the body" || received.Type != "warning" {
		t.Fatalf("payload = %+v", received)
	}
}

func TestWebhookRejectedStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer server.Close()

	host := strings.TrimPrefix(server.URL, "http://")
	plugin := NewWebhookPlugin(nil)
	instance, err := plugin.New(parse(t, "json://"+host+"/hook"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if instance.Notify(context.Background(), "body", "", target.KindInfo) {
		t.Fatalf("non-2xx response must report delivery failure")
	}
}

func TestWebhookEndpointConstruction(t *testing.T) {
	t.Parallel()

	plugin := NewWebhookPlugin(nil)

	cases := []struct {
		raw  string
		want string
	}{
		{"json://example.com/hook", "http://example.com/hook"},
		{"jsons://example.com/hook", "https://example.com/hook"},
		{"json://example.com:8080/hook", "http://example.com:8080/hook"},
		{"json://user:pw@example.com/hook", "http://user:pw@example.com/hook"},
	}
	for _, tc := range cases {
		instance, err := plugin.New(parse(t, tc.raw))
		if err != nil {
			t.Fatalf("New(%q): %v", tc.raw, err)
		}
		if got := instance.(*webhookTarget).endpoint; got != tc.want {
			t.Fatalf("endpoint for %q = %q, want %q", tc.raw, got, tc.want)
		}
	}

	if _, err := plugin.New(parse(t, "json:///hook")); err == nil {
		t.Fatalf("missing host must be rejected")
	}
}

func TestWebhookFormatOverride(t *testing.T) {
	t.Parallel()

	plugin := NewWebhookPlugin(nil)
	instance, err := plugin.New(parse(t, "json://example.com/hook?format=markdown"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if instance.Format() != target.FormatMarkdown {
		t.Fatalf("format = %q, want URL override", instance.Format())
	}
}

func TestTelegramNew(t *testing.T) {
	t.Parallel()

	plugin := NewTelegramPlugin(nil)

	token := "123456:AAtokenAA"
	instance, err := plugin.New(parse(t, "tgram://"+token+"@-1001234567890?tag=ops"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bound := instance.(*telegramTarget)
	if bound.chatID != int64(-1001234567890) {
		t.Fatalf("chat id = %v (%T), want numeric int64", bound.chatID, bound.chatID)
	}
	if instance.Format() != target.FormatHTML {
		t.Fatalf("format = %q, want html default", instance.Format())
	}
	if got := instance.Tags(); len(got) != 1 || got[0] != "ops" {
		t.Fatalf("tags = %v", got)
	}

	named, err := plugin.New(parse(t, "tgram://"+token+"@channelname"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if named.(*telegramTarget).chatID != "channelname" {
		t.Fatalf("chat id = %v, want string channel name", named.(*telegramTarget).chatID)
	}

	if _, err := plugin.New(parse(t, "tgram://@chat")); err == nil {
		t.Fatalf("missing token must be rejected")
	}
	if _, err := plugin.New(parse(t, "tgram://"+token+"@")); err == nil {
		t.Fatalf("missing chat id must be rejected")
	}
}

func TestNATSNew(t *testing.T) {
	t.Parallel()

	plugin := NewNATSPlugin(nil)

	instance, err := plugin.New(parse(t, "natspub://broker:4222/alerts/prod"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bound := instance.(*natsTarget)
	if bound.server != "nats://broker:4222" {
		t.Fatalf("server = %q", bound.server)
	}
	if bound.subject != "alerts.prod" {
		t.Fatalf("subject = %q, want path slashes mapped to dots", bound.subject)
	}

	if _, err := plugin.New(parse(t, "natspub://broker")); err == nil {
		t.Fatalf("missing subject must be rejected")
	}
	if _, err := plugin.New(parse(t, "natspub:///subject")); err == nil {
		t.Fatalf("missing host must be rejected")
	}
}

func TestPluginEnableFlag(t *testing.T) {
	t.Parallel()

	plugin := NewWebhookPlugin(nil)
	if !plugin.Enabled() {
		t.Fatalf("plugins must start enabled")
	}

	instance, err := plugin.New(parse(t, "json://example.com/hook"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	plugin.SetEnabled(false)
	if instance.Enabled() {
		t.Fatalf("instances must reflect the shared implementation flag")
	}
}
