package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/youmna-rabie/mcp-relay/internal/channel"
	"github.com/youmna-rabie/mcp-relay/internal/config"
	"github.com/youmna-rabie/mcp-relay/internal/connectivity"
	"github.com/youmna-rabie/mcp-relay/internal/signature"
)

const samplePayload = `{"eventType":"carrier.packet.completed","eventDateTime":"2024-05-01T12:00:00Z","eventData":{"dotNumber":"123456","companyName":"Acme Freight"}}`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// useConfig points the package-level --config flag at path for one test.
func useConfig(t *testing.T, path string) {
	t.Helper()
	for _, name := range []string{"MCP_SIGNING_SECRET", "SLACK_BOT_TOKEN", "SLACK_APP_TOKEN", "SLACK_WEBHOOK_URL", "SLACK_CHANNEL_ID", "PUBLIC_URL", "PORT", "WEBHOOK_PATH"} {
		t.Setenv(name, "")
	}
	old := configPath
	configPath = path
	t.Cleanup(func() { configPath = old })
}

func testCommand(stdin string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetContext(context.Background())
	return cmd, &out
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
	}{
		{"json format", config.LoggingConfig{Level: "info", Format: "json"}},
		{"text format", config.LoggingConfig{Level: "debug", Format: "text"}},
		{"warn level", config.LoggingConfig{Level: "warn", Format: "json"}},
		{"error level", config.LoggingConfig{Level: "error", Format: "text"}},
		{"default level", config.LoggingConfig{Level: "unknown", Format: "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := newLogger(tt.cfg)
			if logger == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLogLevel(tt.input)
			if got.String() != tt.want {
				t.Errorf("parseLogLevel(%q) = %s, want %s", tt.input, got.String(), tt.want)
			}
		})
	}
}

func TestBuildSessionDisabled(t *testing.T) {
	cfg := &config.Config{}
	session, runner := buildSession(cfg, connectivity.NewTracker(), newLogger(config.LoggingConfig{}))
	if session != nil {
		t.Fatalf("expected nil session interface, got %T", session)
	}
	if runner != nil {
		t.Fatal("expected no socket runner")
	}
}

func TestBuildSessionEnabled(t *testing.T) {
	cfg := &config.Config{Slack: config.SlackConfig{ChannelID: "C1", BotToken: "xoxb-1", AppToken: "xapp-1"}}
	session, runner := buildSession(cfg, connectivity.NewTracker(), newLogger(config.LoggingConfig{}))
	if session == nil || runner == nil {
		t.Fatal("expected session channel and runner")
	}
	if session.Name() != "slack_session" {
		t.Fatalf("expected slack_session, got %s", session.Name())
	}
}

func TestBuildFallback(t *testing.T) {
	logger := newLogger(config.LoggingConfig{})

	hook := buildFallback(&config.Config{Slack: config.SlackConfig{WebhookURL: "https://hooks.slack.com/services/x"}}, logger)
	if _, ok := hook.(*channel.WebhookChannel); !ok {
		t.Fatalf("expected webhook channel, got %T", hook)
	}

	dry := buildFallback(&config.Config{Delivery: config.DeliveryConfig{DryRun: true}}, logger)
	if _, ok := dry.(*channel.LogChannel); !ok {
		t.Fatalf("expected log channel for dry run, got %T", dry)
	}
}

func TestChannelsCommand(t *testing.T) {
	useConfig(t, writeTestConfig(t, `
server:
  port: 9090
slack:
  channel_id: C42
  webhook_url: https://hooks.slack.com/services/T000/B000/SECRET
  bot_token: xoxb-1
  app_token: xapp-1
`))

	cmd, out := testCommand("")
	if err := listChannels(cmd, nil); err != nil {
		t.Fatalf("listChannels returned error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "slack_session") || !strings.Contains(got, "enabled") {
		t.Errorf("expected enabled session row, got:\n%s", got)
	}
	if strings.Contains(got, "SECRET") {
		t.Errorf("webhook URL path should be redacted, got:\n%s", got)
	}
	if !strings.Contains(got, "http://0.0.0.0:9090/webhooks/mcp") {
		t.Errorf("expected webhook endpoint, got:\n%s", got)
	}
}

func TestChannelsCommandDryRun(t *testing.T) {
	useConfig(t, writeTestConfig(t, "delivery:\n  dry_run: true\n"))

	cmd, out := testCommand("")
	if err := listChannels(cmd, nil); err != nil {
		t.Fatalf("listChannels returned error: %v", err)
	}
	if !strings.Contains(out.String(), "dry-run") {
		t.Errorf("expected dry-run fallback, got:\n%s", out.String())
	}
}

func TestSignCommand(t *testing.T) {
	old := signSecret
	signSecret = "whsec_cli"
	t.Cleanup(func() { signSecret = old })

	cmd, out := testCommand(samplePayload)
	if err := signPayload(cmd, nil); err != nil {
		t.Fatalf("signPayload returned error: %v", err)
	}

	want, _ := signature.Compute([]byte(samplePayload), "whsec_cli")
	if got := strings.TrimSpace(out.String()); got != signature.Header+": "+want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSignCommandFromConfigAndFile(t *testing.T) {
	useConfig(t, writeTestConfig(t, "mcp:\n  signing_secret: from-file\ndelivery:\n  dry_run: true\n"))
	old := signSecret
	signSecret = ""
	t.Cleanup(func() { signSecret = old })

	payloadPath := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(payloadPath, []byte(samplePayload), 0644); err != nil {
		t.Fatal(err)
	}

	cmd, out := testCommand("")
	if err := signPayload(cmd, []string{payloadPath}); err != nil {
		t.Fatalf("signPayload returned error: %v", err)
	}
	want, _ := signature.Compute([]byte(samplePayload), "from-file")
	if !strings.Contains(out.String(), want) {
		t.Fatalf("expected %s in output, got %q", want, out.String())
	}
}

func TestSignCommandNoSecret(t *testing.T) {
	useConfig(t, writeTestConfig(t, "delivery:\n  dry_run: true\n"))
	old := signSecret
	signSecret = ""
	t.Cleanup(func() { signSecret = old })

	cmd, _ := testCommand(samplePayload)
	if err := signPayload(cmd, nil); err == nil {
		t.Fatal("expected error without a secret")
	}
}

func TestRenderCommand(t *testing.T) {
	old := listEventTypes
	listEventTypes = false
	t.Cleanup(func() { listEventTypes = old })

	cmd, out := testCommand(samplePayload)
	if err := renderPayload(cmd, nil); err != nil {
		t.Fatalf("renderPayload returned error: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if text, _ := payload["text"].(string); text == "" {
		t.Fatal("expected fallback text")
	}
	if _, ok := payload["attachments"].([]any); !ok {
		t.Fatal("expected attachments array")
	}
}

func TestRenderCommandMalformed(t *testing.T) {
	cmd, _ := testCommand(`{"eventData":{}}`)
	if err := renderPayload(cmd, nil); err == nil {
		t.Fatal("expected error for payload without eventType")
	}
}

func TestRenderCommandList(t *testing.T) {
	old := listEventTypes
	listEventTypes = true
	t.Cleanup(func() { listEventTypes = old })

	cmd, out := testCommand("")
	if err := renderPayload(cmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "carrier.packet.completed") {
		t.Fatalf("expected packet event type listed, got:\n%s", out.String())
	}
}

func TestDeliveriesCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/deliveries" || r.URL.Query().Get("limit") != "5" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"deliveries":[{"id":"00000000-0000-0000-0000-000000000001","event_id":"00000000-0000-0000-0000-000000000002","event_type":"carrier.packet.completed","event_date_time":"2024-05-01T12:00:00Z","status":"fell_back","channel":"slack_webhook","attempts":2,"created_at":"2024-05-01T12:00:01Z"}],"count":1,"total":7}`))
	}))
	defer srv.Close()

	oldAddr, oldLimit := deliveriesAddr, deliveriesLimit
	deliveriesAddr, deliveriesLimit = srv.URL, 5
	t.Cleanup(func() { deliveriesAddr, deliveriesLimit = oldAddr, oldLimit })

	cmd, out := testCommand("")
	if err := listDeliveries(cmd, nil); err != nil {
		t.Fatalf("listDeliveries returned error: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "fell_back") || !strings.Contains(got, "showing 1 of 7") {
		t.Fatalf("unexpected output:\n%s", got)
	}
}

func TestDeliveriesCommandBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	oldAddr := deliveriesAddr
	deliveriesAddr = srv.URL
	t.Cleanup(func() { deliveriesAddr = oldAddr })

	cmd, _ := testCommand("")
	if err := listDeliveries(cmd, nil); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://hooks.slack.com/services/T/B/X"); got != "https://hooks.slack.com/***" {
		t.Fatalf("got %q", got)
	}
	if got := redactURL(""); got != "(invalid)" {
		t.Fatalf("got %q", got)
	}
}
