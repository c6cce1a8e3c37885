package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"portfolioos/internal/bot"
	"portfolioos/internal/catalog"
	"portfolioos/internal/contact"
	"portfolioos/internal/history"
	"portfolioos/internal/metrics"
	"portfolioos/internal/ratelimit"
)

const (
	testAdminID       = 6227764526
	testWebhookSecret = "kJ8mN2pQ5tR7vX1zB4cE6gH9jL3nP8qS2uW5yA7bD0fG3hK6"
	testNotifyAPIURL  = "https://api.telegram.org"
)

type sentMessage struct {
	chatID string
	text   string
}

// recordingNotifier captures outbound messages instead of calling Telegram.
type recordingNotifier struct {
	mu      sync.Mutex
	enabled bool
	err     error
	sent    []sentMessage
}

func (n *recordingNotifier) Enabled() bool { return n.enabled }

func (n *recordingNotifier) Send(ctx context.Context, text string) error {
	return n.SendTo(ctx, "owner", text)
}

func (n *recordingNotifier) SendTo(_ context.Context, chatID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{chatID, text})
	return n.err
}

func (n *recordingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

type testConfig struct {
	notifyEnabled bool
	notifyErr     error
	threshold     int
	webhook       bool
	trustProxy    bool
}

type testEnv struct {
	server   *Server
	metrics  *metrics.Registry
	notifier *recordingNotifier
	ledger   *history.History
	logs     *bytes.Buffer
}

func setupTestServer(t *testing.T, cfg testConfig) *testEnv {
	t.Helper()

	if cfg.threshold == 0 {
		cfg.threshold = 1000
	}

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reg := metrics.NewRegistry(time.Now())
	ledger := history.NewHistory(10)
	notifier := &recordingNotifier{enabled: cfg.notifyEnabled, err: cfg.notifyErr}
	cat := catalog.Default()

	opts := Options{
		Catalog:      cat,
		Metrics:      reg,
		Limiter:      ratelimit.New(cfg.threshold),
		Contact:      contact.NewService(notifier, reg, ledger, logger),
		Logger:       logger,
		NotifyAPIURL: testNotifyAPIURL,

		TrustProxyHeaders: cfg.trustProxy,
	}

	if cfg.webhook {
		opts.Bot = bot.New(bot.Config{
			Notifier: notifier,
			Catalog:  cat,
			Metrics:  reg,
			Ledger:   ledger,
			AdminIDs: []string{"6227764526"},
			Logger:   logger,
		})
		opts.WebhookSecret = testWebhookSecret
	}

	server, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testEnv{
		server:   server,
		metrics:  reg,
		notifier: notifier,
		ledger:   ledger,
		logs:     logs,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func decodeBody[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return v
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func httptestServe(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
