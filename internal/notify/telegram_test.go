package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"

type captured struct {
	mu       sync.Mutex
	paths    []string
	payloads []sendMessageRequest
}

func (c *captured) last() sendMessageRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloads[len(c.payloads)-1]
}

func newTelegramServer(t *testing.T, status int, body string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		c.mu.Lock()
		c.paths = append(c.paths, r.URL.Path)
		c.payloads = append(c.payloads, req)
		c.mu.Unlock()

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestNew_DisabledWithoutToken(t *testing.T) {
	n, err := New(Options{ChatID: "42"})
	require.NoError(t, err)

	assert.False(t, n.Enabled())
	assert.ErrorIs(t, n.Send(context.Background(), "hi"), ErrDisabled)
	assert.ErrorIs(t, n.SendTo(context.Background(), "42", "hi"), ErrDisabled)
}

func TestTelegram_Send(t *testing.T) {
	srv, c := newTelegramServer(t, http.StatusOK, `{"ok":true}`)

	n, err := New(Options{Token: testToken, ChatID: "6227764526", APIURL: srv.URL + "/"})
	require.NoError(t, err)
	require.True(t, n.Enabled())

	require.NoError(t, n.Send(context.Background(), "New Contact"))

	assert.Equal(t, []string{"/bot" + testToken + "/sendMessage"}, c.paths)
	got := c.last()
	assert.Equal(t, "6227764526", got.ChatID)
	assert.Equal(t, "New Contact", got.Text)
	assert.True(t, got.DisableWebPagePreview)
}

func TestTelegram_SendWithoutChat(t *testing.T) {
	srv, c := newTelegramServer(t, http.StatusOK, `{"ok":true}`)

	n, err := NewTelegram(Options{Token: testToken, APIURL: srv.URL})
	require.NoError(t, err)

	assert.False(t, n.Enabled())
	assert.ErrorIs(t, n.Send(context.Background(), "x"), ErrDisabled)

	// explicit chats still work, which is what bot replies rely on
	require.NoError(t, n.SendTo(context.Background(), "99", "pong"))
	assert.Equal(t, "99", c.last().ChatID)
}

func TestTelegram_APIError(t *testing.T) {
	srv, _ := newTelegramServer(t, http.StatusBadRequest,
		`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)

	n, err := NewTelegram(Options{Token: testToken, ChatID: "1", APIURL: srv.URL})
	require.NoError(t, err)

	err = n.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_APIErrorWithoutBody(t *testing.T) {
	srv, _ := newTelegramServer(t, http.StatusBadGateway, "")

	n, err := NewTelegram(Options{Token: testToken, ChatID: "1", APIURL: srv.URL})
	require.NoError(t, err)

	err = n.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestTelegram_ErrorDoesNotLeakToken(t *testing.T) {
	// closed server: connection refused
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	n, err := NewTelegram(Options{Token: testToken, ChatID: "1", APIURL: srv.URL})
	require.NoError(t, err)

	err = n.Send(context.Background(), "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testToken)
}

func TestTelegram_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	n, err := NewTelegram(Options{Token: testToken, ChatID: "1", APIURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	err = n.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTelegram_RateLimitHonorsContext(t *testing.T) {
	srv, _ := newTelegramServer(t, http.StatusOK, `{"ok":true}`)

	n, err := NewTelegram(Options{Token: testToken, ChatID: "1", APIURL: srv.URL, Rate: 0.001, Burst: 1})
	require.NoError(t, err)

	require.NoError(t, n.Send(context.Background(), "first"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = n.Send(ctx, "second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestTelegram_DefaultBurstAbsorbsSpike(t *testing.T) {
	srv, c := newTelegramServer(t, http.StatusOK, `{"ok":true}`)

	n, err := NewTelegram(Options{Token: testToken, ChatID: "1", APIURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for i := 0; i < DefaultBurst; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := n.Send(ctx, "contact"); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failed)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.payloads, DefaultBurst)
}

func TestTelegram_TruncatesLongMessages(t *testing.T) {
	srv, c := newTelegramServer(t, http.StatusOK, `{"ok":true}`)

	n, err := NewTelegram(Options{Token: testToken, ChatID: "1", APIURL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, n.Send(context.Background(), strings.Repeat("é", MaxMessageLength+10)))
	assert.Equal(t, MaxMessageLength, len([]rune(c.last().Text)))
}

func TestNewTelegram_RequiresToken(t *testing.T) {
	_, err := NewTelegram(Options{})
	assert.Error(t, err)
}
