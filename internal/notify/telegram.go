package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

const (
	DefaultAPIURL  = "https://api.telegram.org"
	DefaultTimeout = 10 * time.Second

	// Telegram allows roughly one message per second per chat and short
	// bursts up to its 30 messages per second bot limit. The burst absorbs
	// a spike of contact submissions without queueing; beyond it each send
	// waits for a token within Timeout and fails once that cannot be met.
	DefaultRate  = rate.Limit(1)
	DefaultBurst = 30

	// MaxMessageLength is the Bot API limit for sendMessage text.
	MaxMessageLength = 4096
)

// Options configures a Telegram notifier.
type Options struct {
	Token   string
	ChatID  string
	APIURL  string
	Timeout time.Duration
	Rate    rate.Limit
	Burst   int

	// HTTPClient overrides the client used for requests. Its own timeout is
	// left alone; Timeout still bounds each call through the context.
	HTTPClient *http.Client
}

// Telegram posts messages to the Bot API sendMessage method.
type Telegram struct {
	chatID   string
	endpoint string
	timeout  time.Duration
	client   *http.Client
	limiter  *rate.Limiter
}

// New returns a Telegram notifier, or Disabled when no bot token is set.
func New(opts Options) (Notifier, error) {
	if opts.Token == "" {
		return Disabled{}, nil
	}
	return NewTelegram(opts)
}

// NewTelegram builds a Telegram notifier from opts, applying defaults.
func NewTelegram(opts Options) (*Telegram, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid telegram API URL: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limit := opts.Rate
	if limit <= 0 {
		limit = DefaultRate
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Telegram{
		chatID:   opts.ChatID,
		endpoint: strings.TrimRight(apiURL, "/") + "/bot" + opts.Token + "/sendMessage",
		timeout:  timeout,
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
	}, nil
}

// Enabled reports whether both the token and the default chat are set.
func (t *Telegram) Enabled() bool {
	return t.chatID != ""
}

// Send delivers text to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if t.chatID == "" {
		return ErrDisabled
	}
	return t.SendTo(ctx, t.chatID, text)
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// SendTo delivers text to chatID. There is no retry; a failed call is
// reported to the caller once.
func (t *Telegram) SendTo(ctx context.Context, chatID, text string) error {
	if chatID == "" {
		return fmt.Errorf("chat id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  truncate(text, MaxMessageLength),
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the bot token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiResp apiResponse
		if json.Unmarshal(raw, &apiResp) == nil && apiResp.Description != "" {
			return fmt.Errorf("telegram API returned %d: %s", resp.StatusCode, apiResp.Description)
		}
		return fmt.Errorf("telegram API returned %d", resp.StatusCode)
	}

	return nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
