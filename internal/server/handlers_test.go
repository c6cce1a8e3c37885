package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"portfolioos/internal/catalog"
	"portfolioos/internal/contact"
	"portfolioos/internal/history"
	"portfolioos/internal/metrics"
	"portfolioos/internal/site"
)

func TestHandleHealth(t *testing.T) {
	env := setupTestServer(t, testConfig{})

	rr := env.get("/healthz")

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	resp := decodeBody[HealthResponse](t, rr.Body)
	if !resp.OK {
		t.Error("Expected ok=true")
	}
	if resp.UptimeSec < 0 {
		t.Errorf("Expected non-negative uptime, got %d", resp.UptimeSec)
	}
	if _, err := uuid.Parse(resp.ReqID); err != nil {
		t.Errorf("Expected UUID reqId, got %q", resp.ReqID)
	}
	if rr.Header().Get("X-Request-Id") != resp.ReqID {
		t.Errorf("X-Request-Id %q does not match body reqId %q", rr.Header().Get("X-Request-Id"), resp.ReqID)
	}
}

func TestHandleHealth_DoesNotTouchContactCounters(t *testing.T) {
	env := setupTestServer(t, testConfig{})

	for i := 0; i < 3; i++ {
		env.get("/healthz")
	}

	if got := env.metrics.Get(metrics.ContactMessages); got != 0 {
		t.Errorf("Expected contactMessages 0, got %d", got)
	}
	if got := env.metrics.Get(metrics.Requests); got != 3 {
		t.Errorf("Expected requestsTotal 3, got %d", got)
	}
}

func TestHandleMetrics(t *testing.T) {
	env := setupTestServer(t, testConfig{})

	env.get("/healthz")
	env.get("/api/projects")
	env.get("/does-not-exist")
	env.get("/wp-admin/../../etc/passwd")

	rr := env.get("/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	resp := decodeBody[MetricsResponse](t, rr.Body)

	if resp.RequestsTotal != 5 {
		t.Errorf("Expected requestsTotal 5, got %d", resp.RequestsTotal)
	}

	var sum int64
	for _, n := range resp.RequestsByRoute {
		sum += n
	}
	if sum != resp.RequestsTotal {
		t.Errorf("Route counts sum to %d, requestsTotal is %d", sum, resp.RequestsTotal)
	}

	want := map[string]int64{
		"/healthz":      1,
		"/api/projects": 1,
		"/metrics":      1,
		UnmatchedRoute:  2,
	}
	for route, n := range want {
		if resp.RequestsByRoute[route] != n {
			t.Errorf("requestsByRoute[%q] = %d, want %d", route, resp.RequestsByRoute[route], n)
		}
	}
	if len(resp.RequestsByRoute) != len(want) {
		t.Errorf("Unexpected routes in %v", resp.RequestsByRoute)
	}

	if resp.OTelEnabled {
		t.Error("Expected otelEnabled=false")
	}
	if resp.ReqID == "" {
		t.Error("Expected reqId")
	}
}

func TestHandleProjects(t *testing.T) {
	env := setupTestServer(t, testConfig{})

	rr := env.get("/api/projects")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	resp := decodeBody[ProjectsResponse](t, rr.Body)
	want := catalog.Default().All()

	if resp.Count != len(want) || len(resp.Items) != len(want) {
		t.Fatalf("Expected %d projects, got count=%d items=%d", len(want), resp.Count, len(resp.Items))
	}
	for i := range want {
		if resp.Items[i].ID != want[i].ID {
			t.Errorf("Item %d id = %q, want %q", i, resp.Items[i].ID, want[i].ID)
		}
	}
}

func TestHandleProjects_CategoryFilter(t *testing.T) {
	env := setupTestServer(t, testConfig{})

	rr := env.get("/api/projects?category=saas")
	resp := decodeBody[ProjectsResponse](t, rr.Body)

	if resp.Count != 1 || resp.Items[0].ID != "shoghlana" {
		t.Errorf("Expected only shoghlana, got %+v", resp.Items)
	}

	rr = env.get("/api/projects?category=unknown")
	resp = decodeBody[ProjectsResponse](t, rr.Body)
	if resp.Count != 0 || resp.Items == nil {
		t.Errorf("Expected an empty list, got %+v", resp)
	}
}

func TestHandleProjects_Immutable(t *testing.T) {
	env := setupTestServer(t, testConfig{})

	first := decodeBody[ProjectsResponse](t, env.get("/api/projects").Body)
	first.Items[0].Title = "changed"
	first.Items[0].Stack[0] = "changed"

	second := decodeBody[ProjectsResponse](t, env.get("/api/projects").Body)
	if second.Items[0].Title == "changed" || second.Items[0].Stack[0] == "changed" {
		t.Error("Catalog changed between requests")
	}
}

func TestHandleContact_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"name":"Sara","email":"sara@example.com","message":"0123456789"}`, http.StatusAccepted},
		{"valid with subject", `{"name":"Sara","email":"sara@example.com","subject":"Hi","message":"I need an automation bot"}`, http.StatusAccepted},
		{"message 9 chars", `{"name":"Sara","email":"sara@example.com","message":"012345678"}`, http.StatusBadRequest},
		{"message padded to 10 with spaces", `{"name":"Sara","email":"sara@example.com","message":"  0123456  "}`, http.StatusBadRequest},
		{"email without at", `{"name":"Sara","email":"sara.example.com","message":"0123456789"}`, http.StatusBadRequest},
		{"missing name", `{"email":"sara@example.com","message":"0123456789"}`, http.StatusBadRequest},
		{"blank name", `{"name":"   ","email":"sara@example.com","message":"0123456789"}`, http.StatusBadRequest},
		{"long name", fmt.Sprintf(`{"name":%q,"email":"sara@example.com","message":"0123456789"}`, strings.Repeat("a", 201)), http.StatusAccepted},
		{"long subject", fmt.Sprintf(`{"name":"Sara","email":"sara@example.com","subject":%q,"message":"0123456789"}`, strings.Repeat("s", 1000)), http.StatusAccepted},
		{"malformed json", `{"name":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"wrong type", `{"name":42,"email":"sara@example.com","message":"0123456789"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t, testConfig{})

			rr := env.post("/api/contact", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("Expected status %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}

			var wantMessages int64
			if tt.want == http.StatusAccepted {
				wantMessages = 1
				resp := decodeBody[okResponse](t, rr.Body)
				if !resp.OK || resp.ReqID == "" {
					t.Errorf("Unexpected response %+v", resp)
				}
			} else {
				resp := decodeBody[ErrorResponse](t, rr.Body)
				if resp.Error != "validation_failed" {
					t.Errorf("Expected validation_failed, got %q", resp.Error)
				}
			}

			if got := env.metrics.Get(metrics.ContactMessages); got != wantMessages {
				t.Errorf("Expected contactMessages %d, got %d", wantMessages, got)
			}
		})
	}
}

func TestHandleContact_BodyTooLarge(t *testing.T) {
	env := setupTestServer(t, testConfig{})

	body := fmt.Sprintf(`{"name":"Sara","email":"sara@example.com","message":%q}`,
		strings.Repeat("x", contact.MaxBodyBytes))

	rr := env.post("/api/contact", body)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
	if got := env.metrics.Get(metrics.ContactMessages); got != 0 {
		t.Errorf("Expected contactMessages 0, got %d", got)
	}
}

func TestHandleContact_SkippedDelivery(t *testing.T) {
	env := setupTestServer(t, testConfig{notifyEnabled: false})

	rr := env.post("/api/contact", `{"name":"Sara","email":"sara@example.com","message":"0123456789"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", rr.Code)
	}

	if len(env.notifier.messages()) != 0 {
		t.Error("Expected no outbound message")
	}
	if got := env.metrics.Get(metrics.ContactSkipped); got != 1 {
		t.Errorf("Expected contactSkipped 1, got %d", got)
	}
	if rec, ok := env.ledger.Latest(); !ok || rec.Status != history.StatusSkipped {
		t.Errorf("Expected a skipped delivery record, got %+v", rec)
	}
}

func TestHandleContact_Delivered(t *testing.T) {
	env := setupTestServer(t, testConfig{notifyEnabled: true})

	rr := env.post("/api/contact", `{"name":"Sara","email":"sara@example.com","subject":"Bot","message":"I need a WhatsApp bot"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", rr.Code)
	}

	sent := env.notifier.messages()
	if len(sent) != 1 {
		t.Fatalf("Expected 1 outbound message, got %d", len(sent))
	}
	for _, want := range []string{"New Contact", "Name: Sara", "Email: sara@example.com", "Subject: Bot", "I need a WhatsApp bot"} {
		if !strings.Contains(sent[0].text, want) {
			t.Errorf("Message %q missing %q", sent[0].text, want)
		}
	}

	if got := env.metrics.Get(metrics.ContactDelivered); got != 1 {
		t.Errorf("Expected contactDelivered 1, got %d", got)
	}

	resp := decodeBody[okResponse](t, rr.Body)
	if rec, _ := env.ledger.Latest(); rec.RequestID != resp.ReqID {
		t.Errorf("Delivery record reqId %q, want %q", rec.RequestID, resp.ReqID)
	}
}

func TestHandleContact_NotifyFailure(t *testing.T) {
	env := setupTestServer(t, testConfig{notifyEnabled: true, notifyErr: errors.New("telegram API returned 502")})

	rr := env.post("/api/contact", `{"name":"Sara","email":"sara@example.com","message":"0123456789"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rr.Code)
	}

	resp := decodeBody[ErrorResponse](t, rr.Body)
	if resp.Error != "internal_error" {
		t.Errorf("Expected internal_error, got %q", resp.Error)
	}
	if strings.Contains(rr.Body.String(), "502") {
		t.Error("Internal error details leaked into the response")
	}

	if got := env.metrics.Get(metrics.Errors); got != 1 {
		t.Errorf("Expected errorsTotal 1, got %d", got)
	}
	if got := env.metrics.Get(metrics.ContactMessages); got != 1 {
		t.Errorf("Expected contactMessages 1, got %d", got)
	}
	if got := env.metrics.Get(metrics.ContactFailures); got != 1 {
		t.Errorf("Expected contactDeliveryFailures 1, got %d", got)
	}
	if !strings.Contains(env.logs.String(), `"msg":"request.failed"`) {
		t.Error("Expected a request.failed log line")
	}
}

func TestHandleNotFound(t *testing.T) {
	env := setupTestServer(t, testConfig{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/nope"},
		{http.MethodGet, "/api/contact"},
		{http.MethodPost, "/healthz"},
		{http.MethodDelete, "/api/projects"},
		{http.MethodPost, "/"},
		{http.MethodPost, "/telegram/webhook"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := env.do(newRequest(tt.method, tt.path))
			if rr.Code != http.StatusNotFound {
				t.Fatalf("Expected status 404, got %d", rr.Code)
			}
			resp := decodeBody[ErrorResponse](t, rr.Body)
			if resp.Error != "not_found" || resp.ReqID == "" {
				t.Errorf("Unexpected response %+v", resp)
			}
		})
	}
}

func TestHandleIndex(t *testing.T) {
	env := setupTestServer(t, testConfig{})

	rr := env.get("/")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Expected HTML content type, got %q", ct)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != site.CacheControl {
		t.Errorf("Expected Cache-Control %q, got %q", site.CacheControl, cc)
	}
	if !strings.Contains(rr.Body.String(), catalog.DefaultProfile().Name) {
		t.Error("Expected the profile name in the page")
	}

	again := env.get("/")
	if again.Body.String() != rr.Body.String() {
		t.Error("Expected the same page on every request")
	}
}
