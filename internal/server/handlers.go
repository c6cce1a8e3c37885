package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"portfolioos/internal/bot"
	"portfolioos/internal/catalog"
	"portfolioos/internal/contact"
	"portfolioos/internal/metrics"
	"portfolioos/internal/site"
)

// MaxWebhookBytes is the maximum accepted Telegram update size (1MB).
const MaxWebhookBytes = 1 << 20

// handlerFunc is an http.HandlerFunc that reports unexpected failures by
// returning them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts h, converting a returned error into the uniform 500.
func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.fail(w, r, err)
		}
	}
}

// fail is the single unexpected-failure path.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.metrics.Inc(r.Context(), metrics.Errors)
	s.logger.Error("request.failed",
		"reqId", RequestID(r.Context()),
		"path", r.URL.Path,
		"error", err)
	s.respondError(w, r, http.StatusInternalServerError, "internal_error")
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	OK        bool   `json:"ok"`
	UptimeSec int64  `json:"uptimeSec"`
	ReqID     string `json:"reqId"`
}

// MetricsResponse is the body of GET /metrics.
type MetricsResponse struct {
	metrics.Snapshot
	OTelEnabled bool   `json:"otelEnabled"`
	ReqID       string `json:"reqId"`
}

// ProjectsResponse is the body of GET /api/projects.
type ProjectsResponse struct {
	Items []catalog.Project `json:"items"`
	Count int               `json:"count"`
	ReqID string            `json:"reqId"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	ReqID string `json:"reqId"`
}

type okResponse struct {
	OK    bool   `json:"ok"`
	ReqID string `json:"reqId"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		OK:        true,
		UptimeSec: s.metrics.Uptime(s.now()),
		ReqID:     RequestID(r.Context()),
	})
	return nil
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) error {
	snap := s.metrics.Snapshot()
	if snap.RequestsByRoute == nil {
		snap.RequestsByRoute = map[string]int64{}
	}
	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Snapshot:    snap,
		OTelEnabled: s.otelEnabled,
		ReqID:       RequestID(r.Context()),
	})
	return nil
}

// handleProjects serves the catalog, optionally narrowed by ?category=.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) error {
	items := s.catalog.Filter(r.URL.Query().Get("category"))
	s.respondJSON(w, http.StatusOK, ProjectsResponse{
		Items: items,
		Count: len(items),
		ReqID: RequestID(r.Context()),
	})
	return nil
}

// handleContact validates a submission and forwards it to the notifier.
// A skipped delivery (no notifier configured) still answers 202.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, contact.MaxBodyBytes))
	if err != nil {
		s.logger.Debug("contact.body_rejected", "reqId", RequestID(r.Context()), "error", err)
		s.respondError(w, r, http.StatusBadRequest, "validation_failed")
		return nil
	}

	sub, err := contact.Parse(body)
	if err != nil {
		s.logger.Debug("contact.invalid", "reqId", RequestID(r.Context()), "error", err)
		s.respondError(w, r, http.StatusBadRequest, "validation_failed")
		return nil
	}

	if err := s.contact.Submit(r.Context(), RequestID(r.Context()), sub); err != nil {
		if errors.Is(err, contact.ErrValidation) {
			s.respondError(w, r, http.StatusBadRequest, "validation_failed")
			return nil
		}
		return err
	}

	s.respondJSON(w, http.StatusAccepted, okResponse{OK: true, ReqID: RequestID(r.Context())})
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", site.CacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(s.page); err != nil {
		s.logger.Debug("response.write_failed", "error", err)
	}
	return nil
}

// handleNotFound serves unknown paths and method mismatches alike.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, r, http.StatusNotFound, "not_found")
}

// handleWebhook receives Telegram updates for the admin bot. Telegram
// retries non-2xx deliveries, so once an update is accepted the answer is
// 200 even when the reply could not be sent.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) error {
	reqID := RequestID(r.Context())

	if !VerifySecretToken(r.Header.Get(SecretTokenHeader), s.webhookSecret) {
		s.logger.Warn("webhook.forbidden", "reqId", reqID, "ip", clientIP(r))
		s.respondError(w, r, http.StatusForbidden, "forbidden")
		return nil
	}

	var update bot.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxWebhookBytes)).Decode(&update); err != nil {
		s.logger.Warn("webhook.invalid_update", "reqId", reqID, "error", err)
		s.respondError(w, r, http.StatusBadRequest, "invalid_update")
		return nil
	}

	if err := s.bot.Handle(r.Context(), update); err != nil {
		s.logger.Warn("bot.reply_failed",
			"reqId", reqID,
			"update_id", update.UpdateID,
			"error", err)
	}

	s.respondJSON(w, http.StatusOK, okResponse{OK: true, ReqID: reqID})
	return nil
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, code string) {
	s.respondJSON(w, status, ErrorResponse{Error: code, ReqID: RequestID(r.Context())})
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("response.write_failed", "error", err)
	}
}
