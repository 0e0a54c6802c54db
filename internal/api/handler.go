package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/casewatch/casewatch/internal/duedate"
	"github.com/casewatch/casewatch/internal/signal"
)

// Orchestrator is the slice of the notification orchestrator the HTTP API
// exposes.
type Orchestrator interface {
	ListSignals(ctx context.Context, f signal.Filter, page *signal.Page) ([]*signal.Signal, error)
	CountSignals(ctx context.Context, f signal.Filter) (int64, error)
	LatestSignalAt(ctx context.Context, f signal.Filter) (*time.Time, error)
	DeleteSignals(ctx context.Context, f signal.Filter) (int64, error)
	DeleteOldSignals(ctx context.Context, maxAge time.Duration) (int64, error)
	ListPossibleSettings(ctx context.Context, ownerKind signal.TargetKind, ownerID string) ([]*signal.Settings, error)
	PutSettings(ctx context.Context, settings *signal.Settings) error
}

// Scanner triggers a due-date scan on demand, for deployments driven by
// external cron.
type Scanner interface {
	Run(ctx context.Context) (*duedate.Report, error)
}

// ErrorResponse represents an error in problem+json format
type ErrorResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// SettingsRequest is the body of a settings update.
type SettingsRequest struct {
	Type      string `json:"type"`
	Dashboard bool   `json:"dashboard"`
	Mail      bool   `json:"mail"`
}

// Handler holds dependencies for API handlers
type Handler struct {
	logger  *zap.Logger
	orch    Orchestrator
	scanner Scanner
}

// NewHandler creates a new API handler
func NewHandler(logger *zap.Logger, orch Orchestrator, scanner Scanner) *Handler {
	return &Handler{
		logger:  logger,
		orch:    orch,
		scanner: scanner,
	}
}

// ListSignals handles GET /v1/signals. The target is required: a dashboard
// only ever lists its own signals.
func (h *Handler) ListSignals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f, ok := h.signalFilter(w, r)
	if !ok {
		return
	}
	page := parsePage(r)

	signals, err := h.orch.ListSignals(ctx, f, &page)
	if err != nil {
		h.logger.Error("failed to list signals", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to list signals", "")
		return
	}
	if signals == nil {
		signals = []*signal.Signal{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":   signals,
		"count":  len(signals),
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

// CountSignals handles GET /v1/signals/count
func (h *Handler) CountSignals(w http.ResponseWriter, r *http.Request) {
	f, ok := h.signalFilter(w, r)
	if !ok {
		return
	}

	count, err := h.orch.CountSignals(r.Context(), f)
	if err != nil {
		h.logger.Error("failed to count signals", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to count signals", "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// LatestSignal handles GET /v1/signals/latest. Dashboards poll this to
// decide whether their signal list is stale.
func (h *Handler) LatestSignal(w http.ResponseWriter, r *http.Request) {
	f, ok := h.signalFilter(w, r)
	if !ok {
		return
	}

	latest, err := h.orch.LatestSignalAt(r.Context(), f)
	if err != nil {
		h.logger.Error("failed to read latest signal time", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to read latest signal time", "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"latest_at": latest})
}

// DeleteSignals handles DELETE /v1/signals
func (h *Handler) DeleteSignals(w http.ResponseWriter, r *http.Request) {
	f, ok := h.signalFilter(w, r)
	if !ok {
		return
	}

	deleted, err := h.orch.DeleteSignals(r.Context(), f)
	if err != nil {
		h.logger.Error("failed to delete signals", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to delete signals", "")
		return
	}

	h.logger.Info("signals deleted",
		zap.String("target_kind", string(f.TargetKind)),
		zap.String("target_id", f.TargetID),
		zap.Int64("deleted", deleted),
	)
	h.writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// ListSettings handles GET /v1/settings/{ownerKind}/{ownerID}. Every type
// that applies to the owner is returned, opted-in or not.
func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	ownerKind, ownerID, ok := h.ownerParams(w, r)
	if !ok {
		return
	}

	settings, err := h.orch.ListPossibleSettings(r.Context(), ownerKind, ownerID)
	if err != nil {
		h.logger.Error("failed to list settings", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to list settings", "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": settings})
}

// PutSettings handles PUT /v1/settings/{ownerKind}/{ownerID}
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	ownerKind, ownerID, ok := h.ownerParams(w, r)
	if !ok {
		return
	}

	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	settings := &signal.Settings{
		Type:      signal.Type(req.Type),
		OwnerKind: ownerKind,
		OwnerID:   ownerID,
		Dashboard: req.Dashboard,
		Mail:      req.Mail,
	}
	if err := h.orch.PutSettings(r.Context(), settings); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid settings", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RunDueDateScan handles POST /internal/scans/due-dates
func (h *Handler) RunDueDateScan(w http.ResponseWriter, r *http.Request) {
	report, err := h.scanner.Run(r.Context())
	if err != nil {
		if errors.Is(err, duedate.ErrScanInProgress) {
			h.writeError(w, http.StatusConflict, "scan_in_progress", "A due-date scan is already running", "")
			return
		}
		h.logger.Error("due-date scan failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "scan_failed", "Due-date scan failed", "")
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// DeleteOldSignals handles DELETE /internal/signals/old
func (h *Handler) DeleteOldSignals(w http.ResponseWriter, r *http.Request) {
	days := 30
	if daysStr := r.URL.Query().Get("max_age_days"); daysStr != "" {
		d, err := strconv.Atoi(daysStr)
		if err != nil || d <= 0 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid max_age_days", "max_age_days must be a positive integer")
			return
		}
		days = d
	}

	deleted, err := h.orch.DeleteOldSignals(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		h.logger.Error("failed to delete old signals", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to delete old signals", "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// signalFilter parses the signal filter from query parameters. A target is
// always required.
func (h *Handler) signalFilter(w http.ResponseWriter, r *http.Request) (signal.Filter, bool) {
	q := r.URL.Query()

	kind, err := parseTargetKind(q.Get("target_kind"))
	if err != nil || q.Get("target_id") == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing or invalid target", "target_kind (user|group) and target_id are required")
		return signal.Filter{}, false
	}

	f := signal.Filter{
		TargetKind:  kind,
		TargetID:    q.Get("target_id"),
		SubjectKind: signal.SubjectKind(strings.ToUpper(q.Get("subject_kind"))),
		SubjectID:   q.Get("subject_id"),
		Detail:      signal.Detail(q.Get("detail")),
	}
	for _, t := range q["type"] {
		typ := signal.Type(strings.ToUpper(t))
		if !typ.Valid() {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid type", "unknown signal type "+t)
			return signal.Filter{}, false
		}
		f.Types = append(f.Types, typ)
	}
	return f, true
}

func (h *Handler) ownerParams(w http.ResponseWriter, r *http.Request) (signal.TargetKind, string, bool) {
	kind, err := parseTargetKind(chi.URLParam(r, "ownerKind"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid owner kind", "owner kind must be user or group")
		return "", "", false
	}
	ownerID := chi.URLParam(r, "ownerID")
	if ownerID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing owner id", "")
		return "", "", false
	}
	return kind, ownerID, true
}

func parseTargetKind(s string) (signal.TargetKind, error) {
	kind := signal.TargetKind(strings.ToUpper(s))
	if !kind.Valid() {
		return "", errors.New("invalid target kind")
	}
	return kind, nil
}

func parsePage(r *http.Request) signal.Page {
	page := signal.Page{Limit: 50}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			page.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			page.Offset = o
		}
	}
	return page
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
