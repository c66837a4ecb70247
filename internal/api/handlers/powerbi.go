package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nikhilbhutani/reportportal/internal/auth"
	"github.com/nikhilbhutani/reportportal/internal/powerbi"
)

type EmbedService interface {
	GetEmbedConfig(ctx context.Context, viewer powerbi.Viewer, opts powerbi.EmbedOptions) (*powerbi.EmbedConfig, error)
	GetReportPages(ctx context.Context) []powerbi.ReportPage
	CheckAPIStatus(ctx context.Context) bool
}

type PowerBIHandler struct {
	svc EmbedService
}

func NewPowerBIHandler(svc EmbedService) *PowerBIHandler {
	return &PowerBIHandler{svc: svc}
}

func viewerFor(r *http.Request) powerbi.Viewer {
	if u := auth.UserFromContext(r.Context()); u != nil {
		return powerbi.UserViewer(u.ID)
	}
	return powerbi.Guest()
}

// Dashboard returns the embed configuration for the current viewer. The
// presence of a refresh query parameter bypasses the cache. Failures are
// reported in the body so the page can still render its fallback.
func (h *PowerBIHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	_, refresh := r.URL.Query()["refresh"]

	cfg, err := h.svc.GetEmbedConfig(r.Context(), viewerFor(r), powerbi.EmbedOptions{ForceRefresh: refresh})
	if err != nil {
		slog.Warn("dashboard embed unavailable", "error", err)
		writeJSON(w, http.StatusOK, powerbi.Unavailable(err))
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *PowerBIHandler) Config(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.GetEmbedConfig(r.Context(), viewerFor(r), powerbi.EmbedOptions{})
	if err != nil {
		slog.Error("failed to build embed config", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *PowerBIHandler) Pages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetReportPages(r.Context()))
}

func (h *PowerBIHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"available":  h.svc.CheckAPIStatus(r.Context()),
		"checked_at": time.Now().UTC(),
	})
}
