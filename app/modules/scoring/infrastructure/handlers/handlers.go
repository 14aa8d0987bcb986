package scoringhandlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	scoringservice "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/application"
	"github.com/go-chi/chi/v5"
)

// ScoringHandlers implements Handlers.
type ScoringHandlers struct {
	service scoringservice.Service
	logger  *slog.Logger
}

// NewScoringHandlers creates the scoring handlers.
func NewScoringHandlers(service scoringservice.Service, logger *slog.Logger) Handlers {
	return &ScoringHandlers{service: service, logger: logger}
}

// HandleFlags returns the team -> flags map.
func (h *ScoringHandlers) HandleFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := h.service.ComputeFlags(r.Context())
	if err != nil {
		h.serverError(w, r, "Failed to compute flags", err)
		return
	}
	h.writeJSON(w, r, flags)
}

func (h *ScoringHandlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := h.service.Segments(r.Context())
	if err != nil {
		h.serverError(w, r, "Failed to list segments", err)
		return
	}
	h.writeJSON(w, r, segments)
}

func (h *ScoringHandlers) HandleSegmentOutcomes(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.service.SegmentOutcomes(r.Context())
	if err != nil {
		h.serverError(w, r, "Failed to score segments", err)
		return
	}
	h.writeJSON(w, r, outcomes)
}

// HandleSegmentLeaderboard returns best times on the segment named by the
// segmentID path parameter.
func (h *ScoringHandlers) HandleSegmentLeaderboard(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "segmentID")
	segmentID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "segment id must be an integer", http.StatusBadRequest)
		return
	}

	efforts, err := h.service.SegmentLeaderboard(r.Context(), segmentID)
	if err != nil {
		if errors.Is(err, scoringservice.ErrInvalidSegment) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.serverError(w, r, "Failed to load segment leaderboard", err)
		return
	}

	h.writeJSON(w, r, map[string]any{
		"segment_id": segmentID,
		"efforts":    efforts,
	})
}

// HandleFlagsChart renders the flags bar chart as PNG.
func (h *ScoringHandlers) HandleFlagsChart(w http.ResponseWriter, r *http.Request) {
	standings, err := h.service.Standings(r.Context())
	if err != nil {
		h.serverError(w, r, "Failed to compute standings", err)
		return
	}
	png, err := scoringservice.RenderFlagsChart(standings.Teams, standings.Flags)
	if err != nil {
		h.serverError(w, r, "Failed to render flags chart", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// HandleExport streams the standings workbook.
func (h *ScoringHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	standings, err := h.service.Standings(r.Context())
	if err != nil {
		h.serverError(w, r, "Failed to compute standings", err)
		return
	}
	workbook, err := scoringservice.ExportStandings(standings)
	if err != nil {
		h.serverError(w, r, "Failed to build standings workbook", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="standings.xlsx"`)
	w.Write(workbook)
}

func (h *ScoringHandlers) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to write response", slog.Any("error", err))
	}
}

func (h *ScoringHandlers) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
