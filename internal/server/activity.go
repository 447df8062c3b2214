package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/guidify/internal/activity"
	"github.com/joseph-ayodele/guidify/internal/common"
)

type eventRequest struct {
	Weight *int `json:"weight"`
}

type tasksRequest struct {
	Roadmap map[string]any `json:"roadmap"`
}

type completeStepRequest struct {
	StepIndex *int `json:"step_index"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Activity.Login(r.Context(), common.UserIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleEvent logs one weighted activity; the weight defaults to 1.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	weight := 1
	if req.Weight != nil {
		weight = *req.Weight
	}
	rec, err := s.svc.Activity.LogEvent(r.Context(), common.UserIDFromContext(r.Context()), weight)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	var req tasksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	score, err := s.svc.Activity.CompleteTasks(r.Context(), common.UserIDFromContext(r.Context()), req.Roadmap)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"career_readiness_score": score})
}

func (s *Server) handleCompleteStep(w http.ResponseWriter, r *http.Request) {
	var req completeStepRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.StepIndex == nil {
		s.writeError(w, r, common.InvalidArgumentError("step_index is required"))
		return
	}
	roadmap, err := s.svc.Activity.CompleteStep(r.Context(), common.UserIDFromContext(r.Context()), *req.StepIndex)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roadmap": roadmap})
}

// handleExport returns the caller's heatmap as an XLSX workbook, optionally
// restricted to from/to (YYYY-MM-DD).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDate(q.Get("from"), "from")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := parseDate(q.Get("to"), "to")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	uid := common.UserIDFromContext(r.Context())
	xlsx, err := s.svc.Export.ExportHeatmapXLSX(r.Context(), uid, from, to)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "user_id", uid, "err", err)
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="activity.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}

func parseDate(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(activity.DateLayout, raw)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("%s must be YYYY-MM-DD", field)
	}
	return &t, nil
}
