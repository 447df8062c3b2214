package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/services/career"
)

type roadmapRequest struct {
	CurrentSubjects   string `json:"current_subjects"`
	TargetCareer      string `json:"target_career"`
	CurrentLevel      string `json:"current_level"`
	AvailabilityHours string `json:"availability_hours"`
}

func (req roadmapRequest) toService(userID string) career.RoadmapRequest {
	return career.RoadmapRequest{
		UserID:            userID,
		Stream:            req.CurrentSubjects,
		Career:            req.TargetCareer,
		Level:             req.CurrentLevel,
		AvailabilityHours: req.AvailabilityHours,
	}
}

func (s *Server) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	var req roadmapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	roadmap, fallback, err := s.svc.Career.Roadmap(r.Context(), req.toService(common.UserIDFromContext(r.Context())))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roadmap": roadmap, "fallback": fallback})
}

// handleRoadmapStream relays generated roadmap text as server-sent events.
// A failure after the first event is reported as an "error" event.
func (s *Server) handleRoadmapStream(w http.ResponseWriter, r *http.Request) {
	var req roadmapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	flusher, _ := w.(http.Flusher)
	started := false

	err := s.svc.Career.StreamRoadmap(r.Context(), req.toService(common.UserIDFromContext(r.Context())), func(chunk string) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := writeEvent(w, "", chunk); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	switch {
	case err != nil && !started:
		s.writeError(w, r, err)
	case err != nil:
		s.logger.Warn("http.roadmap.stream_aborted", "request_id", common.RequestIDFromContext(r.Context()), "error", err)
		_ = writeEvent(w, "error", common.Message(err))
	default:
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
		}
		_ = writeEvent(w, "", "[DONE]")
	}
	if flusher != nil {
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, event, data string) error {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	_, err := w.Write([]byte(b.String()))
	return err
}
