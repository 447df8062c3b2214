package server

import (
	"net/http"
	"strings"

	"github.com/joseph-ayodele/guidify/internal/common"
)

type adaptiveRequest struct {
	QuestionText      string           `json:"question_text"`
	SelectedOption    map[string]any   `json:"selected_option"`
	PreviousResponses []map[string]any `json:"previous_responses"`
}

type quizRequest struct {
	Profile map[string]any `json:"profile"`
}

type analysisRequest struct {
	AllResponses []map[string]any `json:"all_responses"`
}

func (s *Server) handleBaseline(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"questions": s.svc.Psychometric.Baseline()})
}

// handleAdaptive appends the latest answer to the history and asks for the
// next question.
func (s *Server) handleAdaptive(w http.ResponseWriter, r *http.Request) {
	var req adaptiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	history := append([]map[string]any(nil), req.PreviousResponses...)
	if strings.TrimSpace(req.QuestionText) != "" {
		history = append(history, map[string]any{
			"question_text":   req.QuestionText,
			"selected_option": req.SelectedOption,
		})
	}
	writeJSON(w, http.StatusOK, s.svc.Psychometric.Adaptive(r.Context(), history))
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Psychometric.Quiz(r.Context(), req.Profile))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.AllResponses) == 0 {
		s.writeError(w, r, common.InvalidArgumentError("all_responses is required"))
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Psychometric.Analyze(r.Context(), common.UserIDFromContext(r.Context()), req.AllResponses))
}
