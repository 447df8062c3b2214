package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/services/recommend"
)

// handleMarksheet reads an uploaded marksheet and, when a stream is given,
// recommends colleges for the final score.
func (s *Server) handleMarksheet(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	board := strings.TrimSpace(r.FormValue("board"))
	stream := strings.TrimSpace(r.FormValue("stream"))

	var entrance *int
	if raw := strings.TrimSpace(r.FormValue("entrance_marks")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 100 {
			s.writeError(w, r, common.InvalidArgumentError("entrance_marks must be an integer between 0 and 100"))
			return
		}
		entrance = &n
	}

	res, err := s.svc.Pipeline.Marksheet(r.Context(), doc, entrance)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := map[string]any{
		"detected_marks": res.DetectedMarks,
		"entrance_marks": res.EntranceMarks,
		"final_marks":    res.FinalMarks,
		"format":         res.Text.Format,
		"provenance":     res.Text.Provenance,
		"warnings":       res.Text.Warnings,
		"board":          board,
		"stream":         stream,
	}
	if stream != "" {
		colleges, cached, err := s.svc.Recommend.Colleges(r.Context(), common.UserIDFromContext(r.Context()), res.FinalMarks, board, stream)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp["colleges"] = colleges["colleges"]
		resp["cached"] = cached
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleResume parses an uploaded resume and suggests companies for it.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Pipeline.Resume(r.Context(), doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	profile := s.svc.Recommend.ParseResume(r.Context(), res.Text.Text)
	q := recommend.CompanyQuery{
		Skills:    stringList(profile["skills"]),
		Stream:    strings.TrimSpace(r.FormValue("stream")),
		Institute: strings.TrimSpace(r.FormValue("institute")),
		Location:  strings.TrimSpace(r.FormValue("location")),
	}
	if cgpa, ok := profile["cgpa"].(float64); ok {
		q.CGPA = &cgpa
	}
	companies, err := s.svc.Recommend.Companies(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile":    profile,
		"heuristics": res.Profile,
		"provenance": res.Text.Provenance,
		"companies":  companies["companies"],
	})
}

// stringList keeps the string elements of a decoded JSON list.
func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
