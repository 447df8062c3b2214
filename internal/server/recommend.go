package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/services/recommend"
)

func (s *Server) handleColleges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	marks, err := strconv.Atoi(strings.TrimSpace(q.Get("marks")))
	if err != nil {
		s.writeError(w, r, common.InvalidArgumentError("marks must be an integer"))
		return
	}
	payload, cached, err := s.svc.Recommend.Colleges(r.Context(), common.UserIDFromContext(r.Context()), marks, q.Get("board"), q.Get("stream"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"marks":    marks,
		"stream":   q.Get("stream"),
		"colleges": payload["colleges"],
		"cached":   cached,
	})
}

type companiesRequest struct {
	Skills    []string `json:"skills"`
	CGPA      *float64 `json:"cgpa"`
	Stream    string   `json:"stream"`
	Institute string   `json:"institute"`
	Location  string   `json:"location"`
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	var req companiesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	payload, err := s.svc.Recommend.Companies(r.Context(), recommend.CompanyQuery(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payload, err := s.svc.Recommend.Courses(r.Context(), q.Get("college"), q.Get("preference"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"college":    q.Get("college"),
		"preference": q.Get("preference"),
		"courses":    payload["courses"],
	})
}

func (s *Server) handleNSQF(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payload, err := s.svc.Recommend.NSQF(r.Context(), q.Get("tier"), q.Get("goal"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
