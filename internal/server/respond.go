package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"google.golang.org/grpc/codes"

	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/ocr"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	body := errorBody{
		Error:     common.Code(err).String(),
		Message:   common.Message(err),
		RequestID: common.RequestIDFromContext(r.Context()),
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
		body.Error = codes.ResourceExhausted.String()
		body.Message = fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("http.request.failed", "request_id", body.RequestID, "path", r.URL.Path, "error", err)
		if common.Code(err) == codes.Internal {
			body.Message = "internal error"
		}
	} else {
		s.logger.Warn("http.request.rejected", "request_id", body.RequestID, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return common.InvalidArgumentErrorf("invalid JSON body: %v", err)
}

// readUpload reads the multipart "file" field into a document.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (ocr.RawDocument, error) {
	if r.ContentLength > s.maxUploadBytes {
		return ocr.RawDocument{}, &http.MaxBytesError{Limit: s.maxUploadBytes}
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ocr.RawDocument{}, err
		}
		return ocr.RawDocument{}, common.InvalidArgumentErrorf("invalid multipart form: %v", err)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return ocr.RawDocument{}, common.InvalidArgumentError("file is required")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return ocr.RawDocument{}, fmt.Errorf("read upload: %w", err)
	}
	return ocr.RawDocument{Name: hdr.Filename, Ext: filepath.Ext(hdr.Filename), Data: data}, nil
}
