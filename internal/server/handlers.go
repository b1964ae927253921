package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"dlscan/internal"
	"dlscan/internal/pipeline"
	"dlscan/internal/storage"
)

func (s *Server) handleScanLicense(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.HTTPMaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}

	file, header, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		// an empty file input arrives as a plain value
		if _, ok := r.MultipartForm.Value[uploadField]; ok {
			writeError(w, http.StatusBadRequest, "No image selected")
			return
		}
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()
	if strings.TrimSpace(header.Filename) == "" {
		writeError(w, http.StatusBadRequest, "No image selected")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}

	res, err := s.scanner.ScanBytes(r.Context(), header.Filename, data, pipeline.SourceHTTP)
	if err != nil {
		s.logger.Error("scan failed", "filename", header.Filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, internal.Response{Status: internal.StatusError, Error: "Failed to process image."})
		return
	}
	s.writeOutcome(w, res)
}

type resolveRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, internal.Response{Status: internal.StatusError, Error: "invalid request body"})
		return
	}

	res, err := s.scanner.ResolveText(r.Context(), req.Text, pipeline.SourceHTTP)
	if err != nil {
		s.logger.Error("resolve failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, internal.Response{Status: internal.StatusError, Error: "Failed to process text."})
		return
	}
	s.writeOutcome(w, res)
}

// writeOutcome answers 400 for ocr_fail and 200 otherwise.
func (s *Server) writeOutcome(w http.ResponseWriter, res pipeline.ScanResult) {
	resp := res.Outcome.Response()
	status := http.StatusOK
	if resp.Status == internal.StatusOCRFail {
		status = http.StatusBadRequest
	}
	w.Header().Set("X-Scan-Id", res.ID)
	writeJSON(w, status, resp)
}

type reloadResponse struct {
	Status  string `json:"status"`
	Source  string `json:"source,omitempty"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ds, err := s.store.Reload(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, reloadResponse{Status: internal.StatusError, Records: s.store.Current().Len(), Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Status: "ok", Source: ds.Source, Records: ds.Len()})
}

type scanResponse struct {
	ID                string         `json:"id"`
	Source            string         `json:"source"`
	Status            string         `json:"status"`
	Cause             string         `json:"cause,omitempty"`
	Candidate         *string        `json:"candidate,omitempty"`
	Score             *int           `json:"score,omitempty"`
	MatchedIdentifier *string        `json:"matched_identifier,omitempty"`
	ParsedData        map[string]any `json:"parsed_data,omitempty"`
	Error             *string        `json:"error,omitempty"`
	DurationMs        int64          `json:"duration_ms"`
	CreatedAt         string         `json:"created_at"`
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusNotFound, "scan history disabled")
		return
	}
	row, err := s.db.GetScan(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrScanNotFound) {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var parsed map[string]any
	_ = json.Unmarshal([]byte(row.ParsedJSON), &parsed)
	writeJSON(w, http.StatusOK, scanResponse{
		ID:                row.ID,
		Source:            row.Source,
		Status:            row.Status,
		Cause:             row.Cause,
		Candidate:         row.Candidate,
		Score:             row.Score,
		MatchedIdentifier: row.MatchedIdentifier,
		ParsedData:        parsed,
		Error:             row.Error,
		DurationMs:        row.DurationMs,
		CreatedAt:         row.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Current()
	body := map[string]any{"status": "ok", "records": ds.Len()}
	if ds != nil {
		body["source"] = ds.Source
		body["loaded_at"] = ds.LoadedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	writeJSON(w, http.StatusOK, body)
}
