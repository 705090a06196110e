package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skaul-dev/billextract/constants"
	"github.com/skaul-dev/billextract/internal/async"
	"github.com/skaul-dev/billextract/internal/common"
	"github.com/skaul-dev/billextract/internal/entity"
)

type extractRequest struct {
	Source string `json:"source"` // local path or http(s) URL
	Engine string `json:"engine"` // empty picks the configured default
	Async  bool   `json:"async"`
}

type extractResponse struct {
	JobID      uuid.UUID          `json:"job_id"`
	Status     string             `json:"status"`
	Data       *entity.Document   `json:"data,omitempty"`
	TokenUsage *entity.TokenUsage `json:"token_usage,omitempty"`
}

// handleExtract accepts either a JSON body naming a source, or a multipart
// upload with the document in the "file" field. With async=true the request
// returns 202 and the job runs on the queue.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeExtractRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if _, err := s.processor.Engine(req.Engine); err != nil {
		s.respondError(w, r, err)
		return
	}

	job, err := s.jobs.Create(r.Context(), req.Source, req.Engine)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if req.Async {
		if err := s.queue.Enqueue(r.Context(), async.Job{
			JobID:       job.ID,
			Source:      req.Source,
			Engine:      req.Engine,
			SubmittedAt: time.Now(),
		}); err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusAccepted, extractResponse{JobID: job.ID, Status: job.Status})
		return
	}

	if err := s.processor.RunJob(r.Context(), job.ID, req.Source, req.Engine); err != nil {
		s.respondError(w, r, err)
		return
	}
	done, err := s.jobs.GetByID(r.Context(), job.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var doc entity.Document
	if err := json.Unmarshal(done.ResultJSON, &doc); err != nil {
		s.respondError(w, r, fmt.Errorf("decode stored result: %w", err))
		return
	}
	s.respondJSON(w, http.StatusOK, extractResponse{
		JobID:  done.ID,
		Status: done.Status,
		Data:   &doc,
		TokenUsage: &entity.TokenUsage{
			TotalTokens:  done.TotalTokens,
			InputTokens:  done.InputTokens,
			OutputTokens: done.OutputTokens,
		},
	})
}

func (s *Server) decodeExtractRequest(r *http.Request) (extractRequest, error) {
	var req extractRequest

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		path, err := s.stageUpload(r)
		if err != nil {
			return req, err
		}
		req.Source = path
		req.Engine = r.FormValue("engine")
		req.Async = r.FormValue("async") == "true"
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("decode request body: %w: %w", common.ErrInvalidInput, err)
		}
	}

	if r.URL.Query().Get("async") == "true" {
		req.Async = true
	}
	if strings.TrimSpace(req.Source) == "" {
		return req, fmt.Errorf("source is required: %w", common.ErrInvalidInput)
	}
	return req, nil
}

// stageUpload writes the uploaded document under UploadDir and returns its
// path. Staged files outlive the request so queued jobs can read them; the
// retention janitor prunes the directory.
func (s *Server) stageUpload(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return "", fmt.Errorf("parse multipart form: %w: %w", common.ErrInvalidInput, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", fmt.Errorf("missing file field: %w: %w", common.ErrInvalidInput, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.Warn("http.upload.close_failed", "error", err)
		}
	}()

	ext := constants.NormalizeExt(filepath.Ext(header.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return "", fmt.Errorf("unsupported extension %q: %w", ext, common.ErrInvalidInput)
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("upload dir: %w", err)
	}
	dst, err := os.CreateTemp(s.cfg.UploadDir, "upload-*."+ext)
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	return dst.Name(), nil
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("invalid job id: %w", common.ErrInvalidInput))
		return
	}
	job, err := s.jobs.GetByID(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, r, fmt.Errorf("invalid limit %q: %w", v, common.ErrInvalidInput))
			return
		}
		limit = n
	}
	jobs, err := s.jobs.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*entity.ExtractionJob{}
	}
	s.respondJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleExportJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("invalid job id: %w", common.ErrInvalidInput))
		return
	}
	job, err := s.jobs.GetByID(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if job.Status != string(constants.JobStatusOK) || len(job.ResultJSON) == 0 {
		s.respondError(w, r, fmt.Errorf("job %s has no result (status %s): %w", id, job.Status, common.ErrInvalidInput))
		return
	}

	var doc entity.Document
	if err := json.Unmarshal(job.ResultJSON, &doc); err != nil {
		s.respondError(w, r, fmt.Errorf("decode stored result: %w", err))
		return
	}
	b, err := s.exporter.BillItemsXLSX(doc)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "bill-"+id.String()+".xlsx"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		s.logger.Error("http.export.write_failed", "job_id", id, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
