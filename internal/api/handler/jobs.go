// Package handler implements the HTTP endpoints of the scan service.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkurosawa/partscan/internal/api/response"
	"github.com/mkurosawa/partscan/internal/export"
	"github.com/mkurosawa/partscan/internal/job"
	"github.com/mkurosawa/partscan/internal/ocr"
	"github.com/mkurosawa/partscan/pkg/models"
)

// maxUploadBytes caps a submission; scanned drawing sets run large.
const maxUploadBytes = 256 << 20

// JobService defines the interface the job handlers depend on.
type JobService interface {
	Submit(ctx context.Context, sub job.Submission) (uuid.UUID, error)
	Status(id uuid.UUID) (models.JobSnapshot, error)
	Results(id uuid.UUID) ([]models.MatchResult, error)
	Failures(id uuid.UUID) ([]models.MatchResult, error)
	Candidates(id uuid.UUID, corrected string) ([]string, string, error)
	Retry(id uuid.UUID) error
}

// NewSubmitJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
// The request is multipart/form-data with a "master" CSV file, one or more
// "documents" files, and an optional "backend" field.
func NewSubmitJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Expected multipart/form-data", nil)
			return
		}

		masterFile, _, err := r.FormFile("master")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"master file is required", nil)
			return
		}
		defer masterFile.Close()
		masterData, err := io.ReadAll(masterFile)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"reading master file failed", nil)
			return
		}

		uploads := r.MultipartForm.File["documents"]
		if len(uploads) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"at least one documents file is required", nil)
			return
		}

		dir, err := os.MkdirTemp("", "partscan-job-*")
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"storing uploads failed", nil)
			return
		}

		docs := make([]job.Document, 0, len(uploads))
		for i, fh := range uploads {
			path := filepath.Join(dir, fmt.Sprintf("doc-%d%s", i, filepath.Ext(fh.Filename)))
			if err := saveUpload(fh, path); err != nil {
				_ = os.RemoveAll(dir)
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"storing uploads failed", nil)
				return
			}
			docs = append(docs, job.Document{Name: fh.Filename, Path: path})
		}

		// The runner owns dir from here: removed on completion, kept on
		// failure so a retry can re-read the uploads.
		id, err := svc.Submit(r.Context(), job.Submission{
			MasterData: masterData,
			Documents:  docs,
			Backend:    r.FormValue("backend"),
			WorkDir:    dir,
		})
		if err != nil {
			_ = os.RemoveAll(dir)
			switch {
			case errors.Is(err, ocr.ErrUnknownBackend):
				response.Error(w, http.StatusBadRequest, "UNKNOWN_BACKEND",
					"The requested OCR backend is not supported", nil)
			case errors.Is(err, job.ErrNoDocuments):
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"at least one documents file is required", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.Accepted(w, map[string]string{"job_id": id.String()})
	}
}

func saveUpload(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// NewJobStatusHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewJobStatusHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobID(w, r)
		if !ok {
			return
		}
		snap, err := svc.Status(id)
		if err != nil {
			jobError(w, err)
			return
		}
		response.JSON(w, statusResponse(snap))
	}
}

// NewJobResultsHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobID}/results.
func NewJobResultsHandler(svc JobService) http.HandlerFunc {
	return resultsHandler(svc.Results)
}

// NewJobFailuresHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobID}/failures.
func NewJobFailuresHandler(svc JobService) http.HandlerFunc {
	return resultsHandler(svc.Failures)
}

func resultsHandler(fetch func(uuid.UUID) ([]models.MatchResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobID(w, r)
		if !ok {
			return
		}
		results, err := fetch(id)
		if err != nil {
			jobError(w, err)
			return
		}
		if results == nil {
			results = []models.MatchResult{}
		}
		response.JSON(w, results)
	}
}

// NewRetryJobHandler returns an http.HandlerFunc for
// POST /api/v1/jobs/{jobID}/retry.
func NewRetryJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobID(w, r)
		if !ok {
			return
		}
		if err := svc.Retry(id); err != nil {
			jobError(w, err)
			return
		}
		response.Accepted(w, map[string]string{"job_id": id.String()})
	}
}

// NewCandidatesHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobID}/candidates?token=…. It ranks master part numbers
// against an operator-corrected token.
func NewCandidatesHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobID(w, r)
		if !ok {
			return
		}
		corrected := r.URL.Query().Get("token")
		if corrected == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"token query parameter is required", nil)
			return
		}
		ids, reason, err := svc.Candidates(id, corrected)
		if err != nil {
			jobError(w, err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		resp := candidatesResponse{Candidates: ids, Reason: reason}
		response.JSON(w, resp)
	}
}

type candidatesResponse struct {
	Candidates []string `json:"candidates"`
	Reason     string   `json:"reason,omitempty"`
}

// NewDownloadHandler returns an http.HandlerFunc for
// GET /api/v1/jobs/{jobID}/download?kind=results|failures&format=csv|xlsx.
func NewDownloadHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobID(w, r)
		if !ok {
			return
		}

		kind := r.URL.Query().Get("kind")
		if kind == "" {
			kind = "results"
		}
		format := r.URL.Query().Get("format")
		if format == "" {
			format = export.FormatCSV
		}

		var (
			rows []models.MatchResult
			err  error
		)
		switch kind {
		case "results":
			rows, err = svc.Results(id)
		case "failures":
			rows, err = svc.Failures(id)
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"kind must be results or failures", nil)
			return
		}
		if err != nil {
			jobError(w, err)
			return
		}

		filename := fmt.Sprintf("%s-%s.%s", kind, id, format)
		switch format {
		case export.FormatCSV:
			var body []byte
			if kind == "failures" {
				body, err = export.FailuresCSV(rows)
			} else {
				body, err = export.ResultsCSV(rows)
			}
			if err != nil {
				jobError(w, err)
				return
			}
			response.Attachment(w, "text/csv; charset=utf-8", filename, body)
		case export.FormatXLSX:
			var body []byte
			if kind == "failures" {
				body, err = export.FailuresXLSX(rows)
			} else {
				body, err = export.ResultsXLSX(rows)
			}
			if err != nil {
				jobError(w, err)
				return
			}
			response.Attachment(w,
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				filename, body)
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"format must be csv or xlsx", nil)
		}
	}
}

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_JOB_ID",
			"jobID must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func jobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, job.ErrNotFound):
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "No such job", nil)
	case errors.Is(err, job.ErrNotCompleted):
		response.Error(w, http.StatusConflict, "JOB_NOT_COMPLETED",
			"The job has not completed yet", nil)
	case errors.Is(err, job.ErrNotRetryable):
		response.Error(w, http.StatusConflict, "JOB_NOT_RETRYABLE",
			"Only failed jobs can be retried", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

type jobStatusResponse struct {
	ID               string               `json:"id"`
	Status           string               `json:"status"`
	Error            string               `json:"error,omitempty"`
	Progress         int                  `json:"progress"`
	Pages            int                  `json:"pages"`
	PagesDone        int                  `json:"pages_done"`
	Totals           models.Totals        `json:"totals"`
	BackendRequested string               `json:"backend_requested"`
	BackendUsed      string               `json:"backend_used,omitempty"`
	PageFailures     []models.PageFailure `json:"page_failures,omitempty"`
	CreatedAt        string               `json:"created_at"`
}

func statusResponse(snap models.JobSnapshot) jobStatusResponse {
	return jobStatusResponse{
		ID:               snap.ID.String(),
		Status:           snap.Status,
		Error:            snap.Error,
		Progress:         snap.Progress,
		Pages:            snap.Pages,
		PagesDone:        snap.PagesDone,
		Totals:           snap.Totals,
		BackendRequested: snap.BackendRequested,
		BackendUsed:      snap.BackendUsed,
		PageFailures:     snap.PageFailures,
		CreatedAt:        snap.CreatedAt.UTC().Format(time.RFC3339),
	}
}
