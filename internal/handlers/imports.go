package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/audit"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/httpx"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/middleware"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/points"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/spreadsheet"
)

const (
	defaultImportListLimit = 50
	maxImportListLimit     = 200
	multipartMemory        = 32 << 20
)

// importTemplate is served as the downloadable example file.
const importTemplate = "documentId,Nome,Email,Pontos\n" +
	"123.456.789-09,Maria Silva,maria@example.com,150\n" +
	"987.654.321-00,Joao Souza,joao@example.com,80\n"

func (s *Server) PostOrganizationImports(w http.ResponseWriter, r *http.Request) {
	actor, userID, ok := requireActor(w, r)
	if !ok {
		return
	}
	organizationID, ok := bindUUIDParam(w, r, "organizationId")
	if !ok {
		return
	}

	if _, err := s.Orgs.GetOrganizationByID(r.Context(), organizationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.WriteError(w, r, http.StatusNotFound, "organization_not_found", "Organization not found", nil)
			return
		}
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load organization", nil)
		return
	}

	upload, appErr := readImportUpload(r)
	if appErr != nil {
		s.auditImportRejected(r, actor, userID, organizationID, upload.FileName, appErr.Code)
		httpx.WriteErr(w, r, appErr)
		return
	}
	upload.OrganizationID = organizationID
	upload.ActorID = userID

	_ = s.Audit.Log(r.Context(), audit.Entry{
		OrganizationID: &organizationID,
		UserID:         &userID,
		Action:         audit.ActionPointsImportStarted,
		EntityType:     "import_job",
		RequestID:      httpx.RequestIDFromContext(r.Context()),
		Metadata:       map[string]any{"fileName": upload.FileName, "bytes": len(upload.Data)},
	})

	// A client disconnect must not stop a run that is already crediting accounts.
	outcome, err := s.Importer.Import(context.WithoutCancel(r.Context()), upload)
	if err != nil {
		appErr := mapImportError(err, outcome)
		if appErr.Status >= http.StatusInternalServerError {
			s.Logger.Error("points import failed",
				"organization_id", organizationID,
				"import_job_id", outcome.JobID,
				"error", err,
			)
		}
		if outcome.JobID == uuid.Nil {
			s.auditImportRejected(r, actor, userID, organizationID, upload.FileName, appErr.Code)
		} else {
			s.auditImportFinished(r, userID, organizationID, outcome)
		}
		httpx.WriteErr(w, r, appErr)
		return
	}

	s.auditImportFinished(r, userID, organizationID, outcome)

	httpx.WriteJSON(w, http.StatusOK, importResponse{
		Success:     outcome.Result.Success,
		ImportJobID: outcome.JobID,
		Status:      outcome.Status,
		Result:      normalizeResult(outcome.Result),
		Message:     importMessage(outcome),
	})
}

func (s *Server) GetOrganizationImports(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := bindUUIDParam(w, r, "organizationId")
	if !ok {
		return
	}

	limit := defaultImportListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", "limit must be a positive integer", nil)
			return
		}
		limit = min(parsed, maxImportListLimit)
	}

	jobs, err := s.Jobs.ListJobs(r.Context(), organizationID, limit)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to list import jobs", nil)
		return
	}

	items := make([]importJobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, mapImportJob(job))
	}
	httpx.WriteJSON(w, http.StatusOK, importJobListResponse{Items: items})
}

func (s *Server) GetOrganizationImport(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadImportJob(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapImportJob(job))
}

func (s *Server) GetOrganizationImportErrorsCsv(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadImportJob(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	_ = writer.Write([]string{"row", "cpf", "error"})
	for _, rowErr := range job.ErrorDetails {
		row := ""
		if rowErr.Row > 0 {
			row = strconv.Itoa(rowErr.Row)
		}
		_ = writer.Write([]string{row, rowErr.DocumentID, rowErr.Error})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to build CSV", nil)
		return
	}

	httpx.WriteCSV(w, fmt.Sprintf("import-%s-errors.csv", job.ID), buf.Bytes())
}

func (s *Server) GetImportTemplateCsv(w http.ResponseWriter, r *http.Request) {
	httpx.WriteCSV(w, "points-import-template.csv", []byte(importTemplate))
}

func (s *Server) loadImportJob(w http.ResponseWriter, r *http.Request) (points.Job, bool) {
	organizationID, ok := bindUUIDParam(w, r, "organizationId")
	if !ok {
		return points.Job{}, false
	}
	jobID, ok := bindUUIDParam(w, r, "importJobId")
	if !ok {
		return points.Job{}, false
	}

	job, err := s.Jobs.GetJob(r.Context(), organizationID, jobID)
	if err != nil {
		if errors.Is(err, points.ErrJobNotFound) {
			httpx.WriteError(w, r, http.StatusNotFound, "import_job_not_found", "Import job not found", nil)
			return points.Job{}, false
		}
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load import job", nil)
		return points.Job{}, false
	}
	return job, true
}

// readImportUpload returns the file name even on failure so rejections can
// be audited.
func readImportUpload(r *http.Request) (points.Upload, *httpx.Error) {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return points.Upload{}, httpx.BadRequest("invalid_content_type", "Content-Type must be multipart/form-data")
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return points.Upload{}, httpx.BadRequest("file_too_large", "File exceeds the maximum upload size")
		}
		return points.Upload{}, httpx.BadRequest("invalid_multipart", "Failed to parse multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return points.Upload{}, httpx.BadRequest("missing_file", "file is required")
	}
	defer file.Close()

	up := points.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}
	if !acceptedUpload(up.FileName, up.ContentType) {
		return up, httpx.BadRequest("unsupported_file_type", "Only CSV and Excel files are accepted")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return up, httpx.BadRequest("invalid_multipart", "Failed to read uploaded file")
	}
	up.Data = data
	return up, nil
}

var (
	uploadExtensions = map[string]bool{".csv": true, ".xls": true, ".xlsx": true}
	uploadMediaTypes = map[string]bool{
		"text/csv":                 true,
		"application/vnd.ms-excel": true,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	}
)

// acceptedUpload allows CSV and Excel uploads by extension or declared media
// type. The parser itself is more lenient for the CLI.
func acceptedUpload(fileName, contentType string) bool {
	if uploadExtensions[strings.ToLower(filepath.Ext(fileName))] {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && uploadMediaTypes[strings.ToLower(mediaType)]
}

func mapImportError(err error, outcome points.Outcome) *httpx.Error {
	var missing *points.MissingColumnsError
	switch {
	case errors.Is(err, spreadsheet.ErrFileTooLarge):
		return httpx.BadRequest("file_too_large", "File exceeds the maximum upload size")
	case errors.Is(err, spreadsheet.ErrEmptyInput):
		return httpx.BadRequest("empty_file", "Spreadsheet has no rows")
	case errors.Is(err, spreadsheet.ErrUnsupportedFormat):
		return httpx.BadRequest("unsupported_file_type", "File could not be read as CSV or Excel")
	case errors.As(err, &missing):
		return &httpx.Error{
			Status:  http.StatusBadRequest,
			Code:    "missing_columns",
			Message: missing.Error(),
			Details: map[string]any{"missing": missing.Missing},
		}
	case errors.Is(err, points.ErrNoValidRecords):
		return httpx.BadRequest("no_valid_records", "No valid records found in the spreadsheet")
	case errors.Is(err, points.ErrTooManyRecords):
		return httpx.BadRequest("too_many_records", err.Error())
	case errors.Is(err, points.ErrDuplicateImport):
		return &httpx.Error{Status: http.StatusConflict, Code: "duplicate_import", Message: "This file was already imported for the organization"}
	case outcome.JobID != uuid.Nil:
		return &httpx.Error{
			Status:  http.StatusInternalServerError,
			Code:    "import_failed",
			Message: "Import stopped before all records were processed",
			Details: map[string]any{
				"importJobId": outcome.JobID,
				"result":      normalizeResult(outcome.Result),
			},
		}
	default:
		return &httpx.Error{Status: http.StatusInternalServerError, Code: "internal_error", Message: "Failed to import spreadsheet"}
	}
}

func normalizeResult(result points.Result) points.Result {
	if result.Errors == nil {
		result.Errors = []points.RowError{}
	}
	return result
}

func importMessage(outcome points.Outcome) string {
	res := outcome.Result
	switch outcome.Status {
	case points.JobCompleted:
		return fmt.Sprintf("Import completed: %d of %d records credited", res.SuccessRecords, res.TotalRecords)
	case points.JobPartial:
		return fmt.Sprintf("Import completed with errors: %d credited, %d failed", res.SuccessRecords, res.ErrorRecords)
	default:
		return fmt.Sprintf("Import failed: %d of %d records failed", res.ErrorRecords, res.TotalRecords)
	}
}

func (s *Server) auditImportFinished(r *http.Request, userID, organizationID uuid.UUID, outcome points.Outcome) {
	jobID := outcome.JobID
	_ = s.Audit.Log(r.Context(), audit.Entry{
		OrganizationID: &organizationID,
		UserID:         &userID,
		Action:         audit.ActionPointsImportFinished,
		EntityType:     "import_job",
		EntityID:       &jobID,
		RequestID:      httpx.RequestIDFromContext(r.Context()),
		Metadata: map[string]any{
			"status":         outcome.Status,
			"totalRecords":   outcome.Result.TotalRecords,
			"successRecords": outcome.Result.SuccessRecords,
			"errorRecords":   outcome.Result.ErrorRecords,
		},
	})
}

func (s *Server) auditImportRejected(r *http.Request, actor middleware.Actor, userID, organizationID uuid.UUID, fileName, code string) {
	_ = s.Audit.Log(r.Context(), audit.Entry{
		OrganizationID: &organizationID,
		UserID:         &userID,
		Action:         audit.ActionPointsImportRejected,
		EntityType:     "import_job",
		RequestID:      httpx.RequestIDFromContext(r.Context()),
		Metadata: map[string]any{
			"fileName": fileName,
			"reason":   code,
			"role":     actor.Role,
		},
	})
}

func bindUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", fmt.Sprintf("Invalid format for parameter %s", name), nil)
		return uuid.Nil, false
	}
	return uuid.UUID(id), true
}
