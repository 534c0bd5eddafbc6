package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/points"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/store"
)

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"fullName"`
	Role     string    `json:"role"`
}

type organizationResponse struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

type authSessionResponse struct {
	User         userResponse          `json:"user"`
	Organization *organizationResponse `json:"organization,omitempty"`
	FirstAccess  bool                  `json:"firstAccess"`
}

type importResponse struct {
	Success     bool             `json:"success"`
	ImportJobID uuid.UUID        `json:"importJobId"`
	Status      points.JobStatus `json:"status"`
	Result      points.Result    `json:"result"`
	Message     string           `json:"message"`
}

type importJobResponse struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID uuid.UUID         `json:"organizationId"`
	FileName       string            `json:"fileName"`
	FileSHA256     string            `json:"fileSha256"`
	TotalRecords   int               `json:"totalRecords"`
	SuccessRecords int               `json:"successRecords"`
	ErrorRecords   int               `json:"errorRecords"`
	Status         points.JobStatus  `json:"status"`
	ErrorDetails   []points.RowError `json:"errorDetails"`
	ImportedBy     *uuid.UUID        `json:"importedBy,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
}

type importJobListResponse struct {
	Items []importJobResponse `json:"items"`
}

func mapUser(u store.User) userResponse {
	resp := userResponse{ID: u.ID, FullName: u.FullName, Role: u.Role}
	if u.Email != nil {
		resp.Email = *u.Email
	}
	return resp
}

func mapImportJob(job points.Job) importJobResponse {
	resp := importJobResponse{
		ID:             job.ID,
		OrganizationID: job.OrganizationID,
		FileName:       job.FileName,
		FileSHA256:     job.FileSHA256,
		TotalRecords:   job.TotalRecords,
		SuccessRecords: job.SuccessRecords,
		ErrorRecords:   job.ErrorRecords,
		Status:         job.Status,
		ErrorDetails:   job.ErrorDetails,
		CreatedAt:      job.CreatedAt.UTC(),
	}
	if resp.ErrorDetails == nil {
		resp.ErrorDetails = []points.RowError{}
	}
	if job.ImportedBy != uuid.Nil {
		importedBy := job.ImportedBy
		resp.ImportedBy = &importedBy
	}
	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.UTC()
		resp.CompletedAt = &completedAt
	}
	return resp
}
