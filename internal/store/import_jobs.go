package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const importJobColumns = `id, organization_id, file_name, file_sha256, total_records, success_records, error_records, status, error_details, imported_by, created_at, updated_at, completed_at`

func scanImportJob(row pgx.Row) (ImportJob, error) {
	var j ImportJob
	err := row.Scan(
		&j.ID,
		&j.OrganizationID,
		&j.FileName,
		&j.FileSha256,
		&j.TotalRecords,
		&j.SuccessRecords,
		&j.ErrorRecords,
		&j.Status,
		&j.ErrorDetails,
		&j.ImportedBy,
		&j.CreatedAt,
		&j.UpdatedAt,
		&j.CompletedAt,
	)
	return j, err
}

type CreateImportJobParams struct {
	OrganizationID uuid.UUID
	FileName       string
	FileSha256     string
	TotalRecords   int32
	ImportedBy     *uuid.UUID
}

func (q *Queries) CreateImportJob(ctx context.Context, arg CreateImportJobParams) (ImportJob, error) {
	return scanImportJob(q.db.QueryRow(ctx, `
		INSERT INTO import_jobs (organization_id, file_name, file_sha256, total_records, status, imported_by)
		VALUES ($1, $2, $3, $4, 'PROCESSING', $5)
		RETURNING `+importJobColumns,
		arg.OrganizationID,
		arg.FileName,
		arg.FileSha256,
		arg.TotalRecords,
		arg.ImportedBy,
	))
}

type CompleteImportJobParams struct {
	ID             uuid.UUID
	Status         string
	SuccessRecords int32
	ErrorRecords   int32
	ErrorDetails   []byte
}

// CompleteImportJob only touches jobs still PROCESSING and reports how many
// rows it changed.
func (q *Queries) CompleteImportJob(ctx context.Context, arg CompleteImportJobParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE import_jobs
		SET status = $2,
			success_records = $3,
			error_records = $4,
			error_details = $5,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status = 'PROCESSING'
	`, arg.ID, arg.Status, arg.SuccessRecords, arg.ErrorRecords, arg.ErrorDetails)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type GetImportJobByIDParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
}

func (q *Queries) GetImportJobByID(ctx context.Context, arg GetImportJobByIDParams) (ImportJob, error) {
	return scanImportJob(q.db.QueryRow(ctx, `
		SELECT `+importJobColumns+`
		FROM import_jobs
		WHERE id = $1 AND organization_id = $2
	`, arg.ID, arg.OrganizationID))
}

func (q *Queries) ImportJobExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM import_jobs WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

type ListImportJobsByOrganizationParams struct {
	OrganizationID uuid.UUID
	LimitRows      int32
}

func (q *Queries) ListImportJobsByOrganization(ctx context.Context, arg ListImportJobsByOrganizationParams) ([]ImportJob, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+importJobColumns+`
		FROM import_jobs
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, arg.OrganizationID, arg.LimitRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []ImportJob
	for rows.Next() {
		j, err := scanImportJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type FindFinishedImportJobByChecksumParams struct {
	OrganizationID uuid.UUID
	FileSha256     string
}

func (q *Queries) FindFinishedImportJobByChecksum(ctx context.Context, arg FindFinishedImportJobByChecksumParams) (ImportJob, error) {
	return scanImportJob(q.db.QueryRow(ctx, `
		SELECT `+importJobColumns+`
		FROM import_jobs
		WHERE organization_id = $1
			AND file_sha256 = $2
			AND status IN ('COMPLETED', 'PARTIAL')
		ORDER BY created_at DESC
		LIMIT 1
	`, arg.OrganizationID, arg.FileSha256))
}
