package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/db"
	"github.com/samuelozorio/nextpage-mvp-sub000/internal/points"
)

func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		t.Fatalf("connect test db: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("drop schema: %v", err)
	}
	if err := db.Migrate(ctx, databaseURL, "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func seedOrganization(t *testing.T, ctx context.Context, q *Queries, slug string) Organization {
	t.Helper()
	org, err := q.UpsertOrganization(ctx, UpsertOrganizationParams{Slug: slug, Name: strings.ToUpper(slug)})
	if err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	return org
}

func cheapHash(password string) (string, error) {
	return "plain:" + password, nil
}

func TestSavepointRollsBackOnlyFailingRecord(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	q := New(pool)
	org := seedOrganization(t, ctx, q, "savepoints")
	s := NewPointsStore(pool)

	jobID, err := s.CreateJob(ctx, points.NewJob{OrganizationID: org.ID, FileName: "a.csv", FileSHA256: "abc", TotalRecords: 2})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	var failed, ok error
	err = s.InTx(ctx, func(tx points.Tx) error {
		failed = tx.Savepoint(ctx, func(sp points.Tx) error {
			_, err := sp.CreateAccount(ctx, points.NewAccount{
				OrganizationID: org.ID,
				DocumentID:     "111.222.333-44",
				PasswordHash:   "x",
				Role:           points.RoleClient,
				Points:         -1,
			})
			return err
		})
		ok = tx.Savepoint(ctx, func(sp points.Tx) error {
			acc, err := sp.CreateAccount(ctx, points.NewAccount{
				OrganizationID: org.ID,
				DocumentID:     "555.666.777-88",
				PasswordHash:   "x",
				Role:           points.RoleClient,
				Points:         10,
			})
			if err != nil {
				return err
			}
			return sp.AppendHistory(ctx, points.HistoryEntry{AccountID: acc.ID, PointsAdded: 10, Description: points.HistoryDescription, ImportJobID: jobID})
		})
		return nil
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if failed == nil {
		t.Fatalf("expected check constraint violation for negative points")
	}
	if ok != nil {
		t.Fatalf("second record failed: %v", ok)
	}

	if _, err := q.GetUserByDocumentID(ctx, "111.222.333-44"); err == nil {
		t.Fatalf("failed record should not be persisted")
	}
	user, err := q.GetUserByDocumentID(ctx, "555.666.777-88")
	if err != nil {
		t.Fatalf("load credited user: %v", err)
	}
	if user.Points != 10 || user.Role != points.RoleClient || !user.FirstAccess {
		t.Fatalf("unexpected user: %+v", user)
	}
	history, err := q.ListPointsHistoryByImportJob(ctx, jobID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
}

func TestFinalizeJobOnlyOnce(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	org := seedOrganization(t, ctx, New(pool), "finalize")
	s := NewPointsStore(pool)

	jobID, err := s.CreateJob(ctx, points.NewJob{OrganizationID: org.ID, FileName: "a.csv", FileSHA256: "abc", TotalRecords: 1})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	final := points.JobFinal{Status: points.JobPartial, SuccessRecords: 0, ErrorRecords: 1, ErrorDetails: []points.RowError{{Row: 2, DocumentID: "1", Error: "invalid CPF"}}}
	if err := s.FinalizeJob(ctx, jobID, final); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := s.FinalizeJob(ctx, jobID, final); !errors.Is(err, points.ErrJobAlreadyClosed) {
		t.Fatalf("expected ErrJobAlreadyClosed, got %v", err)
	}
	if err := s.FinalizeJob(ctx, uuid.New(), final); !errors.Is(err, points.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}

	job, err := s.GetJob(ctx, org.ID, jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != points.JobPartial || job.CompletedAt == nil || len(job.ErrorDetails) != 1 || job.ErrorDetails[0].Row != 2 {
		t.Fatalf("unexpected job: %+v", job)
	}
	if _, err := s.GetJob(ctx, uuid.New(), jobID); !errors.Is(err, points.ErrJobNotFound) {
		t.Fatalf("expected job to be scoped by organization, got %v", err)
	}
}

func TestImporterAgainstPostgres(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	q := New(pool)
	org := seedOrganization(t, ctx, q, "importer")
	s := NewPointsStore(pool)

	var b strings.Builder
	b.WriteString("CPF,Nome,Email,Pontos\n")
	for i := 1; i <= 25; i++ {
		document := fmt.Sprintf("%03d.456.789-%02d", 100+i, i)
		if i == 15 {
			document = "222.222.222-22"
		}
		fmt.Fprintf(&b, "%s,Cliente %d,cliente%d@example.com,%d\n", document, i, i, i*10)
	}

	importer := points.NewImporter(s, s, points.ImporterConfig{
		RejectDuplicateFiles: true,
		Processor:            points.ProcessorConfig{HashPassword: cheapHash},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	upload := points.Upload{FileName: "pontos.csv", ContentType: "text/csv", Data: []byte(b.String()), OrganizationID: org.ID}
	outcome, err := importer.Import(ctx, upload)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.Status != points.JobPartial || outcome.Result.SuccessRecords != 24 || outcome.Result.ErrorRecords != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.Result.Errors[0].Row != 16 {
		t.Fatalf("expected failing row 16, got %d", outcome.Result.Errors[0].Row)
	}

	user, err := q.GetUserByDocumentID(ctx, "101.456.789-01")
	if err != nil {
		t.Fatalf("load imported user: %v", err)
	}
	if user.Points != 10 || user.PasswordHash != "plain:678901" {
		t.Fatalf("unexpected imported user: %+v", user)
	}

	history, err := q.ListPointsHistoryByImportJob(ctx, outcome.JobID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 24 {
		t.Fatalf("expected 24 history entries, got %d", len(history))
	}

	if _, err := importer.Import(ctx, upload); !errors.Is(err, points.ErrDuplicateImport) {
		t.Fatalf("expected duplicate import to be rejected, got %v", err)
	}
}
