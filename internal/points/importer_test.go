package points

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/spreadsheet"
)

func csvFixture(rows int) []byte {
	var b strings.Builder
	b.WriteString("CPF,Nome,Pontos\n")
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&b, "%03d.456.789-%02d,Cliente %d,%d\n", 100+i, i, i, i*10)
	}
	return []byte(b.String())
}

func newTestImporter(store *memStore, cfg ImporterConfig) *Importer {
	cfg.Processor.HashPassword = fakeHash
	return NewImporter(store, store, cfg, discardLogger())
}

func upload(data []byte) Upload {
	return Upload{
		FileName:       "pontos.csv",
		ContentType:    "text/csv",
		Data:           data,
		OrganizationID: uuid.MustParse("7b0e8c4e-3f51-4c5e-9d7e-1a2b3c4d5e6f"),
		ActorID:        uuid.New(),
	}
}

func TestImportCompletesJob(t *testing.T) {
	store := newMemStore()

	outcome, err := newTestImporter(store, ImporterConfig{}).Import(context.Background(), upload(csvFixture(25)))
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, outcome.Status)
	assert.Equal(t, 25, outcome.Result.SuccessRecords)

	job := store.jobs[outcome.JobID]
	require.NotNil(t, job)
	assert.Equal(t, JobCompleted, job.Status)
	assert.Equal(t, 25, job.TotalRecords)
	assert.Equal(t, 25, job.SuccessRecords)
	assert.Len(t, job.FileSHA256, 64)
	assert.NotNil(t, job.CompletedAt)
	assert.Equal(t, 1, store.finalized[outcome.JobID])
}

func TestImportPartialFailure(t *testing.T) {
	store := newMemStore()
	store.seedAccount("115.456.789-15", 0, "", "")
	store.failCreditFor["115.456.789-15"] = true

	outcome, err := newTestImporter(store, ImporterConfig{}).Import(context.Background(), upload(csvFixture(25)))
	require.NoError(t, err)
	assert.Equal(t, JobPartial, outcome.Status)
	assert.Equal(t, 24, outcome.Result.SuccessRecords)
	assert.Equal(t, 1, outcome.Result.ErrorRecords)

	job := store.jobs[outcome.JobID]
	assert.Equal(t, JobPartial, job.Status)
	require.Len(t, job.ErrorDetails, 1)
	assert.Equal(t, 16, job.ErrorDetails[0].Row)
	assert.Equal(t, "11545678915", job.ErrorDetails[0].DocumentID)
}

func TestImportEndToEndLinksHistoryToJob(t *testing.T) {
	store := newMemStore()
	data := []byte("CPF,Nome,Email,Pontos\n" +
		"12345678901,João Silva,joao@x.com,100\n" +
		"98765432100,Maria Santos,maria@x.com,50\n")

	outcome, err := newTestImporter(store, ImporterConfig{}).Import(context.Background(), upload(data))
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, outcome.Status)
	assert.Equal(t, 2, outcome.Result.TotalRecords)
	assert.Equal(t, 2, outcome.Result.SuccessRecords)
	assert.Equal(t, 0, outcome.Result.ErrorRecords)

	joao := store.state.accounts["123.456.789-01"]
	maria := store.state.accounts["987.654.321-00"]
	assert.Equal(t, int64(100), joao.Points)
	assert.Equal(t, "João Silva", joao.FullName)
	assert.Equal(t, int64(50), maria.Points)
	assert.Equal(t, "maria@x.com", maria.Email)

	require.Len(t, store.state.history, 2)
	for _, entry := range store.state.history {
		assert.Equal(t, outcome.JobID, entry.ImportJobID)
	}
	assert.Equal(t, joao.ID, store.state.history[0].AccountID)
	assert.Equal(t, int64(100), store.state.history[0].PointsAdded)
	assert.Equal(t, maria.ID, store.state.history[1].AccountID)
	assert.Equal(t, int64(50), store.state.history[1].PointsAdded)
}

func TestImportSameFileTwiceOnExistingAccount(t *testing.T) {
	store := newMemStore()
	store.seedAccount("123.456.789-01", 50, "João Silva", "")
	im := newTestImporter(store, ImporterConfig{})
	data := []byte("CPF,Pontos\n12345678901,30\n")

	_, err := im.Import(context.Background(), upload(data))
	require.NoError(t, err)
	assert.Equal(t, int64(80), store.state.accounts["123.456.789-01"].Points)

	_, err = im.Import(context.Background(), upload(data))
	require.NoError(t, err)
	assert.Equal(t, int64(110), store.state.accounts["123.456.789-01"].Points)
	assert.Len(t, store.state.accounts, 1)
	assert.Len(t, store.jobs, 2)
}

func TestImportTwiceCreditsTwice(t *testing.T) {
	store := newMemStore()
	im := newTestImporter(store, ImporterConfig{})
	data := csvFixture(3)

	_, err := im.Import(context.Background(), upload(data))
	require.NoError(t, err)
	_, err = im.Import(context.Background(), upload(data))
	require.NoError(t, err)

	assert.Equal(t, int64(20), store.state.accounts["101.456.789-01"].Points)
	assert.Len(t, store.state.history, 6)
	assert.Len(t, store.jobs, 2)
}

func TestImportRejectsDuplicateFileWhenEnabled(t *testing.T) {
	store := newMemStore()
	im := newTestImporter(store, ImporterConfig{RejectDuplicateFiles: true})
	data := csvFixture(3)

	_, err := im.Import(context.Background(), upload(data))
	require.NoError(t, err)
	outcome, err := im.Import(context.Background(), upload(data))
	require.ErrorIs(t, err, ErrDuplicateImport)
	assert.Equal(t, uuid.Nil, outcome.JobID)
	assert.Len(t, store.jobs, 1)
}

func TestImportInputErrorsCreateNoJob(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		cfg  ImporterConfig
		want error
	}{
		{name: "empty", data: nil, want: spreadsheet.ErrEmptyInput},
		{name: "too large", data: csvFixture(3), cfg: ImporterConfig{MaxFileBytes: 10}, want: spreadsheet.ErrFileTooLarge},
		{name: "no valid rows", data: []byte("cpf,pontos\n123,1\n"), want: ErrNoValidRecords},
		{name: "too many records", data: csvFixture(5), cfg: ImporterConfig{MaxRecords: 4}, want: ErrTooManyRecords},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			_, err := newTestImporter(store, tt.cfg).Import(context.Background(), upload(tt.data))
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, store.jobs)
		})
	}
}

func TestImportMissingColumns(t *testing.T) {
	store := newMemStore()
	_, err := newTestImporter(store, ImporterConfig{}).Import(context.Background(), upload([]byte("nome,email\na,b\n")))

	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Empty(t, store.jobs)
}

func TestImportReportsSkippedRowsWhenEnabled(t *testing.T) {
	store := newMemStore()
	data := []byte("cpf,pontos\n12345678900,10\n123,5\n98765432100,0\n")

	outcome, err := newTestImporter(store, ImporterConfig{ReportSkippedRows: true}).Import(context.Background(), upload(data))
	require.NoError(t, err)
	assert.Equal(t, JobPartial, outcome.Status)
	assert.Equal(t, 3, outcome.Result.TotalRecords)
	assert.Equal(t, 1, outcome.Result.SuccessRecords)
	assert.Equal(t, 2, outcome.Result.ErrorRecords)
	require.Len(t, outcome.Result.Errors, 2)
	assert.Equal(t, 3, outcome.Result.Errors[0].Row)
	assert.Equal(t, 4, outcome.Result.Errors[1].Row)
	assert.Equal(t, 3, store.jobs[outcome.JobID].TotalRecords)
}

func TestImportAbortFinalizesJobAsError(t *testing.T) {
	store := newMemStore()
	store.failCommitOn = 2

	outcome, err := newTestImporter(store, ImporterConfig{}).Import(context.Background(), upload(csvFixture(25)))
	require.ErrorIs(t, err, errInjected)
	assert.Equal(t, JobError, outcome.Status)

	job := store.jobs[outcome.JobID]
	assert.Equal(t, JobError, job.Status)
	assert.Equal(t, 10, job.SuccessRecords)
	require.NotEmpty(t, job.ErrorDetails)
	assert.Contains(t, job.ErrorDetails[len(job.ErrorDetails)-1].Error, errInjected.Error())
	assert.Equal(t, 1, store.finalized[outcome.JobID])
}

func TestImportAllRecordsFailingIsPartial(t *testing.T) {
	store := newMemStore()
	store.failCreate = true

	outcome, err := newTestImporter(store, ImporterConfig{}).Import(context.Background(), upload(csvFixture(2)))
	require.NoError(t, err)
	assert.Equal(t, JobPartial, outcome.Status)
	assert.True(t, outcome.Result.Success)
	assert.Equal(t, 0, outcome.Result.SuccessRecords)
	assert.Equal(t, 2, outcome.Result.ErrorRecords)
}
