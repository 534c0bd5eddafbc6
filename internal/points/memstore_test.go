package points

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

var errInjected = errors.New("injected failure")

type memState struct {
	accounts map[string]Account
	history  []HistoryEntry
}

func (s memState) clone() memState {
	return memState{accounts: maps.Clone(s.accounts), history: slices.Clone(s.history)}
}

// memStore is an in-memory AccountStore and Ledger with real rollback
// semantics for transactions and savepoints.
type memStore struct {
	state memState

	failHistoryFor map[string]bool
	failCreditFor  map[string]bool
	failCommitOn   int
	commits        int

	jobs       map[uuid.UUID]*Job
	finalized  map[uuid.UUID]int
	passwords  map[string]string
	failCreate bool
}

func newMemStore() *memStore {
	return &memStore{
		state:          memState{accounts: map[string]Account{}},
		failHistoryFor: map[string]bool{},
		failCreditFor:  map[string]bool{},
		jobs:           map[uuid.UUID]*Job{},
		finalized:      map[uuid.UUID]int{},
		passwords:      map[string]string{},
	}
}

func (m *memStore) seedAccount(documentID string, points int64, name, email string) Account {
	acc := Account{ID: uuid.New(), DocumentID: documentID, Points: points, FullName: name, Email: email}
	m.state.accounts[documentID] = acc
	return acc
}

func (m *memStore) InTx(ctx context.Context, fn func(Tx) error) error {
	snapshot := m.state.clone()
	if err := fn(&memTx{store: m}); err != nil {
		m.state = snapshot
		return err
	}
	m.commits++
	if m.failCommitOn > 0 && m.commits == m.failCommitOn {
		m.state = snapshot
		return errInjected
	}
	return nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) Savepoint(ctx context.Context, fn func(Tx) error) error {
	snapshot := t.store.state.clone()
	if err := fn(t); err != nil {
		t.store.state = snapshot
		return err
	}
	return nil
}

func (t *memTx) FindAccountByDocument(ctx context.Context, documentID string) (Account, error) {
	acc, ok := t.store.state.accounts[documentID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (t *memTx) CreateAccount(ctx context.Context, a NewAccount) (Account, error) {
	if t.store.failCreate {
		return Account{}, errInjected
	}
	acc := Account{
		ID:             uuid.New(),
		OrganizationID: a.OrganizationID,
		DocumentID:     a.DocumentID,
		FullName:       a.FullName,
		Email:          a.Email,
		Points:         a.Points,
	}
	t.store.state.accounts[a.DocumentID] = acc
	t.store.passwords[a.DocumentID] = a.PasswordHash + "|" + a.Role
	return acc, nil
}

func (t *memTx) CreditAccount(ctx context.Context, c Credit) (Account, error) {
	for doc, acc := range t.store.state.accounts {
		if acc.ID != c.AccountID {
			continue
		}
		if t.store.failCreditFor[doc] {
			return Account{}, errInjected
		}
		acc.Points += c.Points
		if c.FullName != "" {
			acc.FullName = c.FullName
		}
		if c.Email != "" {
			acc.Email = c.Email
		}
		t.store.state.accounts[doc] = acc
		return acc, nil
	}
	return Account{}, ErrAccountNotFound
}

func (t *memTx) AppendHistory(ctx context.Context, e HistoryEntry) error {
	for doc, acc := range t.store.state.accounts {
		if acc.ID == e.AccountID && t.store.failHistoryFor[doc] {
			return errInjected
		}
	}
	t.store.state.history = append(t.store.state.history, e)
	return nil
}

func (m *memStore) CreateJob(ctx context.Context, job NewJob) (uuid.UUID, error) {
	id := uuid.New()
	m.jobs[id] = &Job{
		ID:             id,
		OrganizationID: job.OrganizationID,
		FileName:       job.FileName,
		FileSHA256:     job.FileSHA256,
		TotalRecords:   job.TotalRecords,
		Status:         JobProcessing,
		ImportedBy:     job.ImportedBy,
		CreatedAt:      time.Now(),
	}
	return id, nil
}

func (m *memStore) FinalizeJob(ctx context.Context, id uuid.UUID, final JobFinal) error {
	job, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	m.finalized[id]++
	if job.Status != JobProcessing {
		return ErrJobAlreadyClosed
	}
	now := time.Now()
	job.Status = final.Status
	job.SuccessRecords = final.SuccessRecords
	job.ErrorRecords = final.ErrorRecords
	job.ErrorDetails = final.ErrorDetails
	job.CompletedAt = &now
	return nil
}

func (m *memStore) GetJob(ctx context.Context, organizationID, id uuid.UUID) (Job, error) {
	job, ok := m.jobs[id]
	if !ok || job.OrganizationID != organizationID {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

func (m *memStore) ListJobs(ctx context.Context, organizationID uuid.UUID, limit int) ([]Job, error) {
	var out []Job
	for _, job := range m.jobs {
		if job.OrganizationID == organizationID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memStore) FindCompletedByChecksum(ctx context.Context, organizationID uuid.UUID, sha256 string) (Job, error) {
	for _, job := range m.jobs {
		if job.OrganizationID == organizationID && job.FileSHA256 == sha256 &&
			(job.Status == JobCompleted || job.Status == JobPartial) {
			return *job, nil
		}
	}
	return Job{}, ErrJobNotFound
}

func fakeHash(password string) (string, error) {
	return "hashed:" + password, nil
}
