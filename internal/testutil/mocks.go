package testutil

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/util"
)

// MockLoanRepository is a mock implementation of domain.LoanRepository
type MockLoanRepository struct {
	Loans    map[uuid.UUID]*domain.Loan
	CreateFn func(loan *domain.Loan) (*domain.Loan, error)
	UpdateFn func(loan *domain.Loan) (*domain.Loan, error)
}

// NewMockLoanRepository creates a new MockLoanRepository
func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{
		Loans: make(map[uuid.UUID]*domain.Loan),
	}
}

// Create creates a new loan
func (m *MockLoanRepository) Create(loan *domain.Loan) (*domain.Loan, error) {
	if m.CreateFn != nil {
		return m.CreateFn(loan)
	}
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	now := time.Now().UTC()
	loan.CreatedAt = now
	loan.UpdatedAt = now
	m.Loans[loan.ID] = loan
	return loan, nil
}

// GetByID retrieves a loan by ID
func (m *MockLoanRepository) GetByID(id uuid.UUID) (*domain.Loan, error) {
	loan, ok := m.Loans[id]
	if !ok || loan.DeletedAt != nil {
		return nil, domain.ErrLoanNotFound
	}
	return loan, nil
}

// List returns loans matching the filters, newest first
func (m *MockLoanRepository) List(filters domain.LoanListFilters) ([]*domain.Loan, int64, error) {
	loans := make([]*domain.Loan, 0, len(m.Loans))
	for _, loan := range m.Loans {
		if loan.DeletedAt != nil {
			continue
		}
		if loan.Closed && !filters.IncludeClosed {
			continue
		}
		loans = append(loans, loan)
	}
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].CreatedAt.After(loans[j].CreatedAt)
	})
	return loans, int64(len(loans)), nil
}

// Update updates an existing loan. Only the columns the real UPDATE
// statement sets are copied, so a field dropped from the SQL shows up
// as a test failure instead of being masked by the mock.
func (m *MockLoanRepository) Update(loan *domain.Loan) (*domain.Loan, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(loan)
	}
	stored, ok := m.Loans[loan.ID]
	if !ok || stored.DeletedAt != nil {
		return nil, domain.ErrLoanNotFound
	}
	stored.BorrowerName = loan.BorrowerName
	stored.Notes = loan.Notes
	stored.InterestRatePercent = loan.InterestRatePercent
	stored.UpdatedAt = time.Now().UTC()
	return stored, nil
}

// UpdateServicingStateTx persists balance fields ignoring the transaction
func (m *MockLoanRepository) UpdateServicingStateTx(tx interface{}, loan *domain.Loan) error {
	if _, ok := m.Loans[loan.ID]; !ok {
		return domain.ErrLoanNotFound
	}
	m.Loans[loan.ID] = loan
	return nil
}

// ListDue returns open loans whose next entry date is on or before asOf
func (m *MockLoanRepository) ListDue(asOf time.Time) ([]*domain.Loan, error) {
	loans := make([]*domain.Loan, 0)
	for _, loan := range m.Loans {
		if loan.DeletedAt != nil || loan.Closed {
			continue
		}
		if !loan.NextEntryDate.After(asOf) {
			loans = append(loans, loan)
		}
	}
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].NextEntryDate.Before(loans[j].NextEntryDate)
	})
	return loans, nil
}

// Close marks a loan as closed
func (m *MockLoanRepository) Close(id uuid.UUID, closedAt time.Time, writtenOffInterest decimal.Decimal) (*domain.Loan, error) {
	loan, ok := m.Loans[id]
	if !ok || loan.DeletedAt != nil {
		return nil, domain.ErrLoanNotFound
	}
	loan.Closed = true
	loan.ClosedAt = &closedAt
	loan.BalanceInterest = decimal.Zero
	loan.WrittenOffInterest = writtenOffInterest
	loan.UpdatedAt = time.Now().UTC()
	return loan, nil
}

// SoftDelete marks a loan as deleted
func (m *MockLoanRepository) SoftDelete(id uuid.UUID) error {
	loan, ok := m.Loans[id]
	if !ok || loan.DeletedAt != nil {
		return domain.ErrLoanNotFound
	}
	now := time.Now().UTC()
	loan.DeletedAt = &now
	return nil
}

// AddLoan adds a loan to the mock repository (helper for tests)
func (m *MockLoanRepository) AddLoan(loan *domain.Loan) {
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	m.Loans[loan.ID] = loan
}

// MockEntryRepository is a mock implementation of domain.EntryRepository
type MockEntryRepository struct {
	Entries  map[uuid.UUID]*domain.Entry
	CreateFn func(entry *domain.Entry) (*domain.Entry, error)
}

// NewMockEntryRepository creates a new MockEntryRepository
func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		Entries: make(map[uuid.UUID]*domain.Entry),
	}
}

// Create creates a new entry
func (m *MockEntryRepository) Create(entry *domain.Entry) (*domain.Entry, error) {
	if m.CreateFn != nil {
		return m.CreateFn(entry)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now().UTC()
	m.Entries[entry.ID] = entry
	return entry, nil
}

// CreateTx creates an entry ignoring the transaction
func (m *MockEntryRepository) CreateTx(tx interface{}, entry *domain.Entry) (*domain.Entry, error) {
	return m.Create(entry)
}

// GetByID retrieves an entry by ID
func (m *MockEntryRepository) GetByID(id uuid.UUID) (*domain.Entry, error) {
	if entry, ok := m.Entries[id]; ok {
		return entry, nil
	}
	return nil, domain.ErrEntryNotFound
}

// GetByLoanID returns a loan's entries, newest first
func (m *MockEntryRepository) GetByLoanID(loanID uuid.UUID, filters domain.EntryListFilters) ([]*domain.Entry, int64, error) {
	entries := make([]*domain.Entry, 0)
	for _, entry := range m.Entries {
		if entry.LoanID == loanID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].EntryDate.After(entries[j].EntryDate)
	})
	return entries, int64(len(entries)), nil
}

// MonthlySummaries aggregates a loan's entries by calendar month, oldest
// first, matching the order the real aggregation query returns.
func (m *MockEntryRepository) MonthlySummaries(loanID uuid.UUID) ([]*domain.MonthlySummary, error) {
	entries := make([]*domain.Entry, 0)
	for _, entry := range m.Entries {
		if entry.LoanID == loanID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].EntryDate.Equal(entries[j].EntryDate) {
			return entries[i].EntryDate.Before(entries[j].EntryDate)
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	var summaries []*domain.MonthlySummary
	var monthStart time.Time
	for _, entry := range entries {
		if len(summaries) == 0 || !util.SameMonth(entry.EntryDate, monthStart) {
			monthStart = entry.EntryDate
			summaries = append(summaries, &domain.MonthlySummary{
				Year:  int32(entry.EntryDate.Year()),
				Month: int32(entry.EntryDate.Month()),
			})
		}
		s := summaries[len(summaries)-1]
		s.EntryCount++
		s.PrincipalReceived = s.PrincipalReceived.Add(entry.ReceivedAmount)
		s.InterestReceived = s.InterestReceived.Add(entry.ReceivedInterest)
		s.ClosingBalance = entry.BalanceAfter
	}
	return summaries, nil
}

// SetReceiptPath stores the receipt path on an entry
func (m *MockEntryRepository) SetReceiptPath(id uuid.UUID, path string) error {
	entry, ok := m.Entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	entry.ReceiptPath = &path
	return nil
}

// AddEntry adds an entry to the mock repository (helper for tests)
func (m *MockEntryRepository) AddEntry(entry *domain.Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	m.Entries[entry.ID] = entry
}

// MockDayCloseRepository is a mock implementation of domain.DayCloseRepository
type MockDayCloseRepository struct {
	Runs map[string]*domain.DayCloseRun
}

// NewMockDayCloseRepository creates a new MockDayCloseRepository
func NewMockDayCloseRepository() *MockDayCloseRepository {
	return &MockDayCloseRepository{
		Runs: make(map[string]*domain.DayCloseRun),
	}
}

func dayCloseKey(runDate time.Time) string {
	return util.TruncateToDate(runDate).Format("2006-01-02")
}

// Create records a day-close run
func (m *MockDayCloseRepository) Create(run *domain.DayCloseRun) (*domain.DayCloseRun, error) {
	k := dayCloseKey(run.RunDate)
	if _, ok := m.Runs[k]; ok {
		return nil, domain.ErrDayCloseAlreadyRun
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now().UTC()
	m.Runs[k] = run
	return run, nil
}

// GetByRunDate retrieves a day-close run by its run date
func (m *MockDayCloseRepository) GetByRunDate(runDate time.Time) (*domain.DayCloseRun, error) {
	if run, ok := m.Runs[dayCloseKey(runDate)]; ok {
		return run, nil
	}
	return nil, domain.ErrNotFound
}

// ListRecent returns the most recent day-close runs
func (m *MockDayCloseRepository) ListRecent(limit int32) ([]*domain.DayCloseRun, error) {
	runs := make([]*domain.DayCloseRun, 0, len(m.Runs))
	for _, run := range m.Runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].RunDate.After(runs[j].RunDate)
	})
	if int32(len(runs)) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// MockReceiptRepository is a mock implementation of storage.ReceiptRepository
type MockReceiptRepository struct {
	Uploads  map[string][]byte
	UploadFn func(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
}

// NewMockReceiptRepository creates a new MockReceiptRepository
func NewMockReceiptRepository() *MockReceiptRepository {
	return &MockReceiptRepository{
		Uploads: make(map[string][]byte),
	}
}

// Upload stores the object in memory
func (m *MockReceiptRepository) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadFn != nil {
		return m.UploadFn(ctx, objectPath, data, contentType, size)
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.Uploads[objectPath] = content
	return objectPath, nil
}

// Delete removes the object from memory
func (m *MockReceiptRepository) Delete(ctx context.Context, objectPath string) error {
	delete(m.Uploads, objectPath)
	return nil
}

// GeneratePresignedURL returns a deterministic fake URL
func (m *MockReceiptRepository) GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	if _, ok := m.Uploads[objectPath]; !ok {
		return "", fmt.Errorf("object not found: %s", objectPath)
	}
	return "https://receipts.test/" + objectPath, nil
}
