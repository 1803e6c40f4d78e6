package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/util"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/websocket"
)

// EntryService handles repayment entry business logic. It owns the
// authoritative allocation of a submitted entry: the interest portion is
// capped at the loan's pending interest, any excess rolls into the principal
// portion, and the result must not exceed the outstanding balance.
type EntryService struct {
	pool           *pgxpool.Pool
	loanRepo       domain.LoanRepository
	entryRepo      domain.EntryRepository
	eventPublisher websocket.EventPublisher
}

// NewEntryService creates a new EntryService
func NewEntryService(pool *pgxpool.Pool, loanRepo domain.LoanRepository, entryRepo domain.EntryRepository) *EntryService {
	return &EntryService{
		pool:      pool,
		loanRepo:  loanRepo,
		entryRepo: entryRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *EntryService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *EntryService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// Snapshot builds the loan view the entry form works against
func (s *EntryService) Snapshot(loanID uuid.UUID) (*domain.LoanSnapshot, error) {
	loan, err := s.loanRepo.GetByID(loanID)
	if err != nil {
		return nil, err
	}
	return &domain.LoanSnapshot{
		BalanceAmount:            loan.BalanceAmount,
		BalanceInterest:          loan.BalanceInterest,
		InterestRatePercent:      loan.InterestRatePercent,
		CalculatedInterestAmount: loan.CalculatedInterestAmount(),
		TotalPendingInterest:     loan.TotalPendingInterest(),
		NextEntryDate:            loan.NextEntryDate,
		IsClosed:                 loan.Closed,
	}, nil
}

// CreateEntryInput contains input for recording a repayment entry
type CreateEntryInput struct {
	LoanID           uuid.UUID
	EntryDate        time.Time
	ReceivedDate     *time.Time
	ReceivedAmount   decimal.Decimal
	ReceivedInterest decimal.Decimal
}

// CreateEntry records a repayment entry against a loan and settles the
// current servicing period. The returned adjustments are nil when the entry
// was applied exactly as submitted.
func (s *EntryService) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.Entry, *domain.EntryAdjustments, error) {
	loan, err := s.loanRepo.GetByID(input.LoanID)
	if err != nil {
		return nil, nil, err
	}
	if loan.Closed {
		return nil, nil, domain.ErrLoanClosed
	}

	entry := &domain.Entry{
		ID:                uuid.New(),
		LoanID:            loan.ID,
		EntryDate:         util.TruncateToDate(input.EntryDate),
		ReceivedDate:      input.ReceivedDate,
		RequestedAmount:   input.ReceivedAmount,
		RequestedInterest: input.ReceivedInterest,
	}
	if err := entry.Validate(); err != nil {
		return nil, nil, err
	}

	// Cap the interest portion at the pending interest; roll any excess
	// into the principal portion.
	pending := loan.TotalPendingInterest()
	appliedInterest := input.ReceivedInterest
	appliedAmount := input.ReceivedAmount
	var adjustments *domain.EntryAdjustments
	if appliedInterest.GreaterThan(pending) {
		excess := appliedInterest.Sub(pending)
		appliedInterest = pending
		appliedAmount = appliedAmount.Add(excess)
		adjustments = &domain.EntryAdjustments{
			InterestAdjusted:         true,
			OriginalReceivedInterest: input.ReceivedInterest,
			AdjustedReceivedInterest: appliedInterest,
			AmountAdjusted:           true,
			OriginalReceivedAmount:   input.ReceivedAmount,
			AdjustedReceivedAmount:   appliedAmount,
		}
	}

	if appliedAmount.GreaterThan(loan.BalanceAmount) {
		return nil, nil, domain.ErrEntryAmountExceedsBalance
	}

	entry.ReceivedAmount = appliedAmount
	entry.ReceivedInterest = appliedInterest
	entry.BalanceAfter = loan.BalanceAmount.Sub(appliedAmount)
	entry.InterestAfter = pending.Sub(appliedInterest)

	// The entry settles the current servicing period: uncollected interest
	// carries forward and the next entry date advances one period.
	loan.BalanceAmount = entry.BalanceAfter
	loan.BalanceInterest = entry.InterestAfter
	loan.NextEntryDate = util.AddServicingPeriod(loan.NextEntryDate)

	created, err := s.persistEntry(ctx, entry, loan)
	if err != nil {
		return nil, nil, err
	}

	s.publishEvent(websocket.EntryCreated(created))
	return created, adjustments, nil
}

// persistEntry writes the entry and the loan's servicing state atomically
func (s *EntryService) persistEntry(ctx context.Context, entry *domain.Entry, loan *domain.Loan) (*domain.Entry, error) {
	if s.pool == nil {
		// No pool wired (tests); fall back to sequential writes
		created, err := s.entryRepo.Create(entry)
		if err != nil {
			return nil, err
		}
		if err := s.loanRepo.UpdateServicingStateTx(nil, loan); err != nil {
			return nil, err
		}
		return created, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := s.entryRepo.CreateTx(tx, entry)
	if err != nil {
		return nil, err
	}
	if err := s.loanRepo.UpdateServicingStateTx(tx, loan); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// GetEntry retrieves an entry by ID
func (s *EntryService) GetEntry(id uuid.UUID) (*domain.Entry, error) {
	return s.entryRepo.GetByID(id)
}

// ListEntries retrieves a loan's entries, newest first
func (s *EntryService) ListEntries(loanID uuid.UUID, filters domain.EntryListFilters) ([]*domain.Entry, int64, error) {
	if _, err := s.loanRepo.GetByID(loanID); err != nil {
		return nil, 0, err
	}
	return s.entryRepo.GetByLoanID(loanID, filters.Normalize())
}
