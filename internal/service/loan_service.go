package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/util"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/websocket"
)

// LoanService handles loan account business logic
type LoanService struct {
	loanRepo       domain.LoanRepository
	eventPublisher websocket.EventPublisher
}

// NewLoanService creates a new LoanService
func NewLoanService(loanRepo domain.LoanRepository) *LoanService {
	return &LoanService{loanRepo: loanRepo}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LoanService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *LoanService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// CreateLoanInput contains input for creating a loan account
type CreateLoanInput struct {
	BorrowerName        string
	PrincipalAmount     decimal.Decimal
	InterestRatePercent decimal.Decimal
	StartDate           time.Time
	Notes               *string
}

// CreateLoan creates a new loan account. The balance opens at the principal
// and the first entry falls one servicing period after the start date.
func (s *LoanService) CreateLoan(input CreateLoanInput) (*domain.Loan, error) {
	loan := &domain.Loan{
		ID:                  uuid.New(),
		BorrowerName:        strings.TrimSpace(input.BorrowerName),
		PrincipalAmount:     input.PrincipalAmount,
		BalanceAmount:       input.PrincipalAmount,
		BalanceInterest:     decimal.Zero,
		InterestRatePercent: input.InterestRatePercent,
		StartDate:           util.TruncateToDate(input.StartDate),
		WrittenOffInterest:  decimal.Zero,
		Notes:               input.Notes,
	}
	loan.NextEntryDate = util.AddServicingPeriod(loan.StartDate)

	if err := loan.Validate(); err != nil {
		return nil, err
	}

	created, err := s.loanRepo.Create(loan)
	if err != nil {
		return nil, err
	}

	s.publishEvent(websocket.LoanCreated(created))
	return created, nil
}

// GetLoan retrieves a loan account by ID
func (s *LoanService) GetLoan(id uuid.UUID) (*domain.Loan, error) {
	return s.loanRepo.GetByID(id)
}

// ListLoans retrieves loan accounts matching the filters
func (s *LoanService) ListLoans(filters domain.LoanListFilters) ([]*domain.Loan, int64, error) {
	return s.loanRepo.List(filters.Normalize())
}

// UpdateLoanInput contains input for updating a loan account.
// Nil fields are left unchanged.
type UpdateLoanInput struct {
	BorrowerName        *string
	InterestRatePercent *decimal.Decimal
	Notes               *string
}

// UpdateLoan updates a loan account's editable fields. Balance fields are
// only ever moved by entries and day-close, never directly.
func (s *LoanService) UpdateLoan(id uuid.UUID, input UpdateLoanInput) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if loan.Closed {
		return nil, domain.ErrLoanClosed
	}

	if input.BorrowerName != nil {
		loan.BorrowerName = strings.TrimSpace(*input.BorrowerName)
	}
	if input.InterestRatePercent != nil {
		loan.InterestRatePercent = *input.InterestRatePercent
	}
	if input.Notes != nil {
		loan.Notes = input.Notes
	}

	if err := loan.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.loanRepo.Update(loan)
	if err != nil {
		return nil, err
	}

	s.publishEvent(websocket.LoanUpdated(updated))
	return updated, nil
}

// CloseLoan closes a loan account. The balance amount must be fully repaid;
// any remaining pending interest is written off and recorded on the loan.
func (s *LoanService) CloseLoan(id uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if loan.Closed {
		return nil, domain.ErrLoanAlreadyClosed
	}
	if loan.BalanceAmount.GreaterThan(decimal.Zero) {
		return nil, domain.ErrLoanBalanceOutstanding
	}

	writeOff := loan.TotalPendingInterest()
	closed, err := s.loanRepo.Close(id, time.Now().UTC(), writeOff)
	if err != nil {
		return nil, err
	}

	s.publishEvent(websocket.LoanClosed(closed))
	return closed, nil
}

// DeleteLoan soft-deletes a loan account
func (s *LoanService) DeleteLoan(id uuid.UUID) error {
	loan, err := s.loanRepo.GetByID(id)
	if err != nil {
		return err
	}

	if err := s.loanRepo.SoftDelete(id); err != nil {
		return err
	}

	s.publishEvent(websocket.LoanDeleted(loan))
	return nil
}
