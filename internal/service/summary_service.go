package service

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
)

// SummaryService handles loan summary aggregation
type SummaryService struct {
	loanRepo  domain.LoanRepository
	entryRepo domain.EntryRepository
}

// NewSummaryService creates a new SummaryService
func NewSummaryService(loanRepo domain.LoanRepository, entryRepo domain.EntryRepository) *SummaryService {
	return &SummaryService{
		loanRepo:  loanRepo,
		entryRepo: entryRepo,
	}
}

// LoanSummary is the aggregate view of a loan's servicing history
type LoanSummary struct {
	Loan                   *domain.Loan             `json:"loan"`
	TotalPrincipalReceived decimal.Decimal          `json:"totalPrincipalReceived"`
	TotalInterestReceived  decimal.Decimal          `json:"totalInterestReceived"`
	TotalPendingInterest   decimal.Decimal          `json:"totalPendingInterest"`
	Months                 []*domain.MonthlySummary `json:"months"`
}

// GetLoanSummary aggregates a loan's entries by month and totals
func (s *SummaryService) GetLoanSummary(loanID uuid.UUID) (*LoanSummary, error) {
	loan, err := s.loanRepo.GetByID(loanID)
	if err != nil {
		return nil, err
	}

	months, err := s.entryRepo.MonthlySummaries(loanID)
	if err != nil {
		return nil, err
	}

	summary := &LoanSummary{
		Loan:                 loan,
		TotalPendingInterest: loan.TotalPendingInterest(),
		Months:               months,
	}
	for _, m := range months {
		summary.TotalPrincipalReceived = summary.TotalPrincipalReceived.Add(m.PrincipalReceived)
		summary.TotalInterestReceived = summary.TotalInterestReceived.Add(m.InterestReceived)
	}
	return summary, nil
}
