package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrLoanNotFound           = errors.New("loan not found")
	ErrLoanBorrowerEmpty      = errors.New("borrower name is required")
	ErrLoanBorrowerTooLong    = errors.New("borrower name must be 200 characters or less")
	ErrLoanPrincipalInvalid   = errors.New("principal amount must be positive")
	ErrLoanRateInvalid        = errors.New("interest rate must not be negative")
	ErrLoanStartDateRequired  = errors.New("start date is required")
	ErrLoanClosed             = errors.New("loan account is closed")
	ErrLoanAlreadyClosed      = errors.New("loan account is already closed")
	ErrLoanBalanceOutstanding = errors.New("loan cannot be closed while balance amount is outstanding")
)

// Loan is a serviced loan account. BalanceAmount is the outstanding
// principal; BalanceInterest is interest accrued in prior servicing periods
// but not yet collected.
type Loan struct {
	ID                  uuid.UUID       `json:"id"`
	BorrowerName        string          `json:"borrowerName"`
	PrincipalAmount     decimal.Decimal `json:"principalAmount"`
	BalanceAmount       decimal.Decimal `json:"balanceAmount"`
	BalanceInterest     decimal.Decimal `json:"balanceInterest"`
	InterestRatePercent decimal.Decimal `json:"interestRatePercent"`
	StartDate           time.Time       `json:"startDate"`
	NextEntryDate       time.Time       `json:"nextEntryDate"`
	Closed              bool            `json:"closed"`
	ClosedAt            *time.Time      `json:"closedAt,omitempty"`
	WrittenOffInterest  decimal.Decimal `json:"writtenOffInterest"`
	Notes               *string         `json:"notes,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	DeletedAt           *time.Time      `json:"deletedAt,omitempty"`
}

func (l *Loan) Validate() error {
	if l.BorrowerName == "" {
		return ErrLoanBorrowerEmpty
	}
	if len(l.BorrowerName) > MaxBorrowerNameLength {
		return ErrLoanBorrowerTooLong
	}
	if l.PrincipalAmount.LessThanOrEqual(decimal.Zero) {
		return ErrLoanPrincipalInvalid
	}
	if l.InterestRatePercent.IsNegative() {
		return ErrLoanRateInvalid
	}
	if l.StartDate.IsZero() {
		return ErrLoanStartDateRequired
	}
	return nil
}

// CalculatedInterestAmount is the interest accruing for the current servicing
// period: balance amount times the periodic rate, rounded to 2 decimals.
func (l *Loan) CalculatedInterestAmount() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return l.BalanceAmount.Mul(l.InterestRatePercent).Div(hundred).Round(2)
}

// TotalPendingInterest is the interest due for the upcoming entry: carried
// balance interest plus the current period's accrual. It is the authoritative
// cap on the interest portion of an entry.
func (l *Loan) TotalPendingInterest() decimal.Decimal {
	return l.BalanceInterest.Add(l.CalculatedInterestAmount())
}

// LoanListFilters controls loan listing
type LoanListFilters struct {
	Page          int32
	PageSize      int32
	IncludeClosed bool
}

// Normalize clamps the pagination values to what a listing actually serves.
func (f LoanListFilters) Normalize() LoanListFilters {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

type LoanRepository interface {
	Create(loan *Loan) (*Loan, error)
	GetByID(id uuid.UUID) (*Loan, error)
	List(filters LoanListFilters) ([]*Loan, int64, error)
	Update(loan *Loan) (*Loan, error)
	// UpdateServicingStateTx persists the balance fields and next entry date
	// within a transaction. tx must be a pgx.Tx.
	UpdateServicingStateTx(tx interface{}, loan *Loan) error
	// ListDue returns open loans whose next entry date is on or before asOf.
	ListDue(asOf time.Time) ([]*Loan, error)
	Close(id uuid.UUID, closedAt time.Time, writtenOffInterest decimal.Decimal) (*Loan, error)
	SoftDelete(id uuid.UUID) error
}
