package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEntryNotFound             = errors.New("entry not found")
	ErrEntryLoanIDRequired       = errors.New("loan ID is required")
	ErrEntryDateRequired         = errors.New("entry date is required")
	ErrEntryAmountNegative       = errors.New("received amount must not be negative")
	ErrEntryInterestNegative     = errors.New("received interest must not be negative")
	ErrEntryNothingReceived      = errors.New("entry must receive an amount or interest")
	ErrEntryAmountExceedsBalance = errors.New("total received amount cannot exceed balance amount")
)

// Entry is a recorded repayment event against a loan. ReceivedAmount and
// ReceivedInterest are the applied portions after server-side allocation;
// the Requested* fields keep what the caller submitted.
type Entry struct {
	ID                uuid.UUID       `json:"id"`
	LoanID            uuid.UUID       `json:"loanId"`
	EntryDate         time.Time       `json:"entryDate"`
	ReceivedDate      *time.Time      `json:"receivedDate,omitempty"`
	ReceivedAmount    decimal.Decimal `json:"receivedAmount"`
	ReceivedInterest  decimal.Decimal `json:"receivedInterest"`
	RequestedAmount   decimal.Decimal `json:"requestedAmount"`
	RequestedInterest decimal.Decimal `json:"requestedInterest"`
	BalanceAfter      decimal.Decimal `json:"balanceAfter"`
	InterestAfter     decimal.Decimal `json:"interestAfter"`
	ReceiptPath       *string         `json:"receiptPath,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

func (e *Entry) Validate() error {
	if e.LoanID == uuid.Nil {
		return ErrEntryLoanIDRequired
	}
	if e.EntryDate.IsZero() {
		return ErrEntryDateRequired
	}
	if e.RequestedAmount.IsNegative() {
		return ErrEntryAmountNegative
	}
	if e.RequestedInterest.IsNegative() {
		return ErrEntryInterestNegative
	}
	if e.RequestedAmount.IsZero() && e.RequestedInterest.IsZero() {
		return ErrEntryNothingReceived
	}
	return nil
}

// EntryAdjustments reports how the server changed a submitted entry while
// allocating it: the interest portion is capped at the pending interest and
// any excess is rolled into the principal portion.
type EntryAdjustments struct {
	InterestAdjusted         bool            `json:"interestAdjusted"`
	OriginalReceivedInterest decimal.Decimal `json:"originalReceivedInterest"`
	AdjustedReceivedInterest decimal.Decimal `json:"adjustedReceivedInterest"`
	AmountAdjusted           bool            `json:"amountAdjusted"`
	OriginalReceivedAmount   decimal.Decimal `json:"originalReceivedAmount"`
	AdjustedReceivedAmount   decimal.Decimal `json:"adjustedReceivedAmount"`
}

// LoanSnapshot is the per-loan view the entry form works against.
// TotalPendingInterest is the single source of truth for the interest cap.
type LoanSnapshot struct {
	BalanceAmount            decimal.Decimal `json:"balanceAmount"`
	BalanceInterest          decimal.Decimal `json:"balanceInterest"`
	InterestRatePercent      decimal.Decimal `json:"interest"`
	CalculatedInterestAmount decimal.Decimal `json:"calculatedInterestAmount"`
	TotalPendingInterest     decimal.Decimal `json:"totalPendingInterest"`
	NextEntryDate            time.Time       `json:"nextEntryDate"`
	IsClosed                 bool            `json:"isClosed"`
}

// EntryListFilters controls entry listing
type EntryListFilters struct {
	Page     int32
	PageSize int32
}

// Normalize clamps the pagination values to what a listing actually serves.
func (f EntryListFilters) Normalize() EntryListFilters {
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

type EntryRepository interface {
	Create(entry *Entry) (*Entry, error)
	// CreateTx creates an entry within a transaction. tx must be a pgx.Tx.
	CreateTx(tx interface{}, entry *Entry) (*Entry, error)
	GetByID(id uuid.UUID) (*Entry, error)
	GetByLoanID(loanID uuid.UUID, filters EntryListFilters) ([]*Entry, int64, error)
	MonthlySummaries(loanID uuid.UUID) ([]*MonthlySummary, error)
	SetReceiptPath(id uuid.UUID, path string) error
}
