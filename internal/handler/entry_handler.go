package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/service"
)

// EntryHandler handles repayment entry HTTP requests
type EntryHandler struct {
	entryService *service.EntryService
}

// NewEntryHandler creates a new EntryHandler
func NewEntryHandler(entryService *service.EntryService) *EntryHandler {
	return &EntryHandler{entryService: entryService}
}

// LoanDetailsResponse is the loan snapshot the entry form works against.
// Money fields travel as 2-decimal strings.
type LoanDetailsResponse struct {
	BalanceAmount            string `json:"balanceAmount"`
	BalanceInterest          string `json:"balanceInterest"`
	Interest                 string `json:"interest"`
	CalculatedInterestAmount string `json:"calculatedInterestAmount"`
	TotalPendingInterest     string `json:"totalPendingInterest"`
	NextEntryDate            string `json:"nextEntryDate"`
	IsClosed                 bool   `json:"isClosed"`
}

// CreateEntryRequest represents the create entry request body
type CreateEntryRequest struct {
	LoanID           string  `json:"loanId"`
	EntryDate        string  `json:"entryDate"`
	ReceivedDate     *string `json:"receivedDate,omitempty"`
	ReceivedAmount   string  `json:"receivedAmount"`
	ReceivedInterest string  `json:"receivedInterest"`
}

// EntryResponse represents a repayment entry in API responses
type EntryResponse struct {
	ID                string  `json:"id"`
	LoanID            string  `json:"loanId"`
	EntryDate         string  `json:"entryDate"`
	ReceivedDate      *string `json:"receivedDate,omitempty"`
	ReceivedAmount    string  `json:"receivedAmount"`
	ReceivedInterest  string  `json:"receivedInterest"`
	RequestedAmount   string  `json:"requestedAmount"`
	RequestedInterest string  `json:"requestedInterest"`
	BalanceAfter      string  `json:"balanceAfter"`
	InterestAfter     string  `json:"interestAfter"`
	ReceiptPath       *string `json:"receiptPath,omitempty"`
	CreatedAt         string  `json:"createdAt"`
}

// AdjustmentsResponse reports server-side allocation changes
type AdjustmentsResponse struct {
	InterestAdjusted         bool   `json:"interestAdjusted"`
	OriginalReceivedInterest string `json:"originalReceivedInterest"`
	AdjustedReceivedInterest string `json:"adjustedReceivedInterest"`
	AmountAdjusted           bool   `json:"amountAdjusted"`
	OriginalReceivedAmount   string `json:"originalReceivedAmount"`
	AdjustedReceivedAmount   string `json:"adjustedReceivedAmount"`
}

// CreateEntryResponse wraps the created entry and any adjustments
type CreateEntryResponse struct {
	Entry       EntryResponse        `json:"entry"`
	Adjustments *AdjustmentsResponse `json:"adjustments,omitempty"`
}

// ListEntriesResponse represents the paginated entry list
type ListEntriesResponse struct {
	Entries  []EntryResponse `json:"entries"`
	Total    int64           `json:"total"`
	Page     int32           `json:"page"`
	PageSize int32           `json:"pageSize"`
}

func toEntryResponse(entry *domain.Entry) EntryResponse {
	resp := EntryResponse{
		ID:                entry.ID.String(),
		LoanID:            entry.LoanID.String(),
		EntryDate:         entry.EntryDate.Format("2006-01-02"),
		ReceivedAmount:    entry.ReceivedAmount.StringFixed(2),
		ReceivedInterest:  entry.ReceivedInterest.StringFixed(2),
		RequestedAmount:   entry.RequestedAmount.StringFixed(2),
		RequestedInterest: entry.RequestedInterest.StringFixed(2),
		BalanceAfter:      entry.BalanceAfter.StringFixed(2),
		InterestAfter:     entry.InterestAfter.StringFixed(2),
		ReceiptPath:       entry.ReceiptPath,
		CreatedAt:         entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.ReceivedDate != nil {
		received := entry.ReceivedDate.Format("2006-01-02")
		resp.ReceivedDate = &received
	}
	return resp
}

// GetLoanDetails handles GET /api/v1/entries/loan/:loanId/details
func (h *EntryHandler) GetLoanDetails(c echo.Context) error {
	loanID, err := uuid.Parse(c.Param("loanId"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	snap, err := h.entryService.Snapshot(loanID)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Str("loan_id", loanID.String()).Msg("Failed to get loan details")
		return NewInternalError(c, "Failed to get loan details")
	}

	return c.JSON(http.StatusOK, LoanDetailsResponse{
		BalanceAmount:            snap.BalanceAmount.StringFixed(2),
		BalanceInterest:          snap.BalanceInterest.StringFixed(2),
		Interest:                 snap.InterestRatePercent.String(),
		CalculatedInterestAmount: snap.CalculatedInterestAmount.StringFixed(2),
		TotalPendingInterest:     snap.TotalPendingInterest.StringFixed(2),
		NextEntryDate:            snap.NextEntryDate.Format("2006-01-02"),
		IsClosed:                 snap.IsClosed,
	})
}

// CreateEntry handles POST /api/v1/entries
func (h *EntryHandler) CreateEntry(c echo.Context) error {
	var req CreateEntryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	loanID, err := uuid.Parse(req.LoanID)
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", []ValidationError{
			{Field: "loanId", Message: "Must be a valid UUID"},
		})
	}

	entryDate, err := time.Parse("2006-01-02", req.EntryDate)
	if err != nil {
		return NewValidationError(c, "Invalid entry date", []ValidationError{
			{Field: "entryDate", Message: "Must be a date in YYYY-MM-DD format"},
		})
	}

	input := service.CreateEntryInput{
		LoanID:           loanID,
		EntryDate:        entryDate,
		ReceivedAmount:   decimal.Zero,
		ReceivedInterest: decimal.Zero,
	}

	if req.ReceivedDate != nil && *req.ReceivedDate != "" {
		receivedDate, err := time.Parse("2006-01-02", *req.ReceivedDate)
		if err != nil {
			return NewValidationError(c, "Invalid received date", []ValidationError{
				{Field: "receivedDate", Message: "Must be a date in YYYY-MM-DD format"},
			})
		}
		input.ReceivedDate = &receivedDate
	}

	if req.ReceivedAmount != "" {
		input.ReceivedAmount, err = decimal.NewFromString(req.ReceivedAmount)
		if err != nil {
			return NewValidationError(c, "Invalid received amount", []ValidationError{
				{Field: "receivedAmount", Message: "Must be a valid decimal number"},
			})
		}
	}
	if req.ReceivedInterest != "" {
		input.ReceivedInterest, err = decimal.NewFromString(req.ReceivedInterest)
		if err != nil {
			return NewValidationError(c, "Invalid received interest", []ValidationError{
				{Field: "receivedInterest", Message: "Must be a valid decimal number"},
			})
		}
	}

	entry, adjustments, err := h.entryService.CreateEntry(c.Request().Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		if errors.Is(err, domain.ErrLoanClosed) {
			return NewConflictError(c, "Loan account is closed")
		}
		if errors.Is(err, domain.ErrEntryAmountExceedsBalance) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "receivedAmount", Message: "Total received amount cannot exceed balance amount"},
			})
		}
		if errors.Is(err, domain.ErrEntryNothingReceived) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "receivedAmount", Message: "Entry must receive an amount or interest"},
			})
		}
		if errors.Is(err, domain.ErrEntryAmountNegative) || errors.Is(err, domain.ErrEntryInterestNegative) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "receivedAmount", Message: "Received values must not be negative"},
			})
		}
		log.Error().Err(err).Str("loan_id", loanID.String()).Msg("Failed to create entry")
		return NewInternalError(c, "Failed to create entry")
	}

	response := CreateEntryResponse{Entry: toEntryResponse(entry)}
	if adjustments != nil {
		response.Adjustments = &AdjustmentsResponse{
			InterestAdjusted:         adjustments.InterestAdjusted,
			OriginalReceivedInterest: adjustments.OriginalReceivedInterest.StringFixed(2),
			AdjustedReceivedInterest: adjustments.AdjustedReceivedInterest.StringFixed(2),
			AmountAdjusted:           adjustments.AmountAdjusted,
			OriginalReceivedAmount:   adjustments.OriginalReceivedAmount.StringFixed(2),
			AdjustedReceivedAmount:   adjustments.AdjustedReceivedAmount.StringFixed(2),
		}
		log.Info().
			Str("entry_id", entry.ID.String()).
			Str("capped_interest", adjustments.AdjustedReceivedInterest.StringFixed(2)).
			Msg("Entry created with interest cap adjustment")
	} else {
		log.Info().Str("entry_id", entry.ID.String()).Msg("Entry created")
	}

	return c.JSON(http.StatusCreated, response)
}

// GetEntriesByLoan handles GET /api/v1/entries/loan/:loanId
func (h *EntryHandler) GetEntriesByLoan(c echo.Context) error {
	loanID, err := uuid.Parse(c.Param("loanId"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	filters := domain.EntryListFilters{}
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		filters.Page = int32(page)
	}
	if pageSize, err := strconv.Atoi(c.QueryParam("pageSize")); err == nil {
		filters.PageSize = int32(pageSize)
	}
	filters = filters.Normalize()

	entries, total, err := h.entryService.ListEntries(loanID, filters)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Str("loan_id", loanID.String()).Msg("Failed to list entries")
		return NewInternalError(c, "Failed to list entries")
	}

	response := ListEntriesResponse{
		Entries:  make([]EntryResponse, len(entries)),
		Total:    total,
		Page:     filters.Page,
		PageSize: filters.PageSize,
	}
	for i, entry := range entries {
		response.Entries[i] = toEntryResponse(entry)
	}

	return c.JSON(http.StatusOK, response)
}
