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

// LoanHandler handles loan account HTTP requests
type LoanHandler struct {
	loanService    *service.LoanService
	summaryService *service.SummaryService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService *service.LoanService, summaryService *service.SummaryService) *LoanHandler {
	return &LoanHandler{
		loanService:    loanService,
		summaryService: summaryService,
	}
}

// CreateLoanRequest represents the create loan request body
type CreateLoanRequest struct {
	BorrowerName        string  `json:"borrowerName"`
	PrincipalAmount     string  `json:"principalAmount"`
	InterestRatePercent string  `json:"interestRatePercent"`
	StartDate           string  `json:"startDate"`
	Notes               *string `json:"notes,omitempty"`
}

// UpdateLoanRequest represents the update loan request body
type UpdateLoanRequest struct {
	BorrowerName        *string `json:"borrowerName,omitempty"`
	InterestRatePercent *string `json:"interestRatePercent,omitempty"`
	Notes               *string `json:"notes,omitempty"`
}

// LoanResponse represents a loan account in API responses
type LoanResponse struct {
	ID                  string  `json:"id"`
	BorrowerName        string  `json:"borrowerName"`
	PrincipalAmount     string  `json:"principalAmount"`
	BalanceAmount       string  `json:"balanceAmount"`
	BalanceInterest     string  `json:"balanceInterest"`
	InterestRatePercent string  `json:"interestRatePercent"`
	StartDate           string  `json:"startDate"`
	NextEntryDate       string  `json:"nextEntryDate"`
	Closed              bool    `json:"closed"`
	ClosedAt            *string `json:"closedAt,omitempty"`
	WrittenOffInterest  string  `json:"writtenOffInterest"`
	Notes               *string `json:"notes,omitempty"`
	CreatedAt           string  `json:"createdAt"`
	UpdatedAt           string  `json:"updatedAt"`
}

// ListLoansResponse represents the paginated loan list
type ListLoansResponse struct {
	Loans    []LoanResponse `json:"loans"`
	Total    int64          `json:"total"`
	Page     int32          `json:"page"`
	PageSize int32          `json:"pageSize"`
}

func toLoanResponse(loan *domain.Loan) LoanResponse {
	resp := LoanResponse{
		ID:                  loan.ID.String(),
		BorrowerName:        loan.BorrowerName,
		PrincipalAmount:     loan.PrincipalAmount.StringFixed(2),
		BalanceAmount:       loan.BalanceAmount.StringFixed(2),
		BalanceInterest:     loan.BalanceInterest.StringFixed(2),
		InterestRatePercent: loan.InterestRatePercent.String(),
		StartDate:           loan.StartDate.Format("2006-01-02"),
		NextEntryDate:       loan.NextEntryDate.Format("2006-01-02"),
		Closed:              loan.Closed,
		WrittenOffInterest:  loan.WrittenOffInterest.StringFixed(2),
		Notes:               loan.Notes,
		CreatedAt:           loan.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           loan.UpdatedAt.Format(time.RFC3339),
	}
	if loan.ClosedAt != nil {
		closedAt := loan.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closedAt
	}
	return resp
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	principal, err := decimal.NewFromString(req.PrincipalAmount)
	if err != nil {
		return NewValidationError(c, "Invalid principal amount", []ValidationError{
			{Field: "principalAmount", Message: "Must be a valid decimal number"},
		})
	}

	rate := decimal.Zero
	if req.InterestRatePercent != "" {
		rate, err = decimal.NewFromString(req.InterestRatePercent)
		if err != nil {
			return NewValidationError(c, "Invalid interest rate", []ValidationError{
				{Field: "interestRatePercent", Message: "Must be a valid decimal number"},
			})
		}
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return NewValidationError(c, "Invalid start date", []ValidationError{
			{Field: "startDate", Message: "Must be a date in YYYY-MM-DD format"},
		})
	}

	loan, err := h.loanService.CreateLoan(service.CreateLoanInput{
		BorrowerName:        req.BorrowerName,
		PrincipalAmount:     principal,
		InterestRatePercent: rate,
		StartDate:           startDate,
		Notes:               req.Notes,
	})
	if err != nil {
		if errors.Is(err, domain.ErrLoanBorrowerEmpty) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "borrowerName", Message: "Borrower name is required"},
			})
		}
		if errors.Is(err, domain.ErrLoanBorrowerTooLong) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "borrowerName", Message: "Borrower name must be 200 characters or less"},
			})
		}
		if errors.Is(err, domain.ErrLoanPrincipalInvalid) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "principalAmount", Message: "Principal amount must be positive"},
			})
		}
		if errors.Is(err, domain.ErrLoanRateInvalid) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "interestRatePercent", Message: "Interest rate must not be negative"},
			})
		}
		log.Error().Err(err).Msg("Failed to create loan")
		return NewInternalError(c, "Failed to create loan")
	}

	log.Info().Str("loan_id", loan.ID.String()).Str("borrower", loan.BorrowerName).Msg("Loan created")

	return c.JSON(http.StatusCreated, toLoanResponse(loan))
}

// GetLoans handles GET /api/v1/loans
func (h *LoanHandler) GetLoans(c echo.Context) error {
	filters := domain.LoanListFilters{}
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		filters.Page = int32(page)
	}
	if pageSize, err := strconv.Atoi(c.QueryParam("pageSize")); err == nil {
		filters.PageSize = int32(pageSize)
	}
	filters.IncludeClosed = c.QueryParam("includeClosed") == "true"
	filters = filters.Normalize()

	loans, total, err := h.loanService.ListLoans(filters)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list loans")
		return NewInternalError(c, "Failed to list loans")
	}

	response := ListLoansResponse{
		Loans:    make([]LoanResponse, len(loans)),
		Total:    total,
		Page:     filters.Page,
		PageSize: filters.PageSize,
	}
	for i, loan := range loans {
		response.Loans[i] = toLoanResponse(loan)
	}

	return c.JSON(http.StatusOK, response)
}

// GetLoan handles GET /api/v1/loans/:id
func (h *LoanHandler) GetLoan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	loan, err := h.loanService.GetLoan(id)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Str("loan_id", id.String()).Msg("Failed to get loan")
		return NewInternalError(c, "Failed to get loan")
	}

	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// UpdateLoan handles PATCH /api/v1/loans/:id
func (h *LoanHandler) UpdateLoan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	var req UpdateLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input := service.UpdateLoanInput{
		BorrowerName: req.BorrowerName,
		Notes:        req.Notes,
	}
	if req.InterestRatePercent != nil {
		rate, err := decimal.NewFromString(*req.InterestRatePercent)
		if err != nil {
			return NewValidationError(c, "Invalid interest rate", []ValidationError{
				{Field: "interestRatePercent", Message: "Must be a valid decimal number"},
			})
		}
		input.InterestRatePercent = &rate
	}

	loan, err := h.loanService.UpdateLoan(id, input)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		if errors.Is(err, domain.ErrLoanClosed) {
			return NewConflictError(c, "Loan account is closed")
		}
		if errors.Is(err, domain.ErrLoanBorrowerEmpty) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "borrowerName", Message: "Borrower name is required"},
			})
		}
		if errors.Is(err, domain.ErrLoanRateInvalid) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "interestRatePercent", Message: "Interest rate must not be negative"},
			})
		}
		log.Error().Err(err).Str("loan_id", id.String()).Msg("Failed to update loan")
		return NewInternalError(c, "Failed to update loan")
	}

	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// CloseLoan handles POST /api/v1/loans/:id/close
func (h *LoanHandler) CloseLoan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	loan, err := h.loanService.CloseLoan(id)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		if errors.Is(err, domain.ErrLoanAlreadyClosed) {
			return NewConflictError(c, "Loan account is already closed")
		}
		if errors.Is(err, domain.ErrLoanBalanceOutstanding) {
			return NewConflictError(c, "Loan cannot be closed while balance amount is outstanding")
		}
		log.Error().Err(err).Str("loan_id", id.String()).Msg("Failed to close loan")
		return NewInternalError(c, "Failed to close loan")
	}

	log.Info().Str("loan_id", id.String()).Str("written_off", loan.WrittenOffInterest.StringFixed(2)).Msg("Loan closed")

	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// DeleteLoan handles DELETE /api/v1/loans/:id
func (h *LoanHandler) DeleteLoan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	if err := h.loanService.DeleteLoan(id); err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Str("loan_id", id.String()).Msg("Failed to delete loan")
		return NewInternalError(c, "Failed to delete loan")
	}

	return c.NoContent(http.StatusNoContent)
}

// MonthlySummaryResponse represents one month in a loan summary
type MonthlySummaryResponse struct {
	Year              int32  `json:"year"`
	Month             int32  `json:"month"`
	EntryCount        int64  `json:"entryCount"`
	PrincipalReceived string `json:"principalReceived"`
	InterestReceived  string `json:"interestReceived"`
	ClosingBalance    string `json:"closingBalance"`
}

// LoanSummaryResponse represents the aggregate loan summary
type LoanSummaryResponse struct {
	Loan                   LoanResponse             `json:"loan"`
	TotalPrincipalReceived string                   `json:"totalPrincipalReceived"`
	TotalInterestReceived  string                   `json:"totalInterestReceived"`
	TotalPendingInterest   string                   `json:"totalPendingInterest"`
	Months                 []MonthlySummaryResponse `json:"months"`
}

// GetLoanSummary handles GET /api/v1/loans/:id/summary
func (h *LoanHandler) GetLoanSummary(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	summary, err := h.summaryService.GetLoanSummary(id)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Str("loan_id", id.String()).Msg("Failed to get loan summary")
		return NewInternalError(c, "Failed to get loan summary")
	}

	response := LoanSummaryResponse{
		Loan:                   toLoanResponse(summary.Loan),
		TotalPrincipalReceived: summary.TotalPrincipalReceived.StringFixed(2),
		TotalInterestReceived:  summary.TotalInterestReceived.StringFixed(2),
		TotalPendingInterest:   summary.TotalPendingInterest.StringFixed(2),
		Months:                 make([]MonthlySummaryResponse, len(summary.Months)),
	}
	for i, m := range summary.Months {
		response.Months[i] = MonthlySummaryResponse{
			Year:              m.Year,
			Month:             m.Month,
			EntryCount:        m.EntryCount,
			PrincipalReceived: m.PrincipalReceived.StringFixed(2),
			InterestReceived:  m.InterestReceived.StringFixed(2),
			ClosingBalance:    m.ClosingBalance.StringFixed(2),
		}
	}

	return c.JSON(http.StatusOK, response)
}
