package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/service"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/testutil"
)

func newLoanHandlerFixture() (*LoanHandler, *testutil.MockLoanRepository, *testutil.MockEntryRepository) {
	loanRepo := testutil.NewMockLoanRepository()
	entryRepo := testutil.NewMockEntryRepository()
	loanService := service.NewLoanService(loanRepo)
	summaryService := service.NewSummaryService(loanRepo, entryRepo)
	return NewLoanHandler(loanService, summaryService), loanRepo, entryRepo
}

func addHandlerTestLoan(loanRepo *testutil.MockLoanRepository, balance, balanceInterest decimal.Decimal) *domain.Loan {
	loan := &domain.Loan{
		ID:                  uuid.New(),
		BorrowerName:        "Ramesh Kumar",
		PrincipalAmount:     decimal.NewFromInt(10000),
		BalanceAmount:       balance,
		BalanceInterest:     balanceInterest,
		InterestRatePercent: decimal.NewFromInt(4),
		StartDate:           time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		NextEntryDate:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	loanRepo.AddLoan(loan)
	return loan
}

func TestCreateLoanHandler_Success(t *testing.T) {
	e := echo.New()
	handler, _, _ := newLoanHandlerFixture()

	reqBody := `{"borrowerName": "Ramesh Kumar", "principalAmount": "10000", "interestRatePercent": "4", "startDate": "2026-01-15"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var response LoanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.BorrowerName != "Ramesh Kumar" {
		t.Errorf("Expected borrower 'Ramesh Kumar', got %s", response.BorrowerName)
	}
	if response.BalanceAmount != "10000.00" {
		t.Errorf("Expected balance '10000.00', got %s", response.BalanceAmount)
	}
	if response.NextEntryDate != "2026-02-15" {
		t.Errorf("Expected next entry date 2026-02-15, got %s", response.NextEntryDate)
	}
}

func TestCreateLoanHandler_InvalidPrincipal(t *testing.T) {
	e := echo.New()
	handler, _, _ := newLoanHandlerFixture()

	reqBody := `{"borrowerName": "Ramesh", "principalAmount": "abc", "startDate": "2026-01-15"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateLoan(c); err != nil {
		t.Fatalf("Expected no error (error should be in response), got %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(problem.Errors) == 0 {
		t.Error("Expected validation errors in response")
	}
}

func TestCreateLoanHandler_EmptyBorrower(t *testing.T) {
	e := echo.New()
	handler, _, _ := newLoanHandlerFixture()

	reqBody := `{"borrowerName": "", "principalAmount": "1000", "startDate": "2026-01-15"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestGetLoanHandler_NotFound(t *testing.T) {
	e := echo.New()
	handler, _, _ := newLoanHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := handler.GetLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetLoanHandler_InvalidID(t *testing.T) {
	e := echo.New()
	handler, _, _ := newLoanHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := handler.GetLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCloseLoanHandler_BalanceOutstanding(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newLoanHandlerFixture()

	loan := addHandlerTestLoan(loanRepo, decimal.NewFromInt(500), decimal.Zero)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/close", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(loan.ID.String())

	if err := handler.CloseLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
}

func TestCloseLoanHandler_Success(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newLoanHandlerFixture()

	loan := addHandlerTestLoan(loanRepo, decimal.Zero, decimal.NewFromInt(50))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/close", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(loan.ID.String())

	if err := handler.CloseLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response LoanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if !response.Closed {
		t.Error("Expected closed loan in response")
	}
	if response.WrittenOffInterest != "50.00" {
		t.Errorf("Expected written off interest '50.00', got %s", response.WrittenOffInterest)
	}
}

func TestGetLoanSummaryHandler(t *testing.T) {
	e := echo.New()
	handler, loanRepo, entryRepo := newLoanHandlerFixture()

	loan := addHandlerTestLoan(loanRepo, decimal.NewFromInt(9000), decimal.Zero)
	entryRepo.AddEntry(&domain.Entry{
		LoanID:           loan.ID,
		EntryDate:        time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		ReceivedAmount:   decimal.NewFromInt(1000),
		ReceivedInterest: decimal.NewFromInt(400),
		BalanceAfter:     decimal.NewFromInt(9000),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/"+loan.ID.String()+"/summary", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(loan.ID.String())

	if err := handler.GetLoanSummary(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response LoanSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.TotalPrincipalReceived != "1000.00" {
		t.Errorf("Expected total principal '1000.00', got %s", response.TotalPrincipalReceived)
	}
	if len(response.Months) != 1 {
		t.Errorf("Expected 1 month, got %d", len(response.Months))
	}
}

func TestGetLoansHandler_Pagination(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newLoanHandlerFixture()

	addHandlerTestLoan(loanRepo, decimal.NewFromInt(100), decimal.Zero)
	addHandlerTestLoan(loanRepo, decimal.NewFromInt(200), decimal.Zero)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans?page=1&pageSize=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.GetLoans(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response ListLoansResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Total != 2 {
		t.Errorf("Expected total 2, got %d", response.Total)
	}
	if len(response.Loans) != 2 {
		t.Errorf("Expected 2 loans, got %d", len(response.Loans))
	}
}

func TestGetLoansHandler_DefaultPagination(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newLoanHandlerFixture()

	addHandlerTestLoan(loanRepo, decimal.NewFromInt(100), decimal.Zero)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.GetLoans(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var response ListLoansResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Page != 1 {
		t.Errorf("Expected page 1, got %d", response.Page)
	}
	if response.PageSize != domain.DefaultPageSize {
		t.Errorf("Expected page size %d, got %d", domain.DefaultPageSize, response.PageSize)
	}
}
