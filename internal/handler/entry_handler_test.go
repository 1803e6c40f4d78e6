package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/service"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/testutil"
)

func newEntryHandlerFixture() (*EntryHandler, *testutil.MockLoanRepository, *testutil.MockEntryRepository) {
	loanRepo := testutil.NewMockLoanRepository()
	entryRepo := testutil.NewMockEntryRepository()
	entryService := service.NewEntryService(nil, loanRepo, entryRepo)
	return NewEntryHandler(entryService), loanRepo, entryRepo
}

func TestGetLoanDetails_Success(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newEntryHandlerFixture()

	// 10000 at 4% with 100 carried: pending interest 500
	loan := addHandlerTestLoan(loanRepo, decimal.NewFromInt(10000), decimal.NewFromInt(100))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries/loan/"+loan.ID.String()+"/details", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loanId")
	c.SetParamValues(loan.ID.String())

	if err := handler.GetLoanDetails(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response LoanDetailsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.BalanceAmount != "10000.00" {
		t.Errorf("Expected balance '10000.00', got %s", response.BalanceAmount)
	}
	if response.CalculatedInterestAmount != "400.00" {
		t.Errorf("Expected calculated interest '400.00', got %s", response.CalculatedInterestAmount)
	}
	if response.TotalPendingInterest != "500.00" {
		t.Errorf("Expected pending interest '500.00', got %s", response.TotalPendingInterest)
	}
	if response.Interest != "4" {
		t.Errorf("Expected interest rate '4', got %s", response.Interest)
	}
	if response.NextEntryDate != "2026-02-01" {
		t.Errorf("Expected next entry date 2026-02-01, got %s", response.NextEntryDate)
	}
	if response.IsClosed {
		t.Error("Expected open loan")
	}
}

func TestGetLoanDetails_NotFound(t *testing.T) {
	e := echo.New()
	handler, _, _ := newEntryHandlerFixture()

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries/loan/"+id+"/details", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loanId")
	c.SetParamValues(id)

	if err := handler.GetLoanDetails(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestCreateEntryHandler_Success(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newEntryHandlerFixture()

	loan := addHandlerTestLoan(loanRepo, decimal.NewFromInt(10000), decimal.NewFromInt(100))

	reqBody := `{"loanId": "` + loan.ID.String() + `", "entryDate": "2026-02-01", "receivedAmount": "1000", "receivedInterest": "500"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateEntry(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var response CreateEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Adjustments != nil {
		t.Errorf("Expected no adjustments, got %+v", response.Adjustments)
	}
	if response.Entry.ReceivedAmount != "1000.00" {
		t.Errorf("Expected received amount '1000.00', got %s", response.Entry.ReceivedAmount)
	}
	if response.Entry.BalanceAfter != "9000.00" {
		t.Errorf("Expected balance after '9000.00', got %s", response.Entry.BalanceAfter)
	}
}

func TestCreateEntryHandler_CapsInterest(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newEntryHandlerFixture()

	// Pending interest 500; submitting 700 rolls 200 into the amount
	loan := addHandlerTestLoan(loanRepo, decimal.NewFromInt(10000), decimal.NewFromInt(100))

	reqBody := `{"loanId": "` + loan.ID.String() + `", "entryDate": "2026-02-01", "receivedInterest": "700"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateEntry(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var response CreateEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Adjustments == nil {
		t.Fatal("Expected adjustments in response")
	}
	if response.Adjustments.AdjustedReceivedInterest != "500.00" {
		t.Errorf("Expected adjusted interest '500.00', got %s", response.Adjustments.AdjustedReceivedInterest)
	}
	if response.Adjustments.AdjustedReceivedAmount != "200.00" {
		t.Errorf("Expected adjusted amount '200.00', got %s", response.Adjustments.AdjustedReceivedAmount)
	}
	if response.Entry.RequestedInterest != "700.00" {
		t.Errorf("Expected requested interest '700.00', got %s", response.Entry.RequestedInterest)
	}
}

func TestCreateEntryHandler_ExceedsBalance(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newEntryHandlerFixture()

	loan := addHandlerTestLoan(loanRepo, decimal.NewFromInt(100), decimal.Zero)

	reqBody := `{"loanId": "` + loan.ID.String() + `", "entryDate": "2026-02-01", "receivedAmount": "150"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateEntry(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCreateEntryHandler_ClosedLoan(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newEntryHandlerFixture()

	loan := addHandlerTestLoan(loanRepo, decimal.NewFromInt(100), decimal.Zero)
	loan.Closed = true

	reqBody := `{"loanId": "` + loan.ID.String() + `", "entryDate": "2026-02-01", "receivedAmount": "50"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateEntry(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
}

func TestCreateEntryHandler_InvalidDate(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newEntryHandlerFixture()

	loan := addHandlerTestLoan(loanRepo, decimal.NewFromInt(100), decimal.Zero)

	reqBody := `{"loanId": "` + loan.ID.String() + `", "entryDate": "01-02-2026", "receivedAmount": "50"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateEntry(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestGetEntriesByLoan_Success(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newEntryHandlerFixture()

	loan := addHandlerTestLoan(loanRepo, decimal.NewFromInt(10000), decimal.Zero)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries/loan/"+loan.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("loanId")
	c.SetParamValues(loan.ID.String())

	if err := handler.GetEntriesByLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response ListEntriesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Total != 0 {
		t.Errorf("Expected empty list, got total %d", response.Total)
	}

	// Omitted query params: the response reports the page actually served
	if response.Page != 1 {
		t.Errorf("Expected page 1, got %d", response.Page)
	}
	if response.PageSize != domain.DefaultPageSize {
		t.Errorf("Expected page size %d, got %d", domain.DefaultPageSize, response.PageSize)
	}
}
