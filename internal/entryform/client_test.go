package entryform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClientLoanSnapshot(t *testing.T) {
	loanID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/entries/loan/"+loanID.String()+"/details", r.URL.Path)
		assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"balanceAmount": "10000.00",
			"balanceInterest": "150.00",
			"interest": "3.50",
			"calculatedInterestAmount": "350.00",
			"totalPendingInterest": "500.00",
			"nextEntryDate": "2026-09-01",
			"isClosed": false
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithToken("token123"))
	snap, err := client.LoanSnapshot(context.Background(), loanID)

	assert.NoError(t, err)
	assert.True(t, snap.BalanceAmount.Equal(decimal.RequireFromString("10000.00")))
	assert.True(t, snap.TotalPendingInterest.Equal(decimal.RequireFromString("500.00")))
	assert.Equal(t, 2026, snap.NextEntryDate.Year())
	assert.False(t, snap.IsClosed)
}

func TestClientSubmitEntry_WithAdjustments(t *testing.T) {
	entryID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/entries", r.URL.Path)

		var req SubmitEntryRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "700.00", req.ReceivedInterest)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"entry": {"id": "` + entryID.String() + `"},
			"adjustments": {
				"interestAdjusted": true,
				"originalReceivedInterest": "700.00",
				"adjustedReceivedInterest": "500.00",
				"amountAdjusted": true,
				"originalReceivedAmount": "0.00",
				"adjustedReceivedAmount": "200.00"
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.SubmitEntry(context.Background(), SubmitEntryRequest{
		LoanID:           uuid.New(),
		EntryDate:        "2026-08-01",
		ReceivedInterest: "700.00",
	})

	assert.NoError(t, err)
	assert.Equal(t, entryID, result.EntryID)
	assert.NotNil(t, result.Adjustments)
	assert.True(t, result.Adjustments.InterestAdjusted)
	assert.True(t, result.Adjustments.AdjustedReceivedInterest.Equal(decimal.RequireFromString("500.00")))
	assert.True(t, result.Adjustments.AdjustedReceivedAmount.Equal(decimal.RequireFromString("200.00")))
}

func TestClientSubmitEntry_NoAdjustments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"entry": {"id": "` + uuid.New().String() + `"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.SubmitEntry(context.Background(), SubmitEntryRequest{
		LoanID:         uuid.New(),
		EntryDate:      "2026-08-01",
		ReceivedAmount: "100.00",
	})

	assert.NoError(t, err)
	assert.Nil(t, result.Adjustments)
}

func TestClientSubmitEntry_ProblemDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"about:blank","title":"Validation Error","status":400,"detail":"total received amount cannot exceed balance amount"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.SubmitEntry(context.Background(), SubmitEntryRequest{
		LoanID:         uuid.New(),
		EntryDate:      "2026-08-01",
		ReceivedAmount: "999999.00",
	})

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Detail, "cannot exceed balance amount")
}
