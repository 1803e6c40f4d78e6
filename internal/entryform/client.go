package entryform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/shopspring/decimal"
)

const defaultClientTimeout = 15 * time.Second

// Client talks to the servicing API. It implements SnapshotSource and is the
// submission path for completed forms.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client for the API at baseURL (e.g.
// "https://api.example.com"; the /api/v1 prefix is added internally).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// snapshotPayload mirrors the loan details response; money travels as
// 2-decimal strings.
type snapshotPayload struct {
	BalanceAmount            string `json:"balanceAmount"`
	BalanceInterest          string `json:"balanceInterest"`
	Interest                 string `json:"interest"`
	CalculatedInterestAmount string `json:"calculatedInterestAmount"`
	TotalPendingInterest     string `json:"totalPendingInterest"`
	NextEntryDate            string `json:"nextEntryDate"`
	IsClosed                 bool   `json:"isClosed"`
}

// LoanSnapshot fetches the authoritative snapshot for a loan.
func (c *Client) LoanSnapshot(ctx context.Context, loanID uuid.UUID) (*domain.LoanSnapshot, error) {
	var payload snapshotPayload
	url := fmt.Sprintf("%s/api/v1/entries/loan/%s/details", c.baseURL, loanID)
	if err := c.do(ctx, http.MethodGet, url, nil, http.StatusOK, &payload); err != nil {
		return nil, err
	}

	snap := &domain.LoanSnapshot{IsClosed: payload.IsClosed}
	var err error
	if snap.BalanceAmount, err = decimal.NewFromString(payload.BalanceAmount); err != nil {
		return nil, fmt.Errorf("bad balanceAmount %q: %w", payload.BalanceAmount, err)
	}
	if snap.BalanceInterest, err = decimal.NewFromString(payload.BalanceInterest); err != nil {
		return nil, fmt.Errorf("bad balanceInterest %q: %w", payload.BalanceInterest, err)
	}
	if snap.InterestRatePercent, err = decimal.NewFromString(payload.Interest); err != nil {
		return nil, fmt.Errorf("bad interest %q: %w", payload.Interest, err)
	}
	if snap.CalculatedInterestAmount, err = decimal.NewFromString(payload.CalculatedInterestAmount); err != nil {
		return nil, fmt.Errorf("bad calculatedInterestAmount %q: %w", payload.CalculatedInterestAmount, err)
	}
	if snap.TotalPendingInterest, err = decimal.NewFromString(payload.TotalPendingInterest); err != nil {
		return nil, fmt.Errorf("bad totalPendingInterest %q: %w", payload.TotalPendingInterest, err)
	}
	if payload.NextEntryDate != "" {
		if snap.NextEntryDate, err = time.Parse("2006-01-02", payload.NextEntryDate); err != nil {
			return nil, fmt.Errorf("bad nextEntryDate %q: %w", payload.NextEntryDate, err)
		}
	}
	return snap, nil
}

// SubmitEntryRequest is the POST /entries payload built from a validated form.
type SubmitEntryRequest struct {
	LoanID           uuid.UUID `json:"loanId"`
	EntryDate        string    `json:"entryDate"`
	ReceivedDate     *string   `json:"receivedDate,omitempty"`
	ReceivedAmount   string    `json:"receivedAmount,omitempty"`
	ReceivedInterest string    `json:"receivedInterest,omitempty"`
}

// adjustmentsPayload mirrors the server's adjustments block.
type adjustmentsPayload struct {
	InterestAdjusted         bool   `json:"interestAdjusted"`
	OriginalReceivedInterest string `json:"originalReceivedInterest"`
	AdjustedReceivedInterest string `json:"adjustedReceivedInterest"`
	AmountAdjusted           bool   `json:"amountAdjusted"`
	OriginalReceivedAmount   string `json:"originalReceivedAmount"`
	AdjustedReceivedAmount   string `json:"adjustedReceivedAmount"`
}

type submitEntryPayload struct {
	Entry struct {
		ID uuid.UUID `json:"id"`
	} `json:"entry"`
	Adjustments *adjustmentsPayload `json:"adjustments,omitempty"`
}

// SubmitEntryResult reports the created entry and, when the server changed
// the submitted values during allocation, its authoritative adjustments.
// Server adjustments are distinct from the form's local preview and must be
// surfaced as such.
type SubmitEntryResult struct {
	EntryID     uuid.UUID
	Adjustments *domain.EntryAdjustments
}

// SubmitEntry posts a new entry.
func (c *Client) SubmitEntry(ctx context.Context, req SubmitEntryRequest) (*SubmitEntryResult, error) {
	var payload submitEntryPayload
	url := c.baseURL + "/api/v1/entries"
	if err := c.do(ctx, http.MethodPost, url, req, http.StatusCreated, &payload); err != nil {
		return nil, err
	}

	result := &SubmitEntryResult{EntryID: payload.Entry.ID}
	if payload.Adjustments != nil {
		adj, err := payload.Adjustments.toDomain()
		if err != nil {
			return nil, err
		}
		result.Adjustments = adj
	}
	return result, nil
}

func (p *adjustmentsPayload) toDomain() (*domain.EntryAdjustments, error) {
	adj := &domain.EntryAdjustments{
		InterestAdjusted: p.InterestAdjusted,
		AmountAdjusted:   p.AmountAdjusted,
	}
	var err error
	if adj.OriginalReceivedInterest, err = decimal.NewFromString(p.OriginalReceivedInterest); err != nil {
		return nil, fmt.Errorf("bad originalReceivedInterest %q: %w", p.OriginalReceivedInterest, err)
	}
	if adj.AdjustedReceivedInterest, err = decimal.NewFromString(p.AdjustedReceivedInterest); err != nil {
		return nil, fmt.Errorf("bad adjustedReceivedInterest %q: %w", p.AdjustedReceivedInterest, err)
	}
	if adj.OriginalReceivedAmount, err = decimal.NewFromString(p.OriginalReceivedAmount); err != nil {
		return nil, fmt.Errorf("bad originalReceivedAmount %q: %w", p.OriginalReceivedAmount, err)
	}
	if adj.AdjustedReceivedAmount, err = decimal.NewFromString(p.AdjustedReceivedAmount); err != nil {
		return nil, fmt.Errorf("bad adjustedReceivedAmount %q: %w", p.AdjustedReceivedAmount, err)
	}
	return adj, nil
}

// APIError is a non-2xx response from the servicing API.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Detail)
}

func (c *Client) do(ctx context.Context, method, url string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		// Problem Details body; fall back to raw text
		var problem struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := string(data)
		if json.Unmarshal(data, &problem) == nil {
			if problem.Detail != "" {
				detail = problem.Detail
			} else if problem.Title != "" {
				detail = problem.Title
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Detail: detail}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
