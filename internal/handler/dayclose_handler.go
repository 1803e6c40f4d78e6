package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/service"
)

// DayCloseHandler handles day-close batch HTTP requests
type DayCloseHandler struct {
	dayCloseService *service.DayCloseService
}

// NewDayCloseHandler creates a new DayCloseHandler
func NewDayCloseHandler(dayCloseService *service.DayCloseService) *DayCloseHandler {
	return &DayCloseHandler{dayCloseService: dayCloseService}
}

// RunDayCloseRequest represents the day-close trigger request body
type RunDayCloseRequest struct {
	// AsOf runs the batch for a specific date (YYYY-MM-DD); defaults to today
	AsOf string `json:"asOf,omitempty"`
}

// DayCloseRunResponse represents a day-close run in API responses
type DayCloseRunResponse struct {
	ID              string `json:"id"`
	RunDate         string `json:"runDate"`
	LoansProcessed  int32  `json:"loansProcessed"`
	InterestAccrued string `json:"interestAccrued"`
	CreatedAt       string `json:"createdAt"`
}

func toDayCloseRunResponse(run *domain.DayCloseRun) DayCloseRunResponse {
	return DayCloseRunResponse{
		ID:              run.ID.String(),
		RunDate:         run.RunDate.Format("2006-01-02"),
		LoansProcessed:  run.LoansProcessed,
		InterestAccrued: run.InterestAccrued.StringFixed(2),
		CreatedAt:       run.CreatedAt.Format(time.RFC3339),
	}
}

// RunDayClose handles POST /api/v1/day-close
func (h *DayCloseHandler) RunDayClose(c echo.Context) error {
	var req RunDayCloseRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	asOf := time.Now().UTC()
	if req.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			return NewValidationError(c, "Invalid asOf date", []ValidationError{
				{Field: "asOf", Message: "Must be a date in YYYY-MM-DD format"},
			})
		}
		asOf = parsed
	}

	run, err := h.dayCloseService.Run(c.Request().Context(), asOf)
	if err != nil {
		if errors.Is(err, domain.ErrDayCloseAlreadyRun) {
			return NewConflictError(c, "Day close already ran for this date")
		}
		log.Error().Err(err).Msg("Day close run failed")
		return NewInternalError(c, "Day close run failed")
	}

	return c.JSON(http.StatusOK, toDayCloseRunResponse(run))
}

// GetDayCloseRuns handles GET /api/v1/day-close/runs
func (h *DayCloseHandler) GetDayCloseRuns(c echo.Context) error {
	var limit int32
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		limit = int32(n)
	}

	runs, err := h.dayCloseService.ListRuns(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list day close runs")
		return NewInternalError(c, "Failed to list day close runs")
	}

	response := make([]DayCloseRunResponse, len(runs))
	for i, run := range runs {
		response[i] = toDayCloseRunResponse(run)
	}

	return c.JSON(http.StatusOK, response)
}
