package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrDayCloseAlreadyRun = errors.New("day close already ran for this date")

// DayCloseRun records one execution of the day-close batch: every open loan
// whose next entry date had passed got its period interest folded into the
// carried balance interest.
type DayCloseRun struct {
	ID              uuid.UUID       `json:"id"`
	RunDate         time.Time       `json:"runDate"`
	LoansProcessed  int32           `json:"loansProcessed"`
	InterestAccrued decimal.Decimal `json:"interestAccrued"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type DayCloseRepository interface {
	Create(run *DayCloseRun) (*DayCloseRun, error)
	GetByRunDate(runDate time.Time) (*DayCloseRun, error)
	ListRecent(limit int32) ([]*DayCloseRun, error)
}
