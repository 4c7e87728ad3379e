package catalog

import (
	"fmt"

	"github.com/onehorn/event-booking-backend/internal/models"
)

// Stage fractions in basis points. Fractional paise go to the completion stage,
// so the three stage amounts always sum to the total.
const (
	InitialBasisPoints    = 1000
	ProgressBasisPoints   = 7000
	CompletionBasisPoints = 2000

	totalBasisPoints = 10000
)

func init() {
	if InitialBasisPoints+ProgressBasisPoints+CompletionBasisPoints != totalBasisPoints {
		panic("catalog: stage fractions must sum to 100%")
	}
}

// StagePercent returns the stage's share of the total in whole percent
func StagePercent(stage models.PaymentStage) int {
	return basisPoints(stage) / 100
}

func basisPoints(stage models.PaymentStage) int {
	switch stage {
	case models.StageInitial:
		return InitialBasisPoints
	case models.StageProgress:
		return ProgressBasisPoints
	case models.StageCompletion:
		return CompletionBasisPoints
	}
	return 0
}

// StageAmount returns the amount due for a stage of a booking worth total
func StageAmount(total models.Money, stage models.PaymentStage) (models.Money, error) {
	if total < 0 {
		return 0, models.ErrNegativeMoney
	}
	b := Breakdown(total)
	switch stage {
	case models.StageInitial:
		return b.Initial, nil
	case models.StageProgress:
		return b.Progress, nil
	case models.StageCompletion:
		return b.Completion, nil
	}
	return 0, fmt.Errorf("unknown payment stage %q", stage)
}

// StageBreakdown holds the three stage amounts of a total
type StageBreakdown struct {
	Initial    models.Money `json:"initial"`
	Progress   models.Money `json:"progress"`
	Completion models.Money `json:"completion"`
}

// Breakdown splits total into the three stage amounts
func Breakdown(total models.Money) StageBreakdown {
	t := int64(total)
	initial := t * InitialBasisPoints / totalBasisPoints
	progress := t * ProgressBasisPoints / totalBasisPoints
	return StageBreakdown{
		Initial:    models.Money(initial),
		Progress:   models.Money(progress),
		Completion: models.Money(t - initial - progress),
	}
}

// Amount returns the breakdown entry for a stage
func (b StageBreakdown) Amount(stage models.PaymentStage) models.Money {
	switch stage {
	case models.StageInitial:
		return b.Initial
	case models.StageProgress:
		return b.Progress
	case models.StageCompletion:
		return b.Completion
	}
	return 0
}

// ToMinorUnits returns the amount in paise for the payment gateway
func ToMinorUnits(amount models.Money) int64 {
	return amount.Paise()
}
