package adherence

import (
	"time"

	"medication-adherence/internal/platform/clock"

	"github.com/shopspring/decimal"
)

// Fact es el cierre diario de adherencia: uno por (adulto mayor, fecha).
type Fact struct {
	ElderID string
	Date    clock.Date

	Expected  int
	Confirmed int
	Missed    int

	ComputedAt time.Time
}

var hundred = decimal.NewFromInt(100)

// Rate es el porcentaje de tomas confirmadas con dos decimales.
// Un día sin tomas esperadas cuenta como 100.
func (f Fact) Rate() decimal.Decimal {
	if f.Expected <= 0 {
		return hundred
	}
	return decimal.NewFromInt(int64(f.Confirmed)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(f.Expected))).
		Round(2)
}

// HasMissed: el día cuenta como disparador de riesgo.
func (f Fact) HasMissed() bool {
	return f.Missed > 0
}
