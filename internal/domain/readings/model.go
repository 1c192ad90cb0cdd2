package readings

import "time"

type Source string

const (
	SourceManual Source = "manual"
	SourceKafka  Source = "kafka"
)

type Status string

const (
	StatusActive Status = "active"
	StatusVoided Status = "voided"
)

// Record es un registro de riesgo: una lectura de salud marcada (o no) como anormal.
type Record struct {
	ID      string
	ElderID string

	// Momento de la medición (no de la carga).
	RecordedAt time.Time

	SystolicBP  *int
	DiastolicBP *int
	Pulse       *int

	FlaggedAbnormal bool

	Source     Source
	RecordedBy string
	Status     Status
	CreatedAt  time.Time
}

// Umbrales de alerta para presión y pulso.
const (
	SystolicHigh  = 140
	DiastolicHigh = 90
	PulseLow      = 50
	PulseHigh     = 100
)

// IsAbnormal aplica los umbrales a las mediciones presentes.
func IsAbnormal(systolic, diastolic, pulse *int) bool {
	if systolic != nil && *systolic >= SystolicHigh {
		return true
	}
	if diastolic != nil && *diastolic >= DiastolicHigh {
		return true
	}
	if pulse != nil && (*pulse <= PulseLow || *pulse >= PulseHigh) {
		return true
	}
	return false
}
