package models

import (
	"gogrowth/domain/core"
)

// StrainSummary is the flat per-strain result row written by the batch
// driver and returned by the API: the winning model, its parameters and the
// derived statistics a downstream plotting layer needs.
type StrainSummary struct {
	ID        core.AnalysisID `json:"id" db:"id"`
	File      string          `json:"file" db:"file"`
	Strain    string          `json:"strain" db:"strain"`
	Model     string          `json:"model" db:"model"`
	BIC       float64         `json:"bic" db:"bic"`
	AIC       float64         `json:"aic" db:"aic"`
	Y0        float64         `json:"y0" db:"y0"`
	K         float64         `json:"k" db:"k"`
	R         float64         `json:"r" db:"r"`
	Nu        float64         `json:"nu" db:"nu"`
	Q0        float64         `json:"q0" db:"q0"`
	V         float64         `json:"v" db:"v"`
	Lag       float64         `json:"lag" db:"lag"`
	LagLow    float64         `json:"lag_low" db:"lag_low"`
	LagHigh   float64         `json:"lag_high" db:"lag_high"`
	MaxGrowth float64         `json:"max_growth_rate" db:"max_growth_rate"`
	HasLag    bool            `json:"has_lag" db:"has_lag"`
	HasNu     bool            `json:"has_nu" db:"has_nu"`
	Benchmark bool            `json:"benchmark" db:"benchmark"`
	Fitness   float64         `json:"fitness" db:"fitness"`
	Outliers  []string        `json:"outliers,omitempty" db:"-"`
	CreatedAt core.Timestamp  `json:"created_at" db:"created_at"`
}
