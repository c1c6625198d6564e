package models

import (
	"time"
)

// Score is the append-only ledger row written when a prediction's market
// resolves. Never mutated; reputation is always recomputed from these.
type Score struct {
	ID           string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	PredictionID string `gorm:"type:varchar(64);not null;index" json:"predictionId"`
	ForecasterID string `gorm:"type:varchar(64);not null;index" json:"forecasterId"`
	MarketID     string `gorm:"type:varchar(100);not null;index" json:"marketId"`

	PredictedProbability float64 `gorm:"not null" json:"predictedProbability"`
	ActualOutcome        float64 `gorm:"not null" json:"actualOutcome"`
	BrierScore           float64 `gorm:"not null" json:"brierScore"`
	Stake                float64 `gorm:"not null" json:"stake"`

	ResolvedAt time.Time `gorm:"type:timestamptz;not null;index" json:"resolvedAt"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
}

func (Score) TableName() string {
	return "scores"
}
