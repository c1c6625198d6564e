package models

import (
	"time"
)

const (
	PredictionStatusActive    = "active"
	PredictionStatusResolved  = "resolved"
	PredictionStatusCancelled = "cancelled"
)

// Prediction is one forecaster's stance on one market. At most one active
// row exists per (forecaster, market) pair; resubmission updates in place.
type Prediction struct {
	ID           string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ForecasterID string `gorm:"type:varchar(64);not null;index:idx_predictions_forecaster_market" json:"forecasterId"`
	MarketID     string `gorm:"type:varchar(100);not null;index:idx_predictions_forecaster_market;index" json:"marketId"`
	Platform     string `gorm:"type:varchar(20);not null" json:"platform"`

	Probability float64 `gorm:"not null" json:"probability"`
	Confidence  float64 `gorm:"not null" json:"confidence"`
	Stake       float64 `gorm:"not null;default:1" json:"stake"`

	Status string `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt"`
}

func (Prediction) TableName() string {
	return "predictions"
}
