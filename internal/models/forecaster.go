package models

import (
	"time"
)

// Forecaster is a wallet-authenticated participant. Created on first login,
// never deleted. Reputation and accuracy stats are owned by the reputation
// updater; stake/count bookkeeping is owned by prediction submission.
type Forecaster struct {
	ID            string  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	WalletAddress string  `gorm:"type:varchar(100);uniqueIndex;not null" json:"walletAddress"`
	Reputation    float64 `gorm:"not null;default:0.5" json:"reputation"`
	TotalStake    float64 `gorm:"not null;default:0" json:"totalStake"`

	PredictionCount int     `gorm:"not null;default:0" json:"predictionCount"`
	ResolvedCount   int     `gorm:"not null;default:0" json:"resolvedCount"`
	AvgBrierScore   float64 `gorm:"not null;default:0.5" json:"avgBrierScore"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt"`
}

func (Forecaster) TableName() string {
	return "forecasters"
}
