package models

import (
	"time"
)

// ResolvedMarket records a market's known binary outcome. The market id is
// the primary key, so a market can be resolved at most once; the insert is
// the gate two concurrent sweeps race on.
type ResolvedMarket struct {
	MarketID string  `gorm:"primaryKey;type:varchar(100)" json:"marketId"`
	Platform string  `gorm:"type:varchar(20);not null" json:"platform"`
	Title    string  `gorm:"type:text;not null" json:"title"`
	Outcome  float64 `gorm:"not null" json:"outcome"`

	ResolvedAt time.Time `gorm:"type:timestamptz;not null;index" json:"resolvedAt"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
}

func (ResolvedMarket) TableName() string {
	return "resolved_markets"
}
