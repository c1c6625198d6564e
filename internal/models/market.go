package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	MarketStatusOpen     = "open"
	MarketStatusClosed   = "closed"
	MarketStatusResolved = "resolved"
)

// Market is the local cache of feed market metadata, refreshed by the
// catalog sync job. Outcome is set only once the feed reports one.
type Market struct {
	ID       string  `gorm:"primaryKey;type:varchar(100)" json:"id"`
	Platform string  `gorm:"type:varchar(20);not null;index" json:"platform"`
	Title    string  `gorm:"type:text;not null" json:"title"`
	Slug     *string `gorm:"type:text;index" json:"slug,omitempty"`
	Category string  `gorm:"type:varchar(30);not null;default:'other';index" json:"category"`

	Status   string   `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	YesPrice *float64 `json:"yesPrice,omitempty"`
	Outcome  *float64 `json:"outcome,omitempty"`

	Volume    *decimal.Decimal `gorm:"type:numeric(30,10)" json:"volume,omitempty"`
	Liquidity *decimal.Decimal `gorm:"type:numeric(30,10)" json:"liquidity,omitempty"`

	EndTime    *time.Time     `gorm:"type:timestamptz" json:"endTime,omitempty"`
	LastSeenAt time.Time      `gorm:"type:timestamptz;not null" json:"lastSeenAt"`
	RawJSON    datatypes.JSON `gorm:"type:jsonb" json:"-"`
}

func (Market) TableName() string {
	return "markets"
}
