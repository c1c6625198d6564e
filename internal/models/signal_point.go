package models

import (
	"time"
)

// DefaultLiquidity is applied when a contributed point carries no liquidity
// column. Every consumer must use the same fallback.
const DefaultLiquidity = 1.0

// SignalPoint is one day of a probability trajectory, either contributed
// via CSV or captured from live market history. The market-structure extras
// are typed nullable columns: present-vs-absent is meaningful and gates
// upstream display, so they are not folded into a JSON blob.
type SignalPoint struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SeriesSlug string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_signal_points_series_date" json:"seriesSlug"`
	Date       time.Time `gorm:"type:timestamptz;not null;uniqueIndex:idx_signal_points_series_date" json:"date"`

	P    float64  `gorm:"not null" json:"p"`
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`

	Liquidity float64 `gorm:"not null;default:1" json:"liquidity"`
	Sentiment *string `gorm:"type:varchar(50)" json:"sentiment,omitempty"`

	RefValue      *float64 `json:"refValue,omitempty"`
	Concentration *float64 `json:"concentration,omitempty"`
	CostToMove    *float64 `json:"costToMove,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"-"`
}

func (SignalPoint) TableName() string {
	return "signal_points"
}

// Band returns the dispersion width, 0 when either bound is absent.
func (p SignalPoint) Band() float64 {
	if p.Low == nil || p.High == nil {
		return 0
	}
	return *p.High - *p.Low
}
