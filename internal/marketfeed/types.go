package marketfeed

import (
	"time"
)

const (
	PlatformPolymarket = "polymarket"
	PlatformKalshi     = "kalshi"
)

// kalshiPriceDivisor converts Kalshi cent prices to probabilities.
const kalshiPriceDivisor = 100

// Market is the feed's view of one market, normalized across platforms.
type Market struct {
	ID        string     `json:"id"`
	Platform  string     `json:"platform"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug,omitempty"`
	Category  string     `json:"category"`
	Status    string     `json:"status"`
	YesPrice  *float64   `json:"yesPrice,omitempty"`
	Outcome   *float64   `json:"outcome,omitempty"`
	Volume    *float64   `json:"volume,omitempty"`
	Liquidity *float64   `json:"liquidity,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Raw       []byte     `json:"-"`
}

// ResolvedOutcome is a market whose real-world outcome the feed can state.
type ResolvedOutcome struct {
	MarketID   string
	Platform   string
	Title      string
	Outcome    float64
	ResolvedAt time.Time
}

// PricePoint is one sample of a market's probability history.
type PricePoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Probability float64   `json:"probability"`
	Liquidity   *float64  `json:"liquidity,omitempty"`
}

// ListOptions filters feed market listings.
type ListOptions struct {
	Platform string
	Status   string
	Limit    int
	Offset   int
	Search   string
}
