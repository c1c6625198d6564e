// Package marketfeed talks to the external market-data collaborator: a
// Dome-style REST API covering several prediction-market platforms.
package marketfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"eventhorizon/internal/config"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	maxRetries uint64
	logger     *zap.Logger
}

func NewClient(cfg config.FeedConfig, logger *zap.Logger) *Client {
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 5
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 10
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(perSec), burst),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

// doRequest runs one rate-limited GET with retry on transient failures.
func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			body = data
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("feed %s: status %d", path, resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("feed %s: status %d", path, resp.StatusCode))
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return body, nil
}

// rawMarket covers the feed's wire fields for both platforms.
type rawMarket struct {
	ID          string   `json:"id"`
	Ticker      string   `json:"ticker"`
	Platform    string   `json:"platform"`
	Title       string   `json:"title"`
	Slug        string   `json:"market_slug"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status"`
	YesPrice    *float64 `json:"yes_price"`
	YesBidCents *float64 `json:"yes_bid"`
	WinningSide *string  `json:"winning_side"`
	Result      *string  `json:"result"`
	VolumeTotal *float64 `json:"volume_total"`
	Liquidity   *float64 `json:"liquidity"`
	EndTime     *int64   `json:"end_time"`
	CompletedAt *int64   `json:"completed_time"`
}

func (c *Client) ListMarkets(ctx context.Context, opts ListOptions) ([]Market, error) {
	if c == nil {
		return nil, nil
	}
	q := url.Values{}
	if opts.Platform != "" {
		q.Set("platform", opts.Platform)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	path := "/v1/markets"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	body, err := c.doRequest(ctx, path)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Markets []json.RawMessage `json:"markets"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("feed markets decode: %w", err)
	}

	out := make([]Market, 0, len(payload.Markets))
	for _, raw := range payload.Markets {
		var rm rawMarket
		if err := json.Unmarshal(raw, &rm); err != nil {
			continue
		}
		m := mapMarket(rm)
		m.Raw = raw
		if m.ID == "" {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// outcomePageLimit is the page size used when walking the feed's closed
// markets for resolution outcomes.
const outcomePageLimit = 200

// MarketsWithKnownOutcome returns the subset of marketIDs whose binary
// outcome the feed can currently state. Unknown and still-open markets are
// simply absent from the result. The closed-market listing is paginated
// until every wanted market is seen or the feed runs out of pages.
func (c *Client) MarketsWithKnownOutcome(ctx context.Context, marketIDs []string) ([]ResolvedOutcome, error) {
	if c == nil || len(marketIDs) == 0 {
		return nil, nil
	}
	wanted := make(map[string]struct{}, len(marketIDs))
	for _, id := range marketIDs {
		wanted[id] = struct{}{}
	}

	out := make([]ResolvedOutcome, 0)
	for offset := 0; len(wanted) > 0; offset += outcomePageLimit {
		markets, err := c.ListMarkets(ctx, ListOptions{Status: "closed", Limit: outcomePageLimit, Offset: offset})
		if err != nil {
			return nil, err
		}
		for _, m := range markets {
			if _, ok := wanted[m.ID]; !ok {
				continue
			}
			delete(wanted, m.ID)
			if m.Status != "resolved" || m.Outcome == nil {
				continue
			}
			resolvedAt := time.Now().UTC()
			if m.EndTime != nil {
				resolvedAt = *m.EndTime
			}
			out = append(out, ResolvedOutcome{
				MarketID:   m.ID,
				Platform:   m.Platform,
				Title:      m.Title,
				Outcome:    *m.Outcome,
				ResolvedAt: resolvedAt,
			})
		}
		if len(markets) < outcomePageLimit {
			break
		}
	}
	return out, nil
}

// MarketHistory returns a market's probability trajectory over the trailing
// number of days.
func (c *Client) MarketHistory(ctx context.Context, platform, marketID string, days int) ([]PricePoint, error) {
	if c == nil {
		return nil, nil
	}
	if days <= 0 {
		days = 7
	}
	path := fmt.Sprintf("/v1/markets/%s/%s/history?days=%d", url.PathEscape(platform), url.PathEscape(marketID), days)
	body, err := c.doRequest(ctx, path)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Points []struct {
			Timestamp int64    `json:"timestamp"`
			Price     float64  `json:"price"`
			Liquidity *float64 `json:"liquidity"`
		} `json:"points"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("feed history decode: %w", err)
	}

	out := make([]PricePoint, 0, len(payload.Points))
	for _, p := range payload.Points {
		prob := p.Price
		if platform == PlatformKalshi {
			prob = p.Price / kalshiPriceDivisor
		}
		out = append(out, PricePoint{
			Timestamp:   time.UnixMilli(p.Timestamp).UTC(),
			Probability: clamp01(prob),
			Liquidity:   p.Liquidity,
		})
	}
	return out, nil
}

// mapMarket normalizes one raw feed market. Kalshi reports ids as tickers
// and prices in cents; Polymarket reports a winning side label.
func mapMarket(rm rawMarket) Market {
	m := Market{
		ID:       rm.ID,
		Platform: rm.Platform,
		Title:    rm.Title,
		Slug:     rm.Slug,
		Category: inferCategory(rm.Title, rm.Tags),
		Status:   "open",
	}
	if m.ID == "" {
		m.ID = rm.Ticker
	}
	if m.Platform == "" {
		if rm.Ticker != "" {
			m.Platform = PlatformKalshi
		} else {
			m.Platform = PlatformPolymarket
		}
	}

	switch m.Platform {
	case PlatformKalshi:
		if rm.YesBidCents != nil {
			p := clamp01(*rm.YesBidCents / kalshiPriceDivisor)
			m.YesPrice = &p
		}
		m.Status, m.Outcome = kalshiStatus(rm)
	default:
		m.YesPrice = rm.YesPrice
		m.Status, m.Outcome = polymarketStatus(rm)
	}

	m.Volume = rm.VolumeTotal
	m.Liquidity = rm.Liquidity
	if rm.EndTime != nil {
		t := time.UnixMilli(*rm.EndTime).UTC()
		m.EndTime = &t
	}
	return m
}

func polymarketStatus(rm rawMarket) (string, *float64) {
	if rm.WinningSide != nil && *rm.WinningSide != "" {
		outcome := 0.0
		if strings.EqualFold(*rm.WinningSide, "yes") {
			outcome = 1.0
		}
		return "resolved", &outcome
	}
	if rm.CompletedAt != nil || strings.EqualFold(rm.Status, "closed") {
		return "closed", nil
	}
	return "open", nil
}

func kalshiStatus(rm rawMarket) (string, *float64) {
	if rm.Result != nil {
		switch strings.ToLower(strings.TrimSpace(*rm.Result)) {
		case "yes":
			outcome := 1.0
			return "resolved", &outcome
		case "no":
			outcome := 0.0
			return "resolved", &outcome
		}
	}
	if strings.EqualFold(rm.Status, "settled") || strings.EqualFold(rm.Status, "closed") {
		return "closed", nil
	}
	return "open", nil
}

var tagToCategory = map[string]string{
	"politics":      "politics",
	"election":      "politics",
	"government":    "politics",
	"crypto":        "crypto",
	"bitcoin":       "crypto",
	"ethereum":      "crypto",
	"defi":          "crypto",
	"economics":     "economics",
	"finance":       "economics",
	"fed":           "economics",
	"inflation":     "economics",
	"sports":        "sports",
	"nfl":           "sports",
	"nba":           "sports",
	"mlb":           "sports",
	"entertainment": "entertainment",
	"movies":        "entertainment",
	"music":         "entertainment",
	"science":       "science",
	"tech":          "science",
	"ai":            "science",
}

// categoryKeywords is ordered; the first keyword found in a title wins, so
// titles matching several categories classify the same way on every run.
var categoryKeywords = []string{
	"politics", "election", "government",
	"crypto", "bitcoin", "ethereum", "defi",
	"economics", "finance", "fed", "inflation",
	"sports", "nfl", "nba", "mlb",
	"entertainment", "movies", "music",
	"science", "tech", "ai",
}

func inferCategory(title string, tags []string) string {
	for _, tag := range tags {
		if cat, ok := tagToCategory[strings.ToLower(tag)]; ok {
			return cat
		}
	}
	lower := strings.ToLower(title)
	for _, keyword := range categoryKeywords {
		if strings.Contains(lower, keyword) {
			return tagToCategory[keyword]
		}
	}
	return "other"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
