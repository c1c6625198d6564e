// Package resolution drives the market resolution lifecycle: detect resolved
// markets, score every active prediction against the outcome, and refresh
// each affected forecaster's reputation. Scoring a market is exactly-once;
// the resolved_markets primary key is the gate.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"eventhorizon/internal/apperrors"
	"eventhorizon/internal/marketfeed"
	"eventhorizon/internal/models"
	"eventhorizon/internal/scoring"
)

// Store is the persistence surface the coordinator needs.
type Store interface {
	ListActiveMarketIDs(ctx context.Context) ([]string, error)
	ResolvedMarketIDs(ctx context.Context, marketIDs []string) (map[string]struct{}, error)
	InsertResolvedMarket(ctx context.Context, market *models.ResolvedMarket) error
	ListActivePredictionsByMarket(ctx context.Context, marketID string) ([]models.Prediction, error)
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	InsertScoresTx(ctx context.Context, tx *gorm.DB, scores []models.Score) error
	MarkPredictionsResolvedTx(ctx context.Context, tx *gorm.DB, predictionIDs []string) error
}

// Feed answers which of the given markets have a known real-world outcome.
type Feed interface {
	MarketsWithKnownOutcome(ctx context.Context, marketIDs []string) ([]marketfeed.ResolvedOutcome, error)
}

// ReputationUpdater recomputes one forecaster's standing after new scores land.
type ReputationUpdater interface {
	Recompute(ctx context.Context, forecasterID string) error
}

// Counts summarizes one resolution sweep.
type Counts struct {
	Checked  int `json:"checked"`
	Resolved int `json:"resolved"`
	Scored   int `json:"scored"`
}

type Coordinator struct {
	Repo    Store
	Feed    Feed
	Updater ReputationUpdater
	Logger  *zap.Logger
}

// CheckForResolutions sweeps every market holding active predictions, asks
// the feed which of them have resolved, and scores each newly resolved one.
// A failure on one market does not abort the sweep. Safe to run repeatedly.
func (c *Coordinator) CheckForResolutions(ctx context.Context) (Counts, error) {
	var counts Counts
	if c == nil || c.Repo == nil || c.Feed == nil {
		return counts, nil
	}
	marketIDs, err := c.Repo.ListActiveMarketIDs(ctx)
	if err != nil {
		return counts, fmt.Errorf("list active markets: %w", err)
	}
	counts.Checked = len(marketIDs)
	if len(marketIDs) == 0 {
		return counts, nil
	}

	already, err := c.Repo.ResolvedMarketIDs(ctx, marketIDs)
	if err != nil {
		return counts, fmt.Errorf("list resolved markets: %w", err)
	}
	pending := make([]string, 0, len(marketIDs))
	for _, id := range marketIDs {
		if _, ok := already[id]; ok {
			continue
		}
		pending = append(pending, id)
	}
	if len(pending) == 0 {
		return counts, nil
	}

	outcomes, err := c.Feed.MarketsWithKnownOutcome(ctx, pending)
	if err != nil {
		return counts, fmt.Errorf("query feed outcomes: %w", err)
	}

	for _, outcome := range outcomes {
		scored, err := c.resolve(ctx, outcome)
		if err != nil {
			if errors.Is(err, apperrors.ErrMarketResolved) {
				// Another sweep won the race for this market.
				continue
			}
			c.logWarn("resolve market failed", outcome.MarketID, err)
			continue
		}
		counts.Resolved++
		counts.Scored += scored
	}
	return counts, nil
}

// ResolveManually records an operator-supplied outcome for one market and
// scores its predictions. The outcome must be exactly 0 or 1.
func (c *Coordinator) ResolveManually(ctx context.Context, marketID, platform, title string, outcome float64) (int, error) {
	if c == nil || c.Repo == nil {
		return 0, fmt.Errorf("resolution coordinator is not configured")
	}
	if marketID == "" {
		return 0, apperrors.Validation("marketId is required")
	}
	if outcome != 0 && outcome != 1 {
		return 0, apperrors.ErrInvalidOutcome
	}
	return c.resolve(ctx, marketfeed.ResolvedOutcome{
		MarketID:   marketID,
		Platform:   platform,
		Title:      title,
		Outcome:    outcome,
		ResolvedAt: time.Now().UTC(),
	})
}

// resolve claims the market via the resolved_markets insert, then scores all
// of its active predictions in a single transaction. If the insert hits a
// duplicate key the market is already claimed and apperrors.ErrMarketResolved
// comes back untouched.
func (c *Coordinator) resolve(ctx context.Context, outcome marketfeed.ResolvedOutcome) (int, error) {
	resolvedAt := outcome.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now().UTC()
	}
	record := &models.ResolvedMarket{
		MarketID:   outcome.MarketID,
		Platform:   outcome.Platform,
		Title:      outcome.Title,
		Outcome:    outcome.Outcome,
		ResolvedAt: resolvedAt,
	}
	if err := c.Repo.InsertResolvedMarket(ctx, record); err != nil {
		return 0, err
	}

	scored, forecasterIDs, err := c.scoreMarket(ctx, outcome.MarketID, outcome.Outcome, resolvedAt)
	if err != nil {
		return 0, err
	}

	if c.Updater != nil {
		for _, forecasterID := range forecasterIDs {
			if err := c.Updater.Recompute(ctx, forecasterID); err != nil {
				c.logWarn("reputation recompute failed", forecasterID, err)
			}
		}
	}

	if c.Logger != nil {
		c.Logger.Info("market resolved",
			zap.String("market_id", outcome.MarketID),
			zap.String("platform", outcome.Platform),
			zap.Float64("outcome", outcome.Outcome),
			zap.Int("scored", scored))
	}
	return scored, nil
}

// scoreMarket writes the score ledger rows and flips predictions to resolved
// atomically. Returns the number of scores written and the distinct
// forecasters affected, sorted for deterministic recompute order.
func (c *Coordinator) scoreMarket(ctx context.Context, marketID string, outcome float64, resolvedAt time.Time) (int, []string, error) {
	preds, err := c.Repo.ListActivePredictionsByMarket(ctx, marketID)
	if err != nil {
		return 0, nil, fmt.Errorf("list predictions for %s: %w", marketID, err)
	}
	if len(preds) == 0 {
		return 0, nil, nil
	}

	scores := make([]models.Score, 0, len(preds))
	predictionIDs := make([]string, 0, len(preds))
	seen := make(map[string]struct{}, len(preds))
	for _, p := range preds {
		scores = append(scores, models.Score{
			ID:                   uuid.NewString(),
			PredictionID:         p.ID,
			ForecasterID:         p.ForecasterID,
			MarketID:             marketID,
			PredictedProbability: p.Probability,
			ActualOutcome:        outcome,
			BrierScore:           scoring.BrierScore(p.Probability, outcome),
			Stake:                p.Stake,
			ResolvedAt:           resolvedAt,
		})
		predictionIDs = append(predictionIDs, p.ID)
		seen[p.ForecasterID] = struct{}{}
	}

	err = c.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := c.Repo.InsertScoresTx(ctx, tx, scores); err != nil {
			return err
		}
		return c.Repo.MarkPredictionsResolvedTx(ctx, tx, predictionIDs)
	})
	if err != nil {
		return 0, nil, fmt.Errorf("score market %s: %w", marketID, err)
	}

	forecasterIDs := make([]string, 0, len(seen))
	for id := range seen {
		forecasterIDs = append(forecasterIDs, id)
	}
	sort.Strings(forecasterIDs)
	return len(scores), forecasterIDs, nil
}

func (c *Coordinator) logWarn(msg, id string, err error) {
	if c == nil || c.Logger == nil {
		return
	}
	c.Logger.Warn(msg, zap.String("id", id), zap.Error(err))
}
