// Package aggregation folds every active prediction on a market into one
// reputation-weighted consensus signal.
package aggregation

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"eventhorizon/internal/models"
)

const (
	// DefaultReputation is used when a forecaster has no stored reputation;
	// a missing lookup must never fail an aggregation.
	DefaultReputation = 0.5

	// NeutralProbability is returned when all weights collapse to zero.
	NeutralProbability = 0.5
)

// MarketSignal is derived output, recomputed fresh on every query.
type MarketSignal struct {
	MarketID         string    `json:"marketId"`
	Probability      float64   `json:"probability"`
	Confidence       float64   `json:"confidence"`
	ContributorCount int       `json:"contributorCount"`
	TotalStake       float64   `json:"totalStake"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Store is the slice of the repository the aggregator reads.
type Store interface {
	ListActivePredictionsByMarket(ctx context.Context, marketID string) ([]models.Prediction, error)
	ListAllActivePredictions(ctx context.Context) ([]models.Prediction, error)
	GetReputations(ctx context.Context, ids []string) (map[string]float64, error)
}

type Aggregator struct {
	Repo   Store
	Logger *zap.Logger
}

// combine is the single fold both query paths share, so market-by-market
// and bulk aggregation cannot drift apart.
func combine(marketID string, preds []models.Prediction, reputations map[string]float64, now time.Time) MarketSignal {
	var weightedProb, weightedConf, totalWeight, totalStake float64
	for _, p := range preds {
		reputation, ok := reputations[p.ForecasterID]
		if !ok {
			reputation = DefaultReputation
		}
		weight := p.Stake * reputation * p.Confidence

		weightedProb += p.Probability * weight
		weightedConf += p.Confidence * weight
		totalWeight += weight
		totalStake += p.Stake
	}

	signal := MarketSignal{
		MarketID:         marketID,
		Probability:      NeutralProbability,
		Confidence:       0,
		ContributorCount: len(preds),
		TotalStake:       totalStake,
		UpdatedAt:        now,
	}
	if totalWeight > 0 {
		signal.Probability = weightedProb / totalWeight
		signal.Confidence = weightedConf / totalWeight
	}
	return signal
}

// MarketSignal aggregates one market. Returns (nil, nil) when the market
// has no active predictions: a brand-new market is a steady state, not an
// error.
func (a *Aggregator) MarketSignal(ctx context.Context, marketID string) (*MarketSignal, error) {
	if a == nil || a.Repo == nil {
		return nil, nil
	}
	preds, err := a.Repo.ListActivePredictionsByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, nil
	}

	reputations, err := a.Repo.GetReputations(ctx, distinctForecasters(preds))
	if err != nil {
		return nil, err
	}
	signal := combine(marketID, preds, reputations, time.Now().UTC())
	return &signal, nil
}

// AllSignals aggregates every market with at least one active prediction in
// one pass, ordered by market id for stable output.
func (a *Aggregator) AllSignals(ctx context.Context) ([]MarketSignal, error) {
	if a == nil || a.Repo == nil {
		return nil, nil
	}
	preds, err := a.Repo.ListAllActivePredictions(ctx)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return []MarketSignal{}, nil
	}

	reputations, err := a.Repo.GetReputations(ctx, distinctForecasters(preds))
	if err != nil {
		return nil, err
	}

	byMarket := map[string][]models.Prediction{}
	for _, p := range preds {
		byMarket[p.MarketID] = append(byMarket[p.MarketID], p)
	}
	marketIDs := make([]string, 0, len(byMarket))
	for id := range byMarket {
		marketIDs = append(marketIDs, id)
	}
	sort.Strings(marketIDs)

	now := time.Now().UTC()
	signals := make([]MarketSignal, 0, len(marketIDs))
	for _, id := range marketIDs {
		signals = append(signals, combine(id, byMarket[id], reputations, now))
	}
	return signals, nil
}

func distinctForecasters(preds []models.Prediction) []string {
	seen := map[string]struct{}{}
	ids := make([]string, 0, len(preds))
	for _, p := range preds {
		if _, ok := seen[p.ForecasterID]; ok {
			continue
		}
		seen[p.ForecasterID] = struct{}{}
		ids = append(ids, p.ForecasterID)
	}
	return ids
}
