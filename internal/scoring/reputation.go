package scoring

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"eventhorizon/internal/models"
	"eventhorizon/internal/repository"
)

const (
	// DecayFactor discounts older scores by rank, not elapsed time: the
	// k-th most recent score is weighted DecayFactor^k times its stake.
	DecayFactor = 0.95

	// NeutralReputation is the prior for forecasters with no resolved
	// history and the fallback when all weights collapse to zero.
	NeutralReputation = 0.5
)

// Store is the slice of the repository the updater needs.
type Store interface {
	ListScoresByForecaster(ctx context.Context, forecasterID string) ([]models.Score, error)
	UpdateForecasterStats(ctx context.Context, id string, stats repository.ForecasterStats) error
}

// Updater recomputes a forecaster's reputation from their full score
// history. Updates for the same forecaster are serialized; distinct
// forecasters may recompute concurrently.
type Updater struct {
	Repo   Store
	Logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Stats is the recompute output before persistence.
type Stats struct {
	Reputation    float64
	AvgBrierScore float64
	ResolvedCount int
}

// Compute runs the full sort-and-decay pass over a score history. The decay
// weight depends on each score's rank in the recency ordering, which shifts
// whenever a score is added (including backfills), so there is deliberately
// no incremental variant of this.
func Compute(scores []models.Score) Stats {
	if len(scores) == 0 {
		return Stats{Reputation: NeutralReputation, AvgBrierScore: NeutralReputation}
	}

	var weightedBrier, totalStake float64
	for _, sc := range scores {
		weightedBrier += sc.BrierScore * sc.Stake
		totalStake += sc.Stake
	}
	avgBrier := NeutralReputation
	if totalStake > 0 {
		avgBrier = weightedBrier / totalStake
	}

	sorted := make([]models.Score, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ResolvedAt.After(sorted[j].ResolvedAt)
	})

	decay := 1.0
	var weightedSum, decayWeight float64
	for _, sc := range sorted {
		w := decay * sc.Stake
		weightedSum += (1 - sc.BrierScore) * w
		decayWeight += w
		decay *= DecayFactor
	}

	reputation := NeutralReputation
	if decayWeight > 0 {
		reputation = weightedSum / decayWeight
	}

	return Stats{
		Reputation:    reputation,
		AvgBrierScore: avgBrier,
		ResolvedCount: len(scores),
	}
}

// Recompute reloads the forecaster's entire ledger, recomputes their stats
// and persists them. A forecaster with no resolved scores keeps the neutral
// prior and is not written.
func (u *Updater) Recompute(ctx context.Context, forecasterID string) error {
	if u == nil || u.Repo == nil {
		return nil
	}
	lock := u.lockFor(forecasterID)
	lock.Lock()
	defer lock.Unlock()

	scores, err := u.Repo.ListScoresByForecaster(ctx, forecasterID)
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		return nil
	}

	stats := Compute(scores)
	if err := u.Repo.UpdateForecasterStats(ctx, forecasterID, repository.ForecasterStats{
		Reputation:    stats.Reputation,
		AvgBrierScore: stats.AvgBrierScore,
		ResolvedCount: stats.ResolvedCount,
	}); err != nil {
		return err
	}
	if u.Logger != nil {
		u.Logger.Debug("forecaster stats recomputed",
			zap.String("forecaster_id", forecasterID),
			zap.Float64("reputation", stats.Reputation),
			zap.Int("resolved_count", stats.ResolvedCount))
	}
	return nil
}

func (u *Updater) lockFor(id string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.locks == nil {
		u.locks = map[string]*sync.Mutex{}
	}
	if _, ok := u.locks[id]; !ok {
		u.locks[id] = &sync.Mutex{}
	}
	return u.locks[id]
}
