package resolution

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"gorm.io/gorm"

	"eventhorizon/internal/apperrors"
	"eventhorizon/internal/marketfeed"
	"eventhorizon/internal/models"
)

type stubStore struct {
	activeMarkets []string
	resolved      map[string]models.ResolvedMarket
	predictions   map[string][]models.Prediction

	scores       []models.Score
	markedIDs    []string
	listFailsFor string
}

func newStubStore() *stubStore {
	return &stubStore{
		resolved:    map[string]models.ResolvedMarket{},
		predictions: map[string][]models.Prediction{},
	}
}

func (s *stubStore) ListActiveMarketIDs(ctx context.Context) ([]string, error) {
	return s.activeMarkets, nil
}

func (s *stubStore) ResolvedMarketIDs(ctx context.Context, marketIDs []string) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	for _, id := range marketIDs {
		if _, ok := s.resolved[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *stubStore) InsertResolvedMarket(ctx context.Context, market *models.ResolvedMarket) error {
	if _, ok := s.resolved[market.MarketID]; ok {
		return apperrors.ErrMarketResolved
	}
	s.resolved[market.MarketID] = *market
	return nil
}

func (s *stubStore) ListActivePredictionsByMarket(ctx context.Context, marketID string) ([]models.Prediction, error) {
	if marketID == s.listFailsFor {
		return nil, errors.New("boom")
	}
	return s.predictions[marketID], nil
}

func (s *stubStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubStore) InsertScoresTx(ctx context.Context, tx *gorm.DB, scores []models.Score) error {
	// Enforce the scores primary key the way the database would.
	ids := map[string]struct{}{}
	for _, sc := range s.scores {
		ids[sc.ID] = struct{}{}
	}
	for _, sc := range scores {
		if sc.ID == "" {
			return errors.New("score id is empty")
		}
		if _, ok := ids[sc.ID]; ok {
			return errors.New("duplicate score id")
		}
		ids[sc.ID] = struct{}{}
	}
	s.scores = append(s.scores, scores...)
	return nil
}

func (s *stubStore) MarkPredictionsResolvedTx(ctx context.Context, tx *gorm.DB, predictionIDs []string) error {
	s.markedIDs = append(s.markedIDs, predictionIDs...)
	return nil
}

type stubFeed struct {
	outcomes []marketfeed.ResolvedOutcome
}

func (f *stubFeed) MarketsWithKnownOutcome(ctx context.Context, marketIDs []string) ([]marketfeed.ResolvedOutcome, error) {
	wanted := map[string]struct{}{}
	for _, id := range marketIDs {
		wanted[id] = struct{}{}
	}
	var out []marketfeed.ResolvedOutcome
	for _, o := range f.outcomes {
		if _, ok := wanted[o.MarketID]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

type stubUpdater struct {
	recomputed []string
}

func (u *stubUpdater) Recompute(ctx context.Context, forecasterID string) error {
	u.recomputed = append(u.recomputed, forecasterID)
	return nil
}

func activePred(id, forecasterID, marketID string, p, stake float64) models.Prediction {
	return models.Prediction{
		ID:           id,
		ForecasterID: forecasterID,
		MarketID:     marketID,
		Probability:  p,
		Confidence:   0.8,
		Stake:        stake,
		Status:       models.PredictionStatusActive,
	}
}

func TestCheckForResolutions_ScoresNewlyResolved(t *testing.T) {
	store := newStubStore()
	store.activeMarkets = []string{"m1", "m2"}
	store.predictions["m1"] = []models.Prediction{
		activePred("p1", "f1", "m1", 0.8, 1),
		activePred("p2", "f2", "m1", 0.3, 2),
	}
	feed := &stubFeed{outcomes: []marketfeed.ResolvedOutcome{
		{MarketID: "m1", Platform: "polymarket", Title: "Test", Outcome: 1, ResolvedAt: time.Now().UTC()},
	}}
	updater := &stubUpdater{}
	c := &Coordinator{Repo: store, Feed: feed, Updater: updater}

	counts, err := c.CheckForResolutions(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if counts.Checked != 2 || counts.Resolved != 1 || counts.Scored != 2 {
		t.Fatalf("counts=%+v want {2 1 2}", counts)
	}
	if len(store.scores) != 2 {
		t.Fatalf("scores=%d want 2", len(store.scores))
	}
	if store.scores[0].ID == "" || store.scores[1].ID == "" {
		t.Fatalf("score ids=%q,%q want non-empty", store.scores[0].ID, store.scores[1].ID)
	}
	if store.scores[0].ID == store.scores[1].ID {
		t.Fatalf("score ids collide: %q", store.scores[0].ID)
	}
	// (0.8-1)^2 = 0.04
	if math.Abs(store.scores[0].BrierScore-0.04) > 1e-12 {
		t.Fatalf("brier=%v want 0.04", store.scores[0].BrierScore)
	}
	if len(store.markedIDs) != 2 {
		t.Fatalf("marked=%v want 2 ids", store.markedIDs)
	}
	if len(updater.recomputed) != 2 {
		t.Fatalf("recomputed=%v want 2 forecasters", updater.recomputed)
	}
	if updater.recomputed[0] != "f1" || updater.recomputed[1] != "f2" {
		t.Fatalf("recomputed=%v want sorted f1,f2", updater.recomputed)
	}
}

func TestCheckForResolutions_Idempotent(t *testing.T) {
	store := newStubStore()
	store.activeMarkets = []string{"m1"}
	store.predictions["m1"] = []models.Prediction{activePred("p1", "f1", "m1", 0.6, 1)}
	feed := &stubFeed{outcomes: []marketfeed.ResolvedOutcome{
		{MarketID: "m1", Outcome: 1, ResolvedAt: time.Now().UTC()},
	}}
	c := &Coordinator{Repo: store, Feed: feed, Updater: &stubUpdater{}}

	first, err := c.CheckForResolutions(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if first.Resolved != 1 {
		t.Fatalf("first resolved=%d want 1", first.Resolved)
	}
	second, err := c.CheckForResolutions(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if second.Resolved != 0 || second.Scored != 0 {
		t.Fatalf("second=%+v want no work", second)
	}
	if len(store.scores) != 1 {
		t.Fatalf("scores=%d want exactly 1", len(store.scores))
	}
}

func TestCheckForResolutions_FailureIsolation(t *testing.T) {
	store := newStubStore()
	store.activeMarkets = []string{"bad", "good"}
	store.listFailsFor = "bad"
	store.predictions["good"] = []models.Prediction{activePred("p1", "f1", "good", 0.5, 1)}
	feed := &stubFeed{outcomes: []marketfeed.ResolvedOutcome{
		{MarketID: "bad", Outcome: 0, ResolvedAt: time.Now().UTC()},
		{MarketID: "good", Outcome: 1, ResolvedAt: time.Now().UTC()},
	}}
	c := &Coordinator{Repo: store, Feed: feed, Updater: &stubUpdater{}}

	counts, err := c.CheckForResolutions(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if counts.Resolved != 1 || counts.Scored != 1 {
		t.Fatalf("counts=%+v want the good market scored", counts)
	}
}

func TestResolveManually_RejectsNonBinaryOutcome(t *testing.T) {
	c := &Coordinator{Repo: newStubStore(), Feed: &stubFeed{}}
	for _, outcome := range []float64{0.5, 2, -1} {
		_, err := c.ResolveManually(context.Background(), "m1", "polymarket", "t", outcome)
		if !errors.Is(err, apperrors.ErrInvalidOutcome) {
			t.Fatalf("outcome=%v err=%v want ErrInvalidOutcome", outcome, err)
		}
	}
}

func TestResolveManually_AcceptsBinaryOutcomes(t *testing.T) {
	for _, outcome := range []float64{0, 1} {
		store := newStubStore()
		c := &Coordinator{Repo: store, Feed: &stubFeed{}}
		if _, err := c.ResolveManually(context.Background(), "m1", "polymarket", "t", outcome); err != nil {
			t.Fatalf("outcome=%v err=%v", outcome, err)
		}
		if store.resolved["m1"].Outcome != outcome {
			t.Fatalf("stored outcome=%v want %v", store.resolved["m1"].Outcome, outcome)
		}
	}
}

func TestResolveManually_DoubleResolveConflicts(t *testing.T) {
	store := newStubStore()
	c := &Coordinator{Repo: store, Feed: &stubFeed{}}
	if _, err := c.ResolveManually(context.Background(), "m1", "polymarket", "t", 1); err != nil {
		t.Fatalf("err=%v", err)
	}
	_, err := c.ResolveManually(context.Background(), "m1", "polymarket", "t", 0)
	if !errors.Is(err, apperrors.ErrMarketResolved) {
		t.Fatalf("err=%v want ErrMarketResolved", err)
	}
	if store.resolved["m1"].Outcome != 1 {
		t.Fatalf("outcome overwritten to %v", store.resolved["m1"].Outcome)
	}
}

func TestResolveManually_MissingMarketID(t *testing.T) {
	c := &Coordinator{Repo: newStubStore(), Feed: &stubFeed{}}
	_, err := c.ResolveManually(context.Background(), "", "polymarket", "t", 1)
	if !apperrors.IsValidation(err) {
		t.Fatalf("err=%v want validation error", err)
	}
}
