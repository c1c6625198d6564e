package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"eventhorizon/internal/apperrors"
	"eventhorizon/internal/models"
	"eventhorizon/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Store.
// It implements the full interface but only the methods the prediction and
// catalog services touch carry state.
type stubRepo struct {
	forecasters map[string]*models.Forecaster
	predictions map[string]*models.Prediction
	resolved    map[string]models.ResolvedMarket
	markets     map[string]models.Market
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		forecasters: map[string]*models.Forecaster{},
		predictions: map[string]*models.Prediction{},
		resolved:    map[string]models.ResolvedMarket{},
		markets:     map[string]models.Market{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) GetForecasterByID(ctx context.Context, id string) (*models.Forecaster, error) {
	f, ok := s.forecasters[id]
	if !ok {
		return nil, apperrors.ErrForecasterNotFound
	}
	return f, nil
}

func (s *stubRepo) GetForecasterByWallet(ctx context.Context, wallet string) (*models.Forecaster, error) {
	for _, f := range s.forecasters {
		if f.WalletAddress == wallet {
			return f, nil
		}
	}
	return nil, apperrors.ErrForecasterNotFound
}

func (s *stubRepo) CreateForecaster(ctx context.Context, item *models.Forecaster) error {
	s.forecasters[item.ID] = item
	return nil
}

func (s *stubRepo) UpdateForecasterStats(ctx context.Context, id string, stats repository.ForecasterStats) error {
	return nil
}

func (s *stubRepo) AdjustForecasterStakeTx(ctx context.Context, tx *gorm.DB, id string, stakeDelta float64, countDelta int) error {
	f, ok := s.forecasters[id]
	if !ok {
		return apperrors.ErrForecasterNotFound
	}
	f.TotalStake += stakeDelta
	f.PredictionCount += countDelta
	return nil
}

func (s *stubRepo) GetReputations(ctx context.Context, ids []string) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func (s *stubRepo) ListForecasters(ctx context.Context, params repository.ListForecastersParams) ([]models.Forecaster, error) {
	return nil, nil
}

func (s *stubRepo) CountForecasters(ctx context.Context) (int64, error) { return 0, nil }

func (s *stubRepo) GetPredictionByID(ctx context.Context, id string) (*models.Prediction, error) {
	p, ok := s.predictions[id]
	if !ok {
		return nil, apperrors.ErrPredictionNotFound
	}
	return p, nil
}

func (s *stubRepo) GetActivePrediction(ctx context.Context, forecasterID, marketID string) (*models.Prediction, error) {
	for _, p := range s.predictions {
		if p.ForecasterID == forecasterID && p.MarketID == marketID && p.Status == models.PredictionStatusActive {
			return p, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListActivePredictionsByMarket(ctx context.Context, marketID string) ([]models.Prediction, error) {
	var out []models.Prediction
	for _, p := range s.predictions {
		if p.MarketID == marketID && p.Status == models.PredictionStatusActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubRepo) ListAllActivePredictions(ctx context.Context) ([]models.Prediction, error) {
	var out []models.Prediction
	for _, p := range s.predictions {
		if p.Status == models.PredictionStatusActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubRepo) ListActiveMarketIDs(ctx context.Context) ([]string, error) { return nil, nil }

func (s *stubRepo) ListPredictionsByForecaster(ctx context.Context, forecasterID string, params repository.ListPredictionsParams) ([]models.Prediction, error) {
	var out []models.Prediction
	for _, p := range s.predictions {
		if p.ForecasterID != forecasterID {
			continue
		}
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubRepo) InsertPredictionTx(ctx context.Context, tx *gorm.DB, item *models.Prediction) error {
	s.predictions[item.ID] = item
	return nil
}

func (s *stubRepo) UpdatePredictionTx(ctx context.Context, tx *gorm.DB, id string, probability, confidence, stake float64) error {
	p, ok := s.predictions[id]
	if !ok {
		return apperrors.ErrPredictionNotFound
	}
	p.Probability = probability
	p.Confidence = confidence
	p.Stake = stake
	return nil
}

func (s *stubRepo) SetPredictionStatusTx(ctx context.Context, tx *gorm.DB, id string, status string) error {
	p, ok := s.predictions[id]
	if !ok {
		return apperrors.ErrPredictionNotFound
	}
	p.Status = status
	return nil
}

func (s *stubRepo) MarkPredictionsResolvedTx(ctx context.Context, tx *gorm.DB, ids []string) error {
	for _, id := range ids {
		if p, ok := s.predictions[id]; ok {
			p.Status = models.PredictionStatusResolved
		}
	}
	return nil
}

func (s *stubRepo) InsertScoresTx(ctx context.Context, tx *gorm.DB, items []models.Score) error {
	return nil
}

func (s *stubRepo) ListScoresByForecaster(ctx context.Context, forecasterID string) ([]models.Score, error) {
	return nil, nil
}

func (s *stubRepo) ListScoresByMarket(ctx context.Context, marketID string) ([]models.Score, error) {
	return nil, nil
}

func (s *stubRepo) IsMarketResolved(ctx context.Context, marketID string) (bool, error) {
	_, ok := s.resolved[marketID]
	return ok, nil
}

func (s *stubRepo) ResolvedMarketIDs(ctx context.Context, marketIDs []string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (s *stubRepo) InsertResolvedMarket(ctx context.Context, item *models.ResolvedMarket) error {
	if _, ok := s.resolved[item.MarketID]; ok {
		return apperrors.ErrMarketResolved
	}
	s.resolved[item.MarketID] = *item
	return nil
}

func (s *stubRepo) ListResolvedMarkets(ctx context.Context, limit int) ([]models.ResolvedMarket, error) {
	return nil, nil
}

func (s *stubRepo) UpsertMarkets(ctx context.Context, items []models.Market) error {
	for _, m := range items {
		s.markets[m.ID] = m
	}
	return nil
}

func (s *stubRepo) GetMarketByID(ctx context.Context, id string) (*models.Market, error) {
	m, ok := s.markets[id]
	if !ok {
		return nil, apperrors.ErrMarketNotFound
	}
	return &m, nil
}

func (s *stubRepo) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	return nil, nil
}

func (s *stubRepo) UpsertSignalPoints(ctx context.Context, items []models.SignalPoint) error {
	return nil
}

func (s *stubRepo) ListSignalPoints(ctx context.Context, seriesSlug string) ([]models.SignalPoint, error) {
	return nil, nil
}

func (s *stubRepo) ListSeriesSlugs(ctx context.Context) ([]string, error) { return nil, nil }

func (s *stubRepo) InsertAuthNonce(ctx context.Context, item *models.AuthNonce) error { return nil }

func (s *stubRepo) ConsumeAuthNonce(ctx context.Context, nonce, wallet string) (bool, error) {
	return false, nil
}

func (s *stubRepo) DeleteExpiredAuthNonces(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}
