package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"eventhorizon/internal/models"
)

// Store is the persistence boundary for the consensus core and its routes.
// The gorm implementation under repository/gorm is the reference store; the
// core packages depend on narrower slices of this interface.
type Store interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Forecasters
	GetForecasterByID(ctx context.Context, id string) (*models.Forecaster, error)
	GetForecasterByWallet(ctx context.Context, wallet string) (*models.Forecaster, error)
	CreateForecaster(ctx context.Context, item *models.Forecaster) error
	UpdateForecasterStats(ctx context.Context, id string, stats ForecasterStats) error
	AdjustForecasterStakeTx(ctx context.Context, tx *gorm.DB, id string, stakeDelta float64, countDelta int) error
	GetReputations(ctx context.Context, ids []string) (map[string]float64, error)
	ListForecasters(ctx context.Context, params ListForecastersParams) ([]models.Forecaster, error)
	CountForecasters(ctx context.Context) (int64, error)

	// Predictions
	GetPredictionByID(ctx context.Context, id string) (*models.Prediction, error)
	GetActivePrediction(ctx context.Context, forecasterID, marketID string) (*models.Prediction, error)
	ListActivePredictionsByMarket(ctx context.Context, marketID string) ([]models.Prediction, error)
	ListAllActivePredictions(ctx context.Context) ([]models.Prediction, error)
	ListActiveMarketIDs(ctx context.Context) ([]string, error)
	ListPredictionsByForecaster(ctx context.Context, forecasterID string, params ListPredictionsParams) ([]models.Prediction, error)
	InsertPredictionTx(ctx context.Context, tx *gorm.DB, item *models.Prediction) error
	UpdatePredictionTx(ctx context.Context, tx *gorm.DB, id string, probability, confidence, stake float64) error
	SetPredictionStatusTx(ctx context.Context, tx *gorm.DB, id string, status string) error
	MarkPredictionsResolvedTx(ctx context.Context, tx *gorm.DB, ids []string) error

	// Scores
	InsertScoresTx(ctx context.Context, tx *gorm.DB, items []models.Score) error
	ListScoresByForecaster(ctx context.Context, forecasterID string) ([]models.Score, error)
	ListScoresByMarket(ctx context.Context, marketID string) ([]models.Score, error)

	// Resolved markets
	IsMarketResolved(ctx context.Context, marketID string) (bool, error)
	ResolvedMarketIDs(ctx context.Context, marketIDs []string) (map[string]struct{}, error)
	InsertResolvedMarket(ctx context.Context, item *models.ResolvedMarket) error
	ListResolvedMarkets(ctx context.Context, limit int) ([]models.ResolvedMarket, error)

	// Market catalog cache
	UpsertMarkets(ctx context.Context, items []models.Market) error
	GetMarketByID(ctx context.Context, id string) (*models.Market, error)
	ListMarkets(ctx context.Context, params ListMarketsParams) ([]models.Market, error)

	// Signal series
	UpsertSignalPoints(ctx context.Context, items []models.SignalPoint) error
	ListSignalPoints(ctx context.Context, seriesSlug string) ([]models.SignalPoint, error)
	ListSeriesSlugs(ctx context.Context) ([]string, error)

	// Auth nonces
	InsertAuthNonce(ctx context.Context, item *models.AuthNonce) error
	ConsumeAuthNonce(ctx context.Context, nonce, wallet string) (bool, error)
	DeleteExpiredAuthNonces(ctx context.Context, before time.Time) (int64, error)
}

// ForecasterStats carries the fields owned by the reputation updater.
type ForecasterStats struct {
	Reputation    float64
	AvgBrierScore float64
	ResolvedCount int
}

type ListForecastersParams struct {
	Limit   int
	Offset  int
	OrderBy string
	Asc     *bool
}

type ListPredictionsParams struct {
	Limit  int
	Offset int
	Status *string
}

type ListMarketsParams struct {
	Limit    int
	Offset   int
	Platform *string
	Status   *string
	Category *string
	Search   *string
}
