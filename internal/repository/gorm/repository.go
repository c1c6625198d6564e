package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eventhorizon/internal/apperrors"
	"eventhorizon/internal/models"
	"eventhorizon/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// handle returns the tx when inside a transaction, the root db otherwise.
func (s *Store) handle(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

// --- Forecasters ------------------------------------------------------------

func (s *Store) GetForecasterByID(ctx context.Context, id string) (*models.Forecaster, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Forecaster
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrForecasterNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetForecasterByWallet(ctx context.Context, wallet string) (*models.Forecaster, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Forecaster
	err := s.db.WithContext(ctx).Where("wallet_address = ?", strings.ToLower(strings.TrimSpace(wallet))).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrForecasterNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateForecaster(ctx context.Context, item *models.Forecaster) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateForecasterStats(ctx context.Context, id string, stats repository.ForecasterStats) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Forecaster{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reputation":      stats.Reputation,
			"avg_brier_score": stats.AvgBrierScore,
			"resolved_count":  stats.ResolvedCount,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (s *Store) AdjustForecasterStakeTx(ctx context.Context, tx *gorm.DB, id string, stakeDelta float64, countDelta int) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.handle(ctx, tx).
		Model(&models.Forecaster{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_stake":      gorm.Expr("total_stake + ?", stakeDelta),
			"prediction_count": gorm.Expr("prediction_count + ?", countDelta),
			"updated_at":       time.Now().UTC(),
		}).Error
}

func (s *Store) GetReputations(ctx context.Context, ids []string) (map[string]float64, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return map[string]float64{}, nil
	}
	type row struct {
		ID         string
		Reputation float64
	}
	var rows []row
	if err := s.db.WithContext(ctx).
		Model(&models.Forecaster{}).
		Select("id", "reputation").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Reputation
	}
	return out, nil
}

func (s *Store) ListForecasters(ctx context.Context, params repository.ListForecastersParams) ([]models.Forecaster, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Forecaster{})
	query = applyOrder(query, params.OrderBy, params.Asc, "reputation")
	var items []models.Forecaster
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountForecasters(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Forecaster{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// --- Predictions ------------------------------------------------------------

func (s *Store) GetPredictionByID(ctx context.Context, id string) (*models.Prediction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Prediction
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrPredictionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetActivePrediction(ctx context.Context, forecasterID, marketID string) (*models.Prediction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Prediction
	err := s.db.WithContext(ctx).
		Where("forecaster_id = ? AND market_id = ? AND status = ?", forecasterID, marketID, models.PredictionStatusActive).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListActivePredictionsByMarket(ctx context.Context, marketID string) ([]models.Prediction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Prediction
	if err := s.db.WithContext(ctx).
		Where("market_id = ? AND status = ?", marketID, models.PredictionStatusActive).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListAllActivePredictions(ctx context.Context) ([]models.Prediction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Prediction
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.PredictionStatusActive).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListActiveMarketIDs(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Distinct("market_id").
		Where("status = ?", models.PredictionStatusActive).
		Pluck("market_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) ListPredictionsByForecaster(ctx context.Context, forecasterID string, params repository.ListPredictionsParams) ([]models.Prediction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.Prediction{}).
		Where("forecaster_id = ?", forecasterID)
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	var items []models.Prediction
	if err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertPredictionTx(ctx context.Context, tx *gorm.DB, item *models.Prediction) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.handle(ctx, tx).Create(item).Error
}

func (s *Store) UpdatePredictionTx(ctx context.Context, tx *gorm.DB, id string, probability, confidence, stake float64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.handle(ctx, tx).
		Model(&models.Prediction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"probability": probability,
			"confidence":  confidence,
			"stake":       stake,
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (s *Store) SetPredictionStatusTx(ctx context.Context, tx *gorm.DB, id string, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.handle(ctx, tx).
		Model(&models.Prediction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Store) MarkPredictionsResolvedTx(ctx context.Context, tx *gorm.DB, ids []string) error {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil
	}
	return s.handle(ctx, tx).
		Model(&models.Prediction{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":     models.PredictionStatusResolved,
			"updated_at": time.Now().UTC(),
		}).Error
}

// --- Scores -----------------------------------------------------------------

func (s *Store) InsertScoresTx(ctx context.Context, tx *gorm.DB, items []models.Score) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.handle(ctx, tx).Create(&items).Error
}

func (s *Store) ListScoresByForecaster(ctx context.Context, forecasterID string) ([]models.Score, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Score
	if err := s.db.WithContext(ctx).
		Where("forecaster_id = ?", forecasterID).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListScoresByMarket(ctx context.Context, marketID string) ([]models.Score, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Score
	if err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Resolved markets -------------------------------------------------------

func (s *Store) IsMarketResolved(ctx context.Context, marketID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	var n int64
	if err := s.db.WithContext(ctx).
		Model(&models.ResolvedMarket{}).
		Where("market_id = ?", marketID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ResolvedMarketIDs(ctx context.Context, marketIDs []string) (map[string]struct{}, error) {
	if s == nil || s.db == nil || len(marketIDs) == 0 {
		return map[string]struct{}{}, nil
	}
	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&models.ResolvedMarket{}).
		Where("market_id IN ?", marketIDs).
		Pluck("market_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// InsertResolvedMarket is the exactly-once gate: the market id is the
// primary key, so a concurrent duplicate surfaces as a conflict.
func (s *Store) InsertResolvedMarket(ctx context.Context, item *models.ResolvedMarket) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	err := s.db.WithContext(ctx).Create(item).Error
	if err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key")) {
		return apperrors.ErrMarketResolved
	}
	return err
}

func (s *Store) ListResolvedMarkets(ctx context.Context, limit int) ([]models.ResolvedMarket, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ResolvedMarket
	if err := s.db.WithContext(ctx).
		Order("resolved_at desc").
		Limit(normalizeLimit(limit, 50)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Market catalog ---------------------------------------------------------

func (s *Store) UpsertMarkets(ctx context.Context, items []models.Market) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"platform",
			"title",
			"slug",
			"category",
			"status",
			"yes_price",
			"outcome",
			"volume",
			"liquidity",
			"end_time",
			"last_seen_at",
			"raw_json",
		}),
	}).Create(&items).Error
}

func (s *Store) GetMarketByID(ctx context.Context, id string) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrMarketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Market{})
	if params.Platform != nil && strings.TrimSpace(*params.Platform) != "" {
		query = query.Where("platform = ?", strings.TrimSpace(*params.Platform))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(*params.Category))
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		query = query.Where("title ILIKE ?", "%"+strings.TrimSpace(*params.Search)+"%")
	}
	var items []models.Market
	if err := query.Order("last_seen_at desc").
		Limit(normalizeLimit(params.Limit, 50)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Signal series ----------------------------------------------------------

func (s *Store) UpsertSignalPoints(ctx context.Context, items []models.SignalPoint) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "series_slug"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"p",
			"low",
			"high",
			"liquidity",
			"sentiment",
			"ref_value",
			"concentration",
			"cost_to_move",
		}),
	}).Create(&items).Error
}

func (s *Store) ListSignalPoints(ctx context.Context, seriesSlug string) ([]models.SignalPoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SignalPoint
	if err := s.db.WithContext(ctx).
		Where("series_slug = ?", seriesSlug).
		Order("date asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListSeriesSlugs(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var slugs []string
	if err := s.db.WithContext(ctx).
		Model(&models.SignalPoint{}).
		Distinct("series_slug").
		Order("series_slug asc").
		Pluck("series_slug", &slugs).Error; err != nil {
		return nil, err
	}
	return slugs, nil
}

// --- Auth nonces ------------------------------------------------------------

func (s *Store) InsertAuthNonce(ctx context.Context, item *models.AuthNonce) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	// One outstanding nonce per wallet.
	if err := s.db.WithContext(ctx).
		Where("wallet_address = ?", item.WalletAddress).
		Delete(&models.AuthNonce{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ConsumeAuthNonce(ctx context.Context, nonce, wallet string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Where("nonce = ? AND wallet_address = ? AND expires_at > ?", nonce, wallet, time.Now().UTC()).
		Delete(&models.AuthNonce{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) DeleteExpiredAuthNonces(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if before.IsZero() {
		before = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&models.AuthNonce{})
	return res.RowsAffected, res.Error
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 || limit > 1000 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	col := strings.TrimSpace(orderBy)
	if col == "" {
		col = fallback
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(col + " " + dir)
}
