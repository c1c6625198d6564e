package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"eventhorizon/internal/apperrors"
	"eventhorizon/internal/models"
	"eventhorizon/internal/repository"
)

// PredictionService owns the prediction lifecycle up to resolution:
// submission, in-place resubmission, and cancellation. Stake and count
// bookkeeping on the forecaster row moves in the same transaction as the
// prediction row.
type PredictionService struct {
	Repo   repository.Store
	Logger *zap.Logger
}

// SubmitInput is one prediction submission. Stake defaults to 1 when zero.
type SubmitInput struct {
	ForecasterID string
	MarketID     string
	Platform     string
	Probability  float64
	Confidence   float64
	Stake        float64
}

func (in *SubmitInput) validate() error {
	if in.ForecasterID == "" {
		return apperrors.Validation("forecasterId is required")
	}
	if in.MarketID == "" {
		return apperrors.Validation("marketId is required")
	}
	if in.Probability < 0 || in.Probability > 1 {
		return apperrors.Validation("probability must be between 0 and 1")
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return apperrors.Validation("confidence must be between 0 and 1")
	}
	if in.Stake < 0 {
		return apperrors.Validation("stake must not be negative")
	}
	return nil
}

// Submit records the forecaster's stance on a market. A live prediction on
// the same market is updated in place rather than duplicated; predictions on
// already resolved markets are rejected.
func (s *PredictionService) Submit(ctx context.Context, in SubmitInput) (*models.Prediction, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("prediction service is not configured")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Stake == 0 {
		in.Stake = 1
	}
	if in.Platform == "" {
		in.Platform = s.inferPlatform(ctx, in.MarketID)
	}

	resolved, err := s.Repo.IsMarketResolved(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	if resolved {
		return nil, apperrors.ErrMarketResolved
	}

	existing, err := s.Repo.GetActivePrediction(ctx, in.ForecasterID, in.MarketID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		stakeDelta := in.Stake - existing.Stake
		err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
			if err := s.Repo.UpdatePredictionTx(ctx, tx, existing.ID, in.Probability, in.Confidence, in.Stake); err != nil {
				return err
			}
			if stakeDelta != 0 {
				return s.Repo.AdjustForecasterStakeTx(ctx, tx, in.ForecasterID, stakeDelta, 0)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		existing.Probability = in.Probability
		existing.Confidence = in.Confidence
		existing.Stake = in.Stake
		existing.UpdatedAt = time.Now().UTC()
		return existing, nil
	}

	pred := &models.Prediction{
		ID:           uuid.NewString(),
		ForecasterID: in.ForecasterID,
		MarketID:     in.MarketID,
		Platform:     in.Platform,
		Probability:  in.Probability,
		Confidence:   in.Confidence,
		Stake:        in.Stake,
		Status:       models.PredictionStatusActive,
	}
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.InsertPredictionTx(ctx, tx, pred); err != nil {
			return err
		}
		return s.Repo.AdjustForecasterStakeTx(ctx, tx, in.ForecasterID, in.Stake, 1)
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("prediction submitted",
			zap.String("prediction_id", pred.ID),
			zap.String("forecaster_id", in.ForecasterID),
			zap.String("market_id", in.MarketID))
	}
	return pred, nil
}

// Cancel withdraws an active prediction. Only the owner may cancel, and only
// while the prediction is still active.
func (s *PredictionService) Cancel(ctx context.Context, forecasterID, predictionID string) error {
	if s == nil || s.Repo == nil {
		return fmt.Errorf("prediction service is not configured")
	}
	pred, err := s.Repo.GetPredictionByID(ctx, predictionID)
	if err != nil {
		return err
	}
	if pred.ForecasterID != forecasterID {
		return apperrors.ErrNotPredictionOwner
	}
	if pred.Status != models.PredictionStatusActive {
		return apperrors.ErrPredictionNotActive
	}
	return s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.SetPredictionStatusTx(ctx, tx, pred.ID, models.PredictionStatusCancelled); err != nil {
			return err
		}
		return s.Repo.AdjustForecasterStakeTx(ctx, tx, forecasterID, -pred.Stake, -1)
	})
}

// ListMine returns the forecaster's predictions, newest first.
func (s *PredictionService) ListMine(ctx context.Context, forecasterID string, params repository.ListPredictionsParams) ([]models.Prediction, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("prediction service is not configured")
	}
	return s.Repo.ListPredictionsByForecaster(ctx, forecasterID, params)
}

func (s *PredictionService) inferPlatform(ctx context.Context, marketID string) string {
	market, err := s.Repo.GetMarketByID(ctx, marketID)
	if err != nil || market == nil {
		return "polymarket"
	}
	return market.Platform
}
