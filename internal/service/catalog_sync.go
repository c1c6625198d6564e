package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"eventhorizon/internal/marketfeed"
	"eventhorizon/internal/models"
	"eventhorizon/internal/repository"
)

// CatalogSyncService refreshes the local market catalog from the feed so
// listings and search never block on the upstream API.
type CatalogSyncService struct {
	Repo   repository.Store
	Feed   *marketfeed.Client
	Logger *zap.Logger

	PageLimit int
	MaxPages  int
}

type SyncResult struct {
	Pages   int `json:"pages"`
	Markets int `json:"markets"`
}

func (s *CatalogSyncService) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult
	if s == nil || s.Repo == nil || s.Feed == nil {
		return result, fmt.Errorf("catalog sync is not configured")
	}
	limit := s.PageLimit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	maxPages := s.MaxPages
	if maxPages <= 0 {
		maxPages = 20
	}

	now := time.Now().UTC()
	offset := 0
	for page := 0; page < maxPages; page++ {
		feedMarkets, err := s.Feed.ListMarkets(ctx, marketfeed.ListOptions{Limit: limit, Offset: offset})
		if err != nil {
			return result, fmt.Errorf("catalog sync page %d: %w", page, err)
		}
		if len(feedMarkets) == 0 {
			break
		}
		rows := make([]models.Market, 0, len(feedMarkets))
		for _, fm := range feedMarkets {
			rows = append(rows, toMarketRow(fm, now))
		}
		if err := s.Repo.UpsertMarkets(ctx, rows); err != nil {
			return result, fmt.Errorf("catalog sync upsert page %d: %w", page, err)
		}
		result.Pages++
		result.Markets += len(rows)
		if len(feedMarkets) < limit {
			break
		}
		offset += limit
	}

	if s.Logger != nil {
		s.Logger.Info("catalog sync finished",
			zap.Int("pages", result.Pages),
			zap.Int("markets", result.Markets))
	}
	return result, nil
}

func toMarketRow(fm marketfeed.Market, seenAt time.Time) models.Market {
	row := models.Market{
		ID:         fm.ID,
		Platform:   fm.Platform,
		Title:      fm.Title,
		Category:   fm.Category,
		Status:     fm.Status,
		YesPrice:   fm.YesPrice,
		Outcome:    fm.Outcome,
		EndTime:    fm.EndTime,
		LastSeenAt: seenAt,
	}
	if fm.Slug != "" {
		slug := fm.Slug
		row.Slug = &slug
	}
	if fm.Volume != nil {
		v := decimal.NewFromFloat(*fm.Volume)
		row.Volume = &v
	}
	if fm.Liquidity != nil {
		v := decimal.NewFromFloat(*fm.Liquidity)
		row.Liquidity = &v
	}
	if len(fm.Raw) > 0 {
		row.RawJSON = datatypes.JSON(fm.Raw)
	}
	return row
}
