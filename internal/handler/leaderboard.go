package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventhorizon/internal/models"
	"eventhorizon/internal/repository"
)

type LeaderboardHandler struct {
	Repo   repository.Store
	Logger *zap.Logger
}

func (h *LeaderboardHandler) Register(r *gin.Engine) {
	r.GET("/api/leaderboard", h.leaderboard)
}

type leaderboardEntry struct {
	Rank int `json:"rank"`
	models.Forecaster
}

func (h *LeaderboardHandler) leaderboard(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	ctx := c.Request.Context()
	forecasters, err := h.Repo.ListForecasters(ctx, repository.ListForecastersParams{
		Limit:   limit,
		Offset:  offset,
		OrderBy: "reputation",
	})
	if err != nil {
		Fail(c, err)
		return
	}
	total, err := h.Repo.CountForecasters(ctx)
	if err != nil {
		Fail(c, err)
		return
	}
	entries := make([]leaderboardEntry, 0, len(forecasters))
	for i, f := range forecasters {
		entries = append(entries, leaderboardEntry{Rank: offset + i + 1, Forecaster: f})
	}
	Ok(c, entries, paginationMeta(limit, offset, total))
}
