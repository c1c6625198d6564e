package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventhorizon/internal/regime"
	"eventhorizon/internal/repository"
	"eventhorizon/internal/signalio"
)

type SeriesHandler struct {
	Repo   repository.Store
	Logger *zap.Logger
}

func (h *SeriesHandler) Register(r *gin.Engine) {
	group := r.Group("/api/series")
	group.GET("", h.listSeries)
	group.GET("/:slug", h.getSeries)
	group.POST("/:slug/points", h.uploadPoints)
}

func (h *SeriesHandler) listSeries(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	slugs, err := h.Repo.ListSeriesSlugs(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, slugs, map[string]any{"count": len(slugs)})
}

// getSeries returns the stored points for one series together with its
// regime metrics.
func (h *SeriesHandler) getSeries(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	slug := c.Param("slug")
	points, err := h.Repo.ListSignalPoints(c.Request.Context(), slug)
	if err != nil {
		Fail(c, err)
		return
	}
	if len(points) == 0 {
		Error(c, http.StatusNotFound, "series not found", nil)
		return
	}
	metrics := regime.Classify(points)
	Ok(c, gin.H{
		"slug":   slug,
		"points": points,
		"regime": metrics,
	}, map[string]any{"count": len(points)})
}

// uploadPoints ingests a CSV body of signal points for the series. Existing
// dates are overwritten.
func (h *SeriesHandler) uploadPoints(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	slug := c.Param("slug")
	points, err := signalio.LoadCSV(c.Request.Body, slug)
	if err != nil {
		Fail(c, err)
		return
	}
	if len(points) == 0 {
		Error(c, http.StatusBadRequest, "csv contains no data rows", nil)
		return
	}
	if err := h.Repo.UpsertSignalPoints(c.Request.Context(), points); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"slug": slug, "inserted": len(points)}, nil)
}
