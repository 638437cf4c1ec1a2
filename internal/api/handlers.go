package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/store"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// RecordStore is the read side of the persistent dedup store.
type RecordStore interface {
	List(ctx context.Context, q store.Query) ([]model.JobRecord, error)
	Count() (int, error)
	Ping(ctx context.Context) error
}

// Handler serves read-only queries over stored records.
type Handler struct {
	store  RecordStore
	logger *slog.Logger
}

func NewHandler(s RecordStore, logger *slog.Logger) *Handler {
	return &Handler{store: s, logger: logger}
}

// HealthCheck reports whether the store is reachable.
func (h *Handler) HealthCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListJobs returns stored records, newest first.
// Query parameters: min_score (0..1), source, limit.
func (h *Handler) ListJobs(c *gin.Context) {
	q := store.Query{Source: c.Query("source"), Limit: defaultLimit}

	if v := c.Query("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil || score < 0 || score > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_score must be a number between 0 and 1"})
			return
		}
		q.MinScore = score
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		q.Limit = min(n, maxLimit)
	}

	records, err := h.store.List(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("listing jobs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	if records == nil {
		records = []model.JobRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "jobs": records})
}

// Stats reports how many records the store holds.
func (h *Handler) Stats(c *gin.Context) {
	n, err := h.store.Count()
	if err != nil {
		h.logger.Error("counting jobs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stored": n})
}
