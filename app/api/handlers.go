package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/landing-comb/app/database"
	"github.com/lysyi3m/landing-comb/app/pipeline"
	"github.com/lysyi3m/landing-comb/app/tasks"
)

func NewHandler(docs DocumentReader, p Pipeline, notifier NotifyStats,
	scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		docs:      docs,
		pipeline:  p,
		notifier:  notifier,
		scheduler: scheduler,
		version:   version,
	}
}

// Ping accepts a change notification from the CMS and starts a change cycle in the background.
func (h *Handler) Ping(c *gin.Context) {
	runID, err := h.pipeline.Trigger()
	if errors.Is(err, pipeline.ErrBusy) || errors.Is(err, pipeline.ErrTooFrequent) {
		slog.Debug("Ping rejected", "reason", err)
		c.JSON(http.StatusTooManyRequests, gin.H{
			"status":  "rejected",
			"message": "Ping already in progress or too frequent.",
		})
		return
	}
	if err != nil {
		slog.Error("Ping failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start processing"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Ping received and being processed",
		"run_id":  runID,
	})
}

func (h *Handler) GetCategory(c *gin.Context) {
	key := c.Param("key")

	doc, err := h.docs.GetDocument(c.Request.Context(), key)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Category '%s' not found", key)})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "get_document", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.Header("X-Document-Kind", string(doc.Kind))
	c.Header("X-Document-Items", strconv.Itoa(doc.ArticleCount))
	c.Header("X-Last-Updated", doc.UpdatedAt.Format(time.RFC3339))
	c.Data(http.StatusOK, "application/json; charset=utf-8", doc.Articles)
}

// FetchAll schedules a full refresh of every feed and landing page.
func (h *Handler) FetchAll(c *gin.Context) {
	task := tasks.NewRefreshAllTask(h.pipeline)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing refresh task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue refresh task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Full refresh scheduled",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if counts, err := h.docs.GetDocumentCount(c.Request.Context()); err == nil {
		health["documents"] = counts
	} else {
		slog.Warn("Health check could not count documents", "error", err)
		health["status"] = "degraded"
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"pipeline":      h.pipeline.State(),
		"notifications": h.notifier.Stats(),
	}

	if counts, err := h.docs.GetDocumentCount(c.Request.Context()); err == nil {
		stats["documents"] = counts
	} else {
		slog.Error("Database error", "operation", "get_document_count", "error", err)
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     "Landing Comb",
		"version":     h.version,
		"description": "News change detection, push notification fan-out and landing page assembly",
		"endpoints": map[string]string{
			"ping":      "/api/ping (POST)",
			"category":  "/api/category/<key>",
			"fetch_all": "/api/fetch-all",
			"health":    "/health",
			"stats":     "/stats",
		},
	})
}
