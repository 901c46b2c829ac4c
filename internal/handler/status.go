package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kermitt2/grobid-client-go/internal/types"
	"github.com/kermitt2/grobid-client-go/internal/worker"
)

// RunSource exposes the live state of a run.
type RunSource interface {
	RunID() string
	Snapshot() worker.Snapshot
	Results() []types.ItemResult
}

type StatusHandler struct {
	run    RunSource
	action string
}

func NewStatusHandler(run RunSource, action string) *StatusHandler {
	return &StatusHandler{
		run:    run,
		action: action,
	}
}

func (h *StatusHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"run_id": h.run.RunID(),
		"action": h.action,
		"status": h.run.Snapshot(),
	})
}

func (h *StatusHandler) ListResults(c *gin.Context) {
	results := h.run.Results()

	switch status := types.ItemStatus(c.Query("status")); status {
	case "":
	case types.StatusSucceeded, types.StatusFailed:
		filtered := make([]types.ItemResult, 0, len(results))
		for _, r := range results {
			if r.Status == status {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be succeeded or failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":  h.run.RunID(),
		"count":   len(results),
		"results": results,
	})
}

func (h *StatusHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
