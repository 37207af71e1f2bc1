package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
	"github.com/gotrs-io/gotrs-ldapsync/internal/services/ldapsync"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

type handlers struct {
	sync   SyncService
	logger *zerolog.Logger
}

// triggerSync starts a run in the background, or waits for it with ?wait=true.
func (h *handlers) triggerSync(c *gin.Context) {
	if h.sync.Running() {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   ldapsync.ErrSyncInProgress.Error(),
		})
		return
	}

	wait, _ := strconv.ParseBool(c.Query("wait"))
	if !wait {
		ctx := context.WithoutCancel(c.Request.Context())
		go func() {
			if _, err := h.sync.Sync(ctx, models.SyncTriggerAPI); err != nil && !errors.Is(err, ldapsync.ErrSyncInProgress) {
				h.logger.Error().Err(err).Msg("api triggered sync failed")
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"message": "Directory sync started",
		})
		return
	}

	run, err := h.sync.Sync(c.Request.Context(), models.SyncTriggerAPI)
	switch {
	case errors.Is(err, ldapsync.ErrSyncInProgress):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Directory sync failed: " + err.Error(),
			"data":    run,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    run,
		})
	}
}

func (h *handlers) status(c *gin.Context) {
	last, err := h.sync.LastRun(c.Request.Context())
	if err != nil && !errors.Is(err, repository.ErrSyncHistoryNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load last run: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"running":  h.sync.Running(),
			"last_run": last,
		},
	})
}

func (h *handlers) history(c *gin.Context) {
	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "limit must be between 1 and " + strconv.Itoa(maxHistoryLimit),
			})
			return
		}
		limit = n
	}

	runs, err := h.sync.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load history: " + err.Error(),
		})
		return
	}
	if runs == nil {
		runs = []*models.SyncHistory{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    runs,
	})
}

func (h *handlers) testConnection(c *gin.Context) {
	if err := h.sync.TestConnection(c.Request.Context()); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error":   "Connection test failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "LDAP connection successful",
	})
}
