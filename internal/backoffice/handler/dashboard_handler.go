package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/repository"
	"github.com/streamvault/streamvault/internal/ws"
)

// DashboardHandler serves the /admin/dashboard endpoint.
type DashboardHandler struct {
	streamRepo *repository.StreamRepository
	marketRepo *repository.MarketRepository
	hub        *ws.Hub
	cfg        *config.Config
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(
	streamRepo *repository.StreamRepository,
	marketRepo *repository.MarketRepository,
	hub *ws.Hub,
	cfg *config.Config,
) *DashboardHandler {
	return &DashboardHandler{
		streamRepo: streamRepo,
		marketRepo: marketRepo,
		hub:        hub,
		cfg:        cfg,
	}
}

// Dashboard godoc
// GET /admin/dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	_, totalStreams, err := h.streamRepo.ListAll(ctx, 1, 0)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	recentMarkets, totalMarkets, err := h.marketRepo.ListAll(ctx, 10, 0)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	unresolved := 0
	for _, m := range recentMarkets {
		if !m.Resolved {
			unresolved++
		}
	}

	var connections int
	if h.hub != nil {
		connections = h.hub.ConnectedCount()
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"timestamp":            time.Now().UTC(),
		"total_streams":        totalStreams,
		"total_markets":        totalMarkets,
		"recent_markets":       recentMarkets,
		"unresolved_in_sample": unresolved,
		"live_connections":     connections,
	})
}
