package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/repository"
	"github.com/streamvault/streamvault/internal/service"
)

// MarketAdminHandler serves /admin/markets endpoints.
type MarketAdminHandler struct {
	marketSvc    *service.MarketEngineService
	marketRepo   *repository.MarketRepository
	positionRepo *repository.PositionRepository
	cfg          *config.Config
}

// NewMarketAdminHandler creates a MarketAdminHandler.
func NewMarketAdminHandler(
	marketSvc *service.MarketEngineService,
	marketRepo *repository.MarketRepository,
	positionRepo *repository.PositionRepository,
	cfg *config.Config,
) *MarketAdminHandler {
	return &MarketAdminHandler{
		marketSvc:    marketSvc,
		marketRepo:   marketRepo,
		positionRepo: positionRepo,
		cfg:          cfg,
	}
}

func parseAdminMarketID(c *gin.Context) (address.ID, bool) {
	var id address.ID
	if err := id.Scan(c.Param("id")); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "id must be a 64-character hex string")
		return address.ID{}, false
	}
	return id, true
}

// List godoc
// GET /admin/markets?page=1&limit=20
func (h *MarketAdminHandler) List(c *gin.Context) {
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	markets, total, err := h.marketRepo.ListAll(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, markets, total, page, limit)
}

// Detail godoc
// GET /admin/markets/:id
func (h *MarketAdminHandler) Detail(c *gin.Context) {
	id, ok := parseAdminMarketID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	market, err := h.marketSvc.GetMarket(ctx, id)
	if err != nil {
		if err == domain.ErrMarketNotFound {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	positions, err := h.positionRepo.GetByMarket(ctx, id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"market":    market.ToSummary(),
		"positions": positions,
	})
}

// Resolve godoc
// POST /admin/markets/:id/resolve
// Body: {"winning_outcome": 0}
//
// Emergency override: lets an operator force a resolution outside the
// randomness-oracle/dispute-window flow, e.g. when the oracle callback never
// lands. It runs through the same ResolveMarket path bettors' claims rely on.
func (h *MarketAdminHandler) Resolve(c *gin.Context) {
	id, ok := parseAdminMarketID(c)
	if !ok {
		return
	}
	var body struct {
		WinningOutcome int `json:"winning_outcome"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	market, err := h.marketSvc.ResolveMarket(c.Request.Context(), id, body.WinningOutcome)
	if err != nil {
		if err == domain.ErrMarketNotFound {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}

	respondSuccess(c, http.StatusOK, market.ToSummary())
}
