package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/api/middleware"
	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/fxmath"
	"github.com/streamvault/streamvault/internal/service"
)

// MarketHandler serves LMSR betting-market endpoints: creation, bet
// placement, odds, positions, and claims.
type MarketHandler struct {
	marketSvc *service.MarketEngineService
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(marketSvc *service.MarketEngineService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

func parseMarketID(c *gin.Context) (address.ID, bool) {
	var id address.ID
	if err := id.Scan(c.Param("id")); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "id must be a 64-character hex string")
		return address.ID{}, false
	}
	return id, true
}

// ── helpers ──────────────────────────────────────────────────────────────────

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}

// InitializeBettingMarket godoc
// POST /api/markets [JWT]
// Body: {"stream":"<hex>","mint":"...","kind":"binary","outcomes":["yes","no"],"liquidity_param":"100.0","fee_bps":200,"resolution_deadline":"..."}
func (h *MarketHandler) InitializeBettingMarket(c *gin.Context) {
	var body struct {
		Stream             string    `json:"stream" binding:"required"`
		Mint               string    `json:"mint"`
		Kind               string    `json:"kind" binding:"required"`
		Outcomes           []string  `json:"outcomes" binding:"required"`
		LiquidityParam     string    `json:"liquidity_param"`
		FeeBPS             int64     `json:"fee_bps"`
		ResolutionDeadline time.Time `json:"resolution_deadline" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	var streamID address.ID
	if err := streamID.Scan(body.Stream); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "stream must be a 64-character hex string")
		return
	}

	var liquidity fxmath.Fixed
	if body.LiquidityParam != "" {
		var err error
		liquidity, err = fxmath.FromString(body.LiquidityParam)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "liquidity_param must be a decimal string")
			return
		}
	}

	req := service.InitializeMarketRequest{
		Stream:              streamID,
		Host:                middleware.GetPrincipal(c),
		Mint:                body.Mint,
		Kind:                domain.MarketKind(body.Kind),
		OutcomeDescriptions: body.Outcomes,
		LiquidityParam:      liquidity,
		FeePercentageBPS:    body.FeeBPS,
		ResolutionDeadline:  body.ResolutionDeadline,
	}

	market, err := h.marketSvc.InitializeBettingMarket(c.Request.Context(), req)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INITIALIZE_MARKET", err.Error())
		return
	}
	respondSuccess(c, http.StatusCreated, market)
}

// PlaceBet godoc
// POST /api/markets/:id/bets [JWT]
// Body: {"outcome_id":0,"amount":"10.0","min_shares":"9.5"}
func (h *MarketHandler) PlaceBet(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}

	var body struct {
		OutcomeID int    `json:"outcome_id"`
		Amount    string `json:"amount"     binding:"required"`
		MinShares string `json:"min_shares"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	amount, err := fxmath.FromString(body.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a decimal string")
		return
	}
	minShares := fxmath.Zero()
	if body.MinShares != "" {
		minShares, err = fxmath.FromString(body.MinShares)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "min_shares must be a decimal string")
			return
		}
	}

	position, err := h.marketSvc.PlaceBet(c.Request.Context(), marketID, middleware.GetPrincipal(c), body.OutcomeID, amount, minShares)
	if err != nil {
		respondMarketError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, position)
}

// ClaimWinnings godoc
// POST /api/markets/:id/claim [JWT]
func (h *MarketHandler) ClaimWinnings(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}
	payout, err := h.marketSvc.ClaimWinnings(c.Request.Context(), marketID, middleware.GetPrincipal(c))
	if err != nil {
		respondMarketError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"payout": payout})
}

// GetByID godoc
// GET /api/markets/:id
func (h *MarketHandler) GetByID(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}
	market, err := h.marketSvc.GetMarket(c.Request.Context(), marketID)
	if err != nil {
		respondError(c, http.StatusNotFound, "ERR_MARKET_NOT_FOUND", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, market.ToSummary())
}

// GetOdds godoc
// GET /api/markets/:id/odds
func (h *MarketHandler) GetOdds(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}
	odds, err := h.marketSvc.GetMarketOdds(c.Request.Context(), marketID)
	if err != nil {
		respondError(c, http.StatusNotFound, "ERR_MARKET_NOT_FOUND", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"odds": odds})
}

// GetMyPosition godoc
// GET /api/markets/:id/position [JWT]
func (h *MarketHandler) GetMyPosition(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}
	position, err := h.marketSvc.GetPosition(c.Request.Context(), marketID, middleware.GetPrincipal(c))
	if err != nil {
		respondError(c, http.StatusNotFound, "ERR_POSITION_NOT_FOUND", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, position)
}

// GetMyPositions godoc
// GET /api/positions/mine?page=1&limit=20 [JWT]
func (h *MarketHandler) GetMyPositions(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	positions, err := h.marketSvc.ListPositionsByBettor(c.Request.Context(), middleware.GetPrincipal(c), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch positions")
		return
	}
	respondList(c, positions, len(positions), page, limit)
}

// respondMarketError maps a domain error returned by MarketEngineService to
// an HTTP status/code pair.
func respondMarketError(c *gin.Context, err error) {
	switch err {
	case domain.ErrMarketNotFound, domain.ErrPositionNotFound:
		respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
	case domain.ErrUnauthorized:
		respondError(c, http.StatusForbidden, "ERR_UNAUTHORIZED", err.Error())
	case domain.ErrInvalidAmount, domain.ErrInvalidOutcome:
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
	case domain.ErrSlippageExceeded:
		respondError(c, http.StatusConflict, "ERR_SLIPPAGE_EXCEEDED", err.Error())
	case domain.ErrMarketResolved, domain.ErrMarketExpired, domain.ErrAlreadyResolved:
		respondError(c, http.StatusConflict, "ERR_MARKET_STATE", err.Error())
	case domain.ErrMarketNotResolved:
		respondError(c, http.StatusConflict, "ERR_MARKET_NOT_RESOLVED", err.Error())
	case domain.ErrAlreadyClaimed:
		respondError(c, http.StatusConflict, "ERR_ALREADY_CLAIMED", err.Error())
	case domain.ErrNothingToClaim:
		respondError(c, http.StatusUnprocessableEntity, "ERR_NOTHING_TO_CLAIM", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
	}
}
