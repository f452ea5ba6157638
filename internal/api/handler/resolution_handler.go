package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/api/middleware"
	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/randomness"
	"github.com/streamvault/streamvault/internal/service"
)

// ResolutionHandler serves the randomness request/callback protocol that
// resolves betting markets: a host-initiated request, the oracle's public
// callback, and the host's within-window override.
type ResolutionHandler struct {
	resolutionSvc *service.ResolutionService
	oracle        *randomness.HTTPOracle
}

// NewResolutionHandler creates a ResolutionHandler.
func NewResolutionHandler(resolutionSvc *service.ResolutionService, oracle *randomness.HTTPOracle) *ResolutionHandler {
	return &ResolutionHandler{resolutionSvc: resolutionSvc, oracle: oracle}
}

// RequestResolution godoc
// POST /api/markets/:id/resolution [JWT, host only]
// Body: {"use_case":"outcome_seeding","eligible_validators":[{"identity":"<hex>","stake":1000}]}
func (h *ResolutionHandler) RequestResolution(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}

	var body struct {
		UseCase            string `json:"use_case" binding:"required"`
		EligibleValidators []struct {
			Identity string `json:"identity" binding:"required"`
			Stake    int64  `json:"stake"`
		} `json:"eligible_validators"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	eligible := make([]domain.EligibleValidator, len(body.EligibleValidators))
	for i, v := range body.EligibleValidators {
		var id address.ID
		if err := id.Scan(v.Identity); err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "eligible_validators[].identity must be a 64-character hex string")
			return
		}
		eligible[i] = domain.EligibleValidator{Identity: id, Stake: v.Stake}
	}

	rec, err := h.resolutionSvc.RequestMarketResolution(c.Request.Context(), marketID, domain.RandomnessUseCase(body.UseCase), eligible)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_REQUEST_RESOLUTION", err.Error())
		return
	}
	respondSuccess(c, http.StatusCreated, rec)
}

// HandleCallback godoc
// POST /v1/randomness/callback [oracle, signature-verified — no JWT]
// Body: {"request_id":"...","seed":"<64 hex chars>","signature":"<hex>"}
func (h *ResolutionHandler) HandleCallback(c *gin.Context) {
	var payload randomness.CallbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	seed, err := h.oracle.VerifyCallback(payload)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "ERR_ORACLE_UNAUTHORIZED", err.Error())
		return
	}

	if err := h.resolutionSvc.HandleRandomnessCallback(c.Request.Context(), payload.RequestID, seed); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_RANDOMNESS_CALLBACK", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"accepted": true})
}

// OverrideResolution godoc
// POST /api/markets/:id/resolution/override [JWT, host only]
// Body: {"outcome":1}
func (h *ResolutionHandler) OverrideResolution(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}

	var body struct {
		Outcome int `json:"outcome"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	if err := h.resolutionSvc.OverrideResolution(c.Request.Context(), marketID, middleware.GetPrincipal(c), body.Outcome); err != nil {
		respondResolutionError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"overridden": true})
}

func respondResolutionError(c *gin.Context, err error) {
	switch err {
	case domain.ErrMarketNotFound, domain.ErrResolutionNotFound:
		respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
	case domain.ErrUnauthorized:
		respondError(c, http.StatusForbidden, "ERR_UNAUTHORIZED", err.Error())
	case domain.ErrInvalidOutcome:
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
	case domain.ErrAlreadyResolved:
		respondError(c, http.StatusConflict, "ERR_ALREADY_RESOLVED", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
	}
}
