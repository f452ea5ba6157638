package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/api/middleware"
	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/fxmath"
	"github.com/streamvault/streamvault/internal/service"
)

// StreamHandler serves the stream-escrow lifecycle endpoints: creation,
// starting, deposits, distributions, refunds, and completion.
type StreamHandler struct {
	streamSvc *service.StreamService
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(streamSvc *service.StreamService) *StreamHandler {
	return &StreamHandler{streamSvc: streamSvc}
}

// parseStreamID extracts and decodes the :id hex path parameter.
func parseStreamID(c *gin.Context) (address.ID, bool) {
	var id address.ID
	if err := id.Scan(c.Param("id")); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "id must be a 64-character hex string")
		return address.ID{}, false
	}
	return id, true
}

// Initialize godoc
// POST /api/streams [JWT]
// Body: {"name":"...","mint":"...","type":"prepaid|conditional|live","prepaid":{"min_duration_seconds":3600},"conditional":{"min_amount":"10.0","unlock_time":"..."}}
func (h *StreamHandler) Initialize(c *gin.Context) {
	var body struct {
		Name string `json:"name" binding:"required"`
		Mint string `json:"mint"`
		Type string `json:"type" binding:"required"`

		Prepaid *struct {
			MinDurationSeconds int64 `json:"min_duration_seconds"`
		} `json:"prepaid"`

		Conditional *struct {
			MinAmount  *string    `json:"min_amount"`
			UnlockTime *time.Time `json:"unlock_time"`
		} `json:"conditional"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	req := service.InitializeStreamRequest{
		Host: middleware.GetPrincipal(c),
		Name: body.Name,
		Mint: body.Mint,
		Type: domain.StreamType(body.Type),
	}

	switch req.Type {
	case domain.StreamPrepaid:
		if body.Prepaid == nil {
			respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "prepaid parameters required for prepaid streams")
			return
		}
		req.Prepaid = &domain.PrepaidParams{
			MinDuration: time.Duration(body.Prepaid.MinDurationSeconds) * time.Second,
		}
	case domain.StreamConditional:
		if body.Conditional == nil {
			respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "conditional parameters required for conditional streams")
			return
		}
		cond := &domain.ConditionalParams{UnlockTime: body.Conditional.UnlockTime}
		if body.Conditional.MinAmount != nil {
			amount, err := fxmath.FromString(*body.Conditional.MinAmount)
			if err != nil {
				respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "min_amount must be a decimal string")
				return
			}
			cond.MinAmount = &amount
		}
		req.Conditional = cond
	case domain.StreamLive:
		// no preconditions
	default:
		respondError(c, http.StatusBadRequest, "ERR_INVALID_STREAM_TYPE", domain.ErrInvalidStreamType.Error())
		return
	}

	stream, err := h.streamSvc.Initialize(c.Request.Context(), req)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INITIALIZE_STREAM", err.Error())
		return
	}
	respondSuccess(c, http.StatusCreated, stream)
}

// StartStream godoc
// POST /api/streams/:id/start [JWT, host only]
func (h *StreamHandler) StartStream(c *gin.Context) {
	streamID, ok := parseStreamID(c)
	if !ok {
		return
	}
	stream, err := h.streamSvc.StartStream(c.Request.Context(), streamID, middleware.GetPrincipal(c))
	if err != nil {
		respondStreamError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stream)
}

// Deposit godoc
// POST /api/streams/:id/deposit [JWT]
// Body: {"amount":"100.0"}
func (h *StreamHandler) Deposit(c *gin.Context) {
	streamID, ok := parseStreamID(c)
	if !ok {
		return
	}

	var body struct {
		Amount string `json:"amount" binding:"required"`
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

	donorAccount, err := h.streamSvc.Deposit(c.Request.Context(), streamID, middleware.GetPrincipal(c), amount)
	if err != nil {
		respondStreamError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, donorAccount)
}

// Distribute godoc
// POST /api/streams/:id/distribute [JWT, host only]
// Body: {"recipient":"<hex>","amount":"50.0"}
func (h *StreamHandler) Distribute(c *gin.Context) {
	streamID, ok := parseStreamID(c)
	if !ok {
		return
	}

	var body struct {
		Recipient string `json:"recipient" binding:"required"`
		Amount    string `json:"amount"    binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	var recipient address.ID
	if err := recipient.Scan(body.Recipient); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "recipient must be a 64-character hex string")
		return
	}
	amount, err := fxmath.FromString(body.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a decimal string")
		return
	}

	stream, err := h.streamSvc.Distribute(c.Request.Context(), streamID, middleware.GetPrincipal(c), recipient, amount)
	if err != nil {
		respondStreamError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stream)
}

// Refund godoc
// POST /api/streams/:id/refund [JWT, host or donor]
// Body: {"donor":"<hex>","amount":"25.0"}
func (h *StreamHandler) Refund(c *gin.Context) {
	streamID, ok := parseStreamID(c)
	if !ok {
		return
	}

	var body struct {
		Donor  string `json:"donor"  binding:"required"`
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	var donor address.ID
	if err := donor.Scan(body.Donor); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "donor must be a 64-character hex string")
		return
	}
	amount, err := fxmath.FromString(body.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a decimal string")
		return
	}

	donorAccount, err := h.streamSvc.Refund(c.Request.Context(), streamID, middleware.GetPrincipal(c), donor, amount)
	if err != nil {
		respondStreamError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, donorAccount)
}

// UpdateStream godoc
// POST /api/streams/:id/update [JWT, host only]
// Body: {"new_end_time":"...","new_status":"ended|cancelled"}
func (h *StreamHandler) UpdateStream(c *gin.Context) {
	streamID, ok := parseStreamID(c)
	if !ok {
		return
	}

	var body struct {
		NewEndTime *time.Time `json:"new_end_time"`
		NewStatus  *string    `json:"new_status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	var newStatus *domain.StreamStatus
	if body.NewStatus != nil {
		status := domain.StreamStatus(*body.NewStatus)
		newStatus = &status
	}

	stream, err := h.streamSvc.UpdateStream(c.Request.Context(), streamID, middleware.GetPrincipal(c), body.NewEndTime, newStatus)
	if err != nil {
		respondStreamError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stream)
}

// CompleteStream godoc
// POST /api/streams/:id/complete [JWT, host only]
func (h *StreamHandler) CompleteStream(c *gin.Context) {
	streamID, ok := parseStreamID(c)
	if !ok {
		return
	}
	stream, err := h.streamSvc.CompleteStream(c.Request.Context(), streamID, middleware.GetPrincipal(c))
	if err != nil {
		respondStreamError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stream)
}

// GetByID godoc
// GET /api/streams/:id
func (h *StreamHandler) GetByID(c *gin.Context) {
	streamID, ok := parseStreamID(c)
	if !ok {
		return
	}
	stream, err := h.streamSvc.GetStream(c.Request.Context(), streamID)
	if err != nil {
		respondError(c, http.StatusNotFound, "ERR_STREAM_NOT_FOUND", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, stream)
}

// ListMine godoc
// GET /api/streams/mine?page=1&limit=20 [JWT]
func (h *StreamHandler) ListMine(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	summaries, total, err := h.streamSvc.ListStreamsByHost(c.Request.Context(), middleware.GetPrincipal(c), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not list streams")
		return
	}
	respondList(c, summaries, total, page, limit)
}

// respondStreamError maps a domain error returned by StreamService to an
// HTTP status/code pair.
func respondStreamError(c *gin.Context, err error) {
	switch err {
	case domain.ErrStreamNotFound:
		respondError(c, http.StatusNotFound, "ERR_STREAM_NOT_FOUND", err.Error())
	case domain.ErrUnauthorized:
		respondError(c, http.StatusForbidden, "ERR_UNAUTHORIZED", err.Error())
	case domain.ErrInvalidAmount, domain.ErrInvalidStreamType:
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
	case domain.ErrStreamAlreadyStarted, domain.ErrStreamAlreadyEnded, domain.ErrStreamNotActive,
		domain.ErrStreamNotStarted, domain.ErrDepositNotAllowed, domain.ErrDurationNotMet,
		domain.ErrConditionsNotMet, domain.ErrAlreadyRefunded, domain.ErrInvalidStatusTransition:
		respondError(c, http.StatusConflict, "ERR_STREAM_STATE", err.Error())
	case domain.ErrInsufficientFunds:
		respondError(c, http.StatusPaymentRequired, "ERR_INSUFFICIENT_FUNDS", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
	}
}
