package http

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/application/service"
	"github.com/acampov/mealpass/internal/domain/entity"
	"github.com/acampov/mealpass/internal/report"
)

// reportPageSize bounds a single report query; events are a few thousand
// attendees at most.
const reportPageSize = 100000

// Handlers contains all HTTP request handlers
type Handlers struct {
	attendeeService service.AttendeeService
	issuanceService service.IssuanceService
	redemption      service.RedemptionService
	batchService    service.BatchIssuanceService
	voucherRepo     port.VoucherRepository
	renderer        port.QRRenderer
	localSource     port.AttendeeSource
	externalSource  port.AttendeeSource // nil when no roster is configured
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	attendeeService service.AttendeeService,
	issuanceService service.IssuanceService,
	redemption service.RedemptionService,
	batchService service.BatchIssuanceService,
	voucherRepo port.VoucherRepository,
	renderer port.QRRenderer,
	localSource port.AttendeeSource,
	externalSource port.AttendeeSource,
	logger Logger,
) *Handlers {
	return &Handlers{
		attendeeService: attendeeService,
		issuanceService: issuanceService,
		redemption:      redemption,
		batchService:    batchService,
		voucherRepo:     voucherRepo,
		renderer:        renderer,
		localSource:     localSource,
		externalSource:  externalSource,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AttendeeRequest represents the attendee create/update payload
type AttendeeRequest struct {
	Name       string `json:"name" binding:"required"`
	ExternalID string `json:"external_id"`
	Email      string `json:"email" binding:"required,email"`
	Active     *bool  `json:"active"`
}

// IssuanceResponse represents the issuance result in API responses
type IssuanceResponse struct {
	Vouchers     []*entity.Voucher `json:"vouchers"`
	Notification string            `json:"notification"`
}

// RedeemRequest represents the scanned payload
type RedeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// RedeemResponse represents the redemption result in API responses
type RedeemResponse struct {
	Outcome    string `json:"outcome"`
	Attendee   string `json:"attendee"`
	MealType   string `json:"meal_type"`
	RedeemedAt string `json:"redeemed_at"`
}

// BulkIssueRequest selects which backing store to draw the roster from
type BulkIssueRequest struct {
	Source string `json:"source"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ListAttendees handles GET /api/attendees
func (h *Handlers) ListAttendees(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	attendees, err := h.attendeeService.List(c.Request.Context(), activeOnly)
	if err != nil {
		h.logger.Error("Failed to list attendees", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve attendees",
		})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: attendees})
}

// CreateAttendee handles POST /api/attendees
func (h *Handlers) CreateAttendee(c *gin.Context) {
	var req AttendeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid attendee payload"})
		return
	}
	if req.ExternalID == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "external_id is required"})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	attendee := &entity.Attendee{
		Name:         req.Name,
		ExternalID:   req.ExternalID,
		Email:        req.Email,
		Active:       active,
		RegisteredAt: time.Now().UTC(),
	}

	if err := h.attendeeService.Create(c.Request.Context(), attendee); err != nil {
		if errors.Is(err, entity.ErrDuplicateAttendee) {
			c.JSON(http.StatusConflict, Response{Success: false, Error: "attendee already exists"})
			return
		}
		h.logger.Error("Failed to create attendee", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to create attendee"})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: attendee})
}

// GetAttendee handles GET /api/attendees/:external_id
func (h *Handlers) GetAttendee(c *gin.Context) {
	attendee, err := h.attendeeService.Get(c.Request.Context(), c.Param("external_id"))
	if err != nil {
		if errors.Is(err, entity.ErrAttendeeNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: "attendee not found"})
			return
		}
		h.logger.Error("Failed to get attendee", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve attendee"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: attendee})
}

// UpdateAttendee handles PUT /api/attendees/:external_id
func (h *Handlers) UpdateAttendee(c *gin.Context) {
	var req AttendeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid attendee payload"})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	attendee := &entity.Attendee{
		Name:       req.Name,
		ExternalID: c.Param("external_id"),
		Email:      req.Email,
		Active:     active,
	}

	if err := h.attendeeService.Update(c.Request.Context(), attendee); err != nil {
		switch {
		case errors.Is(err, entity.ErrAttendeeNotFound):
			c.JSON(http.StatusNotFound, Response{Success: false, Error: "attendee not found"})
		case errors.Is(err, entity.ErrDuplicateAttendee):
			c.JSON(http.StatusConflict, Response{Success: false, Error: "email already taken"})
		default:
			h.logger.Error("Failed to update attendee", "error", err)
			c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to update attendee"})
		}
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: attendee})
}

// DeleteAttendee handles DELETE /api/attendees/:external_id
func (h *Handlers) DeleteAttendee(c *gin.Context) {
	if err := h.attendeeService.Delete(c.Request.Context(), c.Param("external_id")); err != nil {
		if errors.Is(err, entity.ErrAttendeeNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: "attendee not found"})
			return
		}
		h.logger.Error("Failed to delete attendee", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to delete attendee"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// GetAttendeeVouchers handles GET /api/attendees/:external_id/vouchers
func (h *Handlers) GetAttendeeVouchers(c *gin.Context) {
	vouchers, err := h.voucherRepo.FindByAttendee(c.Request.Context(), c.Param("external_id"))
	if err != nil {
		h.logger.Error("Failed to find vouchers", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve vouchers"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: vouchers})
}

// IssueVouchers handles POST /api/attendees/:external_id/vouchers. The
// attendee is resolved against the local store first, then against the
// external roster when one is configured.
func (h *Handlers) IssueVouchers(c *gin.Context) {
	externalID := c.Param("external_id")

	identity, err := h.localSource.GetIdentity(c.Request.Context(), externalID)
	if errors.Is(err, entity.ErrAttendeeNotFound) && h.externalSource != nil {
		identity, err = h.externalSource.GetIdentity(c.Request.Context(), externalID)
	}
	if err != nil {
		if errors.Is(err, entity.ErrAttendeeNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: "attendee not found"})
			return
		}
		h.logger.Error("Failed to resolve attendee", "external_id", externalID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to resolve attendee"})
		return
	}

	result, err := h.issuanceService.IssueVouchers(c.Request.Context(), identity)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrAlreadyIssued):
			c.JSON(http.StatusConflict, Response{Success: false, Error: "vouchers already issued"})
		case errors.Is(err, entity.ErrAttendeeInactive):
			c.JSON(http.StatusPreconditionFailed, Response{Success: false, Error: "attendee is inactive"})
		default:
			h.logger.Error("Issuance failed", "external_id", externalID, "error", err)
			c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "issuance failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data: IssuanceResponse{
			Vouchers:     result.Vouchers,
			Notification: string(result.Notification),
		},
	})
}

// ListVisitors handles GET /api/visitors
func (h *Handlers) ListVisitors(c *gin.Context) {
	if h.externalSource == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "external roster not configured"})
		return
	}

	identities, err := h.externalSource.ListIdentities(c.Request.Context(), false)
	if err != nil {
		h.logger.Error("Failed to list visitors", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve visitors"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: identities})
}

// BulkIssue handles POST /api/vouchers/bulk
func (h *Handlers) BulkIssue(c *gin.Context) {
	var req BulkIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid bulk issue payload"})
		return
	}

	var source port.AttendeeSource
	switch req.Source {
	case "", "local":
		source = h.localSource
	case "external":
		if h.externalSource == nil {
			c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "external roster not configured"})
			return
		}
		source = h.externalSource
	default:
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "source must be local or external"})
		return
	}

	reportData, err := h.batchService.IssueForAll(c.Request.Context(), source)
	if err != nil {
		h.logger.Error("Bulk issuance failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "bulk issuance failed"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: reportData})
}

// Redeem handles POST /api/vouchers/redeem
func (h *Handlers) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid code"})
		return
	}

	result, err := h.redemption.Redeem(c.Request.Context(), req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid code"})
			return
		}
		h.logger.Error("Redemption failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "redemption failed"})
		return
	}

	resp := RedeemResponse{
		Outcome:    string(result.Outcome),
		Attendee:   result.Attendee,
		MealType:   string(result.MealType),
		RedeemedAt: result.RedeemedAt.UTC().Format(time.RFC3339),
	}

	if result.Outcome == service.OutcomeAlreadyRedeemed {
		c.JSON(http.StatusConflict, Response{Success: false, Error: "voucher already redeemed", Data: resp})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: resp})
}

// VoucherImage handles GET /api/vouchers/:token/image
func (h *Handlers) VoucherImage(c *gin.Context) {
	voucher, ok := h.lookupVoucher(c)
	if !ok {
		return
	}

	png, err := h.renderer.Render(voucher.Token)
	if err != nil {
		h.logger.Error("Failed to render QR image", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to render image"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// VoucherBase64 handles GET /api/vouchers/:token/base64
func (h *Handlers) VoucherBase64(c *gin.Context) {
	voucher, ok := h.lookupVoucher(c)
	if !ok {
		return
	}

	png, err := h.renderer.Render(voucher.Token)
	if err != nil {
		h.logger.Error("Failed to render QR image", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to render image"})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"token":        voucher.Token.String(),
			"meal_type":    voucher.MealType,
			"attendee":     voucher.AttendeeName,
			"image_base64": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		},
	})
}

// VoucherReport handles GET /api/reports/vouchers.xlsx
func (h *Handlers) VoucherReport(c *gin.Context) {
	vouchers, err := h.voucherRepo.List(c.Request.Context(), reportPageSize, 0)
	if err != nil {
		h.logger.Error("Failed to list vouchers for report", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to build report"})
		return
	}

	buf, err := report.BuildVoucherWorkbook(vouchers, time.Now())
	if err != nil {
		h.logger.Error("Failed to build voucher workbook", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to build report"})
		return
	}

	filename := fmt.Sprintf("vouchers_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// lookupVoucher resolves the :token parameter, writing the error response
// itself when resolution fails.
func (h *Handlers) lookupVoucher(c *gin.Context) (*entity.Voucher, bool) {
	token, err := entity.ParseToken(entity.NormalizeScan(c.Param("token")))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid token"})
		return nil, false
	}

	voucher, err := h.voucherRepo.GetByToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, entity.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, Response{Success: false, Error: "voucher not found"})
			return nil, false
		}
		h.logger.Error("Failed to get voucher", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve voucher"})
		return nil, false
	}
	return voucher, true
}
