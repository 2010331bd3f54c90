// Package payments implements the manual InstaPay payment-approval flow:
// users submit a transfer proof, administrators review it, approval
// activates the subscription through the activation engine.
package payments

import (
	"errors"
	"math"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hazem-e99/lawyers-sub000/internal/auth"
	"github.com/hazem-e99/lawyers-sub000/internal/storage"
	"github.com/hazem-e99/lawyers-sub000/pkg/logger"
	"github.com/hazem-e99/lawyers-sub000/pkg/models"
	"github.com/hazem-e99/lawyers-sub000/pkg/validation"
)

// Screenshot constraints for submitted transfer proofs.
const MaxScreenshotSize = 5 * 1024 * 1024 // 5 MiB

var allowedScreenshotMimes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type Handler struct {
	db    *gorm.DB
	blobs storage.BlobStore
}

func NewHandler(db *gorm.DB, blobs storage.BlobStore) *Handler {
	return &Handler{db: db, blobs: blobs}
}

func parsePage(c *fiber.Ctx) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	size, _ = strconv.Atoi(c.Query("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 10
	}
	return
}

/* ============================= Submission =============================== */

type submitFields struct {
	PlanDuration    string `json:"plan_duration" validate:"required,oneof=monthly yearly"`
	ReferenceNumber string `json:"reference_number" validate:"required,refnum"`
}

// @Summary      Submit an InstaPay payment request
// @Description  Upload a transfer proof for manual review (multipart: plan_duration, reference_number, screenshot)
// @Tags         payments
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        plan_duration     formData  string  true  "monthly | yearly"
// @Param        reference_number  formData  string  true  "InstaPay reference number"
// @Param        screenshot        formData  file    true  "JPEG/PNG/WebP, max 5 MiB"
// @Success      201  {object}  models.PaymentRequest
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /payments/instapay/request [post]
func (h *Handler) Submit(c *fiber.Ctx) error {
	role := models.Role(auth.MustRole(c))
	if role.Privileged() {
		// Back-office roles review payments, they do not submit them.
		return fiber.ErrForbidden
	}
	userID, _ := uuid.Parse(auth.MustUserID(c))

	in := submitFields{
		PlanDuration:    strings.TrimSpace(c.FormValue("plan_duration")),
		ReferenceNumber: strings.TrimSpace(c.FormValue("reference_number")),
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	fh, err := c.FormFile("screenshot")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "screenshot file is required")
	}
	if fh.Size <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "screenshot is empty")
	}
	if fh.Size > MaxScreenshotSize {
		return fiber.NewError(fiber.StatusBadRequest, "screenshot exceeds 5MB limit")
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(fh.Filename))
	}
	if !allowedScreenshotMimes[ct] {
		return fiber.NewError(fiber.StatusBadRequest, "only JPEG, PNG or WebP screenshots are allowed")
	}

	// Freeze the price from the settings version current right now. Later
	// settings changes must never touch this request's amount.
	settings, err := currentSettings(h.db)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	plan := models.PlanDuration(in.PlanDuration)

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot read screenshot")
	}
	defer f.Close()

	key := h.blobs.MakeObjectKey(userID.String(), fh.Filename)
	if err := h.blobs.Upload(key, f, ct, fh.Size); err != nil {
		logger.L().Error().Err(err).Str("key", key).Msg("screenshot upload failed")
		return fiber.ErrInternalServerError
	}

	// No uniqueness check on reference_number: duplicates are an accepted
	// business risk reviewed by a human.
	req := models.PaymentRequest{
		UserID:          userID,
		Amount:          settings.PriceFor(plan),
		PricingVersion:  settings.Version,
		PlanDuration:    plan,
		ReferenceNumber: in.ReferenceNumber,
		ScreenshotKey:   key,
		ScreenshotMime:  ct,
		ScreenshotSize:  int(fh.Size),
		Status:          models.PaymentPending,
		CreatedAt:       time.Now(),
	}
	if err := h.db.Create(&req).Error; err != nil {
		// Keep storage consistent with the database.
		_ = h.blobs.Delete(key)
		return fiber.ErrInternalServerError
	}

	logger.L().Info().
		Str("request_id", req.ID.String()).
		Str("user_id", userID.String()).
		Str("plan", string(plan)).
		Str("amount", req.Amount.String()).
		Msg("payment request submitted")
	return c.Status(fiber.StatusCreated).JSON(req)
}

/* =============================== Listing ================================ */

type listItem struct {
	ID              uuid.UUID                   `json:"id"`
	UserID          uuid.UUID                   `json:"user_id"`
	UserEmail       string                      `json:"user_email"`
	UserName        string                      `json:"user_name"`
	Amount          decimal.Decimal             `json:"amount"`
	PlanDuration    models.PlanDuration         `json:"plan_duration"`
	ReferenceNumber string                      `json:"reference_number"`
	Status          models.PaymentRequestStatus `json:"status"`
	AdminNote       *string                     `json:"admin_note"`
	ReviewedBy      *uuid.UUID                  `json:"reviewed_by"`
	ReviewedAt      *time.Time                  `json:"reviewed_at"`
	CreatedAt       time.Time                   `json:"created_at"`
}

type pageRequests struct {
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
	Total    int64      `json:"total"`
	Pages    int        `json:"pages"`
	Items    []listItem `json:"items"`
}

func (h *Handler) listByStatus(c *fiber.Ctx, status models.PaymentRequestStatus) error {
	page, size := parsePage(c)

	// Fresh query per use: reusing a chain after Count pollutes the statement.
	base := func() *gorm.DB {
		q := h.db.Model(&models.PaymentRequest{})
		if status != "" {
			q = q.Where("payment_requests.status = ?", status)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	rows := make([]listItem, 0, size)
	if err := base().
		Select(`payment_requests.id, payment_requests.user_id, users.email AS user_email,
          users.name AS user_name, payment_requests.amount, payment_requests.plan_duration,
          payment_requests.reference_number, payment_requests.status, payment_requests.admin_note,
          payment_requests.reviewed_by, payment_requests.reviewed_at, payment_requests.created_at`).
		Joins("LEFT JOIN users ON users.id = payment_requests.user_id").
		Order("payment_requests.created_at ASC").
		Offset((page - 1) * size).Limit(size).
		Scan(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	return c.JSON(pageRequests{
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    int(math.Ceil(float64(total) / float64(size))),
		Items:    rows,
	})
}

// @Summary      List pending payment requests
// @Description  Admin review queue, oldest first
// @Tags         payments-admin
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int false "page"
// @Param        pageSize  query int false "pageSize"
// @Success      200  {object}  pageRequests
// @Failure      403  {object}  models.ErrorResponse
// @Router       /payments/admin/pending [get]
func (h *Handler) ListPending(c *fiber.Ctx) error {
	return h.listByStatus(c, models.PaymentPending)
}

// @Summary      List all payment requests
// @Description  Full audit history, optionally filtered by ?status=
// @Tags         payments-admin
// @Security     BearerAuth
// @Produce      json
// @Param        status    query string false "pending | approved | rejected"
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Success      200  {object}  pageRequests
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /payments/admin/all [get]
func (h *Handler) ListAll(c *fiber.Ctx) error {
	status := models.PaymentRequestStatus(strings.TrimSpace(c.Query("status")))
	switch status {
	case "", models.PaymentPending, models.PaymentApproved, models.PaymentRejected:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "invalid status filter")
	}
	return h.listByStatus(c, status)
}

// @Summary      List my payment requests
// @Description  Requester's own submission history, newest first
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  models.PaymentRequest
// @Failure      401  {object}  models.ErrorResponse
// @Router       /payments/mine [get]
func (h *Handler) ListMine(c *fiber.Ctx) error {
	userID := auth.MustUserID(c)

	list := make([]models.PaymentRequest, 0)
	if err := h.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(list)
}

/* =========================== Screenshot URL ============================= */

// @Summary      Get signed screenshot URL
// @Description  Short-lived signed URL for reviewing a transfer proof
// @Tags         payments-admin
// @Security     BearerAuth
// @Produce      json
// @Param        id  path string true "payment request id (uuid)"
// @Success      200  {object}  map[string]any  "url, expires_in, now"
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /payments/admin/{id}/screenshot-url [get]
func (h *Handler) ScreenshotURL(c *fiber.Ctx) error {
	id := c.Params("id")

	var req models.PaymentRequest
	if err := h.db.First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	url, err := h.blobs.SignedURL(req.ScreenshotKey, 60) // seconds
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"url": url, "expires_in": 60, "now": time.Now().UTC()})
}
