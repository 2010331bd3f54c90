package payments

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hazem-e99/lawyers-sub000/internal/auth"
	"github.com/hazem-e99/lawyers-sub000/internal/subscription"
	"github.com/hazem-e99/lawyers-sub000/pkg/logger"
	"github.com/hazem-e99/lawyers-sub000/pkg/models"
)

// errAlreadyReviewed is returned when the pending -> terminal compare-and-set
// finds the request already reviewed. It is an expected outcome of two
// reviewers racing, surfaced to the loser as a 409.
var errAlreadyReviewed = errors.New("payment request already reviewed")

type reviewRequest struct {
	AdminNote string `json:"admin_note"`
}

// transition performs the single legal state change pending -> status as a
// conditional update. Zero rows affected means someone else reviewed the
// request first; the caller decides between 404 and 409 from the prior read.
func transition(tx *gorm.DB, id uuid.UUID, status models.PaymentRequestStatus, reviewerID uuid.UUID, note *string) error {
	now := time.Now()
	res := tx.Model(&models.PaymentRequest{}).
		Where("id = ? AND status = ?", id, models.PaymentPending).
		Updates(map[string]any{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": now,
			"admin_note":  note,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errAlreadyReviewed
	}
	return nil
}

/* =============================== Approve ================================ */

// @Summary      Approve a payment request
// @Description  Marks the request approved and activates the paid subscription atomically
// @Tags         payments-admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string         true   "payment request id (uuid)"
// @Param        payload  body  reviewRequest  false  "optional admin note"
// @Success      200  {object}  map[string]any  "request, subscription"
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "already reviewed"
// @Router       /payments/admin/{id}/approve [post]
func (h *Handler) Approve(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
	}
	reviewerID, _ := uuid.Parse(auth.MustUserID(c))

	var in reviewRequest
	// Note is optional on approval; an empty body is fine.
	_ = c.BodyParser(&in)
	var note *string
	if s := strings.TrimSpace(in.AdminNote); s != "" {
		note = &s
	}

	var req models.PaymentRequest
	var sub *models.Subscription

	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			return err
		}
		if err := transition(tx, id, models.PaymentApproved, reviewerID, note); err != nil {
			return err
		}
		// Same unit of work as the status write: if activation fails the
		// transaction rolls back and the request stays pending.
		var err error
		sub, err = subscription.Activate(
			tx, req.UserID, req.PlanDuration.Days(), false,
			reviewerID, subscription.ActionPaymentApproved, "payment request "+id.String(),
		)
		return err
	})
	switch {
	case errors.Is(txErr, gorm.ErrRecordNotFound):
		return fiber.ErrNotFound
	case errors.Is(txErr, errAlreadyReviewed):
		return fiber.NewError(fiber.StatusConflict, "payment request already reviewed")
	case errors.Is(txErr, subscription.ErrUserNotFound):
		return fiber.ErrNotFound
	case txErr != nil:
		return fiber.ErrInternalServerError
	}

	// Re-read for the response; the row now carries the review outcome.
	if err := h.db.First(&req, "id = ?", id).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	logger.L().Info().
		Str("request_id", id.String()).
		Str("user_id", req.UserID.String()).
		Str("reviewer_id", reviewerID.String()).
		Str("plan", string(req.PlanDuration)).
		Msg("payment request approved")
	return c.JSON(fiber.Map{"request": req, "subscription": sub})
}

/* =============================== Reject ================================= */

// @Summary      Reject a payment request
// @Description  Marks the request rejected; an admin note explaining why is mandatory
// @Tags         payments-admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string         true  "payment request id (uuid)"
// @Param        payload  body  reviewRequest  true  "admin note (required)"
// @Success      200  {object}  models.PaymentRequest
// @Failure      400  {object}  models.ErrorResponse  "missing note"
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "already reviewed"
// @Router       /payments/admin/{id}/reject [post]
func (h *Handler) Reject(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request id")
	}
	reviewerID, _ := uuid.Parse(auth.MustUserID(c))

	var in reviewRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	note := strings.TrimSpace(in.AdminNote)
	if note == "" {
		// Unlike approval, rejection always needs a human-readable reason.
		return fiber.NewError(fiber.StatusBadRequest, "admin_note is required when rejecting")
	}

	var req models.PaymentRequest
	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			return err
		}
		// No subscription side effect on rejection.
		return transition(tx, id, models.PaymentRejected, reviewerID, &note)
	})
	switch {
	case errors.Is(txErr, gorm.ErrRecordNotFound):
		return fiber.ErrNotFound
	case errors.Is(txErr, errAlreadyReviewed):
		return fiber.NewError(fiber.StatusConflict, "payment request already reviewed")
	case txErr != nil:
		return fiber.ErrInternalServerError
	}

	if err := h.db.First(&req, "id = ?", id).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	logger.L().Info().
		Str("request_id", id.String()).
		Str("user_id", req.UserID.String()).
		Str("reviewer_id", reviewerID.String()).
		Msg("payment request rejected")
	return c.JSON(req)
}
