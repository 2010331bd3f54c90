package subscription

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hazem-e99/lawyers-sub000/internal/auth"
	"github.com/hazem-e99/lawyers-sub000/internal/entitlement"
	"github.com/hazem-e99/lawyers-sub000/pkg/logger"
	"github.com/hazem-e99/lawyers-sub000/pkg/models"
	"github.com/hazem-e99/lawyers-sub000/pkg/validation"
)

// Default grant lengths when /subscription/start is called without an
// explicit duration.
const (
	DefaultTrialDays = 7
	DefaultPaidDays  = 30
)

/* ================================ DTOs ================================= */

type StartRequest struct {
	UserID       string `json:"user_id" validate:"omitempty,uuid4"`
	IsTrial      bool   `json:"is_trial"`
	DurationDays int    `json:"duration_days" validate:"omitempty,gt=0,lte=3650"`
}

type TargetRequest struct {
	UserID string `json:"user_id" validate:"omitempty,uuid4"`
}

type StatusResponse struct {
	Entitlement  entitlement.Decision `json:"entitlement"`
	Subscription models.Subscription  `json:"subscription"`
}

/* ============================== Handler ================================= */

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

// targetUserID decides whose subscription an operation acts on. Acting on
// another user's record requires a back-office role.
func targetUserID(c *fiber.Ctx, requested string) (uuid.UUID, error) {
	self := auth.MustUserID(c)
	if requested == "" || requested == self {
		return uuid.Parse(self)
	}
	if !models.Role(auth.MustRole(c)).Privileged() {
		return uuid.Nil, fiber.ErrForbidden
	}
	id, err := uuid.Parse(requested)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
	}
	return id, nil
}

// toHTTPError maps engine errors onto the transport taxonomy.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return fiber.ErrNotFound
	case errors.Is(err, ErrInvalidDuration):
		return fiber.NewError(fiber.StatusBadRequest, ErrInvalidDuration.Error())
	default:
		return fiber.ErrInternalServerError
	}
}

/* ================================ Status ================================ */

// @Summary      Subscription status
// @Description  Entitlement decision plus the current subscription snapshot
// @Tags         subscription
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /subscription/status [get]
func (h *Handler) Status(c *fiber.Ctx) error {
	var u models.User
	if err := h.db.Preload("Subscription").First(&u, "id = ?", auth.MustUserID(c)).Error; err != nil {
		return fiber.ErrUnauthorized
	}

	return c.JSON(StatusResponse{
		Entitlement:  entitlement.Resolve(&u, time.Now()),
		Subscription: u.Subscription,
	})
}

/* ================================ Start ================================= */

// @Summary      Start a subscription
// @Description  Grant a trial or paid period to yourself or (admin) another user
// @Tags         subscription
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  StartRequest  true  "Start payload"
// @Success      200  {object}  models.Subscription
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /subscription/start [post]
func (h *Handler) Start(c *fiber.Ctx) error {
	var in StartRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	userID, err := targetUserID(c, in.UserID)
	if err != nil {
		return err
	}
	actorID, _ := uuid.Parse(auth.MustUserID(c))

	days := in.DurationDays
	if days == 0 {
		if in.IsTrial {
			days = DefaultTrialDays
		} else {
			days = DefaultPaidDays
		}
	}
	action := ActionPaidGranted
	if in.IsTrial {
		action = ActionTrialGranted
	}

	var sub *models.Subscription
	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = Activate(tx, userID, days, in.IsTrial, actorID, action, "")
		return err
	})
	if txErr != nil {
		return toHTTPError(txErr)
	}

	logger.L().Info().
		Str("user_id", userID.String()).
		Str("actor_id", actorID.String()).
		Int("days", days).
		Bool("trial", in.IsTrial).
		Msg("subscription started")
	return c.JSON(sub)
}

/* ================================ Renew ================================= */

// @Summary      Renew a subscription
// @Description  Extend by the last approved plan's duration (default 30 days)
// @Tags         subscription
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  TargetRequest  false  "Renew payload"
// @Success      200  {object}  models.Subscription
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /subscription/renew [post]
func (h *Handler) Renew(c *fiber.Ctx) error {
	var in TargetRequest
	// Body is optional for self-renewal.
	_ = c.BodyParser(&in)
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	userID, err := targetUserID(c, in.UserID)
	if err != nil {
		return err
	}
	actorID, _ := uuid.Parse(auth.MustUserID(c))

	var sub *models.Subscription
	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = Renew(tx, userID, actorID)
		return err
	})
	if txErr != nil {
		return toHTTPError(txErr)
	}

	logger.L().Info().
		Str("user_id", userID.String()).
		Str("actor_id", actorID.String()).
		Msg("subscription renewed")
	return c.JSON(sub)
}

/* ================================ Cancel ================================ */

// @Summary      Cancel a subscription
// @Description  Deactivate access; expiry history is preserved
// @Tags         subscription
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  TargetRequest  false  "Cancel payload"
// @Success      200  {object}  models.Subscription
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /subscription/cancel [post]
func (h *Handler) Cancel(c *fiber.Ctx) error {
	var in TargetRequest
	_ = c.BodyParser(&in)
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	userID, err := targetUserID(c, in.UserID)
	if err != nil {
		return err
	}
	actorID, _ := uuid.Parse(auth.MustUserID(c))

	var sub *models.Subscription
	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = Cancel(tx, userID, actorID)
		return err
	})
	if txErr != nil {
		return toHTTPError(txErr)
	}

	logger.L().Info().
		Str("user_id", userID.String()).
		Str("actor_id", actorID.String()).
		Msg("subscription cancelled")
	return c.JSON(sub)
}
