package payments

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hazem-e99/lawyers-sub000/internal/auth"
	"github.com/hazem-e99/lawyers-sub000/pkg/logger"
	"github.com/hazem-e99/lawyers-sub000/pkg/models"
)

// currentSettings returns the highest-version pricing row. Settings are
// append-only: every change inserts a new version, so amounts stamped into
// old payment requests stay explainable.
func currentSettings(db *gorm.DB) (models.PricingSettings, error) {
	var s models.PricingSettings
	err := db.Order("version DESC").First(&s).Error
	return s, err
}

// EnsureDefaultSettings seeds the initial pricing row on an empty table so
// the submission flow always has a price to freeze.
func EnsureDefaultSettings(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.PricingSettings{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(&models.PricingSettings{
		InstaPayIdentifier: "lawyers@instapay",
		MonthlyPrice:       decimal.NewFromInt(199),
		YearlyPrice:        decimal.NewFromInt(1999),
		YearlySavingsLabel: "2 months free",
	}).Error
}

/* =============================== Handlers =============================== */

type settingsRequest struct {
	InstaPayIdentifier string          `json:"instapay_identifier"`
	MonthlyPrice       decimal.Decimal `json:"monthly_price"`
	YearlyPrice        decimal.Decimal `json:"yearly_price"`
	YearlySavingsLabel string          `json:"yearly_savings_label"`
}

// @Summary      Get pricing settings
// @Description  Current InstaPay identifier and plan prices
// @Tags         payments-admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.PricingSettings
// @Failure      403  {object}  models.ErrorResponse
// @Router       /payments/admin/settings [get]
func (h *Handler) GetSettings(c *fiber.Ctx) error {
	s, err := currentSettings(h.db)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(s)
}

// @Summary      Update pricing settings
// @Description  Appends a new settings version; existing payment request amounts are untouched
// @Tags         payments-admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  settingsRequest  true  "Pricing fields"
// @Success      200  {object}  models.PricingSettings
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /payments/admin/settings [put]
func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	var in settingsRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}

	in.InstaPayIdentifier = strings.TrimSpace(in.InstaPayIdentifier)
	if in.InstaPayIdentifier == "" {
		return fiber.NewError(fiber.StatusBadRequest, "instapay_identifier is required")
	}
	if !in.MonthlyPrice.IsPositive() || !in.YearlyPrice.IsPositive() {
		return fiber.NewError(fiber.StatusBadRequest, "prices must be positive")
	}

	updatedBy, _ := uuid.Parse(auth.MustUserID(c))
	s := models.PricingSettings{
		InstaPayIdentifier: in.InstaPayIdentifier,
		MonthlyPrice:       in.MonthlyPrice,
		YearlyPrice:        in.YearlyPrice,
		YearlySavingsLabel: strings.TrimSpace(in.YearlySavingsLabel),
		UpdatedBy:          &updatedBy,
	}
	if err := h.db.Create(&s).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	logger.L().Info().
		Uint("version", s.Version).
		Str("updated_by", updatedBy.String()).
		Str("monthly", s.MonthlyPrice.String()).
		Str("yearly", s.YearlyPrice.String()).
		Msg("pricing settings updated")
	return c.JSON(s)
}
