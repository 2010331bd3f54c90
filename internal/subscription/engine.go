// Package subscription owns the activation/renewal engine: the only code
// allowed to mutate a user's subscription record. Approval of a payment
// request, direct admin grants and renewals all funnel through Activate so
// the expiry arithmetic lives in exactly one place.
package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hazem-e99/lawyers-sub000/pkg/models"
	"github.com/hazem-e99/lawyers-sub000/pkg/utils"
)

// Engine errors, mapped to HTTP statuses at the handler layer.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidDuration = errors.New("duration must be a positive number of days")
)

// Audit actions recorded on subscription_events.
const (
	ActionTrialGranted    = "trial_granted"
	ActionPaidGranted     = "paid_granted"
	ActionPaymentApproved = "payment_approved"
	ActionRenewed         = "renewed"
	ActionCancelled       = "cancelled"
)

// DefaultRenewDays is used by Renew when the user has no approved payment
// request to derive a plan from.
const DefaultRenewDays = 30

// Activate extends (or starts) the user's subscription by durationDays.
//
// The new expiry is max(now, currentExpiresAt) + durationDays: renewing
// before expiry extends the remaining time instead of discarding it, and
// renewing after expiry starts fresh from now. started_at is preserved once
// set. Callers that need the subscription write to be atomic with other
// writes (the approval workflow) pass their transaction as tx.
func Activate(tx *gorm.DB, userID uuid.UUID, durationDays int, isTrial bool, actorID uuid.UUID, action, reason string) (*models.Subscription, error) {
	if durationDays <= 0 {
		return nil, ErrInvalidDuration
	}

	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// Users are created with a subscription row, but admin grants may target
	// accounts that predate that rule.
	var sub models.Subscription
	err := tx.Where("user_id = ?", userID).First(&sub).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = models.Subscription{UserID: userID}
		if err := tx.Create(&sub).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	now := time.Now()
	oldExpiresAt := sub.ExpiresAt

	base := now
	if sub.ExpiresAt != nil && sub.ExpiresAt.After(now) {
		base = *sub.ExpiresAt
	}
	newExpiresAt := base.AddDate(0, 0, durationDays)

	startedAt := sub.StartedAt
	if startedAt == nil {
		startedAt = &now
	}

	sub.IsActive = true
	sub.IsTrial = isTrial
	sub.StartedAt = startedAt
	sub.ExpiresAt = &newExpiresAt
	if err := tx.Save(&sub).Error; err != nil {
		return nil, err
	}

	utils.LogSubscriptionEvent(context.Background(), tx, userID, actorID, action, oldExpiresAt, &newExpiresAt, isTrial, reason)
	return &sub, nil
}

// Renew extends the subscription reusing the plan duration of the user's
// most recent approved payment request (monthly=30, yearly=365). Users with
// no approved request get DefaultRenewDays. A renewal is always a paid
// period, so is_trial is cleared.
func Renew(tx *gorm.DB, userID, actorID uuid.UUID) (*models.Subscription, error) {
	days := DefaultRenewDays

	var last models.PaymentRequest
	err := tx.Where("user_id = ? AND status = ?", userID, models.PaymentApproved).
		Order("reviewed_at DESC").
		First(&last).Error
	if err == nil {
		days = last.PlanDuration.Days()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return Activate(tx, userID, days, false, actorID, ActionRenewed, "")
}

// Cancel flips is_active off but leaves expires_at in place so the record
// keeps its history; access is then denied by the entitlement resolver.
func Cancel(tx *gorm.DB, userID, actorID uuid.UUID) (*models.Subscription, error) {
	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var sub models.Subscription
	if err := tx.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	sub.IsActive = false
	if err := tx.Save(&sub).Error; err != nil {
		return nil, err
	}

	utils.LogSubscriptionEvent(context.Background(), tx, userID, actorID, ActionCancelled, sub.ExpiresAt, sub.ExpiresAt, sub.IsTrial, "")
	return &sub, nil
}
