package utils

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hazem-e99/lawyers-sub000/pkg/models"
)

// LogSubscriptionEvent inserts an audit record into subscription_events.
// Used to track every entitlement mutation (grants, approvals, renewals,
// cancellations). Errors are ignored on purpose (best-effort logging).
func LogSubscriptionEvent(
	ctx context.Context,
	db *gorm.DB,
	userID, actorID uuid.UUID,
	action string,
	oldExp, newExp *time.Time,
	isTrial bool,
	reason string,
) {
	_ = db.WithContext(ctx).Create(&models.SubscriptionEvent{
		UserID:       userID,
		ActorID:      actorID,
		Action:       action,
		OldExpiresAt: oldExp,
		NewExpiresAt: newExp,
		IsTrial:      isTrial,
		Reason:       reason,
		CreatedAt:    time.Now(),
	}).Error
}
