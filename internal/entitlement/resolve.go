// Package entitlement decides, for every authenticated user on every
// request, whether the product is currently usable. It is the single source
// of truth consumed by both the route guard and the status endpoint, so the
// same rule cannot drift between the two.
package entitlement

import (
	"math"
	"time"

	"github.com/hazem-e99/lawyers-sub000/pkg/models"
)

// Reason explains a decision.
type Reason string

const (
	ReasonActive     Reason = "active"
	ReasonAdmin      Reason = "admin"      // admin bypass, subscription state ignored
	ReasonSuperadmin Reason = "superadmin" // synthetic unbounded entitlement
	ReasonInactive   Reason = "inactive"
	ReasonExpired    Reason = "expired"
)

// UnboundedDays is the sentinel reported for superadmins, who never consult
// a stored subscription record.
const UnboundedDays = 36500

// Decision is the result of an access check.
type Decision struct {
	Usable        bool   `json:"usable"`
	Reason        Reason `json:"reason"`
	DaysRemaining int    `json:"days_remaining"`
}

// Resolve computes the entitlement decision for a user at the given instant.
// It is pure: expiry crossing now takes effect on the next call without any
// state-transition event, so callers must re-resolve on every request and
// never cache the result beyond it.
//
// Rules, first match wins:
//  1. superadmin is always usable with an effectively unbounded horizon.
//  2. admin is always usable, bypassing subscription state entirely: admins
//     operate the payment back office and must never be locked out by their
//     own (possibly absent) subscription.
//  3. everyone else is usable iff the subscription is active and unexpired.
func Resolve(u *models.User, now time.Time) Decision {
	switch u.Role {
	case models.RoleSuperadmin:
		return Decision{Usable: true, Reason: ReasonSuperadmin, DaysRemaining: UnboundedDays}
	case models.RoleAdmin:
		return Decision{Usable: true, Reason: ReasonAdmin, DaysRemaining: daysRemaining(u.Subscription.ExpiresAt, now)}
	}

	sub := u.Subscription
	if !sub.IsActive {
		return Decision{Usable: false, Reason: ReasonInactive}
	}
	if sub.ExpiresAt == nil || !now.Before(*sub.ExpiresAt) {
		return Decision{Usable: false, Reason: ReasonExpired}
	}
	return Decision{Usable: true, Reason: ReasonActive, DaysRemaining: daysRemaining(sub.ExpiresAt, now)}
}

// daysRemaining is ceil((expiresAt - now) / 1 day), floored at zero.
func daysRemaining(expiresAt *time.Time, now time.Time) int {
	if expiresAt == nil {
		return 0
	}
	left := expiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}
