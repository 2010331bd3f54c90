package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

/* =============================== Enums ================================== */

// Role defines the type of user in the system.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleAssistant  Role = "assistant"
	RoleLawyer     Role = "lawyer"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Privileged reports whether the role operates the payment back office.
// Privileged roles never purchase subscriptions themselves.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// PlanDuration is the billing period a payment request pays for.
type PlanDuration string

const (
	PlanMonthly PlanDuration = "monthly"
	PlanYearly  PlanDuration = "yearly"
)

// Days returns the number of subscription days the plan buys.
func (p PlanDuration) Days() int {
	if p == PlanYearly {
		return 365
	}
	return 30
}

// PaymentRequestStatus defines lifecycle states for a payment request.
// approved and rejected are terminal.
type PaymentRequestStatus string

const (
	PaymentPending  PaymentRequestStatus = "pending"
	PaymentApproved PaymentRequestStatus = "approved"
	PaymentRejected PaymentRequestStatus = "rejected"
)

/* =============================== Entities =============================== */

// User represents an account in the law-office administration tool.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null" json:"role"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`

	// 1:1, created inactive together with the user and mutated only by the
	// activation engine.
	Subscription Subscription `gorm:"foreignKey:UserID" json:"subscription"`
}

// Subscription is the entitlement record owned by exactly one user.
// Replaced wholesale on every mutation, never patched by two concurrent
// writers.
type Subscription struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	IsActive  bool       `gorm:"not null;default:false" json:"is_active"`
	IsTrial   bool       `gorm:"not null;default:false" json:"is_trial"`
	StartedAt *time.Time `json:"started_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PaymentRequest is a manually submitted bank-transfer proof. Immutable once
// created except for the single pending -> approved|rejected review
// transition. Never deleted (audit requirement).
type PaymentRequest struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	// Amount is the price at submission time, frozen together with the
	// pricing version that produced it. It must never be recomputed from
	// later settings.
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PricingVersion uint            `gorm:"not null" json:"pricing_version"`

	PlanDuration    PlanDuration `gorm:"type:varchar(10);not null" json:"plan_duration"`
	ReferenceNumber string       `gorm:"not null" json:"reference_number"` // user-supplied, not unique
	ScreenshotKey   string       `gorm:"not null" json:"-"`
	ScreenshotMime  string       `gorm:"not null" json:"screenshot_mime"`
	ScreenshotSize  int          `gorm:"not null" json:"screenshot_size"`

	Status     PaymentRequestStatus `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	AdminNote  *string              `json:"admin_note"`
	ReviewedBy *uuid.UUID           `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt *time.Time           `json:"reviewed_at"`

	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

// PricingSettings is an append-only, versioned configuration row. The row
// with the highest version is current; updates insert a new row so that
// amounts stamped into old payment requests stay auditable.
type PricingSettings struct {
	Version            uint            `gorm:"primaryKey;autoIncrement" json:"version"`
	InstaPayIdentifier string          `gorm:"not null" json:"instapay_identifier"`
	MonthlyPrice       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"monthly_price"`
	YearlyPrice        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"yearly_price"`
	YearlySavingsLabel string          `json:"yearly_savings_label"`
	UpdatedBy          *uuid.UUID      `gorm:"type:uuid" json:"updated_by"`
	CreatedAt          time.Time       `json:"created_at"`
}

// PriceFor returns the frozen amount for a plan under these settings.
func (s PricingSettings) PriceFor(plan PlanDuration) decimal.Decimal {
	if plan == PlanYearly {
		return s.YearlyPrice
	}
	return s.MonthlyPrice
}

// SubscriptionEvent is an audit log entry for entitlement changes.
type SubscriptionEvent struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	ActorID      uuid.UUID  `gorm:"type:uuid;not null;index"` // who performed the action (user/admin/system)
	Action       string     `gorm:"type:varchar(50);not null"` // e.g. trial_granted, paid_granted, payment_approved, renewed, cancelled
	OldExpiresAt *time.Time
	NewExpiresAt *time.Time
	IsTrial      bool
	Reason       string    `gorm:"type:text"` // optional explanation/comment
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

/* ============================ GORM hooks ================================ */

// IDs are generated application-side so the sqlite test databases behave
// the same as postgres (which also carries a gen_random_uuid() default).

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (p *PaymentRequest) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (e *SubscriptionEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
