package entity

import "time"

// PackageType is the account tier a package grants.
type PackageType string

const (
	PackageFree    PackageType = "free"
	PackageBasic   PackageType = "basic"
	PackagePremium PackageType = "premium"
)

// Package is a catalog entry describing a purchasable tier. Read-only from
// the activation workflow's perspective.
type Package struct {
	ID           string
	Name         string
	Type         PackageType
	DurationDays int
	Price        int64 // minor units
	Currency     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment is one row per payment attempt. Created before redirecting to the
// gateway, updated exactly once when the gateway confirms the outcome.
type Payment struct {
	ID            string
	UserID        string
	Amount        int64
	Currency      string
	Method        string
	Description   string
	TransactionID string
	Status        PaymentStatus
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type PurchaseStatus string

const (
	PurchasePending PurchaseStatus = "pending"
	PurchaseSuccess PurchaseStatus = "success"
	PurchaseFailed  PurchaseStatus = "failed"
)

// Purchase links a user to a package purchase attempt. Keyed by the same
// transaction reference as the Payment so asynchronous gateway callbacks can
// find it.
type Purchase struct {
	ID            string
	UserID        string
	PackageID     string
	TransactionID string
	Status        PurchaseStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription is the entitlement window opened by a successful purchase.
type Subscription struct {
	ID            string
	PurchaseID    string
	UserID        string
	TransactionID string
	Status        SubscriptionStatus
	StartDate     *time.Time
	EndDate       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
