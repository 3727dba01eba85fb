package entity

import "time"

// InvitationCodeType tags what a code grants.
type InvitationCodeType string

const (
	InviteTrial     InvitationCodeType = "trial"
	InviteDiscount  InvitationCodeType = "discount"
	InviteSpecial   InvitationCodeType = "special"
	InviteGroupJoin InvitationCodeType = "group_join"
)

// InvitationCode is a redeemable token owned by its creator. Codes are
// deactivated, never deleted; UsesLeft must never go below zero.
type InvitationCode struct {
	ID          string
	Code        string
	Event       string
	Description string
	Type        InvitationCodeType
	TotalUses   int
	UsesLeft    int
	StartedAt   time.Time
	ExpiredAt   *time.Time
	IsSystem    bool
	IsActive    bool
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Redeemable reports whether the code can be consumed at the given instant.
func (c *InvitationCode) Redeemable(now time.Time) bool {
	if !c.IsActive || c.UsesLeft <= 0 {
		return false
	}
	if now.Before(c.StartedAt) {
		return false
	}
	if c.ExpiredAt != nil && now.After(*c.ExpiredAt) {
		return false
	}
	return true
}

// InvitationStatus is the outcome recorded in the redemption history.
type InvitationStatus string

const (
	InvitationAccepted InvitationStatus = "accepted"
	InvitationPending  InvitationStatus = "pending"
	InvitationDeclined InvitationStatus = "declined"
)

// HistoryInvitation is one append-only redemption record: which user redeemed
// which code and when. Immutable once written.
type HistoryInvitation struct {
	ID        string
	UserID    string
	Code      string
	InvitedAt time.Time
	Status    InvitationStatus
}
