package entity

import "time"

// Role of a user inside the platform.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

// CanInvite reports whether holders of the role may issue invitation codes.
// Students can only redeem codes, never issue them.
func (r Role) CanInvite() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleParent:
		return true
	}
	return false
}

// UserStatus is the account lifecycle state. Accounts are never hard-deleted;
// removal is a transition to StatusDeleted.
type UserStatus string

const (
	StatusActive  UserStatus = "active"
	StatusPending UserStatus = "pending"
	StatusBlocked UserStatus = "blocked"
	StatusDeleted UserStatus = "deleted"
)

// User is the aggregate root for identity and authorization.
// Password holds a bcrypt hash, never plaintext.
type User struct {
	ID             string
	Fullname       string
	Username       string
	Email          string
	Password       string
	Slug           string
	AvatarURL      string
	Role           Role
	Status         UserStatus
	AccountPackage PackageType

	// Role-conditional references. Students without an invite code must carry
	// school/class/teacher/parent; teachers must carry a school.
	School    string
	ClassName string
	TeacherID string
	ParentID  string

	// InvitedBy is a weak back-reference to the user whose invitation code was
	// redeemed at registration. Relation only, no ownership.
	InvitedBy string

	IsVerified bool
	VerifyCode string

	CreatedAt time.Time
	UpdatedAt time.Time
}
