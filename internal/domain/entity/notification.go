package entity

import "time"

// Notification is an in-app message addressed to one user.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Body      string
	Kind      string // e.g. "system", "payment", "invitation"
	IsRead    bool
	CreatedAt time.Time
}
