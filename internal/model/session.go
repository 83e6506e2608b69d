package model

import "time"

// Session is one browser's server-side state. UserEmail and IsAdmin are
// deliberately independent: a session can be admin-authenticated with no
// active user, and vice versa.
type Session struct {
	ID        int64      `json:"id"`
	Token     string     `json:"token"`
	UserEmail *string    `json:"user_email"`
	IsAdmin   bool       `json:"is_admin"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}
