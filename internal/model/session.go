package model

import "time"

// Session is the server-side half of a login. Token holds the hex SHA-512 of
// the identity carried by the client's signed cookie, never the identity itself.
type Session struct {
	ID             int64     `json:"id"`
	Token          string    `json:"-"`
	UserID         int64     `json:"user_id"`
	ExpirationTime int64     `json:"expiration_time"`
	Expired        bool      `json:"expired"`
	CreatedAt      time.Time `json:"created_at"`
}

// ExpiresAt converts the epoch-millis expiration to a time.
func (s *Session) ExpiresAt() time.Time {
	return time.UnixMilli(s.ExpirationTime)
}

// Valid reports whether the session may still authenticate at now.
func (s *Session) Valid(now time.Time) bool {
	return !s.Expired && s.ExpirationTime > now.UnixMilli()
}
