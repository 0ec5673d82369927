package model

import "time"

// Capsule is a time capsule entry. It owns the attachments stored under it.
type Capsule struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	OpenAt    time.Time `json:"open_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Sealed reports whether the capsule is still locked at the given instant.
func (c *Capsule) Sealed(now time.Time) bool {
	return now.Before(c.OpenAt)
}
