package domain

import "time"

// User represents a registered member of the feed. Email is the identity.
type User struct {
	Email        string
	Name         string
	Institution  string
	Interests    []string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
