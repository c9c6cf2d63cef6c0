package domain

import "time"

// CollaborationRequest advertises a project looking for partners.
type CollaborationRequest struct {
	ID          string
	Title       string
	Description string
	Skills      string
	Contact     string
	OwnerEmail  string
	OwnerName   string
	CreatedAt   time.Time
}
