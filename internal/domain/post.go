package domain

import (
	"slices"
	"time"
)

// Post is a short text entry in the feed. It owns its comment thread and the
// set of identities currently liking it.
type Post struct {
	ID          string
	AuthorEmail string
	AuthorName  string
	Body        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Comments    []Comment
	LikeCount   int
	LikedBy     []string
}

// LikedByUser reports whether identity is in the like set.
func (p *Post) LikedByUser(identity string) bool {
	return slices.Contains(p.LikedBy, identity)
}

// Comment is an entry in a post's thread. Author fields are captured when the
// comment is written and never re-resolved.
type Comment struct {
	AuthorEmail string
	AuthorName  string
	Text        string
	CreatedAt   time.Time
}

// LikeStatus is the caller's view of a post's likes.
type LikeStatus struct {
	Liked     bool
	LikeCount int
}
