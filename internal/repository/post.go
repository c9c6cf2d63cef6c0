package repository

import (
	"context"
	"time"

	"github.com/Muragesh-24/ENGIGROW/internal/domain"
)

// PostRepository exposes persistence operations for Post aggregates. Every
// mutation of a single post is applied atomically.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) error
	Get(ctx context.Context, id string) (*domain.Post, error)
	// List returns every post, newest first, with comments and likes loaded.
	List(ctx context.Context) ([]domain.Post, error)
	AppendComment(ctx context.Context, postID string, comment domain.Comment) error
	ListComments(ctx context.Context, postID string) ([]domain.Comment, error)
	// SetLike adds or removes identity from the like set and returns the
	// resulting like count. The count only moves when the set changed.
	SetLike(ctx context.Context, postID, identity string, liked bool, at time.Time) (int, error)
	LikeStatus(ctx context.Context, postID, identity string) (domain.LikeStatus, error)
}

// CollaborationRepository stores collaboration requests.
type CollaborationRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, req *domain.CollaborationRequest) error
	ListRecent(ctx context.Context) ([]domain.CollaborationRequest, error)
}
