package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Muragesh-24/ENGIGROW/internal/domain"
	"github.com/Muragesh-24/ENGIGROW/internal/observability"
	"github.com/Muragesh-24/ENGIGROW/internal/repository"
	"github.com/Muragesh-24/ENGIGROW/internal/search"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// PostService coordinates feed operations backed by the post repository.
type PostService interface {
	Create(ctx context.Context, authorEmail, authorName, body string) (*domain.Post, error)
	Feed(ctx context.Context) iter.Seq2[domain.Post, error]
	AddComment(ctx context.Context, postID, authorEmail, authorName, text string) (*domain.Comment, error)
	Comments(ctx context.Context, postID string) ([]domain.Comment, error)
	ToggleLike(ctx context.Context, postID, identity string, liked bool) (int, error)
	LikeStatus(ctx context.Context, postID, identity string) (domain.LikeStatus, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Post, error)
}

// FeedCache stores the assembled feed between mutations.
type FeedCache interface {
	Feed(ctx context.Context, fetch func(context.Context) ([]domain.Post, error)) ([]domain.Post, error)
	Invalidate(ctx context.Context) error
}

// PostIndex is the full-text index kept alongside the store.
type PostIndex interface {
	IndexPost(post domain.Post) error
	Search(query string, limit int) ([]search.Hit, error)
}

type PostOption func(*postService)

func WithFeedCache(cache FeedCache) PostOption {
	return func(s *postService) {
		s.cache = cache
	}
}

func WithPostIndex(index PostIndex) PostOption {
	return func(s *postService) {
		s.index = index
	}
}

func WithPostLogger(logger *logrus.Logger) PostOption {
	return func(s *postService) {
		s.logger = logger.WithField("component", "post_service")
	}
}

// WithPostClock overrides the time source for post, comment and like timestamps.
func WithPostClock(now func() time.Time) PostOption {
	return func(s *postService) {
		s.now = now
	}
}

type postService struct {
	posts  repository.PostRepository
	cache  FeedCache
	index  PostIndex
	logger *logrus.Entry
	now    func() time.Time
}

func NewPostService(posts repository.PostRepository, opts ...PostOption) PostService {
	s := &postService{
		posts:  posts,
		logger: logrus.StandardLogger().WithField("component", "post_service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *postService) Create(ctx context.Context, authorEmail, authorName, body string) (*domain.Post, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: post body is required", domain.ErrValidation)
	}

	post := &domain.Post{
		ID:          uuid.NewString(),
		AuthorEmail: authorEmail,
		AuthorName:  authorName,
		Body:        body,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.PostsCreated.Inc()

	if s.index != nil {
		if err := s.index.IndexPost(*post); err != nil {
			s.logger.WithError(err).WithField("post_id", post.ID).Warn("index new post")
		}
	}
	s.invalidateFeed(ctx)
	return post, nil
}

// Feed yields every post newest first. Nothing is read until the sequence is
// ranged over, and each range reads the store again.
func (s *postService) Feed(ctx context.Context) iter.Seq2[domain.Post, error] {
	return func(yield func(domain.Post, error) bool) {
		var (
			posts []domain.Post
			err   error
		)
		if s.cache != nil {
			posts, err = s.cache.Feed(ctx, s.posts.List)
		} else {
			posts, err = s.posts.List(ctx)
		}
		if err != nil {
			yield(domain.Post{}, err)
			return
		}
		for _, post := range posts {
			if !yield(post, nil) {
				return
			}
		}
	}
}

func (s *postService) AddComment(ctx context.Context, postID, authorEmail, authorName, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", domain.ErrValidation)
	}

	comment := domain.Comment{
		AuthorEmail: authorEmail,
		AuthorName:  authorName,
		Text:        text,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.posts.AppendComment(ctx, postID, comment); err != nil {
		return nil, err
	}
	observability.CommentsAppended.Inc()
	s.invalidateFeed(ctx)
	return &comment, nil
}

func (s *postService) Comments(ctx context.Context, postID string) ([]domain.Comment, error) {
	return s.posts.ListComments(ctx, postID)
}

func (s *postService) ToggleLike(ctx context.Context, postID, identity string, liked bool) (int, error) {
	count, err := s.posts.SetLike(ctx, postID, identity, liked, s.now().UTC())
	if err != nil {
		return 0, err
	}
	observability.LikeToggles.WithLabelValues(strconv.FormatBool(liked)).Inc()
	s.invalidateFeed(ctx)
	return count, nil
}

func (s *postService) LikeStatus(ctx context.Context, postID, identity string) (domain.LikeStatus, error) {
	return s.posts.LikeStatus(ctx, postID, identity)
}

func (s *postService) Search(ctx context.Context, query string, limit int) ([]domain.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", domain.ErrValidation)
	}
	if s.index == nil {
		return nil, errors.New("post search is not configured")
	}
	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}

	hits, err := s.index.Search(query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	posts := make([]domain.Post, 0, len(hits))
	for _, hit := range hits {
		post, err := s.posts.Get(ctx, hit.PostID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

func (s *postService) invalidateFeed(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("invalidate feed cache")
	}
}
