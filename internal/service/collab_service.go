package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Muragesh-24/ENGIGROW/internal/domain"
	"github.com/Muragesh-24/ENGIGROW/internal/repository"
	"github.com/Muragesh-24/ENGIGROW/internal/validation"
)

// CollaborationInput is the user-supplied part of a collaboration request.
type CollaborationInput struct {
	Title       string
	Description string
	Skills      string
	Contact     string
}

type CollaborationService interface {
	Create(ctx context.Context, owner *domain.User, in CollaborationInput) (*domain.CollaborationRequest, error)
	ListRecent(ctx context.Context) ([]domain.CollaborationRequest, error)
}

type collaborationService struct {
	requests repository.CollaborationRepository
	now      func() time.Time
}

func NewCollaborationService(requests repository.CollaborationRepository) CollaborationService {
	return &collaborationService{
		requests: requests,
		now:      time.Now,
	}
}

func (s *collaborationService) Create(ctx context.Context, owner *domain.User, in CollaborationInput) (*domain.CollaborationRequest, error) {
	req := &domain.CollaborationRequest{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Skills:      strings.TrimSpace(in.Skills),
		Contact:     strings.TrimSpace(in.Contact),
		OwnerEmail:  owner.Email,
		OwnerName:   owner.Name,
		CreatedAt:   s.now().UTC(),
	}
	for _, field := range []struct{ name, value string }{
		{"title", req.Title},
		{"description", req.Description},
		{"skills", req.Skills},
		{"contact", req.Contact},
	} {
		if err := validation.Required(field.name, field.value); err != nil {
			return nil, err
		}
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *collaborationService) ListRecent(ctx context.Context) ([]domain.CollaborationRequest, error) {
	return s.requests.ListRecent(ctx)
}
