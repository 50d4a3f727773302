package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/godweb/backend/internal/models"
)

type BlogPostRepo interface {
	Create(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit int) ([]*models.Post, error)
}

// BlogService publishes posts and serves them with premium content gated by
// PremiumService.HasAccess.
type BlogService struct {
	Posts   BlogPostRepo
	Premium *PremiumService
	Logger  *slog.Logger
}

func NewBlogService(posts BlogPostRepo, premium *PremiumService, logger *slog.Logger) *BlogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlogService{Posts: posts, Premium: premium, Logger: logger}
}

func validatePost(p *models.Post) error {
	if p.PremiumPrice < 0 || (p.IsPremium && p.PremiumPrice == 0) {
		return ErrInvalidAmount
	}
	if !p.IsPremium {
		p.PremiumPrice = 0
	}
	return nil
}

func (s *BlogService) Create(ctx context.Context, authorID uuid.UUID, p *models.Post) error {
	if err := validatePost(p); err != nil {
		return err
	}
	p.ID = uuid.New()
	p.AuthorID = authorID
	return s.Posts.Create(ctx, p)
}

func (s *BlogService) Update(ctx context.Context, p *models.Post) (*models.Post, error) {
	if err := validatePost(p); err != nil {
		return nil, err
	}
	if err := s.Posts.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.Posts.GetByID(ctx, p.ID)
}

// Delete removes a post. A post someone has paid for returns ErrInUse.
func (s *BlogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Posts.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.Info("post deleted", "post_id", id)
	return nil
}

// Read returns the post for a viewer and counts the view. Content is cleared
// when the viewer has no access; the second result reports access.
func (s *BlogService) Read(ctx context.Context, viewerID uuid.UUID, role models.Role, id uuid.UUID) (*models.Post, bool, error) {
	p, err := s.Posts.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	ok, err := s.Premium.HasAccess(ctx, viewerID, role, p)
	if err != nil {
		return nil, false, err
	}
	if err := s.Posts.IncrementViews(ctx, id); err != nil {
		s.Logger.Warn("increment views", "post_id", id, "error", err)
	} else {
		p.Views++
	}
	if !ok {
		p.Content = ""
	}
	return p, ok, nil
}

// List returns posts without their content.
func (s *BlogService) List(ctx context.Context, limit int) ([]*models.Post, error) {
	posts, err := s.Posts.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		p.Content = ""
	}
	return posts, nil
}
