package categories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/vovakirdan/docflow-server/internal/store"
)

// Common errors for category operations.
var (
	ErrInvalidName  = errors.New("category name must not be empty")
	ErrInvalidColor = errors.New("color must be a hex value like #1e88e5")
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Events receives category notifications. *notify.Emitter implements it.
type Events interface {
	CategoryCreated(ctx context.Context, cat *store.Category)
}

// Service provides category business logic.
type Service struct {
	store  store.CategoryStore
	events Events
}

// New creates a category service.
func New(st store.CategoryStore, events Events) *Service {
	return &Service{store: st, events: events}
}

// Create stores a category and announces it to every connected client.
func (s *Service) Create(ctx context.Context, name, color string) (*store.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	color = strings.TrimSpace(color)
	if color != "" && !colorPattern.MatchString(color) {
		return nil, ErrInvalidColor
	}

	cat, err := s.store.CreateCategory(ctx, name, color)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.events.CategoryCreated(ctx, cat)
	return cat, nil
}

// List returns all categories.
func (s *Service) List(ctx context.Context) ([]*store.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}
