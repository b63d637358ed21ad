package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docflow-server/internal/service/categories"
)

// CategoryHandlers handles category HTTP endpoints.
type CategoryHandlers struct {
	categories *categories.Service
	log        *zerolog.Logger
}

// NewCategoryHandlers creates category handlers.
func NewCategoryHandlers(svc *categories.Service, logger *zerolog.Logger) *CategoryHandlers {
	return &CategoryHandlers{categories: svc, log: logger}
}

// CreateCategoryRequest represents the request body for creating a category.
type CreateCategoryRequest struct {
	Name  string `json:"name" binding:"required,max=64"`
	Color string `json:"color"`
}

// List returns all categories.
// GET /api/categories
func (h *CategoryHandlers) List(c *gin.Context) {
	cats, err := h.categories.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list categories")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, mapSlice(cats, categoryDTO))
}

// Create adds a category and broadcasts it. Admin only.
// POST /api/categories
func (h *CategoryHandlers) Create(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	cat, err := h.categories.Create(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		if errors.Is(err, categories.ErrInvalidName) || errors.Is(err, categories.ErrInvalidColor) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("failed to create category")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("category_id", cat.ID).Str("name", cat.Name).Msg("category created")
	c.JSON(http.StatusCreated, categoryDTO(cat))
}
