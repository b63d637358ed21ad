package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docflow-server/internal/proto"
	"github.com/vovakirdan/docflow-server/internal/service/documents"
	"github.com/vovakirdan/docflow-server/internal/store"
)

// DocumentHandlers handles document HTTP endpoints.
type DocumentHandlers struct {
	docs *documents.Service
	log  *zerolog.Logger
}

// NewDocumentHandlers creates document handlers.
func NewDocumentHandlers(docs *documents.Service, logger *zerolog.Logger) *DocumentHandlers {
	return &DocumentHandlers{docs: docs, log: logger}
}

// DocumentListResponse is one page of documents.
type DocumentListResponse struct {
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Count int              `json:"count"`
	Data  []proto.Document `json:"data"`
}

// SignedDocumentResponse is a document with a short-lived download link.
type SignedDocumentResponse struct {
	proto.Document
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UpdateDocumentRequest carries the editable fields; omitted fields stay unchanged.
// An empty category_id clears the category.
type UpdateDocumentRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	CategoryID  *string `json:"category_id"`
}

// Upload stores a multipart file. Admins may upload on behalf of another user via user_id.
// POST /api/documents/upload
func (h *DocumentHandlers) Upload(c *gin.Context) {
	claims := claimsFrom(c)

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
		return
	}

	ownerID := claims.UserID
	if target := c.PostForm("user_id"); target != "" && target != claims.UserID {
		if !claims.IsAdmin() {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "only admins may upload for other users"})
			return
		}
		ownerID = target
	}

	file, err := fh.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("open multipart file")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot read file"})
		return
	}
	defer file.Close()

	doc, err := h.docs.Upload(c.Request.Context(), documents.UploadInput{
		OwnerID:     ownerID,
		Filename:    fh.Filename,
		Description: c.PostForm("description"),
		CategoryID:  c.PostForm("category_id"),
		Size:        fh.Size,
		Body:        file,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, documentDTO(doc))
}

// List returns one page of the caller's documents.
// GET /api/documents?page=&limit=&search=&category=
func (h *DocumentHandlers) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	docs, q, err := h.docs.List(c.Request.Context(), store.DocumentQuery{
		OwnerID:    c.GetString(ContextKeyUserID),
		Page:       page,
		Limit:      limit,
		Search:     c.Query("search"),
		CategoryID: c.Query("category"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, DocumentListResponse{
		Page:  q.Page,
		Limit: q.Limit,
		Count: len(docs),
		Data:  mapSlice(docs, documentDTO),
	})
}

// Get returns a document with a signed URL.
// GET /api/documents/:id
func (h *DocumentHandlers) Get(c *gin.Context) {
	signed, err := h.docs.Get(c.Request.Context(), c.Param("id"), c.GetString(ContextKeyUserID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SignedDocumentResponse{
		Document:  documentDTO(signed.Document),
		URL:       signed.URL,
		ExpiresAt: signed.ExpiresAt,
	})
}

// Download streams the stored body.
// GET /api/documents/:id/download
func (h *DocumentHandlers) Download(c *gin.Context) {
	doc, obj, err := h.docs.Download(c.Request.Context(), c.Param("id"), c.GetString(ContextKeyUserID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = doc.FileType
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	c.DataFromReader(http.StatusOK, obj.Size, contentType, obj.Body, nil)
}

// Update edits document metadata.
// PUT /api/documents/:id
func (h *DocumentHandlers) Update(c *gin.Context) {
	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	doc, err := h.docs.Update(c.Request.Context(), c.Param("id"), c.GetString(ContextKeyUserID), store.DocumentPatch{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentDTO(doc))
}

// Delete removes a document.
// DELETE /api/documents/:id
func (h *DocumentHandlers) Delete(c *gin.Context) {
	if err := h.docs.Delete(c.Request.Context(), c.Param("id"), c.GetString(ContextKeyUserID)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "deleted"})
}

func (h *DocumentHandlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, documents.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "document not found"})
	case errors.Is(err, documents.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
	case errors.Is(err, documents.ErrFileTypeNotAllowed):
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: err.Error()})
	case errors.Is(err, documents.ErrEmptyFile),
		errors.Is(err, documents.ErrInvalidName),
		errors.Is(err, documents.ErrCategoryNotFound),
		errors.Is(err, documents.ErrOwnerNotFound):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("document request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
