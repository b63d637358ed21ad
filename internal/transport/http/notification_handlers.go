package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docflow-server/internal/notify"
	"github.com/vovakirdan/docflow-server/internal/store"
)

// NotificationHandlers handles notification HTTP endpoints.
type NotificationHandlers struct {
	emitter *notify.Emitter
	log     *zerolog.Logger
}

// NewNotificationHandlers creates notification handlers.
func NewNotificationHandlers(emitter *notify.Emitter, logger *zerolog.Logger) *NotificationHandlers {
	return &NotificationHandlers{emitter: emitter, log: logger}
}

// List returns the caller's notifications, newest first.
// GET /api/notifications
func (h *NotificationHandlers) List(c *gin.Context) {
	notes, err := h.emitter.List(c.Request.Context(), c.GetString(ContextKeyUserID))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, mapSlice(notes, notificationDTO))
}

// MarkRead flags one of the caller's notifications as read.
// PUT /api/notifications/:id/read
func (h *NotificationHandlers) MarkRead(c *gin.Context) {
	err := h.emitter.MarkRead(c.Request.Context(), c.Param("id"), c.GetString(ContextKeyUserID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "notification not found"})
			return
		}
		h.log.Error().Err(err).Msg("failed to mark notification read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "marked as read"})
}
