package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docflow-server/internal/core"
	"github.com/vovakirdan/docflow-server/internal/proto"
	"github.com/vovakirdan/docflow-server/internal/store"
)

// AdminHandlers serves the administrator views. Every route is behind AdminOnly.
type AdminHandlers struct {
	store store.Store
	hub   *core.Hub
	log   *zerolog.Logger
}

// NewAdminHandlers creates admin handlers.
func NewAdminHandlers(st store.Store, hub *core.Hub, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{store: st, hub: hub, log: logger}
}

// UsersResponse lists accounts.
type UsersResponse struct {
	Users []proto.User `json:"users"`
}

// ActiveUsersResponse is the presence snapshot.
type ActiveUsersResponse struct {
	ActiveUsers []string `json:"activeUsers"`
}

// StatsResponse holds dashboard counters.
type StatsResponse struct {
	Users         int `json:"users"`
	Documents     int `json:"documents"`
	Categories    int `json:"categories"`
	Notifications int `json:"notifications"`
	ActiveUsers   int `json:"active_users"`
}

// Users lists all accounts.
// GET /api/users
func (h *AdminHandlers) Users(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, UsersResponse{Users: mapSlice(users, userDTO)})
}

// ActiveUsers returns the ids of users with at least one joined connection.
// GET /api/active-users
func (h *AdminHandlers) ActiveUsers(c *gin.Context) {
	users, err := h.hub.ActiveUsers(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("presence unavailable")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "presence unavailable"})
		return
	}
	if users == nil {
		users = []string{}
	}
	c.JSON(http.StatusOK, ActiveUsersResponse{ActiveUsers: users})
}

// Stats returns dashboard counters.
// GET /api/dashboard/stats
func (h *AdminHandlers) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load stats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := StatsResponse{
		Users:         stats.Users,
		Documents:     stats.Documents,
		Categories:    stats.Categories,
		Notifications: stats.Notifications,
	}
	if users, err := h.hub.ActiveUsers(c.Request.Context()); err == nil {
		resp.ActiveUsers = len(users)
	}
	c.JSON(http.StatusOK, resp)
}
