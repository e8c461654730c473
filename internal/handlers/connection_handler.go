package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"inventory-sync-engine/internal/apperr"
	"inventory-sync-engine/internal/middleware"
	"inventory-sync-engine/internal/models"
)

// ConnectionRepository is the subset of store.ConnectionStore this handler needs.
type ConnectionRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.PlatformConnection, error)
}

// ConnectionCoordinator is the subset of onboarding.Coordinator this handler needs.
type ConnectionCoordinator interface {
	Disconnect(ctx context.Context, connectionID uuid.UUID) error
}

// ConnectionHandler serves spec.md §6's platform-connections endpoints.
type ConnectionHandler struct {
	connections ConnectionRepository
	coordinator ConnectionCoordinator
}

func NewConnectionHandler(connections ConnectionRepository, coordinator ConnectionCoordinator) *ConnectionHandler {
	return &ConnectionHandler{connections: connections, coordinator: coordinator}
}

// List returns every platform connection belonging to the authenticated user.
func (h *ConnectionHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	connections, err := h.connections.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": connections})
}

// Disconnect soft-disconnects a connection (any status -> inactive, spec.md §4.3).
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection id"})
		return
	}

	if err := h.coordinator.Disconnect(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// respondError translates a typed apperr.Error to its HTTP status, falling
// back to 500 for anything else (apperr's HTTPStatus is the only place
// this engine performs that translation).
func respondError(c *gin.Context, err error) {
	if appErr, ok := asAppErr(err); ok {
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func asAppErr(err error) (*apperr.Error, bool) {
	appErr, ok := err.(*apperr.Error)
	return appErr, ok
}
