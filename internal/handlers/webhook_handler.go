package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"inventory-sync-engine/internal/models"
	"inventory-sync-engine/internal/webhook"
)

// WebhookDispatcher is the subset of webhook.Dispatcher this handler needs.
type WebhookDispatcher interface {
	Handle(ctx context.Context, platform models.PlatformKind, explicitConnectionID *uuid.UUID, payload []byte, headers map[string]string) (*webhook.Result, *webhook.PendingWork, error)
}

// WebhookHandler serves spec.md §6's inbound platform-webhook endpoint,
// one route per platform plus an optional connectionId path segment.
type WebhookHandler struct {
	dispatcher WebhookDispatcher
}

func NewWebhookHandler(dispatcher WebhookDispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher}
}

func (h *WebhookHandler) HandleShopify(c *gin.Context)  { h.handle(c, models.PlatformShopify) }
func (h *WebhookHandler) HandleSquare(c *gin.Context)   { h.handle(c, models.PlatformSquare) }
func (h *WebhookHandler) HandleClover(c *gin.Context)   { h.handle(c, models.PlatformClover) }
func (h *WebhookHandler) HandleEbay(c *gin.Context)     { h.handle(c, models.PlatformEbay) }
func (h *WebhookHandler) HandleFacebook(c *gin.Context) { h.handle(c, models.PlatformFacebook) }
func (h *WebhookHandler) HandleWhatnot(c *gin.Context)  { h.handle(c, models.PlatformWhatnot) }

// handle implements spec.md §4.7 steps 1-4: read the raw body, resolve and
// verify the connection, write the 200 response, then kick off processing
// in the background so a slow downstream adapter never blocks the
// originating webhook delivery.
func (h *WebhookHandler) handle(c *gin.Context, platform models.PlatformKind) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	var connectionID *uuid.UUID
	if raw := c.Param("connectionId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection id", "webhookId": ""})
			return
		}
		connectionID = &id
	}

	result, pending, err := h.dispatcher.Handle(c.Request.Context(), platform, connectionID, payload, headers)
	if err != nil {
		webhookID := ""
		status := http.StatusInternalServerError
		message := err.Error()
		if appErr, ok := asAppErr(err); ok {
			status = appErr.HTTPStatus()
			message = appErr.Message
		}
		c.JSON(status, gin.H{"error": message, "message": message, "webhookId": webhookID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"webhookId": result.WebhookID,
		"platform":  result.Platform,
		"timestamp": result.Timestamp,
	})

	if pending != nil {
		go pending.Process(context.Background())
	}
}
