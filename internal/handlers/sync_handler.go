package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"inventory-sync-engine/internal/apperr"
	"inventory-sync-engine/internal/dispatch"
	"inventory-sync-engine/internal/models"
)

// SyncConnectionRepository is the subset of store.ConnectionStore this handler needs.
type SyncConnectionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PlatformConnection, error)
	Update(ctx context.Context, connection *models.PlatformConnection) error
}

// SyncCoordinator is the subset of onboarding.Coordinator this handler needs.
type SyncCoordinator interface {
	StartScan(ctx context.Context, connectionID uuid.UUID) (string, error)
	ActivateSync(ctx context.Context, connectionID uuid.UUID) (string, error)
	BeginReconcile(ctx context.Context, connectionID uuid.UUID) (bool, error)
}

// JobDispatcher is the subset of dispatch.Dispatcher this handler needs.
type JobDispatcher interface {
	Enqueue(ctx context.Context, jobType, connectionID string, payload map[string]interface{}) (string, error)
	GetJobProgress(ctx context.Context, jobID string) (*dispatch.JobProgress, error)
}

// SyncHandler serves spec.md §6's onboarding/sync endpoints: start-scan,
// scan-summary, mapping-suggestions, confirm-mappings, draft-mappings,
// sync-preview, activate-sync, job progress, and reconcile.
type SyncHandler struct {
	connections SyncConnectionRepository
	coordinator SyncCoordinator
	dispatcher  JobDispatcher
}

func NewSyncHandler(connections SyncConnectionRepository, coordinator SyncCoordinator, dispatcher JobDispatcher) *SyncHandler {
	return &SyncHandler{connections: connections, coordinator: coordinator, dispatcher: dispatcher}
}

func parseConnectionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection id"})
		return uuid.UUID{}, false
	}
	return id, true
}

// StartScan transitions a connection into scanning and enqueues an
// Initial-Scan job, idempotently returning the already-running job's id.
func (h *SyncHandler) StartScan(c *gin.Context) {
	id, ok := parseConnectionID(c)
	if !ok {
		return
	}
	jobID, err := h.coordinator.StartScan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobId": jobID})
}

// ScanSummary returns the scan-summary recorded on the connection's
// PlatformSpecificData by the Initial-Scan job.
func (h *SyncHandler) ScanSummary(c *gin.Context) {
	id, ok := parseConnectionID(c)
	if !ok {
		return
	}
	connection, err := h.connections.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, apperr.NotFound("connection not found"))
		return
	}
	summary := connection.PlatformSpecificData[models.MetaScanSummary]
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// MappingSuggestions returns the suggestions the Initial-Scan job built.
func (h *SyncHandler) MappingSuggestions(c *gin.Context) {
	id, ok := parseConnectionID(c)
	if !ok {
		return
	}
	connection, err := h.connections.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, apperr.NotFound("connection not found"))
		return
	}
	suggestions := connection.PlatformSpecificData[models.MetaMappingSuggestions]
	c.JSON(http.StatusOK, gin.H{"data": suggestions})
}

// ConfirmMappings records the user's link/create/ignore decisions as the
// mappingConfirmations envelope the Initial-Sync job later applies.
func (h *SyncHandler) ConfirmMappings(c *gin.Context) {
	id, ok := parseConnectionID(c)
	if !ok {
		return
	}
	var matches []models.ConfirmedMatch
	if err := c.ShouldBindJSON(&matches); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	connection, err := h.connections.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, apperr.NotFound("connection not found"))
		return
	}
	if connection.PlatformSpecificData == nil {
		connection.PlatformSpecificData = models.JSONB{}
	}
	connection.PlatformSpecificData[models.MetaMappingConfirmations] = models.MappingConfirmationSet{
		ConfirmedMatches: matches,
		UpdatedAt:        time.Now(),
	}
	if err := h.connections.Update(c.Request.Context(), connection); err != nil {
		respondError(c, apperr.DataIntegrity("saving mapping confirmations", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetDraftMappings returns the user's in-progress (not yet confirmed) decisions.
func (h *SyncHandler) GetDraftMappings(c *gin.Context) {
	id, ok := parseConnectionID(c)
	if !ok {
		return
	}
	connection, err := h.connections.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, apperr.NotFound("connection not found"))
		return
	}
	drafts := connection.PlatformSpecificData[models.MetaMappingDrafts]
	c.JSON(http.StatusOK, gin.H{"data": drafts})
}

// PutDraftMappings saves a work-in-progress set of mapping decisions
// without running them through the Initial-Sync job.
func (h *SyncHandler) PutDraftMappings(c *gin.Context) {
	id, ok := parseConnectionID(c)
	if !ok {
		return
	}
	var matches []models.ConfirmedMatch
	if err := c.ShouldBindJSON(&matches); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	connection, err := h.connections.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, apperr.NotFound("connection not found"))
		return
	}
	if connection.PlatformSpecificData == nil {
		connection.PlatformSpecificData = models.JSONB{}
	}
	connection.PlatformSpecificData[models.MetaMappingDrafts] = matches
	if err := h.connections.Update(c.Request.Context(), connection); err != nil {
		respondError(c, apperr.DataIntegrity("saving draft mappings", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": matches})
}

// SyncPreview summarizes what activate-sync would do, counting confirmed
// decisions by action without applying any of them.
func (h *SyncHandler) SyncPreview(c *gin.Context) {
	id, ok := parseConnectionID(c)
	if !ok {
		return
	}
	connection, err := h.connections.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, apperr.NotFound("connection not found"))
		return
	}

	counts := map[models.MappingAction]int{}
	if raw, ok := connection.PlatformSpecificData[models.MetaMappingConfirmations]; ok {
		switch set := raw.(type) {
		case models.MappingConfirmationSet:
			for _, m := range set.ConfirmedMatches {
				counts[m.Action]++
			}
		case map[string]interface{}:
			entries, _ := set["confirmedMatches"].([]interface{})
			for _, e := range entries {
				if m, ok := e.(map[string]interface{}); ok {
					if action, ok := m["action"].(string); ok {
						counts[models.MappingAction(action)]++
					}
				}
			}
		}
	}

	actions := []gin.H{}
	if n := counts[models.ActionLink]; n > 0 {
		actions = append(actions, gin.H{"type": models.ActionLink, "description": fmt.Sprintf("link %d existing variant(s) to their matched platform product", n)})
	}
	if n := counts[models.ActionCreate]; n > 0 {
		actions = append(actions, gin.H{"type": models.ActionCreate, "description": fmt.Sprintf("create %d new canonical product(s) from unmatched platform data", n)})
	}
	if n := counts[models.ActionIgnore]; n > 0 {
		actions = append(actions, gin.H{"type": models.ActionIgnore, "description": fmt.Sprintf("ignore %d platform product(s) with no matching action", n)})
	}

	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

// ActivateSync transitions needs_review -> syncing and enqueues an
// Initial-Sync job, idempotently returning the already-running job's id.
func (h *SyncHandler) ActivateSync(c *gin.Context) {
	id, ok := parseConnectionID(c)
	if !ok {
		return
	}
	jobID, err := h.coordinator.ActivateSync(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobId": jobID})
}

// JobProgress reports the Adaptive Dispatcher's view of a running job.
func (h *SyncHandler) JobProgress(c *gin.Context) {
	jobID := c.Param("jobId")
	progress, err := h.dispatcher.GetJobProgress(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": progress})
}

// Reconcile moves a connection active -> reconciling and enqueues a
// Reconciliation job.
func (h *SyncHandler) Reconcile(c *gin.Context) {
	id, ok := parseConnectionID(c)
	if !ok {
		return
	}

	started, err := h.coordinator.BeginReconcile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !started {
		respondError(c, apperr.Conflict("connection is not active"))
		return
	}

	jobID, err := h.dispatcher.Enqueue(c.Request.Context(), dispatch.JobTypeReconcile, id.String(), map[string]interface{}{
		"connectionId": id.String(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"jobId": jobID})
}
