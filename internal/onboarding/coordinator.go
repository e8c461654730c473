// Package onboarding implements the Onboarding Coordinator (spec.md §4.3):
// the 8-state machine (pending, scanning, needs_review, syncing, active,
// reconciling, error, inactive) driving a connection from creation through
// continuous reconciliation. The teacher has no connection-level state
// machine of its own (MarketplaceConnection.Status is a flat
// PENDING/CONNECTED/DISCONNECTED/ERROR); this package is new, grounded on
// the teacher's SyncService.CreateJob "check for a running job first" +
// idempotency-key pattern for the start-scan/activate-sync idempotency
// rule, and compare-and-set status transitions on top of the Canonical
// Store Gateway's ConnectionStore.
package onboarding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"inventory-sync-engine/internal/apperr"
	"inventory-sync-engine/internal/models"
)

// JobEnqueuer is the subset of the Adaptive Dispatcher the coordinator
// needs: enqueue a job and get back its id.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, jobType, connectionID string, payload map[string]interface{}) (string, error)
}

// ConnectionRepository is the subset of store.ConnectionStore the
// coordinator depends on, narrowed to an interface so it can be exercised
// against a mock in tests instead of a live database.
type ConnectionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PlatformConnection, error)
	Update(ctx context.Context, connection *models.PlatformConnection) error
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus models.ConnectionStatus) (bool, error)
}

// Coordinator drives PlatformConnection.Status transitions and enqueues
// the job each transition implies.
type Coordinator struct {
	connections ConnectionRepository
	dispatcher  JobEnqueuer
}

func NewCoordinator(connections ConnectionRepository, dispatcher JobEnqueuer) *Coordinator {
	return &Coordinator{connections: connections, dispatcher: dispatcher}
}

// StartScan transitions a connection into scanning and enqueues an
// Initial-Scan job. Re-issuing start-scan while already scanning is
// idempotent: it returns the job id already recorded on the connection
// instead of enqueuing a second job (spec.md §4.3).
func (c *Coordinator) StartScan(ctx context.Context, connectionID uuid.UUID) (string, error) {
	connection, err := c.connections.GetByID(ctx, connectionID)
	if err != nil {
		return "", apperr.NotFound("connection not found")
	}

	if connection.Status == models.StatusScanning {
		if jobID := connection.MetaString(models.MetaCurrentJobID); jobID != "" {
			return jobID, nil
		}
	}

	allowedFrom := map[models.ConnectionStatus]bool{
		models.StatusPending:     true,
		models.StatusNeedsReview: true,
		models.StatusError:       true,
		models.StatusActive:      true,
	}
	if !allowedFrom[connection.Status] {
		return "", apperr.Conflict(fmt.Sprintf("cannot start scan from status %s", connection.Status))
	}

	ok, err := c.connections.CompareAndSetStatus(ctx, connectionID, connection.Status, models.StatusScanning)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.Conflict("connection status changed concurrently")
	}

	jobID, err := c.dispatcher.Enqueue(ctx, "initial-scan", connectionID.String(), map[string]interface{}{
		"connectionId": connectionID.String(),
		"userId":       connection.UserID,
		"platformKind": string(connection.PlatformKind),
	})
	if err != nil {
		_, _ = c.connections.CompareAndSetStatus(ctx, connectionID, models.StatusScanning, models.StatusError)
		return "", err
	}

	c.recordJobMeta(ctx, connection, jobID, "initial-scan")
	return jobID, nil
}

// ActivateSync transitions needs_review -> syncing and enqueues an
// Initial-Sync job, idempotently returning the existing job id if a sync
// is already running.
func (c *Coordinator) ActivateSync(ctx context.Context, connectionID uuid.UUID) (string, error) {
	connection, err := c.connections.GetByID(ctx, connectionID)
	if err != nil {
		return "", apperr.NotFound("connection not found")
	}

	if connection.Status == models.StatusSyncing {
		if jobID := connection.MetaString(models.MetaCurrentJobID); jobID != "" {
			return jobID, nil
		}
	}

	if connection.Status != models.StatusNeedsReview {
		return "", apperr.Conflict(fmt.Sprintf("cannot activate sync from status %s", connection.Status))
	}

	ok, err := c.connections.CompareAndSetStatus(ctx, connectionID, models.StatusNeedsReview, models.StatusSyncing)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.Conflict("connection status changed concurrently")
	}

	jobID, err := c.dispatcher.Enqueue(ctx, "initial-sync", connectionID.String(), map[string]interface{}{
		"connectionId": connectionID.String(),
		"userId":       connection.UserID,
		"platformKind": string(connection.PlatformKind),
	})
	if err != nil {
		_, _ = c.connections.CompareAndSetStatus(ctx, connectionID, models.StatusSyncing, models.StatusError)
		return "", err
	}

	c.recordJobMeta(ctx, connection, jobID, "initial-sync")
	return jobID, nil
}

// ScanSucceeded is called by the Initial-Scan job on completion: scanning -> needs_review.
func (c *Coordinator) ScanSucceeded(ctx context.Context, connectionID uuid.UUID) error {
	_, err := c.connections.CompareAndSetStatus(ctx, connectionID, models.StatusScanning, models.StatusNeedsReview)
	return err
}

// ScanFailed is called by the Initial-Scan job on a non-recoverable error: scanning -> error.
func (c *Coordinator) ScanFailed(ctx context.Context, connectionID uuid.UUID) error {
	_, err := c.connections.CompareAndSetStatus(ctx, connectionID, models.StatusScanning, models.StatusError)
	return err
}

// SyncCompleted is called by the Initial-Sync job: syncing -> active on zero
// item failures, else syncing -> error.
func (c *Coordinator) SyncCompleted(ctx context.Context, connectionID uuid.UUID, itemFailures int) error {
	target := models.StatusActive
	if itemFailures > 0 {
		target = models.StatusError
	}
	_, err := c.connections.CompareAndSetStatus(ctx, connectionID, models.StatusSyncing, target)
	return err
}

// BeginReconcile is called by the periodic scheduler: active -> reconciling.
func (c *Coordinator) BeginReconcile(ctx context.Context, connectionID uuid.UUID) (bool, error) {
	return c.connections.CompareAndSetStatus(ctx, connectionID, models.StatusActive, models.StatusReconciling)
}

// ReconcileCompleted finishes a reconciliation run: reconciling -> active on
// success, reconciling -> error on failure.
func (c *Coordinator) ReconcileCompleted(ctx context.Context, connectionID uuid.UUID, succeeded bool) error {
	target := models.StatusActive
	if !succeeded {
		target = models.StatusError
	}
	_, err := c.connections.CompareAndSetStatus(ctx, connectionID, models.StatusReconciling, target)
	return err
}

// Disconnect transitions a connection to inactive from any prior status
// and disables it (spec.md §4.3: "user disconnect: any -> inactive").
func (c *Coordinator) Disconnect(ctx context.Context, connectionID uuid.UUID) error {
	connection, err := c.connections.GetByID(ctx, connectionID)
	if err != nil {
		return apperr.NotFound("connection not found")
	}
	connection.Status = models.StatusInactive
	connection.IsEnabled = false
	return c.connections.Update(ctx, connection)
}

// recordJobMeta persists the job bookkeeping fields onto the connection's
// PlatformSpecificData so a repeated start-scan/activate-sync call and
// GetJobProgress's connection-status fallback can find them.
func (c *Coordinator) recordJobMeta(ctx context.Context, connection *models.PlatformConnection, jobID, jobType string) {
	if connection.PlatformSpecificData == nil {
		connection.PlatformSpecificData = models.JSONB{}
	}
	connection.PlatformSpecificData[models.MetaCurrentJobID] = jobID
	connection.PlatformSpecificData[models.MetaJobStartedAt] = time.Now().Format(time.RFC3339)
	connection.PlatformSpecificData[models.MetaJobType] = jobType
	_ = c.connections.Update(ctx, connection)
}
