// Package dispatch is the Adaptive Dispatcher (spec.md §4.8): one job
// queue abstraction with two backends, switching between them based on
// enqueue volume rather than being hand-picked per deployment. Neither
// backend exists in the teacher, which only ever talks to the platform
// APIs synchronously; the cold backend generalizes the teacher's
// TenantSemaphore (internal/services/concurrency.go) mutex-guarded
// in-process idiom, and the hot backend generalizes the
// marketplace-sync repo's NATS events.Publisher/Subscriber pair into a
// queue-grouped worker queue over core NATS (jobs are not persisted).
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"inventory-sync-engine/internal/apperr"
	"inventory-sync-engine/internal/models"
)

const (
	defaultThresholdReqPerSec = 5.0
	defaultWindowSeconds      = 60
	defaultScaleDownIdleSecs  = 60
)

// Backend is what both queue tiers implement; Dispatcher only ever calls
// Enqueue through this interface, routing to whichever tier is active.
type Backend interface {
	Enqueue(ctx context.Context, job *Job) error
}

// JobRunner is satisfied by jobs.ScanJob, jobs.SyncJob, and
// jobs.ReconcileJob without this package importing internal/jobs —
// avoids a jobs<->dispatch import cycle since jobs.ProgressReporter is
// satisfied the same structural way, by *ProgressTracker.
type JobRunner interface {
	Run(ctx context.Context, jobID string, connectionID uuid.UUID, userID string) error
}

// ConnectionRepository is the subset of store.ConnectionStore
// GetJobProgress needs to fall back to connection-status-inferred
// progress once a job no longer has a live tracker entry.
type ConnectionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PlatformConnection, error)
}

// Config tunes the cold/hot mode-switch thresholds; the zero value is
// replaced with the spec's defaults by NewDispatcher.
type Config struct {
	NATSURL            string
	ThresholdReqPerSec float64
	ScaleDownIdleSecs  int
}

func DefaultConfig(natsURL string) Config {
	return Config{
		NATSURL:            natsURL,
		ThresholdReqPerSec: defaultThresholdReqPerSec,
		ScaleDownIdleSecs:  defaultScaleDownIdleSecs,
	}
}

// Dispatcher enqueues jobs onto whichever backend is currently active and
// routes a popped job to the JobRunner registered for its type.
type Dispatcher struct {
	cfg         Config
	connections ConnectionRepository
	progress    *ProgressTracker
	runners     map[string]JobRunner

	mu            sync.Mutex
	cold          *coldBackend
	hot           *hotBackend
	usingHot      bool
	window        []time.Time
	lastEnqueueAt time.Time

	stopIdle chan struct{}
}

// NewDispatcher wires the three known job types to their runners and
// starts the cold backend (the dispatcher always starts cold) plus the
// background idle checker that can scale a hot backend back down.
func NewDispatcher(cfg Config, connections ConnectionRepository, progress *ProgressTracker, scan, sync, reconcile JobRunner) *Dispatcher {
	if cfg.ThresholdReqPerSec <= 0 {
		cfg.ThresholdReqPerSec = defaultThresholdReqPerSec
	}
	if cfg.ScaleDownIdleSecs <= 0 {
		cfg.ScaleDownIdleSecs = defaultScaleDownIdleSecs
	}

	d := &Dispatcher{
		cfg:         cfg,
		connections: connections,
		progress:    progress,
		runners: map[string]JobRunner{
			JobTypeInitialScan: scan,
			JobTypeInitialSync: sync,
			JobTypeReconcile:   reconcile,
		},
		cold:     newColdBackend(),
		stopIdle: make(chan struct{}),
	}
	d.cold.Start(context.Background(), d.process)
	go d.runIdleChecker()
	return d
}

// Enqueue implements onboarding.JobEnqueuer. connectionID is the empty
// string for job types with no owning connection.
func (d *Dispatcher) Enqueue(ctx context.Context, jobType, connectionID string, payload map[string]interface{}) (string, error) {
	var connUUID *uuid.UUID
	if connectionID != "" {
		id, err := uuid.Parse(connectionID)
		if err != nil {
			return "", apperr.Validation("invalid connection id")
		}
		connUUID = &id
	}

	userID, _ := payload["userId"].(string)
	job := &Job{
		ID:           MintJobID(jobType, connUUID),
		Type:         jobType,
		ConnectionID: connUUID,
		UserID:       userID,
		Payload:      payload,
		EnqueuedAt:   time.Now(),
	}

	d.progress.markQueued(job.ID, describeJob(jobType))

	backend := d.recordEnqueueAndSelectBackend()
	if err := backend.Enqueue(ctx, job); err != nil {
		d.progress.markFailed(job.ID)
		return "", apperr.PlatformTransient("enqueuing job", err)
	}
	return job.ID, nil
}

// recordEnqueueAndSelectBackend implements the spec's sliding-window
// mode switch: a 60s window of enqueue timestamps, switching cold->hot
// once both the 60s total and the observed rate clear the threshold.
func (d *Dispatcher) recordEnqueueAndSelectBackend() Backend {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	d.lastEnqueueAt = now
	d.window = append(d.window, now)
	d.pruneWindowLocked(now)

	if !d.usingHot {
		total := len(d.window)
		span := now.Sub(d.window[0]).Seconds()
		if span <= 0 {
			span = 1
		}
		rate := float64(total) / span
		if float64(total) >= d.cfg.ThresholdReqPerSec*defaultWindowSeconds && rate >= d.cfg.ThresholdReqPerSec {
			d.switchToHotLocked()
		}
	}

	if d.usingHot && d.hot != nil {
		return d.hot
	}
	return d.cold
}

func (d *Dispatcher) pruneWindowLocked(now time.Time) {
	cutoff := now.Add(-defaultWindowSeconds * time.Second)
	i := 0
	for ; i < len(d.window); i++ {
		if d.window[i].After(cutoff) {
			break
		}
	}
	d.window = d.window[i:]
}

// switchToHotLocked is a no-op when no NATS URL is configured or the
// dial fails — the dispatcher just stays cold rather than losing jobs.
func (d *Dispatcher) switchToHotLocked() {
	if d.cfg.NATSURL == "" {
		return
	}
	hot, err := newHotBackend(d.cfg.NATSURL)
	if err != nil {
		return
	}
	if err := hot.Start(context.Background(), d.process); err != nil {
		hot.Stop()
		return
	}
	d.hot = hot
	d.usingHot = true
}

func (d *Dispatcher) switchToColdLocked() {
	if d.hot != nil {
		d.hot.Stop()
		d.hot = nil
	}
	d.usingHot = false
	d.window = nil
}

// runIdleChecker polls at half the scale-down idle interval and demotes
// back to cold once nothing has been enqueued for ScaleDownIdleSecs.
func (d *Dispatcher) runIdleChecker() {
	interval := time.Duration(d.cfg.ScaleDownIdleSecs) * time.Second / 2
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopIdle:
			return
		case <-ticker.C:
			d.mu.Lock()
			if d.usingHot && time.Since(d.lastEnqueueAt) >= time.Duration(d.cfg.ScaleDownIdleSecs)*time.Second {
				d.switchToColdLocked()
			}
			d.mu.Unlock()
		}
	}
}

// Stop halts the idle checker and both backends; used by graceful shutdown.
func (d *Dispatcher) Stop() {
	close(d.stopIdle)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cold.Stop()
	if d.hot != nil {
		d.hot.Stop()
	}
}

// process is the JobProcessor handed to both backends: it looks up the
// runner for the job's type and drives the tracker through
// active/completed/failed.
func (d *Dispatcher) process(ctx context.Context, job *Job) error {
	d.progress.markActive(job.ID)

	runner, ok := d.runners[job.Type]
	if !ok || runner == nil {
		err := apperr.Validation(fmt.Sprintf("unsupported job type %q", job.Type))
		d.progress.markFailed(job.ID)
		return err
	}

	var connectionID uuid.UUID
	if job.ConnectionID != nil {
		connectionID = *job.ConnectionID
	}
	if err := runner.Run(ctx, job.ID, connectionID, job.UserID); err != nil {
		d.progress.markFailed(job.ID)
		return err
	}
	d.progress.markCompleted(job.ID)
	return nil
}

// GetJobProgress first consults the in-process tracker (authoritative
// while this process ran the job); if the id is unknown here — a
// restart, or a different process in the fleet ran it — it falls back to
// inferring progress from the owning connection's status (spec.md §4.8).
func (d *Dispatcher) GetJobProgress(ctx context.Context, jobID string) (*JobProgress, error) {
	if p, ok := d.progress.get(jobID); ok {
		return p, nil
	}

	jobType, connectionID, ok := ParseJobID(jobID)
	if !ok || connectionID == nil {
		return nil, apperr.NotFound("job not found")
	}

	connection, err := d.connections.GetByID(ctx, *connectionID)
	if err != nil {
		return nil, apperr.NotFound("job not found")
	}
	return inferProgressFromConnection(jobType, connection), nil
}

func inferProgressFromConnection(jobType string, connection *models.PlatformConnection) *JobProgress {
	description := describeJob(jobType)
	switch connection.Status {
	case models.StatusError:
		return &JobProgress{IsFailed: true, Progress: 1, Description: description}
	case models.StatusScanning, models.StatusSyncing, models.StatusReconciling:
		estimate := 5 * time.Minute
		if jobType == JobTypeInitialScan {
			estimate = 3 * time.Minute
		}
		progress := 0.0
		if startedAt, err := time.Parse(time.RFC3339, connection.MetaString(models.MetaJobStartedAt)); err == nil {
			progress = time.Since(startedAt).Minutes() / estimate.Minutes()
			if progress < 0 {
				progress = 0
			}
			if progress > 0.95 {
				progress = 0.95
			}
		}
		return &JobProgress{IsActive: true, Progress: progress, Description: description}
	default:
		// needs_review, active, pending, inactive: nothing is running.
		return &JobProgress{IsCompleted: true, Progress: 1, Description: description}
	}
}
