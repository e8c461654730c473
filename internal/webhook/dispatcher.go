// Package webhook is the Webhook Dispatcher (spec.md §4.7). It generalizes
// the teacher's WebhookHandler/WebhookService (raw-body read, per-platform
// dispatch, 202-before-processing) to this repo's webhookId-minted,
// idempotency-deduplicated algorithm: respond 200 before processing,
// resolve the owning connection, and hand off to the adapter's
// ProcessWebhook — the only place canonical state changes from a webhook.
package webhook

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"inventory-sync-engine/internal/apperr"
	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

const webhookIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewWebhookID mints a timestamp+9-char-random id, used only as a
// fallback idempotency key for deliveries whose adapter can't extract a
// stable event id (e.g. an unparseable payload).
func NewWebhookID() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = webhookIDAlphabet[rand.Intn(len(webhookIDAlphabet))]
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}

// idempotencyKey builds the dedup key the same way the teacher's
// webhook_service.go does: "<platform>-<event id>" — the platform's own
// event identity, not a value this dispatcher mints itself, so a
// redelivered event produces the same key both times.
func idempotencyKey(platform models.PlatformKind, event *clients.WebhookEvent) string {
	if event == nil || event.EventID == "" {
		return NewWebhookID()
	}
	return fmt.Sprintf("%s-%s", platform, event.EventID)
}

// ConnectionRepository is the subset of store.ConnectionStore the
// dispatcher depends on to resolve the target connection and read its
// credentials.
type ConnectionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PlatformConnection, error)
	FindByPlatformIdentity(ctx context.Context, platformKind models.PlatformKind, uniqueIdentifier string) (*models.PlatformConnection, error)
}

// ReceiptRepository is the subset of store.WebhookStore the dispatcher
// depends on for idempotency dedup and the processing audit trail.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *models.WebhookReceipt) error
	ExistsWithWebhookID(ctx context.Context, webhookID string) (bool, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, cause error) error
}

// ActivityRepository is the subset of store.ActivityStore the dispatcher logs through.
type ActivityRepository interface {
	LogActivity(ctx context.Context, entry *models.ActivityLog) error
}

// Decryptor turns a connection's opaque credential blob into the
// credentials map an adapter's ApiClient expects.
type Decryptor interface {
	Decrypt(ctx context.Context, userID string, blob []byte) (map[string]any, error)
}

// Result is what Handle returns for the HTTP layer to render as the
// immediate 200 response, per spec.md §4.7 step 4.
type Result struct {
	WebhookID string
	Platform  models.PlatformKind
	Timestamp time.Time
}

// Dispatcher resolves, verifies, and dispatches inbound platform webhooks.
type Dispatcher struct {
	registry    clients.Registry
	connections ConnectionRepository
	receipts    ReceiptRepository
	activity    ActivityRepository
	decryptor   Decryptor
}

func NewDispatcher(registry clients.Registry, connections ConnectionRepository, receipts ReceiptRepository, activity ActivityRepository, decryptor Decryptor) *Dispatcher {
	return &Dispatcher{registry: registry, connections: connections, receipts: receipts, activity: activity, decryptor: decryptor}
}

// Handle runs spec.md §4.7 steps 1-6 synchronously through verification
// and connection resolution, then returns immediately with the Result the
// caller must answer the HTTP request with; ProcessWebhook itself is
// expected to be run by the caller in a background goroutine via Process,
// so a slow downstream adapter never blocks the originating request
// (§5's "webhook HTTP responses are emitted before processing").
func (d *Dispatcher) Handle(ctx context.Context, platform models.PlatformKind, explicitConnectionID *uuid.UUID, payload []byte, headers map[string]string) (*Result, *PendingWork, error) {
	if len(payload) == 0 {
		return nil, nil, apperr.Validation("missing request body")
	}

	adapter, err := d.registry.Get(platform)
	if err != nil {
		return nil, nil, apperr.Validation(fmt.Sprintf("unsupported platform %q", platform))
	}

	connection, err := d.resolveConnection(ctx, adapter, platform, explicitConnectionID, headers)
	if err != nil {
		return nil, nil, err
	}

	credentials, err := d.decryptor.Decrypt(ctx, connection.UserID, connection.CredentialBlob)
	if err != nil {
		return nil, nil, apperr.Auth("decrypting credentials for webhook verification", err)
	}
	client, err := adapter.GetApiClient(connection, credentials)
	if err != nil {
		return nil, nil, err
	}
	if err := client.VerifyWebhook(payload, headers); err != nil {
		return nil, nil, apperr.Auth("webhook signature verification failed", err)
	}

	event, _ := client.ParseWebhook(payload, headers)
	webhookID := idempotencyKey(platform, event)

	exists, err := d.receipts.ExistsWithWebhookID(ctx, webhookID)
	if err != nil {
		return nil, nil, apperr.DataIntegrity("checking webhook idempotency", err)
	}

	receipt := &models.WebhookReceipt{
		ID:           uuid.New(),
		WebhookID:    webhookID,
		PlatformKind: platform,
		ConnectionID: &connection.ID,
		Payload:      models.JSONB{"raw": string(payload)},
		Headers:      headersToJSONB(headers),
	}
	if event != nil {
		receipt.EventType = event.EventType
		receipt.ResourceID = event.ResourceID
		receipt.ResourceType = event.ResourceType
	}

	d.logActivity(ctx, connection, models.EventWebhookReceived, models.ActivityInfo, webhookID)

	if exists {
		d.logActivity(ctx, connection, models.EventWebhookDuplicate, models.ActivityWarning, webhookID)
		return &Result{WebhookID: webhookID, Platform: platform, Timestamp: time.Now()}, nil, nil
	}
	if err := d.receipts.Create(ctx, receipt); err != nil {
		return nil, nil, apperr.DataIntegrity("recording webhook receipt", err)
	}

	return &Result{WebhookID: webhookID, Platform: platform, Timestamp: time.Now()},
		&PendingWork{dispatcher: d, adapter: adapter, client: client, connection: connection, receipt: receipt, payload: payload, headers: headers},
		nil
}

// PendingWork is the background half of a webhook delivery: the caller
// invokes Process, typically via `go work.Process(context.Background())`,
// after the 200 response has already been written.
type PendingWork struct {
	dispatcher *Dispatcher
	adapter    clients.Adapter
	client     clients.ApiClient
	connection *models.PlatformConnection
	receipt    *models.WebhookReceipt
	payload    []byte
	headers    map[string]string
}

// Process calls adapter.ProcessWebhook — the only place canonical state
// mutates from a webhook — and records the outcome. An error here never
// reaches the caller; it is only logged (spec.md §4.7: "unhandled error
// during processing does not change the 200 response already sent").
func (w *PendingWork) Process(ctx context.Context) {
	d := w.dispatcher
	err := w.adapter.ProcessWebhook(ctx, w.client, w.connection, w.payload, w.headers, w.receipt.WebhookID)
	_ = d.receipts.MarkProcessed(ctx, w.receipt.ID, err)

	if err != nil {
		d.logActivity(ctx, w.connection, models.EventWebhookProcessingFailed, models.ActivityError, err.Error())
		return
	}
	d.logActivity(ctx, w.connection, models.EventWebhookProcessed, models.ActivityInfo, w.receipt.WebhookID)
}

// resolveConnection implements spec.md §4.7 step 5: an explicit
// connectionId path param wins; otherwise a throwaway client is used only
// to parse the platform-identifying header (shop domain, merchant id) out
// of the request, which never requires real credentials.
func (d *Dispatcher) resolveConnection(ctx context.Context, adapter clients.Adapter, platform models.PlatformKind, explicitConnectionID *uuid.UUID, headers map[string]string) (*models.PlatformConnection, error) {
	if explicitConnectionID != nil {
		return d.connections.GetByID(ctx, *explicitConnectionID)
	}

	identifyingClient, err := adapter.GetApiClient(&models.PlatformConnection{PlatformKind: platform}, nil)
	if err != nil {
		return nil, apperr.Validation("could not prepare webhook identification client")
	}
	identifier := identifyingClient.IdentifyFromWebhookHeaders(headers)
	if identifier == "" {
		return nil, apperr.Validation("could not identify connection from webhook headers")
	}

	connection, err := d.connections.FindByPlatformIdentity(ctx, platform, identifier)
	if err != nil {
		return nil, apperr.NotFound("no connection matches webhook identity")
	}
	return connection, nil
}

func (d *Dispatcher) logActivity(ctx context.Context, connection *models.PlatformConnection, event models.ActivityEventType, status models.ActivityStatus, message string) {
	entry := models.NewActivityEntry(connection.UserID, models.EntityWebhook, connection.ID.String(), event).
		WithConnection(connection.ID).
		WithStatus(status).
		WithMessage(message).
		Build()
	_ = d.activity.LogActivity(ctx, entry)
}

func headersToJSONB(headers map[string]string) models.JSONB {
	out := make(models.JSONB, len(headers))
	for k, v := range headers {
		out[k] = v
	}
	return out
}
