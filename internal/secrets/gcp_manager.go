package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// PlatformSecret is the structure of secrets stored in GCP for one
// platform connection — OAuth tokens, webhook signing material, and any
// platform-specific extra config.
type PlatformSecret struct {
	PlatformKind     string                 `json:"platform_kind"`
	Credentials      map[string]interface{} `json:"credentials"`
	WebhookSecret    string                 `json:"webhook_secret,omitempty"`
	AdditionalConfig map[string]interface{} `json:"additional_config,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// ShopifyCredentials represents Shopify Admin API credentials.
type ShopifyCredentials struct {
	Store       string `json:"store"`
	AccessToken string `json:"access_token"`
	APIKey      string `json:"api_key,omitempty"`
	APISecret   string `json:"api_secret,omitempty"`
}

// SquareCredentials represents Square API credentials.
type SquareCredentials struct {
	AccessToken string `json:"access_token"`
	MerchantID  string `json:"merchant_id"`
	LocationID  string `json:"location_id,omitempty"`
}

// CloverCredentials represents Clover API credentials.
type CloverCredentials struct {
	APIToken   string `json:"api_token"`
	MerchantID string `json:"merchant_id"`
}

// EbayCredentials represents eBay API credentials.
type EbayCredentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	SellerID     string `json:"seller_id"`
}

type cacheEntry struct {
	secret    *PlatformSecret
	expiresAt time.Time
}

// GCPSecretManager manages per-connection platform secrets in Google
// Cloud Secret Manager.
type GCPSecretManager struct {
	client    *secretmanager.Client
	projectID string
	cache     map[string]*cacheEntry
	cacheMu   sync.RWMutex
	cacheTTL  time.Duration
}

// NewGCPSecretManager creates a new GCP Secret Manager client.
func NewGCPSecretManager(ctx context.Context, projectID string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &GCPSecretManager{
		client:    client,
		projectID: projectID,
		cache:     make(map[string]*cacheEntry),
		cacheTTL:  5 * time.Minute,
	}, nil
}

func (sm *GCPSecretManager) Close() error {
	if sm.client != nil {
		return sm.client.Close()
	}
	return nil
}

// BuildSecretName constructs the secret name for a platform connection.
// Format: projects/{project}/secrets/{userId}-{connectionId}-{platformKind}
func (sm *GCPSecretManager) BuildSecretName(userID, connectionID, platformKind string) string {
	secretID := fmt.Sprintf("%s-%s-%s",
		sanitizeSecretID(userID),
		sanitizeSecretID(connectionID),
		sanitizeSecretID(strings.ToLower(platformKind)),
	)
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, secretID)
}

// GetSecret retrieves a secret from GCP Secret Manager.
func (sm *GCPSecretManager) GetSecret(ctx context.Context, secretName string) (*PlatformSecret, error) {
	sm.cacheMu.RLock()
	if entry, ok := sm.cache[secretName]; ok && time.Now().Before(entry.expiresAt) {
		sm.cacheMu.RUnlock()
		return entry.secret, nil
	}
	sm.cacheMu.RUnlock()

	accessRequest := &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName + "/versions/latest",
	}

	result, err := sm.client.AccessSecretVersion(ctx, accessRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to access secret: %w", err)
	}

	var secret PlatformSecret
	if err := json.Unmarshal(result.Payload.Data, &secret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret: %w", err)
	}

	sm.cacheMu.Lock()
	sm.cache[secretName] = &cacheEntry{secret: &secret, expiresAt: time.Now().Add(sm.cacheTTL)}
	sm.cacheMu.Unlock()

	return &secret, nil
}

// CreateOrUpdateSecret creates or updates a secret in GCP Secret Manager.
func (sm *GCPSecretManager) CreateOrUpdateSecret(ctx context.Context, secretName string, secret *PlatformSecret) error {
	secret.UpdatedAt = time.Now()
	if secret.CreatedAt.IsZero() {
		secret.CreatedAt = time.Now()
	}

	data, err := json.Marshal(secret)
	if err != nil {
		return fmt.Errorf("failed to marshal secret: %w", err)
	}

	secretID := extractSecretID(secretName)

	createRequest := &secretmanagerpb.CreateSecretRequest{
		Parent:   fmt.Sprintf("projects/%s", sm.projectID),
		SecretId: secretID,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	}

	_, err = sm.client.CreateSecret(ctx, createRequest)
	if err != nil && !isAlreadyExistsError(err) {
		return fmt.Errorf("failed to create secret: %w", err)
	}

	addVersionRequest := &secretmanagerpb.AddSecretVersionRequest{
		Parent:  secretName,
		Payload: &secretmanagerpb.SecretPayload{Data: data},
	}

	if _, err := sm.client.AddSecretVersion(ctx, addVersionRequest); err != nil {
		return fmt.Errorf("failed to add secret version: %w", err)
	}

	sm.cacheMu.Lock()
	delete(sm.cache, secretName)
	sm.cacheMu.Unlock()

	return nil
}

// DeleteSecret deletes a secret from GCP Secret Manager.
func (sm *GCPSecretManager) DeleteSecret(ctx context.Context, secretName string) error {
	if err := sm.client.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{Name: secretName}); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	sm.cacheMu.Lock()
	delete(sm.cache, secretName)
	sm.cacheMu.Unlock()

	return nil
}

func (sm *GCPSecretManager) InvalidateCache(secretName string) {
	sm.cacheMu.Lock()
	delete(sm.cache, secretName)
	sm.cacheMu.Unlock()
}

func (sm *GCPSecretManager) ClearCache() {
	sm.cacheMu.Lock()
	sm.cache = make(map[string]*cacheEntry)
	sm.cacheMu.Unlock()
}

// GetShopifyCredentials parses Shopify credentials from a PlatformSecret.
func (sm *GCPSecretManager) GetShopifyCredentials(secret *PlatformSecret) (*ShopifyCredentials, error) {
	if secret.PlatformKind != "shopify" {
		return nil, fmt.Errorf("invalid platform kind: expected shopify, got %s", secret.PlatformKind)
	}
	var creds ShopifyCredentials
	if err := remarshal(secret.Credentials, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// GetSquareCredentials parses Square credentials from a PlatformSecret.
func (sm *GCPSecretManager) GetSquareCredentials(secret *PlatformSecret) (*SquareCredentials, error) {
	if secret.PlatformKind != "square" {
		return nil, fmt.Errorf("invalid platform kind: expected square, got %s", secret.PlatformKind)
	}
	var creds SquareCredentials
	if err := remarshal(secret.Credentials, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// GetCloverCredentials parses Clover credentials from a PlatformSecret.
func (sm *GCPSecretManager) GetCloverCredentials(secret *PlatformSecret) (*CloverCredentials, error) {
	if secret.PlatformKind != "clover" {
		return nil, fmt.Errorf("invalid platform kind: expected clover, got %s", secret.PlatformKind)
	}
	var creds CloverCredentials
	if err := remarshal(secret.Credentials, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// GetEbayCredentials parses eBay credentials from a PlatformSecret.
func (sm *GCPSecretManager) GetEbayCredentials(secret *PlatformSecret) (*EbayCredentials, error) {
	if secret.PlatformKind != "ebay" {
		return nil, fmt.Errorf("invalid platform kind: expected ebay, got %s", secret.PlatformKind)
	}
	var creds EbayCredentials
	if err := remarshal(secret.Credentials, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func remarshal(src map[string]interface{}, dst interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// sanitizeSecretID removes or replaces invalid characters for GCP secret IDs.
func sanitizeSecretID(input string) string {
	var result strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('-')
		}
	}
	return result.String()
}

func extractSecretID(secretName string) string {
	parts := strings.Split(secretName, "/")
	if len(parts) >= 4 {
		return parts[3]
	}
	return secretName
}

func isAlreadyExistsError(err error) bool {
	return strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already exists")
}
