// Package encryption provides envelope encryption for platform credential
// blobs, adapted from the connector's PII encryptor: AES-GCM with a
// per-user data encryption key cached briefly and backed by GCP Secret
// Manager for persistence.
package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// CredentialEncryptor handles envelope encryption of per-connection
// platform credentials (spec.md §9: "the engine never inspects
// ciphertext" — only this package and the Canonical Store Gateway's
// Decrypt wrapper ever see plaintext).
type CredentialEncryptor struct {
	gcpClient    *secretmanager.Client
	gcpProjectID string
	keyCache     map[string]*cachedKey
	cacheMutex   sync.RWMutex
	cacheTTL     time.Duration
}

type cachedKey struct {
	key       []byte
	expiresAt time.Time
}

// NewCredentialEncryptor creates an encryptor backed by GCP Secret Manager.
func NewCredentialEncryptor(ctx context.Context, gcpProjectID string) (*CredentialEncryptor, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &CredentialEncryptor{
		gcpClient:    client,
		gcpProjectID: gcpProjectID,
		keyCache:     make(map[string]*cachedKey),
		cacheTTL:     5 * time.Minute,
	}, nil
}

func (e *CredentialEncryptor) Close() error {
	return e.gcpClient.Close()
}

// EncryptedBlob is the structured representation persisted in
// PlatformConnection.CredentialBlob after being marshaled to bytes.
type EncryptedBlob struct {
	Ciphertext  string `json:"ciphertext"`
	Nonce       string `json:"nonce"`
	KeyVersion  int    `json:"keyVersion"`
	Algorithm   string `json:"algorithm"`
	EncryptedAt int64  `json:"encryptedAt"`
}

// getDataEncryptionKey retrieves or generates a per-user DEK.
func (e *CredentialEncryptor) getDataEncryptionKey(ctx context.Context, userID string) ([]byte, int, error) {
	cacheKey := fmt.Sprintf("dek_%s", userID)

	e.cacheMutex.RLock()
	if cached, ok := e.keyCache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		e.cacheMutex.RUnlock()
		return cached.key, 1, nil
	}
	e.cacheMutex.RUnlock()

	secretName := fmt.Sprintf("projects/%s/secrets/user-%s-dek/versions/latest", e.gcpProjectID, userID)
	req := &secretmanagerpb.AccessSecretVersionRequest{Name: secretName}

	result, err := e.gcpClient.AccessSecretVersion(ctx, req)
	if err != nil {
		return e.generateAndStoreKey(ctx, userID)
	}

	key := result.Payload.Data
	e.cacheMutex.Lock()
	e.keyCache[cacheKey] = &cachedKey{key: key, expiresAt: time.Now().Add(e.cacheTTL)}
	e.cacheMutex.Unlock()

	return key, 1, nil
}

func (e *CredentialEncryptor) generateAndStoreKey(ctx context.Context, userID string) ([]byte, int, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, 0, fmt.Errorf("failed to generate key: %w", err)
	}

	secretID := fmt.Sprintf("user-%s-dek", userID)
	parent := fmt.Sprintf("projects/%s", e.gcpProjectID)

	createReq := &secretmanagerpb.CreateSecretRequest{
		Parent:   parent,
		SecretId: secretID,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	}

	secret, err := e.gcpClient.CreateSecret(ctx, createReq)
	if err != nil {
		secret = &secretmanagerpb.Secret{Name: fmt.Sprintf("%s/secrets/%s", parent, secretID)}
	}

	addReq := &secretmanagerpb.AddSecretVersionRequest{
		Parent:  secret.Name,
		Payload: &secretmanagerpb.SecretPayload{Data: key},
	}

	if _, err := e.gcpClient.AddSecretVersion(ctx, addReq); err != nil {
		return nil, 0, fmt.Errorf("failed to store key: %w", err)
	}

	cacheKey := fmt.Sprintf("dek_%s", userID)
	e.cacheMutex.Lock()
	e.keyCache[cacheKey] = &cachedKey{key: key, expiresAt: time.Now().Add(e.cacheTTL)}
	e.cacheMutex.Unlock()

	return key, 1, nil
}

// Encrypt turns a decoded credential map into an opaque blob ready to be
// stored on PlatformConnection.CredentialBlob.
func (e *CredentialEncryptor) Encrypt(ctx context.Context, userID string, credentials map[string]any) ([]byte, error) {
	if credentials == nil {
		return nil, nil
	}

	key, keyVersion, err := e.getDataEncryptionKey(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption key: %w", err)
	}

	plaintext, err := json.Marshal(credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize credentials: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	blob := EncryptedBlob{
		Ciphertext:  base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:       base64.StdEncoding.EncodeToString(nonce),
		KeyVersion:  keyVersion,
		Algorithm:   "AES-256-GCM",
		EncryptedAt: time.Now().Unix(),
	}

	return json.Marshal(blob)
}

// Decrypt turns an opaque blob back into the credential map, per spec.md
// §9's "Canonical Store Gateway exposes Decrypt(blob) → map[string]any".
func (e *CredentialEncryptor) Decrypt(ctx context.Context, userID string, blob []byte) (map[string]any, error) {
	if len(blob) == 0 {
		return nil, nil
	}

	var encrypted EncryptedBlob
	if err := json.Unmarshal(blob, &encrypted); err != nil {
		return nil, fmt.Errorf("failed to parse credential blob: %w", err)
	}

	key, _, err := e.getDataEncryptionKey(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption key: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encrypted.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(encrypted.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	var credentials map[string]any
	if err := json.Unmarshal(plaintext, &credentials); err != nil {
		return nil, fmt.Errorf("failed to deserialize credentials: %w", err)
	}

	return credentials, nil
}
