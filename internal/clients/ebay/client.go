// Package ebay is a stub adapter for the eBay Trading/Inventory API: the
// connection lifecycle and webhook plumbing are wired, but outbound calls
// are not implemented pending API credential access (no live eBay API
// calls are specified for this integration yet).
package ebay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"inventory-sync-engine/internal/clients"
)

// Client is a stub ApiClient for eBay.
type Client struct {
	accessToken  string
	sellerID     string
	verificationToken string
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) Initialize(credentials map[string]interface{}) error {
	accessToken, ok := credentials["access_token"].(string)
	if !ok || accessToken == "" {
		return fmt.Errorf("missing access_token")
	}
	c.accessToken = accessToken

	if sellerID, ok := credentials["seller_id"].(string); ok {
		c.sellerID = sellerID
	}
	if token, ok := credentials["verification_token"].(string); ok {
		c.verificationToken = token
	}

	return nil
}

func (c *Client) TestConnection(ctx context.Context) error {
	if c.accessToken == "" {
		return fmt.Errorf("ebay client not initialized")
	}
	return nil
}

func (c *Client) FetchAllProducts(ctx context.Context, cursor string) (*clients.ProductPage, error) {
	return nil, fmt.Errorf("ebay: FetchAllProducts not implemented")
}

func (c *Client) FetchProductOverviews(ctx context.Context) ([]clients.ProductOverview, error) {
	return nil, fmt.Errorf("ebay: FetchProductOverviews not implemented")
}

func (c *Client) FetchProduct(ctx context.Context, platformProductID string) (*clients.PlatformProduct, error) {
	return nil, fmt.Errorf("ebay: FetchProduct not implemented")
}

func (c *Client) FetchInventoryLevels(ctx context.Context, platformVariantIDs []string) ([]clients.PlatformInventoryLevel, error) {
	return nil, fmt.Errorf("ebay: FetchInventoryLevels not implemented")
}

func (c *Client) CreateProduct(ctx context.Context, bundle *clients.PlatformProductBundle) (*clients.CreateResult, error) {
	return nil, fmt.Errorf("ebay: CreateProduct not implemented")
}

func (c *Client) UpdateProduct(ctx context.Context, platformProductID string, bundle *clients.PlatformProductBundle) error {
	return fmt.Errorf("ebay: UpdateProduct not implemented")
}

func (c *Client) DeleteProduct(ctx context.Context, platformProductID string) error {
	return fmt.Errorf("ebay: DeleteProduct not implemented")
}

func (c *Client) PushInventoryLevels(ctx context.Context, updates []clients.InventoryUpdate) (*clients.BatchResult, error) {
	return &clients.BatchResult{Failure: len(updates)}, fmt.Errorf("ebay: PushInventoryLevels not implemented")
}

// VerifyWebhook compares the X-Ebay-Signature header against the
// hex-encoded SHA-256 of (payload + verificationToken).
func (c *Client) VerifyWebhook(payload []byte, headers map[string]string) error {
	if c.verificationToken == "" {
		return fmt.Errorf("no verification token configured")
	}
	signature := headers["X-Ebay-Signature"]
	if signature == "" {
		return fmt.Errorf("missing webhook signature header")
	}

	h := sha256.New()
	h.Write(payload)
	h.Write([]byte(c.verificationToken))
	expected := hex.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("invalid webhook signature")
	}
	return nil
}

func (c *Client) ParseWebhook(payload []byte, headers map[string]string) (*clients.WebhookEvent, error) {
	return &clients.WebhookEvent{
		EventID:   fmt.Sprintf("ebay-%x", sha256.Sum256(payload)),
		EventType: "unsupported",
		Timestamp: time.Now(),
	}, nil
}

func (c *Client) IdentifyFromWebhookHeaders(headers map[string]string) string {
	return c.sellerID
}
