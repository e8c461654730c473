// Package facebook is a placeholder adapter for Facebook Commerce Manager
// (spec.md §1 names it a placeholder platform — onboarding can register a
// connection, but no catalog operations are implemented).
package facebook

import (
	"context"
	"fmt"
	"time"

	"inventory-sync-engine/internal/clients"
)

// Client is an unimplemented ApiClient for Facebook.
type Client struct {
	pageID      string
	accessToken string
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
	if pageID, ok := credentials["page_id"].(string); ok {
		c.pageID = pageID
	}
	return nil
}

func (c *Client) TestConnection(ctx context.Context) error {
	if c.accessToken == "" {
		return fmt.Errorf("facebook client not initialized")
	}
	return nil
}

func (c *Client) FetchAllProducts(ctx context.Context, cursor string) (*clients.ProductPage, error) {
	return nil, fmt.Errorf("facebook: not implemented")
}

func (c *Client) FetchProductOverviews(ctx context.Context) ([]clients.ProductOverview, error) {
	return nil, fmt.Errorf("facebook: not implemented")
}

func (c *Client) FetchProduct(ctx context.Context, platformProductID string) (*clients.PlatformProduct, error) {
	return nil, fmt.Errorf("facebook: not implemented")
}

func (c *Client) FetchInventoryLevels(ctx context.Context, platformVariantIDs []string) ([]clients.PlatformInventoryLevel, error) {
	return nil, fmt.Errorf("facebook: not implemented")
}

func (c *Client) CreateProduct(ctx context.Context, bundle *clients.PlatformProductBundle) (*clients.CreateResult, error) {
	return nil, fmt.Errorf("facebook: not implemented")
}

func (c *Client) UpdateProduct(ctx context.Context, platformProductID string, bundle *clients.PlatformProductBundle) error {
	return fmt.Errorf("facebook: not implemented")
}

func (c *Client) DeleteProduct(ctx context.Context, platformProductID string) error {
	return fmt.Errorf("facebook: not implemented")
}

func (c *Client) PushInventoryLevels(ctx context.Context, updates []clients.InventoryUpdate) (*clients.BatchResult, error) {
	return &clients.BatchResult{Failure: len(updates)}, fmt.Errorf("facebook: not implemented")
}

func (c *Client) VerifyWebhook(payload []byte, headers map[string]string) error {
	return fmt.Errorf("facebook: webhooks not implemented")
}

func (c *Client) ParseWebhook(payload []byte, headers map[string]string) (*clients.WebhookEvent, error) {
	return &clients.WebhookEvent{EventID: fmt.Sprintf("facebook-%d", time.Now().UnixNano()), Timestamp: time.Now()}, nil
}

func (c *Client) IdentifyFromWebhookHeaders(headers map[string]string) string {
	return c.pageID
}
