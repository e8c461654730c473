// Package clover adapts the Clover REST API to the clients.Adapter
// contract, in the shape of clients/shopify and clients/square.
package clover

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"inventory-sync-engine/internal/clients"
)

const baseURL = "https://api.clover.com/v3"

// Client talks to one Clover merchant's Inventory API.
type Client struct {
	httpClient    *http.Client
	apiToken      string
	merchantID    string
	webhookSecret string
	rateLimiter   *rate.Limiter
	retrier       *clients.Retrier
	breaker       *clients.CircuitBreaker
}

func NewClient() *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(5), 2),
		retrier:     clients.NewRetrier(clients.DefaultRetryConfig()),
		breaker:     clients.NewCircuitBreaker(5, 30*time.Second),
	}
}

func (c *Client) Initialize(credentials map[string]interface{}) error {
	apiToken, ok := credentials["api_token"].(string)
	if !ok || apiToken == "" {
		return fmt.Errorf("missing api_token")
	}
	c.apiToken = apiToken

	merchantID, ok := credentials["merchant_id"].(string)
	if !ok || merchantID == "" {
		return fmt.Errorf("missing merchant_id")
	}
	c.merchantID = merchantID

	if secret, ok := credentials["webhook_secret"].(string); ok {
		c.webhookSecret = secret
	}

	return nil
}

func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", fmt.Sprintf("/merchants/%s", c.merchantID), nil)
	return err
}

func (c *Client) FetchAllProducts(ctx context.Context, cursor string) (*clients.ProductPage, error) {
	path := fmt.Sprintf("/merchants/%s/items?expand=itemStock&limit=100", c.merchantID)
	if cursor != "" {
		path += "&offset=" + cursor
	}

	body, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Elements []cloverItem `json:"elements"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse clover items: %w", err)
	}

	products := make([]clients.PlatformProduct, 0, len(response.Elements))
	for _, item := range response.Elements {
		products = append(products, convertItem(item))
	}

	hasMore := len(response.Elements) == 100
	nextCursor := ""
	if hasMore {
		nextCursor = fmt.Sprintf("%d", len(response.Elements))
	}

	return &clients.ProductPage{Products: products, NextCursor: nextCursor, HasMore: hasMore}, nil
}

func (c *Client) FetchProductOverviews(ctx context.Context) ([]clients.ProductOverview, error) {
	page, err := c.FetchAllProducts(ctx, "")
	if err != nil {
		return nil, err
	}
	overviews := make([]clients.ProductOverview, 0, len(page.Products))
	for _, p := range page.Products {
		overviews = append(overviews, clients.ProductOverview{PlatformProductID: p.ID, Title: p.Title, UpdatedAt: p.UpdatedAt})
	}
	return overviews, nil
}

func (c *Client) FetchProduct(ctx context.Context, platformProductID string) (*clients.PlatformProduct, error) {
	body, err := c.doRequest(ctx, "GET", fmt.Sprintf("/merchants/%s/items/%s?expand=itemStock", c.merchantID, platformProductID), nil)
	if err != nil {
		return nil, err
	}

	var item cloverItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, err
	}

	product := convertItem(item)
	return &product, nil
}

func (c *Client) FetchInventoryLevels(ctx context.Context, platformVariantIDs []string) ([]clients.PlatformInventoryLevel, error) {
	levels := make([]clients.PlatformInventoryLevel, 0, len(platformVariantIDs))
	for _, id := range platformVariantIDs {
		body, err := c.doRequest(ctx, "GET", fmt.Sprintf("/merchants/%s/item_stocks/%s", c.merchantID, id), nil)
		if err != nil {
			continue
		}
		var stock struct {
			Quantity int `json:"quantity"`
		}
		if err := json.Unmarshal(body, &stock); err != nil {
			continue
		}
		levels = append(levels, clients.PlatformInventoryLevel{
			PlatformVariantID:  id,
			PlatformLocationID: c.merchantID,
			Quantity:           stock.Quantity,
			UpdatedAt:          time.Now(),
		})
	}
	return levels, nil
}

func (c *Client) CreateProduct(ctx context.Context, bundle *clients.PlatformProductBundle) (*clients.CreateResult, error) {
	payload := map[string]interface{}{
		"name":  bundle.Title,
		"price": 0,
	}
	if len(bundle.Variants) > 0 {
		payload["price"] = bundle.Variants[0].Price
		payload["code"] = bundle.Variants[0].SKU
	}

	body, err := c.doRequest(ctx, "POST", fmt.Sprintf("/merchants/%s/items", c.merchantID), payload)
	if err != nil {
		return nil, err
	}

	var item cloverItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to parse clover create response: %w", err)
	}

	variantIDs := map[string]string{}
	if len(bundle.Variants) > 0 {
		variantIDs[bundle.Variants[0].SKU] = item.ID
	}

	return &clients.CreateResult{PlatformProductID: item.ID, PlatformVariantIDs: variantIDs}, nil
}

func (c *Client) UpdateProduct(ctx context.Context, platformProductID string, bundle *clients.PlatformProductBundle) error {
	payload := map[string]interface{}{"name": bundle.Title}
	if len(bundle.Variants) > 0 {
		payload["price"] = bundle.Variants[0].Price
		payload["code"] = bundle.Variants[0].SKU
	}
	_, err := c.doRequest(ctx, "POST", fmt.Sprintf("/merchants/%s/items/%s", c.merchantID, platformProductID), payload)
	return err
}

func (c *Client) DeleteProduct(ctx context.Context, platformProductID string) error {
	_, err := c.doRequest(ctx, "DELETE", fmt.Sprintf("/merchants/%s/items/%s", c.merchantID, platformProductID), nil)
	return err
}

func (c *Client) PushInventoryLevels(ctx context.Context, updates []clients.InventoryUpdate) (*clients.BatchResult, error) {
	result := &clients.BatchResult{}
	for _, u := range updates {
		payload := map[string]interface{}{"quantity": u.Level.Quantity}
		_, err := c.doRequest(ctx, "POST", fmt.Sprintf("/merchants/%s/item_stocks/%s", c.merchantID, u.Mapping.PlatformVariantID), payload)
		if err != nil {
			result.Failure++
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Success++
	}
	return result, nil
}

// VerifyWebhook validates Clover's signed webhook body, the same
// HMAC-compare shape used by the Shopify and Square clients.
func (c *Client) VerifyWebhook(payload []byte, headers map[string]string) error {
	if c.webhookSecret == "" {
		return fmt.Errorf("no webhook secret configured")
	}

	signature := headers["X-Clover-Signature"]
	if signature == "" {
		signature = headers["x-clover-signature"]
	}
	if signature == "" {
		return fmt.Errorf("missing webhook signature header")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("invalid webhook signature")
	}
	return nil
}

func (c *Client) ParseWebhook(payload []byte, headers map[string]string) (*clients.WebhookEvent, error) {
	var event struct {
		AppID     string `json:"appId"`
		Merchants map[string][]struct {
			ObjectID string `json:"objectId"`
			Type     string `json:"type"`
			Ts       int64  `json:"ts"`
		} `json:"merchants"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}

	var rawPayload map[string]interface{}
	_ = json.Unmarshal(payload, &rawPayload)

	resourceID := ""
	eventType := ""
	for _, notifications := range event.Merchants {
		for _, n := range notifications {
			resourceID = n.ObjectID
			eventType = n.Type
			break
		}
		break
	}

	return &clients.WebhookEvent{
		EventID:      fmt.Sprintf("clover-%x", sha256.Sum256(payload)),
		EventType:    eventType,
		ResourceID:   resourceID,
		ResourceType: "product",
		Payload:      rawPayload,
		Timestamp:    time.Now(),
	}, nil
}

func (c *Client) IdentifyFromWebhookHeaders(headers map[string]string) string {
	return headers["X-Clover-Merchant-Id"]
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("circuit open for clover merchant %s", c.merchantID)
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	resp, retryResult := c.retrier.DoHTTP(ctx, "clover."+method+path, func(ctx context.Context) (*http.Response, error) {
		var reader io.Reader
		if reqBody != nil {
			reader = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	})

	if resp == nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("clover request failed: %w", retryResult.LastError)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}

	if resp.StatusCode >= 400 {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("clover API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	c.breaker.RecordSuccess()
	return respBody, nil
}

type cloverItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Price     int64  `json:"price"`
	ItemStock struct {
		Quantity int `json:"quantity"`
	} `json:"itemStock"`
	ModifiedTime int64 `json:"modifiedTime"`
}

func convertItem(item cloverItem) clients.PlatformProduct {
	return clients.PlatformProduct{
		ID:        item.ID,
		Title:     item.Name,
		UpdatedAt: time.UnixMilli(item.ModifiedTime),
		Variants: []clients.PlatformVariant{{
			ID:       item.ID,
			SKU:      item.Code,
			Title:    item.Name,
			Price:    item.Price,
			Quantity: item.ItemStock.Quantity,
		}},
		RawData: map[string]interface{}{"id": item.ID, "name": item.Name, "code": item.Code, "price": item.Price},
	}
}
