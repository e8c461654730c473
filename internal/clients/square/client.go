// Package square adapts the Square Catalog/Inventory REST API to the
// clients.Adapter contract, in the shape of clients/shopify.
package square

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
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"inventory-sync-engine/internal/clients"
)

const baseURL = "https://connect.squareup.com/v2"

// Client talks to one Square merchant's Catalog/Inventory API.
type Client struct {
	httpClient      *http.Client
	accessToken     string
	locationID      string
	webhookSigKey   string
	notificationURL string
	rateLimiter     *rate.Limiter
	retrier         *clients.Retrier
	breaker         *clients.CircuitBreaker
}

// NewClient builds an uninitialized Square client.
func NewClient() *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(5), 2),
		retrier:     clients.NewRetrier(clients.DefaultRetryConfig()),
		breaker:     clients.NewCircuitBreaker(5, 30*time.Second),
	}
}

func (c *Client) Initialize(credentials map[string]interface{}) error {
	accessToken, ok := credentials["access_token"].(string)
	if !ok || accessToken == "" {
		return fmt.Errorf("missing access_token")
	}
	c.accessToken = accessToken

	if locationID, ok := credentials["location_id"].(string); ok {
		c.locationID = locationID
	}
	if sigKey, ok := credentials["webhook_signature_key"].(string); ok {
		c.webhookSigKey = sigKey
	}
	if notificationURL, ok := credentials["notification_url"].(string); ok {
		c.notificationURL = notificationURL
	}

	return nil
}

func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/locations", nil)
	return err
}

func (c *Client) FetchAllProducts(ctx context.Context, cursor string) (*clients.ProductPage, error) {
	payload := map[string]interface{}{
		"object_types": []string{"ITEM"},
	}
	if cursor != "" {
		payload["cursor"] = cursor
	}

	body, err := c.doRequest(ctx, "POST", "/catalog/search", payload)
	if err != nil {
		return nil, err
	}

	var response struct {
		Objects []squareCatalogObject `json:"objects"`
		Cursor  string                `json:"cursor"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse square catalog search: %w", err)
	}

	products := make([]clients.PlatformProduct, 0, len(response.Objects))
	for _, obj := range response.Objects {
		products = append(products, convertCatalogObject(obj))
	}

	return &clients.ProductPage{Products: products, NextCursor: response.Cursor, HasMore: response.Cursor != ""}, nil
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
	body, err := c.doRequest(ctx, "GET", fmt.Sprintf("/catalog/object/%s", platformProductID), nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Object squareCatalogObject `json:"object"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	product := convertCatalogObject(response.Object)
	return &product, nil
}

func (c *Client) FetchInventoryLevels(ctx context.Context, platformVariantIDs []string) ([]clients.PlatformInventoryLevel, error) {
	payload := map[string]interface{}{
		"catalog_object_ids": platformVariantIDs,
	}
	if c.locationID != "" {
		payload["location_ids"] = []string{c.locationID}
	}

	body, err := c.doRequest(ctx, "POST", "/inventory/batch-retrieve-counts", payload)
	if err != nil {
		return nil, err
	}

	var response struct {
		Counts []struct {
			CatalogObjectID string    `json:"catalog_object_id"`
			LocationID      string    `json:"location_id"`
			Quantity        string    `json:"quantity"`
			CalculatedAt    time.Time `json:"calculated_at"`
		} `json:"counts"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	levels := make([]clients.PlatformInventoryLevel, 0, len(response.Counts))
	for _, cnt := range response.Counts {
		qty, _ := strconv.Atoi(cnt.Quantity)
		levels = append(levels, clients.PlatformInventoryLevel{
			PlatformVariantID:  cnt.CatalogObjectID,
			PlatformLocationID: cnt.LocationID,
			Quantity:           qty,
			UpdatedAt:          cnt.CalculatedAt,
		})
	}
	return levels, nil
}

func (c *Client) CreateProduct(ctx context.Context, bundle *clients.PlatformProductBundle) (*clients.CreateResult, error) {
	payload := map[string]interface{}{
		"idempotency_key": fmt.Sprintf("create-%d", time.Now().UnixNano()),
		"object":          buildCatalogObjectPayload("#item", bundle),
	}

	body, err := c.doRequest(ctx, "POST", "/catalog/object", payload)
	if err != nil {
		return nil, err
	}

	var response struct {
		CatalogObject  squareCatalogObject `json:"catalog_object"`
		IDMappings     []struct {
			ClientObjectID string `json:"client_object_id"`
			ObjectID       string `json:"object_id"`
		} `json:"id_mappings"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse square create response: %w", err)
	}

	variantIDs := make(map[string]string, len(response.CatalogObject.ItemData.Variations))
	for i, v := range response.CatalogObject.ItemData.Variations {
		if i < len(bundle.Variants) {
			variantIDs[bundle.Variants[i].SKU] = v.ID
		}
	}

	return &clients.CreateResult{
		PlatformProductID:  response.CatalogObject.ID,
		PlatformVariantIDs: variantIDs,
	}, nil
}

func (c *Client) UpdateProduct(ctx context.Context, platformProductID string, bundle *clients.PlatformProductBundle) error {
	payload := map[string]interface{}{
		"idempotency_key": fmt.Sprintf("update-%d", time.Now().UnixNano()),
		"object":          buildCatalogObjectPayload(platformProductID, bundle),
	}
	_, err := c.doRequest(ctx, "POST", "/catalog/object", payload)
	return err
}

func (c *Client) DeleteProduct(ctx context.Context, platformProductID string) error {
	_, err := c.doRequest(ctx, "DELETE", fmt.Sprintf("/catalog/object/%s", platformProductID), nil)
	return err
}

func (c *Client) PushInventoryLevels(ctx context.Context, updates []clients.InventoryUpdate) (*clients.BatchResult, error) {
	result := &clients.BatchResult{}
	for _, u := range updates {
		changes := []map[string]interface{}{{
			"type": "PHYSICAL_COUNT",
			"physical_count": map[string]interface{}{
				"catalog_object_id": u.Mapping.PlatformVariantID,
				"location_id":       c.locationID,
				"quantity":          strconv.Itoa(u.Level.Quantity),
				"state":             "IN_STOCK",
				"occurred_at":       time.Now().Format(time.RFC3339),
			},
		}}
		payload := map[string]interface{}{
			"idempotency_key": fmt.Sprintf("inv-%d", time.Now().UnixNano()),
			"changes":         changes,
		}
		if _, err := c.doRequest(ctx, "POST", "/inventory/changes/batch-create", payload); err != nil {
			result.Failure++
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Success++
	}
	return result, nil
}

// VerifyWebhook validates the X-Square-HmacSha256-Signature header, the
// same HMAC-compare shape as the Shopify client's VerifyWebhook.
func (c *Client) VerifyWebhook(payload []byte, headers map[string]string) error {
	if c.webhookSigKey == "" {
		return fmt.Errorf("no webhook signature key configured")
	}

	signature := headers["X-Square-Hmacsha256-Signature"]
	if signature == "" {
		signature = headers["x-square-hmacsha256-signature"]
	}
	if signature == "" {
		return fmt.Errorf("missing webhook signature header")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSigKey))
	mac.Write([]byte(c.notificationURL))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("invalid webhook signature")
	}
	return nil
}

func (c *Client) ParseWebhook(payload []byte, headers map[string]string) (*clients.WebhookEvent, error) {
	var event struct {
		EventID string `json:"event_id"`
		Type    string `json:"type"`
		Data    struct {
			Type   string          `json:"type"`
			ID     string          `json:"id"`
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}

	var rawPayload map[string]interface{}
	_ = json.Unmarshal(payload, &rawPayload)

	return &clients.WebhookEvent{
		EventID:      event.EventID,
		EventType:    event.Type,
		ResourceID:   event.Data.ID,
		ResourceType: resourceTypeFromSquareType(event.Data.Type),
		Payload:      rawPayload,
		Timestamp:    time.Now(),
	}, nil
}

func (c *Client) IdentifyFromWebhookHeaders(headers map[string]string) string {
	return headers["Square-Merchant-Id"]
}

func resourceTypeFromSquareType(t string) string {
	switch t {
	case "catalog_object":
		return "product"
	case "inventory_count":
		return "inventory"
	default:
		return "unknown"
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("circuit open for square merchant")
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

	resp, retryResult := c.retrier.DoHTTP(ctx, "square."+method+path, func(ctx context.Context) (*http.Response, error) {
		var reader io.Reader
		if reqBody != nil {
			reader = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Square-Version", "2024-01-18")
		return c.httpClient.Do(req)
	})

	if resp == nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("square request failed: %w", retryResult.LastError)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}

	if resp.StatusCode >= 400 {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("square API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	c.breaker.RecordSuccess()
	return respBody, nil
}

type squareCatalogObject struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
	ItemData  struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Variations  []struct {
			ID                string `json:"id"`
			ItemVariationData struct {
				SKU            string `json:"sku"`
				Name           string `json:"name"`
				PriceMoney     struct {
					Amount int64 `json:"amount"`
				} `json:"price_money"`
			} `json:"item_variation_data"`
		} `json:"variations"`
	} `json:"item_data"`
}

func convertCatalogObject(obj squareCatalogObject) clients.PlatformProduct {
	product := clients.PlatformProduct{
		ID:          obj.ID,
		Title:       obj.ItemData.Name,
		Description: obj.ItemData.Description,
		UpdatedAt:   obj.UpdatedAt,
	}

	for _, v := range obj.ItemData.Variations {
		product.Variants = append(product.Variants, clients.PlatformVariant{
			ID:    v.ID,
			SKU:   v.ItemVariationData.SKU,
			Title: v.ItemVariationData.Name,
			Price: v.ItemVariationData.PriceMoney.Amount,
		})
	}

	raw, _ := json.Marshal(obj)
	var rawMap map[string]interface{}
	_ = json.Unmarshal(raw, &rawMap)
	product.RawData = rawMap

	return product
}

func buildCatalogObjectPayload(id string, bundle *clients.PlatformProductBundle) map[string]interface{} {
	variations := make([]map[string]interface{}, 0, len(bundle.Variants))
	for i, v := range bundle.Variants {
		variations = append(variations, map[string]interface{}{
			"type": "ITEM_VARIATION",
			"id":   fmt.Sprintf("#variation%d", i),
			"item_variation_data": map[string]interface{}{
				"name": v.Title,
				"sku":  v.SKU,
				"price_money": map[string]interface{}{
					"amount":   v.Price,
					"currency": "USD",
				},
			},
		})
	}

	return map[string]interface{}{
		"type": "ITEM",
		"id":   id,
		"item_data": map[string]interface{}{
			"name":        bundle.Title,
			"description": bundle.Description,
			"variations":  variations,
		},
	}
}
