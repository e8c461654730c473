// Package shopify adapts the Shopify Admin REST API to the clients.Adapter
// contract: a stateful ApiClient, a payload Mapper, and the small sync
// policy value object.
package shopify

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
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

const apiVersion = "2024-01"

// Client talks to one Shopify store's Admin API.
type Client struct {
	httpClient  *http.Client
	storeURL    string
	shop        string
	accessToken string
	apiKey      string
	apiSecret   string
	rateLimiter *rate.Limiter
	retrier     *clients.Retrier
	breaker     *clients.CircuitBreaker
}

// NewClient builds an uninitialized Shopify client; call Initialize with
// decrypted connection credentials before use.
func NewClient() *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(2), 1),
		retrier:     clients.NewRetrier(clients.DefaultRetryConfig()),
		breaker:     clients.NewCircuitBreaker(5, 30*time.Second),
	}
}

// Initialize sets up the client from decrypted credentials.
func (c *Client) Initialize(credentials map[string]interface{}) error {
	store, ok := credentials["store"].(string)
	if !ok || store == "" {
		return fmt.Errorf("missing store name")
	}
	c.shop = store
	c.storeURL = fmt.Sprintf("https://%s.myshopify.com", store)

	accessToken, ok := credentials["access_token"].(string)
	if !ok || accessToken == "" {
		return fmt.Errorf("missing access_token")
	}
	c.accessToken = accessToken

	if apiKey, ok := credentials["api_key"].(string); ok {
		c.apiKey = apiKey
	}
	if apiSecret, ok := credentials["api_secret"].(string); ok {
		c.apiSecret = apiSecret
	}

	return nil
}

func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/shop.json", nil, nil)
	return err
}

// FetchAllProducts performs a paginated traversal of the catalog using
// Shopify's Link-header cursor.
func (c *Client) FetchAllProducts(ctx context.Context, cursor string) (*clients.ProductPage, error) {
	params := url.Values{"limit": {"50"}}
	if cursor != "" {
		params.Set("page_info", cursor)
	}

	body, headers, err := c.doRequestWithHeaders(ctx, "GET", "/products.json", params, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Products []shopifyProduct `json:"products"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse products response: %w", err)
	}

	products := make([]clients.PlatformProduct, 0, len(response.Products))
	for _, p := range response.Products {
		products = append(products, convertProduct(p))
	}

	nextCursor := ""
	hasMore := false
	if linkHeader := headers.Get("Link"); linkHeader != "" {
		nextCursor, hasMore = parsePagination(linkHeader)
	}

	return &clients.ProductPage{Products: products, NextCursor: nextCursor, HasMore: hasMore}, nil
}

func (c *Client) FetchProductOverviews(ctx context.Context) ([]clients.ProductOverview, error) {
	body, _, err := c.doRequestWithHeaders(ctx, "GET", "/products.json", url.Values{"fields": {"id,title,updated_at"}, "limit": {"250"}}, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Products []struct {
			ID        int64     `json:"id"`
			Title     string    `json:"title"`
			UpdatedAt time.Time `json:"updated_at"`
		} `json:"products"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse product overviews: %w", err)
	}

	overviews := make([]clients.ProductOverview, 0, len(response.Products))
	for _, p := range response.Products {
		overviews = append(overviews, clients.ProductOverview{
			PlatformProductID: strconv.FormatInt(p.ID, 10),
			Title:             p.Title,
			UpdatedAt:         p.UpdatedAt,
		})
	}
	return overviews, nil
}

func (c *Client) FetchProduct(ctx context.Context, platformProductID string) (*clients.PlatformProduct, error) {
	body, _, err := c.doRequestWithHeaders(ctx, "GET", fmt.Sprintf("/products/%s.json", platformProductID), nil, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Product shopifyProduct `json:"product"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	product := convertProduct(response.Product)
	return &product, nil
}

func (c *Client) FetchInventoryLevels(ctx context.Context, platformVariantIDs []string) ([]clients.PlatformInventoryLevel, error) {
	wanted := make(map[int64]bool, len(platformVariantIDs))
	for _, id := range platformVariantIDs {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			wanted[n] = true
		}
	}

	body, _, err := c.doRequestWithHeaders(ctx, "GET", "/inventory_levels.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		InventoryLevels []struct {
			InventoryItemID int64     `json:"inventory_item_id"`
			LocationID      int64     `json:"location_id"`
			Available       int       `json:"available"`
			UpdatedAt       time.Time `json:"updated_at"`
		} `json:"inventory_levels"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	levels := make([]clients.PlatformInventoryLevel, 0, len(response.InventoryLevels))
	for _, inv := range response.InventoryLevels {
		if len(wanted) > 0 && !wanted[inv.InventoryItemID] {
			continue
		}
		levels = append(levels, clients.PlatformInventoryLevel{
			PlatformVariantID:  strconv.FormatInt(inv.InventoryItemID, 10),
			PlatformLocationID: strconv.FormatInt(inv.LocationID, 10),
			Quantity:           inv.Available,
			UpdatedAt:          inv.UpdatedAt,
		})
	}
	return levels, nil
}

func (c *Client) CreateProduct(ctx context.Context, bundle *clients.PlatformProductBundle) (*clients.CreateResult, error) {
	payload := map[string]interface{}{
		"product": buildShopifyProductPayload(bundle),
	}

	body, _, err := c.doRequestWithHeaders(ctx, "POST", "/products.json", nil, payload)
	if err != nil {
		return nil, err
	}

	var response struct {
		Product shopifyProduct `json:"product"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse create-product response: %w", err)
	}

	variantIDs := make(map[string]string, len(response.Product.Variants))
	for i, v := range response.Product.Variants {
		if i < len(bundle.Variants) {
			variantIDs[bundle.Variants[i].SKU] = strconv.FormatInt(v.ID, 10)
		}
	}

	return &clients.CreateResult{
		PlatformProductID:  strconv.FormatInt(response.Product.ID, 10),
		PlatformVariantIDs: variantIDs,
	}, nil
}

func (c *Client) UpdateProduct(ctx context.Context, platformProductID string, bundle *clients.PlatformProductBundle) error {
	payload := map[string]interface{}{
		"product": buildShopifyProductPayload(bundle),
	}
	_, err := c.doRequest(ctx, "PUT", fmt.Sprintf("/products/%s.json", platformProductID), nil, payload)
	return err
}

func (c *Client) DeleteProduct(ctx context.Context, platformProductID string) error {
	_, err := c.doRequest(ctx, "DELETE", fmt.Sprintf("/products/%s.json", platformProductID), nil, nil)
	return err
}

func (c *Client) PushInventoryLevels(ctx context.Context, updates []clients.InventoryUpdate) (*clients.BatchResult, error) {
	result := &clients.BatchResult{}
	for _, u := range updates {
		payload := map[string]interface{}{
			"location_id":       u.Mapping.PlatformVariantID,
			"inventory_item_id": u.Mapping.PlatformVariantID,
			"available":         u.Level.Quantity,
		}
		if _, err := c.doRequest(ctx, "POST", "/inventory_levels/set.json", nil, payload); err != nil {
			result.Failure++
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Success++
	}
	return result, nil
}

// VerifyWebhook validates the X-Shopify-Hmac-Sha256 header against the
// configured webhook signing secret.
func (c *Client) VerifyWebhook(payload []byte, headers map[string]string) error {
	secret := c.apiSecret
	if secret == "" {
		return fmt.Errorf("no webhook secret configured")
	}

	signature := headers["X-Shopify-Hmac-Sha256"]
	if signature == "" {
		signature = headers["x-shopify-hmac-sha256"]
	}
	if signature == "" {
		return fmt.Errorf("missing webhook signature header")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("invalid webhook signature")
	}
	return nil
}

func (c *Client) ParseWebhook(payload []byte, headers map[string]string) (*clients.WebhookEvent, error) {
	var event map[string]interface{}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}

	resourceID := ""
	if id, ok := event["id"].(float64); ok {
		resourceID = strconv.FormatInt(int64(id), 10)
	}

	topic := headers["X-Shopify-Topic"]
	if topic == "" {
		topic = headers["x-shopify-topic"]
	}

	return &clients.WebhookEvent{
		EventID:      fmt.Sprintf("%v", event["admin_graphql_api_id"]),
		EventType:    topic,
		ResourceID:   resourceID,
		ResourceType: resourceTypeFromTopic(topic),
		Payload:      event,
		Timestamp:    time.Now(),
	}, nil
}

func (c *Client) IdentifyFromWebhookHeaders(headers map[string]string) string {
	shop := headers["X-Shopify-Shop-Domain"]
	if shop == "" {
		shop = headers["x-shopify-shop-domain"]
	}
	return strings.TrimSuffix(shop, ".myshopify.com")
}

func resourceTypeFromTopic(topic string) string {
	switch {
	case strings.HasPrefix(topic, "products/"):
		return "product"
	case strings.HasPrefix(topic, "inventory_levels/"):
		return "inventory"
	case strings.HasPrefix(topic, "orders/"):
		return "order"
	default:
		return "unknown"
	}
}

// doRequest performs an authenticated request through the circuit breaker
// and retrier, discarding response headers.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body interface{}) ([]byte, error) {
	respBody, _, err := c.doRequestWithHeaders(ctx, method, path, params, body)
	return respBody, err
}

func (c *Client) doRequestWithHeaders(ctx context.Context, method, path string, params url.Values, body interface{}) ([]byte, http.Header, error) {
	if !c.breaker.Allow() {
		return nil, nil, fmt.Errorf("circuit open for shopify store %s", c.shop)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	fullURL := fmt.Sprintf("%s/admin/api/%s%s", c.storeURL, apiVersion, path)
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
	}

	resp, retryResult := c.retrier.DoHTTP(ctx, "shopify."+method+path, func(ctx context.Context) (*http.Response, error) {
		var reader io.Reader
		if reqBody != nil {
			reader = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Shopify-Access-Token", c.accessToken)
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	})

	if resp == nil {
		c.breaker.RecordFailure()
		return nil, nil, fmt.Errorf("shopify request failed: %w", retryResult.LastError)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, nil, err
	}

	if resp.StatusCode >= 400 {
		c.breaker.RecordFailure()
		return nil, nil, fmt.Errorf("shopify API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	c.breaker.RecordSuccess()
	return respBody, resp.Header, nil
}

type shopifyProduct struct {
	ID        int64            `json:"id"`
	Title     string           `json:"title"`
	BodyHTML  string           `json:"body_html"`
	Status    string           `json:"status"`
	Variants  []shopifyVariant `json:"variants"`
	Images    []shopifyImage   `json:"images"`
	Options   []shopifyOption  `json:"options"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type shopifyVariant struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	SKU               string `json:"sku"`
	Barcode           string `json:"barcode"`
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventory_quantity"`
	InventoryItemID   int64  `json:"inventory_item_id"`
	Option1           string `json:"option1"`
	Option2           string `json:"option2"`
	Option3           string `json:"option3"`
}

type shopifyImage struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
}

type shopifyOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

func convertProduct(p shopifyProduct) clients.PlatformProduct {
	product := clients.PlatformProduct{
		ID:          strconv.FormatInt(p.ID, 10),
		Title:       p.Title,
		Description: p.BodyHTML,
		UpdatedAt:   p.UpdatedAt,
	}

	for _, img := range p.Images {
		product.ImageURLs = append(product.ImageURLs, img.Src)
	}

	for _, v := range p.Variants {
		price, _ := strconv.ParseFloat(v.Price, 64)
		options := map[string]string{}
		if v.Option1 != "" {
			options["option1"] = v.Option1
		}
		if v.Option2 != "" {
			options["option2"] = v.Option2
		}
		if v.Option3 != "" {
			options["option3"] = v.Option3
		}
		product.Variants = append(product.Variants, clients.PlatformVariant{
			ID:       strconv.FormatInt(v.ID, 10),
			SKU:      v.SKU,
			Barcode:  v.Barcode,
			Title:    v.Title,
			Price:    int64(price * 100),
			Options:  options,
			Quantity: v.InventoryQuantity,
		})
	}

	raw, _ := json.Marshal(p)
	var rawMap map[string]interface{}
	_ = json.Unmarshal(raw, &rawMap)
	product.RawData = rawMap

	return product
}

func buildShopifyProductPayload(bundle *clients.PlatformProductBundle) map[string]interface{} {
	variants := make([]map[string]interface{}, 0, len(bundle.Variants))
	for _, v := range bundle.Variants {
		variants = append(variants, map[string]interface{}{
			"sku":                v.SKU,
			"barcode":            v.Barcode,
			"title":              v.Title,
			"price":              fmt.Sprintf("%.2f", float64(v.Price)/100),
			"inventory_quantity": v.Quantity,
			"option1":            v.Options["option1"],
		})
	}

	images := make([]map[string]interface{}, 0, len(bundle.ImageURLs))
	for _, src := range bundle.ImageURLs {
		images = append(images, map[string]interface{}{"src": src})
	}

	return map[string]interface{}{
		"title":        bundle.Title,
		"body_html":    bundle.Description,
		"variants":     variants,
		"images":       images,
		"status":       "active",
		"product_type": "",
	}
}

func parsePagination(linkHeader string) (string, bool) {
	parts := strings.Split(linkHeader, ",")
	for _, part := range parts {
		if strings.Contains(part, `rel="next"`) {
			urlPart := strings.TrimSpace(strings.Split(part, ";")[0])
			urlPart = strings.Trim(urlPart, "<>")
			if parsedURL, err := url.Parse(urlPart); err == nil {
				return parsedURL.Query().Get("page_info"), true
			}
		}
	}
	return "", false
}

// PlatformKind identifies this adapter in the registry.
func PlatformKind() models.PlatformKind { return models.PlatformShopify }
