package facebook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Initialize_RequiresAccessToken(t *testing.T) {
	client := NewClient()
	err := client.Initialize(map[string]interface{}{"page_id": "page-1"})
	assert.Error(t, err)
}

func TestClient_Initialize_Success(t *testing.T) {
	client := NewClient()
	err := client.Initialize(map[string]interface{}{"access_token": "token-1", "page_id": "page-1"})
	require.NoError(t, err)
	assert.NoError(t, client.TestConnection(context.Background()))
	assert.Equal(t, "page-1", client.IdentifyFromWebhookHeaders(nil))
}

func TestClient_CatalogOperations_NotImplemented(t *testing.T) {
	client := NewClient()
	require.NoError(t, client.Initialize(map[string]interface{}{"access_token": "token-1"}))

	_, err := client.FetchAllProducts(context.Background(), "")
	assert.Error(t, err)

	_, err = client.CreateProduct(context.Background(), nil)
	assert.Error(t, err)

	assert.Error(t, client.VerifyWebhook(nil, nil))
}
