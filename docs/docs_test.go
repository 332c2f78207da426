package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag/v2"
)

func TestDocumentIsRegistered(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var parsed struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))

	assert.Equal(t, "Order Sync API", parsed.Info.Title)
	assert.Contains(t, parsed.Paths, "/channels/{channel_id}/notifications")
	assert.Contains(t, parsed.Paths, "/channels/{channel_id}/sync")
	assert.Contains(t, parsed.Paths, "/orders/{order_id}")
	assert.Contains(t, parsed.Paths, "/orders/{order_id}/audit")
}
