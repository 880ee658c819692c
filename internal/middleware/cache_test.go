package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assistly/assistant-backend/internal/config"
	"github.com/assistly/assistant-backend/internal/model"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}, "X-Thing": {"a", "b"}}
	body := []byte(`{"ok":true}`)

	bs, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, gotHdr)
	assert.Equal(t, body, gotBody)
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	for _, bs := range [][]byte{nil, {1, 2, 3}, []byte("short"), {0, 0, 0, 200, 0, 0, 0, 99}} {
		_, _, _, ok := decodePayload(bs)
		assert.False(t, ok)
	}
}

func TestCacheKeyIsTenantScoped(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	key := func(tenantID string) string {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/v1/ads/unit-id?name=rewarded", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/ads/unit-id")
		c.Set("tenant", model.Tenant{ID: tenantID})
		return cacheKeyFrom(cfg, c)
	}

	assert.NotEqual(t, key("tenant-a"), key("tenant-b"))
	assert.Equal(t, key("tenant-a"), key("tenant-a"))
}
