package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elly-po/pumpsniper/internal/metrics"
)

type rpcRequest struct {
	Method string        `json:"method"`
	ID     interface{}   `json:"id"`
	Params []interface{} `json:"params"`
}

func jsonRPCServer(t *testing.T, handler func(method string) (interface{}, bool)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, rateLimited := handler(req.Method)
		if rateLimited {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":429,"message":"Too Many Requests"}}`))
			return
		}
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestGetSlotSuccess(t *testing.T) {
	srv := jsonRPCServer(t, func(method string) (interface{}, bool) {
		return 123456, false
	})
	defer srv.Close()

	c := New(srv.URL, 100, 3, time.Millisecond, metrics.New())
	slot, err := c.GetSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), slot)
}

func TestGetSlotRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	srv := jsonRPCServer(t, func(method string) (interface{}, bool) {
		attempts++
		return 5, attempts < 3
	})
	defer srv.Close()

	c := New(srv.URL, 1000, 5, time.Millisecond, metrics.New())
	slot, err := c.GetSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), slot)
	assert.GreaterOrEqual(t, attempts, 3)
}
