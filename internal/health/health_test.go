package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

func TestChecker_MemoryOnlyIsHealthy(t *testing.T) {
	h := NewChecker("memory", nil, nil, nil, fixedCounter(3))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "memory", status.Store)
	assert.Equal(t, StatusNotConfigured, status.Redis)
	assert.Equal(t, 3, status.Sessions)
}

func TestChecker_UnreachableRedisIsUnhealthy(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	h := NewChecker("redis", nil, client, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Not Ready", rec.Body.String())
}
