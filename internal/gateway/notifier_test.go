package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPNotifier_Grant_Success(t *testing.T) {
	var received grantRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewHTTPNotifier(server.URL, 2*time.Second, 3)
	err := notifier.Grant(context.Background(), "a@x.com", 3600)

	require.NoError(t, err)
	assert.Equal(t, "a@x.com", received.Identity)
	assert.Equal(t, 3600, received.DurationSeconds)
}

func TestHTTPNotifier_Grant_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewHTTPNotifier(server.URL, 2*time.Second, 5)
	err := notifier.Grant(context.Background(), "a@x.com", 300)

	require.NoError(t, err, "transient gateway failures should be retried")
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPNotifier_Grant_FailsAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewHTTPNotifier(server.URL, 2*time.Second, 2)
	err := notifier.Grant(context.Background(), "a@x.com", 3600)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "grant access for a@x.com")
	assert.Equal(t, int32(3), calls.Load(), "1 initial call + 2 retries")
}

func TestHTTPNotifier_Grant_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	notifier := NewHTTPNotifier(server.URL, 2*time.Second, 10)
	err := notifier.Grant(ctx, "a@x.com", 3600)

	require.Error(t, err, "cancelled context must stop the retry loop")
}

func TestLogNotifier_Grant(t *testing.T) {
	notifier := NewLogNotifier()
	err := notifier.Grant(context.Background(), "a@x.com", 3600)
	assert.NoError(t, err)
}
