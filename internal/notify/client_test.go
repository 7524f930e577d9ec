package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookon-app/bookon/internal/serviceerrs"
)

func gatewayStub(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestHTTPClient_Send(t *testing.T) {
	var got Event
	addr := gatewayStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/notifications", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	})

	client := NewHTTPClient(addr)
	err := client.Send(context.Background(), Event{
		ParentID:  "p-1",
		BookingID: "b-1",
		Refund:    "18.00",
	})
	require.NoError(t, err)
	assert.Equal(t, "b-1", got.BookingID)
	assert.Equal(t, "18.00", got.Refund)
}

func TestHTTPClient_Send_rateLimited(t *testing.T) {
	addr := gatewayStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := NewHTTPClient(addr)
	err := client.Send(context.Background(), Event{BookingID: "b-1"})

	var tmr *serviceerrs.TooManyRequestsError
	require.ErrorAs(t, err, &tmr)
	assert.Equal(t, 30*time.Second, tmr.RetryAfter)
}

func TestHTTPClient_Send_rateLimitedWithoutRetryAfter(t *testing.T) {
	addr := gatewayStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := NewHTTPClient(addr)
	err := client.Send(context.Background(), Event{BookingID: "b-1"})

	require.Error(t, err)
	var tmr *serviceerrs.TooManyRequestsError
	assert.False(t, errors.As(err, &tmr),
		"a 429 without Retry-After must not pause deliveries")
}

func TestHTTPClient_Send_gatewayError(t *testing.T) {
	addr := gatewayStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	client := NewHTTPClient(addr)
	err := client.Send(context.Background(), Event{BookingID: "b-1"})
	assert.Error(t, err)
}
