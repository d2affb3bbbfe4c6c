package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherClient_FetchSegments_Success(t *testing.T) {
	rid := "RID-1"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/journeys/J-1/segments", r.URL.Path)
		w.Write([]byte(`{
			"id": "J-1", "user_id": "U-1", "origin_crs": "PAD", "destination_crs": "BRI",
			"travel_date": "2026-07-31T09:00:00Z", "status": "scheduled",
			"segments": [{
				"id": "seg-1", "journey_id": "J-1", "sequence": 1, "rid": "RID-1",
				"origin_crs": "PAD", "destination_crs": "BRI",
				"scheduled_departure": "2026-07-31T09:00:00Z", "scheduled_arrival": "2026-07-31T11:00:00Z",
				"toc_code": "GW"
			}]
		}`))
	}))
	defer server.Close()

	client := NewMatcherClient(server.URL, time.Second)
	result, err := client.FetchSegments(context.Background(), "J-1")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "J-1", result.ID)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, &rid, result.Segments[0].RID)
}

func TestMatcherClient_FetchSegments_NotFoundReturnsNilNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewMatcherClient(server.URL, time.Second)
	result, err := client.FetchSegments(context.Background(), "J-missing")

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestMatcherClient_FetchSegments_ServerErrorReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewMatcherClient(server.URL, time.Second)
	_, err := client.FetchSegments(context.Background(), "J-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Journey Matcher API error")
}

func TestMatcherClient_FetchSegments_TimeoutReturnsTimeoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
	}))
	defer server.Close()

	client := NewMatcherClient(server.URL, time.Millisecond)
	_, err := client.FetchSegments(context.Background(), "J-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
