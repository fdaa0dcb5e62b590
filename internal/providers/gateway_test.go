package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/jobs"
)

func TestFetchSincePagesUntilDone(t *testing.T) {
	var requests []*http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Clone(context.Background()))

		page := gatewayPage{}
		switch r.URL.Query().Get("page_token") {
		case "":
			page.Items = []Candidate{
				{SourceID: "m1", Payload: json.RawMessage(`{"a":1}`), OccurredAt: time.Now()},
				{SourceID: "m2", Payload: json.RawMessage(`{"a":2}`), OccurredAt: time.Now()},
			}
			page.NextPageToken = "p2"
		case "p2":
			page.Items = []Candidate{
				{SourceID: "m3", Payload: json.RawMessage(`{"a":3}`), OccurredAt: time.Now()},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	c := NewGatewayClient("mail", server.URL, "secret-token")
	watermark := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	items, err := c.FetchSince(context.Background(), "u1", watermark)

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "m1", items[0].SourceID)
	assert.Equal(t, "m3", items[2].SourceID)

	require.Len(t, requests, 2)
	first := requests[0]
	assert.Equal(t, "/v1/providers/mail/items", first.URL.Path)
	assert.Equal(t, "u1", first.URL.Query().Get("user_id"))
	assert.Equal(t, "2026-05-01T00:00:00Z", first.URL.Query().Get("since"))
	assert.Equal(t, "Bearer secret-token", first.Header.Get("Authorization"))
	assert.Equal(t, "p2", requests[1].URL.Query().Get("page_token"))
}

func TestFetchSinceZeroWatermarkOmitsSince(t *testing.T) {
	var gotSince string
	var hasSince bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSince = r.URL.Query().Get("since")
		_, hasSince = r.URL.Query()["since"]
		_ = json.NewEncoder(w).Encode(gatewayPage{})
	}))
	defer server.Close()

	c := NewGatewayClient("mail", server.URL, "t")
	_, err := c.FetchSince(context.Background(), "u1", time.Time{})

	require.NoError(t, err)
	assert.False(t, hasSince, "since should be omitted for a zero watermark, got %q", gotSince)
}

func TestFetchSinceServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewGatewayClient("mail", server.URL, "t")
	_, err := c.FetchSince(context.Background(), "u1", time.Time{})

	require.Error(t, err)
	_, isValidation := jobs.IsValidation(err)
	assert.False(t, isValidation)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchSinceRateLimitIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewGatewayClient("mail", server.URL, "t")
	_, err := c.FetchSince(context.Background(), "u1", time.Time{})

	require.Error(t, err)
	_, isValidation := jobs.IsValidation(err)
	assert.False(t, isValidation)
}

func TestFetchSinceClientErrorIsValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unknown provider", http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewGatewayClient("mail", server.URL, "t")
	_, err := c.FetchSince(context.Background(), "u1", time.Time{})

	require.Error(t, err)
	_, isValidation := jobs.IsValidation(err)
	assert.True(t, isValidation)
}

func TestFetchSinceMalformedBodyIsValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	c := NewGatewayClient("mail", server.URL, "t")
	_, err := c.FetchSince(context.Background(), "u1", time.Time{})

	require.Error(t, err)
	_, isValidation := jobs.IsValidation(err)
	assert.True(t, isValidation)
}

func TestRegistryRouting(t *testing.T) {
	mail := NewGatewayClient("mail", "http://gateway.internal", "t")
	calendar := NewGatewayClient("calendar", "http://gateway.internal", "t")

	reg := NewRegistry(mail, calendar)

	got, err := reg.For("mail")
	require.NoError(t, err)
	assert.Equal(t, "mail", got.Provider())

	_, err = reg.For("sms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sms")

	assert.Equal(t, []string{"calendar", "mail"}, reg.Providers())
}
