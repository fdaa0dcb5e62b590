package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"cadence/internal/jobs"
)

// pageSpacing throttles successive page fetches against the gateway
const pageSpacing = 200 * time.Millisecond

// maxPages caps runaway pagination on a single sync
const maxPages = 100

// GatewayClient fetches provider items through the provider gateway, an
// internal HTTP service that terminates provider OAuth and normalizes
// pagination. One GatewayClient instance serves one provider.
type GatewayClient struct {
	provider string
	baseURL  string
	token    string
	http     *http.Client
}

func NewGatewayClient(provider, baseURL, token string) *GatewayClient {
	return &GatewayClient{
		provider: provider,
		baseURL:  baseURL,
		token:    token,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *GatewayClient) Provider() string {
	return c.provider
}

type gatewayPage struct {
	Items         []Candidate `json:"items"`
	NextPageToken string      `json:"next_page_token"`
}

// FetchSince pages through the gateway until it runs out of items newer
// than the watermark. Network and server-side failures are transient; a
// response that fails to decode is a validation failure.
func (c *GatewayClient) FetchSince(ctx context.Context, userID string, watermark time.Time) ([]Candidate, error) {
	var all []Candidate
	pageToken := ""

	for page := 0; page < maxPages; page++ {
		if page > 0 {
			select {
			case <-ctx.Done():
				return all, jobs.Transient(ctx.Err())
			case <-time.After(pageSpacing):
			}
		}

		result, err := c.fetchPage(ctx, userID, watermark, pageToken)
		if err != nil {
			return all, err
		}
		all = append(all, result.Items...)

		if result.NextPageToken == "" {
			return all, nil
		}
		pageToken = result.NextPageToken
	}

	fmt.Printf("[SYNC] Provider %s: page limit reached for user %s, %d items fetched\n",
		c.provider, userID, len(all))
	return all, nil
}

func (c *GatewayClient) fetchPage(ctx context.Context, userID string, watermark time.Time, pageToken string) (*gatewayPage, error) {
	endpoint := fmt.Sprintf("%s/v1/providers/%s/items", c.baseURL, url.PathEscape(c.provider))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}

	q := req.URL.Query()
	q.Set("user_id", userID)
	if !watermark.IsZero() {
		q.Set("since", watermark.UTC().Format(time.RFC3339))
	}
	if pageToken != "" {
		q.Set("page_token", pageToken)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, jobs.Transient(fmt.Errorf("gateway request failed: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, jobs.Transient(fmt.Errorf("failed to read gateway response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, jobs.Transient(fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(body)))
	case resp.StatusCode != http.StatusOK:
		return nil, jobs.Invalid(c.provider, "sync", body,
			fmt.Errorf("gateway returned %d", resp.StatusCode))
	}

	var page gatewayPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, jobs.Invalid(c.provider, "sync", body,
			fmt.Errorf("failed to decode gateway response: %w", err))
	}
	return &page, nil
}
