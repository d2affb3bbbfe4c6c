package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/railrepay/delaytracker/internal/domain/ports"
)

// UpstreamDelaysClient calls the upstream real-time data feed
// (POST /api/v1/delays).
type UpstreamDelaysClient struct {
	baseClient
}

// NewUpstreamDelaysClient creates a new UpstreamDelaysClient.
func NewUpstreamDelaysClient(baseURL string, timeout time.Duration) *UpstreamDelaysClient {
	return &UpstreamDelaysClient{baseClient: newBaseClient("upstream-delays", baseURL, timeout)}
}

type upstreamDelaysRequest struct {
	RIDs []string `json:"rids"`
}

type upstreamService struct {
	RID          string         `json:"rid"`
	DelayMinutes int            `json:"delay_minutes"`
	IsCancelled  bool           `json:"is_cancelled"`
	DelayReasons map[string]any `json:"delay_reasons"`
}

type upstreamDelaysResponse struct {
	Services []upstreamService `json:"services"`
}

// FetchDelays queries the upstream feed for every rid. An empty rids
// slice returns an empty result without a network call.
func (c *UpstreamDelaysClient) FetchDelays(ctx context.Context, rids []string) ([]ports.DelayRecord, error) {
	if len(rids) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(upstreamDelaysRequest{RIDs: rids})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal delays request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/delays", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			if isTimeout(err) {
				return nil, errors.New("Upstream API request timeout")
			}
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("Upstream API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}

		var parsed upstreamDelaysResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("failed to decode upstream delays response: %w", err)
		}
		return parsed.Services, nil
	})
	if err != nil {
		return nil, err
	}

	services := result.([]upstreamService)
	records := make([]ports.DelayRecord, 0, len(services))
	for _, s := range services {
		records = append(records, ports.DelayRecord{
			RID:               s.RID,
			TotalDelayMinutes: s.DelayMinutes,
			IsCancelled:       s.IsCancelled,
			DelayReasons:      s.DelayReasons,
		})
	}
	return records, nil
}
