package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/railrepay/delaytracker/internal/domain/ports"
)

// MatcherClient calls the journey-matcher service to resolve a
// journey's segments and running ids (GET
// /api/v1/journeys/{journeyId}/segments).
type MatcherClient struct {
	baseClient
}

// NewMatcherClient creates a new MatcherClient.
func NewMatcherClient(baseURL string, timeout time.Duration) *MatcherClient {
	return &MatcherClient{baseClient: newBaseClient("journey-matcher", baseURL, timeout)}
}

type matcherSegment struct {
	ID                 string  `json:"id"`
	JourneyID          string  `json:"journey_id"`
	Sequence           int     `json:"sequence"`
	RID                *string `json:"rid"`
	OriginCRS          string  `json:"origin_crs"`
	DestinationCRS     string  `json:"destination_crs"`
	ScheduledDeparture string  `json:"scheduled_departure"`
	ScheduledArrival   string  `json:"scheduled_arrival"`
	TOCCode            string  `json:"toc_code"`
}

type matcherJourneyWithSegments struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	OriginCRS      string           `json:"origin_crs"`
	DestinationCRS string           `json:"destination_crs"`
	TravelDate     string           `json:"travel_date"`
	Status         string           `json:"status"`
	Segments       []matcherSegment `json:"segments"`
}

// FetchSegments returns the journey's segments, nil if the matcher
// responds 404 (not-found is not an error here).
func (c *MatcherClient) FetchSegments(ctx context.Context, journeyID string) (*ports.JourneyWithSegments, error) {
	url := fmt.Sprintf("%s/api/v1/journeys/%s/segments", c.baseURL, journeyID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			if isTimeout(err) {
				return nil, errors.New("Journey Matcher API request timeout")
			}
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("Journey Matcher API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}

		var parsed matcherJourneyWithSegments
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("failed to decode matcher response: %w", err)
		}
		return &parsed, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	parsed := result.(*matcherJourneyWithSegments)
	return toJourneyWithSegments(parsed), nil
}

func toJourneyWithSegments(m *matcherJourneyWithSegments) *ports.JourneyWithSegments {
	travelDate, _ := time.Parse(time.RFC3339, m.TravelDate)

	segments := make([]ports.JourneySegment, 0, len(m.Segments))
	for _, s := range m.Segments {
		departure, _ := time.Parse(time.RFC3339, s.ScheduledDeparture)
		arrival, _ := time.Parse(time.RFC3339, s.ScheduledArrival)
		segments = append(segments, ports.JourneySegment{
			ID:                 s.ID,
			JourneyID:          s.JourneyID,
			Sequence:           s.Sequence,
			RID:                s.RID,
			OriginCRS:          s.OriginCRS,
			DestinationCRS:     s.DestinationCRS,
			ScheduledDeparture: departure,
			ScheduledArrival:   arrival,
			TOCCode:            s.TOCCode,
		})
	}

	return &ports.JourneyWithSegments{
		ID:             m.ID,
		UserID:         m.UserID,
		OriginCRS:      m.OriginCRS,
		DestinationCRS: m.DestinationCRS,
		TravelDate:     travelDate,
		Status:         m.Status,
		Segments:       segments,
	}
}
