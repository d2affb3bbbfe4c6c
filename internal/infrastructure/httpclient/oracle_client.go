package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/railrepay/delaytracker/internal/domain/ports"
)

// OracleClient calls the claims oracle to trigger compensation claims
// and check eligibility rules.
type OracleClient struct {
	baseClient
}

// NewOracleClient creates a new OracleClient.
func NewOracleClient(baseURL string, timeout time.Duration) *OracleClient {
	return &OracleClient{baseClient: newBaseClient("claims-oracle", baseURL, timeout)}
}

type triggerClaimRequest struct {
	DelayAlertID string         `json:"delay_alert_id"`
	JourneyID    string         `json:"journey_id"`
	UserID       string         `json:"user_id"`
	DelayMinutes int            `json:"delay_minutes"`
	DelayReasons map[string]any `json:"delay_reasons"`
}

type triggerClaimResponse struct {
	Success               bool     `json:"success"`
	ClaimReferenceID      *string  `json:"claim_reference_id"`
	Message               string   `json:"message"`
	Eligible              *bool    `json:"eligible"`
	EstimatedCompensation *float64 `json:"estimated_compensation"`
	Error                 string   `json:"error"`
}

// TriggerClaim asks the oracle to open a claim. A non-2xx response is
// not decoded and not raised as an error: it is returned as
// {Success:false, Error:"API error: <status> <text>", Message:<raw body>}.
// Only a transport failure (timeout, connection refused) or an
// undecodable 2xx body produces a Go error.
func (c *OracleClient) TriggerClaim(ctx context.Context, req ports.ClaimTriggerRequest) (ports.ClaimTriggerResponse, error) {
	body, err := json.Marshal(triggerClaimRequest{
		DelayAlertID: req.DelayAlertID,
		JourneyID:    req.JourneyID,
		UserID:       req.UserID,
		DelayMinutes: req.DelayMinutes,
		DelayReasons: req.DelayReasons,
	})
	if err != nil {
		return ports.ClaimTriggerResponse{}, fmt.Errorf("failed to marshal claim trigger request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/claims/trigger", bytes.NewReader(body))
	if err != nil {
		return ports.ClaimTriggerResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(httpReq)
		if err != nil {
			if isTimeout(err) {
				return nil, errors.New("Claims Oracle API request timeout")
			}
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(resp.Body)
			return ports.ClaimTriggerResponse{
				Success: false,
				Error:   fmt.Sprintf("API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
				Message: string(respBody),
			}, nil
		}

		var parsed triggerClaimResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("failed to decode claim trigger response: %w", err)
		}

		return ports.ClaimTriggerResponse{
			Success:               parsed.Success,
			ClaimReferenceID:      parsed.ClaimReferenceID,
			Message:               parsed.Message,
			Eligible:              parsed.Eligible,
			EstimatedCompensation: parsed.EstimatedCompensation,
			Error:                 parsed.Error,
		}, nil
	})
	if err != nil {
		return ports.ClaimTriggerResponse{}, err
	}

	return result.(ports.ClaimTriggerResponse), nil
}

type eligibilityCheckRequest struct {
	UserID       string `json:"user_id"`
	JourneyID    string `json:"journey_id"`
	DelayMinutes int    `json:"delay_minutes"`
}

type eligibilityCheckResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
}

// CheckEligibility asks the oracle whether a delay of the given
// severity qualifies for compensation under the operator's scheme. A
// non-2xx response is degraded into {eligible:false, reason:"API error:
// <status>"} rather than raised; only a transport failure raises a Go
// error.
func (c *OracleClient) CheckEligibility(ctx context.Context, req ports.EligibilityRequest) (ports.EligibilityResponse, error) {
	body, err := json.Marshal(eligibilityCheckRequest{
		UserID:       req.UserID,
		JourneyID:    req.JourneyID,
		DelayMinutes: req.DelayMinutes,
	})
	if err != nil {
		return ports.EligibilityResponse{}, fmt.Errorf("failed to marshal eligibility request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/eligibility/check", bytes.NewReader(body))
	if err != nil {
		return ports.EligibilityResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(httpReq)
		if err != nil {
			if isTimeout(err) {
				return nil, errors.New("Eligibility API request timeout")
			}
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return ports.EligibilityResponse{
				Eligible: false,
				Reason:   fmt.Sprintf("API error: %d", resp.StatusCode),
			}, nil
		}

		var parsed eligibilityCheckResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("failed to decode eligibility response: %w", err)
		}

		return ports.EligibilityResponse{
			Eligible: parsed.Eligible,
			Reason:   parsed.Reason,
		}, nil
	})
	if err != nil {
		return ports.EligibilityResponse{}, err
	}

	return result.(ports.EligibilityResponse), nil
}
