package services

import (
	"context"

	"github.com/railrepay/delaytracker/internal/domain/models"
	"github.com/railrepay/delaytracker/internal/domain/ports"
)

// ClaimOutcomeKind classifies the result of attempting to trigger a
// compensation claim.
type ClaimOutcomeKind string

const (
	ClaimAlreadyTriggered ClaimOutcomeKind = "ALREADY_TRIGGERED"
	ClaimBelowThreshold   ClaimOutcomeKind = "BELOW_THRESHOLD"
	ClaimSuccess          ClaimOutcomeKind = "SUCCESS"
	ClaimDuplicate        ClaimOutcomeKind = "DUPLICATE_CLAIM"
	ClaimNotEligible      ClaimOutcomeKind = "NOT_ELIGIBLE"
	ClaimServiceError     ClaimOutcomeKind = "SERVICE_ERROR"
	ClaimNetworkError     ClaimOutcomeKind = "NETWORK_ERROR"
)

// ClaimOutcome is the result of one TriggerClaim attempt.
type ClaimOutcome struct {
	Kind                  ClaimOutcomeKind
	ClaimReferenceID      string
	EstimatedCompensation *float64
	Reason                string
	Retryable             bool
}

// ClaimTrigger applies local pre-checks before ever calling the
// downstream oracle, then classifies the oracle's response into one of
// the outcome kinds above.
type ClaimTrigger struct {
	oracle           ports.ClaimsOracleClient
	thresholdMinutes int
}

// NewClaimTrigger creates a new ClaimTrigger for the given oracle
// client and minute threshold.
func NewClaimTrigger(oracle ports.ClaimsOracleClient, thresholdMinutes int) *ClaimTrigger {
	return &ClaimTrigger{oracle: oracle, thresholdMinutes: thresholdMinutes}
}

// Trigger runs the local pre-checks and, if neither short-circuits,
// calls the oracle and classifies its response.
func (t *ClaimTrigger) Trigger(ctx context.Context, alert models.DelayAlert, journey models.MonitoredJourney) ClaimOutcome {
	if alert.ClaimTriggered {
		ref := ""
		if alert.ClaimReferenceID != nil {
			ref = *alert.ClaimReferenceID
		}
		return ClaimOutcome{Kind: ClaimAlreadyTriggered, ClaimReferenceID: ref}
	}

	if alert.DelayMinutes < t.thresholdMinutes {
		return ClaimOutcome{Kind: ClaimBelowThreshold}
	}

	resp, err := t.oracle.TriggerClaim(ctx, ports.ClaimTriggerRequest{
		DelayAlertID: alert.ID,
		JourneyID:    journey.JourneyID,
		UserID:       journey.UserID,
		DelayMinutes: alert.DelayMinutes,
	})
	if err != nil {
		return ClaimOutcome{Kind: ClaimNetworkError, Reason: err.Error(), Retryable: true}
	}

	return classifyOracleResponse(resp)
}

func classifyOracleResponse(resp ports.ClaimTriggerResponse) ClaimOutcome {
	switch {
	case resp.Success && (resp.Eligible == nil || *resp.Eligible) && resp.ClaimReferenceID != nil:
		return ClaimOutcome{
			Kind:                  ClaimSuccess,
			ClaimReferenceID:      *resp.ClaimReferenceID,
			EstimatedCompensation: resp.EstimatedCompensation,
		}
	case !resp.Success && resp.ClaimReferenceID != nil:
		return ClaimOutcome{Kind: ClaimDuplicate, ClaimReferenceID: *resp.ClaimReferenceID, Reason: resp.Message}
	case resp.Eligible != nil && !*resp.Eligible:
		return ClaimOutcome{Kind: ClaimNotEligible, Reason: resp.Message}
	default:
		return ClaimOutcome{Kind: ClaimServiceError, Reason: firstNonEmpty(resp.Error, resp.Message), Retryable: false}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// AlertForClaim pairs an alert with its owning journey, the unit the
// batch variant operates over.
type AlertForClaim struct {
	Alert   models.DelayAlert
	Journey models.MonitoredJourney
}

// TriggerBatch runs Trigger over each item sequentially. One item's
// outcome never short-circuits the rest of the batch.
func (t *ClaimTrigger) TriggerBatch(ctx context.Context, items []AlertForClaim) []ClaimOutcome {
	outcomes := make([]ClaimOutcome, len(items))
	for i, item := range items {
		outcomes[i] = t.Trigger(ctx, item.Alert, item.Journey)
	}
	return outcomes
}
