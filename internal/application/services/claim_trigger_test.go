package services

import (
	"context"
	"errors"
	"testing"

	"github.com/railrepay/delaytracker/internal/domain/models"
	"github.com/railrepay/delaytracker/internal/domain/ports"
	"github.com/stretchr/testify/assert"
)

type stubOracleClient struct {
	triggerResp ports.ClaimTriggerResponse
	triggerErr  error
	eligResp    ports.EligibilityResponse
	eligErr     error
}

func (s *stubOracleClient) TriggerClaim(ctx context.Context, req ports.ClaimTriggerRequest) (ports.ClaimTriggerResponse, error) {
	return s.triggerResp, s.triggerErr
}

func (s *stubOracleClient) CheckEligibility(ctx context.Context, req ports.EligibilityRequest) (ports.EligibilityResponse, error) {
	return s.eligResp, s.eligErr
}

func ptrBool(b bool) *bool        { return &b }
func ptrString(s string) *string  { return &s }
func ptrFloat(f float64) *float64 { return &f }

func TestClaimTrigger_AlreadyTriggered(t *testing.T) {
	oracle := &stubOracleClient{}
	trigger := NewClaimTrigger(oracle, 15)

	alert := models.DelayAlert{
		ClaimTriggered:   true,
		ClaimReferenceID: ptrString("C-EXISTING"),
		DelayMinutes:     30,
	}

	outcome := trigger.Trigger(context.Background(), alert, models.MonitoredJourney{})

	assert.Equal(t, ClaimAlreadyTriggered, outcome.Kind)
	assert.Equal(t, "C-EXISTING", outcome.ClaimReferenceID)
}

func TestClaimTrigger_BelowThreshold(t *testing.T) {
	oracle := &stubOracleClient{}
	trigger := NewClaimTrigger(oracle, 15)

	alert := models.DelayAlert{DelayMinutes: 14}

	outcome := trigger.Trigger(context.Background(), alert, models.MonitoredJourney{})

	assert.Equal(t, ClaimBelowThreshold, outcome.Kind)
}

func TestClaimTrigger_NetworkError(t *testing.T) {
	oracle := &stubOracleClient{triggerErr: errors.New("Claims Oracle API request timeout")}
	trigger := NewClaimTrigger(oracle, 15)

	alert := models.DelayAlert{DelayMinutes: 20}

	outcome := trigger.Trigger(context.Background(), alert, models.MonitoredJourney{})

	assert.Equal(t, ClaimNetworkError, outcome.Kind)
	assert.True(t, outcome.Retryable)
	assert.NotEmpty(t, outcome.Reason)
}

func TestClassifyOracleResponse(t *testing.T) {
	tests := []struct {
		name string
		resp ports.ClaimTriggerResponse
		want ClaimOutcomeKind
	}{
		{
			name: "success with explicit eligible true",
			resp: ports.ClaimTriggerResponse{Success: true, Eligible: ptrBool(true), ClaimReferenceID: ptrString("C-1"), EstimatedCompensation: ptrFloat(25.5)},
			want: ClaimSuccess,
		},
		{
			name: "success with eligible absent",
			resp: ports.ClaimTriggerResponse{Success: true, ClaimReferenceID: ptrString("C-2")},
			want: ClaimSuccess,
		},
		{
			name: "duplicate claim",
			resp: ports.ClaimTriggerResponse{Success: false, ClaimReferenceID: ptrString("C-3")},
			want: ClaimDuplicate,
		},
		{
			name: "not eligible",
			resp: ports.ClaimTriggerResponse{Success: true, Eligible: ptrBool(false)},
			want: ClaimNotEligible,
		},
		{
			name: "not eligible overrides absent success",
			resp: ports.ClaimTriggerResponse{Eligible: ptrBool(false)},
			want: ClaimNotEligible,
		},
		{
			name: "service error",
			resp: ports.ClaimTriggerResponse{Success: false, Error: "oracle unavailable"},
			want: ClaimServiceError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			outcome := classifyOracleResponse(tc.resp)
			assert.Equal(t, tc.want, outcome.Kind)
		})
	}
}

func TestClassifyOracleResponse_SuccessCarriesReferenceAndCompensation(t *testing.T) {
	resp := ports.ClaimTriggerResponse{
		Success:               true,
		Eligible:              ptrBool(true),
		ClaimReferenceID:      ptrString("C-001"),
		EstimatedCompensation: ptrFloat(25.5),
	}

	outcome := classifyOracleResponse(resp)

	assert.Equal(t, ClaimSuccess, outcome.Kind)
	assert.Equal(t, "C-001", outcome.ClaimReferenceID)
	assert.Equal(t, 25.5, *outcome.EstimatedCompensation)
}

func TestClaimTrigger_TriggerBatch_OneFailureDoesNotShortCircuit(t *testing.T) {
	oracle := &stubOracleClient{triggerErr: errors.New("network down")}
	trigger := NewClaimTrigger(oracle, 15)

	items := []AlertForClaim{
		{Alert: models.DelayAlert{DelayMinutes: 20}},
		{Alert: models.DelayAlert{DelayMinutes: 5}}, // below threshold, pre-check short-circuits before network
		{Alert: models.DelayAlert{DelayMinutes: 30}},
	}

	outcomes := trigger.TriggerBatch(context.Background(), items)

	assert.Len(t, outcomes, 3)
	assert.Equal(t, ClaimNetworkError, outcomes[0].Kind)
	assert.Equal(t, ClaimBelowThreshold, outcomes[1].Kind)
	assert.Equal(t, ClaimNetworkError, outcomes[2].Kind)
}
