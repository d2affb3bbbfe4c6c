package services

import (
	"testing"

	"github.com/railrepay/delaytracker/internal/domain/models"
	"github.com/railrepay/delaytracker/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDelayDetector_RejectsNonPositiveThreshold(t *testing.T) {
	_, err := NewDelayDetector(0)
	assert.Error(t, err)

	_, err = NewDelayDetector(-5)
	assert.Error(t, err)

	d, err := NewDelayDetector(15)
	require.NoError(t, err)
	assert.Equal(t, 15, d.Threshold())
}

func rid(v string) *string { return &v }

func TestDelayDetector_Classify_NoRID(t *testing.T) {
	d, _ := NewDelayDetector(15)

	result := d.Classify(models.MonitoredJourney{RID: nil}, []ports.DelayRecord{
		{RID: "RID-1", TotalDelayMinutes: 30},
	})

	assert.True(t, result.DataNotFound)
	assert.False(t, result.IsDelayed)
	assert.False(t, result.ExceedsThreshold)
	assert.False(t, result.ClaimEligible)
}

func TestDelayDetector_Classify_NoMatchingRecord(t *testing.T) {
	d, _ := NewDelayDetector(15)

	result := d.Classify(models.MonitoredJourney{RID: rid("RID-1")}, []ports.DelayRecord{
		{RID: "RID-2", TotalDelayMinutes: 30},
	})

	assert.True(t, result.DataNotFound)
}

func TestDelayDetector_Classify_ThresholdBoundary(t *testing.T) {
	d, _ := NewDelayDetector(15)

	tests := []struct {
		name             string
		delayMinutes     int
		exceedsThreshold bool
		claimEligible    bool
	}{
		{"one minute below threshold", 14, false, false},
		{"exactly at threshold", 15, true, true},
		{"one minute above threshold", 16, true, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			journey := models.MonitoredJourney{RID: rid("RID-1")}
			records := []ports.DelayRecord{{RID: "RID-1", TotalDelayMinutes: tc.delayMinutes}}

			result := d.Classify(journey, records)

			assert.False(t, result.DataNotFound)
			assert.True(t, result.IsDelayed)
			assert.Equal(t, tc.exceedsThreshold, result.ExceedsThreshold)
			assert.Equal(t, tc.claimEligible, result.ClaimEligible)
			assert.Equal(t, tc.delayMinutes, result.TotalDelayMinutes)
		})
	}
}

func TestDelayDetector_Classify_OnTime(t *testing.T) {
	d, _ := NewDelayDetector(15)

	journey := models.MonitoredJourney{RID: rid("RID-1")}
	records := []ports.DelayRecord{{RID: "RID-1", TotalDelayMinutes: 0}}

	result := d.Classify(journey, records)

	assert.False(t, result.IsDelayed)
	assert.False(t, result.IsCancelled)
	assert.False(t, result.ExceedsThreshold)
	assert.False(t, result.ClaimEligible)
}

func TestDelayDetector_Classify_Cancellation(t *testing.T) {
	d, _ := NewDelayDetector(15)

	journey := models.MonitoredJourney{RID: rid("RID-1")}
	records := []ports.DelayRecord{{RID: "RID-1", TotalDelayMinutes: 0, IsCancelled: true}}

	result := d.Classify(journey, records)

	assert.True(t, result.IsDelayed)
	assert.True(t, result.IsCancelled)
	assert.False(t, result.ExceedsThreshold, "cancellation below threshold minutes still isn't a threshold breach")
	assert.True(t, result.ClaimEligible, "cancellation is claim-eligible regardless of minutes")
}

func TestDelayDetector_Classify_ExactRIDMatch(t *testing.T) {
	d, _ := NewDelayDetector(15)

	journey := models.MonitoredJourney{RID: rid("RID-1")}
	records := []ports.DelayRecord{
		{RID: "rid-1", TotalDelayMinutes: 30}, // different case, must not match
		{RID: "RID-1 ", TotalDelayMinutes: 30}, // trailing space, must not match
	}

	result := d.Classify(journey, records)

	assert.True(t, result.DataNotFound)
}

func TestDelayDetector_Classify_CarriesDelayReasons(t *testing.T) {
	d, _ := NewDelayDetector(15)

	reasons := map[string]any{"code": "signal_failure"}
	journey := models.MonitoredJourney{RID: rid("RID-1")}
	records := []ports.DelayRecord{{RID: "RID-1", TotalDelayMinutes: 20, DelayReasons: reasons}}

	result := d.Classify(journey, records)

	assert.Equal(t, reasons, result.DelayReasons)
}
