package services

import (
	"fmt"

	"github.com/railrepay/delaytracker/internal/domain/models"
	"github.com/railrepay/delaytracker/internal/domain/ports"
)

// DetectionResult is the pure classification of a journey against an
// upstream delay record.
type DetectionResult struct {
	IsDelayed         bool
	IsCancelled       bool
	ExceedsThreshold  bool
	ClaimEligible     bool
	DataNotFound      bool
	TotalDelayMinutes int
	DelayReasons      map[string]any
}

// DelayDetector is a pure, side-effect-free classifier: given a
// journey's rid and the batch of delay records fetched for a tick, it
// decides on-time/delayed/cancelled/data-missing.
type DelayDetector struct {
	thresholdMinutes int
}

// NewDelayDetector constructs a detector for the given minute
// threshold. The threshold must be strictly positive.
func NewDelayDetector(thresholdMinutes int) (*DelayDetector, error) {
	if thresholdMinutes <= 0 {
		return nil, fmt.Errorf("delay threshold must be positive, got %d", thresholdMinutes)
	}
	return &DelayDetector{thresholdMinutes: thresholdMinutes}, nil
}

// Threshold returns the configured minute threshold.
func (d *DelayDetector) Threshold() int { return d.thresholdMinutes }

// Classify matches journey.RID against records by exact string
// equality and classifies the result. A journey with no matching
// record gets DataNotFound=true and every other field false.
func (d *DelayDetector) Classify(journey models.MonitoredJourney, records []ports.DelayRecord) DetectionResult {
	if !journey.HasRID() {
		return DetectionResult{DataNotFound: true}
	}

	for _, rec := range records {
		if rec.RID != *journey.RID {
			continue
		}
		return d.classifyRecord(rec)
	}

	return DetectionResult{DataNotFound: true}
}

func (d *DelayDetector) classifyRecord(rec ports.DelayRecord) DetectionResult {
	isDelayed := rec.TotalDelayMinutes > 0 || rec.IsCancelled
	exceedsThreshold := rec.TotalDelayMinutes >= d.thresholdMinutes

	return DetectionResult{
		IsDelayed:         isDelayed,
		IsCancelled:       rec.IsCancelled,
		ExceedsThreshold:  exceedsThreshold,
		ClaimEligible:     exceedsThreshold || rec.IsCancelled,
		TotalDelayMinutes: rec.TotalDelayMinutes,
		DelayReasons:      rec.DelayReasons,
	}
}
