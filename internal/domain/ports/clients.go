package ports

import (
	"context"
	"time"
)

// UpstreamDelaysClient queries the upstream real-time data feed for
// delay information by running id.
type UpstreamDelaysClient interface {
	FetchDelays(ctx context.Context, rids []string) ([]DelayRecord, error)
}

// DelayRecord is one service's delay data as returned by the upstream
// feed.
type DelayRecord struct {
	RID               string
	TotalDelayMinutes int
	IsCancelled       bool
	DelayReasons      map[string]any
}

// JourneyMatcherClient resolves a registered journey's upstream running
// id(s) by calling the journey-matcher service.
type JourneyMatcherClient interface {
	FetchSegments(ctx context.Context, journeyID string) (*JourneyWithSegments, error)
}

// JourneyWithSegments mirrors the matcher's response shape.
type JourneyWithSegments struct {
	ID             string
	UserID         string
	OriginCRS      string
	DestinationCRS string
	TravelDate     time.Time
	Status         string
	Segments       []JourneySegment
}

// JourneySegment is one leg of a (possibly multi-leg) journey.
type JourneySegment struct {
	ID                 string
	JourneyID          string
	Sequence           int
	RID                *string
	OriginCRS          string
	DestinationCRS     string
	ScheduledDeparture time.Time
	ScheduledArrival   time.Time
	TOCCode            string
}

// FirstRID returns the first non-null segment RID, or "" if none is
// resolved yet. A deliberate simplification: multi-leg journeys are
// tracked under their first segment's running id.
func (j *JourneyWithSegments) FirstRID() string {
	if j == nil {
		return ""
	}
	for _, seg := range j.Segments {
		if seg.RID != nil && *seg.RID != "" {
			return *seg.RID
		}
	}
	return ""
}

// AllSegmentsHaveRID reports whether every segment has a resolved RID.
func (j *JourneyWithSegments) AllSegmentsHaveRID() bool {
	if j == nil || len(j.Segments) == 0 {
		return false
	}
	for _, seg := range j.Segments {
		if seg.RID == nil || *seg.RID == "" {
			return false
		}
	}
	return true
}

// ClaimsOracleClient is the downstream compensation-claims oracle.
type ClaimsOracleClient interface {
	TriggerClaim(ctx context.Context, req ClaimTriggerRequest) (ClaimTriggerResponse, error)
	CheckEligibility(ctx context.Context, req EligibilityRequest) (EligibilityResponse, error)
}

type ClaimTriggerRequest struct {
	DelayAlertID string
	JourneyID    string
	UserID       string
	DelayMinutes int
	DelayReasons map[string]any
}

// ClaimTriggerResponse mirrors the oracle's JSON response shape.
// Non-2xx responses are returned as a value with Success=false, not as
// an error — only network/timeout failures raise.
type ClaimTriggerResponse struct {
	Success               bool
	ClaimReferenceID      *string
	Message               string
	Eligible              *bool
	EstimatedCompensation *float64
	Error                 string
}

type EligibilityRequest struct {
	UserID       string
	JourneyID    string
	DelayMinutes int
}

type EligibilityResponse struct {
	Eligible bool
	Reason   string
}
