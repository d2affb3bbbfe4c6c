package models

import "time"

// MonitoringStatus is the lifecycle state of a MonitoredJourney.
type MonitoringStatus string

const (
	StatusPendingRID MonitoringStatus = "pending_rid"
	StatusActive     MonitoringStatus = "active"
	StatusDelayed    MonitoringStatus = "delayed"
	StatusCompleted  MonitoringStatus = "completed"
	StatusCancelled  MonitoringStatus = "cancelled"
)

// IsTerminal reports whether a journey in this status can ever be
// touched again by the scheduler.
func (s MonitoringStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// MonitoredJourney is one row per registered journey.
type MonitoredJourney struct {
	ID                 string
	JourneyID          string
	UserID             string
	ServiceDate        time.Time
	OriginCode         string
	DestinationCode    string
	ScheduledDeparture time.Time
	ScheduledArrival   time.Time
	RID                *string
	MonitoringStatus   MonitoringStatus
	LastCheckedAt      *time.Time
	NextCheckAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasRID reports whether the upstream running id has been resolved.
func (j *MonitoredJourney) HasRID() bool {
	return j.RID != nil && *j.RID != ""
}

// JourneyUpdate carries the whitelisted mutable fields for
// JourneyStore.Update. A nil field is left unchanged;
// ClearNextCheckAt forces next_check_at to NULL even though NextCheckAt
// itself is nil, so terminal transitions can clear the column.
type JourneyUpdate struct {
	RID              *string
	MonitoringStatus *MonitoringStatus
	LastCheckedAt    *time.Time
	NextCheckAt      *time.Time
	ClearNextCheckAt bool
}
