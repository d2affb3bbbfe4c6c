package models

import "time"

// DelayAlert is one row per detected delay event against a journey.
type DelayAlert struct {
	ID                   string
	MonitoredJourneyID   string
	DelayMinutes         int
	DelayDetectedAt      time.Time
	DelayReasons         []byte // opaque structured blob, nullable
	IsCancellation       bool
	ThresholdExceeded    bool
	ClaimTriggered       bool
	ClaimTriggeredAt     *time.Time
	ClaimReferenceID     *string
	ClaimTriggerResponse []byte
	NotificationSent     bool
	NotificationSentAt   *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
