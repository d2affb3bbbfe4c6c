package events

import "time"

// Payload schemas for each EventType. Field names use the camelCase
// keys a JSON consumer expects, matching what a dynamically-typed
// implementation would have produced for the same event.

type JourneyMonitoringStartedPayload struct {
	JourneyID          string    `json:"journeyId"`
	UserID             string    `json:"userId"`
	MonitoredJourneyID string    `json:"monitoredJourneyId"`
	Origin             string    `json:"origin"`
	Destination        string    `json:"destination"`
	ScheduledDeparture time.Time `json:"scheduledDeparture"`
	CorrelationID      string    `json:"correlationId"`
}

type DelayDetectedPayload struct {
	JourneyID     string         `json:"journeyId"`
	AlertID       string         `json:"alertId"`
	UserID        string         `json:"userId"`
	DelayMinutes  int            `json:"delayMinutes"`
	DelayReasons  map[string]any `json:"delayReasons,omitempty"`
	CorrelationID string         `json:"correlationId"`
}

type ClaimTriggeredPayload struct {
	AlertID          string `json:"alertId"`
	JourneyID        string `json:"journeyId"`
	UserID           string `json:"userId"`
	ClaimReferenceID string `json:"claimReferenceId"`
	DelayMinutes     int    `json:"delayMinutes"`
	CorrelationID    string `json:"correlationId"`
}

type JourneyCompletedPayload struct {
	JourneyID     string    `json:"journeyId"`
	UserID        string    `json:"userId"`
	CompletedAt   time.Time `json:"completedAt"`
	HadDelay      bool      `json:"hadDelay"`
	DelayMinutes  *int      `json:"delayMinutes,omitempty"`
	CorrelationID string    `json:"correlationId"`
}

type JourneyCancelledPayload struct {
	JourneyID     string `json:"journeyId"`
	UserID        string `json:"userId"`
	CorrelationID string `json:"correlationId"`
}
