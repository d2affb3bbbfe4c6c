// Package constants names the fixed tables and columns of the delay
// tracker schema. Unlike a dynamic-schema platform, this service has a
// small, known set of tables, so these are plain string constants rather
// than a generated registry.
package constants

const (
	SchemaName = "delay_tracker"

	TableMonitoredJourneys = "delay_tracker.monitored_journeys"
	TableDelayAlerts       = "delay_tracker.delay_alerts"
	TableOutbox            = "delay_tracker.outbox"
)

// Monitoring statuses for MonitoredJourney.monitoring_status.
const (
	StatusPendingRID = "pending_rid"
	StatusActive     = "active"
	StatusDelayed    = "delayed"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Outbox row statuses.
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusProcessed  = "processed"
	OutboxStatusPublished  = "published"
	OutboxStatusFailed     = "failed"
)

// Defaults for tunables the config loader falls back to when unset.
const (
	DefaultTickInterval        = "5m"
	DefaultDelayThresholdMins  = 15
	DefaultHTTPTimeoutSeconds  = 30
	DefaultOutboxMaxRetries    = 3
	DefaultOutboxRetentionDays = 30
	DefaultCronExpression      = "*/5 * * * *"
)
