// Package services provides the business logic layer for the delay
// tracking system.
//
// This package contains the service implementations that handle:
//   - Journey monitoring lifecycle and pacing (JourneyMonitor)
//   - Delay threshold evaluation (DelayDetector)
//   - Compensation claim submission (ClaimTrigger)
//   - Outbox event construction and publishing (OutboxPublisher)
//   - Per-journey detection cycles (DetectionOrchestrator)
//   - Tick-based scheduling with non-reentrancy (TickScheduler)
package services
