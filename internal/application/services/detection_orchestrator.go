package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/railrepay/delaytracker/internal/domain/models"
	"github.com/railrepay/delaytracker/internal/domain/ports"
	"github.com/railrepay/delaytracker/internal/infrastructure/database"
	"github.com/railrepay/delaytracker/internal/infrastructure/persistence"
	"github.com/railrepay/delaytracker/pkg/idgen"
)

// defaultDueSetLimit bounds how many journeys a single tick considers.
const defaultDueSetLimit = 100

// CycleResult summarizes one detection-cycle pass.
type CycleResult struct {
	JourneysChecked int
	DelaysDetected  int
	ClaimsTriggered int
	DurationMs      int64
}

// DetectionOrchestrator runs one pass per tick: fetch the due set,
// resolve missing upstream identifiers, batch-query delays, classify,
// and commit each journey's outcome independently.
type DetectionOrchestrator struct {
	db        *database.Connection
	alerts    *persistence.DelayAlertRepository
	monitor   *JourneyMonitor
	detector  *DelayDetector
	claims    *ClaimTrigger
	publisher *OutboxPublisher

	matcher  ports.JourneyMatcherClient
	upstream ports.UpstreamDelaysClient

	dueSetLimit int
}

// NewDetectionOrchestrator creates a new DetectionOrchestrator.
func NewDetectionOrchestrator(
	db *database.Connection,
	alerts *persistence.DelayAlertRepository,
	monitor *JourneyMonitor,
	detector *DelayDetector,
	claims *ClaimTrigger,
	publisher *OutboxPublisher,
	matcher ports.JourneyMatcherClient,
	upstream ports.UpstreamDelaysClient,
) *DetectionOrchestrator {
	return &DetectionOrchestrator{
		db:          db,
		alerts:      alerts,
		monitor:     monitor,
		detector:    detector,
		claims:      claims,
		publisher:   publisher,
		matcher:     matcher,
		upstream:    upstream,
		dueSetLimit: defaultDueSetLimit,
	}
}

// RunCycle executes one full detection pass.
func (o *DetectionOrchestrator) RunCycle(ctx context.Context) (CycleResult, error) {
	start := time.Now()
	now := start.UTC()
	correlationID := idgen.New()

	due, err := o.monitor.DueForCheck(ctx, now, o.dueSetLimit)
	if err != nil {
		return CycleResult{}, err
	}
	if len(due) == 0 {
		return CycleResult{DurationMs: time.Since(start).Milliseconds()}, nil
	}

	var pendingRID, active []models.MonitoredJourney
	completedIDs := make(map[string]bool)

	for _, j := range due {
		if now.After(j.ScheduledArrival) {
			o.completeJourney(ctx, j, correlationID)
			completedIDs[j.ID] = true
			continue
		}
		switch j.MonitoringStatus {
		case models.StatusPendingRID:
			pendingRID = append(pendingRID, j)
		case models.StatusActive:
			active = append(active, j)
		}
	}

	touchedIDs := o.resolveRids(ctx, pendingRID, now, &active)

	delaysDetected := 0
	claimsTriggered := 0

	if len(active) > 0 {
		rids := make([]string, 0, len(active))
		for _, j := range active {
			if j.HasRID() {
				rids = append(rids, *j.RID)
			}
		}

		records, err := o.upstream.FetchDelays(ctx, rids)
		if err != nil {
			log.Printf("detection cycle: upstream delays fetch failed: %v", err)
			o.advancePacing(ctx, active, now, completedIDs, touchedIDs)
			return CycleResult{
				JourneysChecked: len(due),
				DurationMs:      time.Since(start).Milliseconds(),
			}, nil
		}

		for _, j := range active {
			result := o.detector.Classify(j, records)
			if result.DataNotFound {
				continue
			}
			if result.ExceedsThreshold || result.IsCancelled {
				delaysDetected++
				triggered, committed := o.commitDetection(ctx, j, result, correlationID)
				if triggered {
					claimsTriggered++
				}
				if committed {
					touchedIDs[j.ID] = true
				}
			}
		}
	}

	o.advancePacing(ctx, active, now, completedIDs, touchedIDs)

	return CycleResult{
		JourneysChecked: len(due),
		DelaysDetected:  delaysDetected,
		ClaimsTriggered: claimsTriggered,
		DurationMs:      time.Since(start).Milliseconds(),
	}, nil
}

// completeJourney transitions a journey past its scheduled arrival to
// completed, outside any upstream call for this tick.
func (o *DetectionOrchestrator) completeJourney(ctx context.Context, j models.MonitoredJourney, correlationID string) {
	err := withTx(ctx, o.db, func(tx persistence.Executor, txCtx context.Context) error {
		if err := o.monitor.Transition(txCtx, tx, j, models.StatusCompleted, time.Now().UTC()); err != nil {
			return err
		}

		hadDelay := j.MonitoringStatus == models.StatusDelayed
		var delayMinutes *int
		if hadDelay {
			latest, err := o.alerts.LatestForJourney(txCtx, tx, j.ID)
			if err != nil {
				return err
			}
			if latest != nil {
				delayMinutes = &latest.DelayMinutes
			}
		}

		_, err := o.publisher.JourneyCompleted(txCtx, tx, j, hadDelay, delayMinutes, correlationID)
		return err
	})
	if err != nil {
		log.Printf("detection cycle: failed to complete journey %s: %v", j.JourneyID, err)
	}
}

// resolveRids calls the matcher for each pending-rid journey serially.
// Journeys whose rid resolves are appended to active and returned as
// already-touched so advancePacing skips them. Unresolved journeys are
// pushed forward without promotion.
func (o *DetectionOrchestrator) resolveRids(ctx context.Context, pending []models.MonitoredJourney, now time.Time, active *[]models.MonitoredJourney) map[string]bool {
	touched := make(map[string]bool)

	for _, j := range pending {
		journeyWithSegments, err := o.matcher.FetchSegments(ctx, j.JourneyID)
		if err != nil {
			log.Printf("detection cycle: matcher lookup failed for journey %s: %v", j.JourneyID, err)
			o.touchPending(ctx, j, now)
			touched[j.ID] = true
			continue
		}

		rid := journeyWithSegments.FirstRID()
		if rid == "" {
			o.touchPending(ctx, j, now)
			touched[j.ID] = true
			continue
		}

		if err := o.monitor.ResolveRid(ctx, nil, j.ID, rid, now); err != nil {
			log.Printf("detection cycle: failed to resolve rid for journey %s: %v", j.JourneyID, err)
			o.touchPending(ctx, j, now)
			touched[j.ID] = true
			continue
		}

		j.RID = &rid
		j.MonitoringStatus = models.StatusActive
		*active = append(*active, j)
		touched[j.ID] = true
	}

	return touched
}

func (o *DetectionOrchestrator) touchPending(ctx context.Context, j models.MonitoredJourney, now time.Time) {
	if err := o.monitor.TouchPending(ctx, nil, j.ID, now); err != nil {
		log.Printf("detection cycle: failed to advance pacing for journey %s: %v", j.JourneyID, err)
	}
}

// commitDetection runs the per-journey transaction: alert insert,
// status transition, delay.detected outbox write, and optionally the
// claim trigger and its outbox write. Reports whether a claim was
// successfully triggered and whether the transaction committed — a
// committed journey moved to delayed or cancelled and must be excluded
// from advancePacing, since Transition already cleared its
// next_check_at (cancelled) or set it itself (delayed).
func (o *DetectionOrchestrator) commitDetection(ctx context.Context, j models.MonitoredJourney, result DetectionResult, correlationID string) (triggered bool, committed bool) {
	err := withTx(ctx, o.db, func(tx persistence.Executor, txCtx context.Context) error {
		delayMinutes := result.TotalDelayMinutes
		if delayMinutes < 1 {
			delayMinutes = 1
		}

		var delayReasons []byte
		if len(result.DelayReasons) > 0 {
			marshaled, marshalErr := json.Marshal(result.DelayReasons)
			if marshalErr != nil {
				return marshalErr
			}
			delayReasons = marshaled
		}

		alert := models.DelayAlert{
			MonitoredJourneyID: j.ID,
			DelayMinutes:       delayMinutes,
			DelayDetectedAt:    time.Now().UTC(),
			DelayReasons:       delayReasons,
			IsCancellation:     result.IsCancelled,
			ThresholdExceeded:  result.ExceedsThreshold,
		}

		alertID, err := o.alerts.Create(txCtx, tx, alert)
		if err != nil {
			return err
		}
		alert.ID = alertID

		newStatus := models.StatusDelayed
		if result.IsCancelled {
			newStatus = models.StatusCancelled
		}
		if err := o.monitor.Transition(txCtx, tx, j, newStatus, time.Now().UTC()); err != nil {
			return err
		}

		if _, err := o.publisher.DelayDetected(txCtx, tx, j, alert, result.DelayReasons, correlationID); err != nil {
			return err
		}

		if result.ClaimEligible && !result.IsCancelled {
			outcome := o.claims.Trigger(txCtx, alert, j)
			if outcome.Kind == ClaimSuccess {
				ref := outcome.ClaimReferenceID
				now := time.Now().UTC()
				if err := o.alerts.MarkClaimTriggered(txCtx, tx, alertID, ref, now); err != nil {
					return err
				}
				if _, err := o.publisher.ClaimTriggered(txCtx, tx, j, alert, ref, correlationID); err != nil {
					return err
				}
				triggered = true
			} else if outcome.Reason != "" {
				if err := o.alerts.StoreClaimResponse(txCtx, tx, alertID, outcome.Reason); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		log.Printf("detection cycle: commit failed for journey %s: %v", j.JourneyID, err)
		return false, false
	}

	return triggered, true
}

// advancePacing bulk-pushes next_check_at for every active journey not
// already touched this cycle (rid resolution or a terminal transition).
func (o *DetectionOrchestrator) advancePacing(ctx context.Context, active []models.MonitoredJourney, now time.Time, completed, touched map[string]bool) {
	var ids []string
	for _, j := range active {
		if completed[j.ID] || touched[j.ID] {
			continue
		}
		ids = append(ids, j.ID)
	}
	if len(ids) == 0 {
		return
	}
	if err := o.monitor.AdvancePacing(ctx, nil, ids, now); err != nil {
		log.Printf("detection cycle: failed to advance pacing for %d journeys: %v", len(ids), err)
	}
}
