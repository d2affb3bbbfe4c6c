// Package health provides the HTTP health/metrics surface. Like the
// configuration loader, this is explicitly out-of-scope plumbing
// around the core; it exists only so the process is observable in a
// running environment.
package health

import (
	"encoding/json"
	"net/http"

	"github.com/railrepay/delaytracker/internal/application/services"
	"github.com/railrepay/delaytracker/internal/infrastructure/database"
)

// Handler returns a handler that pings the database and reports ok.
func Handler(db *database.Connection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.DB().PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// MetricsHandler reports the tick scheduler's accumulated counters.
func MetricsHandler(scheduler *services.TickScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(scheduler.Metrics())
	}
}
