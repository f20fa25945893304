package monitoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// HealthChecker reports liveness of the service's backing stores.
type HealthChecker struct {
	db    *sql.DB
	redis *redis.Client
}

type CheckResult struct {
	Status    string `json:"status"`
	Component string `json:"component"`
	Error     string `json:"error,omitempty"`
}

type SystemHealth struct {
	Status     string                  `json:"status"`
	Components map[string]*CheckResult `json:"components"`
	Timestamp  time.Time               `json:"timestamp"`
}

func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{
		db:    db,
		redis: redisClient,
	}
}

func (h *HealthChecker) Check(ctx context.Context) *SystemHealth {
	health := &SystemHealth{
		Status:     StatusUp,
		Components: make(map[string]*CheckResult),
		Timestamp:  time.Now().UTC(),
	}

	health.Components["database"] = h.databaseCheck(ctx)
	health.Components["redis"] = h.redisCheck(ctx)

	for _, result := range health.Components {
		if result.Status == StatusDown {
			health.Status = StatusDown
		}
	}

	return health
}

func (h *HealthChecker) databaseCheck(ctx context.Context) *CheckResult {
	result := &CheckResult{Status: StatusUp, Component: "database"}

	if err := h.db.PingContext(ctx); err != nil {
		result.Status = StatusDown
		result.Error = fmt.Sprintf("Database connection failed: %v", err)
	}

	return result
}

func (h *HealthChecker) redisCheck(ctx context.Context) *CheckResult {
	result := &CheckResult{Status: StatusUp, Component: "redis"}

	if h.redis == nil {
		return result
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		result.Status = StatusDown
		result.Error = fmt.Sprintf("Redis connection failed: %v", err)
	}

	return result
}

// HTTPHandler returns a health check HTTP handler
func (h *HealthChecker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := h.Check(ctx)

		w.Header().Set("Content-Type", "application/json")
		if health.Status != StatusUp {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(health)
	}
}
