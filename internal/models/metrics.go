package models

import "time"

// SystemMetrics is a point-in-time view of the gateway's counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	BackendRequests          uint64    `json:"backend_requests"`
	FallbackResponses        uint64    `json:"fallback_responses"`
	ActiveSessions           int64     `json:"active_sessions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
