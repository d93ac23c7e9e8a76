package models

import "time"

// DashboardStats summarises the grievances a user sees.
type DashboardStats struct {
	Total    int         `json:"total"`
	Pending  int         `json:"pending"`
	Resolved int         `json:"resolved"`
	Urgent   int         `json:"urgent"`
	Recent   []Grievance `json:"recent"`
}

// SystemMetrics is a point-in-time summary of service instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64          `json:"cache_hit_ratio"`
	CacheHits                uint64           `json:"cache_hits"`
	CacheMisses              uint64           `json:"cache_misses"`
	RequestsTotal            uint64           `json:"requests_total"`
	AverageRequestDurationMs float64          `json:"avg_request_duration_ms"`
	StoreCalls               uint64           `json:"store_calls"`
	AverageStoreDurationMs   float64          `json:"avg_store_duration_ms"`
	GrievanceActions         map[string]int64 `json:"grievance_actions"`
	EventsPublished          uint64           `json:"events_published"`
	EventsFailed             uint64           `json:"events_failed"`
	Goroutines               int              `json:"goroutines"`
	GeneratedAt              time.Time        `json:"generated_at"`
}
