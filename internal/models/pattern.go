package models

import "time"

// PatternState aggregates every observation sharing one signature.
type PatternState struct {
	Signature       Signature   `json:"signature"`
	ErrorType       ErrorType   `json:"error_type"`
	OccurrenceCount int         `json:"occurrence_count"`
	Timestamps      []time.Time `json:"timestamps"`
	FirstSeen       time.Time   `json:"first_seen"`
	LastSeen        time.Time   `json:"last_seen"`
}

// PatternCount pairs a signature with its lifetime occurrence count.
type PatternCount struct {
	Signature Signature `json:"signature"`
	ErrorType ErrorType `json:"error_type"`
	Count     int       `json:"count"`
}

// TrendSummary describes recent error volume.
type TrendSummary struct {
	TotalErrors      int            `json:"total_errors"`
	ErrorsLast24h    int            `json:"errors_last_24h"`
	ErrorsLastWeek   int            `json:"errors_last_week"`
	TopPatterns      []PatternCount `json:"top_patterns"`
	ErrorRatePerHour float64        `json:"error_rate_per_hour"`
	TrendingUp       bool           `json:"trending_up"`
}

// Prediction names the signature most likely to recur next.
type Prediction struct {
	Signature       Signature     `json:"signature"`
	ErrorType       ErrorType     `json:"error_type"`
	Probability     float64       `json:"probability"`
	AverageInterval time.Duration `json:"average_interval"`
}

// Health status values.
const (
	HealthHealthy        = "healthy"
	HealthNeedsAttention = "needs_attention"
)

// HealthReport is the read-only engine summary handed to dashboards.
type HealthReport struct {
	Status                string                `json:"status"`
	GeneratedAt           time.Time             `json:"generated_at"`
	Trends                TrendSummary          `json:"trends"`
	Prediction            *Prediction           `json:"prediction,omitempty"`
	SuccessRates          map[ErrorType]float64 `json:"success_rates"`
	AverageGenerationTime time.Duration         `json:"average_generation_time"`
	RecentSuccessRate     float64               `json:"recent_success_rate"`
	TotalResolutions      int                   `json:"total_resolutions"`
	TopPatterns           []PatternCount        `json:"top_patterns"`
	Recommendations       []string              `json:"recommendations"`
}
