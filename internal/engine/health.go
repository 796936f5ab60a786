package engine

import (
	"fmt"
	"sort"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

const (
	healthTopPatterns = 5

	recommendRatePerHour     = 2
	recommendDailyErrors     = 10
	recommendMinOutcomes     = 5
	recommendMinSuccessRatio = 0.8
)

// Health aggregates trends, prediction, success rates and generation cost into
// a report. It does not mutate engine state.
func (e *Engine) Health() models.HealthReport {
	now := e.now()
	trends := e.history.Trends(now)
	avg := e.ledger.AverageGenerationTime(e.opts.ReportWindow)

	report := models.HealthReport{
		Status:                models.HealthHealthy,
		GeneratedAt:           now,
		Trends:                trends,
		SuccessRates:          e.ledger.SuccessRates(),
		AverageGenerationTime: avg,
		RecentSuccessRate:     e.ledger.RecentSuccessRate(e.opts.ReportWindow),
		TotalResolutions:      e.ledger.Len(),
		TopPatterns:           trends.TopPatterns,
	}
	if len(report.TopPatterns) > healthTopPatterns {
		report.TopPatterns = report.TopPatterns[:healthTopPatterns]
	}
	if prediction, ok := e.predictor.PredictNext(now); ok {
		report.Prediction = &prediction
	}
	if avg >= e.opts.MaxAverageGenerationTime {
		report.Status = models.HealthNeedsAttention
	}
	report.Recommendations = e.recommendations(trends)
	return report
}

func (e *Engine) recommendations(trends models.TrendSummary) []string {
	var recs []string
	if trends.ErrorRatePerHour > recommendRatePerHour {
		recs = append(recs, "Consider implementing more aggressive error prevention")
	}
	if trends.ErrorsLast24h > recommendDailyErrors {
		recs = append(recs, "Review system configuration for recurring issues")
	}

	counts := e.ledger.OutcomeCounts()
	types := make([]models.ErrorType, 0, len(counts))
	for errorType := range counts {
		types = append(types, errorType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, errorType := range types {
		counter := counts[errorType]
		if counter.Total <= recommendMinOutcomes {
			continue
		}
		if float64(counter.Successes)/float64(counter.Total) < recommendMinSuccessRatio {
			recs = append(recs, fmt.Sprintf("Improve resolution strategies for %s errors", displayType(errorType)))
		}
	}

	if len(recs) == 0 {
		recs = append(recs, "System is performing well - continue monitoring")
	}
	return recs
}
