package engine

import "github.com/miradorstack/mirador-resolver/internal/models"

// DefaultRecurrenceThreshold is the occurrence count above which a pattern is
// handled preventively.
const DefaultRecurrenceThreshold = 5

var criticalInfrastructure = map[models.ErrorType]struct{}{
	models.ErrorConnection:         {},
	models.ErrorTooManyConnections: {},
	models.ErrorDiskFull:           {},
}

// IsCriticalInfrastructure reports whether errorType always receives an
// immediate or self-healing response.
func IsCriticalInfrastructure(errorType models.ErrorType) bool {
	_, ok := criticalInfrastructure[errorType]
	return ok
}

// Selector maps an error occurrence onto a resolution strategy. It is a pure
// function of its inputs.
type Selector struct {
	RecurrenceThreshold int
}

// NewSelector constructs a Selector; a non-positive threshold uses the default.
func NewSelector(threshold int) Selector {
	if threshold <= 0 {
		threshold = DefaultRecurrenceThreshold
	}
	return Selector{RecurrenceThreshold: threshold}
}

// Select applies the decision table; the first matching rule wins.
func (s Selector) Select(errorType models.ErrorType, recurrence int, flags models.Flags) models.Strategy {
	threshold := s.RecurrenceThreshold
	if threshold <= 0 {
		threshold = DefaultRecurrenceThreshold
	}

	switch {
	case IsCriticalInfrastructure(errorType):
		if flags.AutoFixEnabled {
			return models.StrategySelfHealing
		}
		return models.StrategyImmediateFix
	case recurrence > threshold:
		return models.StrategyPreventiveAction
	case flags.MaintenanceWindow && flags.AutoFixEnabled:
		return models.StrategySelfHealing
	default:
		return models.StrategyGuidedResolution
	}
}
