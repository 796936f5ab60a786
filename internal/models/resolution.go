package models

import "time"

// Strategy is the category of response chosen for an error occurrence.
type Strategy string

const (
	StrategyImmediateFix     Strategy = "IMMEDIATE_FIX"
	StrategySelfHealing      Strategy = "SELF_HEALING"
	StrategyPreventiveAction Strategy = "PREVENTIVE_ACTION"
	StrategyGuidedResolution Strategy = "GUIDED_RESOLUTION"
	StrategyEscalation       Strategy = "ESCALATION"
)

// ResolutionPlan is an unexecuted remediation proposal.
type ResolutionPlan struct {
	ID                   string    `json:"resolution_id"`
	Signature            Signature `json:"error_signature"`
	ErrorType            ErrorType `json:"error_type"`
	Strategy             Strategy  `json:"strategy"`
	Severity             Severity  `json:"severity"`
	Success              bool      `json:"success"`
	ActionsTaken         []string  `json:"actions_taken"`
	Commands             []string  `json:"commands"`
	VerificationCommands []string  `json:"verification_commands"`
	RollbackCommands     []string  `json:"rollback_commands"`
	EffectivenessScore   float64   `json:"effectiveness_score"`
	PreventionMeasures   []string  `json:"prevention_measures"`
	RequiresHumanReview  bool      `json:"requires_human_review"`
	GeneratedAt          time.Time `json:"generated_at"`
	ExecutionTimeMicros  int64     `json:"execution_time_micros"`
}

// Clone returns a deep copy of the plan.
func (p ResolutionPlan) Clone() ResolutionPlan {
	out := p
	out.ActionsTaken = cloneStrings(p.ActionsTaken)
	out.Commands = cloneStrings(p.Commands)
	out.VerificationCommands = cloneStrings(p.VerificationCommands)
	out.RollbackCommands = cloneStrings(p.RollbackCommands)
	out.PreventionMeasures = cloneStrings(p.PreventionMeasures)
	return out
}

// LedgerEntry is a plan plus the outcome learned for it.
type LedgerEntry struct {
	Plan                    ResolutionPlan `json:"plan"`
	UserFeedback            string         `json:"user_feedback,omitempty"`
	FinalEffectivenessScore float64        `json:"final_effectiveness_score"`
	FeedbackAt              time.Time      `json:"feedback_at,omitempty"`
}

// HasFeedback reports whether learn has been applied to the entry.
func (e LedgerEntry) HasFeedback() bool {
	return !e.FeedbackAt.IsZero()
}

// Clone returns a deep copy of the entry.
func (e LedgerEntry) Clone() LedgerEntry {
	out := e
	out.Plan = e.Plan.Clone()
	return out
}

// Feedback is an outcome report for a previously issued plan.
type Feedback struct {
	ResolutionID       string
	Text               string
	EffectivenessScore float64
}

// Alert is a threshold breach raised by the alert evaluator.
type Alert struct {
	Rule     string    `json:"rule"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	RaisedAt time.Time `json:"raised_at"`
}

// Resolution is the outcome of handling a single error record.
type Resolution struct {
	Signature Signature
	Frequency int
	Plan      ResolutionPlan
	Alerts    []Alert
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
