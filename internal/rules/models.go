package rules

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/richxcame/account-onboarding/internal/risk"
)

var (
	ErrInvalidRule   = errors.New("invalid rule")
	ErrRuleNotFound  = errors.New("rule not found")
	ErrDuplicateRule = errors.New("rule already exists")
)

// Action is the symbolic outcome a triggered rule asks for.
type Action string

const (
	ActionReject                     Action = "reject"
	ActionFlagFraud                  Action = "flag_fraud"
	ActionRequireManualReview        Action = "require_manual_review"
	ActionFlagManualReview           Action = "flag_manual_review"
	ActionEnhancedKYC                Action = "enhanced_kyc"
	ActionRequireCosigner            Action = "require_cosigner"
	ActionRequireEINVerification     Action = "require_ein_verification"
	ActionRequireIncomeDocumentation Action = "require_income_documentation"
	ActionRequireCreditCheck         Action = "require_credit_check"
	ActionAutoApprove                Action = "auto_approve"
)

// severity is the fixed action to risk level table. An action missing here
// cannot be registered.
var severity = map[Action]risk.Level{
	ActionReject:                     risk.LevelCritical,
	ActionFlagFraud:                  risk.LevelCritical,
	ActionRequireManualReview:        risk.LevelHigh,
	ActionFlagManualReview:           risk.LevelHigh,
	ActionEnhancedKYC:                risk.LevelHigh,
	ActionRequireCosigner:            risk.LevelMedium,
	ActionRequireEINVerification:     risk.LevelMedium,
	ActionRequireIncomeDocumentation: risk.LevelMedium,
	ActionRequireCreditCheck:         risk.LevelMedium,
	ActionAutoApprove:                risk.LevelLow,
}

// Severity returns the risk level an action implies.
func (a Action) Severity() (risk.Level, bool) {
	l, ok := severity[a]
	return l, ok
}

// Actions lists every known action, most severe first.
func Actions() []Action {
	out := make([]Action, 0, len(severity))
	for a := range severity {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := severity[out[i]], severity[out[j]]
		if li != lj {
			return lj.AtMost(li)
		}
		return out[i] < out[j]
	})
	return out
}

// Rule is a named, prioritized condition to action pair.
type Rule struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Condition string    `json:"condition"`
	Action    Action    `json:"action"`
	Priority  int       `json:"priority"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Triggered is one rule whose condition held.
type Triggered struct {
	RuleID   string `json:"rule_id"`
	Name     string `json:"name"`
	Action   Action `json:"action"`
	Priority int    `json:"priority"`
}

// Rationale renders the triggered rule as a human-readable line.
func (t Triggered) Rationale() string {
	return fmt.Sprintf("%s: %s -> %s", t.RuleID, t.Name, t.Action)
}

// Evaluation is the result of running a rule snapshot against one context.
type Evaluation struct {
	Triggered   []Triggered        `json:"triggered"`
	RiskLevel   risk.Level         `json:"risk_level"`
	Blocking    bool               `json:"blocking"`
	Version     int64              `json:"rule_set_version"`
	Diagnostics []*EvaluationError `json:"diagnostics,omitempty"`
}

// RuleIDs returns the ids of triggered rules in evaluation order.
func (e Evaluation) RuleIDs() []string {
	ids := make([]string, len(e.Triggered))
	for i, t := range e.Triggered {
		ids[i] = t.RuleID
	}
	return ids
}

// Has reports whether any triggered rule asked for a.
func (e Evaluation) Has(a Action) bool {
	for _, t := range e.Triggered {
		if t.Action == a {
			return true
		}
	}
	return false
}

// EvaluationError records why a single rule was skipped.
type EvaluationError struct {
	RuleID   string `json:"rule_id"`
	Variable string `json:"variable,omitempty"`
	Message  string `json:"message"`
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("rule %s: %s", e.RuleID, e.Message)
}

// Undefined reports whether the rule was skipped for a missing variable.
func (e *EvaluationError) Undefined() bool {
	return e.Variable != ""
}
