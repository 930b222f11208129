package rules

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/richxcame/account-onboarding/internal/facts"
	"github.com/richxcame/account-onboarding/internal/risk"
	"github.com/richxcame/account-onboarding/pkg/logger"
)

// Evaluate runs every enabled rule of snap against f in priority order.
// A rule whose condition fails to evaluate is skipped and reported in
// Diagnostics; the pass itself never fails. Blocking is set when a triggered
// action is in terminal. Evaluate keeps no state between calls.
func Evaluate(ctx context.Context, f facts.Facts, snap *Snapshot, terminal map[Action]bool) Evaluation {
	ev := Evaluation{
		Triggered: []Triggered{},
		RiskLevel: risk.LevelLow,
		Version:   snap.Version(),
	}
	log := logger.WithContext(ctx)

	for _, r := range snap.rules {
		if !r.Enabled {
			continue
		}

		ok, err := evalBool(r.cond, f)
		if err != nil {
			diag := &EvaluationError{RuleID: r.ID, Message: err.Error()}
			var undef *undefinedError
			if errors.As(err, &undef) {
				diag.Variable = undef.name
				log.Debug("rule skipped, variable not in context",
					zap.String("rule_id", r.ID), zap.String("variable", undef.name))
			} else {
				log.Warn("rule evaluation failed", zap.String("rule_id", r.ID), zap.Error(err))
			}
			ev.Diagnostics = append(ev.Diagnostics, diag)
			continue
		}
		if !ok {
			continue
		}

		ev.Triggered = append(ev.Triggered, Triggered{
			RuleID:   r.ID,
			Name:     r.Name,
			Action:   r.Action,
			Priority: r.Priority,
		})
		if level, known := r.Action.Severity(); known {
			ev.RiskLevel = risk.Max(ev.RiskLevel, level)
		}
		if terminal[r.Action] {
			ev.Blocking = true
		}
	}

	return ev
}
