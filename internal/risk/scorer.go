// Package risk turns field check results and external signals into a fraud
// score, a confidence value and the composite 0-100 risk score rules read.
package risk

import (
	"math"
	"sort"

	"github.com/richxcame/account-onboarding/internal/fieldcheck"
)

// SignalFraudDatabaseHit is raised once a fraud database integration reports a match.
const SignalFraudDatabaseHit fieldcheck.Flag = "fraud_database_hit"

// Weights is the fraud score contribution of each flag. Flags not listed weigh nothing.
var Weights = map[fieldcheck.Flag]float64{
	fieldcheck.FlagSequentialID:     0.30,
	fieldcheck.FlagRepeatedDigits:   0.30,
	fieldcheck.FlagDisposableEmail:  0.15,
	fieldcheck.FlagImpossibleAge:    0.40,
	fieldcheck.FlagTestDataName:     0.25,
	fieldcheck.FlagPOBoxAddress:     0.10,
	fieldcheck.FlagInvalidAreaCode:  0.10,
	fieldcheck.FlagInvalidFormat:    0.10,
	fieldcheck.FlagMissingField:     0.10,
	fieldcheck.FlagZipStateMismatch: 0.05,
	SignalFraudDatabaseHit:          0.50,
}

const (
	baselineConfidence   = 0.85
	lowConfidencePenalty = 0.10
	lowConfidenceCutoff  = 0.6
)

// Assessment is the Risk Scorer output.
type Assessment struct {
	FraudScore float64           `json:"fraud_score"`
	Confidence float64           `json:"confidence"`
	Flags      []fieldcheck.Flag `json:"flags"`
}

// Has reports whether f contributed to the assessment.
func (a Assessment) Has(f fieldcheck.Flag) bool {
	for _, x := range a.Flags {
		if x == f {
			return true
		}
	}
	return false
}

// Score aggregates field results and extra signals. Flags are treated as a
// set, so the result does not depend on the order of results or signals.
func Score(results []fieldcheck.Result, signals ...fieldcheck.Flag) Assessment {
	set := make(map[fieldcheck.Flag]bool)
	lowConfidence := 0
	for _, r := range results {
		for _, f := range r.Flags {
			set[f] = true
		}
		if r.Confidence < lowConfidenceCutoff {
			lowConfidence++
		}
	}
	for _, s := range signals {
		set[s] = true
	}

	flags := make([]fieldcheck.Flag, 0, len(set))
	for f := range set {
		flags = append(flags, f)
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i] < flags[j] })

	sum := 0.0
	for _, f := range flags {
		sum += Weights[f]
	}

	return Assessment{
		FraudScore: round(clamp(sum)),
		Confidence: round(clamp(baselineConfidence - lowConfidencePenalty*float64(lowConfidence))),
		Flags:      flags,
	}
}

// Profile is the applicant data the composite score reads besides the assessment.
type Profile struct {
	Age          int
	AgeKnown     bool
	Citizenship  string
	AnnualIncome float64
}

// CompositeScore folds the assessment and applicant profile into a 0-100 score.
func CompositeScore(a Assessment, p Profile) float64 {
	score := a.FraudScore * 40

	if p.AgeKnown {
		switch {
		case p.Age < 21:
			score += 10
		case p.Age > 75:
			score += 15
		}
	}

	if p.Citizenship != "US" {
		score += 20
	}

	if p.AnnualIncome > 0 {
		switch {
		case p.AnnualIncome > 500000:
			score += 10
		case p.AnnualIncome < 15000:
			score += 15
		}
	}

	if a.Has(fieldcheck.FlagSequentialID) || a.Has(fieldcheck.FlagRepeatedDigits) {
		score += 30
	}

	return round(math.Min(score, 100))
}

func clamp(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// round to four places so sums like 0.15+0.30 compare equal to their literal.
func round(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
