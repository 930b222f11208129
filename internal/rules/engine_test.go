package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/account-onboarding/internal/facts"
	"github.com/richxcame/account-onboarding/internal/risk"
)

var defaultTerminal = map[Action]bool{
	ActionReject:              true,
	ActionFlagFraud:           true,
	ActionRequireManualReview: true,
}

func snapshot(t *testing.T, rules ...Rule) *Snapshot {
	t.Helper()
	snap, err := NewSnapshot(1, rules, facts.Full())
	require.NoError(t, err)
	return snap
}

func rule(id string, priority int, cond string, action Action) Rule {
	return Rule{ID: id, Name: id, Condition: cond, Action: action, Priority: priority, Enabled: true}
}

func TestEvaluate_PriorityOrder(t *testing.T) {
	snap := snapshot(t,
		rule("LOW", 50, "age > 10", ActionRequireCreditCheck),
		rule("HIGH", 90, "age > 10", ActionRequireCosigner),
	)

	ev := Evaluate(context.Background(), facts.Facts{facts.VarAge: facts.Number(30)}, snap, nil)

	require.Len(t, ev.Triggered, 2)
	assert.Equal(t, ActionRequireCosigner, ev.Triggered[0].Action)
	assert.Equal(t, []string{"HIGH", "LOW"}, ev.RuleIDs())
}

func TestEvaluate_TieBreakByID(t *testing.T) {
	snap := snapshot(t,
		rule("B_RULE", 70, "age > 10", ActionRequireCreditCheck),
		rule("A_RULE", 70, "age > 10", ActionRequireCosigner),
	)

	ev := Evaluate(context.Background(), facts.Facts{facts.VarAge: facts.Number(30)}, snap, nil)

	require.Len(t, ev.Triggered, 2)
	assert.Equal(t, "A_RULE", ev.Triggered[0].RuleID)
	assert.Equal(t, ActionRequireCosigner, ev.Triggered[0].Action)
}

func TestEvaluate_UndefinedVariableSkipsRule(t *testing.T) {
	snap := snapshot(t,
		rule("KYC", 80, "kyc_status != 'clear'", ActionRequireManualReview),
		rule("MINOR", 100, "age < 18", ActionRequireCosigner),
	)

	ev := Evaluate(context.Background(), facts.Facts{facts.VarAge: facts.Number(17)}, snap, defaultTerminal)

	assert.Equal(t, []string{"MINOR"}, ev.RuleIDs())
	assert.False(t, ev.Blocking)
	assert.Equal(t, risk.LevelMedium, ev.RiskLevel)
	require.Len(t, ev.Diagnostics, 1)
	assert.Equal(t, "KYC", ev.Diagnostics[0].RuleID)
	assert.True(t, ev.Diagnostics[0].Undefined())
	assert.Equal(t, facts.VarKYCStatus, ev.Diagnostics[0].Variable)
}

func TestEvaluate_TypeMismatchIsDiagnostic(t *testing.T) {
	snap := snapshot(t, rule("AGE", 10, "age < 18", ActionRequireCosigner))

	ev := Evaluate(context.Background(), facts.Facts{facts.VarAge: facts.String("seventeen")}, snap, nil)

	assert.Empty(t, ev.Triggered)
	require.Len(t, ev.Diagnostics, 1)
	assert.False(t, ev.Diagnostics[0].Undefined())
}

func TestEvaluate_RiskLevelAndBlocking(t *testing.T) {
	tests := []struct {
		name         string
		action       Action
		wantLevel    risk.Level
		wantBlocking bool
	}{
		{"auto approve", ActionAutoApprove, risk.LevelLow, false},
		{"cosigner", ActionRequireCosigner, risk.LevelMedium, false},
		{"ein", ActionRequireEINVerification, risk.LevelMedium, false},
		{"enhanced kyc", ActionEnhancedKYC, risk.LevelHigh, false},
		{"manual review", ActionRequireManualReview, risk.LevelHigh, true},
		{"fraud", ActionFlagFraud, risk.LevelCritical, true},
		{"reject", ActionReject, risk.LevelCritical, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snapshot(t, rule("R", 1, "age > 0", tt.action))
			ev := Evaluate(context.Background(), facts.Facts{facts.VarAge: facts.Number(40)}, snap, defaultTerminal)
			assert.Equal(t, tt.wantLevel, ev.RiskLevel)
			assert.Equal(t, tt.wantBlocking, ev.Blocking)
		})
	}
}

func TestEvaluate_NothingTriggered(t *testing.T) {
	snap := snapshot(t, rule("MINOR", 100, "age < 18", ActionRequireCosigner))

	ev := Evaluate(context.Background(), facts.Facts{facts.VarAge: facts.Number(40)}, snap, defaultTerminal)

	assert.NotNil(t, ev.Triggered)
	assert.Empty(t, ev.Triggered)
	assert.Equal(t, risk.LevelLow, ev.RiskLevel)
	assert.Equal(t, int64(1), ev.Version)
}

func TestEvaluate_DisabledRulesIgnored(t *testing.T) {
	r := rule("OFF", 100, "age > 0", ActionReject)
	r.Enabled = false
	snap := snapshot(t, r)

	ev := Evaluate(context.Background(), facts.Facts{facts.VarAge: facts.Number(40)}, snap, defaultTerminal)

	assert.Empty(t, ev.Triggered)
	assert.False(t, ev.Blocking)
}

func TestEvaluate_Deterministic(t *testing.T) {
	snap := snapshot(t, DefaultRules()...)
	f := facts.Facts{
		facts.VarAge:                    facts.Number(17),
		facts.VarAccountType:            facts.String("business_checking"),
		facts.VarHasEIN:                 facts.Bool(false),
		facts.VarCitizenship:            facts.String("CA"),
		facts.VarCountry:                facts.String("CA"),
		facts.VarAnnualIncome:           facts.Number(300000),
		facts.VarAIFraudScore:           facts.Number(0.1),
		facts.VarSSNPattern:             facts.Bool(false),
		facts.VarOverdraft:              facts.Bool(true),
		facts.VarRiskScore:              facts.Number(30),
		facts.VarKYCStatus:              facts.String("clear"),
		facts.VarCreditScore:            facts.Number(700),
		facts.VarFraudDBHit:             facts.Bool(false),
		facts.VarAllVerificationsPassed: facts.Bool(true),
	}

	first := Evaluate(context.Background(), f, snap, defaultTerminal)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Evaluate(context.Background(), f, snap, defaultTerminal))
	}
	assert.Equal(t, []string{
		"MINOR_COSIGNER",
		"BUSINESS_ACCOUNT_EIN",
		"FOREIGN_ADDRESS",
		"HIGH_INCOME_VERIFICATION",
		"CREDIT_CHECK_THRESHOLD",
	}, first.RuleIDs())
	assert.Equal(t, risk.LevelHigh, first.RiskLevel)
	assert.False(t, first.Blocking)
}

func TestTriggered_Rationale(t *testing.T) {
	tr := Triggered{RuleID: "MINOR_COSIGNER", Name: "Minor Requires Cosigner", Action: ActionRequireCosigner}
	assert.Equal(t, "MINOR_COSIGNER: Minor Requires Cosigner -> require_cosigner", tr.Rationale())
}
