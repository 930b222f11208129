package integrations

import (
	"github.com/richxcame/account-onboarding/internal/facts"
)

// unavailable is the status recorded for an integration that did not succeed.
const unavailable = "unavailable"

// CreditTier buckets a bureau score.
func CreditTier(score float64) string {
	switch {
	case score >= creditExcellent:
		return "excellent"
	case score >= creditGood:
		return "good"
	case score >= creditFair:
		return "fair"
	default:
		return "poor"
	}
}

// Derive turns settled outcomes into rule context variables. A failed or
// timed-out integration never reads as a pass: its status variables become
// "unavailable", its verification flags false, and it counts toward
// integrations_failed.
func Derive(outcomes []Outcome) facts.Facts {
	f := facts.Facts{}
	failed := 0
	passed := len(outcomes) > 0

	for _, o := range outcomes {
		if !o.OK() {
			failed++
			passed = false
		}

		switch o.IntegrationID {
		case IDIdentityVerification:
			verified := o.OK() && boolField(o.Payload, "identity_match")
			f[facts.VarIdentityVerified] = facts.Bool(verified)
			score := 0.0
			if o.OK() {
				score, _ = numberField(o.Payload, "verification_score")
			}
			f[facts.VarIdentityScore] = facts.Number(score)
			passed = passed && verified

		case IDCreditCheck:
			if !o.OK() {
				f[facts.VarCreditTier] = facts.String(unavailable)
				continue
			}
			if score, ok := numberField(o.Payload, "credit_score"); ok {
				f[facts.VarCreditScore] = facts.Number(score)
				tier := stringField(o.Payload, "credit_tier")
				if tier == "" {
					tier = CreditTier(score)
				}
				f[facts.VarCreditTier] = facts.String(tier)
			}

		case IDKYCScreening:
			status := unavailable
			if o.OK() {
				status = stringField(o.Payload, "status")
				if risk, ok := numberField(o.Payload, "risk_score"); ok {
					f[facts.VarKYCRiskScore] = facts.Number(risk)
				}
			}
			f[facts.VarKYCStatus] = facts.String(status)
			passed = passed && status == "clear"

		case IDFraudDatabase:
			status := unavailable
			if o.OK() {
				status = stringField(o.Payload, "status")
			}
			hit := status == "flagged"
			f[facts.VarFraudDBStatus] = facts.String(status)
			f[facts.VarFraudDBHit] = facts.Bool(hit)
			passed = passed && !hit

		case IDDocumentVerification:
			verified := false
			if o.OK() {
				if v, ok := o.Payload["validation"].(map[string]interface{}); ok {
					verified = boolField(v, "is_valid")
				}
			}
			f[facts.VarDocumentVerified] = facts.Bool(verified)
			passed = passed && verified

		case IDEmploymentVerification:
			verified := o.OK() && boolField(o.Payload, "employment_verified")
			f[facts.VarEmploymentVerified] = facts.Bool(verified)
			passed = passed && verified
		}
	}

	f[facts.VarIntegrationsFailed] = facts.Number(float64(failed))
	f[facts.VarAllVerificationsPassed] = facts.Bool(passed)
	return f
}

func boolField(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func numberField(m map[string]interface{}, key string) (float64, bool) {
	switch n := m[key].(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
