package integrations

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/richxcame/account-onboarding/internal/fieldcheck"
)

// Credit tier cut-offs shared by the mock bureau and Derive.
const (
	creditExcellent = 740
	creditGood      = 670
	creditFair      = 580
)

// compromisedIDs are national ids that have circulated publicly and are
// reported by the mock fraud database.
var compromisedIDs = map[string]bool{
	"078051120": true,
	"219099999": true,
	"457555462": true,
}

// highRiskJurisdictions trigger a KYC review in the mock screening service.
var highRiskJurisdictions = map[string]bool{
	"CU": true,
	"IR": true,
	"KP": true,
	"SY": true,
}

type mockFunc func(s Subject, seed uint64) (map[string]interface{}, error)

// MockClient is a deterministic stand-in for an external service. Equal
// subjects always produce equal payloads.
type MockClient struct {
	id    string
	delay time.Duration
	fn    mockFunc
}

// Call waits for the configured delay, honouring ctx, then answers.
func (m *MockClient) Call(ctx context.Context, req Request) (map[string]interface{}, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return m.fn(req.Subject, seed(m.id, req.Subject))
}

// MockClients returns a mock for every integration in the default catalog.
func MockClients(delay time.Duration) map[string]Client {
	fns := map[string]mockFunc{
		IDIdentityVerification:   mockIdentity,
		IDCreditCheck:            mockCredit,
		IDKYCScreening:           mockKYC,
		IDFraudDatabase:          mockFraudDatabase,
		IDDocumentVerification:   mockDocument,
		IDEmploymentVerification: mockEmployment,
	}
	out := make(map[string]Client, len(fns))
	for id, fn := range fns {
		out[id] = &MockClient{id: id, delay: delay, fn: fn}
	}
	return out
}

func seed(id string, s Subject) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s", id, digits(s.NationalID), strings.ToLower(s.Email), s.FirstName, s.LastName)
	return h.Sum64()
}

// spread maps seed onto [lo, lo+width) in hundredths.
func spread(seed uint64, lo float64, width int) float64 {
	return math.Round((lo+float64(seed%uint64(width))/100)*100) / 100
}

func mockIdentity(s Subject, seed uint64) (map[string]interface{}, error) {
	id := fieldcheck.CheckNationalID(s.NationalID)
	name := fieldcheck.CheckName(strings.TrimSpace(s.FirstName + " " + s.LastName))
	verified := id.Valid && name.Valid &&
		!id.Has(fieldcheck.FlagSequentialID) && !id.Has(fieldcheck.FlagRepeatedDigits)

	score := spread(seed, 0.86, 14)
	warnings := []interface{}{}
	if !verified {
		score = spread(seed, 0.40, 30)
		warnings = append(warnings, "identity attributes do not match records")
	}
	status := "verified"
	if !verified {
		status = "failed"
	}
	return map[string]interface{}{
		"status":             status,
		"verification_score": score,
		"identity_match":     verified,
		"ssn_verified":       verified,
		"address_verified":   verified,
		"warnings":           warnings,
	}, nil
}

func mockCredit(s Subject, seed uint64) (map[string]interface{}, error) {
	score := 620 + int(seed%230)
	return map[string]interface{}{
		"credit_score":             score,
		"credit_tier":              CreditTier(float64(score)),
		"credit_report_available":  true,
		"approved_for_overdraft":   score >= 650,
		"recommended_credit_limit": recommendedLimit(score),
	}, nil
}

func recommendedLimit(score int) int {
	if score < 650 {
		return 0
	}
	return score * 10
}

func mockKYC(s Subject, seed uint64) (map[string]interface{}, error) {
	flagged := highRiskJurisdictions[strings.ToUpper(s.Country)] ||
		highRiskJurisdictions[strings.ToUpper(s.Citizenship)]

	risk := spread(seed, 0.01, 25)
	status, sanctions := "clear", "pass"
	matches := []interface{}{}
	if flagged {
		risk = spread(seed, 0.45, 30)
		status, sanctions = "review_required", "review"
		matches = append(matches, map[string]interface{}{
			"type": "jurisdiction",
			"list": "OFAC",
		})
	}
	return map[string]interface{}{
		"status":            status,
		"risk_score":        risk,
		"watchlist_matches": matches,
		"sanctions_check":   sanctions,
	}, nil
}

func mockFraudDatabase(s Subject, _ uint64) (map[string]interface{}, error) {
	indicators := []interface{}{}
	status, recommendation := "clear", "approve"
	if compromisedIDs[digits(s.NationalID)] {
		indicators = append(indicators, "ssn_reported_compromised")
		status, recommendation = "flagged", "review"
	}
	if fieldcheck.CheckEmail(s.Email).Has(fieldcheck.FlagDisposableEmail) {
		indicators = append(indicators, "disposable_email_on_file")
	}

	return map[string]interface{}{
		"status":           status,
		"indicators_found": len(indicators),
		"fraud_indicators": indicators,
		"recommendation":   recommendation,
	}, nil
}

func mockDocument(s Subject, seed uint64) (map[string]interface{}, error) {
	valid := fieldcheck.CheckName(strings.TrimSpace(s.FirstName + " " + s.LastName)).Valid
	confidence := spread(seed, 0.90, 10)
	if !valid {
		confidence = spread(seed, 0.30, 30)
	}
	return map[string]interface{}{
		"document_type": "drivers_license",
		"validation": map[string]interface{}{
			"is_valid":           valid,
			"is_expired":         false,
			"is_authentic":       valid,
			"confidence_score":   confidence,
			"tampering_detected": !valid,
		},
	}, nil
}

func mockEmployment(s Subject, seed uint64) (map[string]interface{}, error) {
	verified := strings.TrimSpace(s.Employer) != "" &&
		(s.EmploymentStatus == "employed" || s.EmploymentStatus == "self_employed")

	status := "unable_to_verify"
	confidence := 0.0
	if verified {
		status = "active"
		confidence = spread(seed, 0.85, 14)
	}
	return map[string]interface{}{
		"employment_verified": verified,
		"employer_name":       s.Employer,
		"employment_status":   status,
		"income_verified":     verified,
		"confidence":          confidence,
	}, nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
