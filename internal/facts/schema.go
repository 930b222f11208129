package facts

import "fmt"

// Schema maps every variable a rule may reference to its kind.
type Schema map[string]Kind

// Context variable names shared by the workflow, scorer and rule set.
const (
	VarAge              = "age"
	VarAccountType      = "account_type"
	VarAnnualIncome     = "annual_income"
	VarCitizenship      = "citizenship"
	VarState            = "state"
	VarCountry          = "country"
	VarInitialDeposit   = "initial_deposit"
	VarEmploymentStatus = "employment_status"
	VarHasEIN           = "has_ein"
	VarOverdraft        = "overdraft_requested"
	VarSSNPattern       = "ssn_pattern"
	VarFraudFlags       = "fraud_flags"
	VarAIFraudScore     = "ai_fraud_score"
	VarAIConfidence     = "ai_confidence"
	VarRiskScore        = "risk_score"
)

// Base is the application- and score-derived part of the context, present
// before any integration has run.
func Base() Schema {
	return Schema{
		VarAge:              KindNumber,
		VarAccountType:      KindString,
		VarAnnualIncome:     KindNumber,
		VarCitizenship:      KindString,
		VarState:            KindString,
		VarCountry:          KindString,
		VarInitialDeposit:   KindNumber,
		VarEmploymentStatus: KindString,
		VarHasEIN:           KindBool,
		VarOverdraft:        KindBool,
		VarSSNPattern:       KindBool,
		VarFraudFlags:       KindList,
		VarAIFraudScore:     KindNumber,
		VarAIConfidence:     KindNumber,
		VarRiskScore:        KindNumber,
	}
}

// Variables derived from integration outcomes. They are absent from the
// context until the integrations stage has run.
const (
	VarIdentityVerified       = "identity_verified"
	VarIdentityScore          = "identity_score"
	VarCreditScore            = "credit_score"
	VarCreditTier             = "credit_tier"
	VarKYCStatus              = "kyc_status"
	VarKYCRiskScore           = "kyc_risk_score"
	VarFraudDBStatus          = "fraud_db_status"
	VarFraudDBHit             = "fraud_db_hit"
	VarDocumentVerified       = "document_verified"
	VarEmploymentVerified     = "employment_verified"
	VarIntegrationsFailed     = "integrations_failed"
	VarAllVerificationsPassed = "all_verifications_passed"
)

// Integrations is the integration-derived part of the context.
func Integrations() Schema {
	return Schema{
		VarIdentityVerified:       KindBool,
		VarIdentityScore:          KindNumber,
		VarCreditScore:            KindNumber,
		VarCreditTier:             KindString,
		VarKYCStatus:              KindString,
		VarKYCRiskScore:           KindNumber,
		VarFraudDBStatus:          KindString,
		VarFraudDBHit:             KindBool,
		VarDocumentVerified:       KindBool,
		VarEmploymentVerified:     KindBool,
		VarIntegrationsFailed:     KindNumber,
		VarAllVerificationsPassed: KindBool,
	}
}

// Full is every variable a rule may reference.
func Full() Schema {
	s, _ := Base().Merge(Integrations())
	return s
}

// Merge returns the union of s and other; conflicting kinds are an error.
func (s Schema) Merge(other Schema) (Schema, error) {
	out := make(Schema, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		if existing, ok := out[k]; ok && existing != v {
			return nil, fmt.Errorf("variable %q declared as %s and %s", k, existing, v)
		}
		out[k] = v
	}
	return out, nil
}

// Lookup returns the kind of name.
func (s Schema) Lookup(name string) (Kind, bool) {
	k, ok := s[name]
	return k, ok
}
