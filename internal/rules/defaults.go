package rules

// DefaultRules is the rule set installed when none has been persisted yet.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:        "MINOR_COSIGNER",
			Name:      "Minor Requires Cosigner",
			Condition: "age < 18",
			Action:    ActionRequireCosigner,
			Priority:  100,
			Enabled:   true,
		},
		{
			ID:        "AGE_VERIFICATION",
			Name:      "Minor Account Opened By Adult",
			Condition: "age >= 18 and account_type == 'minor_account'",
			Action:    ActionFlagManualReview,
			Priority:  100,
			Enabled:   true,
		},
		{
			ID:        "SUSPICIOUS_PATTERN",
			Name:      "Suspicious Pattern Detection",
			Condition: "ai_fraud_score > 0.7",
			Action:    ActionFlagFraud,
			Priority:  100,
			Enabled:   true,
		},
		{
			ID:        "FRAUD_DATABASE_HIT",
			Name:      "Fraud Database Match",
			Condition: "fraud_db_hit",
			Action:    ActionFlagFraud,
			Priority:  100,
			Enabled:   true,
		},
		{
			ID:        "BUSINESS_ACCOUNT_EIN",
			Name:      "Business Account Requires EIN",
			Condition: "account_type.startswith('business') and not has_ein",
			Action:    ActionRequireEINVerification,
			Priority:  95,
			Enabled:   true,
		},
		{
			ID:        "HIGH_RISK_SSN",
			Name:      "High Risk SSN Pattern Detection",
			Condition: "ssn_pattern",
			Action:    ActionFlagManualReview,
			Priority:  90,
			Enabled:   true,
		},
		{
			ID:        "FOREIGN_ADDRESS",
			Name:      "Foreign Address Enhanced Due Diligence",
			Condition: "citizenship != 'US' or country != 'US'",
			Action:    ActionEnhancedKYC,
			Priority:  85,
			Enabled:   true,
		},
		{
			ID:        "HIGH_INCOME_VERIFICATION",
			Name:      "High Income Requires Additional Verification",
			Condition: "annual_income > 250000",
			Action:    ActionRequireIncomeDocumentation,
			Priority:  80,
			Enabled:   true,
		},
		{
			ID:        "KYC_NOT_CLEAR",
			Name:      "KYC Screening Not Clear",
			Condition: "kyc_status != 'clear'",
			Action:    ActionRequireManualReview,
			Priority:  75,
			Enabled:   true,
		},
		{
			ID:        "CREDIT_CHECK_THRESHOLD",
			Name:      "Credit Check for Overdraft Protection",
			Condition: "overdraft_requested",
			Action:    ActionRequireCreditCheck,
			Priority:  70,
			Enabled:   true,
		},
		{
			ID:        "LOW_CREDIT_SCORE",
			Name:      "Low Credit Score Review",
			Condition: "credit_score < 580",
			Action:    ActionRequireManualReview,
			Priority:  60,
			Enabled:   true,
		},
		{
			ID:        "AUTO_APPROVE_LOW_RISK",
			Name:      "Auto-Approve Low Risk Applications",
			Condition: "risk_score < 20 and all_verifications_passed",
			Action:    ActionAutoApprove,
			Priority:  50,
			Enabled:   true,
		},
	}
}
