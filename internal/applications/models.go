package applications

import (
	"strings"
	"time"

	"github.com/richxcame/account-onboarding/internal/fieldcheck"
	"github.com/richxcame/account-onboarding/internal/integrations"
	"github.com/richxcame/account-onboarding/internal/risk"
)

// AccountType is the product being applied for
type AccountType string

const (
	AccountPersonalChecking AccountType = "personal_checking"
	AccountPersonalSavings  AccountType = "personal_savings"
	AccountBusinessChecking AccountType = "business_checking"
	AccountBusinessSavings  AccountType = "business_savings"
	AccountMinor            AccountType = "minor_account"
	AccountHighRiskFlagged  AccountType = "high_risk_flagged"
)

// IsBusiness reports whether the account belongs to a business
func (t AccountType) IsBusiness() bool {
	return strings.HasPrefix(string(t), "business")
}

// Status is the externally visible disposition
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether no further automated or manual transition is possible
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Stage is the last workflow stage an application completed
type Stage string

const (
	StageDraft        Stage = "draft"
	StageSubmitted    Stage = "submitted"
	StageScoring      Stage = "scoring"
	StageRulesPre     Stage = "rules_pre"
	StageIntegrations Stage = "integrations"
	StageRulesPost    Stage = "rules_post"
	StageDecided      Stage = "decided"
)

// Address is the applicant's residential address
type Address struct {
	Street  string `json:"street" validate:"omitempty,max=200"`
	City    string `json:"city" validate:"omitempty,max=100"`
	State   string `json:"state" validate:"omitempty,max=50"`
	ZipCode string `json:"zip_code" validate:"omitempty,max=10"`
	Country string `json:"country" validate:"omitempty,len=2"`
}

// Applicant holds the raw input supplied by the customer. Format problems are
// scored by the field checks rather than rejected here.
type Applicant struct {
	FirstName          string  `json:"first_name" validate:"omitempty,max=100"`
	LastName           string  `json:"last_name" validate:"omitempty,max=100"`
	Email              string  `json:"email" validate:"omitempty,max=254"`
	Phone              string  `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth        string  `json:"date_of_birth" validate:"omitempty,isodate"`
	SSN                string  `json:"ssn" validate:"omitempty,max=11"`
	Address            Address `json:"address"`
	Citizenship        string  `json:"citizenship" validate:"omitempty,len=2"`
	AnnualIncome       float64 `json:"annual_income" validate:"gte=0"`
	EmploymentStatus   string  `json:"employment_status" validate:"omitempty,oneof=employed self_employed unemployed student retired"`
	Employer           string  `json:"employer" validate:"omitempty,max=200"`
	InitialDeposit     float64 `json:"initial_deposit" validate:"gte=0"`
	OverdraftRequested bool    `json:"overdraft_requested"`
	BusinessName       string  `json:"business_name" validate:"omitempty,max=200"`
	EIN                string  `json:"ein" validate:"omitempty,max=10"`
}

// FullName joins first and last name
func (a Applicant) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// fieldValue returns the raw value of a required-field name
func (a Applicant) fieldValue(name string) string {
	switch name {
	case "first_name":
		return a.FirstName
	case "last_name":
		return a.LastName
	case "email":
		return a.Email
	case "phone":
		return a.Phone
	case "date_of_birth":
		return a.DateOfBirth
	case "ssn":
		return a.SSN
	case "address.street":
		return a.Address.Street
	case "address.city":
		return a.Address.City
	case "address.state":
		return a.Address.State
	case "address.zip_code":
		return a.Address.ZipCode
	case "address.country":
		return a.Address.Country
	case "citizenship":
		return a.Citizenship
	case "employment_status":
		return a.EmploymentStatus
	case "employer":
		return a.Employer
	case "business_name":
		return a.BusinessName
	case "ein":
		return a.EIN
	}
	return ""
}

func (a Applicant) checkInput() fieldcheck.Input {
	return fieldcheck.Input{
		FullName:   a.FullName(),
		Email:      a.Email,
		Phone:      a.Phone,
		NationalID: a.SSN,
		Address: fieldcheck.Address{
			Street:     a.Address.Street,
			PostalCode: a.Address.ZipCode,
			State:      a.Address.State,
		},
		BirthDate: a.DateOfBirth,
	}
}

func (a Applicant) country() string {
	if a.Address.Country == "" {
		return "US"
	}
	return strings.ToUpper(a.Address.Country)
}

func (a Applicant) citizenship() string {
	if a.Citizenship == "" {
		return "US"
	}
	return strings.ToUpper(a.Citizenship)
}

// Application is one account-opening request and its processing state
type Application struct {
	ID             string                 `json:"id"`
	AccountType    AccountType            `json:"account_type"`
	Applicant      Applicant              `json:"applicant"`
	Status         Status                 `json:"status"`
	Stage          Stage                  `json:"stage"`
	RiskLevel      risk.Level             `json:"risk_level"`
	FraudScore     float64                `json:"fraud_score"`
	Confidence     float64                `json:"confidence"`
	RiskScore      float64                `json:"risk_score"`
	FraudFlags     []fieldcheck.Flag      `json:"fraud_flags"`
	FieldResults   []fieldcheck.Result    `json:"field_results,omitempty"`
	TriggeredRules []string               `json:"triggered_rules"`
	Outcomes       []integrations.Outcome `json:"integration_outcomes"`
	Rationale      []string               `json:"rationale"`
	RuleSetVersion int64                  `json:"rule_set_version"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	SubmittedAt    *time.Time             `json:"submitted_at,omitempty"`
	DecidedAt      *time.Time             `json:"decided_at,omitempty"`
}

// Clone returns a deep copy so callers never share mutable state
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	out := *a
	out.FraudFlags = append([]fieldcheck.Flag(nil), a.FraudFlags...)
	out.TriggeredRules = append([]string(nil), a.TriggeredRules...)
	out.Rationale = append([]string(nil), a.Rationale...)

	if a.FieldResults != nil {
		out.FieldResults = make([]fieldcheck.Result, len(a.FieldResults))
		for i, r := range a.FieldResults {
			r.Flags = append([]fieldcheck.Flag(nil), r.Flags...)
			out.FieldResults[i] = r
		}
	}
	if a.Outcomes != nil {
		out.Outcomes = make([]integrations.Outcome, len(a.Outcomes))
		copy(out.Outcomes, a.Outcomes)
	}
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		out.SubmittedAt = &t
	}
	if a.DecidedAt != nil {
		t := *a.DecidedAt
		out.DecidedAt = &t
	}
	return &out
}

// StatusView is the get_status projection
type StatusView struct {
	ID        string     `json:"id"`
	Stage     Stage      `json:"stage"`
	Status    Status     `json:"status"`
	RiskLevel risk.Level `json:"risk_level"`
	Rationale []string   `json:"rationale"`
}

// CreateApplicationRequest opens a draft
type CreateApplicationRequest struct {
	AccountType AccountType `json:"account_type" validate:"required,account_type"`
	Applicant   Applicant   `json:"applicant"`
}

// ValidationReport is every field check plus the score they imply
type ValidationReport struct {
	ApplicationID string              `json:"application_id"`
	Results       []fieldcheck.Result `json:"results"`
	FraudScore    float64             `json:"fraud_score"`
	Confidence    float64             `json:"confidence"`
	Flags         []fieldcheck.Flag   `json:"flags"`
	RiskLevel     risk.Level          `json:"risk_level"`
}
