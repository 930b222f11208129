package applications

import (
	"sort"

	"github.com/richxcame/account-onboarding/internal/integrations"
	"github.com/richxcame/account-onboarding/internal/risk"
	"github.com/richxcame/account-onboarding/internal/rules"
)

// Workflow declares how one account type is processed
type Workflow struct {
	AccountType    AccountType `json:"account_type"`
	RequiredFields []string    `json:"required_fields"`
	// Integrations run at the integrations stage, in this order.
	Integrations         []string                `json:"integrations"`
	AutoApproveThreshold risk.Level              `json:"auto_approve_threshold"`
	TerminalActions      map[rules.Action]Status `json:"terminal_actions"`
}

// TerminalSet is the blocking action set handed to the rule engine
func (w Workflow) TerminalSet() map[rules.Action]bool {
	set := make(map[rules.Action]bool, len(w.TerminalActions))
	for a := range w.TerminalActions {
		set[a] = true
	}
	return set
}

// Catalog maps account types to their workflow
type Catalog map[AccountType]Workflow

// For returns the workflow for t
func (c Catalog) For(t AccountType) (Workflow, bool) {
	w, ok := c[t]
	return w, ok
}

// List returns the workflows ordered by account type
func (c Catalog) List() []Workflow {
	out := make([]Workflow, 0, len(c))
	for _, w := range c {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountType < out[j].AccountType })
	return out
}

var personalFields = []string{
	"first_name",
	"last_name",
	"email",
	"phone",
	"date_of_birth",
	"ssn",
	"address.street",
	"address.city",
	"address.state",
	"address.zip_code",
}

var coreIntegrations = []string{
	integrations.IDIdentityVerification,
	integrations.IDCreditCheck,
	integrations.IDKYCScreening,
	integrations.IDFraudDatabase,
}

func defaultTerminal() map[rules.Action]Status {
	return map[rules.Action]Status{
		rules.ActionReject:              StatusRejected,
		rules.ActionFlagFraud:           StatusRejected,
		rules.ActionRequireManualReview: StatusInReview,
	}
}

// DefaultCatalog is the workflow set shipped with the service
func DefaultCatalog() Catalog {
	with := func(base []string, extra ...string) []string {
		return append(append([]string(nil), base...), extra...)
	}

	c := Catalog{}
	for _, t := range []AccountType{AccountPersonalChecking, AccountPersonalSavings} {
		c[t] = Workflow{
			AccountType:          t,
			RequiredFields:       with(personalFields),
			Integrations:         with(coreIntegrations),
			AutoApproveThreshold: risk.LevelLow,
			TerminalActions:      defaultTerminal(),
		}
	}
	for _, t := range []AccountType{AccountBusinessChecking, AccountBusinessSavings} {
		c[t] = Workflow{
			AccountType:          t,
			RequiredFields:       with(personalFields, "business_name"),
			Integrations:         with(coreIntegrations, integrations.IDDocumentVerification),
			AutoApproveThreshold: risk.LevelLow,
			TerminalActions:      defaultTerminal(),
		}
	}
	c[AccountMinor] = Workflow{
		AccountType:    AccountMinor,
		RequiredFields: with(personalFields),
		Integrations: []string{
			integrations.IDIdentityVerification,
			integrations.IDKYCScreening,
			integrations.IDFraudDatabase,
		},
		AutoApproveThreshold: risk.LevelLow,
		TerminalActions:      defaultTerminal(),
	}

	highRisk := defaultTerminal()
	highRisk[rules.ActionFlagManualReview] = StatusInReview
	c[AccountHighRiskFlagged] = Workflow{
		AccountType:    AccountHighRiskFlagged,
		RequiredFields: with(personalFields, "citizenship", "employment_status"),
		Integrations: with(coreIntegrations,
			integrations.IDDocumentVerification,
			integrations.IDEmploymentVerification,
		),
		AutoApproveThreshold: risk.LevelLow,
		TerminalActions:      highRisk,
	}
	return c
}
