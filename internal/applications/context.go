package applications

import (
	"strings"
	"time"

	"github.com/richxcame/account-onboarding/internal/facts"
	"github.com/richxcame/account-onboarding/internal/fieldcheck"
	"github.com/richxcame/account-onboarding/internal/integrations"
	"github.com/richxcame/account-onboarding/internal/risk"
)

// age returns the applicant's age at now, false when the birth date does not parse
func (a Applicant) age(now time.Time) (int, bool) {
	dob, err := time.Parse(fieldcheck.DateLayout, strings.TrimSpace(a.DateOfBirth))
	if err != nil {
		return 0, false
	}
	return fieldcheck.AgeOn(dob, now), true
}

func (a Applicant) profile(now time.Time) risk.Profile {
	age, known := a.age(now)
	return risk.Profile{
		Age:          age,
		AgeKnown:     known,
		Citizenship:  a.citizenship(),
		AnnualIncome: a.AnnualIncome,
	}
}

// baseFacts is the context available before any integration has run
func baseFacts(app *Application, now time.Time) facts.Facts {
	a := app.Applicant

	flags := make([]facts.Value, 0, len(app.FraudFlags))
	for _, f := range app.FraudFlags {
		flags = append(flags, facts.String(string(f)))
	}
	ssnPattern := false
	for _, r := range app.FieldResults {
		if r.Category == fieldcheck.CategoryNationalID {
			ssnPattern = r.Has(fieldcheck.FlagSequentialID) || r.Has(fieldcheck.FlagRepeatedDigits)
		}
	}

	f := facts.Facts{
		facts.VarAccountType:      facts.String(string(app.AccountType)),
		facts.VarAnnualIncome:     facts.Number(a.AnnualIncome),
		facts.VarCitizenship:      facts.String(a.citizenship()),
		facts.VarState:            facts.String(strings.ToUpper(a.Address.State)),
		facts.VarCountry:          facts.String(a.country()),
		facts.VarInitialDeposit:   facts.Number(a.InitialDeposit),
		facts.VarEmploymentStatus: facts.String(a.EmploymentStatus),
		facts.VarHasEIN:           facts.Bool(strings.TrimSpace(a.EIN) != ""),
		facts.VarOverdraft:        facts.Bool(a.OverdraftRequested),
		facts.VarSSNPattern:       facts.Bool(ssnPattern),
		facts.VarFraudFlags:       facts.List(flags...),
		facts.VarAIFraudScore:     facts.Number(app.FraudScore),
		facts.VarAIConfidence:     facts.Number(app.Confidence),
		facts.VarRiskScore:        facts.Number(app.RiskScore),
	}
	if age, ok := a.age(now); ok {
		f[facts.VarAge] = facts.Number(float64(age))
	}
	return f
}

func subjectFor(app *Application) integrations.Subject {
	a := app.Applicant
	return integrations.Subject{
		ApplicationID:    app.ID,
		AccountType:      string(app.AccountType),
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		Email:            a.Email,
		Phone:            a.Phone,
		NationalID:       a.SSN,
		DateOfBirth:      a.DateOfBirth,
		Street:           a.Address.Street,
		City:             a.Address.City,
		State:            a.Address.State,
		PostalCode:       a.Address.ZipCode,
		Country:          a.country(),
		Citizenship:      a.citizenship(),
		EmploymentStatus: a.EmploymentStatus,
		Employer:         a.Employer,
		AnnualIncome:     a.AnnualIncome,
		BusinessName:     a.BusinessName,
		EIN:              a.EIN,
	}
}
