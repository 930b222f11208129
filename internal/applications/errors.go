package applications

import (
	"errors"

	"github.com/richxcame/account-onboarding/pkg/validation"
)

var (
	// ErrNotFound is returned when no application has the requested id
	ErrNotFound = errors.New("application not found")
	// ErrConcurrencyConflict is returned when another pass holds the application
	ErrConcurrencyConflict = errors.New("application is already being processed")
	// ErrStaleRuleSet is returned when the rule set changed during a pass in strict mode
	ErrStaleRuleSet = errors.New("rule set changed during evaluation")
	// ErrNotDraft is returned when editing or submitting an application that already left draft
	ErrNotDraft = errors.New("application is no longer a draft")
	// ErrUnknownAccountType is returned when no workflow is declared for the account type
	ErrUnknownAccountType = errors.New("no workflow for account type")
)

// ValidationError lists missing or malformed applicant fields keyed by json path
type ValidationError = validation.ValidationError
