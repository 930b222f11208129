package integrations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/richxcame/account-onboarding/pkg/resilience"
)

// Integration ids known to the default catalog.
const (
	IDIdentityVerification   = "identity_verification"
	IDCreditCheck            = "credit_check"
	IDKYCScreening           = "kyc_screening"
	IDFraudDatabase          = "fraud_database"
	IDDocumentVerification   = "document_verification"
	IDEmploymentVerification = "employment_verification"
)

// ErrCallTimeout is recorded when a single attempt outlives its policy timeout.
var ErrCallTimeout = errors.New("integration call timed out")

// Status of a settled integration call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusTimeout Status = "timeout"
)

// Subject is the applicant view sent to verification services.
type Subject struct {
	ApplicationID    string  `json:"application_id"`
	AccountType      string  `json:"account_type"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Email            string  `json:"email"`
	Phone            string  `json:"phone"`
	NationalID       string  `json:"ssn"`
	DateOfBirth      string  `json:"date_of_birth"`
	Street           string  `json:"street"`
	City             string  `json:"city"`
	State            string  `json:"state"`
	PostalCode       string  `json:"zip_code"`
	Country          string  `json:"country"`
	Citizenship      string  `json:"citizenship"`
	EmploymentStatus string  `json:"employment_status,omitempty"`
	Employer         string  `json:"employer,omitempty"`
	AnnualIncome     float64 `json:"annual_income,omitempty"`
	BusinessName     string  `json:"business_name,omitempty"`
	EIN              string  `json:"ein,omitempty"`
}

// Request is one attempt at one integration.
type Request struct {
	RequestID     string
	IntegrationID string
	Attempt       int
	Subject       Subject
}

// Client calls a single external verification service. Implementations
// must honour ctx cancellation; the deadline on ctx is the per-call timeout.
type Client interface {
	Call(ctx context.Context, req Request) (map[string]interface{}, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (map[string]interface{}, error)

func (f ClientFunc) Call(ctx context.Context, req Request) (map[string]interface{}, error) {
	return f(ctx, req)
}

// Permanent marks a client error that retrying cannot fix.
func Permanent(err error) error {
	return resilience.Permanent(err)
}

// Outcome is the settled result of one requested integration.
type Outcome struct {
	IntegrationID string                 `json:"integration_id"`
	Status        Status                 `json:"status"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	Latency       time.Duration          `json:"latency"`
	RequestID     string                 `json:"request_id"`
	Error         string                 `json:"error,omitempty"`
	Attempts      int                    `json:"attempts"`
}

// OK reports whether the call succeeded.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// ConfigurationError lists requested integrations that have no registered client.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no client registered for integration(s): %s", strings.Join(e.Missing, ", "))
}
