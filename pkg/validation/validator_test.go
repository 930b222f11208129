package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAddress struct {
	State string `json:"state" validate:"required,len=2"`
}

type testRequest struct {
	AccountType string      `json:"account_type" validate:"required,account_type"`
	DateOfBirth string      `json:"date_of_birth" validate:"omitempty,isodate"`
	Email       string      `json:"email" validate:"omitempty,email"`
	Address     testAddress `json:"address"`
}

func TestValidateStruct_Valid(t *testing.T) {
	req := testRequest{
		AccountType: "personal_checking",
		DateOfBirth: "1990-04-01",
		Email:       "jane@bank.io",
		Address:     testAddress{State: "CA"},
	}
	assert.NoError(t, ValidateStruct(&req))
}

func TestValidateStruct_ReportsJSONFieldPaths(t *testing.T) {
	req := testRequest{
		AccountType: "crypto_wallet",
		DateOfBirth: "04/01/1990",
		Email:       "not-an-email",
	}

	err := ValidateStruct(&req)
	require.Error(t, err)

	verr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, []string{"account_type", "address.state", "date_of_birth", "email"}, verr.Fields())

	msg, found := verr.GetFieldError("date_of_birth")
	assert.True(t, found)
	assert.Contains(t, msg, "YYYY-MM-DD")
}

func TestValidationError_AddError(t *testing.T) {
	verr := &ValidationError{}
	assert.False(t, verr.HasErrors())

	verr.AddError("ssn", "ssn is required")
	verr.AddError("email", "email is required")

	assert.True(t, verr.HasErrors())
	assert.Equal(t, "email: email is required; ssn: ssn is required", verr.Error())
}
