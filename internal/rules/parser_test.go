package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/account-onboarding/internal/facts"
)

func TestParse_Precedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"age < 18", "(age < 18)"},
		{"a or b and c", "(a or (b and c))"},
		{"(a or b) and c", "((a or b) and c)"},
		{"not a and b", "((not a) and b)"},
		{"not not a", "(not (not a))"},
		{"x not in ['a', 'b'] or y", "((x not in [\"a\", \"b\"]) or y)"},
		{"account_type.startswith('business') and not has_ein", "((account_type startswith \"business\") and (not has_ein))"},
		{"name endswith \"Jr\"", "(name endswith \"Jr\")"},
		{"score >= -0.5", "(score >= -0.5)"},
		{"flag == True", "(flag == true)"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.String())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"",
		"age <",
		"age < 18 and",
		"(age < 18",
		"age = 18",
		"age < 18 < 20",
		"state in ['CA', ",
		"state in [age]",
		"'unterminated",
		"age.lower()",
		"age # 3",
		"and",
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := parse(src)
			assert.Error(t, err)
		})
	}
}

func TestParse_RejectsNonASCIIIdentifiers(t *testing.T) {
	tests := []struct {
		src     string
		wantPos int
	}{
		{"âge < 18", 0},
		{"age < 18 and éstado == 'CA'", 13},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := parse(tt.src)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantPos, perr.Pos)
		})
	}
}

func TestCompile_TypeChecks(t *testing.T) {
	schema := facts.Full()

	valid := []string{
		"age < 18 and account_type != 'minor_account'",
		"state in ['CA', 'NY']",
		"'po_box_address' in fraud_flags",
		"credit_tier not in ['poor', 'fair']",
		"'business' in account_type",
		"fraud_db_hit or kyc_status contains 'review'",
		"all_verifications_passed == true",
	}
	for _, src := range valid {
		t.Run("valid "+src, func(t *testing.T) {
			_, err := compile(src, schema)
			assert.NoError(t, err)
		})
	}

	invalid := []string{
		"income > 10",
		"age",
		"age < 'x'",
		"age and has_ein",
		"not age",
		"state in [1, 2]",
		"[1, 'a'] == age",
		"age startswith 'a'",
		"fraud_flags == fraud_flags",
		"has_ein < true",
	}
	for _, src := range invalid {
		t.Run("invalid "+src, func(t *testing.T) {
			_, err := compile(src, schema)
			assert.Error(t, err)
		})
	}
}

func TestEval_ShortCircuit(t *testing.T) {
	e, err := compile("age >= 18 and kyc_status == 'clear'", facts.Full())
	require.NoError(t, err)

	ok, err := evalBool(e, facts.Facts{facts.VarAge: facts.Number(16)})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = evalBool(e, facts.Facts{facts.VarAge: facts.Number(30)})
	var undef *undefinedError
	require.ErrorAs(t, err, &undef)
	assert.Equal(t, facts.VarKYCStatus, undef.name)
}

func TestEval_Operators(t *testing.T) {
	f := facts.Facts{
		facts.VarAge:         facts.Number(30),
		facts.VarState:       facts.String("CA"),
		facts.VarAccountType: facts.String("business_checking"),
		facts.VarFraudFlags:  facts.List(facts.String("po_box_address")),
		facts.VarHasEIN:      facts.Bool(false),
	}

	tests := []struct {
		src  string
		want bool
	}{
		{"age <= 30", true},
		{"age > 30", false},
		{"age != 31", true},
		{"state in ['CA', 'NY']", true},
		{"state not in ['CA', 'NY']", false},
		{"'po_box_address' in fraud_flags", true},
		{"'sequential_id' in fraud_flags", false},
		{"account_type.endswith('checking')", true},
		{"account_type contains 'savings'", false},
		{"not has_ein", true},
		{"state < 'NY'", true},
		{"has_ein == false", true},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := compile(tt.src, facts.Full())
			require.NoError(t, err)
			got, err := evalBool(e, f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
