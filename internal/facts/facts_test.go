package facts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromInterface(t *testing.T) {
	v, err := FromInterface([]interface{}{"US", 3.0, true})
	require.NoError(t, err)
	assert.Equal(t, KindList, v.Kind())
	assert.True(t, v.Equal(List(String("US"), Number(3), Bool(true))))

	_, err = FromInterface(struct{}{})
	assert.Error(t, err)
}

func TestFacts_MergeDoesNotMutate(t *testing.T) {
	base := Facts{"age": Number(30), "state": String("CA")}
	merged := base.Merge(Facts{"age": Number(31), "kyc_status": String("clear")})

	assert.Equal(t, 30.0, base["age"].Num())
	assert.Equal(t, 31.0, merged["age"].Num())
	assert.Equal(t, []string{"age", "kyc_status", "state"}, merged.Names())
}

func TestValue_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(Facts{"flags": List(String("po_box_address")), "score": Number(0.25)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"flags":["po_box_address"],"score":0.25}`, string(raw))
}

func TestSchema_MergeConflict(t *testing.T) {
	_, err := Base().Merge(Schema{VarAge: KindString})
	assert.Error(t, err)

	merged, err := Base().Merge(Schema{"kyc_status": KindString})
	require.NoError(t, err)
	kind, ok := merged.Lookup("kyc_status")
	assert.True(t, ok)
	assert.Equal(t, KindString, kind)
}

func TestFull_IncludesIntegrationVariables(t *testing.T) {
	full := Full()

	k, ok := full.Lookup(VarKYCStatus)
	require.True(t, ok)
	assert.Equal(t, KindString, k)

	k, ok = full.Lookup(VarAge)
	require.True(t, ok)
	assert.Equal(t, KindNumber, k)

	assert.Len(t, full, len(Base())+len(Integrations()))
}
