package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyJSONArray(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`["a","b"]`, JSONKindArray},
		{` [] `, JSONKindArray},
		{``, JSONKindNull},
		{`null`, JSONKindNull},
		{`{"a":1}`, JSONKindObject},
		{`"[\"a\",\"b\"]"`, JSONKindDoubleEncoded},
		{`"plain"`, JSONKindScalar},
		{`42`, JSONKindScalar},
		{`[broken`, JSONKindInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyJSONArray([]byte(tc.in)))
		})
	}
}

func TestJSONListMarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"array", `["A","B"]`, `["A","B"]`},
		{"double encoded", `"[\"A\",\"B\"]"`, `["A","B"]`},
		{"null", `null`, `[]`},
		{"empty", ``, `[]`},
		{"object", `{"a":1}`, `[]`},
		{"garbage", `[broken`, `[]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(JSONList(tc.raw))
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(b))
		})
	}
}

func TestLegacyColumnsServedAsArrays(t *testing.T) {
	legacy := JSONList(`"[\"calculus\"]"`)

	b, err := json.Marshal(Tutor{Name: "Ana", Specialties: legacy})
	require.NoError(t, err)
	var tutor map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &tutor))
	assert.Equal(t, []interface{}{"calculus"}, tutor["specialties"])

	b, err = json.Marshal(PreAssessmentQuestion{Question: "Pick", Options: JSONList(`"[\"A\",\"B\"]"`)})
	require.NoError(t, err)
	var q map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &q))
	assert.Equal(t, []interface{}{"A", "B"}, q["options"])

	b, err = json.Marshal(ProfanityViolation{})
	require.NoError(t, err)
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &v))
	assert.Equal(t, []interface{}{}, v["detected_words"])
}

func TestJSONListRoundTrip(t *testing.T) {
	var back JSONList
	require.NoError(t, json.Unmarshal([]byte(`["x","y"]`), &back))
	assert.Equal(t, `["x","y"]`, string(back))

	val, err := JSONArray([]string{"x"}).Value()
	require.NoError(t, err)
	assert.Equal(t, `["x"]`, val)

	var scanned JSONList
	require.NoError(t, scanned.Scan([]byte(`"[\"x\"]"`)))
	out, err := json.Marshal(scanned)
	require.NoError(t, err)
	assert.Equal(t, `["x"]`, string(out))
}

func TestJSONArrayNeverNull(t *testing.T) {
	assert.Equal(t, "[]", string(JSONArray(nil)))
	assert.Equal(t, "[]", string(JSONArray([]string(nil))))
	assert.Equal(t, `["a"]`, string(JSONArray([]string{"a"})))
}
