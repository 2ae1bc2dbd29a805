package table

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		raw  string
		kind Kind
		want string
	}{
		{"", KindNull, ""},
		{"true", KindBool, "true"},
		{"TRUE", KindBool, "true"},
		{"False", KindBool, "false"},
		{"42", KindNumber, "42"},
		{"-0.5", KindNumber, "-0.5"},
		{".5", KindNumber, "0.5"},
		{"1e3", KindNumber, "1000"},
		{"1e", KindString, "1e"},
		{"0x10", KindString, "0x10"},
		{"NaN", KindString, "NaN"},
		{"12 apples", KindString, "12 apples"},
		{"   ", KindString, "   "},
		{"9007199254740991", KindNumber, "9007199254740991"},
		{"9007199254740992", KindString, "9007199254740992"},
		{"-9007199254740993", KindString, "-9007199254740993"},
		{"12345678901234567890", KindString, "12345678901234567890"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := Infer(tt.raw)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestValueIsEmpty(t *testing.T) {
	assert.True(t, Null().IsEmpty())
	assert.True(t, String(" \t").IsEmpty())
	assert.False(t, String("x").IsEmpty())
	assert.False(t, Number(0).IsEmpty())
	assert.False(t, Bool(false).IsEmpty())
}

func TestValueMarshalJSON(t *testing.T) {
	data, err := json.Marshal([]Value{String("a\"b"), Number(2.5), Number(3), Bool(true), Null()})
	require.NoError(t, err)
	assert.JSONEq(t, `["a\"b", 2.5, 3, true, null]`, string(data))
}

func TestProfile(t *testing.T) {
	tbl, err := Parse("Name,Cost,Mixed\nA,10,1\nB,20,x\nC,,\n", DefaultOptions())
	require.NoError(t, err)

	profiles := tbl.Profile()
	require.Len(t, profiles, 3)

	cost := profiles[1]
	assert.Equal(t, "Cost", cost.Column)
	assert.Equal(t, "number", cost.Kind)
	assert.Equal(t, 1, cost.Empty)
	assert.InDelta(t, 2.0/3.0, cost.FillRate, 1e-9)
	require.NotNil(t, cost.Mean)
	assert.Equal(t, 15.0, *cost.Mean)
	assert.Equal(t, 10.0, *cost.Min)
	assert.Equal(t, 20.0, *cost.Max)

	assert.Equal(t, "string", profiles[0].Kind)
	assert.Nil(t, profiles[0].Mean)
	assert.Equal(t, "mixed", profiles[2].Kind)
}
