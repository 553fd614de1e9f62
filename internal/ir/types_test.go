package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInterpolator string

func (f fakeInterpolator) Interpolate() string { return string(f) }

func TestParseType(t *testing.T) {
	tests := []struct {
		name     string
		expected Type
	}{
		{"any", TypeAny},
		{"object", TypeAny},
		{"String", TypeString},
		{"int64", TypeInt},
		{"uint", TypeUint},
		{"float64", TypeFloat},
		{"bool", TypeBool},
		{" template ", TypeTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseType(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ParseType("decimal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decimal")
}

func TestTypeConforms(t *testing.T) {
	tests := []struct {
		name  string
		typ   Type
		value any
		ok    bool
	}{
		{"any takes nil", TypeAny, nil, true},
		{"string", TypeString, "x", true},
		{"string rejects int", TypeString, 1, false},
		{"int widths", TypeInt, int8(3), true},
		{"int rejects uint", TypeInt, uint(3), false},
		{"uint", TypeUint, uint32(3), true},
		{"float32", TypeFloat, float32(1.5), true},
		{"bool", TypeBool, false, true},
		{"template nil", TypeTemplate, nil, true},
		{"template interpolator", TypeTemplate, fakeInterpolator("x"), true},
		{"template rejects string", TypeTemplate, "x", false},
		{"invalid type", Type(99), "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.typ.Conforms(tt.value))
		})
	}
}

func TestSignatureOf(t *testing.T) {
	sig := SignatureOf([]any{"a", 1, uint8(2), 1.5, true, fakeInterpolator("t"), []int{1}, nil})
	assert.Equal(t, Signature{TypeString, TypeInt, TypeUint, TypeFloat, TypeBool, TypeTemplate, TypeAny, TypeAny}, sig)
	assert.Equal(t, "(string, int, uint, float, bool, template, any, any)", sig.String())
}

func TestParseSignature(t *testing.T) {
	sig, err := ParseSignature([]string{"int", "string"})
	require.NoError(t, err)
	assert.True(t, sig.Equal(Signature{TypeInt, TypeString}))
	assert.False(t, sig.Equal(Signature{TypeInt}))

	_, err = ParseSignature([]string{"int", "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slot 1")
}

func TestSignatureJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Signature{TypeInt, TypeTemplate})
	require.NoError(t, err)
	assert.Equal(t, `["int","template"]`, string(data))

	var sig Signature
	require.NoError(t, json.Unmarshal(data, &sig))
	assert.Equal(t, Signature{TypeInt, TypeTemplate}, sig)
}

func TestAnySignature(t *testing.T) {
	assert.Equal(t, Signature{TypeAny, TypeAny}, AnySignature(2))
	assert.Empty(t, AnySignature(0))
}
