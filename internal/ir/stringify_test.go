package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type point struct{ X, Y int }

type named struct{ name string }

func (n *named) String() string { return "named:" + n.name }

func TestToString(t *testing.T) {
	var nilNamed *named

	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, "null"},
		{"string", "red", "red"},
		{"int", 10, "10"},
		{"negative int64", int64(-7), "-7"},
		{"uint8", uint8(255), "255"},
		{"float64", 2.5, "2.5"},
		{"float64 integral", 3.0, "3"},
		{"float32", float32(0.1), "0.1"},
		{"bool", true, "true"},
		{"error", errors.New("boom"), "boom"},
		{"stringer", &named{"x"}, "named:x"},
		{"typed nil stringer", nilNamed, "null"},
		{"interpolator", fakeInterpolator("nested"), "nested"},
		{"struct", point{1, 2}, "{1 2}"},
		{"slice", []int{1, 2}, "[1 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToString(tt.value))
		})
	}
}
