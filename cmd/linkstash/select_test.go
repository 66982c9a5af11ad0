package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePicks(t *testing.T) {
	tests := []struct {
		input string
		want  []int
	}{
		{"1", []int{1}},
		{"3,1", []int{3, 1}},
		{"2-4", []int{2, 3, 4}},
		{" 1 , 3 - 4 ,", []int{1, 3, 4}},
		{"2,1-3", []int{2, 1, 3}},
	}
	for _, tt := range tests {
		got, err := parsePicks(tt.input, 5)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestParsePicksErrors(t *testing.T) {
	for _, input := range []string{"", ",", "0", "6", "a", "4-2", "1-x", "5-7"} {
		_, err := parsePicks(input, 5)
		assert.Error(t, err, input)
	}
}
