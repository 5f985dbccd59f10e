package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil stays nil", input: nil, expected: nil},
		{name: "empty stays empty", input: []string{}, expected: []string{}},
		{name: "trims and keeps first occurrence", input: []string{" valid ", "revoked", "valid"}, expected: []string{"valid", "revoked"}},
		{name: "drops blanks", input: []string{"", "  ", "expired"}, expected: []string{"expired"}},
		{name: "keeps case", input: []string{"Valid", "valid"}, expected: []string{"Valid", "valid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	assert.Equal(t, []string{"valid", "not_found"}, DedupeAndTrimLower([]string{"VALID", " valid", "Not_Found", ""}))
}

func TestSplitList(t *testing.T) {
	got := SplitList([]string{"valid,revoked", "tampered", ""})
	assert.Equal(t, []string{"valid", "revoked", "tampered", ""}, got)
	assert.Equal(t, []string{"valid", "revoked", "tampered"}, DedupeAndTrimLower(SplitList([]string{"valid, revoked", "TAMPERED,valid"})))
	assert.Nil(t, SplitList(nil))
}
