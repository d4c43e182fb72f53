package rag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xhad/tome/pkg/rag"
)

func TestNormalizeTenantName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"mixed case with punctuation", "My Team 42!", "my_team_42"},
		{"already canonical", "my_team_42", "my_team_42"},
		{"uppercase only", "ACME", "acme"},
		{"spaces become underscores", "a b c", "a_b_c"},
		{"symbols stripped", "sales&marketing", "salesmarketing"},
		{"unicode stripped", "café", "caf"},
		{"punctuation around a space", "!!! ???", "_"},
		{"nothing usable", "!!!", ""},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rag.NormalizeTenantName(tt.in))
		})
	}
}
