package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0601234567", "+381601234567"},
		{"060 123 4567", "+381601234567"},
		{"+381601234567", "+381601234567"},
		{"+381 60 123 4567", "+381601234567"},
		{"064/123-4567", "+381641234567"},
		{"064/123-45-67", "+381641234567"},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestNormalizePhone_Invalid(t *testing.T) {
	for _, input := range []string{
		"123",
		"",
		"0501234567",      // not a mobile prefix
		"+38160123",       // too short
		"+381601234567890", // too long
		"abc",
	} {
		_, err := NormalizePhone(input)
		assert.ErrorIs(t, err, ErrInvalidPhone, "input %q", input)
	}
}
