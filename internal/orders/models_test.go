package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"pending", "processing", "completed", "cancelled"} {
		s, err := ParseStatus(valid)
		require.NoError(t, err, "input %q", valid)
		assert.Equal(t, Status(valid), s)
	}

	for _, invalid := range []string{"", "shipped", "PENDING", "done"} {
		_, err := ParseStatus(invalid)
		assert.ErrorIs(t, err, ErrInvalidStatus, "input %q", invalid)
	}
}
