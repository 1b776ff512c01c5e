package requestid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Label(t *testing.T) {
	id := New("Report_full.html")
	parts := strings.SplitN(id, "-", 2)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], PrefixLength)
	assert.Equal(t, "Reportfullhtml", parts[1])
}

func TestNew_EmptyFallsBackToUUID(t *testing.T) {
	for _, label := range []string{"", "   ", "!!!"} {
		_, err := uuid.Parse(New(label))
		assert.NoError(t, err, label)
	}
}

func TestNew_Truncated(t *testing.T) {
	id := New(strings.Repeat("a", 100))
	assert.LessOrEqual(t, len(id), MaxIDLength)
}

func TestNew_UUIDsDiffer(t *testing.T) {
	assert.NotEqual(t, New(""), New(""))
}
