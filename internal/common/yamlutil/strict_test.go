package yamlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Listen string `yaml:"listen"`
	Batch  int    `yaml:"batch"`
}

func TestUnmarshalStrict(t *testing.T) {
	var s sample
	require.NoError(t, UnmarshalStrict([]byte("listen: \":8080\"\nbatch: 5\n"), &s))
	assert.Equal(t, ":8080", s.Listen)
	assert.Equal(t, 5, s.Batch)
}

func TestUnmarshalStrict_UnknownField(t *testing.T) {
	var s sample
	err := UnmarshalStrict([]byte("listen: \":8080\"\nbatchsize: 5\n"), &s)
	assert.ErrorContains(t, err, "unknown configuration field")
}

func TestUnmarshalStrict_Empty(t *testing.T) {
	s := sample{Batch: 3}
	require.NoError(t, UnmarshalStrict(nil, &s))
	assert.Equal(t, 3, s.Batch)
}
