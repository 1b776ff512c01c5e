package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{name: "seconds", input: "10s", expected: 10 * time.Second},
		{name: "milliseconds", input: "100ms", expected: 100 * time.Millisecond},
		{name: "days", input: "1d", expected: 24 * time.Hour},
		{name: "fractional days", input: "1.5d", expected: 36 * time.Hour},
		{name: "weeks", input: "2w", expected: 14 * 24 * time.Hour},
		{name: "garbage", input: "soon", wantErr: true},
		{name: "unknown suffix", input: "3y", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg struct {
				Timeout Duration `yaml:"timeout"`
			}
			err := yaml.Unmarshal([]byte("timeout: "+tt.input), &cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.Timeout.ToDuration())
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"5s"`), &d))
	assert.Equal(t, 5*time.Second, d.ToDuration())

	require.NoError(t, json.Unmarshal([]byte(`1000000`), &d))
	assert.Equal(t, time.Millisecond, d.ToDuration())

	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	out, err := json.Marshal(Duration(1500 * time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(out))
}

func TestDuration_OrDefault(t *testing.T) {
	assert.Equal(t, 3*time.Second, Duration(0).OrDefault(3*time.Second))
	assert.Equal(t, time.Second, Duration(time.Second).OrDefault(3*time.Second))
}
