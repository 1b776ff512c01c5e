package resourcecache

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContent(size int) []byte {
	return bytes.Repeat([]byte("The quick brown fox jumps over the lazy dog. "), size/45+1)[:size]
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		size      int
		shrinks   bool
	}{
		{"snappy", CompressionSnappy, 4000, true},
		{"lz4", CompressionLZ4, 4000, true},
		{"none", CompressionNone, 4000, false},
		{"empty algorithm", "", 4000, false},
		{"below threshold", CompressionSnappy, CompressionMinSize - 1, false},
		{"empty content", CompressionLZ4, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := testContent(tt.size)
			entry, err := Encode(original, tt.algorithm)
			require.NoError(t, err)
			if tt.shrinks {
				assert.Less(t, len(entry), len(original))
			} else {
				assert.Equal(t, len(original)+1, len(entry))
			}

			decoded, err := Decode(entry)
			require.NoError(t, err)
			assert.Equal(t, original, decoded)
		})
	}
}

func TestEncode_UnknownAlgorithm(t *testing.T) {
	_, err := Encode(testContent(2000), "zstd")
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestDecode_Corrupt(t *testing.T) {
	for name, entry := range map[string][]byte{
		"empty":       nil,
		"unknown tag": []byte("xabc"),
		"bad snappy":  {tagSnappy, 0xff, 0xff, 0xff, 0xff, 0xff},
		"bad lz4":     {tagLZ4, 1, 2, 3, 4, 5, 6, 7},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(entry)
			assert.ErrorIs(t, err, ErrDecompression)
		})
	}
}
