package resourcecache

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/pierrec/lz4/v4"
)

// Compression algorithms.
const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
	CompressionLZ4    = "lz4"
)

// CompressionMinSize is the size below which entries are stored raw.
const CompressionMinSize = 1024

// every stored entry starts with one tag byte naming its codec
const (
	tagNone   byte = 'n'
	tagSnappy byte = 's'
	tagLZ4    byte = 'l'
)

// Encode compresses content with algorithm and prefixes the codec tag.
// Content under CompressionMinSize is stored raw.
func Encode(content []byte, algorithm string) ([]byte, error) {
	if len(content) < CompressionMinSize {
		algorithm = CompressionNone
	}

	switch algorithm {
	case CompressionSnappy:
		return append([]byte{tagSnappy}, snappy.Encode(nil, content)...), nil

	case CompressionLZ4:
		// stream format embeds the size
		var buf bytes.Buffer
		buf.WriteByte(tagLZ4)
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(content); err != nil {
			w.Close()
			return nil, fmt.Errorf("lz4 compression failed: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compression close failed: %w", err)
		}
		return buf.Bytes(), nil

	case CompressionNone, "":
		return append([]byte{tagNone}, content...), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, algorithm)
	}
}

// Decode reverses Encode.
func Decode(entry []byte) ([]byte, error) {
	if len(entry) == 0 {
		return nil, fmt.Errorf("%w: empty entry", ErrDecompression)
	}

	tag, payload := entry[0], entry[1:]
	switch tag {
	case tagNone:
		return payload, nil

	case tagSnappy:
		out, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: snappy: %v", ErrDecompression, err)
		}
		return out, nil

	case tagLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrDecompression, err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: tag %q", ErrDecompression, tag)
	}
}
