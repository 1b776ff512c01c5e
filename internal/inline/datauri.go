package inline

import (
	"bytes"
	"encoding/base64"
	"mime"
	"net/http"
	"strings"
)

// minDataURILen and minPayloadLen reject truncated or empty encodings.
const (
	minDataURILen = 50
	minPayloadLen = 10
)

// ValidDataURI accepts data:image/... URIs longer than 50 characters whose
// payload is at least 10 characters.
func ValidDataURI(uri string) bool {
	if !strings.HasPrefix(uri, "data:image/") || len(uri) <= minDataURILen {
		return false
	}
	_, payload, ok := strings.Cut(uri, ",")
	return ok && len(payload) >= minPayloadLen
}

// EncodeDataURI base64-encodes body under the image media type it carries.
func EncodeDataURI(contentType string, body []byte) (string, error) {
	mt := imageMediaType(contentType, body)
	if mt == "" {
		return "", ErrNotImage
	}
	uri := "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(body)
	if !ValidDataURI(uri) {
		return "", ErrInvalidDataURI
	}
	return uri, nil
}

// imageMediaType trusts an image/* Content-Type, then sniffs the body.
func imageMediaType(contentType string, body []byte) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	if sniffed := http.DetectContentType(body); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if isSVG(body) {
		return "image/svg+xml"
	}
	return ""
}

// isSVG matches markup documents with an <svg> element near the top.
func isSVG(body []byte) bool {
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	head = bytes.TrimSpace(head)
	return bytes.HasPrefix(head, []byte("<")) && bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}
