package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxIDLength matches the length of a UUID string.
	MaxIDLength  = 36
	PrefixLength = 5
	maxLabelLen  = MaxIDLength - PrefixLength - 1
)

var (
	invalidChars = regexp.MustCompile(`[^a-zA-Z0-9-]+`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// New returns an identifier for a snapshot or download. A non-empty label is
// sanitized to [a-zA-Z0-9-] and prefixed with five random hex characters;
// otherwise a UUID is returned.
func New(label string) string {
	clean := strings.ReplaceAll(label, " ", "-")
	clean = invalidChars.ReplaceAllString(clean, "")
	clean = hyphenRuns.ReplaceAllString(clean, "-")
	clean = strings.Trim(clean, "-")

	if clean == "" {
		return uuid.New().String()
	}
	if len(clean) > maxLabelLen {
		clean = clean[:maxLabelLen]
	}
	return randomPrefix() + "-" + clean
}

func randomPrefix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return uuid.New().String()[:PrefixLength]
	}
	return hex.EncodeToString(buf)[:PrefixLength]
}
