package types

import (
	"regexp"
	"strings"
)

var (
	filenameStrip    = regexp.MustCompile(`[^\w\s-]`)
	filenameSpaceRun = regexp.MustCompile(`\s+`)
)

// DefaultFilenameStem is used when a title sanitizes to nothing.
const DefaultFilenameStem = "webpage"

// SanitizeFilename keeps word characters, whitespace and hyphens, trims,
// and collapses whitespace runs to a single underscore.
func SanitizeFilename(s string) string {
	s = filenameStrip.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return filenameSpaceRun.ReplaceAllString(s, "_")
}

// FilenameStem is SanitizeFilename with the DefaultFilenameStem fallback.
func FilenameStem(title string) string {
	if stem := SanitizeFilename(title); stem != "" {
		return stem
	}
	return DefaultFilenameStem
}

// SnapshotFilename is the suggested file name for a snapshot of title.
func SnapshotFilename(title string, mode Mode) string {
	return FilenameStem(title) + mode.FilenameSuffix()
}

// ResourceFolder is the sibling folder that holds resources saved next to
// a snapshot of title.
func ResourceFolder(title string) string {
	return FilenameStem(title) + "_files"
}
