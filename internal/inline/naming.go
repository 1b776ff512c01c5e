package inline

import (
	"fmt"
	"strings"

	"github.com/edgecomet/pagesaver/internal/common/urlutil"
	"github.com/edgecomet/pagesaver/pkg/types"
)

// guessExtension picks an extension from hints in the URL, defaulting to jpg.
func guessExtension(rawURL string) string {
	lower := strings.ToLower(rawURL)
	for _, ext := range []string{"gif", "png", "webp", "svg"} {
		if strings.Contains(lower, ext) {
			return ext
		}
	}
	return "jpg"
}

// splitName returns base and extension of a file name, guessing the
// extension from rawURL when the name has none.
func splitName(name, rawURL string) (string, string) {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return strings.TrimSuffix(name, "."), guessExtension(rawURL)
	}
	return name[:i], name[i+1:]
}

// ImageFilename names the index-th image of a snapshot:
// img_007_<sanitized base>.<ext>.
func ImageFilename(index int, rawURL string) string {
	name := urlutil.BaseName(rawURL)
	if name == "" {
		name = fmt.Sprintf("image_%d", index)
	}
	base, ext := splitName(name, rawURL)
	return fmt.Sprintf("img_%03d_%s.%s", index, types.SanitizeFilename(base), ext)
}

// BackgroundFilename names a background image saved next to the snapshot:
// bg_img_<index>_<sanitized base>.<ext>.
func BackgroundFilename(index int, rawURL string) string {
	name := urlutil.BaseName(rawURL)
	if name == "" {
		name = "image.jpg"
	}
	base, ext := splitName(name, rawURL)
	return types.SanitizeFilename(fmt.Sprintf("bg_img_%d_%s", index, base)) + "." + ext
}
