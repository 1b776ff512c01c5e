package inline

import (
	"encoding/base64"
	"fmt"
	"html"
	"strconv"
	"strings"
)

const (
	defaultPlaceholderWidth  = 200
	defaultPlaceholderHeight = 150
	maxPlaceholderSide       = 16384
	captionURLLen            = 40
)

// PlaceholderSVG renders the stand-in for an image that could not be
// embedded or loaded, as a data URI.
func PlaceholderSVG(width, height int, filename, originalURL string) (string, error) {
	if width <= 0 {
		width = defaultPlaceholderWidth
	}
	if height <= 0 {
		height = defaultPlaceholderHeight
	}
	if width > maxPlaceholderSide || height > maxPlaceholderSide {
		return "", fmt.Errorf("%w: %dx%d", ErrPlaceholder, width, height)
	}
	if filename == "" {
		filename = "image"
	}

	source := "N/A"
	if originalURL != "" {
		source = truncateRunes(originalURL, captionURLLen)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, width, height)
	b.WriteString(`<rect width="100%" height="100%" fill="#f8f9fa" stroke="#dee2e6" stroke-width="2"/>`)
	b.WriteString(`<text x="50%" y="35%" text-anchor="middle" font-family="Arial, sans-serif" font-size="14" fill="#495057" font-weight="bold">Image</text>`)
	fmt.Fprintf(&b, `<text x="50%%" y="50%%" text-anchor="middle" font-family="Arial, sans-serif" font-size="11" fill="#6c757d">%s</text>`, html.EscapeString(filename))
	fmt.Fprintf(&b, `<text x="50%%" y="65%%" text-anchor="middle" font-family="Arial, sans-serif" font-size="9" fill="#adb5bd">%d×%d</text>`, width, height)
	fmt.Fprintf(&b, `<text x="50%%" y="80%%" text-anchor="middle" font-family="Arial, sans-serif" font-size="8" fill="#ced4da">Source: %s</text>`, html.EscapeString(source))
	b.WriteString(`</svg>`)

	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(b.String())), nil
}

// PlaceholderBox is the plain fallback when no SVG can be made: a grey box
// showing the alt text.
func PlaceholderBox(width, height int, alt string) string {
	if width <= 0 || width > maxPlaceholderSide {
		width = 100
	}
	if height <= 0 || height > maxPlaceholderSide {
		height = 50
	}
	if alt == "" {
		alt = "Image"
	}
	return `<div data-wcs-placeholder="true" style="display: inline-block; width: ` + strconv.Itoa(width) +
		`px; height: ` + strconv.Itoa(height) + `px; background: #f0f0f0; border: 1px solid #ddd; text-align: center; line-height: ` +
		strconv.Itoa(height) + `px; font-size: 12px; color: #666;">` + html.EscapeString(alt) + `</div>`
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
