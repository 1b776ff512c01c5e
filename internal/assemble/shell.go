package assemble

import (
	"fmt"
	"html"
	"strings"
	"time"
)

const doctype = "<!DOCTYPE html>\n"

// correctiveCSS is appended to full-page snapshots.
const correctiveCSS = `
img { max-width: 100%; height: auto; }
.blind, .u_skip { position: absolute !important; clip: rect(0,0,0,0) !important; }
`

const shellBaseCSS = `
    * {
      box-sizing: border-box;
    }

    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
      line-height: 1.6;
      margin: 20px;
      padding: 20px;
      background: white;
    }

    .source-info {
      background: #f5f5f5;
      padding: 10px;
      margin-bottom: 20px;
      border-left: 4px solid #2196F3;
      font-size: 12px;
    }

    .selected-content-item {
      margin-bottom: 30px;
      padding-bottom: 20px;
      border-bottom: 1px solid #eee;
      position: relative;
      overflow: visible;
    }

    .selected-content-item:last-child {
      border-bottom: none;
      margin-bottom: 0;
      padding-bottom: 0;
    }

    .selected-content-item img {
      max-width: 100%;
      height: auto;
    }

    .selected-content-item [style*="display: flex"],
    .selected-content-item [class*="flex"],
    .selected-content-item [class*="d-flex"] {
      display: flex !important;
    }

    .selected-content-item [style*="display: grid"],
    .selected-content-item [class*="grid"] {
      display: grid !important;
    }
`

const shellTailCSS = `
    .selected-content-item [style*="position: absolute"] {
      position: relative !important;
    }

    .selected-content-item [style*="position: fixed"] {
      position: relative !important;
    }

    .selected-content-item .blind,
    .selected-content-item .u_skip,
    .selected-content-item .sr-only,
    .selected-content-item .visually-hidden,
    .selected-content-item [style*="overflow: hidden"][style*="width: 1px"] {
      position: static !important;
      width: auto !important;
      height: auto !important;
      overflow: visible !important;
      clip: none !important;
    }
`

// TimestampLayout is how the provenance header prints the save time.
const TimestampLayout = "2006-01-02 15:04:05 MST"

type shell struct {
	Title     string
	SourceURL string
	SavedAt   time.Time
	Count     int
	CSS       string
	Items     []string
}

// render writes the standalone selection document. Items are serialized
// markup and go in verbatim; CSS is only guarded against closing its
// <style> element early.
func (s shell) render() string {
	var b strings.Builder
	b.WriteString(doctype)
	b.WriteString("<html>\n<head>\n")
	b.WriteString("  <meta charset=\"utf-8\">\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	fmt.Fprintf(&b, "  <title>Selected Content - %s</title>\n", html.EscapeString(s.Title))
	b.WriteString("  <style>")
	b.WriteString(shellBaseCSS)
	if s.CSS != "" {
		b.WriteString("\n")
		b.WriteString(escapeStyleText(s.CSS))
		b.WriteString("\n")
	}
	b.WriteString(shellTailCSS)
	b.WriteString("  </style>\n</head>\n<body>\n")

	b.WriteString("  <div class=\"source-info\">\n")
	fmt.Fprintf(&b, "    <strong>Source:</strong> %s<br>\n", html.EscapeString(s.SourceURL))
	fmt.Fprintf(&b, "    <strong>Saved at:</strong> %s<br>\n", s.SavedAt.Format(TimestampLayout))
	fmt.Fprintf(&b, "    <strong>Selected elements:</strong> %d\n", s.Count)
	b.WriteString("  </div>\n")

	b.WriteString("  <div class=\"selected-content\">\n")
	for _, item := range s.Items {
		b.WriteString("    ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	b.WriteString("  </div>\n</body>\n</html>\n")
	return b.String()
}

func escapeStyleText(css string) string {
	return strings.ReplaceAll(css, "</style", `<\/style`)
}
