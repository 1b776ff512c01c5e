package capture

import (
	"go.uber.org/zap"

	"github.com/edgecomet/pagesaver/pkg/pattern"
)

// thirdPartyPatterns are request URLs aborted during capture when third-party
// blocking is on: analytics, ad networks and chat widgets.
var thirdPartyPatterns = []string{
	"*doubleclick.net*",
	"*google-analytics.com*",
	"*analytics.google.com*",
	"*googleadservices.com*",
	"*googlesyndication.com*",
	"*googletagservices.com*",
	"*googletagmanager.com*",
	"*connect.facebook.net*",
	"*hotjar.com*",
	"*clarity.ms*",
	"*static.cloudflareinsights.com*",
	"*intercom.io*",
	"*intercomcdn.com*",
	"*drift.com*",
	"*driftt.com*",
	"*zendesk.com*",
	"*zdassets.com*",
	"*tawk.to*",
	"*crisp.chat*",
}

// Blocklist decides which subresource requests are aborted during capture.
type Blocklist struct {
	patterns pattern.List
}

// NewBlocklist combines the built-in third-party list (when enabled) with
// custom patterns. Invalid custom patterns are logged and skipped.
func NewBlocklist(thirdParty bool, custom []string, logger *zap.Logger) *Blocklist {
	var raws []string
	if thirdParty {
		raws = append(raws, thirdPartyPatterns...)
	}
	raws = append(raws, custom...)

	bl := &Blocklist{}
	for _, raw := range raws {
		p, err := pattern.Compile(raw)
		if err != nil {
			logger.Warn("Skipping invalid blocked pattern", zap.String("pattern", raw), zap.Error(err))
			continue
		}
		bl.patterns = append(bl.patterns, p)
	}
	return bl
}

// IsBlocked reports whether requestURL matches any pattern.
func (b *Blocklist) IsBlocked(requestURL string) bool {
	if b == nil {
		return false
	}
	return b.patterns.MatchAny(requestURL) != nil
}

func (b *Blocklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.patterns)
}
