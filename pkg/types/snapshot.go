package types

import (
	"fmt"
	"time"
)

// Mode selects what part of the page a snapshot covers.
type Mode string

const (
	ModeFull      Mode = "full"
	ModeSelection Mode = "selection"
)

// ParseMode accepts "full" and "selection" (case-sensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeSelection:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown snapshot mode %q", s)
	}
}

// FilenameSuffix is appended to the sanitized title.
func (m Mode) FilenameSuffix() string {
	if m == ModeSelection {
		return "_selection.html"
	}
	return "_full.html"
}

// PageSnapshotRequest is created when a save action is triggered and consumed once.
type PageSnapshotRequest struct {
	Mode        Mode      `json:"mode"`
	SourceURL   string    `json:"source_url"`
	SourceTitle string    `json:"source_title"`
	Timestamp   time.Time `json:"timestamp"`
}

// ResourceKind classifies an external reference found in a subtree.
type ResourceKind int

const (
	ResourceImage ResourceKind = iota
	ResourceStylesheet
	ResourceBackgroundImage
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceImage:
		return "image"
	case ResourceStylesheet:
		return "stylesheet"
	case ResourceBackgroundImage:
		return "background"
	default:
		return "unknown"
	}
}

// InlineableResource lives for one assembly pass.
type InlineableResource struct {
	OriginalURL string
	Kind        ResourceKind
	ResolvedURL string
}

// EmbedKind tags an EmbedResult.
type EmbedKind int

const (
	EmbedEmbedded EmbedKind = iota
	EmbedLinkedExternal
	EmbedPlaceholder
)

func (k EmbedKind) String() string {
	switch k {
	case EmbedEmbedded:
		return "embedded"
	case EmbedLinkedExternal:
		return "linked"
	case EmbedPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// EmbedResult is exactly one outcome for one InlineableResource.
// Only the fields of the tagged kind are set.
type EmbedResult struct {
	Kind EmbedKind

	// DataURI is set for EmbedEmbedded.
	DataURI string

	// URL and CORSAttributes are set for EmbedLinkedExternal.
	URL            string
	CORSAttributes map[string]string

	// Markup is set for EmbedPlaceholder.
	Markup string
}

func Embedded(dataURI string) EmbedResult {
	return EmbedResult{Kind: EmbedEmbedded, DataURI: dataURI}
}

func LinkedExternal(url string, attrs map[string]string) EmbedResult {
	return EmbedResult{Kind: EmbedLinkedExternal, URL: url, CORSAttributes: attrs}
}

func Placeholder(markup string) EmbedResult {
	return EmbedResult{Kind: EmbedPlaceholder, Markup: markup}
}

// AssembledDocument is the serialized snapshot handed to delivery.
type AssembledDocument struct {
	HTML              string
	SuggestedFilename string
	// ResourceFolder is the sibling folder that may hold saved resources,
	// relative to the snapshot.
	ResourceFolder string
	Mode           Mode
	SourceURL      string
}

// DeliveryTier identifies which persistence strategy produced an outcome.
type DeliveryTier string

const (
	TierDownload DeliveryTier = "download"
	TierAnchor   DeliveryTier = "anchor"
	TierManual   DeliveryTier = "manual"
)

// DeliveryOutcome is either Saved(path) or Failed(reason).
type DeliveryOutcome struct {
	Saved  bool         `json:"saved"`
	Path   string       `json:"path,omitempty"`
	Reason string       `json:"reason,omitempty"`
	Tier   DeliveryTier `json:"tier,omitempty"`

	// PathGuessed marks a best-effort path that was not reported by the writer.
	PathGuessed bool `json:"guessed,omitempty"`

	// PDF is the conversion result; empty when not attempted or failed.
	PDF string `json:"pdf,omitempty"`
}

func Saved(path string, tier DeliveryTier) DeliveryOutcome {
	return DeliveryOutcome{Saved: true, Path: path, Tier: tier}
}

func Failed(reason string, tier DeliveryTier) DeliveryOutcome {
	return DeliveryOutcome{Saved: false, Reason: reason, Tier: tier}
}
