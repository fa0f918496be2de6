package fetch

import (
	"net/url"
	"strings"
)

// Source is a site family with its own page layout.
type Source string

const (
	// SourceWikipedia is any Wikipedia language edition.
	SourceWikipedia Source = "wikipedia"
	// SourceOccupationalOutlook is the US BLS Occupational Outlook Handbook.
	SourceOccupationalOutlook Source = "occupational_outlook"
	// SourceGeneric is any other site.
	SourceGeneric Source = "generic"
)

// DetectSource identifies the site family of a URL.
func DetectSource(urlStr string) Source {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return SourceGeneric
	}
	host := strings.ToLower(parsed.Host)

	switch {
	case strings.HasSuffix(host, "wikipedia.org"):
		return SourceWikipedia
	case strings.HasSuffix(host, "bls.gov") && strings.HasPrefix(parsed.Path, "/ooh"):
		return SourceOccupationalOutlook
	default:
		return SourceGeneric
	}
}

// SourceContentSelectors returns the content selectors for a source.
func SourceContentSelectors(source Source) []string {
	switch source {
	case SourceWikipedia:
		return []string{"#mw-content-text", "#content"}
	case SourceOccupationalOutlook:
		return []string{"#panes", "#main-content", "main"}
	default:
		return DefaultTextSelectors()
	}
}

// SourceNoiseSelectors returns elements to drop before text extraction.
func SourceNoiseSelectors(source Source) []string {
	common := []string{".social-share", ".share-buttons", ".cookie-consent", ".newsletter-signup"}
	switch source {
	case SourceWikipedia:
		return append(common, ".reference", ".reflist", ".navbox", ".mw-editsection", ".infobox", "#toc")
	case SourceOccupationalOutlook:
		return append(common, "#ooh-jump-links", ".breadcrumbs")
	default:
		return common
	}
}
