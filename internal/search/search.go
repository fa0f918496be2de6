// Package search defines the web search capability used by job research and
// its Google Custom Search implementation.
package search

import (
	"context"
	"fmt"
	"strings"
)

// Depth controls how much content each result carries.
type Depth string

const (
	// DepthBasic returns the provider's snippets.
	DepthBasic Depth = "basic"
	// DepthThorough replaces snippets with the main text of each page.
	DepthThorough Depth = "thorough"
)

// ParseDepth accepts basic, thorough and advanced (an alias of thorough).
func ParseDepth(s string) (Depth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return DepthBasic, nil
	case "thorough", "advanced":
		return DepthThorough, nil
	default:
		return "", fmt.Errorf("unknown search depth %q", s)
	}
}

// Options are the per-call search parameters.
type Options struct {
	MaxResults        int
	Depth             Depth
	IncludeRawContent bool
}

// Result is one ranked search hit.
type Result struct {
	Title      string
	Content    string
	URL        string
	RawContent string
}

// Flatten renders the result as "{title}: {content}".
func (r Result) Flatten() string {
	return r.Title + ": " + r.Content
}

// Client searches the web. Results are ordered by relevance and never exceed
// opts.MaxResults.
type Client interface {
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

// SearchError reports a transport or quota failure.
type SearchError struct {
	Query   string
	Message string
	Cause   error
}

func (e *SearchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("search %q failed: %s: %v", e.Query, e.Message, e.Cause)
	}
	return fmt.Sprintf("search %q failed: %s", e.Query, e.Message)
}

func (e *SearchError) Unwrap() error {
	return e.Cause
}
