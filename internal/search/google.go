package search

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/fetch"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/logging"
)

// MaxGoogleResults is the largest page size Custom Search allows.
const MaxGoogleResults = 10

// DefaultContentChars bounds page text used as result content.
const DefaultContentChars = 1500

// GoogleClient implements Client with the Google Custom Search JSON API.
type GoogleClient struct {
	svc          *customsearch.Service
	cx           string
	pages        *fetch.CachedFetcher
	contentChars int
	concurrency  int
}

// GoogleOption configures a GoogleClient.
type GoogleOption func(*GoogleClient)

// WithFetcher sets the page fetcher used for thorough and raw content.
func WithFetcher(f *fetch.CachedFetcher) GoogleOption {
	return func(c *GoogleClient) { c.pages = f }
}

// WithContentChars sets the maximum length of thorough result content.
func WithContentChars(n int) GoogleOption {
	return func(c *GoogleClient) { c.contentChars = n }
}

// WithFetchConcurrency bounds parallel page fetches per search.
func WithFetchConcurrency(n int) GoogleOption {
	return func(c *GoogleClient) { c.concurrency = n }
}

// NewGoogleClient creates a client for the search engine cx. Extra
// clientOpts are handed to the API client, e.g. option.WithEndpoint in tests.
func NewGoogleClient(ctx context.Context, apiKey, cx string, opts []GoogleOption, clientOpts ...option.ClientOption) (*GoogleClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("search API key is required")
	}
	if cx == "" {
		return nil, fmt.Errorf("search engine id (cx) is required")
	}
	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, clientOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	c := &GoogleClient{
		svc:          svc,
		cx:           cx,
		contentChars: DefaultContentChars,
		concurrency:  4,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pages == nil {
		c.pages = fetch.NewCachedFetcher(nil, 0)
	}
	return c, nil
}

// Search implements Client.
func (c *GoogleClient) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	logger := logging.FromContext(ctx).With().Str("component", "search").Str("query", query).Logger()

	num := opts.MaxResults
	if num < 1 {
		num = 1
	}
	if num > MaxGoogleResults {
		num = MaxGoogleResults
	}

	resp, err := c.svc.Cse.List().Context(ctx).Cx(c.cx).Q(query).Num(int64(num)).Do()
	if err != nil {
		return nil, &SearchError{Query: query, Message: "request failed", Cause: err}
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Link == "" {
			continue
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(item.Title),
			Content: strings.TrimSpace(item.Snippet),
			URL:     item.Link,
		})
		if len(results) == num {
			break
		}
	}

	if opts.Depth == DepthThorough || opts.IncludeRawContent {
		c.enrich(ctx, results, opts)
	}
	logger.Debug().Int("results", len(results)).Str("depth", string(opts.Depth)).Msg("search finished")
	return results, nil
}

// enrich fetches each result page in parallel. A page that cannot be fetched
// keeps its snippet.
func (c *GoogleClient) enrich(ctx context.Context, results []Result, opts Options) {
	logger := logging.FromContext(ctx)

	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i := range results {
		g.Go(func() error {
			page, err := c.pages.Fetch(gctx, results[i].URL)
			if err != nil {
				logger.Debug().Err(err).Str("url", results[i].URL).Msg("page fetch failed, keeping snippet")
				return nil
			}
			if page.Text == "" {
				return nil
			}
			if opts.Depth == DepthThorough {
				results[i].Content = fetch.Truncate(page.Text, c.contentChars)
			}
			if opts.IncludeRawContent {
				results[i].RawContent = page.Text
			}
			return nil
		})
	}
	_ = g.Wait()
}
