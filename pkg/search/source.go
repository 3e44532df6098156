package search

import (
	"context"
	"fmt"

	"github.com/Sternrassler/gh-issue-slot/pkg/github"
	"github.com/Sternrassler/gh-issue-slot/pkg/pagination"
)

// IssuesPath is the issue search endpoint.
const IssuesPath = "/search/issues"

// Result is the body of a search answer.
type Result struct {
	TotalCount        int           `json:"total_count"`
	IncompleteResults bool          `json:"incomplete_results"`
	Items             []github.Item `json:"items"`
}

// PageSource fetches the result pages of one query.
type PageSource struct {
	client *github.Client
	query  Query
}

// NewPageSource creates a page source for query.
func NewPageSource(client *github.Client, query Query) *PageSource {
	return &PageSource{client: client, query: query}
}

// Query returns the query this source pages through.
func (s *PageSource) Query() Query {
	return s.query
}

// FetchPage implements pagination.PageFetcher.
func (s *PageSource) FetchPage(ctx context.Context, pageNum, perPage int) (*pagination.Page, error) {
	rawURL := s.client.URL(IssuesPath, s.query.Encode(pageNum, perPage))

	var result Result
	header, err := s.client.GetJSON(ctx, rawURL, &result)
	if err != nil {
		return nil, fmt.Errorf("search page %d: %w", pageNum, err)
	}

	return &pagination.Page{
		Number:     pageNum,
		TotalCount: result.TotalCount,
		Incomplete: result.IncompleteResults,
		Items:      result.Items,
		Header:     header,
	}, nil
}

