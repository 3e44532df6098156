// Package search models GitHub issue search queries and fetches their
// result pages.
package search

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Kind selects issues or pull requests.
type Kind string

const (
	KindIssue       Kind = "issue"
	KindPullRequest Kind = "pr"
)

// Plural returns the kind as used in selection titles.
func (k Kind) Plural() string {
	if k == KindPullRequest {
		return "PR(s)"
	}
	return "issue(s)"
}

// State selects open or closed items.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// Sort keys accepted by the search endpoint.
const (
	SortCreated  = "created"
	SortUpdated  = "updated"
	SortComments = "comments"
)

// Query is a GitHub issue search.
type Query struct {
	// Repository as "owner/name"
	Repository string
	State      State
	Kind       Kind

	// IncludeLabels must all be present, ExcludeLabels must all be absent.
	IncludeLabels []string
	ExcludeLabels []string

	Sort      string
	Ascending bool
}

// Validate checks the query before it is sent.
func (q Query) Validate() error {
	owner, name, ok := strings.Cut(q.Repository, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("repository must be owner/name (got %q)", q.Repository)
	}

	switch q.Kind {
	case KindIssue, KindPullRequest:
	default:
		return fmt.Errorf("unknown kind %q", q.Kind)
	}

	switch q.State {
	case StateOpen, StateClosed:
	default:
		return fmt.Errorf("unknown state %q", q.State)
	}

	switch q.Sort {
	case "", SortCreated, SortUpdated, SortComments:
	default:
		return fmt.Errorf("unknown sort key %q", q.Sort)
	}

	// Labels are sent as quoted qualifiers, which cannot nest quotes.
	for _, label := range slices.Concat(q.IncludeLabels, q.ExcludeLabels) {
		if label == "" || strings.Contains(label, `"`) {
			return fmt.Errorf("label %q must be non-empty and free of double quotes", label)
		}
	}

	return nil
}

// Terms returns the search qualifiers in the order they are sent, unencoded.
func (q Query) Terms() []string {
	terms := make([]string, 0, 3+len(q.ExcludeLabels)+len(q.IncludeLabels))
	terms = append(terms,
		"is:"+string(q.Kind),
		"repo:"+q.Repository,
		"is:"+string(q.State),
	)
	for _, label := range q.ExcludeLabels {
		terms = append(terms, `-label:"`+label+`"`)
	}
	for _, label := range q.IncludeLabels {
		terms = append(terms, `label:"`+label+`"`)
	}
	return terms
}

// String returns the query as typed into the GitHub search box.
func (q Query) String() string {
	return strings.Join(q.Terms(), " ")
}

// Order returns the order parameter.
func (q Query) Order() string {
	if q.Ascending {
		return "asc"
	}
	return "desc"
}

// SortKey returns Sort, defaulting to creation time.
func (q Query) SortKey() string {
	if q.Sort == "" {
		return SortCreated
	}
	return q.Sort
}

// Encode renders the query string of one result page.
//
// Qualifier values are form encoded with double quotes kept literal, so the
// decoded q parameter is exactly String().
func (q Query) Encode(page, perPage int) string {
	terms := make([]string, 0, 3+len(q.ExcludeLabels)+len(q.IncludeLabels))
	terms = append(terms,
		"is:"+string(q.Kind),
		"repo:"+escape(q.Repository),
		"is:"+string(q.State),
	)
	for _, label := range q.ExcludeLabels {
		terms = append(terms, `-label:"`+escape(label)+`"`)
	}
	for _, label := range q.IncludeLabels {
		terms = append(terms, `label:"`+escape(label)+`"`)
	}

	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(strings.Join(terms, "+"))
	b.WriteString("&sort=")
	b.WriteString(url.QueryEscape(q.SortKey()))
	b.WriteString("&order=")
	b.WriteString(q.Order())
	b.WriteString("&page=")
	b.WriteString(strconv.Itoa(page))
	b.WriteString("&per_page=")
	b.WriteString(strconv.Itoa(perPage))
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "%22", `"`)
}
