package github

import "time"

// User is a GitHub account reference.
type User struct {
	Login   string `json:"login"`
	ID      int64  `json:"id,omitempty"`
	HTMLURL string `json:"html_url,omitempty"`
}

// Label is an issue label.
type Label struct {
	Name string `json:"name"`
}

// PullRequestRef links a search result to its pull request resource.
type PullRequestRef struct {
	URL     string `json:"url"`
	HTMLURL string `json:"html_url"`
}

// Item is an issue or pull request, either a search result summary or a
// pull request detail. Items are read-only once decoded.
type Item struct {
	ID        int64     `json:"id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	URL       string    `json:"url"`
	HTMLURL   string    `json:"html_url"`
	State     string    `json:"state"`
	Draft     bool      `json:"draft,omitempty"`
	User      User      `json:"user"`
	Labels    []Label   `json:"labels,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// PullRequest is set on search results that are pull requests.
	PullRequest *PullRequestRef `json:"pull_request,omitempty"`

	// RequestedReviewers is only present on pull request details.
	RequestedReviewers []User `json:"requested_reviewers,omitempty"`
}

// IsPullRequest reports whether the item is a pull request.
func (i Item) IsPullRequest() bool {
	return i.PullRequest != nil
}

// DetailURL returns the API URL of the pull request resource, or "".
func (i Item) DetailURL() string {
	if i.PullRequest == nil {
		return ""
	}
	return i.PullRequest.URL
}

// HasRequestedReviewer reports whether login is among the requested reviewers.
func (i Item) HasRequestedReviewer(login string) bool {
	for _, r := range i.RequestedReviewers {
		if r.Login == login {
			return true
		}
	}
	return false
}
