// Package filter narrows item sequences without doing any I/O.
package filter

import (
	"iter"

	"github.com/Sternrassler/gh-issue-slot/pkg/github"
)

// PendingReview yields the items that request a review from login, in input
// order. It pulls one upstream item per step.
func PendingReview(items iter.Seq[github.Item], login string) iter.Seq[github.Item] {
	return Where(items, func(item github.Item) bool {
		return item.HasRequestedReviewer(login)
	})
}

// Where yields the items keep accepts.
func Where(items iter.Seq[github.Item], keep func(github.Item) bool) iter.Seq[github.Item] {
	return func(yield func(github.Item) bool) {
		for item := range items {
			if keep(item) && !yield(item) {
				return
			}
		}
	}
}
