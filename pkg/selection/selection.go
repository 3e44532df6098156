// Package selection turns item sequences into the bounded list shown to the
// user.
package selection

import (
	"fmt"
	"iter"
	"math/rand/v2"

	"github.com/Sternrassler/gh-issue-slot/pkg/github"
	"github.com/Sternrassler/gh-issue-slot/pkg/search"
)

// Selection is the final answer of a run.
type Selection struct {
	Items []github.Item
	Title string

	// Requested is the number of items asked for.
	Requested int

	// Short is set when fewer than Requested items were available.
	Short bool
}

func newSelection(items []github.Item, n int, title string) Selection {
	return Selection{
		Items:     items,
		Title:     title,
		Requested: n,
		Short:     len(items) < n,
	}
}

// Stage transforms a lazy sequence into another one.
type Stage func(iter.Seq[github.Item]) iter.Seq[github.Item]

// RandomSample draws n items uniformly at random with replacement, so the
// same item can appear more than once.
func RandomSample(items []github.Item, n int, rng *rand.Rand) Selection {
	title := fmt.Sprintf("%d random picks out of %d:", n, len(items))
	if len(items) == 0 {
		return newSelection(nil, n, title)
	}

	chosen := make([]github.Item, 0, n)
	for range n {
		chosen = append(chosen, items[rng.IntN(len(items))])
	}
	return newSelection(chosen, n, title)
}

// OldestPrefix returns the first n items of a list already sorted oldest
// first.
func OldestPrefix(items []github.Item, n int, kind search.Kind) Selection {
	chosen := items[:min(n, len(items))]
	title := fmt.Sprintf("Oldest %d %s in feedback queue:", n, kind.Plural())
	return newSelection(chosen, n, title)
}

// ReviewQueueScan collects the first n pull requests waiting for identity.
// pending turns source into the matching items; source is not pulled past
// the n-th match. With an empty identity the first n items of source are
// taken as they are.
func ReviewQueueScan(source iter.Seq[github.Item], n int, identity string, pending Stage) Selection {
	if identity == "" {
		title := fmt.Sprintf("Oldest %d PR(s) in review queue:", n)
		return newSelection(Take(source, n), n, title)
	}

	title := fmt.Sprintf("Oldest %d PR(s) for @%s:", n, identity)
	return newSelection(Take(pending(source), n), n, title)
}

// Take collects up to n items and stops pulling once it has them.
func Take(seq iter.Seq[github.Item], n int) []github.Item {
	if n <= 0 {
		return nil
	}

	out := make([]github.Item, 0, n)
	for item := range seq {
		out = append(out, item)
		if len(out) == n {
			break
		}
	}
	return out
}
