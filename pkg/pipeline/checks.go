package pipeline

import (
	"context"
	"slices"

	"github.com/Sternrassler/gh-issue-slot/pkg/report"
	"github.com/Sternrassler/gh-issue-slot/pkg/search"
)

// MaxCount is the largest number of items a run returns.
const MaxCount = 10

var (
	issueNouns = []string{"issue", "issues", "ISSUE", "ISSUES"}
	prNouns    = []string{"pr", "prs", "PR", "PRs", "PRS"}
	allNouns   = []string{"all", "ALL"}
)

// CheckCount clamps n into [1, MaxCount]; out of range values become
// MaxCount and are reported.
func CheckCount(ctx context.Context, n int, rep report.Reporter) int {
	rep = report.OrNop(rep)

	switch {
	case n < 1:
		rep.Report(ctx, "Woah, there!", "I can't give you un-natural issues. I'm not a monster!!")
		return MaxCount
	case n > MaxCount:
		rep.Report(ctx, "Woah, there!", "Let's curb that enthusiasm.. just a little")
		return MaxCount
	}
	return n
}

// ParseKind maps the noun of a command to a search kind. Unknown or missing
// nouns fall back to issues.
func ParseKind(ctx context.Context, noun string, rep report.Reporter) search.Kind {
	switch {
	case slices.Contains(issueNouns, noun):
		return search.KindIssue
	case slices.Contains(prNouns, noun):
		return search.KindPullRequest
	}

	report.OrNop(rep).Report(ctx, "", "Insufficient info, defaulting to issues..")
	return search.KindIssue
}

// ResolveIdentity returns whose review queue to scan: the caller, or nobody
// for "all". An unknown caller also scans the whole queue, with a notice.
func ResolveIdentity(ctx context.Context, noun, caller string, rep report.Reporter) string {
	rep = report.OrNop(rep)

	if slices.Contains(issueNouns, noun) {
		rep.Report(ctx, "Woah, there!", "Sorry, but we don't review issues here. Up for some PRs?")
	}
	if slices.Contains(allNouns, noun) {
		return ""
	}
	if caller == "" {
		rep.Report(ctx, "", "No GitHub login given, showing the whole review queue")
	}
	return caller
}
