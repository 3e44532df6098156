package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/gh-issue-slot/pkg/github"
	"github.com/Sternrassler/gh-issue-slot/pkg/report"
	"github.com/Sternrassler/gh-issue-slot/pkg/selection"
)

const shortFooter = "There weren't enough..."

// renderSelection prints a numbered list of titles and links.
func renderSelection(w io.Writer, sel selection.Selection) error {
	if _, err := fmt.Fprintln(w, sel.Title); err != nil {
		return err
	}
	for i, item := range sel.Items {
		if _, err := fmt.Fprintf(w, "%d. %s\n   %s\n", i+1, item.Title, item.HTMLURL); err != nil {
			return err
		}
	}
	if sel.Short {
		if _, err := fmt.Fprintln(w, shortFooter); err != nil {
			return err
		}
	}
	return nil
}

// noticePrinter writes notices to w as they happen.
func noticePrinter(w io.Writer) report.Reporter {
	return report.Func(func(_ context.Context, title, description string) {
		if title == "" {
			fmt.Fprintf(w, "! %s\n", description)
			return
		}
		fmt.Fprintf(w, "! %s %s\n", title, description)
	})
}

// itemView is the JSON form of an item.
type itemView struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newItemViews(items []github.Item) []itemView {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, itemView{
			Number:    item.Number,
			Title:     item.Title,
			Body:      item.Body,
			HTMLURL:   item.HTMLURL,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		})
	}
	return views
}
