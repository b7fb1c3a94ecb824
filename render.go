package main

import (
	"fmt"
	"io"
	"strings"

	"library-lending/library"
)

func renderBooks(w io.Writer, books []library.Book, sort library.SortSpec) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}

	titleHeader := "Title"
	switch sort.Direction {
	case library.Ascending:
		titleHeader += " ↑"
	case library.Descending:
		titleHeader += " ↓"
	}
	fmt.Fprintf(w, "%-5s %-34s %-22s %-18s %s\n", "ID", titleHeader, "Author", "Borrower", "Return date")
	fmt.Fprintln(w, strings.Repeat("-", 95))

	for _, b := range books {
		fmt.Fprintf(w, "%-5d %-34s %-22s %-18s %s\n",
			b.ID,
			truncateString(b.Title, 34),
			truncateString(orDash(b.Author), 22),
			truncateString(orDash(b.Borrower()), 18),
			displayDate(b.ReturnDate),
		)
	}
}

// displayDate formats a return date as yyyy/MM/dd.
func displayDate(d *library.Date) string {
	if d == nil || d.IsZero() {
		return "-"
	}
	return d.Format("2006/01/02")
}

func renderFeedback(w io.Writer, items []library.Feedback) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No feedback yet.")
		return
	}
	for _, f := range items {
		fmt.Fprintf(w, "#%d [%s] %s\n", f.ID, f.Category, f.Title)
		fmt.Fprintf(w, "    by %s", f.AuthorName)
		if !f.CreatedAt.IsZero() {
			fmt.Fprintf(w, " on %s", f.CreatedAt.Local().Format("2006/01/02 15:04"))
		}
		fmt.Fprintln(w)
		if f.Description != "" {
			fmt.Fprintf(w, "    %s\n", f.Description)
		}
		if f.GithubIssueURL != nil && *f.GithubIssueURL != "" {
			fmt.Fprintf(w, "    issue: %s\n", *f.GithubIssueURL)
		}
	}
}

func printFeedbackResult(w io.Writer, res *library.FeedbackResult) {
	fmt.Fprintln(w, res.Message)
	if res.IssueURL != "" {
		fmt.Fprintf(w, "Issue: %s\n", res.IssueURL)
	}
}

func renderRecommendations(w io.Writer, recs []library.Recommendation) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recommendations found.")
		return
	}
	for i, r := range recs {
		fmt.Fprintf(w, "%d. %s", i+1, r.Title)
		if r.Author != "" {
			fmt.Fprintf(w, " / %s", r.Author)
		}
		fmt.Fprintln(w)
		if r.RecommendationReason != "" {
			fmt.Fprintf(w, "   %s\n", r.RecommendationReason)
		}
		if r.AmazonURL != "" {
			fmt.Fprintf(w, "   %s\n", r.AmazonURL)
		}
	}
}

func printWhoami(a *app) {
	u := a.session.User()
	if u == nil || !a.session.IsAuthenticated() {
		fmt.Fprintln(a.out, "Not signed in.")
		return
	}
	fmt.Fprintf(a.out, "Signed in as %s (@%s).\n", u.DisplayName, u.Username)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
