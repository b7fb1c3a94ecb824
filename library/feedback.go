package library

import (
	"context"
	"log"
	"strings"
)

// MsgFeedbackFailed is shown when the service gives no detail.
const MsgFeedbackFailed = "failed to submit feedback"

// FeedbackService is the slice of the API the feedback form needs.
type FeedbackService interface {
	FeedbackCategories(ctx context.Context) ([]FeedbackCategory, error)
	CreateFeedback(ctx context.Context, in FeedbackCreate) (*Feedback, error)
}

// FeedbackResult describes a successful submission.
type FeedbackResult struct {
	Feedback *Feedback
	Message  string
	IssueURL string
}

// FeedbackForm collects feedback. Categories are looked up once per form.
type FeedbackForm struct {
	Title       string
	Description string
	Category    string
	AuthorName  string
	Message     string

	api        FeedbackService
	categories []FeedbackCategory
	log        *log.Logger
}

func NewFeedbackForm(api FeedbackService, l *log.Logger) *FeedbackForm {
	if l == nil {
		l = log.Default()
	}
	return &FeedbackForm{Category: CategoryImprovement, api: api, log: l}
}

// Categories returns the allowed categories, fetching them on first use.
// If the lookup fails the built-in set is used and not retried.
func (f *FeedbackForm) Categories(ctx context.Context) []FeedbackCategory {
	if f.categories != nil {
		return f.categories
	}
	cats, err := f.api.FeedbackCategories(ctx)
	if err != nil || len(cats) == 0 {
		if err != nil {
			f.log.Printf("[feedback] load categories: %v", err)
		}
		cats = DefaultCategories
	}
	f.categories = cats
	return cats
}

// Submit sends the feedback. Any blank field sends nothing; a category
// outside the lookup fails with ErrUnknownCategory before any request.
func (f *FeedbackForm) Submit(ctx context.Context) (*FeedbackResult, error) {
	f.Message = ""
	in := FeedbackCreate{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Category:    strings.TrimSpace(f.Category),
		AuthorName:  strings.TrimSpace(f.AuthorName),
	}
	if in.Title == "" || in.Description == "" || in.Category == "" || in.AuthorName == "" {
		return nil, nil
	}
	if !f.known(ctx, in.Category) {
		f.Message = ErrUnknownCategory.Error()
		return nil, ErrUnknownCategory
	}

	fb, err := f.api.CreateFeedback(ctx, in)
	if err != nil {
		f.log.Printf("[feedback] submit failed: %v", err)
		f.Message = UserMessage(err, MsgFeedbackFailed)
		return nil, err
	}

	res := &FeedbackResult{Feedback: fb, Message: "Feedback sent."}
	if fb.GithubIssueURL != nil && *fb.GithubIssueURL != "" {
		res.IssueURL = *fb.GithubIssueURL
		res.Message = "Feedback sent and a GitHub issue was created."
	}
	f.Title, f.Description, f.AuthorName = "", "", ""
	f.Category = CategoryImprovement
	return res, nil
}

func (f *FeedbackForm) known(ctx context.Context, category string) bool {
	for _, c := range f.Categories(ctx) {
		if c.Value == category {
			return true
		}
	}
	return false
}
