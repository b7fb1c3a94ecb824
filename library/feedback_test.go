package library_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"library-lending/devserver"
	"library-lending/library"
)

type fakeFeedback struct {
	cats      []library.FeedbackCategory
	catCalls  int
	catErr    error
	created   []library.FeedbackCreate
	createErr error
	issueURL  string
}

func (f *fakeFeedback) FeedbackCategories(context.Context) ([]library.FeedbackCategory, error) {
	f.catCalls++
	return f.cats, f.catErr
}

func (f *fakeFeedback) CreateFeedback(_ context.Context, in library.FeedbackCreate) (*library.Feedback, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	fb := &library.Feedback{ID: int64(len(f.created)), Title: in.Title}
	if f.issueURL != "" {
		u := f.issueURL
		fb.GithubIssueURL = &u
	}
	return fb, nil
}

func filled(form *library.FeedbackForm) {
	form.Title = "Sorting"
	form.Description = "Sort by author too"
	form.Category = library.CategoryFeature
	form.AuthorName = "Taro"
}

func TestFeedbackCategoriesLoadedOnce(t *testing.T) {
	svc := &fakeFeedback{catErr: errors.New("offline")}
	form := library.NewFeedbackForm(svc, quiet())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cats := form.Categories(ctx)
		if len(cats) != len(library.DefaultCategories) {
			t.Fatalf("want built-in categories on failure, got %+v", cats)
		}
	}
	if svc.catCalls != 1 {
		t.Fatalf("categories should be looked up once, got %d", svc.catCalls)
	}
}

func TestFeedbackDefaultsToImprovement(t *testing.T) {
	form := library.NewFeedbackForm(&fakeFeedback{}, quiet())
	if form.Category != library.CategoryImprovement {
		t.Fatalf("want improvement, got %q", form.Category)
	}
}

func TestFeedbackBlankFieldSendsNothing(t *testing.T) {
	svc := &fakeFeedback{}
	form := library.NewFeedbackForm(svc, quiet())
	filled(form)
	form.Description = " "

	res, err := form.Submit(context.Background())
	if res != nil || err != nil {
		t.Fatalf("want skip, got %+v %v", res, err)
	}
	if len(svc.created) != 0 || svc.catCalls != 0 {
		t.Fatalf("blank field must not send anything")
	}
}

func TestFeedbackUnknownCategory(t *testing.T) {
	svc := &fakeFeedback{}
	form := library.NewFeedbackForm(svc, quiet())
	filled(form)
	form.Category = "praise"

	_, err := form.Submit(context.Background())
	if !errors.Is(err, library.ErrUnknownCategory) {
		t.Fatalf("want ErrUnknownCategory, got %v", err)
	}
	if len(svc.created) != 0 {
		t.Fatalf("unknown category must not be sent")
	}
}

func TestFeedbackSuccessResetsForm(t *testing.T) {
	svc := &fakeFeedback{}
	form := library.NewFeedbackForm(svc, quiet())
	filled(form)

	res, err := form.Submit(context.Background())
	if err != nil || res == nil {
		t.Fatalf("submit: %+v %v", res, err)
	}
	if res.IssueURL != "" || res.Message != "Feedback sent." {
		t.Fatalf("unexpected result %+v", res)
	}
	if form.Title != "" || form.Description != "" || form.AuthorName != "" || form.Category != library.CategoryImprovement {
		t.Fatalf("form not reset: %+v", form)
	}
	if got := svc.created[0]; got.Category != library.CategoryFeature || got.AuthorName != "Taro" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestFeedbackFailureKeepsFields(t *testing.T) {
	svc := &fakeFeedback{createErr: errors.New("boom")}
	form := library.NewFeedbackForm(svc, quiet())
	filled(form)

	if _, err := form.Submit(context.Background()); err == nil {
		t.Fatalf("want error")
	}
	if form.Message != library.MsgFeedbackFailed {
		t.Fatalf("want fallback message, got %q", form.Message)
	}
	if form.Title != "Sorting" || form.Category != library.CategoryFeature {
		t.Fatalf("fields should survive a failure")
	}
}

func TestFeedbackWithIssueOverHTTP(t *testing.T) {
	h := newHarness(t, devserver.Options{IssueBaseURL: "https://github.com/example/library/issues"})
	form := library.NewFeedbackForm(h.api, quiet())
	filled(form)
	ctx := context.Background()

	res, err := form.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.IssueURL != "https://github.com/example/library/issues/1" {
		t.Fatalf("unexpected issue URL %q", res.IssueURL)
	}
	if !strings.Contains(res.Message, "GitHub issue") {
		t.Fatalf("message should mention the issue: %q", res.Message)
	}

	items, err := h.api.ListFeedback(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("list: %+v %v", items, err)
	}
	if items[0].CreatedAt.IsZero() || items[0].AuthorName != "Taro" {
		t.Fatalf("unexpected feedback %+v", items[0])
	}
}

type mapCache struct {
	m    map[string][]library.Recommendation
	gets int
}

func (c *mapCache) Get(_ context.Context, q string) ([]library.Recommendation, bool) {
	c.gets++
	r, ok := c.m[q]
	return r, ok
}

func (c *mapCache) Put(_ context.Context, q string, recs []library.Recommendation) {
	c.m[q] = recs
}

func TestRecommendForm(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	h.srv.Seed([2]string{"Kokoro", "Natsume Soseki"}, [2]string{"Rashomon", "Akutagawa"})
	cache := &mapCache{m: map[string][]library.Recommendation{}}
	form := library.NewRecommendForm(h.api, cache, quiet())
	ctx := context.Background()

	form.Query = "  "
	if ok, err := form.Submit(ctx); ok || err != nil || h.srv.Hits() != 0 {
		t.Fatalf("blank query must not be sent")
	}

	form.Query = "natsume"
	if ok, err := form.Submit(ctx); !ok || err != nil {
		t.Fatalf("submit: ok=%v err=%v", ok, err)
	}
	if len(form.Results) != 1 || form.Results[0].Title != "Kokoro" || form.Results[0].AmazonURL == "" {
		t.Fatalf("unexpected results %+v", form.Results)
	}

	hits := h.srv.Hits()
	if ok, _ := form.Submit(ctx); !ok || len(form.Results) != 1 {
		t.Fatalf("cached submit failed")
	}
	if h.srv.Hits() != hits {
		t.Fatalf("second identical query should be served from the cache")
	}
}

func TestRecommendFormEmptyResultNotCached(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	cache := &mapCache{m: map[string][]library.Recommendation{}}
	form := library.NewRecommendForm(h.api, cache, quiet())
	form.Query = "nothing matches"

	if ok, err := form.Submit(context.Background()); !ok || err != nil {
		t.Fatalf("submit: ok=%v err=%v", ok, err)
	}
	if len(form.Results) != 0 || len(cache.m) != 0 {
		t.Fatalf("empty answers should not be cached")
	}
}

func TestRecommendFormNilCache(t *testing.T) {
	h := newHarness(t, devserver.Options{})
	var nilCache *library.RedisCache
	form := library.NewRecommendForm(h.api, nilCache, quiet())
	form.Query = "anything"
	if _, err := form.Submit(context.Background()); err != nil {
		t.Fatalf("a nil cache should be a pass-through: %v", err)
	}
}
