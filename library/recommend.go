package library

import (
	"context"
	"log"
	"strings"
)

const MsgRecommendFailed = "failed to fetch recommendations"

// ExampleQueries are offered as starting points.
var ExampleQueries = []string{
	"Books for programming beginners",
	"I want to learn about machine learning",
	"Self-improvement and business skills",
	"Can you recommend a good mystery novel?",
	"Looking for an interesting history book",
}

type Recommender interface {
	Recommend(ctx context.Context, query string) ([]Recommendation, error)
}

// RecommendationCache stores answers per query. Implementations must fail open.
type RecommendationCache interface {
	Get(ctx context.Context, query string) ([]Recommendation, bool)
	Put(ctx context.Context, query string, recs []Recommendation)
}

// RecommendForm asks the service for books matching a free-text request.
type RecommendForm struct {
	Query   string
	Results []Recommendation
	Message string

	api   Recommender
	cache RecommendationCache
	log   *log.Logger
}

// NewRecommendForm builds the form. cache may be nil.
func NewRecommendForm(api Recommender, cache RecommendationCache, l *log.Logger) *RecommendForm {
	if l == nil {
		l = log.Default()
	}
	return &RecommendForm{api: api, cache: cache, log: l}
}

func (f *RecommendForm) Submit(ctx context.Context) (bool, error) {
	q := strings.TrimSpace(f.Query)
	if q == "" {
		return false, nil
	}
	f.Results, f.Message = nil, ""

	if f.cache != nil {
		if recs, ok := f.cache.Get(ctx, q); ok {
			f.Results = recs
			return true, nil
		}
	}

	recs, err := f.api.Recommend(ctx, q)
	if err != nil {
		f.log.Printf("[recommend] %v", err)
		f.Message = UserMessage(err, MsgRecommendFailed)
		return false, err
	}
	f.Results = recs
	if f.cache != nil && len(recs) > 0 {
		f.cache.Put(ctx, q, recs)
	}
	return true, nil
}
