package library

import (
	"encoding/json"
	"strings"
	"time"
)

// Book is a catalog entry as the lending service returns it.
// BorrowerName and ReturnDate are both nil while the book is on the shelf.
type Book struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Author       string  `json:"author,omitempty"`
	BorrowerName *string `json:"borrower_name"`
	ReturnDate   *Date   `json:"return_date"`
}

// OnLoan reports whether somebody currently holds the book.
func (b Book) OnLoan() bool { return b.BorrowerName != nil && *b.BorrowerName != "" }

// Borrower returns the borrower's name or "" when the book is available.
func (b Book) Borrower() string {
	if b.BorrowerName == nil {
		return ""
	}
	return *b.BorrowerName
}

// BookFilter carries the server-side search parameters.
type BookFilter struct {
	Title        string
	BorrowerName string
}

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD and, for servers that send timestamps, RFC 3339.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		if ts, errTS := time.Parse(time.RFC3339, s); errTS == nil {
			return Date{ts}, nil
		}
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Timestamp tolerates server datetimes with or without a zone offset.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			*t = Timestamp{parsed}
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// Feedback categories accepted by the service.
const (
	CategoryBug         = "bug"
	CategoryFeature     = "feature"
	CategoryImprovement = "improvement"
)

// DefaultCategories mirrors GET /feedback/categories/ and is used when the lookup fails.
var DefaultCategories = []FeedbackCategory{
	{Value: CategoryBug, Label: "Bug report"},
	{Value: CategoryFeature, Label: "Feature request"},
	{Value: CategoryImprovement, Label: "Improvement"},
}

type FeedbackCategory struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Feedback struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	AuthorName     string    `json:"author_name"`
	CreatedAt      Timestamp `json:"created_at"`
	GithubIssueURL *string   `json:"github_issue_url,omitempty"`
}

// FeedbackCreate is the POST /feedback/ body.
type FeedbackCreate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	AuthorName  string `json:"author_name"`
}

// User is an authenticated staff member.
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	CreatedAt   Timestamp `json:"created_at"`
}

// AuthResponse is returned by /auth/login and /auth/register.
type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type Recommendation struct {
	Title                string `json:"title"`
	Author               string `json:"author"`
	AmazonURL            string `json:"amazon_url"`
	RecommendationReason string `json:"recommendation_reason"`
}
