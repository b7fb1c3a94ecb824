// Package devserver is an in-memory implementation of the lending service's
// REST API for local development and tests.
package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"library-lending/library"
)

// Options configure a Server.
type Options struct {
	JWTSecret []byte
	TokenTTL  time.Duration
	// IssueBaseURL, when set, gives every new feedback a github_issue_url.
	IssueBaseURL string
}

// Server keeps books, feedback and users in memory.
type Server struct {
	opts Options
	hits atomic.Int64

	mu       sync.Mutex
	books    []library.Book
	feedback []library.Feedback
	users    map[string]library.User // by username
	nextBook int64
	nextFB   int64
	nextUser int64
}

func New(opts Options) *Server {
	if len(opts.JWTSecret) == 0 {
		opts.JWTSecret = []byte("devserver-insecure-secret-change-me!!")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &Server{
		opts:     opts,
		users:    make(map[string]library.User),
		nextBook: 1,
		nextFB:   1,
		nextUser: 1,
	}
}

// Hits counts every request the server has handled.
func (s *Server) Hits() int64 { return s.hits.Load() }

// Handler serves the API under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)
	r.Route("/api", func(r chi.Router) {
		r.Get("/books/", s.listBooks)
		r.Post("/books/", s.createBook)
		r.Post("/books/recommendations/", s.recommend)
		r.Get("/books/{id}", s.getBook)
		r.Put("/books/{id}/borrow", s.borrowBook)
		r.Put("/books/{id}/return", s.returnBook)
		r.Delete("/books/{id}", s.deleteBook)

		r.Get("/feedback/", s.listFeedback)
		r.Post("/feedback/", s.createFeedback)
		r.Get("/feedback/categories/", s.categories)

		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)
		r.Get("/auth/me", s.me)
		r.Put("/auth/me", s.updateMe)
	})
	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		next.ServeHTTP(w, r)
	})
}

// Seed adds books directly, bypassing HTTP. Used by cmd/devserver and tests.
func (s *Server) Seed(titles ...[2]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range titles {
		s.books = append(s.books, library.Book{ID: s.nextBook, Title: t[0], Author: t[1]})
		s.nextBook++
	}
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	title := strings.ToLower(r.URL.Query().Get("title"))
	borrower := strings.ToLower(r.URL.Query().Get("borrower_name"))

	s.mu.Lock()
	out := make([]library.Book, 0, len(s.books))
	for _, b := range s.books {
		if title != "" && !strings.Contains(strings.ToLower(b.Title), title) {
			continue
		}
		if borrower != "" && !strings.Contains(strings.ToLower(b.Borrower()), borrower) {
			continue
		}
		out = append(out, b)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createBook(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	}
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	s.mu.Lock()
	b := library.Book{ID: s.nextBook, Title: in.Title, Author: in.Author}
	s.nextBook++
	s.books = append(s.books, b)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	s.withBook(w, r, func(b *library.Book) error { return nil })
}

func (s *Server) borrowBook(w http.ResponseWriter, r *http.Request) {
	var in struct {
		BorrowerName string `json:"borrower_name"`
		ReturnDate   string `json:"return_date"`
	}
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.BorrowerName) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "borrower_name is required")
		return
	}
	date, err := library.ParseDate(in.ReturnDate)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid return_date %q", in.ReturnDate))
		return
	}
	s.withBook(w, r, func(b *library.Book) error {
		name := in.BorrowerName
		b.BorrowerName = &name
		b.ReturnDate = &date
		return nil
	})
}

func (s *Server) returnBook(w http.ResponseWriter, r *http.Request) {
	s.withBook(w, r, func(b *library.Book) error {
		b.BorrowerName = nil
		b.ReturnDate = nil
		return nil
	})
}

func (s *Server) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.books {
		if b.ID == id {
			s.books = append(s.books[:i], s.books[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Book deleted"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Book not found")
}

// withBook runs mutate on the book named by {id} under the lock and writes it back.
func (s *Server) withBook(w http.ResponseWriter, r *http.Request, mutate func(*library.Book) error) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.books {
		if s.books[i].ID != id {
			continue
		}
		if err := mutate(&s.books[i]); err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, s.books[i])
		return
	}
	writeDetail(w, http.StatusNotFound, "Book not found")
}

func bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "book id must be an integer")
		return 0, false
	}
	return id, true
}

// ---------------------------------------------------------------------------
// Recommendations
// ---------------------------------------------------------------------------

func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Query string `json:"query"`
	}
	if !decode(w, r, &in) {
		return
	}
	q := strings.TrimSpace(in.Query)
	if q == "" {
		writeDetail(w, http.StatusBadRequest, "query is required")
		return
	}

	words := strings.Fields(strings.ToLower(q))
	s.mu.Lock()
	var recs []library.Recommendation
	for _, b := range s.books {
		title := strings.ToLower(b.Title + " " + b.Author)
		for _, word := range words {
			if strings.Contains(title, word) {
				recs = append(recs, library.Recommendation{
					Title:                b.Title,
					Author:               b.Author,
					AmazonURL:            amazonURL(b.Title, b.Author),
					RecommendationReason: fmt.Sprintf("Matches %q from your request.", word),
				})
				break
			}
		}
		if len(recs) == 3 {
			break
		}
	}
	s.mu.Unlock()
	if recs == nil {
		recs = []library.Recommendation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func amazonURL(title, author string) string {
	return "https://www.amazon.co.jp/s?k=" + url.QueryEscape(title+" "+author) + "&i=stripbooks"
}

// ---------------------------------------------------------------------------
// Feedback
// ---------------------------------------------------------------------------

func (s *Server) listFeedback(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]library.Feedback{}, s.feedback...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createFeedback(w http.ResponseWriter, r *http.Request) {
	var in library.FeedbackCreate
	if !decode(w, r, &in) {
		return
	}
	switch in.Category {
	case library.CategoryBug, library.CategoryFeature, library.CategoryImprovement:
	default:
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid category %q", in.Category))
		return
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" {
		writeDetail(w, http.StatusBadRequest, "title and description are required")
		return
	}

	s.mu.Lock()
	fb := library.Feedback{
		ID:          s.nextFB,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		AuthorName:  in.AuthorName,
		CreatedAt:   library.Timestamp{Time: time.Now().UTC()},
	}
	s.nextFB++
	if s.opts.IssueBaseURL != "" {
		u := fmt.Sprintf("%s/%d", strings.TrimRight(s.opts.IssueBaseURL, "/"), fb.ID)
		fb.GithubIssueURL = &u
	}
	s.feedback = append(s.feedback, fb)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, fb)
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, library.DefaultCategories)
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
	}
	if !decode(w, r, &in) {
		return
	}
	username := strings.TrimSpace(in.Username)
	if username == "" || strings.TrimSpace(in.DisplayName) == "" {
		writeDetail(w, http.StatusBadRequest, "username and display_name are required")
		return
	}
	s.mu.Lock()
	if _, exists := s.users[username]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("username %s is already taken", username))
		return
	}
	u := library.User{
		ID:          s.nextUser,
		Username:    username,
		DisplayName: strings.TrimSpace(in.DisplayName),
		CreatedAt:   library.Timestamp{Time: time.Now().UTC()},
	}
	s.nextUser++
	s.users[username] = u
	s.mu.Unlock()
	s.issue(w, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	u, ok := s.users[strings.TrimSpace(in.Username)]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "user not found")
		return
	}
	s.issue(w, u)
}

func (s *Server) issue(w http.ResponseWriter, u library.User) {
	now := time.Now()
	c := claims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.opts.JWTSecret)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not sign token")
		return
	}
	writeJSON(w, http.StatusOK, library.AuthResponse{User: u, AccessToken: tok, TokenType: "bearer"})
}

// currentUser resolves the bearer token, writing a 401 when it cannot.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (library.User, bool) {
	raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || raw == "" {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return library.User{}, false
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	var c claims
	_, err := parser.ParseWithClaims(raw, &c, func(*jwt.Token) (interface{}, error) {
		return s.opts.JWTSecret, nil
	})
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return library.User{}, false
	}
	s.mu.Lock()
	u, ok := s.users[c.Username]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return library.User{}, false
	}
	return u, true
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	if u, ok := s.currentUser(w, r); ok {
		writeJSON(w, http.StatusOK, u)
	}
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var in struct {
		DisplayName string `json:"display_name"`
	}
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		writeDetail(w, http.StatusBadRequest, "display_name is required")
		return
	}
	s.mu.Lock()
	u.DisplayName = strings.TrimSpace(in.DisplayName)
	s.users[u.Username] = u
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, u)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes the {"detail": "..."} error body the client understands.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeDetail(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return false
	}
	return true
}
