package library

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// API exposes one method per REST operation of the lending service.
type API struct {
	c *Client
}

func NewAPI(c *Client) *API { return &API{c: c} }

// ------------------ Books ------------------

// ListBooks searches the catalog. Blank filters are left out of the query.
func (a *API) ListBooks(ctx context.Context, f BookFilter) ([]Book, error) {
	q := url.Values{}
	if f.Title != "" {
		q.Set("title", f.Title)
	}
	if f.BorrowerName != "" {
		q.Set("borrower_name", f.BorrowerName)
	}
	var books []Book
	if err := a.c.Do(ctx, http.MethodGet, "/books/", q, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (a *API) GetBook(ctx context.Context, id int64) (*Book, error) {
	var b Book
	if err := a.c.Do(ctx, http.MethodGet, fmt.Sprintf("/books/%d", id), nil, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

type createBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
}

func (a *API) CreateBook(ctx context.Context, title, author string) (*Book, error) {
	var b Book
	if err := a.c.Do(ctx, http.MethodPost, "/books/", nil, createBookRequest{Title: title, Author: author}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

type borrowRequest struct {
	BorrowerName string `json:"borrower_name"`
	ReturnDate   string `json:"return_date"`
}

// BorrowBook lends the book. returnDate is passed through as typed (YYYY-MM-DD).
func (a *API) BorrowBook(ctx context.Context, id int64, borrowerName, returnDate string) (*Book, error) {
	var b Book
	path := fmt.Sprintf("/books/%d/borrow", id)
	if err := a.c.Do(ctx, http.MethodPut, path, nil, borrowRequest{BorrowerName: borrowerName, ReturnDate: returnDate}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ReturnBook marks the book as back on the shelf. Whether returning an
// available book is an error is up to the service.
func (a *API) ReturnBook(ctx context.Context, id int64) (*Book, error) {
	var b Book
	if err := a.c.Do(ctx, http.MethodPut, fmt.Sprintf("/books/%d/return", id), nil, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteBook removes the book. The response body is ignored.
func (a *API) DeleteBook(ctx context.Context, id int64) error {
	return a.c.Do(ctx, http.MethodDelete, fmt.Sprintf("/books/%d", id), nil, nil, nil)
}

// ------------------ Recommendations ------------------

type recommendRequest struct {
	Query string `json:"query"`
}

type recommendResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}

func (a *API) Recommend(ctx context.Context, query string) ([]Recommendation, error) {
	var out recommendResponse
	if err := a.c.Do(ctx, http.MethodPost, "/books/recommendations/", nil, recommendRequest{Query: query}, &out); err != nil {
		return nil, err
	}
	return out.Recommendations, nil
}

// ------------------ Feedback ------------------

func (a *API) ListFeedback(ctx context.Context) ([]Feedback, error) {
	var out []Feedback
	if err := a.c.Do(ctx, http.MethodGet, "/feedback/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) CreateFeedback(ctx context.Context, in FeedbackCreate) (*Feedback, error) {
	var fb Feedback
	if err := a.c.Do(ctx, http.MethodPost, "/feedback/", nil, in, &fb); err != nil {
		return nil, err
	}
	return &fb, nil
}

func (a *API) FeedbackCategories(ctx context.Context) ([]FeedbackCategory, error) {
	var out []FeedbackCategory
	if err := a.c.Do(ctx, http.MethodGet, "/feedback/categories/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ------------------ Auth ------------------

type loginRequest struct {
	Username string `json:"username"`
}

type registerRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type updateMeRequest struct {
	DisplayName string `json:"display_name"`
}

func (a *API) Login(ctx context.Context, username string) (*AuthResponse, error) {
	var out AuthResponse
	if err := a.c.Do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Username: username}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Register(ctx context.Context, username, displayName string) (*AuthResponse, error) {
	var out AuthResponse
	req := registerRequest{Username: username, DisplayName: displayName}
	if err := a.c.Do(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user owning the current bearer token.
func (a *API) Me(ctx context.Context) (*User, error) {
	var u User
	if err := a.c.Do(ctx, http.MethodGet, "/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (a *API) UpdateMe(ctx context.Context, displayName string) (*User, error) {
	var u User
	if err := a.c.Do(ctx, http.MethodPut, "/auth/me", nil, updateMeRequest{DisplayName: displayName}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
