package library

import (
	"context"
	"log"
	"strings"
)

// Forms follow one contract: Submit returns (false, nil) when a required
// field is blank and nothing was sent, (true, nil) on success and
// (false, err) when the request failed. Fields survive a failure so the
// user can retry.

// BookCreator is the slice of the API the add form needs.
type BookCreator interface {
	CreateBook(ctx context.Context, title, author string) (*Book, error)
}

// AddBookForm registers a new book. Author is optional.
type AddBookForm struct {
	Title  string
	Author string

	api    BookCreator
	onDone func(Change)
	log    *log.Logger
}

// NewAddBookForm builds the form. onDone runs after a successful submit,
// typically bumping the refresh trigger.
func NewAddBookForm(api BookCreator, onDone func(Change), l *log.Logger) *AddBookForm {
	if l == nil {
		l = log.Default()
	}
	return &AddBookForm{api: api, onDone: onDone, log: l}
}

func (f *AddBookForm) Submit(ctx context.Context) (bool, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return false, nil
	}
	b, err := f.api.CreateBook(ctx, title, strings.TrimSpace(f.Author))
	if err != nil {
		f.log.Printf("[books] add book failed: %v", err)
		return false, err
	}
	f.Title, f.Author = "", ""
	if f.onDone != nil {
		f.onDone(Change{Kind: ChangeAdded, BookID: b.ID})
	}
	return true, nil
}

// Lender is the slice of the API the borrow form needs.
type Lender interface {
	BorrowBook(ctx context.Context, id int64, borrowerName, returnDate string) (*Book, error)
}

// BorrowForm lends one book. While a session is signed in the borrower is
// always the session's display name and cannot be overridden.
type BorrowForm struct {
	BookID     int64
	ReturnDate string

	borrower string
	api      Lender
	session  *Session
	onDone   func(Change)
	log      *log.Logger
}

// NewBorrowForm builds the form for bookID. session may be nil.
func NewBorrowForm(api Lender, session *Session, bookID int64, onDone func(Change), l *log.Logger) *BorrowForm {
	if l == nil {
		l = log.Default()
	}
	return &BorrowForm{BookID: bookID, api: api, session: session, onDone: onDone, log: l}
}

// Locked reports whether the borrower is taken from the session.
func (f *BorrowForm) Locked() bool {
	return f.session != nil && f.session.IsAuthenticated()
}

func (f *BorrowForm) BorrowerName() string {
	if f.Locked() {
		return f.session.DisplayName()
	}
	return f.borrower
}

func (f *BorrowForm) SetBorrowerName(name string) error {
	if f.Locked() {
		return ErrBorrowerLocked
	}
	f.borrower = name
	return nil
}

// Submit sends the borrow request. A blank return date or borrower sends nothing.
func (f *BorrowForm) Submit(ctx context.Context) (bool, error) {
	borrower := f.BorrowerName()
	if strings.TrimSpace(borrower) == "" || strings.TrimSpace(f.ReturnDate) == "" {
		return false, nil
	}
	if _, err := f.api.BorrowBook(ctx, f.BookID, borrower, strings.TrimSpace(f.ReturnDate)); err != nil {
		f.log.Printf("[books] borrow book %d failed: %v", f.BookID, err)
		return false, err
	}
	f.borrower, f.ReturnDate = "", ""
	if f.onDone != nil {
		f.onDone(Change{Kind: ChangeBorrowed, BookID: f.BookID})
	}
	return true, nil
}

// LoginForm signs in by username. Message holds the inline error text.
type LoginForm struct {
	Username string
	Message  string

	auth *Auth
}

func NewLoginForm(auth *Auth) *LoginForm { return &LoginForm{auth: auth} }

func (f *LoginForm) Submit(ctx context.Context) (bool, error) {
	f.Message = ""
	if strings.TrimSpace(f.Username) == "" {
		return false, nil
	}
	if _, err := f.auth.Login(ctx, f.Username); err != nil {
		f.Message = UserMessage(err, MsgLoginFailed)
		return false, err
	}
	f.Username = ""
	return true, nil
}

// RegisterForm creates an account and signs in.
type RegisterForm struct {
	Username    string
	DisplayName string
	Message     string

	auth *Auth
}

func NewRegisterForm(auth *Auth) *RegisterForm { return &RegisterForm{auth: auth} }

func (f *RegisterForm) Submit(ctx context.Context) (bool, error) {
	f.Message = ""
	if strings.TrimSpace(f.Username) == "" || strings.TrimSpace(f.DisplayName) == "" {
		return false, nil
	}
	if _, err := f.auth.Register(ctx, f.Username, f.DisplayName); err != nil {
		f.Message = UserMessage(err, MsgRegisterFailed)
		return false, err
	}
	f.Username, f.DisplayName = "", ""
	return true, nil
}
