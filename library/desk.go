package library

import (
	"context"
	"fmt"
	"log"
)

// Circulation is the slice of the API used for returns and deletions.
type Circulation interface {
	ReturnBook(ctx context.Context, id int64) (*Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Desk runs the return and delete actions of the book list.
type Desk struct {
	api      Circulation
	onChange func(Change)
	log      *log.Logger
}

// NewDesk builds a Desk. onChange runs after every successful mutation.
func NewDesk(api Circulation, onChange func(Change), l *log.Logger) *Desk {
	if l == nil {
		l = log.Default()
	}
	return &Desk{api: api, onChange: onChange, log: l}
}

// Return forwards the return to the service as-is.
func (d *Desk) Return(ctx context.Context, id int64) error {
	if _, err := d.api.ReturnBook(ctx, id); err != nil {
		d.log.Printf("[books] return book %d failed: %v", id, err)
		return err
	}
	d.changed(Change{Kind: ChangeReturned, BookID: id})
	return nil
}

// Delete asks c first and only then deletes. A declined confirmation
// returns (false, nil) without any request.
func (d *Desk) Delete(ctx context.Context, id int64, c Confirmer) (bool, error) {
	if c == nil || !c.Confirm(fmt.Sprintf("Delete book %d?", id)) {
		return false, nil
	}
	if err := d.api.DeleteBook(ctx, id); err != nil {
		d.log.Printf("[books] delete book %d failed: %v", id, err)
		return false, err
	}
	d.changed(Change{Kind: ChangeDeleted, BookID: id})
	return true, nil
}

func (d *Desk) changed(c Change) {
	if d.onChange != nil {
		d.onChange(c)
	}
}
