package library

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction is the state of a sortable column.
type Direction int

const (
	Unsorted Direction = iota
	Ascending
	Descending
)

func (d Direction) String() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return "none"
	}
}

// Next is the single transition function: none -> asc -> desc -> none.
func (d Direction) Next() Direction {
	return (d + 1) % 3
}

// ParseDirection accepts asc/desc/none (and the empty string as none).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return Unsorted, nil
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Unsorted, fmt.Errorf("unknown sort direction %q", s)
}

// SortTitle is the only sortable column.
const SortTitle = "title"

// SortSpec is the client-side ordering of the book list.
type SortSpec struct {
	Field     string
	Direction Direction
}

// Toggle advances the state for field. A field other than the current one starts at Ascending.
func (s SortSpec) Toggle(field string) SortSpec {
	if field != s.Field {
		return SortSpec{Field: field, Direction: Ascending}
	}
	return SortSpec{Field: field, Direction: s.Direction.Next()}
}

func (s SortSpec) String() string {
	if s.Direction == Unsorted {
		return "none"
	}
	return s.Field + " " + s.Direction.String()
}

// TitleOrder compares two titles.
type TitleOrder interface {
	Compare(a, b string) int
}

// NewTitleOrder returns a locale-aware collation for a BCP 47 tag such as "ja",
// or case-insensitive ordinal comparison for "ordinal".
func NewTitleOrder(locale string) (TitleOrder, error) {
	if strings.EqualFold(locale, "ordinal") {
		return foldedOrder{}, nil
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("sort locale %q: %w", locale, err)
	}
	return &collatedOrder{c: collate.New(tag)}, nil
}

// collate.Collator keeps scratch buffers and is not safe for concurrent use.
type collatedOrder struct {
	mu sync.Mutex
	c  *collate.Collator
}

func (o *collatedOrder) Compare(a, b string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.c.CompareString(a, b)
}

type foldedOrder struct{}

func (foldedOrder) Compare(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// SortBooks returns a new slice ordered by spec. Equal titles keep their input
// order, Unsorted returns the input order, and books itself is never modified.
func SortBooks(books []Book, spec SortSpec, order TitleOrder) []Book {
	out := slices.Clone(books)
	if spec.Direction == Unsorted || spec.Field != SortTitle {
		return out
	}
	slices.SortStableFunc(out, func(a, b Book) int {
		c := order.Compare(a.Title, b.Title)
		if spec.Direction == Descending {
			return -c
		}
		return c
	})
	return out
}
