package library

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
)

// BookSearcher is the slice of the API the list view needs.
type BookSearcher interface {
	ListBooks(ctx context.Context, f BookFilter) ([]Book, error)
}

// ListView holds the fetched catalog, the search filters and the client-side
// sort. Sorting never goes back to the server; filters only take effect on the
// next Search, Refresh or Sync.
type ListView struct {
	src   BookSearcher
	order TitleOrder
	log   *log.Logger

	mu        sync.Mutex
	items     []Book
	filter    BookFilter
	sort      SortSpec
	display   []Book
	dirty     bool
	issued    uint64 // sequence number of the latest request
	loading   bool
	lastTrig  uint64
	triggered bool
}

// NewListView starts unsorted with no filters. A nil logger uses log.Default().
func NewListView(src BookSearcher, order TitleOrder, l *log.Logger) *ListView {
	if l == nil {
		l = log.Default()
	}
	return &ListView{
		src:   src,
		order: order,
		log:   l,
		sort:  SortSpec{Field: SortTitle, Direction: Unsorted},
		dirty: true,
	}
}

// SetFilters records the search inputs without fetching.
func (v *ListView) SetFilters(title, borrowerName string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = BookFilter{Title: title, BorrowerName: borrowerName}
}

func (v *ListView) Filters() BookFilter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Search is the explicit user-initiated search submission.
func (v *ListView) Search(ctx context.Context) error { return v.Refresh(ctx) }

// Refresh fetches with the current filters. Blank filters are omitted; others
// are sent verbatim. On failure the current items are kept. If a newer request
// was issued meanwhile, this response is dropped.
func (v *ListView) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.issued++
	seq := v.issued
	filter := v.filter
	v.loading = true
	v.mu.Unlock()

	books, err := v.src.ListBooks(ctx, filter)

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.issued {
		return nil
	}
	v.loading = false
	if err != nil {
		v.log.Printf("[books] refresh failed: %v", err)
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	v.items = books
	v.dirty = true
	return nil
}

// Sync refreshes when trigger differs from the last value seen. The first call
// always fetches. The value is only recorded once a fetch succeeds, so a failed
// Sync is retried by the next one.
func (v *ListView) Sync(ctx context.Context, trigger uint64) error {
	v.mu.Lock()
	if v.triggered && trigger == v.lastTrig {
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()
	if err := v.Refresh(ctx); err != nil {
		return err
	}
	v.mu.Lock()
	v.triggered = true
	v.lastTrig = trigger
	v.mu.Unlock()
	return nil
}

// ToggleSort advances the sort state for field and returns the new spec.
func (v *ListView) ToggleSort(field string) (SortSpec, error) {
	if field != SortTitle {
		return SortSpec{}, fmt.Errorf("%w: %q", ErrUnsupportedSortField, field)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sort = v.sort.Toggle(field)
	v.dirty = true
	return v.sort, nil
}

// SetSort jumps straight to spec, used by one-shot commands.
func (v *ListView) SetSort(spec SortSpec) error {
	if spec.Field != SortTitle {
		return fmt.Errorf("%w: %q", ErrUnsupportedSortField, spec.Field)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sort = spec
	v.dirty = true
	return nil
}

func (v *ListView) Sort() SortSpec {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sort
}

func (v *ListView) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Items returns the displayed ordering, recomputed only after the items or the
// sort changed. The caller owns the returned slice.
func (v *ListView) Items() []Book {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dirty {
		v.display = SortBooks(v.items, v.sort, v.order)
		v.dirty = false
	}
	return slices.Clone(v.display)
}
