package library

import (
	"slices"
	"testing"
)

func titles(books []Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func booksTitled(ts ...string) []Book {
	out := make([]Book, len(ts))
	for i, t := range ts {
		out[i] = Book{ID: int64(i + 1), Title: t}
	}
	return out
}

func TestDirectionCycle(t *testing.T) {
	d := Unsorted
	want := []Direction{Ascending, Descending, Unsorted, Ascending, Descending, Unsorted, Ascending}
	for i, w := range want {
		d = d.Next()
		if d != w {
			t.Fatalf("step %d: want %s, got %s", i+1, w, d)
		}
	}
}

func TestToggleAfterNSteps(t *testing.T) {
	for n := 0; n < 10; n++ {
		spec := SortSpec{Field: SortTitle, Direction: Unsorted}
		for i := 0; i < n; i++ {
			spec = spec.Toggle(SortTitle)
		}
		if want := Direction(n % 3); spec.Direction != want {
			t.Fatalf("after %d toggles: want %s, got %s", n, want, spec.Direction)
		}
	}
}

func TestToggleOtherFieldStartsAscending(t *testing.T) {
	spec := SortSpec{Field: "author", Direction: Descending}.Toggle(SortTitle)
	if spec.Field != SortTitle || spec.Direction != Ascending {
		t.Fatalf("want title asc, got %s", spec)
	}
}

func TestParseDirection(t *testing.T) {
	cases := map[string]Direction{"": Unsorted, "none": Unsorted, "ASC": Ascending, "desc": Descending, " descending ": Descending}
	for in, want := range cases {
		got, err := ParseDirection(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: want %s, got %s", in, want, got)
		}
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatalf("expected error for unknown direction")
	}
}

func TestSortBooksTitle(t *testing.T) {
	order, err := NewTitleOrder("ordinal")
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	in := booksTitled("Zebra", "Apple")

	asc := SortBooks(in, SortSpec{Field: SortTitle, Direction: Ascending}, order)
	if got := titles(asc); !slices.Equal(got, []string{"Apple", "Zebra"}) {
		t.Fatalf("asc: got %v", got)
	}
	desc := SortBooks(in, SortSpec{Field: SortTitle, Direction: Descending}, order)
	if got := titles(desc); !slices.Equal(got, []string{"Zebra", "Apple"}) {
		t.Fatalf("desc: got %v", got)
	}
	none := SortBooks(in, SortSpec{Field: SortTitle, Direction: Unsorted}, order)
	if got := titles(none); !slices.Equal(got, []string{"Zebra", "Apple"}) {
		t.Fatalf("none: got %v", got)
	}
	if got := titles(in); !slices.Equal(got, []string{"Zebra", "Apple"}) {
		t.Fatalf("input was modified: %v", got)
	}
}

func TestSortBooksStableAndIdempotent(t *testing.T) {
	order, _ := NewTitleOrder("ordinal")
	in := []Book{
		{ID: 1, Title: "b"},
		{ID: 2, Title: "A"},
		{ID: 3, Title: "B"},
		{ID: 4, Title: "a"},
	}
	for _, dir := range []Direction{Ascending, Descending} {
		spec := SortSpec{Field: SortTitle, Direction: dir}
		once := SortBooks(in, spec, order)
		twice := SortBooks(once, spec, order)
		if !slices.Equal(once, twice) {
			t.Fatalf("%s: sorting twice changed the order", dir)
		}
		var ids []int64
		for _, b := range once {
			ids = append(ids, b.ID)
		}
		want := []int64{2, 4, 1, 3}
		if dir == Descending {
			want = []int64{1, 3, 2, 4}
		}
		if !slices.Equal(ids, want) {
			t.Fatalf("%s: want ids %v, got %v", dir, want, ids)
		}
	}
}

func TestSortBooksUnsupportedFieldKeepsOrder(t *testing.T) {
	order, _ := NewTitleOrder("ordinal")
	in := booksTitled("b", "a")
	out := SortBooks(in, SortSpec{Field: "author", Direction: Ascending}, order)
	if got := titles(out); !slices.Equal(got, []string{"b", "a"}) {
		t.Fatalf("got %v", got)
	}
}

func TestJapaneseCollation(t *testing.T) {
	order, err := NewTitleOrder("ja")
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	in := booksTitled("Zebra", "Éclair", "apple")
	got := titles(SortBooks(in, SortSpec{Field: SortTitle, Direction: Ascending}, order))
	if want := []string{"apple", "Éclair", "Zebra"}; !slices.Equal(got, want) {
		t.Fatalf("latin: want %v, got %v", want, got)
	}

	// Katakana カ and hiragana き: code points put き first, collation goes by sound.
	in = booksTitled("きつね", "カメラ", "うみ")
	got = titles(SortBooks(in, SortSpec{Field: SortTitle, Direction: Ascending}, order))
	if want := []string{"うみ", "カメラ", "きつね"}; !slices.Equal(got, want) {
		t.Fatalf("kana: want %v, got %v", want, got)
	}
}

func TestOrdinalIgnoresCase(t *testing.T) {
	order, _ := NewTitleOrder("ORDINAL")
	if c := order.Compare("apple", "Banana"); c >= 0 {
		t.Fatalf("apple should sort before Banana, got %d", c)
	}
	if c := order.Compare("GO", "go"); c != 0 {
		t.Fatalf("GO and go should compare equal, got %d", c)
	}
}

func TestNewTitleOrderRejectsBadLocale(t *testing.T) {
	if _, err := NewTitleOrder("not a locale!"); err == nil {
		t.Fatalf("expected error")
	}
}
