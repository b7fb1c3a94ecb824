package library

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestBookDecodesNullLoan(t *testing.T) {
	var b Book
	if err := json.Unmarshal([]byte(`{"id":3,"title":"こころ","author":null,"borrower_name":null,"return_date":null}`), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.OnLoan() || b.Borrower() != "" || b.ReturnDate != nil {
		t.Fatalf("unexpected loan state %+v", b)
	}

	if err := json.Unmarshal([]byte(`{"id":3,"title":"x","borrower_name":"Taro","return_date":"2030-12-24"}`), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !b.OnLoan() || b.ReturnDate.String() != "2030-12-24" {
		t.Fatalf("unexpected loan state %+v", b)
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2030-01-02", "2030-01-02T00:00:00Z"} {
		d, err := ParseDate(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if d.String() != "2030-01-02" {
			t.Fatalf("parse %q: got %s", in, d)
		}
	}
	if _, err := ParseDate("02/01/2030"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTimestampLayouts(t *testing.T) {
	cases := []string{
		`"2024-05-01T10:20:30Z"`,
		`"2024-05-01T10:20:30.123456"`,
		`"2024-05-01 10:20:30"`,
	}
	for _, in := range cases {
		var ts Timestamp
		if err := json.Unmarshal([]byte(in), &ts); err != nil {
			t.Fatalf("decode %s: %v", in, err)
		}
		if ts.Year() != 2024 || ts.Month() != time.May || ts.Hour() != 10 {
			t.Fatalf("decode %s: got %v", in, ts.Time)
		}
	}
	var ts Timestamp
	if err := json.Unmarshal([]byte(`""`), &ts); err != nil || !ts.IsZero() {
		t.Fatalf("empty string should decode to zero")
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	sign := func(exp time.Time) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte("k"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}
	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"past", sign(now.Add(-time.Minute)), true},
		{"future", sign(now.Add(time.Minute)), false},
		{"opaque", "not-a-jwt", false},
	}
	for _, c := range cases {
		if got := expired(c.token, now); got != c.want {
			t.Fatalf("%s: want %v, got %v", c.name, c.want, got)
		}
	}
}

func TestTriggerWait(t *testing.T) {
	tr := NewTrigger()
	done := make(chan uint64, 1)
	go func() {
		n, _ := tr.Wait(context.Background(), 0)
		done <- n
	}()
	tr.Bump()
	select {
	case n := <-done:
		if n != 1 {
			t.Fatalf("want 1, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait did not wake up")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.Wait(ctx, tr.Value()); err == nil {
		t.Fatalf("cancelled wait should fail")
	}
}

func TestSessionInvalidateClearsStore(t *testing.T) {
	store := &MemoryStore{}
	s := NewSession(store, quietLogger())
	ctx := context.Background()
	if err := s.Set(ctx, "tok", User{ID: 1, Username: "u", DisplayName: "U"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Invalidate()
	if s.IsAuthenticated() || s.User() != nil {
		t.Fatalf("session should be signed out")
	}
	if tok, _, _ := store.Load(ctx); tok != "" {
		t.Fatalf("store should be cleared")
	}
}
