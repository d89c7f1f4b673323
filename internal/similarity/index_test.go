package similarity

import (
	"fmt"
	"sync"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "lowercases and splits",
			query: "Find Italian Restaurants",
			want:  []string{"find", "italian", "restaurants"},
		},
		{
			name:  "strips punctuation",
			query: "user:42,profile!",
			want:  []string{"user", "profile"},
		},
		{
			name:  "drops short tokens",
			query: "a to me find",
			want:  []string{"find"},
		},
		{
			name:  "empty input",
			query: "  ",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tokens %v, want %d", len(got), got, len(tt.want))
			}
			for _, tok := range tt.want {
				if _, ok := got[tok]; !ok {
					t.Errorf("missing token %q in %v", tok, got)
				}
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "find italian restaurants", "find italian restaurants", 1.0},
		{"disjoint", "book flight tokyo", "find italian restaurants", 0.0},
		{"partial", "find italian restaurants near", "find italian pizzerias near", 0.6},
		{"empty side", "", "find italian restaurants", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(Tokenize(tt.a), Tokenize(tt.b))
			if got != tt.want {
				t.Errorf("Jaccard = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestIndex_MatchAboveThreshold(t *testing.T) {
	ix := NewIndex(100)
	ix.Track("find italian restaurants near me")

	match, ok := ix.Match("find italian restaurant near me", 0.5)
	if !ok {
		t.Fatal("expected a similarity match")
	}
	if match.Query != "find italian restaurants near me" {
		t.Errorf("unexpected match %q", match.Query)
	}
	if match.Score < 0.5 {
		t.Errorf("score %f below threshold", match.Score)
	}

	if _, ok := ix.Match("book a flight to tokyo", 0.5); ok {
		t.Error("expected no match for an unrelated query")
	}
}

func TestIndex_DoesNotMatchItself(t *testing.T) {
	ix := NewIndex(100)
	ix.Track("find italian restaurants")

	if _, ok := ix.Match("find italian restaurants", 0.1); ok {
		t.Error("a query must not match itself")
	}
}

func TestIndex_BulkEvictionAtCap(t *testing.T) {
	ix := NewIndex(20)
	for i := 0; i < 20; i++ {
		ix.Track(fmt.Sprintf("tracked query about subject%d today", i))
	}
	if ix.Len() != 20 {
		t.Fatalf("expected full index, got %d", ix.Len())
	}

	ix.Track("one more tracked query arriving late")
	// Cap of 20 evicts 10% (2 entries) before inserting.
	if ix.Len() != 19 {
		t.Errorf("expected 19 after bulk eviction plus insert, got %d", ix.Len())
	}
}

func TestIndex_TrackIgnoresEmptyAndDuplicate(t *testing.T) {
	ix := NewIndex(10)
	ix.Track("!!")
	if ix.Len() != 0 {
		t.Error("queries with no usable tokens must not be tracked")
	}

	ix.Track("find italian restaurants")
	ix.Track("find italian restaurants")
	if ix.Len() != 1 {
		t.Errorf("duplicate tracking should be a no-op, len=%d", ix.Len())
	}
}

func TestIndex_Forget(t *testing.T) {
	ix := NewIndex(10)
	ix.Track("find italian restaurants")
	ix.Forget("find italian restaurants")
	if ix.Len() != 0 {
		t.Error("expected query forgotten")
	}
}

func TestIndex_ConcurrentTrackAndMatch(t *testing.T) {
	ix := NewIndex(500)
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				ix.Track(fmt.Sprintf("worker %d query about topic %d", n, j))
				ix.Match("worker query about some topic", 0.8)
			}
		}(i)
	}
	wg.Wait()

	if ix.Len() == 0 {
		t.Error("expected tracked queries after concurrent use")
	}
}
