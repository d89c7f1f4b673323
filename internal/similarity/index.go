package similarity

import (
	"strings"
	"sync"
	"time"
	"unicode"
)

// minTokenLen drops short stopword-like tokens ("a", "to", "me").
const minTokenLen = 3

// evictFraction is the share of tracked queries dropped in one bulk eviction
// once the index is full. The index is advisory, so oldest-N is preferred
// over strict LRU bookkeeping.
const evictFraction = 10

// Index maintains a bounded token index of recently seen query keys and
// finds near-duplicate keys by Jaccard similarity.
//
// Token sets are immutable once tracked, so Match only holds the lock while
// snapshotting candidate references; the comparison work runs lock-free.
type Index struct {
	mu      sync.RWMutex
	max     int
	tracked map[string]*trackedQuery
	order   []string
}

type trackedQuery struct {
	query   string
	tokens  map[string]struct{}
	addedAt time.Time
}

// Candidate is a similarity match above the caller's threshold.
type Candidate struct {
	Query string
	Score float64
}

// NewIndex creates an index tracking at most max queries.
func NewIndex(max int) *Index {
	if max <= 0 {
		max = 10000
	}
	return &Index{
		max:     max,
		tracked: make(map[string]*trackedQuery),
	}
}

// Track records a query. Re-tracking an already known query is a no-op so
// its original position in eviction order is kept.
func (ix *Index) Track(query string) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.tracked[query]; exists {
		return
	}

	if len(ix.tracked) >= ix.max {
		ix.evictOldestLocked()
	}

	ix.tracked[query] = &trackedQuery{
		query:   query,
		tokens:  tokens,
		addedAt: time.Now(),
	}
	ix.order = append(ix.order, query)
}

// Match scans tracked queries and returns the best match for query with a
// score at or above threshold. The query itself is never its own match.
func (ix *Index) Match(query string, threshold float64) (Candidate, bool) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return Candidate{}, false
	}

	ix.mu.RLock()
	candidates := make([]*trackedQuery, 0, len(ix.tracked))
	for _, tq := range ix.tracked {
		candidates = append(candidates, tq)
	}
	ix.mu.RUnlock()

	best := Candidate{}
	for _, tq := range candidates {
		if tq.query == query {
			continue
		}
		score := Jaccard(tokens, tq.tokens)
		if score > best.Score {
			best = Candidate{Query: tq.query, Score: score}
		}
	}

	if best.Score >= threshold && best.Query != "" {
		return best, true
	}
	return Candidate{}, false
}

// Forget drops a tracked query, used when its cache entry proves invalid.
func (ix *Index) Forget(query string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.tracked[query]; !exists {
		return
	}
	delete(ix.tracked, query)
	for i, q := range ix.order {
		if q == query {
			ix.order = append(ix.order[:i], ix.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of tracked queries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.tracked)
}

// Reset drops all tracked queries.
func (ix *Index) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.tracked = make(map[string]*trackedQuery)
	ix.order = nil
}

// evictOldestLocked removes the oldest tracked queries in bulk.
func (ix *Index) evictOldestLocked() {
	n := ix.max / evictFraction
	if n < 1 {
		n = 1
	}
	if n > len(ix.order) {
		n = len(ix.order)
	}
	for _, query := range ix.order[:n] {
		delete(ix.tracked, query)
	}
	ix.order = append([]string(nil), ix.order[n:]...)
}

// Tokenize lowercases the query, strips non-alphanumeric characters, splits
// on whitespace and drops tokens shorter than three characters.
func Tokenize(query string) map[string]struct{} {
	var b strings.Builder
	for _, r := range strings.ToLower(query) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(b.String()) {
		if len(tok) >= minTokenLen {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// Jaccard returns |a ∩ b| / |a ∪ b| for two token sets.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
