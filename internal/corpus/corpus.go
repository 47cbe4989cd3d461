// Package corpus implements the process-wide term interning table shared by
// every shard in a pool. A Corpus never forgets a term: ids are assigned
// once and held for the lifetime of the process.
package corpus

import "sync"

// MaxTerms is the largest number of distinct terms a Corpus can hold,
// dictated by the 16-bit token id used throughout the vectorizer.
const MaxTerms = 1 << 16

// Corpus maps term strings to compact 16-bit token ids. It is safe for
// concurrent use: multiple shards may intern new terms simultaneously.
type Corpus struct {
	mu      sync.RWMutex
	termID  map[string]uint16
	idTerm  []string
}

// New returns an empty Corpus.
func New() *Corpus {
	return &Corpus{
		termID: make(map[string]uint16),
	}
}

// Lookup returns the id for term if it has already been interned.
func (c *Corpus) Lookup(term string) (uint16, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.termID[term]
	return id, ok
}

// Intern returns the id for term, assigning a new one if term has not been
// seen before. The Corpus only ever grows.
func (c *Corpus) Intern(term string) uint16 {
	c.mu.RLock()
	if id, ok := c.termID[term]; ok {
		c.mu.RUnlock()
		return id
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check under the write lock: another goroutine may have interned
	// the same term between the RUnlock above and this Lock.
	if id, ok := c.termID[term]; ok {
		return id
	}
	id := uint16(len(c.idTerm))
	c.termID[term] = id
	c.idTerm = append(c.idTerm, term)
	return id
}

// Term returns the term string for id, and whether it exists.
func (c *Corpus) Term(id uint16) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.idTerm) {
		return "", false
	}
	return c.idTerm[id], true
}

// Len returns the number of distinct terms interned so far.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.idTerm)
}

// Snapshot returns a copy of the term list in id order, suitable for
// serialization. The caller owns the returned slice.
func (c *Corpus) Snapshot() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.idTerm))
	copy(out, c.idTerm)
	return out
}

// FromTerms rebuilds a Corpus from an ordered term list, as produced by
// Snapshot, preserving the original id assignment. Used by the on-disk
// loader.
func FromTerms(terms []string) *Corpus {
	c := &Corpus{
		termID: make(map[string]uint16, len(terms)),
		idTerm: make([]string, len(terms)),
	}
	for i, t := range terms {
		c.termID[t] = uint16(i)
		c.idTerm[i] = t
	}
	return c
}
