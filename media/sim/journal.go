package sim

import (
	"fmt"
	"sync"
)

// Entry is one side effect requested from a simulated primitive.
type Entry struct {
	Name  string
	Op    string
	Value float64
}

func (e Entry) String() string {
	switch e.Op {
	case "rate", "seek":
		return fmt.Sprintf("%s:%s=%.2f", e.Name, e.Op, e.Value)
	default:
		return e.Name + ":" + e.Op
	}
}

// Journal collects side effects across many primitives in the order they were requested.
// It is shared between primitives to assert cross-item ordering, e.g. pause A before play B.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
}

// NewJournal returns an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) record(name, op string, value float64) {
	if j == nil {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, Entry{Name: name, Op: op, Value: value})
}

// Entries returns a copy of everything recorded so far.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Ops renders the entries as "name:op" strings.
func (j *Journal) Ops() []string {
	entries := j.Entries()
	ops := make([]string, len(entries))
	for i, e := range entries {
		ops[i] = e.String()
	}
	return ops
}

// Index returns the position of the first entry rendering as op, or -1.
func (j *Journal) Index(op string) int {
	for i, o := range j.Ops() {
		if o == op {
			return i
		}
	}
	return -1
}

// Reset forgets every entry.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}
