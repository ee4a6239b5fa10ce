// Package table implements the open-addressed hash map keyed by interned
// strings. It backs both the VM's global variables and the heap's string
// intern set.
//
// Slots are probed linearly. Deleting a key leaves a tombstone (nil key,
// true value) so that probe sequences running through the slot still reach
// keys stored further along. Tombstones count towards the load factor and are
// only discarded when the table grows.
package table

import "github.com/xirelogy/go-lox/internal/object"

const (
	maxLoadNum = 3
	maxLoadDen = 4
	minCap     = 8
)

// Entry is one slot of the table.
type Entry struct {
	Key   *object.String
	Value object.Value
}

func (e *Entry) isTombstone() bool {
	return e.Key == nil && !e.Value.IsNil()
}

// Table maps interned strings to values. The zero Table is empty and ready
// to use.
type Table struct {
	count   int // live entries plus tombstones
	live    int
	entries []Entry
}

// Len returns the number of live entries.
func (t *Table) Len() int { return t.live }

// Count returns the number of occupied slots, tombstones included.
func (t *Table) Count() int { return t.count }

// Capacity returns the number of slots.
func (t *Table) Capacity() int { return len(t.entries) }

// Get looks up key.
func (t *Table) Get(key *object.String) (object.Value, bool) {
	if t.count == 0 {
		return object.Nil(), false
	}
	e := findEntry(t.entries, key)
	if e.Key == nil {
		return object.Nil(), false
	}
	return e.Value, true
}

// Set stores value under key and reports whether key was new.
func (t *Table) Set(key *object.String, value object.Value) bool {
	if (t.count+1)*maxLoadDen > len(t.entries)*maxLoadNum {
		t.adjustCapacity(growCapacity(len(t.entries)))
	}

	e := findEntry(t.entries, key)
	isNew := e.Key == nil
	if isNew {
		t.live++
		if e.Value.IsNil() {
			t.count++
		}
	}
	e.Key = key
	e.Value = value
	return isNew
}

// Delete removes key, leaving a tombstone in its slot.
func (t *Table) Delete(key *object.String) bool {
	if t.count == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.Key == nil {
		return false
	}
	e.Key = nil
	e.Value = object.Bool(true)
	t.live--
	return true
}

// AddAll copies every live entry of from into t.
func (t *Table) AddAll(from *Table) {
	for i := range from.entries {
		e := &from.entries[i]
		if e.Key != nil {
			t.Set(e.Key, e.Value)
		}
	}
}

// FindString returns the interned string with the given bytes, or nil.
// Unlike Get it compares contents, which is how the intern set finds an
// existing object before one is allocated.
func (t *Table) FindString(chars string, hash uint32) *object.String {
	if t.count == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	index := hash & mask
	for {
		e := &t.entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				return nil
			}
		} else if e.Key.Hash == hash && e.Key.Chars == chars {
			return e.Key
		}
		index = (index + 1) & mask
	}
}

// Each calls fn for every live entry until fn returns false.
func (t *Table) Each(fn func(key *object.String, value object.Value) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key == nil {
			continue
		}
		if !fn(e.Key, e.Value) {
			return
		}
	}
}

// Clear drops every entry and releases the slot array.
func (t *Table) Clear() {
	t.entries = nil
	t.count = 0
	t.live = 0
}

// findEntry returns the slot holding key, or the slot an insert of key
// should use: the first tombstone passed, else the empty slot that ended the
// probe. The slice length must be a power of two with at least one empty slot.
func findEntry(entries []Entry, key *object.String) *Entry {
	mask := uint32(len(entries) - 1)
	index := key.Hash & mask
	var tombstone *Entry
	for {
		e := &entries[index]
		if e.Key == nil {
			if !e.isTombstone() {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.Key == key {
			return e
		}
		index = (index + 1) & mask
	}
}

// adjustCapacity rehashes the live entries into a fresh slot array; tombstones
// are dropped, so count falls back to the live entries.
func (t *Table) adjustCapacity(capacity int) {
	old := *t
	*t = Table{entries: make([]Entry, capacity)}
	t.AddAll(&old)
}

func growCapacity(capacity int) int {
	if capacity < minCap {
		return minCap
	}
	return capacity * 2
}
