// Package sourcemap records (machine-offset, source-offset) pairs so a
// later disassembly or debugger can map back to source. Grounded
// directly on original_source/src/source-map.h's SourceMap/SourceInfo
// (a splay tree keyed by jit_offset in the original; a sorted slice plus
// binary search here, since Go's stdlib sort.Search gives the same
// nearest-at-or-before lookup without a custom tree).
package sourcemap

import "sort"

// Entry is one recorded (machine-offset, source-offset) pair, plus the
// filename/source text Commit attaches once the whole function is done.
type Entry struct {
	JITOffset uint32
	Offset    uint32

	Filename string
	Source   string
	Length   uint32
}

// Map is one function's source map: entries pushed in increasing
// JITOffset order during lowering/emission, committed once at the end.
type Map struct {
	entries []Entry
}

// Push records that machine position jitOffset corresponds to source
// position offset, per SourceMap::Push.
func (m *Map) Push(jitOffset, offset uint32) {
	m.entries = append(m.entries, Entry{JITOffset: jitOffset, Offset: offset})
}

// Commit attaches filename/source/length to every entry pushed so far,
// per SourceMap::Commit.
func (m *Map) Commit(filename, source string, length uint32) {
	for i := range m.entries {
		m.entries[i].Filename = filename
		m.entries[i].Source = source
		m.entries[i].Length = length
	}
}

// Get returns the entry with the greatest JITOffset not exceeding addr,
// per SourceMap::Get (a predecessor lookup in the original's splay tree).
func (m *Map) Get(addr uint32) (Entry, bool) {
	if len(m.entries) == 0 {
		return Entry{}, false
	}

	sorted := m.entries
	if !sort.SliceIsSorted(sorted, func(i, j int) bool { return sorted[i].JITOffset < sorted[j].JITOffset }) {
		sorted = append([]Entry(nil), m.entries...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].JITOffset < sorted[j].JITOffset })
	}

	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].JITOffset > addr })
	if i == 0 {
		return Entry{}, false
	}

	return sorted[i-1], true
}

// Entries returns every recorded pair, in push order.
func (m *Map) Entries() []Entry {
	return m.entries
}
