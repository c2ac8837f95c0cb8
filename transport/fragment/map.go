/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package fragment reassembles multi-datagram MADARA messages (spec §4.4).
package fragment

import (
	"sort"
	"sync"
)

// Key identifies one reassembly in progress. A tuple, not a concatenated
// string, per §9's Design Note.
type Key struct {
	Originator string
	Clock      uint64
}

// partial is one reassembly in flight: the pieces received so far, indexed
// by update_number, and the declared total.
type partial struct {
	key     Key
	total   uint32
	pieces  map[uint32][]byte
	touched int64 // insertion sequence, for oldest-first eviction
}

func (p *partial) complete() bool { return uint32(len(p.pieces)) == p.total }

func (p *partial) reassemble() []byte {
	var out []byte
	nums := make([]uint32, 0, len(p.pieces))
	for n := range p.pieces {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	for _, n := range nums {
		out = append(out, p.pieces[n]...)
	}
	return out
}

// Map is the bounded, oldest-evict fragment reassembly table of spec §4.4:
// a per-(originator,clock) queue of partial fragments. Once all N pieces
// for a key arrive, Add returns the reassembled buffer.
type Map struct {
	mu        sync.Mutex
	byKey     map[Key]*partial
	maxQueued int
	seq       int64
}

// NewMap builds a fragment map that evicts the oldest in-flight reassembly
// once more than maxQueued are outstanding simultaneously
// (fragment_queue_length in settings). Fragment reassembly is write-heavy
// (every incoming fragment touches its entry), which is the opposite of what
// third_party/NonLockingReadMap is tuned for, so this uses a plain
// mutex-guarded map instead (see DESIGN.md).
func NewMap(maxQueued int) *Map {
	return &Map{
		byKey:     make(map[Key]*partial),
		maxQueued: maxQueued,
	}
}

// Add records one fragment. It returns (buf, true) once the reassembly for
// key is complete; duplicate (key, updateNumber) fragments are ignored, per
// spec §4.4.
func (m *Map) Add(key Key, updateNumber, totalUpdates uint32, payload []byte) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.byKey[key]
	if !ok {
		if len(m.byKey) >= m.maxQueued {
			m.evictOldestLocked()
		}
		p = &partial{key: key, total: totalUpdates, pieces: make(map[uint32][]byte)}
		m.byKey[key] = p
		m.seq++
		p.touched = m.seq
	}

	if _, dup := p.pieces[updateNumber]; dup {
		return nil, false
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	p.pieces[updateNumber] = cp

	if !p.complete() {
		return nil, false
	}
	buf := p.reassemble()
	delete(m.byKey, key)
	return buf, true
}

func (m *Map) evictOldestLocked() {
	var oldestKey Key
	var oldestSeq int64 = -1
	for k, p := range m.byKey {
		if oldestSeq == -1 || p.touched < oldestSeq {
			oldestKey = k
			oldestSeq = p.touched
		}
	}
	if oldestSeq != -1 {
		delete(m.byKey, oldestKey)
	}
}

// Len reports the number of reassemblies currently in flight.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byKey)
}
