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

// Package knowledge implements the thread-safe, conflict-resolving
// key-Record store (spec §3/§4.1) and embeds the karl expression engine by
// implementing karl.Store at the Context boundary (see context_store.go).
package knowledge

import (
	"sync"

	"github.com/google/btree"
	"github.com/launix-de/madara/internal/logx"
)

// Settings mirrors spec §4.1's write-semantics knobs. Distinct from
// karl.Settings: this is the Context-level API surface; karlSettings / the
// reverse conversion live in context_store.go, the only place that needs to
// know both types exist.
type Settings struct {
	TreatGlobalsAsLocals bool
	SignalChanges        bool
	AlwaysOverwrite      bool
	TrackLocalChanges    bool
}

// DefaultSettings is what every spec §8 scenario uses unless it says
// otherwise: signal on every write, track the modified set.
func DefaultSettings() Settings {
	return Settings{SignalChanges: true, TrackLocalChanges: true}
}

// Function is a user-defined callback registered under Context.functions
// (spec §3 "functions: Map<Name, Function>"). It must not call back into the
// owning Context: CallFunction runs with the context lock already held (see
// context_store.go), and sync.Mutex is not reentrant.
type Function func(args []Record) Record

// Streamer receives a notification for every record change Context applies,
// the optional "replaces the streamer, returns the previous one" hook of
// spec §4.1 attach_streamer.
type Streamer interface {
	OnRecordChanged(name string, rec Record)
}

// Context is the thread-safe, ordered key→Record store of spec §3. All
// public methods take the mutex exactly once and recurse through unexported
// *Locked helpers (see SPEC_FULL.md §4.1's "lock once at the API boundary"
// decision, substituting for the original's re-entrant mutex).
type Context struct {
	mu   sync.Mutex
	cond *sync.Cond

	entries map[string]*entry

	globalClock uint64

	changed      *btree.BTreeG[string]
	localChanged *btree.BTreeG[string]

	functions map[string]Function
	streamer  Streamer
}

func nameLess(a, b string) bool { return a < b }

// NewContext returns an empty Context at clock 0.
func NewContext() *Context {
	c := &Context{
		entries:      make(map[string]*entry),
		changed:      btree.NewG[string](32, nameLess),
		localChanged: btree.NewG[string](32, nameLess),
		functions:    make(map[string]Function),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// RegisterFunction installs a callback under name (spec §3 "functions").
func (c *Context) RegisterFunction(name string, fn Function) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.functions[name] = fn
}

// Get returns the Record stored under key, or an Uncreated Record for a
// missing key (spec §4.1 "get").
func (c *Context) Get(key string) Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Context) getLocked(key string) Record {
	e, ok := c.entries[key]
	if !ok {
		return UncreatedRecord()
	}
	return e.rec
}

// GetRef returns a stable handle to key, creating it as Uncreated if absent
// so the reference is always valid until an explicit Delete (spec §4.1
// "get_ref").
func (c *Context) GetRef(key string) VarRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getRefLocked(key)
}

func (c *Context) getRefLocked(key string) VarRef {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{name: key, rec: UncreatedRecord()}
		c.entries[key] = e
	}
	return VarRef{e: e, generation: e.generation}
}

// Set applies spec §4.1's local write semantics and returns {0 ok, -1
// null-key, -2 lower-quality}.
func (c *Context) Set(ref VarRef, value Record, settings Settings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(ref, value, settings)
}

func (c *Context) setLocked(ref VarRef, value Record, settings Settings) int {
	if !ref.Valid() {
		logx.Warn("set: stale or missing reference %q", ref.Name())
		return -1
	}
	e := ref.e
	if !settings.AlwaysOverwrite && value.quality < e.rec.quality {
		return -2
	}
	if !settings.TreatGlobalsAsLocals {
		c.globalClock++
	}
	value.clock = c.globalClock
	value.status = Modified
	e.rec = value
	if settings.TrackLocalChanges {
		if IsLocal(e.name) {
			c.localChanged.ReplaceOrInsert(e.name)
		} else {
			c.changed.ReplaceOrInsert(e.name)
		}
	}
	if c.streamer != nil {
		c.streamer.OnRecordChanged(e.name, e.rec)
	}
	if settings.SignalChanges {
		c.cond.Broadcast()
	}
	return 0
}

// SetIndex applies an array element update on a copy of the backing payload,
// leaving earlier snapshots of the Record untouched (spec §4.1 "set_index").
func (c *Context) SetIndex(ref VarRef, i int, value Record) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setIndexLocked(ref, i, value)
}

func (c *Context) setIndexLocked(ref VarRef, i int, value Record) int {
	if !ref.Valid() {
		return -1
	}
	e := ref.e
	nr, err := e.rec.WithIndex(i, value)
	if err != nil {
		logx.Warn("set_index: %s on %q", err, e.name)
		return -2
	}
	c.globalClock++ // an indexed write still advances the clock, same as a full Set
	nr.clock = c.globalClock
	nr.status = Modified
	e.rec = nr
	if IsLocal(e.name) {
		c.localChanged.ReplaceOrInsert(e.name)
	} else {
		c.changed.ReplaceOrInsert(e.name)
	}
	c.cond.Broadcast()
	return 0
}

// Inc adds delta to the Record at ref atomically, with default write
// semantics, returning the new value (spec §4.1 "inc/dec(ref)").
func (c *Context) Inc(ref VarRef, delta Record) Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !ref.Valid() {
		return UncreatedRecord()
	}
	cur := ref.e.rec
	var nv Record
	if cur.kind == KindDouble || delta.kind == KindDouble {
		nv = NewDouble(cur.Double() + delta.Double())
	} else {
		nv = NewInt(cur.Int() + delta.Int())
	}
	nv.quality = cur.quality
	c.setLocked(ref, nv, DefaultSettings())
	return ref.e.rec
}

// Dec subtracts delta, mirroring Inc.
func (c *Context) Dec(ref VarRef, delta Record) Record {
	neg := delta
	if neg.kind == KindDouble {
		neg.f = -neg.f
	} else {
		neg.i = -neg.i
	}
	return c.Inc(ref, neg)
}

// Clock returns the clock stamp on the Record at ref.
func (c *Context) Clock(ref VarRef) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !ref.Valid() {
		return 0
	}
	return ref.e.rec.clock
}

// SetClock forcibly overrides the clock stamp, used by replay/checkpoint
// restore and the #set_clock system call.
func (c *Context) SetClock(ref VarRef, clock uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !ref.Valid() {
		return
	}
	ref.e.rec.clock = clock
	if clock > c.globalClock {
		c.globalClock = clock
	}
}

// Clear returns key to the Uncreated state without removing the entry, so
// outstanding VarRefs remain valid (spec §3 "Lifecycle").
func (c *Context) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.rec = UncreatedRecord()
	c.changed.Delete(key)
	c.localChanged.Delete(key)
}

// DeleteVariable removes the entry entirely and invalidates any outstanding
// VarRef to it via the generation counter (spec §3 "Lifecycle", Open
// Question 4's resolved decision — see SPEC_FULL.md).
func (c *Context) DeleteVariable(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(key)
}

func (c *Context) deleteLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.deleted = true
	e.generation++
	delete(c.entries, key)
	c.changed.Delete(key)
	c.localChanged.Delete(key)
}

// UpdateFromExternal applies the conflict-resolution rules of spec §3 to an
// incoming record and returns spec §4.1's five-way result code.
func (c *Context) UpdateFromExternal(key string, rhs Record, settings Settings) UpdateResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := c.getRefLocked(key)
	cur := ref.e.rec
	result := resolveConflict(cur.quality, cur.clock, rhs.quality, rhs.clock)
	if result != UpdateChanged {
		return result
	}
	rhs.status = Modified
	ref.e.rec = rhs
	if rhs.clock > c.globalClock {
		c.globalClock = rhs.clock
	}
	if settings.TrackLocalChanges {
		if IsLocal(key) {
			c.localChanged.ReplaceOrInsert(key)
		} else {
			c.changed.ReplaceOrInsert(key)
		}
	}
	if c.streamer != nil {
		c.streamer.OnRecordChanged(key, rhs)
	}
	if settings.SignalChanges {
		c.cond.Broadcast()
	}
	return result
}

// MarkToSend queues ref for the next transport send even if it was written
// locally without triggering the usual modified-tracking (spec §4.1
// "mark_to_send").
func (c *Context) MarkToSend(ref VarRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ref.Valid() {
		c.changed.ReplaceOrInsert(ref.e.name)
	}
}

// MarkToCheckpoint queues ref for the next checkpoint diff (spec §4.1
// "mark_to_checkpoint").
func (c *Context) MarkToCheckpoint(ref VarRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ref.Valid() {
		c.localChanged.ReplaceOrInsert(ref.e.name)
	}
}

// GetModifieds returns every currently-tracked changed name mapped to its
// Record (spec §4.1 "get_modifieds() -> VarRefMap").
func (c *Context) GetModifieds() map[string]Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Record, c.changed.Len())
	c.changed.Ascend(func(name string) bool {
		if e, ok := c.entries[name]; ok {
			out[name] = e.rec
		}
		return true
	})
	return out
}

// SaveModifieds snapshots the current changed set as a VarRef slice without
// clearing it (spec §4.1 "save_modifieds() -> Vec<VarRef>").
func (c *Context) SaveModifieds() []VarRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []VarRef
	c.changed.Ascend(func(name string) bool {
		if e, ok := c.entries[name]; ok {
			out = append(out, VarRef{e: e, generation: e.generation})
		}
		return true
	})
	return out
}

// AddModifieds re-adds a previously saved snapshot to the changed set (spec
// §4.1 "add_modifieds(Vec)").
func (c *Context) AddModifieds(refs []VarRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ref := range refs {
		if ref.Valid() {
			c.changed.ReplaceOrInsert(ref.e.name)
		}
	}
}

// ResetModified clears both changed sets (spec §4.1 "reset_modified()").
func (c *Context) ResetModified() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changed.Clear(false)
	c.localChanged.Clear(false)
}

// WaitForChange blocks on the change condition variable. extraRelease
// mirrors spec §4.1's "releases the lock an additional time for nested
// locks": each unit briefly unlocks and relocks before the Wait, so a caller
// that logically nested additional lock acquisitions before calling this
// does not deadlock the broadcaster.
func (c *Context) WaitForChange(extraRelease int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < extraRelease; i++ {
		c.mu.Unlock()
		c.mu.Lock()
	}
	c.cond.Wait()
}

// AttachStreamer installs a new Streamer and returns the previous one, or
// nil if none was set (spec §4.1 "attach_streamer").
func (c *Context) AttachStreamer(s Streamer) Streamer {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.streamer
	c.streamer = s
	return prev
}

// GlobalClock returns the participant's current Lamport clock.
func (c *Context) GlobalClock() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.globalClock
}

// Export returns every entry in the context, not just the changed set — the
// full-snapshot counterpart to GetModifieds, used by the checkpoint package
// to dump a complete restore point rather than a diff.
func (c *Context) Export() map[string]Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Record, len(c.entries))
	for name, e := range c.entries {
		out[name] = e.rec
	}
	return out
}

// Import loads a full snapshot produced by Export (or a checkpoint restore)
// back into the context, creating any name not already present.
func (c *Context) Import(snapshot map[string]Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, rec := range snapshot {
		e, ok := c.entries[name]
		if !ok {
			e = &entry{name: name}
			c.entries[name] = e
		}
		e.rec = rec
	}
}

// Clone deep-copies every entry except shared array payloads, which remain
// shared (spec §3 "Cloning the context is a deep copy except for shared
// array payloads").
func (c *Context) Clone() *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := NewContext()
	out.globalClock = c.globalClock
	for name, e := range c.entries {
		out.entries[name] = &entry{name: name, rec: e.rec}
	}
	c.changed.Ascend(func(name string) bool { out.changed.ReplaceOrInsert(name); return true })
	c.localChanged.Ascend(func(name string) bool { out.localChanged.ReplaceOrInsert(name); return true })
	return out
}
