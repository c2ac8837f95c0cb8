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
package knowledge

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/launix-de/madara/internal/logx"
	"github.com/launix-de/madara/karl"
)

// ctxStore adapts a *Context, with its lock already held by the caller, to
// karl.Store. It is the only place that converts between Record and
// karl.Value, keeping karl itself free of any import on package knowledge
// (see DESIGN.md "Package layering note").
//
// Every method here assumes c.mu is already locked: Compile/Evaluate below
// take the lock once at the public boundary and the whole expression-tree
// walk recurses through these *Locked-equivalent methods without locking
// again, per SPEC_FULL.md §4.1's "lock once at the API boundary" decision.
type ctxStore struct {
	c *Context
}

func recordToValue(r Record) karl.Value {
	switch r.kind {
	case KindNone:
		return karl.None()
	case KindInt:
		return karl.Int(r.i)
	case KindDouble:
		return karl.Double(r.f)
	case KindString:
		return karl.String(r.s)
	case KindIntArray:
		return karl.IntArray(r.IntArray())
	case KindDoubleArray:
		return karl.DoubleArray(r.DoubleArray())
	case KindBlob:
		return karl.Value{Kind: karl.KindBlob, Bytes: r.Bytes()}
	default:
		return karl.Value{Kind: karl.KindAny, Any: r.Any()}
	}
}

func valueToRecord(v karl.Value) Record {
	switch v.Kind {
	case karl.KindNone:
		return UncreatedRecord()
	case karl.KindInt:
		return NewInt(v.I)
	case karl.KindDouble:
		return NewDouble(v.F)
	case karl.KindString:
		return NewString(v.S)
	case karl.KindIntArray:
		return NewIntArray(v.Ints)
	case karl.KindDoubleArray:
		return NewDoubleArray(v.Doubles)
	case karl.KindBlob:
		return NewBlob(v.Bytes, BlobKindUnknown)
	default:
		return NewAny(v.Any)
	}
}

func settingsFromKarl(s karl.Settings) Settings {
	return Settings{
		TreatGlobalsAsLocals: s.TreatGlobalsAsLocals,
		SignalChanges:        s.SignalChanges,
		AlwaysOverwrite:      s.AlwaysOverwrite,
		TrackLocalChanges:    s.TrackLocalChanges,
	}
}

func (s *ctxStore) Get(name string) karl.Value {
	return recordToValue(s.c.getLocked(name))
}

func (s *ctxStore) GetRef(name string) karl.Ref {
	return s.c.getRefLocked(name)
}

func (s *ctxStore) RefName(ref karl.Ref) string {
	vr, ok := ref.(VarRef)
	if !ok {
		return ""
	}
	return vr.Name()
}

func (s *ctxStore) asVarRef(ref karl.Ref) (VarRef, bool) {
	vr, ok := ref.(VarRef)
	return vr, ok
}

func (s *ctxStore) Set(ref karl.Ref, v karl.Value, settings karl.Settings) int {
	vr, ok := s.asVarRef(ref)
	if !ok {
		return -1
	}
	return s.c.setLocked(vr, valueToRecord(v), settingsFromKarl(settings))
}

func (s *ctxStore) SetIndex(ref karl.Ref, i int, v karl.Value) int {
	vr, ok := s.asVarRef(ref)
	if !ok {
		return -1
	}
	return s.c.setIndexLocked(vr, i, valueToRecord(v))
}

func (s *ctxStore) Index(ref karl.Ref, i int) karl.Value {
	vr, ok := s.asVarRef(ref)
	if !ok || !vr.Valid() {
		return karl.None()
	}
	return recordToValue(vr.e.rec.Index(i))
}

func (s *ctxStore) Size(ref karl.Ref) int {
	vr, ok := s.asVarRef(ref)
	if !ok || !vr.Valid() {
		return 0
	}
	return vr.e.rec.Size()
}

func (s *ctxStore) Inc(ref karl.Ref, delta karl.Value) karl.Value {
	vr, ok := s.asVarRef(ref)
	if !ok || !vr.Valid() {
		return karl.None()
	}
	cur := vr.e.rec
	var nv Record
	if cur.kind == KindDouble || delta.Kind == karl.KindDouble {
		nv = NewDouble(cur.Double() + delta.Double())
	} else {
		nv = NewInt(cur.Int() + delta.Int())
	}
	nv.quality = cur.quality
	s.c.setLocked(vr, nv, DefaultSettings())
	return recordToValue(vr.e.rec)
}

func (s *ctxStore) Dec(ref karl.Ref, delta karl.Value) karl.Value {
	neg := delta
	if neg.Kind == karl.KindDouble {
		neg.F = -neg.F
	} else {
		neg.I = -neg.I
	}
	return s.Inc(ref, neg)
}

func (s *ctxStore) Clock(ref karl.Ref) uint64 {
	vr, ok := s.asVarRef(ref)
	if !ok || !vr.Valid() {
		return 0
	}
	return vr.e.rec.clock
}

func (s *ctxStore) SetClock(ref karl.Ref, clock uint64) {
	vr, ok := s.asVarRef(ref)
	if !ok || !vr.Valid() {
		return
	}
	vr.e.rec.clock = clock
	if clock > s.c.globalClock {
		s.c.globalClock = clock
	}
}

func (s *ctxStore) DeleteVariable(name string) {
	s.c.deleteLocked(name)
}

func (s *ctxStore) CallFunction(name string, args []karl.Value) (karl.Value, bool) {
	fn, ok := s.c.functions[name]
	if !ok {
		return karl.None(), false
	}
	recs := make([]Record, len(args))
	for i, a := range args {
		recs[i] = valueToRecord(a)
	}
	return recordToValue(fn(recs)), true
}

// Eval runs a nested KaRL program against the same, already-locked store —
// it must not call Context.Evaluate (which would try to re-lock c.mu).
func (s *ctxStore) Eval(source string) (karl.Value, error) {
	compiled, err := karl.Compile(source)
	if err != nil {
		return karl.Value{}, err
	}
	return compiled.Eval(s, karl.DefaultSettings()), nil
}

func (s *ctxStore) Print(args []string) {
	var line string
	for i, a := range args {
		if i > 0 {
			line += " "
		}
		line += a
	}
	fmt.Println(line)
}

func (s *ctxStore) ReadFile(ref karl.Ref, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	vr, ok := s.asVarRef(ref)
	if !ok {
		return fmt.Errorf("read_file: invalid reference")
	}
	s.c.setLocked(vr, NewBlob(data, blobKindForPath(path)), DefaultSettings())
	return nil
}

func (s *ctxStore) WriteFile(ref karl.Ref, path string) error {
	vr, ok := s.asVarRef(ref)
	if !ok || !vr.Valid() {
		return fmt.Errorf("write_file: invalid reference")
	}
	return os.WriteFile(path, vr.e.rec.Bytes(), 0644)
}

func blobKindForPath(path string) BlobKind {
	n := len(path)
	switch {
	case n >= 4 && path[n-4:] == ".xml":
		return BlobKindXML
	case n >= 4 && path[n-4:] == ".jpg":
		return BlobKindJPEG
	case n >= 5 && path[n-5:] == ".jpeg":
		return BlobKindJPEG
	case n >= 4 && path[n-4:] == ".txt":
		return BlobKindText
	default:
		return BlobKindUnknown
	}
}

func (s *ctxStore) Now() time.Time { return time.Now() }

func (s *ctxStore) Sleep(d time.Duration) { time.Sleep(d) }

func (s *ctxStore) RandInt(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + rand.Int63n(hi-lo)
}

func (s *ctxStore) RandDouble(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

func (s *ctxStore) SetLogLevel(n int) { logx.SetLevel(n) }

func (s *ctxStore) SetFixed() {}

func (s *ctxStore) SetScientific() {}

// Compile parses expr into a compiled tree, to be evaluated later against
// this Context via Evaluate (spec §4.1 "compile(expression) -> Compiled").
// Parsing itself touches no store state, so no lock is required here.
func (c *Context) Compile(expr string) (*karl.Compiled, error) {
	return karl.Compile(expr)
}

// Evaluate takes the context lock once, walks compiled against this Context
// (pushing every write into the changed set the same way Set does), and
// returns the resulting Record (spec §4.1 "evaluate(Compiled, settings)").
func (c *Context) Evaluate(compiled *karl.Compiled, settings Settings) Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	ks := karl.Settings{
		TreatGlobalsAsLocals: settings.TreatGlobalsAsLocals,
		SignalChanges:        settings.SignalChanges,
		AlwaysOverwrite:      settings.AlwaysOverwrite,
		TrackLocalChanges:    settings.TrackLocalChanges,
	}
	v := compiled.Eval(&ctxStore{c: c}, ks)
	return valueToRecord(v)
}

// Eval parses and evaluates source in one call, the #eval(...) system call's
// entrypoint and a convenience for the shell (cmd/madara-shell).
func (c *Context) Eval(source string) (Record, error) {
	compiled, err := c.Compile(source)
	if err != nil {
		return Record{}, err
	}
	return c.Evaluate(compiled, DefaultSettings()), nil
}
