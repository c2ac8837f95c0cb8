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

import "fmt"

// Kind tags the variant stored in a Record. Kept small and closed, the
// idiomatic Go replacement for the original's virtual value hierarchy.
type Kind uint8

const (
	KindNone Kind = iota
	KindInt
	KindDouble
	KindIntArray
	KindDoubleArray
	KindString
	KindBlob
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindIntArray:
		return "int[]"
	case KindDoubleArray:
		return "double[]"
	case KindString:
		return "string"
	case KindBlob:
		return "blob"
	case KindAny:
		return "any"
	default:
		return "unknown"
	}
}

// BlobKind distinguishes the original's text-file/xml/jpeg-image/unknown-file
// variants, all of which share one byte-slice payload representation on the
// wire and in memory (see SPEC_FULL.md §3 supplemental note).
type BlobKind uint8

const (
	BlobKindUnknown BlobKind = iota
	BlobKindText
	BlobKindXML
	BlobKindJPEG
)

// Status mirrors the original's uncreated/modified/unmodified tri-state.
type Status uint8

const (
	Uncreated Status = iota
	Modified
	Unmodified
)

// arrayHandle is the shared, copy-on-write backing store for array and blob
// payloads (spec §3 invariant (b)). A Record never mutates the slice behind
// a handle in place; SetIndex always works on a clone.
type arrayHandle struct {
	ints    []int64
	doubles []float64
	bytes   []byte
	blobK   BlobKind
	any     any
}

// Record is the tagged-union value stored against a name in a Context. The
// zero Record is Uncreated and semantically absent (spec §3 invariant (a)).
type Record struct {
	kind         Kind
	i            int64
	f            float64
	s            string
	arr          *arrayHandle
	clock        uint64
	quality      uint32
	writeQuality uint32
	status       Status
}

// NewInt builds a freshly-created integer Record with clock/quality zero;
// callers normally obtain clock/quality from Context.Set instead.
func NewInt(v int64) Record { return Record{kind: KindInt, i: v, status: Modified} }

func NewDouble(v float64) Record { return Record{kind: KindDouble, f: v, status: Modified} }

func NewString(v string) Record { return Record{kind: KindString, s: v, status: Modified} }

func NewIntArray(v []int64) Record {
	cp := make([]int64, len(v))
	copy(cp, v)
	return Record{kind: KindIntArray, arr: &arrayHandle{ints: cp}, status: Modified}
}

func NewDoubleArray(v []float64) Record {
	cp := make([]float64, len(v))
	copy(cp, v)
	return Record{kind: KindDoubleArray, arr: &arrayHandle{doubles: cp}, status: Modified}
}

func NewBlob(v []byte, bk BlobKind) Record {
	cp := make([]byte, len(v))
	copy(cp, v)
	return Record{kind: KindBlob, arr: &arrayHandle{bytes: cp, blobK: bk}, status: Modified}
}

func NewAny(v any) Record {
	return Record{kind: KindAny, arr: &arrayHandle{any: v}, status: Modified}
}

// UncreatedRecord returns the canonical absent Record for a Kind-agnostic "empty".
func UncreatedRecord() Record { return Record{status: Uncreated} }

func (r Record) Kind() Kind         { return r.kind }
func (r Record) Status() Status     { return r.status }
func (r Record) Clock() uint64      { return r.clock }
func (r Record) Quality() uint32    { return r.quality }
func (r Record) WriteQuality() uint32 { return r.writeQuality }
func (r Record) IsUncreated() bool  { return r.status == Uncreated }
func (r Record) BlobKind() BlobKind {
	if r.arr == nil {
		return BlobKindUnknown
	}
	return r.arr.blobK
}

// Size implements spec §3: element count for arrays/strings, 1 for scalars,
// 0 for uncreated.
func (r Record) Size() int {
	if r.status == Uncreated {
		return 0
	}
	switch r.kind {
	case KindNone:
		return 0
	case KindIntArray:
		return len(r.arr.ints)
	case KindDoubleArray:
		return len(r.arr.doubles)
	case KindString:
		return len(r.s)
	case KindBlob:
		return len(r.arr.bytes)
	default:
		return 1
	}
}

func (r Record) Int() int64 {
	if r.status == Uncreated {
		return 0
	}
	switch r.kind {
	case KindInt:
		return r.i
	case KindDouble:
		return int64(r.f)
	case KindString:
		return parseLeadingInt(r.s)
	default:
		return 0
	}
}

func (r Record) Double() float64 {
	if r.status == Uncreated {
		return 0
	}
	switch r.kind {
	case KindInt:
		return float64(r.i)
	case KindDouble:
		return r.f
	case KindString:
		return parseLeadingFloat(r.s)
	default:
		return 0
	}
}

func (r Record) String() string {
	if r.status == Uncreated {
		return ""
	}
	switch r.kind {
	case KindString:
		return r.s
	case KindInt:
		return fmt.Sprintf("%d", r.i)
	case KindDouble:
		return fmt.Sprintf("%g", r.f)
	case KindBlob:
		return string(r.arr.bytes)
	default:
		return ""
	}
}

// IntArray returns the shared backing slice; callers must treat it as
// read-only (spec §3 invariant (b)) and go through SetIndex to mutate.
func (r Record) IntArray() []int64 {
	if r.arr == nil {
		return nil
	}
	return r.arr.ints
}

func (r Record) DoubleArray() []float64 {
	if r.arr == nil {
		return nil
	}
	return r.arr.doubles
}

func (r Record) Bytes() []byte {
	if r.arr == nil {
		return nil
	}
	return r.arr.bytes
}

func (r Record) Any() any {
	if r.arr == nil {
		return nil
	}
	return r.arr.any
}

// WithExternalStamp returns a copy of r stamped with the clock/quality of
// an incoming wire update, ready for Context.UpdateFromExternal's conflict
// resolution (spec §4.3/§4.7 receive path step 8).
func (r Record) WithExternalStamp(clock uint64, quality uint32) Record {
	r.clock = clock
	r.quality = quality
	r.status = Modified
	return r
}

// sharesHandleWith reports whether this Record points at the given array
// handle. Go's slices already alias an underlying array, so "sharing" here
// means two Records point at the *same* arrayHandle, compared by identity,
// not by an explicit counter. WithIndex does not consult it: it always
// copies.
func (r Record) sharesHandleWith(other *arrayHandle) bool {
	return r.arr == other
}

// WithIndex returns a new Record with element i set to value, always on a
// fresh copy of the backing array, so no other outstanding Record sees the
// change (spec §3 invariant (b), spec §4.1 Context.set_index).
func (r Record) WithIndex(i int, value Record) (Record, error) {
	if r.arr == nil {
		return r, fmt.Errorf("index on non-array record")
	}
	switch r.kind {
	case KindIntArray:
		if i < 0 || i >= len(r.arr.ints) {
			return r, fmt.Errorf("index %d out of bounds (len %d)", i, len(r.arr.ints))
		}
		cp := make([]int64, len(r.arr.ints))
		copy(cp, r.arr.ints)
		cp[i] = value.Int()
		nr := r
		nr.arr = &arrayHandle{ints: cp}
		return nr, nil
	case KindDoubleArray:
		if i < 0 || i >= len(r.arr.doubles) {
			return r, fmt.Errorf("index %d out of bounds (len %d)", i, len(r.arr.doubles))
		}
		cp := make([]float64, len(r.arr.doubles))
		copy(cp, r.arr.doubles)
		cp[i] = value.Double()
		nr := r
		nr.arr = &arrayHandle{doubles: cp}
		return nr, nil
	default:
		return r, fmt.Errorf("index on non-array record kind %v", r.kind)
	}
}

// Index returns element i as a scalar Record, or an Uncreated Record with a
// zero numeric coercion if i is out of bounds (spec §4.2 "evaluation errors
// ... return 0 and log at warning level").
func (r Record) Index(i int) Record {
	switch r.kind {
	case KindIntArray:
		if i < 0 || i >= len(r.arr.ints) {
			return UncreatedRecord()
		}
		return NewInt(r.arr.ints[i])
	case KindDoubleArray:
		if i < 0 || i >= len(r.arr.doubles) {
			return UncreatedRecord()
		}
		return NewDouble(r.arr.doubles[i])
	default:
		return UncreatedRecord()
	}
}

func parseLeadingInt(s string) int64 {
	var v int64
	neg := false
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		v = v*10 + int64(s[i]-'0')
		i++
	}
	if i == start {
		return 0
	}
	if neg {
		return -v
	}
	return v
}

func parseLeadingFloat(s string) float64 {
	// leading-numeric-prefix coercion per original_source Leaf_Node.h
	i := 0
	n := len(s)
	if i < n && (s[i] == '-' || s[i] == '+') {
		i++
	}
	start := i
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i < n && s[i] == '.' {
		i++
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	if i == start || (i == start+1 && s[start] == '.') {
		return 0
	}
	var f float64
	fmt.Sscanf(s[:i], "%g", &f)
	return f
}
