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

import "testing"

func TestUncreatedRecordIsAbsent(t *testing.T) {
	r := UncreatedRecord()
	if !r.IsUncreated() {
		t.Fatal("expected UncreatedRecord to report IsUncreated")
	}
	if r.Size() != 0 {
		t.Fatalf("expected size 0 for uncreated record, got %d", r.Size())
	}
	if r.Int() != 0 || r.Double() != 0 || r.String() != "" {
		t.Fatalf("expected zero coercions for uncreated record, got int=%d double=%v string=%q", r.Int(), r.Double(), r.String())
	}
}

func TestRecordSize(t *testing.T) {
	cases := []struct {
		name string
		r    Record
		want int
	}{
		{"int", NewInt(5), 1},
		{"double", NewDouble(1.5), 1},
		{"string", NewString("hello"), 5},
		{"intarray", NewIntArray([]int64{1, 2, 3}), 3},
		{"doublearray", NewDoubleArray([]float64{1, 2}), 2},
	}
	for _, c := range cases {
		if got := c.r.Size(); got != c.want {
			t.Errorf("%s: Size() = %d, want %d", c.name, got, c.want)
		}
	}
}

// TestArrayCopyOnWrite verifies that WithIndex never mutates the original
// Record's backing array — spec §3 invariant (b).
func TestArrayCopyOnWrite(t *testing.T) {
	original := NewIntArray([]int64{1, 2, 3})
	shared := original // shares the same *arrayHandle

	updated, err := original.WithIndex(1, NewInt(99))
	if err != nil {
		t.Fatal(err)
	}

	if shared.IntArray()[1] != 2 {
		t.Fatalf("original array handle was mutated in place: got %v", shared.IntArray())
	}
	if updated.IntArray()[1] != 99 {
		t.Fatalf("expected updated array to carry the new value, got %v", updated.IntArray())
	}
}

func TestWithIndexOutOfBounds(t *testing.T) {
	r := NewIntArray([]int64{1, 2, 3})
	if _, err := r.WithIndex(5, NewInt(1)); err == nil {
		t.Fatal("expected an error for an out-of-bounds index")
	}
}

func TestIndexOutOfBoundsReturnsUncreated(t *testing.T) {
	r := NewIntArray([]int64{1, 2, 3})
	got := r.Index(10)
	if !got.IsUncreated() {
		t.Fatalf("expected Index out of bounds to return an uncreated Record, got %+v", got)
	}
}

func TestStringNumericCoercion(t *testing.T) {
	r := NewString("42abc")
	if r.Int() != 42 {
		t.Fatalf("expected leading-numeric-prefix coercion to give 42, got %d", r.Int())
	}
	r2 := NewString("abc")
	if r2.Int() != 0 {
		t.Fatalf("expected non-numeric string to coerce to 0, got %d", r2.Int())
	}
}
