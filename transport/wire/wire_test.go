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
package wire

import "testing"

func TestFullHeaderRoundtrip(t *testing.T) {
	h := FullHeader{
		Size: 200, Domain: "dom1", Originator: "10.0.0.1:4444",
		Type: MsgTypeMultiAssign, Updates: 3, Quality: 5, Clock: 42,
		Timestamp: 1234567890, TTL: 7,
	}
	buf := EncodeFull(h)
	if len(buf) != FullHeaderSize {
		t.Fatalf("encoded full header is %d bytes, want %d", len(buf), FullHeaderSize)
	}
	got, err := DecodeFull(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Domain != "dom1" || got.Originator != "10.0.0.1:4444" || got.Clock != 42 || got.TTL != 7 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestDetectVariant(t *testing.T) {
	full := EncodeFull(FullHeader{MadaraID: fullMagic})
	reduced := EncodeReduced(ReducedHeader{MadaraID: reducedMagic})
	if v := DetectVariant(full); v != VariantFull {
		t.Fatalf("expected VariantFull, got %v", v)
	}
	if v := DetectVariant(reduced); v != VariantReduced {
		t.Fatalf("expected VariantReduced, got %v", v)
	}
	if v := DetectVariant([]byte("garbage!")); v != VariantUnknown {
		t.Fatalf("expected VariantUnknown for a non-MADARA buffer, got %v", v)
	}
}

func TestReducedHeaderRoundtrip(t *testing.T) {
	h := ReducedHeader{Size: 99, Updates: 2, Clock: 17, TTL: 3}
	buf := EncodeReduced(h)
	if len(buf) != ReducedHeaderSize {
		t.Fatalf("encoded reduced header is %d bytes, want %d", len(buf), ReducedHeaderSize)
	}
	got, err := DecodeReduced(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Clock != 17 || got.Updates != 2 || got.TTL != 3 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestFragmentHeaderRoundtrip(t *testing.T) {
	h := FragmentHeader{
		FullHeader:   FullHeader{Clock: 5, TTL: 1},
		UpdateNumber: 2,
		TotalUpdates: 4,
	}
	buf := EncodeFragment(h)
	got, err := DecodeFragment(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.UpdateNumber != 2 || got.TotalUpdates != 4 || got.Clock != 5 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestUpdateRoundtripAllTypes(t *testing.T) {
	cases := []Update{
		{Name: "x", Type: TypeInt, Clock: 1, Quality: 2, Int: -42},
		{Name: "y", Type: TypeDouble, Clock: 1, Quality: 2, Double: 3.5},
		{Name: "arr", Type: TypeIntArray, Ints: []int64{1, 2, 3}},
		{Name: "darr", Type: TypeDoubleArray, Doubles: []float64{1.5, 2.5}},
		{Name: "s", Type: TypeString, Str: "hello"},
		{Name: "b", Type: TypeBlob, Blob: []byte{1, 2, 3, 4}},
	}
	for _, u := range cases {
		buf := EncodeUpdate(nil, u)
		got, n, err := DecodeUpdate(buf)
		if err != nil {
			t.Fatalf("%s: %v", u.Name, err)
		}
		if n != len(buf) {
			t.Errorf("%s: consumed %d bytes, want %d", u.Name, n, len(buf))
		}
		if got.Name != u.Name || got.Type != u.Type {
			t.Errorf("%s: got %+v", u.Name, got)
		}
	}
}

func TestDecodeUpdateMultipleInSequence(t *testing.T) {
	buf := EncodeUpdate(nil, Update{Name: "a", Type: TypeInt, Int: 1})
	buf = EncodeUpdate(buf, Update{Name: "b", Type: TypeInt, Int: 2})

	u1, n1, err := DecodeUpdate(buf)
	if err != nil {
		t.Fatal(err)
	}
	u2, _, err := DecodeUpdate(buf[n1:])
	if err != nil {
		t.Fatal(err)
	}
	if u1.Name != "a" || u1.Int != 1 || u2.Name != "b" || u2.Int != 2 {
		t.Fatalf("got u1=%+v u2=%+v", u1, u2)
	}
}
