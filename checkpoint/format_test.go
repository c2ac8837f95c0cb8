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
package checkpoint

import (
	"testing"

	"github.com/launix-de/madara/knowledge"
)

func assertRecordEqual(t *testing.T, name string, got, want knowledge.Record) {
	t.Helper()
	if got.Kind() != want.Kind() {
		t.Fatalf("%s: kind mismatch: got %v want %v", name, got.Kind(), want.Kind())
	}
	switch want.Kind() {
	case knowledge.KindInt:
		if got.Int() != want.Int() {
			t.Fatalf("%s: got %d want %d", name, got.Int(), want.Int())
		}
	case knowledge.KindString:
		if got.String() != want.String() {
			t.Fatalf("%s: got %q want %q", name, got.String(), want.String())
		}
	}
}

func TestDumpLoadRoundtrip(t *testing.T) {
	snapshot := map[string]knowledge.Record{
		"a": knowledge.NewInt(42),
		"b": knowledge.NewString("hello"),
		"c": knowledge.NewDoubleArray([]float64{1.5, 2.5, 3.5}),
	}

	blob := Dump(snapshot, 1700000000)
	h, restored, err := Load(blob)
	if err != nil {
		t.Fatal(err)
	}
	if h.RecordCount != uint32(len(snapshot)) {
		t.Fatalf("expected record count %d, got %d", len(snapshot), h.RecordCount)
	}
	if h.Timestamp != 1700000000 {
		t.Fatalf("expected timestamp preserved, got %d", h.Timestamp)
	}
	if len(restored) != len(snapshot) {
		t.Fatalf("expected %d restored records, got %d", len(snapshot), len(restored))
	}
	assertRecordEqual(t, "a", restored["a"], snapshot["a"])
	assertRecordEqual(t, "b", restored["b"], snapshot["b"])
	if got := restored["c"].DoubleArray(); len(got) != 3 || got[1] != 2.5 {
		t.Fatalf("array round-trip mismatch: %v", got)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	if _, _, err := Load([]byte("not a checkpoint at all, way too short")); err == nil {
		t.Fatal("expected an error for a non-checkpoint blob")
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	blob := Dump(map[string]knowledge.Record{"x": knowledge.NewInt(1)}, 0)
	blob[11] = 99 // corrupt the version field
	if _, _, err := Load(blob); err == nil {
		t.Fatal("expected an error for an unsupported format version")
	}
}

func TestContextExportImportRoundtrip(t *testing.T) {
	ctx := knowledge.NewContext()
	ref := ctx.GetRef("x")
	ctx.Set(ref, knowledge.NewInt(99), knowledge.DefaultSettings())

	snapshot := ctx.Export()
	blob := Dump(snapshot, 0)
	_, restored, err := Load(blob)
	if err != nil {
		t.Fatal(err)
	}

	ctx2 := knowledge.NewContext()
	ctx2.Import(restored)
	if got := ctx2.Get("x"); got.Int() != 99 {
		t.Fatalf("expected restored context to carry x=99, got %v", got.Int())
	}
}
