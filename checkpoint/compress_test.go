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
	"bytes"
	"testing"

	"github.com/launix-de/madara/knowledge"
)

func TestCompressDecompressRoundtrip(t *testing.T) {
	blob := Dump(map[string]knowledge.Record{
		"x": knowledge.NewString("a fairly repetitive string string string string string"),
	}, 42)

	compressed, err := Compress(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(compressed) == 0 {
		t.Fatal("expected non-empty compressed output")
	}

	decompressed, err := Decompress(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decompressed, blob) {
		t.Fatal("decompressed blob does not match original")
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	if _, err := Decompress([]byte("not xz data")); err == nil {
		t.Fatal("expected an error decompressing non-xz data")
	}
}
