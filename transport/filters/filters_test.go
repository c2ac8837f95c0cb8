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
package filters

import (
	"bytes"
	"testing"

	"github.com/launix-de/madara/knowledge"
)

func TestAESRoundtrip(t *testing.T) {
	f := NewAESFilter("correct horse battery staple")
	plain := []byte("the quick brown fox jumps over the lazy dog")
	enc, err := f.Encode(plain)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(enc, plain) {
		t.Fatal("expected ciphertext to differ from plaintext")
	}
	dec, err := f.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, plain) {
		t.Fatalf("roundtrip mismatch: got %q, want %q", dec, plain)
	}
}

func TestAESDecodeRejectsBadLength(t *testing.T) {
	f := NewAESFilter("pw")
	if _, err := f.Decode([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error decoding a non-block-aligned buffer")
	}
}

func TestLZ4Roundtrip(t *testing.T) {
	f := NewLZ4Filter()
	plain := bytes.Repeat([]byte("madara madara madara "), 50)
	enc, err := f.Encode(plain)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := f.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, plain) {
		t.Fatal("lz4 roundtrip mismatch")
	}
}

func TestChainBufferStackOrder(t *testing.T) {
	c := &Chain{Buffers: []BufferFilter{NewLZ4Filter(), NewAESFilter("pw")}}
	plain := []byte("hello fragment world, this is a longer message to compress")
	enc, err := c.Encode(plain)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, plain) {
		t.Fatalf("chain roundtrip mismatch: got %q, want %q", dec, plain)
	}
}

type dropStringsFilter struct{}

func (dropStringsFilter) Types() uint32 { return 1 << uint(knowledge.KindString) }
func (dropStringsFilter) Filter(name string, rec knowledge.Record, ctx *Context) knowledge.Record {
	return knowledge.UncreatedRecord()
}

func TestApplyRecordsDropsFiltered(t *testing.T) {
	c := &Chain{Records: []RecordFilter{dropStringsFilter{}}}
	updates := map[string]knowledge.Record{
		"a": knowledge.NewInt(1),
		"b": knowledge.NewString("secret"),
	}
	c.ApplyRecords(updates, &Context{})
	if _, ok := updates["b"]; ok {
		t.Fatal("expected string record to be dropped by the filter")
	}
	if _, ok := updates["a"]; !ok {
		t.Fatal("expected int record to survive, filter only targets strings")
	}
}

type addExtraFilter struct{}

func (addExtraFilter) FilterAll(updates map[string]knowledge.Record, ctx *Context) {
	updates["injected"] = knowledge.NewInt(7)
}

func TestApplyAggregatesCanInject(t *testing.T) {
	c := &Chain{Aggregates: []AggregateFilter{addExtraFilter{}}}
	updates := map[string]knowledge.Record{}
	c.ApplyAggregates(updates, &Context{})
	if updates["injected"].Int() != 7 {
		t.Fatal("expected aggregate filter to inject a new record")
	}
}
