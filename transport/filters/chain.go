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

// Package filters implements the three symmetric send/receive/rebroadcast
// filter chains of spec §4.5: per-type record filters, whole-message
// aggregate filters, and a stack of buffer filters applied over the raw
// encoded datagram.
package filters

import "github.com/launix-de/madara/knowledge"

// Operation identifies which phase of the send/receive path is calling a
// filter, mirroring the original TransportContext.operation field.
type Operation int

const (
	OpIdle Operation = iota
	OpSending
	OpReceiving
	OpRebroadcasting
)

// Context is the TransportContext every filter receives: the ambient state
// a filter may read, plus a scratch Records map a filter may add entries to
// so they propagate alongside the message being filtered.
type Context struct {
	Operation       Operation
	SendBandwidth   float64
	RecvBandwidth   float64
	MessageTime     uint64
	Now             uint64
	Domain          string
	Originator      string
	Records         map[string]knowledge.Record
}

// RecordFilter transforms or drops a single named record. Returning an
// uncreated Record (knowledge.Record{}.IsUncreated() == true) drops it from
// the outgoing/incoming set.
type RecordFilter interface {
	// Types reports the bitmask of knowledge.Kind values this filter wants
	// to see; Filter is only invoked for records whose kind matches.
	Types() uint32
	Filter(name string, rec knowledge.Record, ctx *Context) knowledge.Record
}

// AggregateFilter runs once per message against the whole update set and
// may add, modify, or erase entries in place.
type AggregateFilter interface {
	FilterAll(updates map[string]knowledge.Record, ctx *Context)
}

// BufferFilter runs outside the record layer, over the raw encoded bytes.
// Multiple buffer filters stack; Encode order is the reverse of Decode
// order, same as original_source's chained buffer filter behavior.
type BufferFilter interface {
	Encode(buf []byte) ([]byte, error)
	Decode(buf []byte) ([]byte, error)
}

// Chain is one of the three symmetric chains (send/receive/rebroadcast).
type Chain struct {
	Records    []RecordFilter
	Aggregates []AggregateFilter
	Buffers    []BufferFilter
}

// ApplyRecords runs every record filter whose Types() bitmask matches the
// record's kind, in order, dropping a record as soon as any filter returns
// an uncreated result.
func (c *Chain) ApplyRecords(updates map[string]knowledge.Record, ctx *Context) {
	for name, rec := range updates {
		kindBit := uint32(1) << uint(rec.Kind())
		for _, f := range c.Records {
			if f.Types()&kindBit == 0 {
				continue
			}
			rec = f.Filter(name, rec, ctx)
			if rec.IsUncreated() {
				break
			}
		}
		if rec.IsUncreated() {
			delete(updates, name)
		} else {
			updates[name] = rec
		}
	}
}

// ApplyAggregates runs every aggregate filter in order over the whole set.
func (c *Chain) ApplyAggregates(updates map[string]knowledge.Record, ctx *Context) {
	for _, f := range c.Aggregates {
		f.FilterAll(updates, ctx)
	}
}

// Encode runs the buffer filter stack in registration order (outermost
// first), matching original_source's send-side chaining.
func (c *Chain) Encode(buf []byte) ([]byte, error) {
	var err error
	for _, f := range c.Buffers {
		buf, err = f.Encode(buf)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Decode runs the buffer filter stack in reverse order, undoing Encode.
func (c *Chain) Decode(buf []byte) ([]byte, error) {
	var err error
	for i := len(c.Buffers) - 1; i >= 0; i-- {
		buf, err = c.Buffers[i].Decode(buf)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}
