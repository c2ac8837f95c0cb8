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
package transport

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	nlrm "github.com/launix-de/NonLockingReadMap"
	"github.com/launix-de/madara/internal/logx"
	"github.com/launix-de/madara/karl"
	"github.com/launix-de/madara/knowledge"
	"github.com/launix-de/madara/transport/filters"
	"github.com/launix-de/madara/transport/fragment"
	"github.com/launix-de/madara/transport/wire"
)

// Transport is the send/receive surface every concrete transport
// (UDPTransport, wstransport.WSTransport) implements, per spec §4.7.
type Transport interface {
	// PrepSend runs steps 1-7 of the send path and returns the outgoing
	// update set, or nil if the send should be skipped (shutdown,
	// bandwidth/scheduler drop).
	PrepSend() map[string]knowledge.Record
	// SendData runs steps 8-11: framing, fragmentation, buffer-filter
	// encode, and the actual write to the wire.
	SendData(updates map[string]knowledge.Record) (int, error)
	// ProcessReceivedUpdate runs the full 12-step receive path in spec
	// §4.7 over one received datagram.
	ProcessReceivedUpdate(buf []byte) (int, error)
	Close() error
}

// peerEntry is one known peer's last-seen clock/address, the payload
// behind peerTable below, stored in a third_party/NonLockingReadMap (see
// DESIGN.md). Every accepted message overwrites its originator's entry.
type peerEntry struct {
	addr       string
	lastClock  uint64
	lastSeenAt int64
}

func (p peerEntry) GetKey() string    { return p.addr }
func (p peerEntry) ComputeSize() uint { return 32 }

// peerTable tracks every originator this transport has ever heard from,
// keyed by address. ProcessReceivedUpdate records each accepted message
// here; lastClock reads an entry back, and nothing in this package calls it.
type peerTable struct {
	m nlrm.NonLockingReadMap[peerEntry, string]
}

func newPeerTable() *peerTable {
	return &peerTable{m: nlrm.New[peerEntry, string]()}
}

func (t *peerTable) observe(addr string, clock uint64, now int64) {
	t.m.Set(&peerEntry{addr: addr, lastClock: clock, lastSeenAt: now})
}

func (t *peerTable) lastClock(addr string) (uint64, bool) {
	e := t.m.Get(addr)
	if e == nil {
		return 0, false
	}
	return e.lastClock, true
}

// Base holds everything shared between transport implementations: the
// filter chains, bandwidth monitor, packet scheduler, fragment reassembly
// table, and settings. Concrete transports (UDPTransport, WSTransport)
// embed Base and add only their wire I/O.
type Base struct {
	Settings QoSSettings

	// InstanceID distinguishes this Base from any other running in the
	// same process or on the same host, for log lines and as the default
	// scheduler seed when Settings.PacketDropSeed is left at zero.
	InstanceID string

	Context *knowledge.Context

	Send        filters.Chain
	Receive     filters.Chain
	Rebroadcast filters.Chain

	sendBW  *BandwidthMonitor
	recvBW  *BandwidthMonitor
	sched   *PacketScheduler

	frags *fragment.Map
	peers *peerTable

	mu       sync.Mutex
	shutdown bool

	onDataReceived *karl.Compiled
}

// NewBase wires up the ambient machinery (bandwidth monitors, scheduler,
// fragment map) from settings, per spec §4.6/§4.7.
func NewBase(ctx *knowledge.Context, settings QoSSettings) (*Base, error) {
	id := uuid.New()
	b := &Base{
		Settings:   settings,
		InstanceID: id.String(),
		Context:    ctx,
		sendBW:     NewBandwidthMonitor(0),
		recvBW:     NewBandwidthMonitor(0),
		frags:      fragment.NewMap(settings.FragmentQueueLen),
		peers:      newPeerTable(),
	}
	seed := settings.PacketDropSeed
	if seed == 0 {
		seed = seedFromUUID(id)
	}
	switch settings.PacketDropType {
	case PolicyDeterministic:
		b.sched = NewDeterministicScheduler(settings.PacketDropRate, settings.PacketDropBurst, seed)
	case PolicyProbabilistic:
		b.sched = NewProbabilisticScheduler(settings.PacketDropRate, settings.PacketDropBurst, seed)
	default:
		b.sched = NewNoDropScheduler()
	}
	logx.Info("transport: instance %s starting (domain=%q hosts=%v)", b.InstanceID, settings.Domain, settings.Hosts)
	if settings.OnDataReceivedLogic != "" {
		compiled, err := ctx.Compile(settings.OnDataReceivedLogic)
		if err != nil {
			return nil, fmt.Errorf("transport: on_data_received_logic: %w", err)
		}
		b.onDataReceived = compiled
	}
	return b, nil
}

// Shutdown marks the transport invalid; subsequent PrepSend calls return
// nil ("-1" in the original's numeric vocabulary).
func (b *Base) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdown = true
}

func (b *Base) isShutdown() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shutdown
}

// PrepSend implements spec §4.7 steps 1-7.
func (b *Base) PrepSend() map[string]knowledge.Record {
	if b.Settings.NoSending {
		return nil
	}
	if b.isShutdown() {
		return nil
	}
	modifieds := b.Context.GetModifieds()
	if len(modifieds) == 0 {
		return nil
	}
	if b.sendBW.IsViolated(float64(b.Settings.SendBandwidth)) || b.sendBW.IsViolated(float64(b.Settings.TotalBandwidth)) {
		return nil
	}
	if b.sched.ShouldDrop() {
		return nil
	}

	fctx := &filters.Context{Operation: filters.OpSending, Domain: b.Settings.Domain, Originator: b.originator(), Records: map[string]knowledge.Record{}}
	b.Send.ApplyRecords(modifieds, fctx)
	b.Send.ApplyAggregates(modifieds, fctx)
	for name, rec := range fctx.Records {
		modifieds[name] = rec
	}
	return modifieds
}

// seedFromUUID turns a generated instance id into a scheduler seed, so two
// Bases started without an explicit packet_drop_seed don't share a
// hardcoded RNG sequence.
func seedFromUUID(id uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(id[:8]))
}

func (b *Base) originator() string {
	if len(b.Settings.Hosts) > 0 {
		return b.Settings.Hosts[0]
	}
	return ""
}

// maxQuality scans updates for the maximum quality field (spec §4.7 step
// 2), used to stamp the outgoing header's Quality field.
func maxQuality(updates map[string]knowledge.Record) uint32 {
	var max uint32
	for _, rec := range updates {
		if rec.Quality() > max {
			max = rec.Quality()
		}
	}
	return max
}

// EncodeMessage builds the header+updates datagram for updates, choosing
// reduced or full framing per settings, and splitting into fragments once
// the encoded size exceeds MaxFragmentSize (spec §4.7 step 9).
func (b *Base) EncodeMessage(updates map[string]knowledge.Record, clock uint64, ttl uint8) [][]byte {
	var body []byte
	for name, rec := range updates {
		body = wire.EncodeUpdate(body, recordToUpdate(name, rec))
	}

	timestamp := uint64(time.Now().Unix())
	var header []byte
	if b.Settings.SendReducedHeader {
		header = wire.EncodeReduced(wire.ReducedHeader{
			Size: uint64(wire.ReducedHeaderSize + len(body)), Updates: uint32(len(updates)), Clock: clock, TTL: ttl,
		})
	} else {
		header = wire.EncodeFull(wire.FullHeader{
			Size: uint64(wire.FullHeaderSize + len(body)), Domain: b.Settings.Domain, Originator: b.originator(),
			Type: wire.MsgTypeMultiAssign, Updates: uint32(len(updates)), Quality: maxQuality(updates),
			Clock: clock, Timestamp: timestamp, TTL: ttl,
		})
	}
	full := append(header, body...)

	if b.Settings.MaxFragmentSize <= 0 || int64(len(full)) <= b.Settings.MaxFragmentSize {
		return [][]byte{full}
	}
	return b.fragmentMessage(full, clock, timestamp, ttl)
}

func (b *Base) fragmentMessage(full []byte, clock, timestamp uint64, ttl uint8) [][]byte {
	chunkSize := int(b.Settings.MaxFragmentSize) - wire.FragmentHeaderSize
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	var chunks [][]byte
	for off := 0; off < len(full); off += chunkSize {
		end := off + chunkSize
		if end > len(full) {
			end = len(full)
		}
		chunks = append(chunks, full[off:end])
	}
	out := make([][]byte, 0, len(chunks))
	for i, c := range chunks {
		fh := wire.FragmentHeader{
			FullHeader:   wire.FullHeader{Domain: b.Settings.Domain, Originator: b.originator(), Type: wire.MsgTypeMultiAssign, Clock: clock, Timestamp: timestamp, TTL: ttl},
			UpdateNumber: uint32(i),
			TotalUpdates: uint32(len(chunks)),
		}
		out = append(out, append(wire.EncodeFragment(fh), c...))
	}
	return out
}

func recordToUpdate(name string, rec knowledge.Record) wire.Update {
	u := wire.Update{Name: name, Clock: rec.Clock(), Quality: rec.Quality()}
	switch rec.Kind() {
	case knowledge.KindInt:
		u.Type, u.Int = wire.TypeInt, rec.Int()
	case knowledge.KindDouble:
		u.Type, u.Double = wire.TypeDouble, rec.Double()
	case knowledge.KindIntArray:
		u.Type, u.Ints = wire.TypeIntArray, rec.IntArray()
	case knowledge.KindDoubleArray:
		u.Type, u.Doubles = wire.TypeDoubleArray, rec.DoubleArray()
	case knowledge.KindString:
		u.Type, u.Str = wire.TypeString, rec.String()
	case knowledge.KindBlob:
		u.Type, u.Blob = wire.TypeBlob, rec.Bytes()
	}
	return u
}

func updateToRecord(u wire.Update) knowledge.Record {
	var rec knowledge.Record
	switch u.Type {
	case wire.TypeInt:
		rec = knowledge.NewInt(u.Int)
	case wire.TypeDouble:
		rec = knowledge.NewDouble(u.Double)
	case wire.TypeIntArray:
		rec = knowledge.NewIntArray(u.Ints)
	case wire.TypeDoubleArray:
		rec = knowledge.NewDoubleArray(u.Doubles)
	case wire.TypeString:
		rec = knowledge.NewString(u.Str)
	case wire.TypeBlob:
		rec = knowledge.NewBlob(u.Blob, knowledge.BlobKindUnknown)
	}
	return rec.WithExternalStamp(u.Clock, u.Quality)
}

// isTrusted applies the trusted/banned peer filter of spec §4.7 step 4.
func (b *Base) isTrusted(originator string) bool {
	for _, p := range b.Settings.BannedPeers {
		if p == originator {
			return false
		}
	}
	if len(b.Settings.TrustedPeers) == 0 {
		return true
	}
	for _, p := range b.Settings.TrustedPeers {
		if p == originator {
			return true
		}
	}
	return false
}

// runOnDataReceived evaluates the configured on_data_received_logic
// expression under the context lock, per spec §4.7 step "On-data-received
// logic".
func (b *Base) runOnDataReceived() {
	if b.onDataReceived == nil {
		return
	}
	rec := b.Context.Evaluate(b.onDataReceived, knowledge.DefaultSettings())
	logx.Debug("on_data_received_logic evaluated to %v", rec.String())
}

// RebroadcastFunc re-sends an already-decoded update set over whatever
// medium a concrete transport uses (UDPTransport/WSTransport.SendData);
// Base.ProcessReceivedUpdate calls it for step 12 of the receive path so
// the dispatch/decode/conflict-resolution logic below is shared by every
// Transport implementation instead of duplicated per medium.
type RebroadcastFunc func(updates map[string]knowledge.Record) (int, error)

// ProcessReceivedUpdate runs the full 12-step receive path of spec §4.7
// over one received datagram, shared by every concrete Transport. The
// returned int is the applied-update count on success, or one of the
// negative codes from the step list on early rejection.
func (b *Base) ProcessReceivedUpdate(buf []byte, rebroadcast RebroadcastFunc) (int, error) {
	if b.Settings.NoReceiving {
		return 0, nil
	}
	b.recvBW.Add(int64(len(buf)))
	decoded, err := b.Receive.Decode(buf)
	if err != nil {
		return -1, err
	}

	switch wire.DetectVariant(decoded) {
	case wire.VariantFull:
		if len(decoded) >= wire.FragmentHeaderSize && looksLikeFragment(decoded) {
			fh, err := wire.DecodeFragment(decoded)
			if err != nil {
				return -1, err
			}
			return b.handleFragment(fh, decoded[wire.FragmentHeaderSize:], rebroadcast)
		}
		h, err := wire.DecodeFull(decoded)
		if err != nil {
			return -1, err
		}
		return b.applyReceivedBody(h.Originator, h.Domain, h.Clock, h.Timestamp, h.TTL, decoded[wire.FullHeaderSize:], rebroadcast)
	case wire.VariantReduced:
		h, err := wire.DecodeReduced(decoded)
		if err != nil {
			return -1, err
		}
		// The reduced header omits domain/timestamp because they're implicit
		// (§9 OQ3): domain is this transport's own configured domain, and
		// timestamp is "now", so the deadline check below always passes for
		// a reduced-framing datagram.
		return b.applyReceivedBody("", b.Settings.Domain, h.Clock, uint64(time.Now().Unix()), h.TTL, decoded[wire.ReducedHeaderSize:], rebroadcast)
	default:
		return -1, fmt.Errorf("transport: not a MADARA datagram")
	}
}

// looksLikeFragment distinguishes a FragmentHeader from a plain FullHeader:
// EncodeMessage/fragmentMessage are the only producers of outgoing
// datagrams, and a genuine multi-assign message always has Updates > 0
// (PrepSend never sends an empty modified set), whereas a fragment's
// embedded FullHeader leaves Updates at its zero value since a per-fragment
// piece carries no update count of its own.
func looksLikeFragment(decoded []byte) bool {
	h, err := wire.DecodeFull(decoded[:wire.FullHeaderSize])
	if err != nil {
		return false
	}
	return h.Updates == 0
}

func (b *Base) handleFragment(fh wire.FragmentHeader, piece []byte, rebroadcast RebroadcastFunc) (int, error) {
	key := fragment.Key{Originator: fh.Originator, Clock: fh.Clock}
	full, done := b.frags.Add(key, fh.UpdateNumber, fh.TotalUpdates, piece)
	if !done {
		return 0, nil
	}
	return b.applyReceivedBody(fh.Originator, fh.Domain, fh.Clock, fh.Timestamp, fh.TTL, full, rebroadcast)
}

func (b *Base) applyReceivedBody(originator, domain string, clock, timestamp uint64, ttl uint8, body []byte, rebroadcast RebroadcastFunc) (int, error) {
	if originator != "" && originator == b.originator() {
		return -2, nil
	}
	if !b.isTrusted(originator) {
		return -3, nil
	}
	if b.Settings.Domain != "" && domain != "" && domain != b.Settings.Domain {
		return -5, nil
	}
	if b.Settings.DeadlineSeconds > 0 {
		age := float64(time.Now().Unix() - int64(timestamp))
		if age > b.Settings.DeadlineSeconds {
			return -6, nil
		}
	}

	updates := make(map[string]knowledge.Record)
	off := 0
	for off < len(body) {
		u, n, err := wire.DecodeUpdate(body[off:])
		if err != nil {
			return -1, err
		}
		off += n
		updates[u.Name] = updateToRecord(u)
	}

	rctx := &filters.Context{Operation: filters.OpReceiving, Domain: domain, Originator: originator, Records: map[string]knowledge.Record{}}
	b.Receive.ApplyRecords(updates, rctx)
	b.Receive.ApplyAggregates(updates, rctx)
	for name, rec := range rctx.Records {
		updates[name] = rec
	}

	applied := 0
	for name, rec := range updates {
		res := b.Context.UpdateFromExternal(name, rec, knowledge.DefaultSettings())
		if res == knowledge.UpdateChanged {
			applied++
		}
	}
	b.peers.observe(originator, clock, time.Now().Unix())
	b.runOnDataReceived()

	if ttl > 0 && b.Settings.ParticipantRebroadcastTTL > 0 && rebroadcast != nil {
		capped := ttl - 1
		if pcap := uint8(b.Settings.ParticipantRebroadcastTTL); capped > pcap {
			capped = pcap
		}
		if capped > 0 && !b.recvBW.IsViolated(float64(b.Settings.TotalBandwidth)) {
			rbCtx := &filters.Context{Operation: filters.OpRebroadcasting, Domain: b.Settings.Domain, Originator: b.originator(), Records: map[string]knowledge.Record{}}
			b.Rebroadcast.ApplyRecords(updates, rbCtx)
			b.Rebroadcast.ApplyAggregates(updates, rbCtx)
			rebroadcast(updates)
		}
	}

	return applied, nil
}
