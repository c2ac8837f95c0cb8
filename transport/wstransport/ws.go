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

// Package wstransport is an alternate Transport for spec §4.7, carrying
// MADARA datagrams over WebSocket connections instead of raw UDP — useful
// for participants behind browsers or HTTP-only egress.
package wstransport

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/launix-de/madara/internal/logx"
	"github.com/launix-de/madara/knowledge"
	"github.com/launix-de/madara/transport"
)

// WSTransport wraps transport.Base, replacing the UDP socket with a set of
// WebSocket peer connections: one server-side Upgrade endpoint plus any
// number of outbound Dial'd connections.
type WSTransport struct {
	*transport.Base

	mu    sync.Mutex
	peers map[string]*wsPeer

	upgrader websocket.Upgrader
}

type wsPeer struct {
	conn *websocket.Conn
	mu   sync.Mutex // one writer at a time, per gorilla/websocket's contract
}

var _ transport.Transport = (*WSTransport)(nil)

// NewWSTransport builds a transport with no connections yet; use Upgrade to
// accept inbound peers and Dial to connect outbound.
func NewWSTransport(ctx *knowledge.Context, settings transport.QoSSettings) (*WSTransport, error) {
	base, err := transport.NewBase(ctx, settings)
	if err != nil {
		return nil, err
	}
	return &WSTransport{
		Base:  base,
		peers: make(map[string]*wsPeer),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}, nil
}

// Upgrade accepts an inbound WebSocket connection and starts its read loop.
func (t *WSTransport) Upgrade(w http.ResponseWriter, r *http.Request, peerID string) error {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("wstransport: upgrade: %w", err)
	}
	t.addPeer(peerID, conn)
	return nil
}

// Dial connects outbound to url and starts its read loop.
func (t *WSTransport) Dial(url, peerID string) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("wstransport: dial %q: %w", url, err)
	}
	t.addPeer(peerID, conn)
	return nil
}

// ProcessReceivedUpdate runs the shared receive path (Base.ProcessReceivedUpdate),
// rebroadcasting over this transport's own WebSocket peers on TTL-permitted relay.
func (t *WSTransport) ProcessReceivedUpdate(buf []byte) (int, error) {
	return t.Base.ProcessReceivedUpdate(buf, t.SendData)
}

func (t *WSTransport) addPeer(peerID string, conn *websocket.Conn) {
	p := &wsPeer{conn: conn}
	t.mu.Lock()
	t.peers[peerID] = p
	t.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logx.Error("wstransport: recovered from panic in read loop for %s: %v", peerID, r)
			}
		}()
		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				t.mu.Lock()
				delete(t.peers, peerID)
				t.mu.Unlock()
				return
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			if _, err := t.ProcessReceivedUpdate(msg); err != nil {
				logx.Warn("wstransport: receive from %s: %v", peerID, err)
			}
		}
	}()
}

// SendData broadcasts updates to every connected peer.
func (t *WSTransport) SendData(updates map[string]knowledge.Record) (int, error) {
	if updates == nil {
		return 0, nil
	}
	clock := t.Context.GlobalClock()
	datagrams := t.EncodeMessage(updates, clock, uint8(t.Settings.RebroadcastTTL))

	total := 0
	t.mu.Lock()
	peers := make([]*wsPeer, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	t.mu.Unlock()

	for _, dg := range datagrams {
		encoded, err := t.Send.Encode(dg)
		if err != nil {
			return total, err
		}
		for _, p := range peers {
			p.mu.Lock()
			err := p.conn.WriteMessage(websocket.BinaryMessage, encoded)
			p.mu.Unlock()
			if err != nil {
				continue
			}
			total += len(encoded)
		}
	}
	return total, nil
}

// Close drops every peer connection.
func (t *WSTransport) Close() error {
	t.Shutdown()
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, p := range t.peers {
		p.conn.Close()
		delete(t.peers, id)
	}
	return nil
}
