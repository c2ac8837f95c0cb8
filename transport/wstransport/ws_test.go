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
package wstransport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/launix-de/madara/knowledge"
	"github.com/launix-de/madara/transport"
)

// newPair wires up a server-side WSTransport behind an httptest server and a
// client-side WSTransport dialed against it, mirroring the udp_test.go
// two-participant shape but over a WebSocket connection.
func newPair(t *testing.T) (server *WSTransport, client *WSTransport, close func()) {
	t.Helper()

	ctxServer := knowledge.NewContext()
	ctxClient := knowledge.NewContext()

	serverSettings := transport.DefaultQoSSettings()
	serverSettings.Domain = "karl"
	clientSettings := transport.DefaultQoSSettings()
	clientSettings.Domain = "karl"

	srv, err := NewWSTransport(ctxServer, serverSettings)
	if err != nil {
		t.Fatal(err)
	}
	cli, err := NewWSTransport(ctxClient, clientSettings)
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if err := srv.Upgrade(w, r, "client"); err != nil {
			t.Errorf("upgrade: %v", err)
		}
	})
	ts := httptest.NewServer(mux)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if err := cli.Dial(url, "server"); err != nil {
		t.Fatal(err)
	}

	return srv, cli, func() {
		srv.Close()
		cli.Close()
		ts.Close()
	}
}

func TestWSTransportSendAndReceive(t *testing.T) {
	srv, cli, closeAll := newPair(t)
	defer closeAll()

	ref := srv.Context.GetRef("x")
	srv.Context.Set(ref, knowledge.NewInt(7), knowledge.DefaultSettings())

	updates := srv.PrepSend()
	if updates == nil {
		t.Fatal("expected PrepSend to return the modified set")
	}
	if _, err := srv.SendData(updates); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := cli.Context.Get("x"); !got.IsUncreated() && got.Int() == 7 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("client never observed the sent update")
}

func TestWSTransportProcessReceivedUpdateRejectsGarbage(t *testing.T) {
	ctx := knowledge.NewContext()
	settings := transport.DefaultQoSSettings()
	tr, err := NewWSTransport(ctx, settings)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	n, err := tr.ProcessReceivedUpdate([]byte("not a madara datagram at all"))
	if err == nil || n != -1 {
		t.Fatalf("expected (-1, error) for garbage input, got (%d, %v)", n, err)
	}
}

func TestWSTransportCloseDropsPeers(t *testing.T) {
	srv, cli, closeAll := newPair(t)
	defer closeAll()

	if err := srv.Close(); err != nil {
		t.Fatal(err)
	}
	srv.mu.Lock()
	n := len(srv.peers)
	srv.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected Close to drop all peers, got %d remaining", n)
	}
	_ = cli
}
