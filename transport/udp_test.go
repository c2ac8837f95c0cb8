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
	"net"
	"testing"
	"time"

	"github.com/launix-de/madara/knowledge"
)

func freeUDPAddr(t *testing.T) string {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatal(err)
	}
	addr := conn.LocalAddr().String()
	conn.Close()
	return addr
}

func TestUDPTransportSendAndReceive(t *testing.T) {
	aAddr := freeUDPAddr(t)
	bAddr := freeUDPAddr(t)

	ctxA := knowledge.NewContext()
	ctxB := knowledge.NewContext()

	settingsA := DefaultQoSSettings()
	settingsA.Hosts = []string{aAddr, bAddr}
	settingsA.Domain = "karl"

	settingsB := DefaultQoSSettings()
	settingsB.Hosts = []string{bAddr}
	settingsB.Domain = "karl"

	a, err := NewUDPTransport(ctxA, settingsA)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewUDPTransport(ctxB, settingsB)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	ref := ctxA.GetRef("x")
	ctxA.Set(ref, knowledge.NewInt(42), knowledge.DefaultSettings())

	updates := a.PrepSend()
	if updates == nil {
		t.Fatal("expected PrepSend to return the modified set")
	}
	if _, err := a.SendData(updates); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := ctxB.Get("x"); !got.IsUncreated() && got.Int() == 42 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("receiver never observed the sent update")
}

func TestUDPTransportRejectsWrongDomain(t *testing.T) {
	aAddr := freeUDPAddr(t)
	bAddr := freeUDPAddr(t)

	ctxA := knowledge.NewContext()
	ctxB := knowledge.NewContext()

	settingsA := DefaultQoSSettings()
	settingsA.Hosts = []string{aAddr, bAddr}
	settingsA.Domain = "domain-a"

	settingsB := DefaultQoSSettings()
	settingsB.Hosts = []string{bAddr}
	settingsB.Domain = "domain-b"

	a, err := NewUDPTransport(ctxA, settingsA)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewUDPTransport(ctxB, settingsB)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	ref := ctxA.GetRef("y")
	ctxA.Set(ref, knowledge.NewInt(1), knowledge.DefaultSettings())
	updates := a.PrepSend()
	a.SendData(updates)

	time.Sleep(100 * time.Millisecond)
	if got := ctxB.Get("y"); !got.IsUncreated() {
		t.Fatal("expected a cross-domain update to be rejected")
	}
}

func TestProcessReceivedUpdateRejectsGarbage(t *testing.T) {
	ctx := knowledge.NewContext()
	settings := DefaultQoSSettings()
	settings.Hosts = []string{freeUDPAddr(t)}
	tr, err := NewUDPTransport(ctx, settings)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	n, err := tr.ProcessReceivedUpdate([]byte("not a madara datagram at all"))
	if err == nil || n != -1 {
		t.Fatalf("expected (-1, error) for garbage input, got (%d, %v)", n, err)
	}
}
