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
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jtolds/gls"
	"github.com/launix-de/madara/internal/logx"
	"github.com/launix-de/madara/knowledge"
)

var readThreadMgr = gls.NewContextManager()

var _ Transport = (*UDPTransport)(nil)

// UDPTransport is the default transport of spec §4.7: one UDP socket, a
// pool of Read Threads polling it, the bandwidth/scheduler/filter/fragment
// machinery of Base wired over a plain datagram socket.
//
// Fragmented messages are sent as a distinct datagram shape from
// single-piece messages: SendData always frames a fragment as
// FragmentHeaderSize-prefixed, and the receive side learns which shape it
// got from the header's update count in ProcessReceivedUpdate (a fragment's
// embedded full header carries Updates == 0; see looksLikeFragment).
type UDPTransport struct {
	*Base

	conn *net.UDPConn
	dest []*net.UDPAddr

	wg sync.WaitGroup
}

// NewUDPTransport binds settings.Hosts[0] and resolves the remaining hosts
// as broadcast destinations.
func NewUDPTransport(ctx *knowledge.Context, settings QoSSettings) (*UDPTransport, error) {
	if len(settings.Hosts) == 0 {
		return nil, fmt.Errorf("transport: udp requires at least one host (bind address)")
	}
	base, err := NewBase(ctx, settings)
	if err != nil {
		return nil, err
	}
	bindAddr, err := net.ResolveUDPAddr("udp", settings.Hosts[0])
	if err != nil {
		return nil, fmt.Errorf("transport: resolving bind address %q: %w", settings.Hosts[0], err)
	}
	conn, err := net.ListenUDP("udp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listening on %q: %w", settings.Hosts[0], err)
	}
	var dest []*net.UDPAddr
	for _, h := range settings.Hosts[1:] {
		addr, err := net.ResolveUDPAddr("udp", h)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: resolving peer %q: %w", h, err)
		}
		dest = append(dest, addr)
	}
	t := &UDPTransport{Base: base, conn: conn, dest: dest}
	threads := settings.ReadThreads
	if threads <= 0 {
		threads = 1
	}
	hertz := settings.ReadThreadHertz
	if hertz <= 0 {
		hertz = 20
	}
	for i := 0; i < threads; i++ {
		t.wg.Add(1)
		go t.readLoop(i, hertz)
	}
	return t, nil
}

// readLoop is one Read Thread: polls the socket at the configured
// frequency with a 1s timeout so Shutdown remains responsive, per spec §5
// "suspension points".
func (t *UDPTransport) readLoop(index int, hertz float64) {
	defer t.wg.Done()
	buf := make([]byte, 65536)
	period := time.Duration(float64(time.Second) / hertz)
	for !t.isShutdown() {
		readThreadMgr.SetValues(gls.Values{"read_thread": index}, func() {
			t.conn.SetReadDeadline(time.Now().Add(1 * time.Second))
			n, _, err := t.conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			if _, err := t.ProcessReceivedUpdate(buf[:n]); err != nil {
				logReadThreadWarn("receive: %v", err)
			}
		})
		time.Sleep(period)
	}
}

func logReadThreadWarn(format string, args ...any) {
	idx, ok := readThreadMgr.GetValue("read_thread")
	if ok {
		logx.Warn(fmt.Sprintf("[read-thread %v] %s", idx, fmt.Sprintf(format, args...)))
	} else {
		logx.Warn(format, args...)
	}
}

// SendData runs spec §4.7 send-path steps 8-11 over the UDP socket.
func (t *UDPTransport) SendData(updates map[string]knowledge.Record) (int, error) {
	if updates == nil {
		return 0, nil
	}
	clock := t.Context.GlobalClock()
	datagrams := t.EncodeMessage(updates, clock, uint8(t.Settings.RebroadcastTTL))

	total := 0
	for i, dg := range datagrams {
		encoded, err := t.Send.Encode(dg)
		if err != nil {
			return total, err
		}
		for _, addr := range t.dest {
			n, err := t.conn.WriteToUDP(encoded, addr)
			if err != nil {
				return total, err
			}
			total += n
			t.sendBW.Add(int64(n))
		}
		if t.Settings.SlackTime > 0 && i < len(datagrams)-1 {
			time.Sleep(time.Duration(t.Settings.SlackTime * float64(time.Second)))
		}
	}
	if t.onDataReceived != nil {
		t.runOnDataReceived()
	}
	return total, nil
}

// ProcessReceivedUpdate runs spec §4.7's 12-step receive path (shared
// implementation in Base.ProcessReceivedUpdate; UDPTransport supplies its
// own SendData as the rebroadcast callback for step 12).
func (t *UDPTransport) ProcessReceivedUpdate(buf []byte) (int, error) {
	return t.Base.ProcessReceivedUpdate(buf, t.SendData)
}

// Close stops the read threads and releases the socket.
func (t *UDPTransport) Close() error {
	t.Shutdown()
	err := t.conn.Close()
	t.wg.Wait()
	return err
}
