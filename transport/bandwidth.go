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

// Package transport implements the configurable network layer of spec §4.6
// and §4.7: bandwidth accounting, packet scheduling, settings, and the
// UDP/WebSocket transport implementations.
package transport

import (
	"container/list"
	"sync"
	"time"
)

type bwSample struct {
	at    time.Time
	bytes int64
}

// BandwidthMonitor tracks bytes sent or received over a sliding time
// window, per spec §4.6.
type BandwidthMonitor struct {
	mu     sync.Mutex
	window time.Duration
	deque  *list.List // of bwSample, oldest at Front
	sum    int64
	now    func() time.Time
}

// NewBandwidthMonitor builds a monitor with the given sliding window
// (default 10s per spec).
func NewBandwidthMonitor(window time.Duration) *BandwidthMonitor {
	if window <= 0 {
		window = 10 * time.Second
	}
	return &BandwidthMonitor{window: window, deque: list.New(), now: time.Now}
}

// Add records bytes transferred at the current time.
func (b *BandwidthMonitor) Add(bytes int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deque.PushBack(bwSample{at: b.now(), bytes: bytes})
	b.sum += bytes
	b.evictLocked()
}

func (b *BandwidthMonitor) evictLocked() {
	cutoff := b.now().Add(-b.window)
	for e := b.deque.Front(); e != nil; {
		s := e.Value.(bwSample)
		if s.at.After(cutoff) {
			break
		}
		next := e.Next()
		b.sum -= s.bytes
		b.deque.Remove(e)
		e = next
	}
}

// BytesPerSecond evicts expired samples and returns the sum over the
// window divided by the window length in seconds.
func (b *BandwidthMonitor) BytesPerSecond() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evictLocked()
	secs := b.window.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(b.sum) / secs
}

// IsViolated reports whether current usage exceeds limit. A limit of -1
// means unlimited, per spec §4.6.
func (b *BandwidthMonitor) IsViolated(limit float64) bool {
	if limit < 0 {
		return false
	}
	return b.BytesPerSecond() > limit
}
