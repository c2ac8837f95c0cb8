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
package knowledge

import "testing"

func TestResolveConflict(t *testing.T) {
	cases := []struct {
		name                         string
		curQ, newQ                   uint32
		curClock, newClock           uint64
		want                         UpdateResult
	}{
		{"lower quality rejected", 5, 3, 10, 11, UpdateLowQuality},
		{"higher quality accepted even with lower clock", 3, 5, 10, 1, UpdateChanged},
		{"same quality newer clock accepted", 5, 5, 10, 11, UpdateChanged},
		{"same quality same clock is a no-op resend", 5, 5, 10, 10, UpdateSame},
		{"same quality older clock rejected", 5, 5, 10, 9, UpdateOlderClock},
	}
	for _, c := range cases {
		got := resolveConflict(c.curQ, c.curClock, c.newQ, c.newClock)
		if got != c.want {
			t.Errorf("%s: resolveConflict(%d,%d,%d,%d) = %v, want %v",
				c.name, c.curQ, c.curClock, c.newQ, c.newClock, got, c.want)
		}
	}
}
