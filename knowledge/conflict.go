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

// UpdateResult is the return code of Context.UpdateFromExternal, per spec §4.1.
type UpdateResult int

const (
	UpdateChanged    UpdateResult = 1
	UpdateSame       UpdateResult = 0
	UpdateNullKey    UpdateResult = -1
	UpdateLowQuality UpdateResult = -2
	UpdateOlderClock UpdateResult = -3
)

// resolveConflict applies the four-rule algorithm of spec §3 "Conflict
// resolution" to an incoming (quality, clock) against the record currently
// held. It never mutates either record; callers apply the decision.
//
// Rule 4 ("else reject") is refined per the return-code contract of
// Context.UpdateFromExternal (spec §4.1): a tuple equal to what we already
// hold is a harmless re-send (UpdateSame), while a tuple strictly behind the
// one we hold is the rejection the original calls "older clock".
func resolveConflict(curQuality uint32, curClock uint64, newQuality uint32, newClock uint64) UpdateResult {
	if newQuality < curQuality {
		return UpdateLowQuality
	}
	if newQuality > curQuality {
		return UpdateChanged
	}
	if newClock > curClock {
		return UpdateChanged
	}
	if newClock == curClock {
		return UpdateSame
	}
	return UpdateOlderClock
}
