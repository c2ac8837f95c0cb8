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
	"testing"

	"github.com/launix-de/madara/knowledge"
)

func TestNewBaseAssignsDistinctInstanceIDs(t *testing.T) {
	a, err := NewBase(knowledge.NewContext(), DefaultQoSSettings())
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewBase(knowledge.NewContext(), DefaultQoSSettings())
	if err != nil {
		t.Fatal(err)
	}
	if a.InstanceID == "" || b.InstanceID == "" {
		t.Fatal("expected a non-empty InstanceID")
	}
	if a.InstanceID == b.InstanceID {
		t.Fatal("expected two Bases to get distinct instance ids")
	}
}

func TestNewBaseDerivesSchedulerSeedWhenUnset(t *testing.T) {
	settings := DefaultQoSSettings()
	settings.PacketDropType = PolicyDeterministic
	settings.PacketDropRate = 0.5
	b, err := NewBase(knowledge.NewContext(), settings)
	if err != nil {
		t.Fatal(err)
	}
	if b.sched == nil {
		t.Fatal("expected a scheduler to be set")
	}
}

func TestNewBaseHonorsExplicitSeed(t *testing.T) {
	settings := DefaultQoSSettings()
	settings.PacketDropType = PolicyDeterministic
	settings.PacketDropRate = 0.5
	settings.PacketDropSeed = 7

	a, err := NewBase(knowledge.NewContext(), settings)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewBase(knowledge.NewContext(), settings)
	if err != nil {
		t.Fatal(err)
	}
	// Same explicit seed means both schedulers drop on the same schedule,
	// independent of each Base's own (still-distinct) InstanceID.
	for i := 0; i < 20; i++ {
		if a.sched.ShouldDrop() != b.sched.ShouldDrop() {
			t.Fatalf("iteration %d: explicit seed produced diverging drop sequences", i)
		}
	}
}
