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
package karl

import "time"

// Ref is an opaque handle a Store hands back from GetRef and accepts again
// in Set/SetIndex/Inc/Dec/Index/Clock. karl never inspects it; this is what
// lets package knowledge hand back its own *VarRef without karl importing
// knowledge (see SPEC_FULL.md §4.2).
type Ref any

// Settings mirrors the write-semantics knobs of spec §4.1 Context.set.
type Settings struct {
	TreatGlobalsAsLocals bool
	SignalChanges        bool // default true
	AlwaysOverwrite      bool
	TrackLocalChanges    bool // default true
}

// DefaultSettings matches the spec's "default settings" used throughout §8.
func DefaultSettings() Settings {
	return Settings{SignalChanges: true, TrackLocalChanges: true}
}

// Store is the facade an expression tree evaluates against — the contract a
// package knowledge.Context (or a test double) must satisfy. Every method
// here corresponds directly to a contract item in spec §4.1/§4.2.
type Store interface {
	Get(name string) Value
	GetRef(name string) Ref
	RefName(ref Ref) string

	// Set applies local write semantics and returns spec §4.1's return code
	// (0 ok, -1 null-key, -2 lower-quality).
	Set(ref Ref, v Value, settings Settings) int
	SetIndex(ref Ref, i int, v Value) int
	Index(ref Ref, i int) Value
	Size(ref Ref) int

	// Inc/Dec apply an integer or double delta atomically and return the
	// new value (spec §4.1 "inc/dec(ref)").
	Inc(ref Ref, delta Value) Value
	Dec(ref Ref, delta Value) Value

	Clock(ref Ref) uint64
	SetClock(ref Ref, c uint64)

	DeleteVariable(name string)

	// CallFunction invokes a user-defined function registered in
	// Context.functions (spec §4.2 "Functions"); ok is false for an unknown
	// name.
	CallFunction(name string, args []Value) (Value, bool)

	// Eval runs a nested KaRL program against the same store (#eval(string)).
	Eval(source string) (Value, error)

	Print(args []string)
	ReadFile(ref Ref, path string) error
	WriteFile(ref Ref, path string) error

	Now() time.Time
	Sleep(d time.Duration)
	RandInt(lo, hi int64) int64
	RandDouble(lo, hi float64) float64
	SetLogLevel(n int)
	SetFixed()
	SetScientific()
}
