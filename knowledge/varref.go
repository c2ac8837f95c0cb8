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

// entry is what a VarRef points at: a stable slot in the Context's backing
// store that survives further map insertions (spec §3 "VariableReference").
type entry struct {
	name       string
	rec        Record
	generation uint64 // bumped on Delete; lets a stale VarRef be detected cheaply
	deleted    bool
}

// VarRef is a stable handle (name + direct pointer into the map) per spec §3.
// Lookups by reference are O(1) and never re-hash. A VarRef surviving past a
// Delete is Open Question 4 territory (see SPEC_FULL.md): rather than risking
// a dangling-pointer-style use-after-delete as the C++ original allows, every
// VarRef carries the generation it was minted at, and any operation through a
// stale VarRef returns the same -1 "null key" code as a missing key.
type VarRef struct {
	e          *entry
	generation uint64
}

// Name returns the variable name this reference was created for.
func (v VarRef) Name() string {
	if v.e == nil {
		return ""
	}
	return v.e.name
}

// Valid reports whether this reference's entry has not since been deleted.
func (v VarRef) Valid() bool {
	return v.e != nil && !v.e.deleted && v.e.generation == v.generation
}

// IsLocal reports whether the variable name carries the "." local-scope
// prefix (spec §3 "Context").
func IsLocal(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
