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

// Prune folds constant subtrees into literals, mirroring the original's
// compile-time pruning pass (spec §4.2/§8 invariant 6: "pruning preserves
// evaluation" — a pruned tree must evaluate to the same Value as the
// unpruned one for every Store state that reaches it). canChange reports
// back to the caller whether this subtree reads or writes mutable state; a
// subtree with canChange==false after pruning depends on nothing but
// literals and has already been folded.
//
// Only subtrees free of variable references, assignments, side-effecting
// system calls, and function calls are eligible: those are the only node
// kinds that ever consult a Store, so folding them ahead of time (by
// evaluating against a nil Store, which no reachable code path touches)
// cannot observe or skip a state change.
func (e *Expr) Prune(canChange *bool) *Expr {
	switch e.kind {
	case nLit:
		return e
	case nVar:
		*canChange = true
		return e
	case nIndex:
		e.a = e.a.Prune(canChange)
		e.b = e.b.Prune(canChange)
		return e.foldIfConstant(canChange)
	case nUnary:
		if e.op == "++" || e.op == "--" {
			*canChange = true
			e.a = e.a.Prune(new(bool))
			return e
		}
		e.a = e.a.Prune(canChange)
		return e.foldIfConstant(canChange)
	case nBinary, nLogical:
		e.a = e.a.Prune(canChange)
		e.b = e.b.Prune(canChange)
		return e.foldIfConstant(canChange)
	case nTernary:
		e.a = e.a.Prune(canChange)
		e.b = e.b.Prune(canChange)
		e.c = e.c.Prune(canChange)
		return e.foldIfConstant(canChange)
	case nCondThen:
		e.a = e.a.Prune(canChange)
		e.b = e.b.Prune(canChange)
		*canChange = true // side-effecting branch taken conditionally, never fold away
		return e
	case nAssign:
		*canChange = true
		var dummy bool
		if e.a.kind == nIndex {
			e.a.a = e.a.a.Prune(&dummy)
			e.a.b = e.a.b.Prune(&dummy)
		}
		e.b = e.b.Prune(&dummy)
		return e
	case nFor:
		*canChange = true
		var dummy bool
		e.a = e.a.Prune(&dummy)
		e.b = e.b.Prune(&dummy)
		e.c = e.c.Prune(&dummy)
		e.d = e.d.Prune(&dummy)
		return e
	case nWhile:
		*canChange = true
		var dummy bool
		e.a = e.a.Prune(&dummy)
		e.b = e.b.Prune(&dummy)
		return e
	case nSeqReturn:
		*canChange = true
		var dummy bool
		e.a = e.a.Prune(&dummy)
		e.b = e.b.Prune(&dummy)
		return e
	case nStmtList:
		*canChange = true
		var dummy bool
		for i, item := range e.list {
			e.list[i] = item.Prune(&dummy)
		}
		return e
	case nSysCall, nCall:
		*canChange = true
		var dummy bool
		for i, item := range e.list {
			e.list[i] = item.Prune(&dummy)
		}
		return e
	default:
		return e
	}
}

// foldIfConstant replaces e with a literal node when *canChange is still
// false after pruning its operands — i.e. nothing beneath e touched a Store.
func (e *Expr) foldIfConstant(canChange *bool) *Expr {
	if *canChange {
		return e
	}
	return litNode(e.pos, e.Eval(nil))
}
