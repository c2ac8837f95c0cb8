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

// evalSysCall implements the #ident(args...) builtins from spec §4.2. An
// unknown #ident is rejected at parse time (parser.go), so by the time Eval
// reaches here e.name is always one of the cases below.
func (e *Expr) evalSysCall(s Store) Value {
	args := e.list
	switch e.name {
	case "size":
		if len(args) != 1 {
			return None()
		}
		return Int(int64(s.Size(refOf(args[0], s))))
	case "type":
		if len(args) != 1 {
			return None()
		}
		return String(kindName(args[0].Eval(s).Kind))
	case "clock":
		if len(args) != 1 {
			return None()
		}
		return Int(int64(s.Clock(refOf(args[0], s))))
	case "set_clock":
		if len(args) != 2 {
			return None()
		}
		s.SetClock(refOf(args[0], s), uint64(args[1].Eval(s).Int()))
		return None()
	case "set_fixed":
		s.SetFixed()
		return None()
	case "set_scientific":
		s.SetScientific()
		return None()
	case "eval":
		if len(args) != 1 {
			return None()
		}
		v, err := s.Eval(args[0].Eval(s).String())
		if err != nil {
			return None()
		}
		return v
	case "read_file":
		if len(args) != 2 {
			return None()
		}
		if err := s.ReadFile(refOf(args[0], s), args[1].Eval(s).String()); err != nil {
			return Bool(false)
		}
		return Bool(true)
	case "write_file":
		if len(args) != 2 {
			return None()
		}
		if err := s.WriteFile(refOf(args[0], s), args[1].Eval(s).String()); err != nil {
			return Bool(false)
		}
		return Bool(true)
	case "print":
		strs := make([]string, len(args))
		for i, a := range args {
			strs[i] = a.Eval(s).String()
		}
		s.Print(strs)
		return None()
	case "log_level":
		if len(args) != 1 {
			return None()
		}
		s.SetLogLevel(int(args[0].Eval(s).Int()))
		return None()
	case "delete_variable":
		if len(args) != 1 {
			return None()
		}
		s.DeleteVariable(args[0].name)
		return None()
	case "rand_int":
		if len(args) != 2 {
			return None()
		}
		return Int(s.RandInt(args[0].Eval(s).Int(), args[1].Eval(s).Int()))
	case "rand_double":
		if len(args) != 2 {
			return None()
		}
		return Double(s.RandDouble(args[0].Eval(s).Double(), args[1].Eval(s).Double()))
	case "get_time":
		return Double(float64(s.Now().UnixNano()) / float64(time.Second))
	case "sleep":
		if len(args) != 1 {
			return None()
		}
		s.Sleep(time.Duration(args[0].Eval(s).Double() * float64(time.Second)))
		return None()
	default:
		return None()
	}
}

// refOf resolves arg to a Ref when it is a bare variable node, or registers a
// throwaway reference for non-variable expressions (e.g. #size of a literal,
// which spec leaves as 0/undefined rather than an error).
func refOf(arg *Expr, s Store) Ref {
	if arg.kind == nVar {
		return arg.ref(s)
	}
	return s.GetRef("")
}

func kindName(k Kind) string {
	switch k {
	case KindNone:
		return "none"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindIntArray:
		return "intarray"
	case KindDoubleArray:
		return "doublearray"
	case KindBlob:
		return "blob"
	default:
		return "any"
	}
}

// sysCallArity is consulted by the parser to reject unknown #ident names at
// parse time (spec §4.2: "unknown #ident is a parse error").
var sysCallArity = map[string]bool{
	"size": true, "type": true, "clock": true, "set_clock": true,
	"set_fixed": true, "set_scientific": true, "eval": true,
	"read_file": true, "write_file": true, "print": true,
	"log_level": true, "delete_variable": true, "rand_int": true,
	"rand_double": true, "get_time": true, "sleep": true,
}
