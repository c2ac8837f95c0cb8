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

import "testing"

// assertEvalInt compiles and evaluates source against a fresh memStore and
// checks the resulting integer value.
func assertEvalInt(t *testing.T, source string, want int64) {
	t.Helper()
	s := newMemStore()
	c, err := Compile(source)
	if err != nil {
		t.Fatalf("Compile(%q): %v", source, err)
	}
	got := c.Eval(s, DefaultSettings())
	if got.Int() != want {
		t.Errorf("Eval(%q) = %v, want int %d", source, got, want)
	}
}

func TestEvalArithmetic(t *testing.T) {
	cases := []struct {
		src  string
		want int64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 4 - 3", 3},
		{"7 % 3", 1},
		{"10 / 0", 0},
	}
	for _, c := range cases {
		assertEvalInt(t, c.src, c.want)
	}
}

func TestEvalComparisonAndLogic(t *testing.T) {
	assertEvalInt(t, "1 < 2 && 3 > 2", 1)
	assertEvalInt(t, "1 > 2 || 0", 0)
	assertEvalInt(t, "!0", 1)
	assertEvalInt(t, "!1", 0)
}

func TestEvalTernaryAndCondThen(t *testing.T) {
	assertEvalInt(t, "1 ? 5 : 6", 5)
	assertEvalInt(t, "0 ? 5 : 6", 6)
	assertEvalInt(t, "1 => 9", 9)
}

func TestEvalAssignmentAndVariables(t *testing.T) {
	assertEvalInt(t, "x = 5; x + 1", 6)
	assertEvalInt(t, "x = 5; x += 3; x", 8)
	assertEvalInt(t, "x = 1; x++; x", 2)
}

func TestEvalForLoop(t *testing.T) {
	assertEvalInt(t, "sum = 0; for (i = 0; i < 5; i++) { sum += i }; sum", 10)
}

func TestEvalWhileLoop(t *testing.T) {
	assertEvalInt(t, "n = 0; while (n < 3) { n += 1 }; n", 3)
}

func TestEvalKeywordFreeForLoop(t *testing.T) {
	assertEvalInt(t, "sum = 0; (i = 0; i < 5; i = i + 1) { sum = sum + i }; sum", 10)
}

func TestEvalKeywordFreeWhileLoop(t *testing.T) {
	assertEvalInt(t, "n = 0; (n < 3) { n = n + 1 }; n", 3)
}

func TestEvalSeqReturn(t *testing.T) {
	assertEvalInt(t, "x = 1 ;> x + 100", 101)
}

func TestEvalArrayIndex(t *testing.T) {
	s := newMemStore()
	s.vars["arr"] = IntArray([]int64{10, 20, 30})
	c, err := Compile("arr[1]")
	if err != nil {
		t.Fatal(err)
	}
	got := c.Eval(s, DefaultSettings())
	if got.Int() != 20 {
		t.Fatalf("got %v, want 20", got)
	}
}

func TestEvalArrayArithmeticIsElementwise(t *testing.T) {
	s := newMemStore()
	s.vars["arr"] = IntArray([]int64{10, 20, 30})
	c, err := Compile("arr + 1")
	if err != nil {
		t.Fatal(err)
	}
	got := c.Eval(s, DefaultSettings())
	if got.Kind != KindIntArray {
		t.Fatalf("got kind %v, want KindIntArray", got.Kind)
	}
	want := []int64{11, 21, 31}
	if len(got.Ints) != len(want) {
		t.Fatalf("got %v, want %v", got.Ints, want)
	}
	for i, w := range want {
		if got.Ints[i] != w {
			t.Fatalf("got %v, want %v", got.Ints, want)
		}
	}
}

func TestEvalArrayDivisionByZeroYieldsZeroArray(t *testing.T) {
	s := newMemStore()
	s.vars["arr"] = IntArray([]int64{5, 6, 7})
	c, err := Compile("arr / 0")
	if err != nil {
		t.Fatal(err)
	}
	got := c.Eval(s, DefaultSettings())
	if got.Kind != KindIntArray {
		t.Fatalf("got kind %v, want KindIntArray", got.Kind)
	}
	for _, v := range got.Ints {
		if v != 0 {
			t.Fatalf("got %v, want all zeros", got.Ints)
		}
	}
}

func TestEvalArrayDoubleDivisionByZeroYieldsZeroArray(t *testing.T) {
	s := newMemStore()
	s.vars["arr"] = DoubleArray([]float64{1.5, 2.5})
	c, err := Compile("arr / 0")
	if err != nil {
		t.Fatal(err)
	}
	got := c.Eval(s, DefaultSettings())
	if got.Kind != KindDoubleArray {
		t.Fatalf("got kind %v, want KindDoubleArray", got.Kind)
	}
	for _, v := range got.Doubles {
		if v != 0 {
			t.Fatalf("got %v, want all zeros", got.Doubles)
		}
	}
}

func TestEvalArrayPlusArrayZipsToShorterLength(t *testing.T) {
	s := newMemStore()
	s.vars["a"] = IntArray([]int64{1, 2, 3})
	s.vars["b"] = IntArray([]int64{10, 20})
	c, err := Compile("a + b")
	if err != nil {
		t.Fatal(err)
	}
	got := c.Eval(s, DefaultSettings())
	want := []int64{11, 22}
	if len(got.Ints) != len(want) {
		t.Fatalf("got %v, want %v", got.Ints, want)
	}
	for i, w := range want {
		if got.Ints[i] != w {
			t.Fatalf("got %v, want %v", got.Ints, want)
		}
	}
}

func TestEvalArrayCompoundAssignIsElementwise(t *testing.T) {
	s := newMemStore()
	s.vars["arr"] = IntArray([]int64{1, 2, 3})
	c, err := Compile("arr += 5; arr")
	if err != nil {
		t.Fatal(err)
	}
	got := c.Eval(s, DefaultSettings())
	want := []int64{6, 7, 8}
	if len(got.Ints) != len(want) {
		t.Fatalf("got %v, want %v", got.Ints, want)
	}
	for i, w := range want {
		if got.Ints[i] != w {
			t.Fatalf("got %v, want %v", got.Ints, want)
		}
	}
}

func TestEvalSysCallSize(t *testing.T) {
	s := newMemStore()
	s.vars["arr"] = IntArray([]int64{1, 2, 3})
	c, err := Compile("#size(arr)")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Eval(s, DefaultSettings()); got.Int() != 3 {
		t.Fatalf("got %v, want 3", got)
	}
}

func TestEvalUnknownSysCallIsParseError(t *testing.T) {
	if _, err := Compile("#nonsense(1)"); err == nil {
		t.Fatal("expected parse error for unknown system call")
	}
}

func TestEvalUserFunction(t *testing.T) {
	s := newMemStore()
	s.funcs["double"] = func(args []Value) (Value, bool) {
		return Int(args[0].Int() * 2), true
	}
	c, err := Compile("double(21)")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Eval(s, DefaultSettings()); got.Int() != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestEvalStringConcatAndNumericCoercion(t *testing.T) {
	s := newMemStore()
	c, err := Compile(`"count=" + 5`)
	if err != nil {
		t.Fatal(err)
	}
	got := c.Eval(s, DefaultSettings())
	if got.String() != "count=5" {
		t.Fatalf("got %q, want %q", got.String(), "count=5")
	}
}
