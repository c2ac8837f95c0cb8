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

// madara-shell is an interactive KaRL REPL against a local, in-process
// knowledge.Context, the KaRL counterpart to the teacher's scm.Repl.
package main

import (
	"fmt"
	"io"

	"github.com/chzyer/readline"

	"github.com/launix-de/madara/knowledge"
)

const (
	newPrompt  = "\033[32m>\033[0m "
	resultPrompt = "\033[31m=\033[0m "
)

func main() {
	ctx := knowledge.NewContext()

	l, err := readline.NewEx(&readline.Config{
		Prompt:            newPrompt,
		HistoryFile:       ".madara-shell-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	fmt.Println("madara-shell: interactive KaRL expressions against a local context")
	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		if line == "" {
			continue
		}

		result, err := ctx.Eval(line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Print(resultPrompt)
		fmt.Println(recordString(result))
	}
}

func recordString(r knowledge.Record) string {
	if r.IsUncreated() {
		return "<uncreated>"
	}
	switch r.Kind() {
	case knowledge.KindIntArray:
		return fmt.Sprint(r.IntArray())
	case knowledge.KindDoubleArray:
		return fmt.Sprint(r.DoubleArray())
	default:
		return r.String()
	}
}
