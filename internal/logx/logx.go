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

// Package logx centralizes the handful of logging conventions this repo
// uses: plain timestamped lines to stdout/stderr, the same restraint the
// teacher's storage and scm packages show rather than a structured-logging
// framework.
package logx

import (
	"fmt"
	"os"
	"time"
)

var level = 2 // 0=error 1=warn 2=info 3=debug

// SetLevel adjusts the minimum level printed; matches KaRL's #log_level.
func SetLevel(n int) { level = n }

func stamp() string { return time.Now().Format("2006-01-02 15:04:05.000") }

func Info(format string, args ...any) {
	if level < 2 {
		return
	}
	fmt.Printf("%s INFO  "+format+"\n", append([]any{stamp()}, args...)...)
}

func Warn(format string, args ...any) {
	if level < 1 {
		return
	}
	fmt.Fprintf(os.Stderr, "%s WARN  "+format+"\n", append([]any{stamp()}, args...)...)
}

func Error(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s ERROR "+format+"\n", append([]any{stamp()}, args...)...)
}

func Debug(format string, args ...any) {
	if level < 3 {
		return
	}
	fmt.Printf("%s DEBUG "+format+"\n", append([]any{stamp()}, args...)...)
}
