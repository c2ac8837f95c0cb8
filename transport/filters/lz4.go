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
package filters

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4Filter is a compression buffer filter, giving the "multiple buffer
// filters form a stack" requirement of spec §4.5 a second real stack
// member alongside AESFilter (§2.1 domain-stack decision).
type LZ4Filter struct{}

func NewLZ4Filter() *LZ4Filter { return &LZ4Filter{} }

func (f *LZ4Filter) Encode(buf []byte) ([]byte, error) {
	var out bytes.Buffer
	w := lz4.NewWriter(&out)
	if _, err := w.Write(buf); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (f *LZ4Filter) Decode(buf []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(buf))
	return io.ReadAll(r)
}
