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
package checkpoint

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// Compress xz-compresses a checkpoint blob for cold storage. Unlike the lz4
// buffer filter on the hot transport path, checkpoint dumps are written
// rarely and read back even more rarely, so a slower, higher-ratio codec is
// the better trade.
func Compress(blob []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: xz writer: %w", err)
	}
	if _, err := w.Write(blob); err != nil {
		w.Close()
		return nil, fmt.Errorf("checkpoint: xz compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("checkpoint: xz close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(blob []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: xz reader: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: xz decompress: %w", err)
	}
	return out, nil
}
