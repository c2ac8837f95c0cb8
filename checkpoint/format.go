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

// Package checkpoint persists a knowledge.Context's records to a binary
// checkpoint blob and restores them again, using the same update framing as
// the wire protocol (§6.3 of the expanded spec). A Store abstracts where the
// blob bytes live, the same interface shape storage.PersistenceEngine gives
// for table data.
package checkpoint

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/launix-de/madara/knowledge"
	"github.com/launix-de/madara/transport/wire"
)

const (
	magic          = "MADARACP"
	formatVersion  = 1
	fileHeaderSize = 8 + 4 + 4 + 8 // magic + version + record count + timestamp
)

// FileHeader is the fixed-size prefix of a checkpoint blob.
type FileHeader struct {
	Version     uint32
	RecordCount uint32
	Timestamp   uint64 // unix seconds, caller-supplied (spec forbids wall-clock reads inside library code paths exercised by tests)
}

func encodeFileHeader(h FileHeader) []byte {
	buf := make([]byte, fileHeaderSize)
	copy(buf[0:8], magic)
	binary.BigEndian.PutUint32(buf[8:12], h.Version)
	binary.BigEndian.PutUint32(buf[12:16], h.RecordCount)
	binary.BigEndian.PutUint64(buf[16:24], h.Timestamp)
	return buf
}

func decodeFileHeader(buf []byte) (FileHeader, error) {
	if len(buf) < fileHeaderSize {
		return FileHeader{}, fmt.Errorf("checkpoint: short buffer for file header: %d bytes", len(buf))
	}
	if string(buf[0:8]) != magic {
		return FileHeader{}, fmt.Errorf("checkpoint: bad magic %q", buf[0:8])
	}
	return FileHeader{
		Version:     binary.BigEndian.Uint32(buf[8:12]),
		RecordCount: binary.BigEndian.Uint32(buf[12:16]),
		Timestamp:   binary.BigEndian.Uint64(buf[16:24]),
	}, nil
}

// Dump serializes every record in snapshot (name -> Record, typically
// Context.GetModifieds or a full Context.Export) into a checkpoint blob.
func Dump(snapshot map[string]knowledge.Record, timestamp uint64) []byte {
	out := encodeFileHeader(FileHeader{
		Version:     formatVersion,
		RecordCount: uint32(len(snapshot)),
		Timestamp:   timestamp,
	})
	for name, rec := range snapshot {
		out = wire.EncodeUpdate(out, recordToUpdate(name, rec))
	}
	return out
}

// Load parses a checkpoint blob back into a name->Record map.
func Load(buf []byte) (FileHeader, map[string]knowledge.Record, error) {
	h, err := decodeFileHeader(buf)
	if err != nil {
		return FileHeader{}, nil, err
	}
	if h.Version != formatVersion {
		return FileHeader{}, nil, fmt.Errorf("checkpoint: unsupported format version %d", h.Version)
	}
	buf = buf[fileHeaderSize:]
	out := make(map[string]knowledge.Record, h.RecordCount)
	for i := uint32(0); i < h.RecordCount; i++ {
		u, n, err := wire.DecodeUpdate(buf)
		if err != nil {
			return FileHeader{}, nil, fmt.Errorf("checkpoint: record %d/%d: %w", i+1, h.RecordCount, err)
		}
		out[u.Name] = updateToRecord(u)
		buf = buf[n:]
	}
	return h, out, nil
}

// ReadAll is a small convenience wrapper for Store implementations whose
// underlying reader is an io.ReadCloser.
func ReadAll(r io.ReadCloser) ([]byte, error) {
	defer r.Close()
	return io.ReadAll(r)
}

func recordToUpdate(name string, rec knowledge.Record) wire.Update {
	u := wire.Update{Name: name, Clock: rec.Clock(), Quality: rec.Quality()}
	switch rec.Kind() {
	case knowledge.KindInt:
		u.Type, u.Int = wire.TypeInt, rec.Int()
	case knowledge.KindDouble:
		u.Type, u.Double = wire.TypeDouble, rec.Double()
	case knowledge.KindIntArray:
		u.Type, u.Ints = wire.TypeIntArray, rec.IntArray()
	case knowledge.KindDoubleArray:
		u.Type, u.Doubles = wire.TypeDoubleArray, rec.DoubleArray()
	case knowledge.KindString:
		u.Type, u.Str = wire.TypeString, rec.String()
	case knowledge.KindBlob:
		u.Type, u.Blob = wire.TypeBlob, rec.Bytes()
	}
	return u
}

func updateToRecord(u wire.Update) knowledge.Record {
	var rec knowledge.Record
	switch u.Type {
	case wire.TypeInt:
		rec = knowledge.NewInt(u.Int)
	case wire.TypeDouble:
		rec = knowledge.NewDouble(u.Double)
	case wire.TypeIntArray:
		rec = knowledge.NewIntArray(u.Ints)
	case wire.TypeDoubleArray:
		rec = knowledge.NewDoubleArray(u.Doubles)
	case wire.TypeString:
		rec = knowledge.NewString(u.Str)
	case wire.TypeBlob:
		rec = knowledge.NewBlob(u.Blob, knowledge.BlobKindUnknown)
	}
	return rec.WithExternalStamp(u.Clock, u.Quality)
}
