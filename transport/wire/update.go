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
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ValueType tags the on-wire encoding of an update's value, per spec §4.3's
// update-encoding table.
type ValueType uint32

const (
	TypeInt ValueType = iota
	TypeDouble
	TypeIntArray
	TypeDoubleArray
	TypeString
	TypeBlob
)

// Update is one [name-length][name][type][value-length][value] frame, plus
// the clock/quality spec says "each Record also emits" so receivers can
// apply conflict resolution per key without a second round trip.
type Update struct {
	Name    string
	Type    ValueType
	Clock   uint64
	Quality uint32

	Int     int64
	Double  float64
	Ints    []int64
	Doubles []float64
	Str     string
	Blob    []byte
}

// EncodeUpdate appends the wire encoding of u to buf and returns the result.
func EncodeUpdate(buf []byte, u Update) []byte {
	buf = appendU32(buf, uint32(len(u.Name)))
	buf = append(buf, u.Name...)
	buf = appendU32(buf, uint32(u.Type))
	buf = appendU64(buf, u.Clock)
	buf = appendU32(buf, u.Quality)

	valueBuf := encodeValue(u)
	buf = appendU32(buf, uint32(len(valueBuf)))
	buf = append(buf, valueBuf...)
	return buf
}

func encodeValue(u Update) []byte {
	switch u.Type {
	case TypeInt:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(u.Int))
		return b
	case TypeDouble:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, math.Float64bits(u.Double))
		return b
	case TypeIntArray:
		b := appendU32(nil, uint32(len(u.Ints)))
		for _, v := range u.Ints {
			b = appendU64(b, uint64(v))
		}
		return b
	case TypeDoubleArray:
		b := appendU32(nil, uint32(len(u.Doubles)))
		for _, v := range u.Doubles {
			b = appendU64(b, math.Float64bits(v))
		}
		return b
	case TypeString:
		b := appendU32(nil, uint32(len(u.Str))+1)
		b = append(b, u.Str...)
		b = append(b, 0)
		return b
	case TypeBlob:
		b := appendU32(nil, uint32(len(u.Blob)))
		b = append(b, u.Blob...)
		return b
	default:
		return nil
	}
}

// DecodeUpdate parses one Update frame from the front of buf and returns it
// along with the number of bytes consumed.
func DecodeUpdate(buf []byte) (Update, int, error) {
	if len(buf) < 4 {
		return Update{}, 0, fmt.Errorf("wire: short buffer reading update name length")
	}
	nameLen := int(binary.BigEndian.Uint32(buf[0:4]))
	off := 4
	if len(buf) < off+nameLen {
		return Update{}, 0, fmt.Errorf("wire: short buffer reading update name")
	}
	name := string(buf[off : off+nameLen])
	off += nameLen

	if len(buf) < off+16 {
		return Update{}, 0, fmt.Errorf("wire: short buffer reading update type/clock/quality")
	}
	typ := ValueType(binary.BigEndian.Uint32(buf[off : off+4]))
	off += 4
	clock := binary.BigEndian.Uint64(buf[off : off+8])
	off += 8
	quality := binary.BigEndian.Uint32(buf[off : off+4])
	off += 4

	if len(buf) < off+4 {
		return Update{}, 0, fmt.Errorf("wire: short buffer reading value length")
	}
	valueLen := int(binary.BigEndian.Uint32(buf[off : off+4]))
	off += 4
	if len(buf) < off+valueLen {
		return Update{}, 0, fmt.Errorf("wire: short buffer reading value (want %d bytes)", valueLen)
	}
	valueBuf := buf[off : off+valueLen]
	off += valueLen

	u := Update{Name: name, Type: typ, Clock: clock, Quality: quality}
	if err := decodeValue(&u, valueBuf); err != nil {
		return Update{}, 0, err
	}
	return u, off, nil
}

func decodeValue(u *Update, b []byte) error {
	switch u.Type {
	case TypeInt:
		if len(b) < 8 {
			return fmt.Errorf("wire: short int value")
		}
		u.Int = int64(binary.BigEndian.Uint64(b))
	case TypeDouble:
		if len(b) < 8 {
			return fmt.Errorf("wire: short double value")
		}
		u.Double = math.Float64frombits(binary.BigEndian.Uint64(b))
	case TypeIntArray:
		if len(b) < 4 {
			return fmt.Errorf("wire: short int[] header")
		}
		count := int(binary.BigEndian.Uint32(b[0:4]))
		b = b[4:]
		if len(b) < count*8 {
			return fmt.Errorf("wire: short int[] payload")
		}
		u.Ints = make([]int64, count)
		for i := 0; i < count; i++ {
			u.Ints[i] = int64(binary.BigEndian.Uint64(b[i*8 : i*8+8]))
		}
	case TypeDoubleArray:
		if len(b) < 4 {
			return fmt.Errorf("wire: short double[] header")
		}
		count := int(binary.BigEndian.Uint32(b[0:4]))
		b = b[4:]
		if len(b) < count*8 {
			return fmt.Errorf("wire: short double[] payload")
		}
		u.Doubles = make([]float64, count)
		for i := 0; i < count; i++ {
			u.Doubles[i] = math.Float64frombits(binary.BigEndian.Uint64(b[i*8 : i*8+8]))
		}
	case TypeString:
		if len(b) < 4 {
			return fmt.Errorf("wire: short string header")
		}
		n := int(binary.BigEndian.Uint32(b[0:4]))
		b = b[4:]
		if len(b) < n {
			return fmt.Errorf("wire: short string payload")
		}
		if n > 0 && b[n-1] == 0 {
			u.Str = string(b[:n-1])
		} else {
			u.Str = string(b[:n])
		}
	case TypeBlob:
		if len(b) < 4 {
			return fmt.Errorf("wire: short blob header")
		}
		n := int(binary.BigEndian.Uint32(b[0:4]))
		b = b[4:]
		if len(b) < n {
			return fmt.Errorf("wire: short blob payload")
		}
		u.Blob = append([]byte(nil), b[:n]...)
	default:
		return fmt.Errorf("wire: unknown value type %d", u.Type)
	}
	return nil
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}
