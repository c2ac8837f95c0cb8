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
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
)

// AESFilter is the canonical buffer filter of spec §4.5: 256-bit AES-CBC
// with an IV derived from a password-seeded KDF, grounded on
// original_source/include/madara/filters/ssl/AES_Buffer_Filter.h. A plain
// SHA-256 stretch of the password stands in for the original's OpenSSL
// EVP_BytesToKey call, deriving both key and IV from the same password so
// two participants configured with the same string interoperate without a
// separate key-exchange step.
type AESFilter struct {
	key []byte
	iv  []byte
}

// NewAESFilter derives a 256-bit key and a 16-byte IV from password. Both
// ends of a link must share the same password.
func NewAESFilter(password string) *AESFilter {
	h1 := sha256.Sum256([]byte(password))
	h2 := sha256.Sum256(h1[:])
	return &AESFilter{key: h1[:], iv: h2[:aes.BlockSize]}
}

// Encode PKCS#7-pads buf to a block boundary and CBC-encrypts it into a new
// buffer; buf itself is left unchanged.
func (f *AESFilter) Encode(buf []byte) ([]byte, error) {
	block, err := aes.NewCipher(f.key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(buf, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, f.iv).CryptBlocks(out, padded)
	return out, nil
}

// Decode reverses Encode: CBC-decrypt then strip the PKCS#7 padding.
func (f *AESFilter) Decode(buf []byte) ([]byte, error) {
	if len(buf) == 0 || len(buf)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("filters: AES ciphertext length %d is not a multiple of the block size", len(buf))
	}
	block, err := aes.NewCipher(f.key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(buf))
	cipher.NewCBCDecrypter(block, f.iv).CryptBlocks(out, buf)
	return pkcs7Unpad(out)
}

func pkcs7Pad(buf []byte, blockSize int) []byte {
	padLen := blockSize - len(buf)%blockSize
	padded := make([]byte, len(buf)+padLen)
	copy(padded, buf)
	for i := len(buf); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(buf []byte) ([]byte, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("filters: cannot unpad empty buffer")
	}
	padLen := int(buf[len(buf)-1])
	if padLen == 0 || padLen > len(buf) {
		return nil, fmt.Errorf("filters: invalid PKCS#7 padding")
	}
	return buf[:len(buf)-padLen], nil
}
