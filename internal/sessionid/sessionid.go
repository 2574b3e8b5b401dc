// Package sessionid generates and validates session identifiers: a UUIDv7
// encoded as a 26-character lowercase Crockford base32 string. IDs sort by
// creation time.
package sessionid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Base32 alphabet used by TypeID (Crockford's base32)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded session id
const Length = 26

// Generate creates a new session id
func Generate() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return Encode(id), nil
}

// Encode renders a UUID as a 26-character base32 string
func Encode(id uuid.UUID) string {
	return encodeBase32(id)
}

// encodeBase32 encodes a 128-bit UUID as a 26-character base32 string, with
// two zero bits of padding at the front.
func encodeBase32(data [16]byte) string {
	result := make([]byte, Length)

	var acc uint64
	bits := 2 // leading padding
	pos := 0
	for _, b := range data {
		acc = acc<<8 | uint64(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			result[pos] = alphabet[(acc>>bits)&0x1f]
			pos++
		}
		acc &= (1 << bits) - 1
	}
	return string(result)
}

// Validate checks if a session id is valid (26 characters, valid base32)
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("session id must be exactly %d characters, got %d", Length, len(id))
	}

	// First character carries only 3 bits
	if id[0] > '7' {
		return fmt.Errorf("session id first character must be 0-7, got %c", id[0])
	}

	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}

	return nil
}
