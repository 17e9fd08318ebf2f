package domain

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	apperrors "github.com/agentarena/realtime-backend/internal/core/errors"
)

// NormalizeAddress returns the canonical lowercase form of an agent address.
// Routing always uses this form, so "0xABc..." and "0xabc..." land in the
// same agent room.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsHexAddress reports whether s is a 20-byte 0x-prefixed hex address.
func IsHexAddress(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 42 {
		return false
	}
	if s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// ChecksumAddress renders the EIP-55 mixed-case checksum form of an address,
// for display payloads. Routing never uses this form.
func ChecksumAddress(address string) (string, error) {
	if !IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidAddress, address)
	}

	hex := NormalizeAddress(address)[2:]

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(hex))
	sum := hasher.Sum(nil)

	out := []byte(hex)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out), nil
}
