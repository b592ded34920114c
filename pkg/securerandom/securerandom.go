package securerandom

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
)

// Int returns a cryptographically secure random integer in the range [min, max].
func Int(min, max int) (int, error) {
	if max < min {
		return 0, fmt.Errorf("max must not be less than min (got min=%d, max=%d)", min, max)
	}

	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(max-min)+1))
	if err != nil {
		return 0, err
	}
	return int(nBig.Int64()) + min, nil
}

// Bytes fills the given slice with random bytes from a cryptographically secure source.
// If the crypto/rand source fails, it returns an error instead of falling back to
// an insecure source.
func Bytes(b []byte) error {
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("failed to generate secure random bytes: %w", err)
	}
	return nil
}

// Uint16 returns a random 16-bit value, such as an ICMP echo identifier.
func Uint16() (uint16, error) {
	var b [2]byte
	if err := Bytes(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}
