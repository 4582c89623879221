package issuer

import (
	"fmt"
	"io"
	"math/big"

	"github.com/google/uuid"
)

// newSerial derives a certificate serial number from a random UUID:
// the canonical 36-character string form of a fresh UUIDv4, taken as
// UTF-8 bytes, read as a big-endian unsigned integer. The first byte
// is always ASCII, so the serial is positive under both signed and
// unsigned interpretations, and the derivation is reversible.
//
// The resulting serial is 36 octets, beyond the 20-octet ceiling
// RFC 5280 recommends. That is accepted here: the textual derivation
// is the point of this scheme.
func newSerial(rand io.Reader) (*big.Int, error) {
	id, err := uuid.NewRandomFromReader(rand)
	if err != nil {
		return nil, fmt.Errorf("failed to draw UUID: %w", err)
	}
	return new(big.Int).SetBytes([]byte(id.String())), nil
}

// SerialUUID recovers the UUID string a serial number was derived
// from. It reports false for serials that did not come from the
// UUID-text derivation.
func SerialUUID(serial *big.Int) (string, bool) {
	if serial == nil || serial.Sign() <= 0 {
		return "", false
	}
	b := serial.Bytes()
	if len(b) != 36 {
		return "", false
	}
	id, err := uuid.Parse(string(b))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
