package ntag215

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// UIDPrefix is the manufacturer byte NXP tags carry in UID byte 0.
const UIDPrefix = 0x04

// BCC0 computes the cascade-level-1 check byte: CT(0x88) ^ uid0 ^ uid1 ^ uid2.
func BCC0(u0, u1, u2 byte) byte {
	return u0 ^ u1 ^ u2 ^ 0x88
}

// Position8 computes the byte stored at packed offset 8 (BCC1) from the
// packed UID block: packed[4] ^ packed[5] ^ packed[6] ^ packed[7].
func Position8(uid8 [8]byte) byte {
	return uid8[4] ^ uid8[5] ^ uid8[6] ^ uid8[7]
}

// Password derives the 4-byte tag password from the packed UID block.
// The BCC0 slot (packed[3]) does not take part.
func Password(uid8 [8]byte) [4]byte {
	u := UIDFromPacked(uid8)
	return [4]byte{
		0xAA ^ u[1] ^ u[3],
		0x55 ^ u[2] ^ u[4],
		0xAA ^ u[3] ^ u[5],
		0x55 ^ u[4] ^ u[6],
	}
}

// Pack returns the fixed password acknowledge.
func Pack() [2]byte { return PackValue }

// UIDFromPacked rebuilds the 7-byte UID from its packed form.
func UIDFromPacked(uid8 [8]byte) UID {
	return UID{uid8[0], uid8[1], uid8[2], uid8[4], uid8[5], uid8[6], uid8[7]}
}

// RandomUID returns a UID with the NXP prefix and six bytes from crypto/rand.
func RandomUID() (UID, error) {
	return randomUID(rand.Reader)
}

func randomUID(r io.Reader) (UID, error) {
	var u UID
	u[0] = UIDPrefix
	if _, err := io.ReadFull(r, u[1:]); err != nil {
		return UID{}, fmt.Errorf("read random UID: %w", err)
	}
	return u, nil
}

// ParseUID parses a 14-character hex UID. Byte 0 is not checked.
func ParseUID(s string) (UID, error) {
	var u UID
	if err := decodeFixedHex(s, u[:]); err != nil {
		return UID{}, newError(KindValidation, "parse uid", err)
	}
	return u, nil
}

// ParseAmiiboID parses a 16-character hex character identifier.
func ParseAmiiboID(s string) (AmiiboID, error) {
	var id AmiiboID
	if err := decodeFixedHex(s, id[:]); err != nil {
		return AmiiboID{}, newError(KindValidation, "parse amiibo id", err)
	}
	return id, nil
}

func decodeFixedHex(s string, dst []byte) error {
	s = strings.TrimSpace(s)
	if len(s) != 2*len(dst) {
		return fmt.Errorf("must be %d hex chars, got %d", 2*len(dst), len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex: %v", err)
	}
	copy(dst, b)
	return nil
}
