package ntag215

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// PackedImage is the persisted, on-wire tag image.
type PackedImage [ImageSize]byte

// LogicalImage is the image exposed by the oracle after removing tag-level
// protection. It is never persisted.
type LogicalImage [ImageSize]byte

// NewPackedImage copies raw bytes into a PackedImage. Any length other than
// ImageSize is a size error.
func NewPackedImage(raw []byte) (*PackedImage, error) {
	if len(raw) != ImageSize {
		return nil, newError(KindSize, "load image", fmt.Errorf("got %d bytes, want %d", len(raw), ImageSize))
	}
	var p PackedImage
	copy(p[:], raw)
	return &p, nil
}

// Get returns a copy of the field's bytes.
func (p *PackedImage) Get(f PackedField) []byte {
	out := make([]byte, f.Length)
	copy(out, p[f.Offset:f.End()])
	return out
}

// Set overwrites the field. b must be exactly f.Length bytes.
func (p *PackedImage) Set(f PackedField, b []byte) {
	if len(b) != f.Length {
		panic(fmt.Sprintf("ntag215: field %s is %d bytes, got %d", f.Name, f.Length, len(b)))
	}
	copy(p[f.Offset:f.End()], b)
}

// UID8 returns the packed UID block (bytes 0-7).
func (p *PackedImage) UID8() [8]byte {
	var u [8]byte
	copy(u[:], p[PackedUID.Offset:PackedUID.End()])
	return u
}

// UID reconstructs the 7-byte UID, skipping the BCC0 slot.
func (p *PackedImage) UID() UID {
	return UIDFromPacked(p.UID8())
}

// AmiiboID returns the character identifier stored on the tag.
func (p *PackedImage) AmiiboID() AmiiboID {
	var id AmiiboID
	copy(id[:], p[PackedAmiiboID.Offset:PackedAmiiboID.End()])
	return id
}

// Seal recomputes the derived fields: position byte, password and ack.
func (p *PackedImage) Seal() {
	uid8 := p.UID8()
	p[PackedPosition.Offset] = Position8(uid8)
	pwd := Password(uid8)
	p.Set(PackedPassword, pwd[:])
	p.Set(PackedPack, PackValue[:])
}

// Get returns a copy of the field's bytes.
func (l *LogicalImage) Get(f LogicalField) []byte {
	out := make([]byte, f.Length)
	copy(out, l[f.Offset:f.End()])
	return out
}

// Set overwrites the field. b must be exactly f.Length bytes.
func (l *LogicalImage) Set(f LogicalField, b []byte) {
	if len(b) != f.Length {
		panic(fmt.Sprintf("ntag215: field %s is %d bytes, got %d", f.Name, f.Length, len(b)))
	}
	copy(l[f.Offset:f.End()], b)
}

// UID is the 7-byte tag serial number. Byte 0 is conventionally 0x04.
type UID [7]byte

// BCC0 returns the block check byte of the first three UID bytes.
func (u UID) BCC0() byte {
	return BCC0(u[0], u[1], u[2])
}

// Packed returns the 8-byte on-wire encoding [u0 u1 u2 bcc0 u3 u4 u5 u6].
func (u UID) Packed() [8]byte {
	return [8]byte{u[0], u[1], u[2], u.BCC0(), u[3], u[4], u[5], u[6]}
}

func (u UID) String() string {
	return strings.ToUpper(hex.EncodeToString(u[:]))
}

// AmiiboID is the 8-byte character/series identifier.
type AmiiboID [8]byte

func (id AmiiboID) String() string {
	return hex.EncodeToString(id[:])
}
