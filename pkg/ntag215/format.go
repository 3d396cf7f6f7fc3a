package ntag215

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// NFCHeader is the marker the first line of a Flipper NFC capture must contain.
const NFCHeader = "Filetype: Flipper NFC device"

var (
	pageLinePrefix = regexp.MustCompile(`(?i)^\s*page\s+\d+\s*:`)
	pageLine       = regexp.MustCompile(`(?i)^\s*page\s+(\d+)\s*:\s*([0-9a-f]{2})\s+([0-9a-f]{2})\s+([0-9a-f]{2})\s+([0-9a-f]{2})\s*$`)
)

// Format converts between a file representation and the canonical image.
type Format interface {
	// Decode returns the raw image bytes. Length is not enforced here.
	Decode(content []byte) ([]byte, error)
	// Encode renders a packed image in this representation.
	Encode(p *PackedImage) []byte
}

// BinaryFormat is the raw 540-byte dump.
type BinaryFormat struct{}

// NFCFormat is the Flipper Zero line-oriented capture.
type NFCFormat struct{}

// FormatFor selects the adapter from the file suffix: ".nfc" (any case) is
// the text capture, everything else is raw binary.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".nfc") {
		return NFCFormat{}
	}
	return BinaryFormat{}
}

// Decode returns a copy of content.
func (BinaryFormat) Decode(content []byte) ([]byte, error) {
	return DecodeBinary(content), nil
}

// Encode returns a copy of the image bytes.
func (BinaryFormat) Encode(p *PackedImage) []byte {
	out := make([]byte, ImageSize)
	copy(out, p[:])
	return out
}

// Decode parses a Flipper capture.
func (NFCFormat) Decode(content []byte) ([]byte, error) {
	return DecodeNFC(content)
}

// Encode renders a Flipper capture.
func (NFCFormat) Encode(p *PackedImage) []byte {
	return EncodeNFC(p)
}

// DecodeBinary is the identity adapter.
func DecodeBinary(content []byte) []byte {
	out := make([]byte, len(content))
	copy(out, content)
	return out
}

// DecodeNFC parses a Flipper NFC capture. Page lines contribute their four
// bytes in the order they appear in the file; the page number is not used
// to reorder them. The result must be ImageSize bytes.
func DecodeNFC(content []byte) ([]byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, newError(KindFormat, "decode nfc", err)
		}
		return nil, newError(KindFormat, "decode nfc", errors.New("empty file"))
	}
	if !strings.Contains(scanner.Text(), NFCHeader) {
		return nil, newError(KindFormat, "decode nfc", fmt.Errorf("missing %q header", NFCHeader))
	}

	out := make([]byte, 0, ImageSize)
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !pageLinePrefix.MatchString(line) {
			continue
		}
		m := pageLine.FindStringSubmatch(line)
		if m == nil {
			return nil, newError(KindFormat, "decode nfc", fmt.Errorf("line %d: malformed page line %q", lineNo, strings.TrimSpace(line)))
		}
		for _, h := range m[2:] {
			b, err := strconv.ParseUint(h, 16, 8)
			if err != nil {
				return nil, newError(KindFormat, "decode nfc", fmt.Errorf("line %d: %v", lineNo, err))
			}
			out = append(out, byte(b))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, newError(KindFormat, "decode nfc", err)
	}
	if len(out) != ImageSize {
		return nil, newError(KindSize, "decode nfc", fmt.Errorf("pages hold %d bytes, want %d", len(out), ImageSize))
	}
	return out, nil
}

// EncodeNFC renders a packed image as a Flipper NFC capture for an NTAG215.
func EncodeNFC(p *PackedImage) []byte {
	var b bytes.Buffer
	uid := p.UID()
	fmt.Fprintf(&b, "%s\n", NFCHeader)
	b.WriteString("Version: 2\n")
	b.WriteString("# Nfc device type can be UID, Mifare Ultralight, Bank card\n")
	b.WriteString("Device type: NTAG215\n")
	b.WriteString("# UID, ATQA and SAK are common for all formats\n")
	fmt.Fprintf(&b, "UID: %s\n", spacedHex(uid[:]))
	b.WriteString("ATQA: 44 00\n")
	b.WriteString("SAK: 00\n")
	b.WriteString("# Mifare Ultralight specific data\n")
	fmt.Fprintf(&b, "Signature: %s\n", spacedHex(make([]byte, 32)))
	b.WriteString("Mifare version: 00 04 04 02 01 00 11 03\n")
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, "Counter %d: 0\n", i)
		fmt.Fprintf(&b, "Tearing %d: 00\n", i)
	}
	fmt.Fprintf(&b, "Pages total: %d\n", PageCount)
	for page := 0; page < PageCount; page++ {
		off := page * PageSize
		fmt.Fprintf(&b, "Page %d: %s\n", page, spacedHex(p[off:off+PageSize]))
	}
	return b.Bytes()
}

func spacedHex(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}
