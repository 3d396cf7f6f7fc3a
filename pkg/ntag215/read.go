package ntag215

import (
	"bytes"
	"fmt"
	"log/slog"
)

// readChunk is the number of bytes one READ returns: four pages.
const readChunk = 4 * PageSize

// ReadPages reads from the given page using the reader's READ BINARY
// pseudo-APDU (FF B0 00 <page> <Le>). Retries once with the Le the reader
// asks for on SW=6Cxx.
func ReadPages(card Card, page byte, le byte) ([]byte, error) {
	apdu := []byte{0xFF, 0xB0, 0x00, page, le}
	data, sw, err := Transmit(card, apdu)
	if err != nil {
		return nil, err
	}
	if (sw & 0xFF00) == SWWrongLe {
		correctLe := byte(sw & 0x00FF)
		slog.Warn("wrong Le, retrying", "page", page, "original_le", le, "correct_le", correctLe)
		apdu[4] = correctLe
		data, sw, err = Transmit(card, apdu)
		if err != nil {
			return nil, err
		}
	}
	if sw != SWSuccess {
		return nil, &SWError{Cmd: 0xB0, SW: sw}
	}
	return data, nil
}

// ReadTag dumps all pages of an NTAG215 into a packed image.
//
// The password and ack pages are write-only on real tags and read back as
// zeros, so a fresh dump fails the password and pack checks until sealed.
func ReadTag(card Card) (*PackedImage, error) {
	var p PackedImage
	off := 0
	for off < ImageSize {
		page := off / PageSize
		data, err := ReadPages(card, byte(page), readChunk)
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", page, err)
		}
		// Keep whole pages only; some readers return a single page per READ.
		n := len(data) - len(data)%PageSize
		if n == 0 {
			return nil, fmt.Errorf("read page %d: reader returned %d bytes", page, len(data))
		}
		if n > ImageSize-off {
			n = ImageSize - off
		}
		copy(p[off:], data[:n])
		off += n
	}
	slog.Debug("tag read", "pages", PageCount, "uid", p.UID())
	return &p, nil
}

// Dump reads the tag on card and writes it to outputPath in the format the
// suffix selects. The image is written as read, without sealing.
func (pl *Pipeline) Dump(card Card, outputPath string) (*PackedImage, error) {
	uid, err := GetUID(card)
	if err != nil {
		return nil, fmt.Errorf("get uid: %w", err)
	}
	p, err := ReadTag(card)
	if err != nil {
		return nil, err
	}
	if got := p.UID(); !bytes.Equal(uid, got[:]) {
		slog.Warn("reader UID does not match UID pages", "reader_uid", fmt.Sprintf("%X", uid), "image_uid", got)
	}
	if err := pl.files().WriteFile(outputPath, FormatFor(outputPath).Encode(p)); err != nil {
		return nil, pathError(KindIO, "write", outputPath, err)
	}
	slog.Debug("dump written", "path", outputPath)
	return p, nil
}
