package ntag215

import "fmt"

// Status words returned by PC/SC readers for pseudo-APDUs.
const (
	SWSuccess     = 0x9000 // success
	SWWrongLength = 0x6700 // wrong length
	SWWrongLe     = 0x6C00 // wrong Le (mask: 0x6C00, correct Le in SW2)
	SWNoInfo      = 0x6300 // no information given / operation failed
	SWNotAllowed  = 0x6986 // command not allowed
	SWWrongP1P2   = 0x6A86 // incorrect P1/P2 (page out of range)
)

// Card abstracts card transmit behavior for real PC/SC cards and test doubles.
type Card interface {
	Transmit(apdu []byte) ([]byte, error)
}

// SWError represents a status word error from the reader.
type SWError struct {
	Cmd byte   // Command INS byte
	SW  uint16 // Status word
}

func (e *SWError) Error() string {
	return fmt.Sprintf("reader command 0x%02X failed with SW=0x%04X (%s)", e.Cmd, e.SW, swDescription(e.SW))
}

func swDescription(sw uint16) string {
	switch sw {
	case SWSuccess:
		return "success"
	case SWWrongLength:
		return "wrong length"
	case SWNoInfo:
		return "operation failed"
	case SWNotAllowed:
		return "command not allowed"
	case SWWrongP1P2:
		return "wrong P1/P2"
	default:
		if (sw & 0xFF00) == SWWrongLe {
			return fmt.Sprintf("wrong Le (correct Le=%d)", sw&0xFF)
		}
		return "unknown error"
	}
}

// Transmit sends an APDU and splits off the trailing status word.
func Transmit(card Card, apdu []byte) ([]byte, uint16, error) {
	resp, err := card.Transmit(apdu)
	if err != nil {
		return nil, 0, err
	}
	if len(resp) < 2 {
		return nil, 0, fmt.Errorf("short response: %d bytes", len(resp))
	}
	sw := uint16(resp[len(resp)-2])<<8 | uint16(resp[len(resp)-1])
	return resp[:len(resp)-2], sw, nil
}

// GetUID retrieves the card UID via the reader GET DATA pseudo-APDU (FF CA 00 00).
func GetUID(card Card) ([]byte, error) {
	data, sw, err := Transmit(card, []byte{0xFF, 0xCA, 0x00, 0x00, 0x00})
	if err != nil {
		return nil, err
	}
	if sw != SWSuccess || len(data) == 0 {
		return nil, &SWError{Cmd: 0xCA, SW: sw}
	}
	return data, nil
}
