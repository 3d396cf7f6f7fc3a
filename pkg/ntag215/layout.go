package ntag215

// Tag geometry. An NTAG215 exposes 135 pages of 4 bytes.
const (
	ImageSize = 540
	PageSize  = 4
	PageCount = ImageSize / PageSize
)

// PackedField locates a field in the on-wire (persisted) image.
type PackedField struct {
	Name   string
	Offset int
	Length int
}

// End returns the exclusive end offset of the field.
func (f PackedField) End() int { return f.Offset + f.Length }

// LogicalField locates a field in the image produced by the oracle's decode.
// It is a distinct type from PackedField so an offset from one domain
// cannot be applied to an image of the other.
type LogicalField struct {
	Name   string
	Offset int
	Length int
}

// End returns the exclusive end offset of the field.
func (f LogicalField) End() int { return f.Offset + f.Length }

// On-wire layout.
var (
	PackedUID      = PackedField{Name: "uid", Offset: 0, Length: 8}
	PackedPosition = PackedField{Name: "position", Offset: 8, Length: 1}
	PackedMagic    = PackedField{Name: "magic", Offset: 9, Length: 8}
	PackedAmiiboID = PackedField{Name: "amiibo_id", Offset: 84, Length: 8}
	PackedPassword = PackedField{Name: "password", Offset: 532, Length: 4}
	PackedPack     = PackedField{Name: "pack", Offset: 536, Length: 2}
)

// Logical layout.
var (
	LogicalMagic    = LogicalField{Name: "magic", Offset: 9, Length: 8}
	LogicalUID      = LogicalField{Name: "uid", Offset: 468, Length: 8}
	LogicalAmiiboID = LogicalField{Name: "amiibo_id", Offset: 476, Length: 8}
	LogicalConfig   = LogicalField{Name: "config", Offset: 520, Length: 20}
)

// PackedLayout and LogicalLayout list every named field per domain.
var (
	PackedLayout  = []PackedField{PackedUID, PackedPosition, PackedMagic, PackedAmiiboID, PackedPassword, PackedPack}
	LogicalLayout = []LogicalField{LogicalMagic, LogicalUID, LogicalAmiiboID, LogicalConfig}
)

// Fixed protocol constants. They are copied verbatim, never derived.
var (
	// MagicA holds the internal byte, static lock bytes, capability container
	// and the amiibo marker byte of page 4.
	MagicA = [8]byte{0x48, 0x0F, 0xE0, 0xF1, 0x10, 0xFF, 0xEE, 0xA5}

	// MagicB holds the dynamic lock bytes and CFG0/CFG1 pages. The trailing
	// password and ack slots are filled in after encode.
	MagicB = [20]byte{
		0x01, 0x00, 0x0F, 0xBD,
		0x00, 0x00, 0x00, 0x04,
		0x5F, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}

	// PackValue is the password acknowledge returned by the tag.
	PackValue = [2]byte{0x80, 0x80}
)
