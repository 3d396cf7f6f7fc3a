package ntag215

import (
	"bytes"
	"log/slog"
)

// Oracle is the keyed transform that signs and encrypts the protected
// region of a tag. Implementations hold no per-call state; calls block until
// the transform completes.
type Oracle interface {
	// Decode converts a packed image into its logical form. ok reports
	// whether the signature verified; the logical image is returned either
	// way when err is nil. err is reserved for failures to run the transform.
	Decode(key *KeyHandle, packed *PackedImage) (logical *LogicalImage, ok bool, err error)

	// Encode signs and encrypts a logical image.
	Encode(key *KeyHandle, logical *LogicalImage) (*PackedImage, error)
}

// pinnedField is a packed field whose value the oracle is not trusted to
// carry through encode.
type pinnedField struct {
	field PackedField
	value []byte
}

// encode runs the oracle, restores pinned fields the oracle dropped or
// altered, then recomputes the derived fields.
func encode(o Oracle, key *KeyHandle, logical *LogicalImage, pinned ...pinnedField) (*PackedImage, error) {
	packed, err := o.Encode(key, logical)
	if err != nil {
		return nil, err
	}
	for _, pin := range pinned {
		got := packed.Get(pin.field)
		if bytes.Equal(got, pin.value) {
			continue
		}
		slog.Debug("restoring field after encode",
			"field", pin.field.Name,
			"got", spacedHex(got),
			"want", spacedHex(pin.value))
		packed.Set(pin.field, pin.value)
	}
	packed.Seal()
	return packed, nil
}
