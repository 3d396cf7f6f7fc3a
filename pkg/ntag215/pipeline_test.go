package ntag215_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopher-roelofs/amiibotool/pkg/ntag215"
	"github.com/christopher-roelofs/amiibotool/pkg/ntag215/ntag215test"
)

var templateID = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x34, 0x01, 0x02}

// signedTemplate builds a packed dump the test oracle accepts, with game
// data spread over the signed region.
func signedTemplate(t *testing.T, o ntag215.Oracle, key *ntag215.KeyHandle) []byte {
	t.Helper()
	var l ntag215.LogicalImage
	for i := 0x029; i < 0x1B4; i++ {
		l[i] = byte(i * 13)
	}
	uid := ntag215.UID{0x04, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC}
	uid8 := uid.Packed()
	l.Set(ntag215.LogicalUID, uid8[:])
	l.Set(ntag215.LogicalAmiiboID, templateID)
	l.Set(ntag215.LogicalConfig, ntag215.MagicB[:])
	p, err := o.Encode(key, &l)
	require.NoError(t, err)
	p.Set(ntag215.PackedMagic, ntag215.MagicA[:])
	p.Seal()
	return append([]byte(nil), p[:]...)
}

type fixture struct {
	oracle *ntag215test.Oracle
	files  *ntag215test.Files
	key    *ntag215.KeyHandle
	pl     *ntag215.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		oracle: &ntag215test.Oracle{},
		files:  ntag215test.NewFiles(),
		key:    ntag215test.Key(),
	}
	f.pl = &ntag215.Pipeline{Oracle: f.oracle, Files: f.files}
	return f
}

func (f *fixture) writeTemplate(t *testing.T, name string) []byte {
	t.Helper()
	tmpl := signedTemplate(t, f.oracle, f.key)
	require.NoError(t, f.files.WriteFile(name, tmpl))
	return tmpl
}

func (f *fixture) read(t *testing.T, name string) []byte {
	t.Helper()
	b, err := f.files.ReadFile(name)
	require.NoError(t, err)
	return b
}

func TestMutatePreservesGameData(t *testing.T) {
	f := newFixture(t)
	in := f.writeTemplate(t, "in.bin")

	res, err := f.pl.Mutate(f.key, "in.bin", "out.bin", "")
	require.NoError(t, err)
	assert.True(t, res.Check.Valid, "self-check: %+v", res.Check)
	assert.Empty(t, res.Warning)

	out := f.read(t, "out.bin")
	require.Len(t, out, ntag215.ImageSize)

	derived := func(i int) bool {
		return i < ntag215.PackedMagic.Offset ||
			(i >= ntag215.PackedPassword.Offset && i < ntag215.PackedPack.End())
	}
	for i := range out {
		if !derived(i) && out[i] != in[i] {
			t.Fatalf("byte %d changed: %02X -> %02X", i, in[i], out[i])
		}
	}

	assert.Equal(t, templateID, out[84:92])
	assert.Equal(t, []byte{0x80, 0x80}, out[536:538])
	assert.Equal(t, out[4]^out[5]^out[6]^out[7], out[8])
	assert.Equal(t, byte(0x04), out[0])
	assert.Equal(t, ntag215.BCC0(out[0], out[1], out[2]), out[3])
}

func TestMutateCustomUID(t *testing.T) {
	f := newFixture(t)
	f.writeTemplate(t, "in.bin")

	res, err := f.pl.Mutate(f.key, "in.bin", "out.bin", "0451186d0da09e")
	require.NoError(t, err)
	assert.Equal(t, "0451186D0DA09E", res.UID)

	out := f.read(t, "out.bin")
	assert.Equal(t, []byte{0x04, 0x51, 0x18, 0xC5, 0x6D, 0x0D, 0xA0, 0x9E}, out[0:8])
	pwd := ntag215.Password([8]byte(out[0:8]))
	assert.Equal(t, pwd[:], out[532:536])
}

func TestMutateRestoresAmiiboIDAlteredByOracle(t *testing.T) {
	f := newFixture(t)
	f.writeTemplate(t, "in.bin")
	f.oracle.ScrambleAmiiboID = true

	res, err := f.pl.Mutate(f.key, "in.bin", "out.bin", "")
	require.NoError(t, err)
	assert.True(t, res.Check.Valid)
	assert.Equal(t, hex.EncodeToString(templateID), res.AmiiboID)
	assert.Equal(t, templateID, f.read(t, "out.bin")[84:92])
}

func TestMutateFromNFCTemplate(t *testing.T) {
	f := newFixture(t)
	tmpl := signedTemplate(t, f.oracle, f.key)
	p, err := ntag215.NewPackedImage(tmpl)
	require.NoError(t, err)
	require.NoError(t, f.files.WriteFile("in.NFC", ntag215.EncodeNFC(p)))

	res, err := f.pl.Mutate(f.key, "in.NFC", "out.nfc", "")
	require.NoError(t, err)
	assert.True(t, res.Check.Valid)
	assert.True(t, bytes.HasPrefix(f.read(t, "out.nfc"), []byte(ntag215.NFCHeader)))
}

func TestMutateAbortsOnInvalidSignature(t *testing.T) {
	f := newFixture(t)
	tmpl := signedTemplate(t, f.oracle, f.key)
	tmpl[0x100] ^= 0xFF
	require.NoError(t, f.files.WriteFile("in.bin", tmpl))

	_, err := f.pl.Mutate(f.key, "in.bin", "out.bin", "")
	require.Error(t, err)
	assert.True(t, ntag215.IsHMACError(err), "got %v", err)
	assert.False(t, f.files.Exists("out.bin"))
	_, encodes := f.oracle.Calls()
	assert.Zero(t, encodes)
}

func TestMutateRejectsShortUID(t *testing.T) {
	f := newFixture(t)
	f.writeTemplate(t, "in.bin")

	_, err := f.pl.Mutate(f.key, "in.bin", "out.bin", "0451186d0da0")
	assert.True(t, ntag215.IsValidationError(err), "got %v", err)
	assert.False(t, f.files.Exists("out.bin"))
	decodes, encodes := f.oracle.Calls()
	assert.Zero(t, decodes+encodes)
}

func TestMutateRejectsWrongSizeTemplate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.files.WriteFile("in.bin", make([]byte, 572)))

	_, err := f.pl.Mutate(f.key, "in.bin", "out.bin", "")
	assert.True(t, ntag215.IsSizeError(err), "got %v", err)
	var e *ntag215.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "in.bin", e.Path)
	assert.False(t, f.files.Exists("out.bin"))
}

func TestMutateMissingTemplate(t *testing.T) {
	f := newFixture(t)
	_, err := f.pl.Mutate(f.key, "nope.bin", "out.bin", "")
	assert.True(t, ntag215.IsIOError(err), "got %v", err)
}

func TestGenerateFromAmiiboID(t *testing.T) {
	f := newFixture(t)

	res, err := f.pl.Generate(f.key, "1919000000090002", "out.bin", "0451186d0da09e")
	require.NoError(t, err)
	assert.True(t, res.Check.Valid, "self-check: %+v", res.Check)

	out := f.read(t, "out.bin")
	bcc0 := byte(0x04 ^ 0x51 ^ 0x18 ^ 0x88)
	assert.Equal(t, []byte{0x04, 0x51, 0x18, bcc0, 0x6D, 0x0D, 0xA0, 0x9E}, out[0:8])
	assert.Equal(t, "1919000000090002", hex.EncodeToString(out[84:92]))
	assert.Equal(t, ntag215.MagicA[:], out[9:17])
	assert.Equal(t, out[4]^out[5]^out[6]^out[7], out[8])
	assert.Equal(t, []byte{0x80, 0x80}, out[536:538])
	assert.Equal(t, "1919000000090002", res.AmiiboID)
}

func TestGenerateRandomUID(t *testing.T) {
	f := newFixture(t)
	f.pl.Rand = bytes.NewReader([]byte{0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xA6})

	res, err := f.pl.Generate(f.key, "1919000000090002", "out.bin", "")
	require.NoError(t, err)
	assert.Equal(t, "04A1A2A3A4A5A6", res.UID)
}

func TestGenerateWritesNFC(t *testing.T) {
	f := newFixture(t)

	res, err := f.pl.Generate(f.key, "1919000000090002", "out.nfc", "")
	require.NoError(t, err)
	assert.True(t, res.Check.Valid)

	raw, err := ntag215.DecodeNFC(f.read(t, "out.nfc"))
	require.NoError(t, err)
	assert.Equal(t, "1919000000090002", hex.EncodeToString(raw[84:92]))
}

func TestGenerateRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.pl.Generate(f.key, "19190000000900", "out.bin", "")
	assert.True(t, ntag215.IsValidationError(err), "got %v", err)

	_, err = f.pl.Generate(f.key, "1919000000090002", "out.bin", "0451186d0da0")
	assert.True(t, ntag215.IsValidationError(err), "got %v", err)

	assert.False(t, f.files.Exists("out.bin"))
}

func TestGenerateOracleFailure(t *testing.T) {
	f := newFixture(t)
	f.oracle.Err = errors.New("oracle unavailable")

	_, err := f.pl.Generate(f.key, "1919000000090002", "out.bin", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle unavailable")
	assert.False(t, f.files.Exists("out.bin"))
}

func TestGenerateWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.files.WriteErr = errors.New("disk full")

	_, err := f.pl.Generate(f.key, "1919000000090002", "out.bin", "")
	assert.True(t, ntag215.IsIOError(err), "got %v", err)
}

// rejectingOracle signs correctly but never verifies.
type rejectingOracle struct {
	ntag215test.Oracle
}

func (o *rejectingOracle) Decode(key *ntag215.KeyHandle, p *ntag215.PackedImage) (*ntag215.LogicalImage, bool, error) {
	l, _, err := o.Oracle.Decode(key, p)
	return l, false, err
}

func TestSelfCheckFailureIsOnlyAWarning(t *testing.T) {
	f := newFixture(t)
	f.pl.Oracle = &rejectingOracle{}

	res, err := f.pl.Generate(f.key, "1919000000090002", "out.bin", "")
	require.NoError(t, err)
	assert.False(t, res.Check.Valid)
	assert.False(t, res.Check.HMACValid)
	assert.True(t, res.Check.PackValid)
	assert.Contains(t, res.Warning, "hmac")
	assert.True(t, f.files.Exists("out.bin"), "output must stay on disk")
}
