package ntag215_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopher-roelofs/amiibotool/pkg/ntag215"
)

func (f *fixture) generate(t *testing.T, name string) []byte {
	t.Helper()
	_, err := f.pl.Generate(f.key, "1919000000090002", name, "0451186d0da09e")
	require.NoError(t, err)
	return f.read(t, name)
}

func TestValidateGenerated(t *testing.T) {
	f := newFixture(t)
	f.generate(t, "good.bin")

	r := f.pl.ValidateFile(f.key, "good.bin")
	assert.True(t, r.Valid)
	assert.Equal(t, "0451186D0DA09E", r.UID)
	assert.Equal(t, "1919000000090002", r.AmiiboID)
	assert.Empty(t, r.Failed())
}

func TestValidatePackCorruption(t *testing.T) {
	f := newFixture(t)
	b := f.generate(t, "good.bin")
	b[536], b[537] = 0x80, 0x81
	require.NoError(t, f.files.WriteFile("bad.bin", b))

	r := f.pl.ValidateFile(f.key, "bad.bin")
	assert.False(t, r.PackValid)
	assert.False(t, r.Valid)
	assert.True(t, r.HMACValid)
	assert.True(t, r.PositionValid)
	assert.True(t, r.PasswordValid)
	assert.Equal(t, []string{"pack"}, r.Failed())
}

func TestValidateInvalidSignatureRunsRemainingChecks(t *testing.T) {
	f := newFixture(t)
	b := f.generate(t, "good.bin")
	b[0x100] ^= 0x01
	b[532] ^= 0x01
	require.NoError(t, f.files.WriteFile("bad.bin", b))

	r := f.pl.ValidateFile(f.key, "bad.bin")
	assert.False(t, r.HMACValid)
	assert.True(t, r.PositionValid)
	assert.False(t, r.PasswordValid)
	assert.True(t, r.PackValid)
	assert.Nil(t, r.Err)
	assert.Equal(t, []string{"hmac", "password"}, r.Failed())
}

func TestValidateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	b := f.generate(t, "good.bin")
	b[8] ^= 0xFF
	require.NoError(t, f.files.WriteFile("pos.bin", b))

	for _, name := range []string{"good.bin", "pos.bin"} {
		first := f.pl.ValidateFile(f.key, name)
		second := f.pl.ValidateFile(f.key, name)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("%s: reports differ (-first +second):\n%s", name, diff)
		}
		after := f.read(t, name)
		if name == "pos.bin" {
			assert.Equal(t, b, after, "validation must not modify the file")
		}
	}
}

func TestValidateSizeError(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.files.WriteFile("short.bin", make([]byte, 532)))

	r := f.pl.ValidateFile(f.key, "short.bin")
	assert.False(t, r.Valid)
	assert.True(t, ntag215.IsSizeError(r.Err), "got %v", r.Err)
	assert.Equal(t, []string{"structure"}, r.Failed())
	decodes, _ := f.oracle.Calls()
	assert.Zero(t, decodes, "no checks after a structural failure")
}

func TestValidateOracleError(t *testing.T) {
	f := newFixture(t)
	f.generate(t, "good.bin")
	f.oracle.Err = errors.New("oracle down")

	r := f.pl.ValidateFile(f.key, "good.bin")
	assert.False(t, r.Valid)
	assert.False(t, r.HMACValid)
	assert.True(t, r.PositionValid)
	assert.True(t, r.PasswordValid)
	assert.True(t, r.PackValid)
	assert.EqualError(t, r.Err, "oracle down")
}

func TestValidateBatchContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	b := f.generate(t, "good.bin")
	b[537] = 0x81
	require.NoError(t, f.files.WriteFile("pack.bin", b))
	require.NoError(t, f.files.WriteFile("broken.nfc", []byte("not a capture\n")))

	batch := f.pl.Validate(f.key, []string{"missing.bin", "good.bin", "broken.nfc", "pack.bin"})
	assert.Equal(t, 4, batch.Total)
	assert.Equal(t, 1, batch.ValidCount)
	assert.Equal(t, 3, batch.InvalidCount)
	require.Len(t, batch.Reports, 4)
	assert.Equal(t, "missing.bin", batch.Reports[0].Path)
	assert.True(t, ntag215.IsIOError(batch.Reports[0].Err))
	assert.True(t, batch.Reports[1].Valid)
	assert.True(t, ntag215.IsFormatError(batch.Reports[2].Err))
	assert.False(t, batch.Reports[3].PackValid)

	err := batch.Err()
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 3)
	assert.True(t, strings.Contains(err.Error(), "pack.bin: failed checks: pack"))
}

func TestValidateBatchAllValid(t *testing.T) {
	f := newFixture(t)
	f.generate(t, "a.bin")
	f.generate(t, "b.nfc")

	batch := f.pl.Validate(f.key, []string{"a.bin", "b.nfc"})
	assert.Equal(t, 2, batch.ValidCount)
	assert.NoError(t, batch.Err())
}
