// Package ntag215test provides test doubles for the ntag215 package.
package ntag215test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/christopher-roelofs/amiibotool/pkg/ntag215"
)

// segment maps a run of packed bytes to a run of logical bytes.
type segment struct {
	packed, logical, length int
}

// Same permutation amiibo tooling uses between tag and internal layout.
// Bytes 520..540 map to themselves.
var segments = []segment{
	{packed: 0x000, logical: 0x1D4, length: 0x008},
	{packed: 0x008, logical: 0x000, length: 0x008},
	{packed: 0x010, logical: 0x028, length: 0x024},
	{packed: 0x034, logical: 0x1B4, length: 0x020},
	{packed: 0x054, logical: 0x1DC, length: 0x02C},
	{packed: 0x080, logical: 0x008, length: 0x020},
	{packed: 0x0A0, logical: 0x04C, length: 0x168},
	{packed: 0x208, logical: 0x208, length: 0x014},
}

// Signature slot and signed ranges, logical domain. The UID block is not
// signed, so changing it leaves every other packed byte untouched.
var (
	sigField    = [2]int{0x008, 0x028}
	signedRange = [][2]int{{0x029, 0x1B4}, {0x1DC, 0x208}}
)

// Oracle is a deterministic, keyed stand-in for the real transform: it
// permutes between layouts and HMAC-signs the data region. It does not
// encrypt.
type Oracle struct {
	// ScrambleAmiiboID makes Encode zero the packed character id.
	ScrambleAmiiboID bool
	// Err, when set, is returned by every call.
	Err error

	mu      sync.Mutex
	decodes int
	encodes int
}

// Decode implements ntag215.Oracle.
func (o *Oracle) Decode(key *ntag215.KeyHandle, packed *ntag215.PackedImage) (*ntag215.LogicalImage, bool, error) {
	o.mu.Lock()
	o.decodes++
	o.mu.Unlock()
	if o.Err != nil {
		return nil, false, o.Err
	}
	var l ntag215.LogicalImage
	for _, s := range segments {
		copy(l[s.logical:s.logical+s.length], packed[s.packed:s.packed+s.length])
	}
	want := sign(key, &l)
	ok := hmac.Equal(l[sigField[0]:sigField[1]], want)
	return &l, ok, nil
}

// Encode implements ntag215.Oracle.
func (o *Oracle) Encode(key *ntag215.KeyHandle, logical *ntag215.LogicalImage) (*ntag215.PackedImage, error) {
	o.mu.Lock()
	o.encodes++
	o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	l := *logical
	copy(l[sigField[0]:sigField[1]], sign(key, &l))
	var p ntag215.PackedImage
	for _, s := range segments {
		copy(p[s.packed:s.packed+s.length], l[s.logical:s.logical+s.length])
	}
	if o.ScrambleAmiiboID {
		copy(p[ntag215.PackedAmiiboID.Offset:ntag215.PackedAmiiboID.End()], make([]byte, ntag215.PackedAmiiboID.Length))
	}
	return &p, nil
}

// Calls returns how many decodes and encodes ran.
func (o *Oracle) Calls() (decodes, encodes int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.decodes, o.encodes
}

func sign(key *ntag215.KeyHandle, l *ntag215.LogicalImage) []byte {
	mac := hmac.New(sha256.New, key.Bytes())
	for _, r := range signedRange {
		mac.Write(l[r[0]:r[1]])
	}
	return mac.Sum(nil)
}

// Key returns a deterministic key handle for tests.
func Key() *ntag215.KeyHandle {
	data := make([]byte, ntag215.KeySize)
	for i := range data {
		data[i] = byte(i * 7)
	}
	// magic bytes size fields
	data[31] = 14
	data[ntag215.MasterKeySize+31] = 16
	k, err := ntag215.NewKeyHandle(data)
	if err != nil {
		panic(err)
	}
	return k
}

// CheckOracle exercises an oracle's round trip: encoding a logical image and
// decoding the result must verify and preserve the UID block and character id.
func CheckOracle(o ntag215.Oracle, key *ntag215.KeyHandle) error {
	var l ntag215.LogicalImage
	uid := ntag215.UID{0x04, 0x51, 0x18, 0x6D, 0x0D, 0xA0, 0x9E}
	uid8 := uid.Packed()
	id := ntag215.AmiiboID{0x19, 0x19, 0x00, 0x00, 0x00, 0x09, 0x00, 0x02}
	l.Set(ntag215.LogicalUID, uid8[:])
	l.Set(ntag215.LogicalAmiiboID, id[:])
	l.Set(ntag215.LogicalConfig, ntag215.MagicB[:])

	packed, err := o.Encode(key, &l)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	back, ok, err := o.Decode(key, packed)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if !ok {
		return errors.New("decode of freshly encoded image did not verify")
	}
	for _, f := range []ntag215.LogicalField{ntag215.LogicalUID, ntag215.LogicalAmiiboID} {
		if !bytes.Equal(back.Get(f), l.Get(f)) {
			return fmt.Errorf("round trip changed logical %s: got % X, want % X", f.Name, back.Get(f), l.Get(f))
		}
	}
	return nil
}
