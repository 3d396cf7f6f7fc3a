package ntag215

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
)

// Report is the outcome of validating one dump.
type Report struct {
	Path          string `json:"path"`
	Valid         bool   `json:"valid"`
	HMACValid     bool   `json:"hmac_valid"`
	PositionValid bool   `json:"position_valid"`
	PasswordValid bool   `json:"password_valid"`
	PackValid     bool   `json:"pack_valid"`
	UID           string `json:"uid,omitempty"`
	AmiiboID      string `json:"amiibo_id,omitempty"`
	Error         string `json:"error,omitempty"`

	// Err is the read, parse or oracle failure behind Error, if any.
	Err error `json:"-"`
}

// Failed lists the names of the checks that did not pass.
func (r Report) Failed() []string {
	if r.Err != nil && r.UID == "" {
		return []string{"structure"}
	}
	var failed []string
	if !r.HMACValid {
		failed = append(failed, "hmac")
	}
	if !r.PositionValid {
		failed = append(failed, "position")
	}
	if !r.PasswordValid {
		failed = append(failed, "password")
	}
	if !r.PackValid {
		failed = append(failed, "pack")
	}
	return failed
}

// BatchReport collects the reports of a multi-file validation.
type BatchReport struct {
	Reports      []Report `json:"reports"`
	ValidCount   int      `json:"valid"`
	InvalidCount int      `json:"invalid"`
	Total        int      `json:"total"`
}

// Err returns one error per invalid file, or nil when every file passed.
func (b *BatchReport) Err() error {
	var merr *multierror.Error
	for _, r := range b.Reports {
		if r.Valid {
			continue
		}
		if r.Err != nil {
			merr = multierror.Append(merr, r.Err)
			continue
		}
		merr = multierror.Append(merr, fmt.Errorf("%s: failed checks: %s", r.Path, strings.Join(r.Failed(), ", ")))
	}
	return merr.ErrorOrNil()
}

// ValidateFile checks one dump. A file that cannot be read or is not
// ImageSize bytes yields a wholly invalid report. An invalid signature does
// not stop the remaining checks, which run on the packed bytes directly.
func (pl *Pipeline) ValidateFile(key *KeyHandle, path string) Report {
	r := Report{Path: path}
	packed, err := pl.readImage(path)
	if err != nil {
		r.Err = err
		r.Error = err.Error()
		return r
	}
	r.UID = packed.UID().String()
	r.AmiiboID = packed.AmiiboID().String()

	_, ok, err := pl.Oracle.Decode(key, packed)
	if err != nil {
		slog.Warn("oracle decode failed", "path", path, "error", err)
		r.Err = err
		r.Error = err.Error()
	}
	r.HMACValid = err == nil && ok

	checkPacked(packed, &r)
	r.Valid = r.HMACValid && r.PositionValid && r.PasswordValid && r.PackValid
	slog.Debug("validated", "path", path, "valid", r.Valid, "failed", r.Failed())
	return r
}

func checkPacked(p *PackedImage, r *Report) {
	uid8 := p.UID8()
	r.PositionValid = p[PackedPosition.Offset] == Position8(uid8)
	pwd := Password(uid8)
	r.PasswordValid = bytes.Equal(p.Get(PackedPassword), pwd[:])
	r.PackValid = bytes.Equal(p.Get(PackedPack), PackValue[:])
}

// Validate checks every path in order. A failure on one file becomes an
// invalid report for that file; the batch always runs to completion.
func (pl *Pipeline) Validate(key *KeyHandle, paths []string) *BatchReport {
	b := &BatchReport{Reports: make([]Report, 0, len(paths))}
	for _, path := range paths {
		r := pl.ValidateFile(key, path)
		b.Reports = append(b.Reports, r)
		if r.Valid {
			b.ValidCount++
		} else {
			b.InvalidCount++
		}
	}
	b.Total = len(b.Reports)
	return b
}
