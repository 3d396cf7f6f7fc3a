package ntag215

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Pipeline runs the mutate, generate and validate operations. It holds only
// collaborators; every call owns its images end to end.
type Pipeline struct {
	Oracle Oracle
	Files  Files     // defaults to OSFiles
	Rand   io.Reader // defaults to crypto/rand
}

// Result describes a dump written by Mutate or Generate.
type Result struct {
	Output   string  `json:"output"`
	UID      string  `json:"uid"`
	AmiiboID string  `json:"amiibo_id"`
	Check    *Report `json:"check,omitempty"`
	Warning  string  `json:"warning,omitempty"`
}

func (pl *Pipeline) files() Files {
	if pl.Files == nil {
		return OSFiles{}
	}
	return pl.Files
}

func (pl *Pipeline) random() io.Reader {
	if pl.Rand == nil {
		return rand.Reader
	}
	return pl.Rand
}

// Mutate replaces the UID of an existing dump while keeping its game data.
//
// Steps:
//  1. Resolve the UID (custom or random)
//  2. Read and decode the template
//  3. Oracle decode; an invalid signature aborts
//  4. Patch the logical UID block
//  5. Oracle encode, pinning the template's character id
//  6. Seal position, password and ack
//  7. Write, then validate the written file (warning only)
func (pl *Pipeline) Mutate(key *KeyHandle, templatePath, outputPath, customUID string) (*Result, error) {
	uid, err := pl.resolveUID(customUID)
	if err != nil {
		return nil, err
	}

	template, err := pl.readImage(templatePath)
	if err != nil {
		return nil, err
	}
	logical, ok, err := pl.Oracle.Decode(key, template)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", templatePath, err)
	}
	if !ok {
		return nil, pathError(KindHMAC, "decode", templatePath, errors.New("tag signature is not valid"))
	}
	originalID := template.Get(PackedAmiiboID)
	slog.Debug("template decoded", "path", templatePath, "uid", template.UID(), "amiibo_id", template.AmiiboID())

	uid8 := uid.Packed()
	logical.Set(LogicalUID, uid8[:])

	packed, err := encode(pl.Oracle, key, logical, pinnedField{field: PackedAmiiboID, value: originalID})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", outputPath, err)
	}
	return pl.persist(key, outputPath, packed)
}

// Generate builds a new dump from a 16-hex-character character id.
//
// Steps:
//  1. Parse the character id and resolve the UID
//  2. Start from a zeroed logical image
//  3. Patch UID block, magic blocks and character id
//  4. Oracle encode, pinning magic block A
//  5. Seal position, password and ack
//  6. Write, then validate the written file (warning only)
func (pl *Pipeline) Generate(key *KeyHandle, amiiboIDHex, outputPath, customUID string) (*Result, error) {
	id, err := ParseAmiiboID(amiiboIDHex)
	if err != nil {
		return nil, err
	}
	uid, err := pl.resolveUID(customUID)
	if err != nil {
		return nil, err
	}

	var logical LogicalImage
	uid8 := uid.Packed()
	logical.Set(LogicalUID, uid8[:])
	logical.Set(LogicalMagic, MagicA[:])
	logical.Set(LogicalConfig, MagicB[:])
	logical.Set(LogicalAmiiboID, id[:])

	packed, err := encode(pl.Oracle, key, &logical, pinnedField{field: PackedMagic, value: MagicA[:]})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", outputPath, err)
	}
	return pl.persist(key, outputPath, packed)
}

func (pl *Pipeline) resolveUID(custom string) (UID, error) {
	if custom != "" {
		return ParseUID(custom)
	}
	return randomUID(pl.random())
}

// persist writes the image and re-validates the written file. A failed
// self-check is reported as a warning; the file stays on disk.
func (pl *Pipeline) persist(key *KeyHandle, outputPath string, packed *PackedImage) (*Result, error) {
	content := FormatFor(outputPath).Encode(packed)
	if err := pl.files().WriteFile(outputPath, content); err != nil {
		return nil, pathError(KindIO, "write", outputPath, err)
	}
	slog.Debug("dump written", "path", outputPath, "bytes", len(content))

	res := &Result{
		Output:   outputPath,
		UID:      packed.UID().String(),
		AmiiboID: packed.AmiiboID().String(),
	}
	check := pl.ValidateFile(key, outputPath)
	res.Check = &check
	if !res.Check.Valid {
		res.Warning = fmt.Sprintf("self-check failed: %v", res.Check.Failed())
		if res.Check.Err != nil {
			res.Warning = fmt.Sprintf("self-check failed: %v", res.Check.Err)
		}
		slog.Warn("written dump did not validate", "path", outputPath, "failed", res.Check.Failed())
	}
	return res, nil
}

// readImage reads a dump through the adapter its suffix selects.
func (pl *Pipeline) readImage(path string) (*PackedImage, error) {
	content, err := pl.files().ReadFile(path)
	if err != nil {
		return nil, pathError(KindIO, "read", path, err)
	}
	raw, err := FormatFor(path).Decode(content)
	if err != nil {
		return nil, withPath(err, path)
	}
	p, err := NewPackedImage(raw)
	if err != nil {
		return nil, withPath(err, path)
	}
	return p, nil
}

func withPath(err error, path string) error {
	var e *Error
	if errors.As(err, &e) && e.Path == "" {
		e.Path = path
	}
	return err
}
