package ntag215

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Retail key blob geometry: two 80-byte master keys (data, then tag).
const (
	MasterKeySize = 80
	KeySize       = 2 * MasterKeySize

	magicSizeOffset = 31 // hmacKey(16) typeString(14) rfu(1)
	maxMagicSize    = 16
)

// KeyHandle carries the oracle's key material. It is loaded once by the
// caller and passed explicitly to every operation.
type KeyHandle struct {
	path string
	data [KeySize]byte
}

// NewKeyHandle wraps an in-memory key blob.
func NewKeyHandle(data []byte) (*KeyHandle, error) {
	if len(data) != KeySize {
		return nil, newError(KindKeyLoad, "load key", fmt.Errorf("key must be %d bytes, got %d", KeySize, len(data)))
	}
	k := &KeyHandle{}
	copy(k.data[:], data)
	for i := 0; i < 2; i++ {
		master := k.data[i*MasterKeySize : (i+1)*MasterKeySize]
		if n := master[magicSizeOffset]; n > maxMagicSize {
			return nil, newError(KindKeyLoad, "load key", fmt.Errorf("master key %d: magic bytes size %d exceeds %d", i, n, maxMagicSize))
		}
	}
	return k, nil
}

// LoadKeyMaterial loads the retail key blob. The file holds either the raw
// 160 bytes or the same bytes as hex text, optionally split across lines.
func LoadKeyMaterial(path string) (*KeyHandle, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, pathError(KindKeyLoad, "load key", path, err)
	}
	data := content
	if len(content) != KeySize {
		data, err = decodeHexKey(content)
		if err != nil {
			return nil, pathError(KindKeyLoad, "load key", path, err)
		}
	}
	k, err := NewKeyHandle(data)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Path = path
		}
		return nil, err
	}
	k.path = path
	return k, nil
}

func decodeHexKey(content []byte) ([]byte, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sb.WriteString(strings.ReplaceAll(line, " ", ""))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	text := sb.String()
	if text == "" {
		return nil, errors.New("key file is empty")
	}
	if len(text) != 2*KeySize {
		return nil, fmt.Errorf("key must be %d bytes or %d hex chars, got %d bytes", KeySize, 2*KeySize, len(content))
	}
	key, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %v", err)
	}
	return key, nil
}

// Path returns the file the key was loaded from, or "" for in-memory keys.
func (k *KeyHandle) Path() string { return k.path }

// Bytes returns a copy of the key blob.
func (k *KeyHandle) Bytes() []byte {
	out := make([]byte, KeySize)
	copy(out, k.data[:])
	return out
}
