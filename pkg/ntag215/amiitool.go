package ntag215

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Amiitool runs an amiitool-compatible executable as the oracle.
//
// The command is invoked as:
//
//	<command> -d|-e [-l] -k <key> -i <in> -o <out>
//
// -d decrypts and verifies, -e signs and encrypts, -l decrypts even when the
// signature does not verify. A non-zero exit from -d is taken as a signature
// failure when the -l retry succeeds.
type Amiitool struct {
	Command []string // executable and fixed leading arguments
	TempDir string   // scratch directory; "" uses os.TempDir
}

// NewAmiitool splits a shell-style command line into an Amiitool oracle.
func NewAmiitool(command string) (*Amiitool, error) {
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse oracle command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("oracle command is empty")
	}
	return &Amiitool{Command: args}, nil
}

// Decode implements Oracle.
func (a *Amiitool) Decode(key *KeyHandle, packed *PackedImage) (*LogicalImage, bool, error) {
	out, err := a.run(key, packed[:], "-d")
	if err == nil {
		l, err := toLogical(out)
		return l, err == nil, err
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return nil, false, err
	}
	slog.Debug("oracle decode rejected, retrying without signature check", "error", err)
	out, lerr := a.run(key, packed[:], "-d", "-l")
	if lerr != nil {
		return nil, false, fmt.Errorf("decode: %w", lerr)
	}
	l, cerr := toLogical(out)
	if cerr != nil {
		return nil, false, cerr
	}
	return l, false, nil
}

// Encode implements Oracle.
func (a *Amiitool) Encode(key *KeyHandle, logical *LogicalImage) (*PackedImage, error) {
	out, err := a.run(key, logical[:], "-e")
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return NewPackedImage(out)
}

func toLogical(out []byte) (*LogicalImage, error) {
	if len(out) != ImageSize {
		return nil, newError(KindSize, "oracle decode", fmt.Errorf("oracle returned %d bytes, want %d", len(out), ImageSize))
	}
	var l LogicalImage
	copy(l[:], out)
	return &l, nil
}

// run writes key and input to a scratch directory, executes the command and
// returns the contents of the output file.
func (a *Amiitool) run(key *KeyHandle, input []byte, mode ...string) ([]byte, error) {
	if len(a.Command) == 0 {
		return nil, errors.New("oracle command is empty")
	}
	dir, err := os.MkdirTemp(a.TempDir, "amiitool-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	keyPath := filepath.Join(dir, "key.bin")
	inPath := filepath.Join(dir, "in.bin")
	outPath := filepath.Join(dir, "out.bin")
	if err := os.WriteFile(keyPath, key.Bytes(), 0o600); err != nil {
		return nil, err
	}
	if err := os.WriteFile(inPath, input, 0o600); err != nil {
		return nil, err
	}

	args := append([]string{}, a.Command[1:]...)
	args = append(args, mode...)
	args = append(args, "-k", keyPath, "-i", inPath, "-o", outPath)
	cmd := exec.Command(a.Command[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Debug("running oracle", "command", a.Command[0], "mode", strings.Join(mode, " "))
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s %s: %w: %s", filepath.Base(a.Command[0]), strings.Join(mode, " "), err, msg)
		}
		return nil, fmt.Errorf("%s %s: %w", filepath.Base(a.Command[0]), strings.Join(mode, " "), err)
	}
	return os.ReadFile(outPath)
}
