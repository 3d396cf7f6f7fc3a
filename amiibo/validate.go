package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>...",
		Short: "Check dumps and directories of dumps",
		Long: `Check each dump's signature, position byte, password and ack.
Directories are searched recursively for .bin and .nfc files.
Exits non-zero when any file is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandPaths(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return errors.New("no .bin or .nfc files found")
			}
			pl, key, err := a.pipeline()
			if err != nil {
				return err
			}
			batch := pl.Validate(key, paths)
			if err := a.printBatch(cmd, batch); err != nil {
				return err
			}
			return batch.Err()
		},
	}
}

// expandPaths replaces each directory argument with the dump files beneath
// it, in lexical order. Other arguments are kept as given so that missing
// files still get a report.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isDumpFile(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

func isDumpFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bin", ".nfc":
		return true
	}
	return false
}
