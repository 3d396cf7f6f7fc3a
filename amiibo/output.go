package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/christopher-roelofs/amiibotool/pkg/ntag215"
)

// checkOverwrite refuses to replace an existing file unless overwriting is
// enabled or the user confirms on an interactive terminal.
func (a *app) checkOverwrite(cmd *cobra.Command, path string) error {
	if !fileExists(path) || a.cfg.Overwrite() {
		return nil
	}
	if !a.isTerminal() {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s already exists. Overwrite? [y/N] ", path)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return fmt.Errorf("%s already exists, not overwritten", path)
}

func (a *app) printResult(cmd *cobra.Command, res *ntag215.Result) error {
	w := cmd.OutOrStdout()
	if a.jsonOut {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Wrote %s\n", res.Output)
	fmt.Fprintf(w, "  UID:        %s\n", res.UID)
	fmt.Fprintf(w, "  Amiibo ID:  %s\n", res.AmiiboID)
	if res.Check != nil {
		if res.Check.Valid {
			fmt.Fprintln(w, "  Self-check: OK")
		} else {
			fmt.Fprintf(w, "  Self-check: FAILED (%s)\n", strings.Join(res.Check.Failed(), ", "))
		}
	}
	return nil
}

func (a *app) printBatch(cmd *cobra.Command, batch *ntag215.BatchReport) error {
	w := cmd.OutOrStdout()
	if a.jsonOut {
		return writeJSON(w, batch)
	}
	for _, r := range batch.Reports {
		switch {
		case r.Valid:
			fmt.Fprintf(w, "OK    %s  uid=%s amiibo=%s\n", r.Path, r.UID, r.AmiiboID)
		case r.Err != nil && r.UID == "":
			fmt.Fprintf(w, "FAIL  %s  %v\n", r.Path, r.Err)
		default:
			fmt.Fprintf(w, "FAIL  %s  %s\n", r.Path, strings.Join(r.Failed(), ", "))
		}
	}
	fmt.Fprintf(w, "\n%d valid, %d invalid, %d total\n", batch.ValidCount, batch.InvalidCount, batch.Total)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
