package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/christopher-roelofs/amiibotool/amiibo/internal/config"
	"github.com/christopher-roelofs/amiibotool/pkg/ntag215"
)

func newMutateCmd(a *app) *cobra.Command {
	var uid string
	cmd := &cobra.Command{
		Use:   "mutate <template> <output>",
		Short: "Copy a dump under a new UID, keeping its game data",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			warnUIDPrefix(uid)
			pl, key, err := a.pipeline()
			if err != nil {
				return err
			}
			if err := a.checkOverwrite(cmd, args[1]); err != nil {
				return err
			}
			res, err := pl.Mutate(key, args[0], args[1], uid)
			if err != nil {
				return fmt.Errorf("mutate failed: %w", err)
			}
			return a.printResult(cmd, res)
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "UID as 14 hex characters (default: random 04xxxxxxxxxxxx)")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	var uid string
	cmd := &cobra.Command{
		Use:   "generate <amiibo-id> <output>",
		Short: "Build a fresh dump for a 16-hex-character amiibo id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			warnUIDPrefix(uid)
			pl, key, err := a.pipeline()
			if err != nil {
				return err
			}
			if err := a.checkOverwrite(cmd, args[1]); err != nil {
				return err
			}
			res, err := pl.Generate(key, args[0], args[1], uid)
			if err != nil {
				return fmt.Errorf("generate failed: %w", err)
			}
			return a.printResult(cmd, res)
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "UID as 14 hex characters (default: random 04xxxxxxxxxxxx)")
	return cmd
}

func newDumpCmd(a *app) *cobra.Command {
	var reader int
	cmd := &cobra.Command{
		Use:   "dump <output>",
		Short: "Read an NTAG215 from a PC/SC reader into a dump file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("reader") {
				a.cfg.Runtime.ReaderIndex = &reader
			}
			if err := a.cfg.ValidateWithMode(config.ValidationReader); err != nil {
				return err
			}
			if err := a.checkOverwrite(cmd, args[0]); err != nil {
				return err
			}

			conn, err := ntag215.Connect(a.cfg.ReaderIndex())
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Fprintf(cmd.ErrOrStderr(), "Using reader [%d]: %s\n", conn.ReaderIdx, conn.Reader)

			p, err := (&ntag215.Pipeline{}).Dump(conn, args[0])
			if err != nil {
				return fmt.Errorf("dump failed: %w", err)
			}
			return a.printResult(cmd, &ntag215.Result{
				Output:   args[0],
				UID:      p.UID().String(),
				AmiiboID: p.AmiiboID().String(),
			})
		},
	}
	cmd.Flags().IntVarP(&reader, "reader", "r", 0, "PC/SC reader index, overrides runtime.reader_index")
	return cmd
}

// warnUIDPrefix flags custom UIDs that do not carry the NXP manufacturer
// byte. They are still accepted.
func warnUIDPrefix(custom string) {
	if custom == "" {
		return
	}
	uid, err := ntag215.ParseUID(custom)
	if err != nil {
		return
	}
	if uid[0] != ntag215.UIDPrefix {
		slog.Warn("custom UID does not start with 04; some readers reject it", "uid", uid)
	}
}
