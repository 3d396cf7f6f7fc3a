package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/christopher-roelofs/amiibotool/amiibo/internal/config"
	"github.com/christopher-roelofs/amiibotool/pkg/ntag215"
)

const configFileName = "config.yaml"

// app carries flag values and collaborators shared by the subcommands.
type app struct {
	configPath string
	verbose    bool
	logFormat  string
	keyPath    string
	oracleCmd  string
	jsonOut    bool
	force      bool

	cfg        *config.Config
	newOracle  func(command string) (ntag215.Oracle, error)
	isTerminal func() bool
}

func newApp() *app {
	return &app{
		newOracle: func(command string) (ntag215.Oracle, error) {
			return ntag215.NewAmiitool(command)
		},
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "amiibo",
		Short:         "Mutate, generate, validate and dump NTAG215 amiibo images",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&a.configPath, "config", "", "config file (default: config.yaml next to the executable or in the working directory)")
	pf.StringVar(&a.keyPath, "key", "", "retail key file, overrides keys.retail_key_file")
	pf.StringVar(&a.oracleCmd, "oracle", "", "amiitool-compatible command, overrides oracle.command")
	pf.BoolVar(&a.jsonOut, "json", false, "print results as JSON")
	pf.BoolVarP(&a.force, "force", "f", false, "overwrite existing output files without asking")

	root.AddCommand(newMutateCmd(a), newGenerateCmd(a), newValidateCmd(a), newDumpCmd(a))
	return root
}

// setup loads the config, applies flag overrides and installs the logger.
// Precedence is YAML, then environment, then flags.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	optional := path == ""
	if optional {
		p, err := defaultConfigPath()
		if err != nil {
			return fmt.Errorf("resolve config path failed: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("key") {
		cfg.Keys.RetailKeyFile = a.keyPath
	}
	if flags.Changed("oracle") {
		cfg.Oracle.Command = a.oracleCmd
	}
	if flags.Changed("log-format") || cfg.Runtime.LogFormat == "" {
		cfg.Runtime.LogFormat = a.logFormat
	}
	if flags.Changed("force") {
		cfg.Output.Overwrite = &a.force
	}
	a.cfg = cfg

	setupLogging(cmd.ErrOrStderr(), a.verbose, cfg.Runtime.LogFormat)
	slog.Debug("using config", "path", path, "found", fileExists(path))
	return nil
}

func setupLogging(w io.Writer, verbose bool, format string) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(w, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
	}
}

// pipeline validates the config for oracle use and builds the key and
// pipeline the write and validate commands share.
func (a *app) pipeline() (*ntag215.Pipeline, *ntag215.KeyHandle, error) {
	if err := a.cfg.ValidateWithMode(config.ValidationFull); err != nil {
		return nil, nil, err
	}
	key, err := ntag215.LoadKeyMaterial(a.cfg.Keys.RetailKeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("retail key file invalid: %w", err)
	}
	oracle, err := a.newOracle(a.cfg.Oracle.Command)
	if err != nil {
		return nil, nil, err
	}
	return &ntag215.Pipeline{Oracle: oracle}, key, nil
}

func defaultConfigPath() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	exeConfigPath := filepath.Join(filepath.Dir(exePath), configFileName)
	if fileExists(exeConfigPath) {
		return exeConfigPath, nil
	}

	// Fallback for `go run`, where the executable is placed in a temp directory.
	cwd, err := os.Getwd()
	if err != nil {
		return exeConfigPath, nil
	}
	cwdConfigPath := filepath.Join(cwd, configFileName)
	if fileExists(cwdConfigPath) {
		return cwdConfigPath, nil
	}
	return exeConfigPath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
