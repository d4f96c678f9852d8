package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/ffi-bridge/dyn"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/examples/geometry"
	"github.com/wippyai/ffi-bridge/future"
	"github.com/wippyai/ffi-bridge/headers"
	"github.com/wippyai/ffi-bridge/headers/c"
	"github.com/wippyai/ffi-bridge/headers/csharp"
	"github.com/wippyai/ffi-bridge/heap"
	"github.com/wippyai/ffi-bridge/internal/genconfig"
	"github.com/wippyai/ffi-bridge/repr"
)

type rootOptions struct {
	config      string
	langs       []string
	out         string
	guard       string
	wit         string
	asserts     bool
	stdout      bool
	verbose     bool
	interactive bool
}

// NewRootCommand creates the ffigen command.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ffigen",
		Short: "Generate foreign headers for the geometry boundary",
		Long: `Generate C and C# declarations for every item the geometry package
registers: structs, enums, closure records, vtables, virtual pointers,
functions and constants.

Settings come from --config (TOML or YAML); flags override them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "config file (.toml, .yaml)")
	cmd.Flags().StringSliceVarP(&opts.langs, "lang", "l", nil, "target languages (c, csharp)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output directory")
	cmd.Flags().StringVar(&opts.guard, "guard", "", "C include guard")
	cmd.Flags().StringVar(&opts.wit, "wit", "", "WIT package in JSON form whose types are exported too")
	cmd.Flags().BoolVar(&opts.asserts, "asserts", true, "emit layout assertions")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "write headers to stdout instead of files")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log registration and generation")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse items in a terminal UI")

	return cmd
}

func run(cmd *cobra.Command, opts *rootOptions) error {
	if opts.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		setLoggers(logger)
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	reg, err := buildRegistry(opts.wit)
	if err != nil {
		return err
	}

	if opts.interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.InvalidInput(errors.PhaseConfig, "interactive mode needs a terminal")
		}
		return runBrowser(reg, cfg)
	}

	for _, lang := range cfg.Output.Langs {
		b := backendFor(lang)
		if opts.stdout {
			if err := headers.Generate(cmd.OutOrStdout(), reg, b, cfg.Options()); err != nil {
				return err
			}
			continue
		}
		path := cfg.OutputPath(b.Extension())
		if err := writeHeader(path, reg, b, cfg.Options()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	}
	return nil
}

func setLoggers(l *zap.Logger) {
	heap.SetLogger(l.Named("heap"))
	dyn.SetLogger(l.Named("dyn"))
	future.SetLogger(l.Named("future"))
	headers.SetLogger(l.Named("headers"))
}

func loadConfig(cmd *cobra.Command, opts *rootOptions) (*genconfig.Config, error) {
	cfg := genconfig.Default()
	if opts.config != "" {
		var err error
		if cfg, err = genconfig.Load(opts.config); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("lang") {
		cfg.Output.Langs = opts.langs
	}
	if flags.Changed("out") {
		out, err := filepath.Abs(opts.out)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, "resolve output directory")
		}
		cfg.Output.Dir = out
	}
	if flags.Changed("guard") {
		cfg.Header.Guard = opts.guard
	}
	if flags.Changed("asserts") {
		cfg.Header.LayoutAsserts = &opts.asserts
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildRegistry(witPath string) (*headers.Registry, error) {
	reg := headers.NewRegistry()
	if err := geometry.Register(reg); err != nil {
		return nil, err
	}
	if witPath == "" {
		return reg, nil
	}

	items, err := witItems(witPath)
	if err != nil {
		return nil, err
	}
	if err := reg.Register(items...); err != nil {
		return nil, err
	}
	return reg, nil
}

// witItems imports every named type definition of the WIT package at path.
// Definitions without a canonical layout are logged and skipped.
func witItems(path string) ([]headers.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindIO).
			Path(path).
			Cause(err).
			Detail("cannot open WIT package").
			Build()
	}
	defer f.Close()

	res, err := wit.DecodeJSON(f)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode WIT JSON")
	}

	types, skipped := repr.FromResolve(res)
	for _, name := range skipped {
		headers.Logger().Warn("WIT type skipped", zap.String("name", name))
	}
	items := make([]headers.Item, len(types))
	for i, t := range types {
		items[i] = headers.TypeItem(t.Layout())
	}
	return items, nil
}

func backendFor(lang string) headers.Backend {
	if lang == "csharp" {
		return csharp.New()
	}
	return c.New()
}

func writeHeader(path string, reg *headers.Registry, b headers.Backend, opts headers.Options) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.PhaseGenerate, errors.KindIO, err, "create output directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.PhaseGenerate, errors.KindIO, err, "create header")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(errors.PhaseGenerate, errors.KindIO, cerr, "close header")
		}
	}()
	return headers.Generate(f, reg, b, opts)
}
