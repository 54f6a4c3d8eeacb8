package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/adammathes/xbrlverify/pkg/config"
	"github.com/adammathes/xbrlverify/pkg/dts"
	"github.com/adammathes/xbrlverify/pkg/report"
	"github.com/adammathes/xbrlverify/pkg/validate"
	"github.com/adammathes/xbrlverify/pkg/watch"
)

const version = "0.1.0"

type flags struct {
	jsonOutput    string
	configPath    string
	logLevel      string
	packages      []string
	skip          []string
	concurrency   int
	offline       bool
	strict        bool
	skipSemantics bool

	debounce    time.Duration
	metricsAddr string
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the exit code: 0 valid,
// 1 errors, 2 fatal.
func execute(args []string, stdout, stderr io.Writer) int {
	code := 0
	cmd := rootCmd(stdout, stderr, &code)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Fatal: %v\n", err)
		return 2
	}
	return code
}

func rootCmd(stdout, stderr io.Writer, code *int) *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "xbrlverify <entry>",
		Short: "Validate an XBRL taxonomy or filing",
		Long: `xbrlverify discovers the DTS of an entry document (a schema, linkbase,
instance or taxonomy package), resolves its linkbases into relationship
sets and reports problems found along the way.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := settings(cmd, f, stderr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			res, err := validate.Run(ctx, args[0], opts)
			if err != nil {
				return err
			}
			if err := writeOutput(res.Report, f.jsonOutput, stdout, stderr); err != nil {
				return err
			}
			*code = exitCode(res.Report)
			return nil
		},
	}
	cmd.SetVersionTemplate("xbrlverify {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringSliceVarP(&f.packages, "package", "p", nil, "Taxonomy package to resolve URIs from (repeatable)")
	pf.StringSliceVar(&f.skip, "skip", nil, "Glob of URIs to leave out of discovery (repeatable)")
	pf.IntVar(&f.concurrency, "concurrency", dts.DefaultConcurrency, "Documents fetched at once")
	pf.BoolVar(&f.offline, "offline", false, "Do not fetch http(s) URLs")
	pf.BoolVar(&f.strict, "strict", false, "Keep warnings that are downgraded to info by default")
	pf.BoolVar(&f.skipSemantics, "skip-semantics", false, "Skip schema QName reference checks")
	cmd.Flags().StringVar(&f.jsonOutput, "json", "", "Also write the JSON report to this file")

	cmd.AddCommand(watchCmd(f, stderr))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "xbrlverify %s\n", version)
		},
	})
	return cmd
}

func watchCmd(f *flags, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <entry>",
		Short: "Re-validate whenever a local DTS document changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := settings(cmd, f, stderr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, args[0], opts, f, stderr)
		},
	}
	cmd.Flags().DurationVar(&f.debounce, "debounce", 200*time.Millisecond, "Wait this long for changes to settle")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

// settings layers configuration files and command-line flags into
// validation options, and installs the default logger.
func settings(cmd *cobra.Command, f *flags, stderr io.Writer) (validate.Options, error) {
	cfg, err := config.NewLoader(newLogger(stderr, slog.LevelWarn)).Load(f.configPath)
	if err != nil {
		return validate.Options{}, fmt.Errorf("load config: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("package") {
		cfg.Discovery.Packages = append(cfg.Discovery.Packages, f.packages...)
	}
	if changed("skip") {
		cfg.Discovery.Skip = append(cfg.Discovery.Skip, f.skip...)
	}
	if changed("concurrency") {
		cfg.Discovery.Concurrency = f.concurrency
	}
	if changed("offline") {
		cfg.Discovery.Offline = f.offline
	}
	if changed("strict") {
		cfg.Validation.Strict = f.strict
	}
	if changed("skip-semantics") {
		cfg.Validation.SkipSemantics = f.skipSemantics
	}
	if err := cfg.Validate(); err != nil {
		return validate.Options{}, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := cfg.Log.SlogLevel()
	logger := newLogger(stderr, level)
	slog.SetDefault(logger)

	opts := validate.Options{
		Strict:        cfg.Validation.Strict,
		SkipSemantics: cfg.Validation.SkipSemantics,
		Offline:       cfg.Discovery.Offline,
		Timeout:       cfg.Discovery.Timeout,
		Concurrency:   cfg.Discovery.Concurrency,
		Skip:          cfg.Discovery.Skip,
		Packages:      cfg.Discovery.Packages,
		Logger:        logger,
	}
	for _, r := range cfg.Discovery.Remappings {
		opts.Remappings = append(opts.Remappings, dts.Remapping{Prefix: r.Prefix, Replacement: r.Replacement})
	}
	return opts, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// writeOutput writes the text report to stderr and the JSON report to
// stdout, and to jsonPath when set.
func writeOutput(r *report.Report, jsonPath string, stdout, stderr io.Writer) error {
	r.WriteText(stderr)

	if err := r.WriteJSON(stdout); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	if jsonPath == "" || jsonPath == "-" {
		return nil
	}
	if err := writeJSON(r, jsonPath); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	return nil
}

func writeJSON(r *report.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.WriteJSON(f)
}

// Exit codes: 0=valid, 1=errors, 2=fatal
func exitCode(r *report.Report) int {
	if r.FatalCount() > 0 {
		return 2
	}
	if r.ErrorCount() > 0 {
		return 1
	}
	return 0
}

func runWatch(ctx context.Context, entry string, opts validate.Options, f *flags, stderr io.Writer) error {
	logger := opts.Logger

	if f.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts.Metrics = dts.NewMetrics(reg)
		srv := &http.Server{
			Addr:              f.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("Serving metrics", "addr", f.metricsAddr)
	}

	w, err := watch.New(watch.Config{Debounce: f.debounce, Logger: logger})
	if err != nil {
		return err
	}
	defer w.Close()

	check := func() {
		res, err := validate.Run(ctx, entry, opts)
		if err != nil {
			logger.Error("Validation interrupted", "error", err)
			return
		}
		res.Report.WriteText(stderr)

		files := append(res.Files, opts.Packages...)
		if !dts.IsRemote(entry) {
			files = append(files, entry)
		}
		if err := w.Watch(files); err != nil {
			logger.Warn("Cannot watch documents", "error", err)
		}
		logger.Info("Watching for changes", "files", len(w.Files()))
	}

	check()
	err = w.Run(ctx, func(changed []string) {
		logger.Info("Change detected", "files", changed)
		check()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
