// Package main provides the hexguard binary entry point.
// Hexguard checks a Java codebase against hexagonal architecture layer rules
// and fails only on violations that are not in the baseline.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/hexguard/classgraph"
	"github.com/c360studio/hexguard/config"
	"github.com/c360studio/hexguard/extract"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "hexguard"
)

// errViolations makes the process exit with status 1 without printing an
// error; the report already explains the failure.
var errViolations = errors.New("new architecture violations")

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errViolations) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		cancel()
		os.Exit(1)
	}
}

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	repoPath   string
	logLevel   string
	logger     *slog.Logger
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Hexagonal architecture conformance checks",
		Long: `Hexguard checks a Java codebase against the rules of a hexagonal
architecture: a shared kernel, domain, commands, queries, handlers,
input and output ports, and adapters.

Violations already recorded in the baseline are reported as known;
only new violations fail a check.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.logger = setupLogger(cmd.ErrOrStderr(), opts.logLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (default: hexguard.yaml in current or parent directories)")
	cmd.PersistentFlags().StringVar(&opts.repoPath, "repo", "", "Repository root that relative paths are resolved against")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		initCmd(opts),
		checkCmd(opts),
		freezeCmd(opts),
		extractCmd(opts),
		rulesCmd(opts),
		watchCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

func setupLogger(w io.Writer, logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(o.logger).Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.repoPath != "" {
		abs, err := filepath.Abs(o.repoPath)
		if err != nil {
			return nil, fmt.Errorf("resolve repo path: %w", err)
		}
		cfg.Repo.Path = abs
	}
	return cfg, nil
}

func (o *options) newApp(ctx context.Context, appOpts ...AppOption) (*App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return NewApp(ctx, cfg, o.logger, appOpts...)
}

func initCmd(opts *options) *cobra.Command {
	var basePackage string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter " + config.ProjectConfigFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.repoPath
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = wd
			}
			path, err := config.NewLoader(opts.logger).InitProject(dir, basePackage, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&basePackage, "base-package", "", "Root Java package of the application, e.g. com.acme")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing config")
	_ = cmd.MarkFlagRequired("base-package")
	return cmd
}

func checkCmd(opts *options) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate all layer rules against the baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			rep, err := app.Check(cmd.Context(), cmd.OutOrStdout(), false, verbose)
			if err != nil {
				return err
			}
			if rep.Failed() {
				return errViolations
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also list baselined violations")
	return cmd
}

func freezeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "freeze",
		Short: "Accept all current violations into the baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			_, err = app.Check(cmd.Context(), cmd.OutOrStdout(), true, false)
			return err
		},
	}
}

func extractCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Write a model snapshot from the Java sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			descs, err := extractSources(cmd.Context(), cfg, opts.logger)
			if err != nil {
				return err
			}
			if err := extract.SaveSnapshot(out, descs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d classes to %s\n", len(descs), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "model.json", "Snapshot file (.json, .yaml or .yml)")
	return cmd
}

func rulesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rules of every configured layer",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range app.Engine().Rules() {
				fmt.Fprintf(tw, "%s\t%s\n", r.ID, r.Description())
			}
			return tw.Flush()
		},
	}
}

func watchCmd(opts *options) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the check whenever sources or the config change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			roots := make([]string, len(cfg.Model.Sources))
			for i, src := range cfg.Model.Sources {
				roots[i] = cfg.Resolve(src)
			}
			var files []string
			if path := config.NewLoader(opts.logger).ProjectConfigPath(opts.configPath); path != "" {
				files = append(files, path)
			}
			if cfg.Model.Snapshot != "" {
				files = append(files, cfg.Resolve(cfg.Model.Snapshot))
			}

			w, err := extract.NewWatcher(extract.WatcherConfig{
				Roots:         roots,
				Files:         files,
				Excludes:      cfg.Model.Excludes,
				DebounceDelay: debounce,
				Logger:        opts.logger,
			})
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}

			out := cmd.OutOrStdout()
			matcher := classgraph.NewMatcher(classgraph.DefaultMatchCacheSize)
			runOnce := func(ctx context.Context) {
				// Config is reloaded so edits to hexguard.yaml take effect.
				app, err := opts.newApp(ctx, WithMatcher(matcher))
				if err != nil {
					opts.logger.Error("Check failed", "error", err)
					return
				}
				defer app.Close()
				if _, err := app.Check(ctx, out, false, false); err != nil {
					opts.logger.Error("Check failed", "error", err)
				}
				opts.logger.Debug("Check finished", "cached_patterns", matcher.Len())
			}

			runOnce(ctx)
			err = w.Run(ctx, func(ctx context.Context, cs extract.ChangeSet) {
				opts.logger.Info("Changes detected", "paths", len(cs.Paths))
				runOnce(ctx)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Quiet period before re-running")
	return cmd
}
