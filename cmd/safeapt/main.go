package main

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tomoyayamashita/safe-apt/internal/approval"
	"github.com/tomoyayamashita/safe-apt/internal/config"
	"github.com/tomoyayamashita/safe-apt/internal/logger"
	"github.com/tomoyayamashita/safe-apt/internal/pkgkey"
	"github.com/tomoyayamashita/safe-apt/internal/scan"
)

// Default configuration used when the config file does not exist
//
//go:embed config.yaml
var defaultConfigYAML []byte

var (
	// Global flags
	configPath string
	logLevel   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "safeapt",
		Short: "safe-apt - Publish only scanned and approved packages",
		Long: `safe-apt decides which packages from an upstream mirror snapshot may be
published, based on the vulnerability scan results recorded for them.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")

	rootCmd.AddCommand(newPublishCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newPrintConfigCmd())

	return rootCmd
}

// app bundles what every subcommand needs
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	logFile *os.File
}

func newApp(stdout io.Writer) (*app, error) {
	cfg, err := config.Load(configPath, defaultConfigYAML)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}

	a := &app{cfg: cfg}
	writer := stdout
	logPath := filepath.Join(cfg.System.LogsDir, "publisher.log")
	f, logErr := openLogFile(cfg.System.LogsDir, logPath)
	if logErr == nil {
		a.logFile = f
		writer = io.MultiWriter(stdout, f)
	}
	a.log = logger.NewLogger(writer, logger.ParseLevel(level))

	if logErr != nil {
		a.log.Warn("log_file_unavailable", fmt.Sprintf("Logging to stdout only, cannot open %s", logPath), map[string]interface{}{
			"path":  logPath,
			"error": logErr.Error(),
		})
	}

	if cfg.Source == "" {
		a.log.Debug("config_default", "Configuration file not found, using defaults", map[string]interface{}{
			"path": configPath,
		})
	}
	return a, nil
}

func openLogFile(dir, path string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func (a *app) Close() {
	a.log.Sync()
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// newBuilder wires the approval builder to the scans directory. With an
// index (flag, else publisher.index_path) the directory is synced into the
// bbolt index on every run and lookups go through the index.
func (a *app) newBuilder(indexPath string) (*approval.Builder, func(), error) {
	if indexPath == "" {
		indexPath = a.cfg.Publisher.IndexPath
	}
	opts := approval.Options{
		ScansDir:     a.cfg.System.ScansDir,
		ApprovalsDir: a.cfg.System.ApprovalsDir,
		MaxAge:       a.cfg.MaxScanAge(),
		Logger:       a.log,
	}
	closer := func() {}

	if indexPath != "" {
		source, err := scan.NewDirStore(a.cfg.System.ScansDir, a.log)
		if err != nil {
			return nil, nil, err
		}
		index, err := scan.OpenBoltStore(indexPath)
		if err != nil {
			return nil, nil, err
		}
		opts.Store = scan.NewIndexedStore(source, index)
		closer = func() { index.Close() }
	}

	builder, err := approval.NewBuilder(opts)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return builder, closer, nil
}

func newPublishCmd() *cobra.Command {
	var (
		packageList string
		output      string
		indexPath   string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Build the approved package list",
		Example: `  safeapt publish --package-list /tmp/snapshot-diff.txt
  safeapt publish --package-list new.txt --output approved-jammy.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			builder, closeStore, err := a.newBuilder(indexPath)
			if err != nil {
				return err
			}
			defer closeStore()

			keys, err := pkgkey.ReadListFile(packageList)
			if err != nil {
				return err
			}
			a.log.Info("publish_start", fmt.Sprintf("Processing %d packages", len(keys)), nil)

			result, err := builder.BuildApprovedList(keys, filepath.Base(output))
			if err != nil {
				return err
			}

			stats, err := builder.Stats()
			if err != nil {
				return err
			}
			logStats(a.log, stats)
			a.log.Info("publish_done", fmt.Sprintf("Approved packages written to: %s", result.OutputPath), nil)
			return nil
		},
	}

	cmd.Flags().StringVar(&packageList, "package-list", "", "File containing list of packages to check")
	cmd.Flags().StringVar(&output, "output", approval.DefaultOutputFile, "Output file name for approved packages (written to approvals_dir)")
	cmd.Flags().StringVar(&indexPath, "index", "", "Sync scans_dir into this bbolt index and resolve scans through it (default publisher.index_path)")
	cmd.MarkFlagRequired("package-list")

	return cmd
}

func newStatsCmd() *cobra.Command {
	var indexPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print statistics about recorded scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			builder, closeStore, err := a.newBuilder(indexPath)
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := builder.Stats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total scans: %d\n", stats.TotalScans)
			fmt.Fprintf(out, "Approved: %d\n", stats.Approved)
			fmt.Fprintf(out, "Blocked: %d\n", stats.Blocked)
			fmt.Fprintf(out, "Errors: %d\n", stats.Errors)
			fmt.Fprintf(out, "Fresh scans: %d\n", stats.FreshScans)
			return nil
		},
	}

	cmd.Flags().StringVar(&indexPath, "index", "", "Sync scans_dir into this bbolt index and resolve scans through it (default publisher.index_path)")
	return cmd
}

func newIndexCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Sync scan results from scans_dir into a bbolt index",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			if dbPath == "" {
				dbPath = a.cfg.Publisher.IndexPath
			}
			if dbPath == "" {
				return fmt.Errorf("no index path given (--db or publisher.index_path)")
			}

			dirStore, err := scan.NewDirStore(a.cfg.System.ScansDir, a.log)
			if err != nil {
				return err
			}
			records, err := dirStore.Records()
			if err != nil {
				return err
			}

			index, err := scan.OpenBoltStore(dbPath)
			if err != nil {
				return err
			}
			defer index.Close()

			n, err := index.Sync(records)
			if err != nil {
				return err
			}
			a.log.Info("index_updated", fmt.Sprintf("Indexed %d scan results", n), map[string]interface{}{
				"db":        dbPath,
				"scans_dir": dirStore.Dir(),
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Index database path (default publisher.index_path)")
	return cmd
}

func newPrintConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print-config",
		Short: "Print current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, defaultConfigYAML)
			if err != nil {
				return err
			}

			source := cfg.Source
			if source == "" {
				source = "[embedded default]"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", source)
			fmt.Fprintf(out, "Scans Dir: %s\n", cfg.System.ScansDir)
			fmt.Fprintf(out, "Approvals Dir: %s\n", cfg.System.ApprovalsDir)
			fmt.Fprintf(out, "Logs Dir: %s\n", cfg.System.LogsDir)
			fmt.Fprintf(out, "Max Scan Age: %s\n", cfg.MaxScanAge())
			fmt.Fprintf(out, "Index: %s\n", func() string {
				if cfg.Publisher.IndexPath != "" {
					return cfg.Publisher.IndexPath
				}
				return "[not set]"
			}())
			fmt.Fprintf(out, "Log Level: %s\n", func() string {
				if logLevel != "" {
					return logLevel + " (flag)"
				}
				return cfg.Logging.Level
			}())
			return nil
		},
	}
}

func logStats(log *logger.Logger, stats approval.Stats) {
	log.Info("scan_stats", fmt.Sprintf("Total scans: %d", stats.TotalScans), map[string]interface{}{
		"total_scans": stats.TotalScans,
		"approved":    stats.Approved,
		"blocked":     stats.Blocked,
		"errors":      stats.Errors,
		"fresh_scans": stats.FreshScans,
	})
}
