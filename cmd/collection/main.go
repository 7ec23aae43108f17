package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jaragunde/picture-collection-tools/internal/aggregate"
	"github.com/jaragunde/picture-collection-tools/internal/app"
	"github.com/jaragunde/picture-collection-tools/internal/catalog"
	"github.com/jaragunde/picture-collection-tools/internal/config"
	"github.com/jaragunde/picture-collection-tools/internal/dateparse"
	"github.com/jaragunde/picture-collection-tools/internal/logger"
	"github.com/jaragunde/picture-collection-tools/internal/mediatypes"
	"github.com/jaragunde/picture-collection-tools/internal/metrics"
	"github.com/jaragunde/picture-collection-tools/internal/output"
	"github.com/jaragunde/picture-collection-tools/internal/web"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
	port    int

	groupBy    string
	dateBefore string
	dateAfter  string
	splitByDir bool
	renderer   string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "collection",
	Short: "Index a picture collection and chart its growth",
	Long: `collection keeps a catalog of the photos and videos under a directory
in a SQLite file (.collection.db) and derives size analytics from it.

Features:
- Incremental indexing: new files are added, changed files updated,
  deleted files removed
- Capture dates from EXIF (images) and ffprobe or exiftool (videos)
- Monthly or yearly growth charts, optionally split by subdirectory
- Date range filters
- Web API with live scan progress and Prometheus metrics`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// indexCmd reconciles the catalog of a directory.
var indexCmd = &cobra.Command{
	Use:   "index <directory>",
	Short: "Index media files and store their metadata in the collection database",
	Long: `Walks the directory recursively, records path, size and capture date of
every image and video in <directory>/.collection.db and removes entries for
files that no longer exist. Re-running the command brings the catalog up to
date with the filesystem.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

// plotCmd charts the collection size over time.
var plotCmd = &cobra.Command{
	Use:   "plot <directory>",
	Short: "Generate charts of picture collection growth over time",
	Long: `Reads <directory>/.collection.db and writes collection_growth.png
(cumulative size) and collection_monthly_size.png (size per period) into
<directory>. With --renderer text, or when the charts cannot be drawn, the
values are printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		opts := plotOptions{
			GroupBy:    cfg.Analytics.GroupBy,
			DateBefore: dateBefore,
			DateAfter:  dateAfter,
			SplitByDir: cfg.Analytics.SplitByDir,
			Renderer:   cfg.Analytics.Renderer,
		}
		if cmd.Flags().Changed("group-by") {
			opts.GroupBy = groupBy
		}
		if cmd.Flags().Changed("split-by-dir") {
			opts.SplitByDir = splitByDir
		}
		if cmd.Flags().Changed("renderer") {
			opts.Renderer = renderer
		}
		return runPlot(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], opts)
	},
}

// inspectCmd shows what the indexer would record for one file.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the media kind and capture date extracted from a file",
	Long: `Classifies the file, runs the metadata extractor for its kind and shows
the raw capture date and how it parses. This is useful for debugging files
that end up without a date.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runInspect(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
	},
}

// serveCmd starts the web API server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web API server",
	Long: `Starts an HTTP server exposing:
- POST /api/scan     start indexing a directory
- GET  /api/status   scan state and last statistics
- GET  /api/series   aggregated size series as JSON
- GET  /ws           live scan events
- GET  /metrics      Prometheus metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	cobra.OnInitialize(metrics.Init)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	plotCmd.Flags().StringVar(&groupBy, "group-by", "month", "group pictures by 'month' or 'year'")
	plotCmd.Flags().StringVar(&dateBefore, "date-before", "", "only include pictures taken before this date (YYYY-MM-DD)")
	plotCmd.Flags().StringVar(&dateAfter, "date-after", "", "only include pictures taken after this date (YYYY-MM-DD)")
	plotCmd.Flags().BoolVar(&splitByDir, "split-by-dir", false, "stack bars by subdirectory")
	plotCmd.Flags().StringVar(&renderer, "renderer", "png", "output renderer: 'png' or 'text'")

	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run web server on")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
}

// runIndex validates dir and reconciles its catalog.
func runIndex(ctx context.Context, out io.Writer, dir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root, err := config.ResolveRoot(dir)
	if err != nil {
		return err
	}

	log := setupLogger(cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := app.Index(ctx, cfg, log, root, nil)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if !quiet {
		fmt.Fprintln(out, "\n"+stats.GetSummary())
		if stats.ErrorCount() > 0 {
			fmt.Fprintln(out, stats.GetErrorSummary())
		}
	}
	return nil
}

type plotOptions struct {
	GroupBy    string
	DateBefore string
	DateAfter  string
	SplitByDir bool
	Renderer   string
}

// runPlot aggregates the catalog of dir and emits charts or text.
func runPlot(ctx context.Context, out io.Writer, cfg *config.Config, dir string, opts plotOptions) error {
	group, err := aggregate.ParseGroupBy(opts.GroupBy)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrValidation, err)
	}
	before, err := config.ParseDateFilter("date-before", opts.DateBefore)
	if err != nil {
		return err
	}
	after, err := config.ParseDateFilter("date-after", opts.DateAfter)
	if err != nil {
		return err
	}
	if err := config.ValidateRenderer(opts.Renderer); err != nil {
		return err
	}
	root, err := config.ResolveRoot(dir)
	if err != nil {
		return err
	}

	log := setupLogger(cfg)

	series, err := app.LoadSeries(ctx, root, aggregate.Options{
		GroupBy:    group,
		Before:     before,
		After:      after,
		SplitByDir: opts.SplitByDir,
	})
	if errors.Is(err, catalog.ErrCatalogNotFound) {
		return fmt.Errorf("database file not found at %s: %w", catalog.PathFor(root), err)
	}
	if err != nil {
		return err
	}

	if series.Empty() {
		switch {
		case series.Undated == 0 && series.Filtered == 0:
			fmt.Fprintln(out, "No pictures with date information found in the database.")
		case series.Filtered == 0:
			fmt.Fprintln(out, "Could not parse any dates.")
		default:
			fmt.Fprintln(out, "No pictures found in the selected date range.")
		}
		return nil
	}

	var chartRenderer output.Renderer
	if opts.Renderer == "png" {
		chartRenderer = output.NewPNGRenderer()
	}

	paths, err := output.NewSink(chartRenderer, root, out, log).Emit(series)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	for _, p := range paths {
		fmt.Fprintf(out, "Chart saved to: %s\n", p)
	}
	return nil
}

// runInspect prints the classification and extracted date for filePath.
func runInspect(ctx context.Context, out io.Writer, cfg *config.Config, filePath string) error {
	if !fileExists(filePath) {
		return fmt.Errorf("%w: file does not exist: %s", config.ErrValidation, filePath)
	}

	log := setupLogger(cfg)

	kind := cfg.Classifier().Classify(filePath)
	fmt.Fprintf(out, "File: %s\n", filePath)
	fmt.Fprintf(out, "Kind: %s\n", kind)
	if kind == mediatypes.KindIgnored {
		fmt.Fprintln(out, "Not a recognised media file, it would not be indexed")
		return nil
	}

	extractors, release := app.NewExtractors(cfg, log)
	defer release()

	date, ok := extractors.For(kind).Extract(ctx, filePath)
	if !ok {
		fmt.Fprintln(out, "No date found in metadata")
		return nil
	}
	fmt.Fprintf(out, "Raw date: %s\n", date)

	t, ok := dateparse.Parse(date)
	if !ok {
		fmt.Fprintln(out, "Parsed date: none (excluded from charts)")
		return nil
	}
	fmt.Fprintf(out, "Parsed date: %s\n", t.Format("2006-01-02 15:04:05"))
	return nil
}

// runServe starts the web server and handles graceful shutdown.
func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}

	log := setupLogger(cfg)
	server := web.NewServer(cfg, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	fmt.Printf("Collection API listening on http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("Press Ctrl+C to stop the server\n\n")

	select {
	case <-sigChan:
	case err := <-errChan:
		return fmt.Errorf("server failed to start: %w", err)
	}
	fmt.Println("\nShutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	fmt.Println("Server stopped gracefully")
	return nil
}

// loadConfig loads the configuration file named by --config, or the default
// search path.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// setupLogger configures and returns a logger. Logs go to stderr so that
// printed data stays on stdout.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := logger.LoggerConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    !quiet,
		Output:     os.Stderr,
	}

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// fileExists returns true if the given path exists and is a file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
