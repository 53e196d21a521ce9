package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mgaultier/dumpstats/internal/catalog"
	"github.com/mgaultier/dumpstats/internal/config"
	"github.com/mgaultier/dumpstats/internal/pipeline"
	"github.com/mgaultier/dumpstats/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\ninterrupted")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "dumpstats",
	Short:         "Process data.gouv.fr traffic dumps into static JSON stats",
	Long:          "dumpstats streams the visits and downloads TSV dumps, aggregates monthly traffic per dataset, and generates the JSON files behind the stats site.",
	Version:       version,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dumpstats", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/dumpstats/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point at the dump files and output directory.")
		return nil
	},
}

// --- run command ---

var (
	dryRun       bool
	limitMode    bool
	skipMetadata bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the dumps: aggregate -> merge -> rank -> metadata -> write JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache()
		if err != nil {
			return err
		}
		defer cache.Close()

		fmt.Printf("Processing dumps (mode: %s)\n", runMode())

		pipe := pipeline.New(cfg, cache)
		result := pipe.Run(cmd.Context(), pipeline.Options{
			DryRun:       dryRun,
			Limit:        limitMode,
			SkipMetadata: skipMetadata,
			Verbose:      verbose,
		})

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		for _, step := range result.Steps {
			if step.Err != nil {
				return fmt.Errorf("%s: %w", step.Name, step.Err)
			}
		}

		if dryRun {
			fmt.Println("\nDry run: no files were written.")
		} else {
			fmt.Printf("\nDone in %.1fs. Files in %s\n", result.Report.DurationSecs, cfg.Output.DataDir)
		}
		return nil
	},
}

func runMode() string {
	mode := "production"
	if dryRun {
		mode = "dry-run"
	}
	if limitMode {
		mode += ", limited working set"
	}
	if skipMetadata {
		mode += ", placeholder metadata"
	}
	return mode
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Execute the pipeline without writing files")
	runCmd.Flags().BoolVar(&limitMode, "limit", false, "Only process the top datasets by total visits (fast iteration)")
	runCmd.Flags().BoolVar(&skipMetadata, "skip-metadata", false, "Use placeholder metadata, no API calls")
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show metadata cache and last-run info",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache()
		if err != nil {
			return err
		}
		defer cache.Close()

		cached, err := cache.Count()
		if err != nil {
			return fmt.Errorf("reading cache: %w", err)
		}

		fmt.Printf("Cache: %s\n", cache.Path())
		fmt.Printf("  Cached dataset metadata: %d\n", cached)

		last, err := cache.LastRun()
		if err != nil {
			return fmt.Errorf("reading run reports: %w", err)
		}
		if last == nil {
			fmt.Println("\nNo runs recorded yet.")
			return nil
		}

		fmt.Printf("\nLast run: %s", last.RanAt)
		if last.DryRun {
			fmt.Print(" (dry-run)")
		}
		fmt.Println()
		fmt.Printf("  Visit rows: %d (%d errors)\n", last.VisitRows, last.VisitErrors)
		fmt.Printf("  Download rows: %d (%d errors)\n", last.DownloadRows, last.DownloadErrors)
		fmt.Printf("  Datasets: %d (%d ranked)\n", last.Datasets, last.RankedDatasets)
		fmt.Printf("  Duration: %.1fs\n", last.DurationSecs)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generated JSON files locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Serving %s at http://localhost:%d\n", cfg.Output.DataDir, port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cmd.Context(), cfg.Output.DataDir, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to serve on (default from config)")
}

func openCache() (*catalog.Cache, error) {
	path := filepath.Join(config.CacheDir(), "dumpstats.db")
	return catalog.OpenCache(path, cfg.CacheTTL())
}
