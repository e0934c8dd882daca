package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"mh-asset-tools/internal/batch"
	"mh-asset-tools/internal/config"
	"mh-asset-tools/internal/logging"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config file (.json, .yaml)")
	testN := flag.Int("test", 0, "Convert only first N files for testing")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	inputDir := flag.String("input", "", "Directory to scan (default: .)")
	outputDir := flag.String("output", "", "Output directory (default: <input>/converted)")
	format := flag.String("format", "", "Image format: png, webp, tga, bmp, tiff (default: png)")
	maxCommands := flag.Int("max-commands", 0, "Command limit per geometry stream (default: 65536)")
	logLevel := flag.String("log", "", "Log level: debug, info, warn, error (default: warn)")
	arcKey := flag.String("key", "", "Blowfish key for encrypted ARCC archives")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		InputDir:    *inputDir,
		OutputDir:   *outputDir,
		Format:      *format,
		Workers:     *workers,
		MaxCommands: *maxCommands,
		LogLevel:    *logLevel,
		ArcKey:      *arcKey,
	})

	imgFormat, err := cfg.Format()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logging.ParseLevel(cfg.LogLevel),
	})))

	jobs, err := batch.Discover(cfg.InputDir, cfg.OutputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", cfg.InputDir, err)
		os.Exit(1)
	}

	// Limit for testing
	if *testN > 0 && *testN < len(jobs) {
		jobs = jobs[:*testN]
	}

	if len(jobs) == 0 {
		fmt.Println("No files to convert.")
		os.Exit(0)
	}

	// Print summary
	fmt.Printf("Files: %d, Workers: %d, Images: %s\n", len(jobs), cfg.Workers, imgFormat)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	// Run batch
	batchCfg := batch.Config{
		OutputDir:      cfg.OutputDir,
		Format:         imgFormat,
		MaxTextureSize: cfg.MaxTextureSize,
		FlipTextures:   cfg.FlipTextures,
		MaxCommands:    cfg.MaxCommands,
		Workers:        cfg.Workers,
		ArcKey:         []byte(cfg.ArcKey),
		ProgressBar:    term.IsTerminal(int(os.Stderr.Fd())),
		Log:            os.Stdout,
	}

	results := batch.Run(batchCfg, jobs)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	summary := batch.Summarize(results)
	fmt.Printf("Converted: %d/%d", summary.Succeeded, summary.Files)
	if summary.Skipped > 0 {
		fmt.Printf(" (%d parts skipped)", summary.Skipped)
	}
	fmt.Println()

	if summary.Failed > 0 {
		fmt.Printf("\nFailed (%d):\n", summary.Failed)
		shown := 0
		for _, r := range results {
			if r.Success {
				continue
			}
			if shown == 20 {
				fmt.Printf("  ... and %d more\n", summary.Failed-shown)
				break
			}
			fmt.Printf("  %s: %s\n", r.Source, r.Error)
			shown++
		}
	}

	// Write manifest
	manifestPath := cfg.Manifest
	if manifestPath == "" {
		manifestPath = filepath.Join(cfg.OutputDir, "manifest.json")
	}
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if summary.Failed > 0 {
		os.Exit(1)
	}
}
