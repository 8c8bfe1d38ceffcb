package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"texforge/internal/export"
)

var (
	exportOutDir string
	exportBundle string
)

var exportCmd = &cobra.Command{
	Use:   "export [root]",
	Short: "Export consolidated materials as YAML manifests",
	Long: `Scan a texture tree and write the consolidated materials to disk as
YAML manifests, one file per material, or as a single gzip bundle.

Examples:
  # One manifest per material under ./manifests
  texforge export ./assets/textures --out ./manifests

  # Single compressed bundle
  texforge export ./assets/textures --bundle materials.yaml.gz`,
	Run: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOutDir, "out", "", "Directory for per-material manifests")
	exportCmd.Flags().StringVar(&exportBundle, "bundle", "", "Path for a single gzip bundle")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	if exportOutDir == "" && exportBundle == "" {
		fmt.Fprintln(os.Stderr, "export: one of --out or --bundle is required")
		os.Exit(1)
	}

	root, err := resolveRoot(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := loadConfig(root)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := newLogger(cfg, "human")

	eng, cat, err := newEngine(root, cfg, logger)
	if err != nil {
		logger.Error("engine init failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	if cat != nil {
		defer cat.Close()
	}

	out, err := eng.Scan(context.Background(), root)
	if err != nil {
		logger.Error("scan failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	if exportOutDir != "" {
		written, err := export.WriteDir(exportOutDir, out.Descriptors)
		if err != nil {
			logger.Error("export failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		fmt.Printf("Wrote %d manifests to %s\n", len(written), exportOutDir)
	}
	if exportBundle != "" {
		if err := export.WriteBundle(exportBundle, out.Descriptors); err != nil {
			logger.Error("export failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		fmt.Printf("Wrote bundle %s (%d materials)\n", exportBundle, len(out.Descriptors))
	}
}
