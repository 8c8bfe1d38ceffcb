package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"texforge/internal/catalog"
	"texforge/internal/config"
	"texforge/internal/engine"
	"texforge/internal/logging"
	"texforge/internal/version"
)

var (
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
	// noCatalogFlag disables the persistent catalog under .texforge/
	noCatalogFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "texforge",
	Short: "texforge - texture set resolution and material assembly",
	Long: `texforge scans texture directories, resolves UDIM tile sequences,
classifies channel roles from filenames, consolidates texture sets into
material descriptors, and assembles shading graphs against a scene backend.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("texforge version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().BoolVar(&noCatalogFlag, "no-catalog", false,
		"Disable the persistent scan cache and run history")
}

// resolveRoot turns the optional positional root argument into an absolute
// path, defaulting to the working directory.
func resolveRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("cannot resolve root %q: %w", root, err)
	}
	return abs, nil
}

// loadConfig loads configuration for root, walking up to a project root
// when one exists.
func loadConfig(root string) (*config.Config, error) {
	cfg, err := config.LoadConfig(config.FindProjectRoot(root))
	if err != nil {
		return nil, err
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	return cfg, nil
}

// newLogger builds the command logger. Human format goes to stderr so
// stdout stays parseable; json output gets a json logger.
func newLogger(cfg *config.Config, format string) *logging.Logger {
	lf := logging.Format(cfg.Logging.Format)
	if format == "json" {
		lf = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: lf,
		Level:  logging.LogLevel(cfg.Logging.Level),
		Output: os.Stderr,
	})
}

// newEngine wires an engine with the catalog unless disabled.
func newEngine(root string, cfg *config.Config, logger *logging.Logger) (*engine.Engine, *catalog.Catalog, error) {
	var opts []engine.Option
	var cat *catalog.Catalog
	if !noCatalogFlag {
		var err error
		cat, err = catalog.Open(config.FindProjectRoot(root), logger)
		if err != nil {
			logger.Warn("catalog unavailable, continuing without persistence", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			opts = append(opts, engine.WithCatalog(cat))
		}
	}
	eng, err := engine.New(cfg, logger, opts...)
	if err != nil {
		if cat != nil {
			cat.Close()
		}
		return nil, nil, err
	}
	return eng, cat, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
