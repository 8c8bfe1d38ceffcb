package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [root]",
	Short: "Clear the scan cache",
	Long: `Clear the whole scan cache, both in memory and in the catalog. The next
scan rebuilds from the filesystem. There is no partial invalidation.`,
	Run: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) {
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

	if err := eng.Refresh(); err != nil {
		logger.Error("refresh failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	fmt.Println("Scan cache cleared")
}
