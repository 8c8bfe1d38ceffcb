package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"texforge/internal/catalog"
	"texforge/internal/config"
)

var (
	runsLimit  int
	runsFormat string
)

var runsCmd = &cobra.Command{
	Use:   "runs [root]",
	Short: "Show recent build runs",
	Long:  `List recent build runs recorded in the catalog, newest first.`,
	Run:   runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "Maximum runs to show")
	runsCmd.Flags().StringVarP(&runsFormat, "output", "o", "human", "Output format: json, human")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) {
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
	logger := newLogger(cfg, runsFormat)

	cat, err := catalog.Open(config.FindProjectRoot(root), logger)
	if err != nil {
		logger.Error("catalog unavailable", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer cat.Close()

	runs, err := cat.RecentRuns(root, runsLimit)
	if err != nil {
		logger.Error("run lookup failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	if runsFormat == "json" {
		if err := printJSON(runs); err != nil {
			os.Exit(1)
		}
		return
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  created=%d skipped=%d warnings=%d errors=%d\n",
			r.Started.Format("2006-01-02 15:04:05"), r.ID,
			r.Created, r.Skipped, r.Warnings, r.Errors)
	}
}
