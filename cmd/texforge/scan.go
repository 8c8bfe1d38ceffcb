package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"texforge/internal/material"
	"texforge/internal/report"
)

var (
	scanFormat string
)

var scanCmd = &cobra.Command{
	Use:   "scan [root]",
	Short: "Scan a texture tree and print consolidated materials",
	Long: `Scan a texture directory tree, resolve UDIM sequences, classify channel
roles, and print the consolidated material descriptors.

The first path component under the root is the mesh scope; materials never
merge across scopes. Results are cached by tree signature, so rescanning an
unchanged tree is cheap.

Examples:
  # Scan the current directory
  texforge scan

  # Scan a specific root, machine-readable
  texforge scan ./assets/textures -o json`,
	Run: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanFormat, "output", "o", "human", "Output format: json, human")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) {
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
	logger := newLogger(cfg, scanFormat)

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

	if scanFormat == "json" {
		if err := printJSON(out); err != nil {
			os.Exit(1)
		}
		return
	}
	printScanHuman(out.Root, out.FromCache, out.Descriptors, out.Diagnostics)
}

func printScanHuman(root string, cached bool, descs []*material.Descriptor, diags []report.Diagnostic) {
	source := "scanned"
	if cached {
		source = "cached"
	}
	fmt.Printf("Root: %s (%s)\n", root, source)
	fmt.Printf("Materials: %d\n\n", len(descs))

	scope := ""
	for _, d := range descs {
		if d.MeshScope != scope {
			scope = d.MeshScope
			fmt.Printf("%s/\n", scope)
		}
		fmt.Printf("  %s\n", d.Name)
		for _, role := range d.SortedRoles() {
			fmt.Printf("    %-13s %s\n", role, d.Channels[role].Location())
		}
	}

	if len(diags) > 0 {
		fmt.Printf("\nDiagnostics: %d\n", len(diags))
		for _, diag := range diags {
			fmt.Printf("  [%s] %s: %s", diag.Severity, diag.Code, diag.Message)
			if diag.File != "" {
				fmt.Printf(" (%s)", diag.File)
			}
			fmt.Println()
		}
	}
}
