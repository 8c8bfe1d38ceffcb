package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"texforge/internal/backend"
	"texforge/internal/graph"
	"texforge/internal/report"
)

var (
	buildPolicy string
	buildOutDir string
	buildFormat string
	buildGroup  bool
	buildDetach bool
)

var buildCmd = &cobra.Command{
	Use:   "build [root]",
	Short: "Scan and assemble materials against a scene backend",
	Long: `Scan a texture tree and materialize one shading graph per consolidated
material. Nodes are written to a manifest backend: one YAML scene file per
mesh scope under the output directory.

When a same-named material already exists in a scope, the --policy flag
decides what happens:
  skip       - keep the existing material (default)
  overwrite  - remove it and rebuild
  rename     - create under the first free name_1..name_N

Examples:
  # Build into ./scenes with the default skip policy
  texforge build ./assets/textures --out ./scenes

  # Rebuild everything
  texforge build ./assets/textures --out ./scenes --policy overwrite`,
	Run: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildPolicy, "policy", "skip", "Existing-material policy: skip, overwrite, rename")
	buildCmd.Flags().StringVar(&buildOutDir, "out", "scenes", "Output directory for scene manifests")
	buildCmd.Flags().StringVarP(&buildFormat, "output", "o", "human", "Report format: json, human")
	buildCmd.Flags().BoolVar(&buildGroup, "group", false, "Create a folder node per material")
	buildCmd.Flags().BoolVar(&buildDetach, "async", false, "Run the batch on a background worker")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) {
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
	if buildGroup {
		cfg.Assembler.GroupPerMaterial = true
	}
	policy, err := graph.ParsePolicy(buildPolicy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg, buildFormat)
	eng, cat, err := newEngine(root, cfg, logger)
	if err != nil {
		logger.Error("engine init failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	if cat != nil {
		defer cat.Close()
	}

	sg := backend.NewManifest(buildOutDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rep *report.BatchReport
	if buildDetach {
		rep = <-eng.MaterializeAsync(ctx, root, sg, policy)
	} else {
		rep, err = eng.Materialize(ctx, root, sg, policy)
		if err != nil {
			logger.Error("build failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}

	if err := sg.Flush(); err != nil {
		logger.Error("scene manifest write failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	if buildFormat == "json" {
		if err := printJSON(rep); err != nil {
			os.Exit(1)
		}
	} else {
		printReportHuman(rep)
	}
	if len(rep.Errors()) > 0 {
		os.Exit(1)
	}
}

func printReportHuman(rep *report.BatchReport) {
	fmt.Printf("Run %s on %s\n", rep.RunID, rep.Root)
	fmt.Printf("  created: %d  skipped: %d  renamed: %d\n", len(rep.Created), len(rep.Skipped), len(rep.Renamed))
	for _, d := range rep.Diagnostics {
		fmt.Printf("  [%s] %s: %s", d.Severity, d.Code, d.Message)
		if d.Material != "" {
			fmt.Printf(" (material %s", d.Material)
			if d.Scope != "" {
				fmt.Printf(", scope %s", d.Scope)
			}
			fmt.Print(")")
		} else if d.File != "" {
			fmt.Printf(" (%s)", d.File)
		}
		fmt.Println()
	}
}
