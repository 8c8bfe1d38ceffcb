package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"texforge/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [root]",
	Short: "Write a config template",
	Long: `Write a commented configuration template to .texforge/config.toml under
the project root. Existing config is left alone unless --force is given.`,
	Run: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	root, err := resolveRoot(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	path, err := config.WriteTemplate(root, initForce)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}
