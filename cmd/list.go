package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/vsdcard/internal/catalog"
	"github.com/zjrosen/vsdcard/internal/presentation"
)

var (
	listRecursive bool
	listJSON      bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the files on the card",
	Long: `List the files at the top level of the card, sorted case-insensitively.

With --recursive every subdirectory is searched and only G-code files
(.gcode, .g, .gco) are shown.

Examples:
  vsdcard list
  vsdcard list -r
  vsdcard list --json | jq '.[].path'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		entries, err := catalog.New(cfg.SDCard.Path).List(listRecursive)
		if err != nil {
			return fmt.Errorf("listing card: %w", err)
		}
		return presentation.NewFormatter(cmd.OutOrStdout(), listJSON).FormatFiles(presentation.FromEntries(entries))
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listRecursive, "recursive", "r", false, "include subdirectories")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output JSON")
	rootCmd.AddCommand(listCmd)
}
