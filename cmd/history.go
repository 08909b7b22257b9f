package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/vsdcard/internal/catalog"
	"github.com/zjrosen/vsdcard/internal/flags"
	"github.com/zjrosen/vsdcard/internal/history"
	"github.com/zjrosen/vsdcard/internal/presentation"
)

var (
	historyCard  string
	historyState string
	historyLimit int
	historyJSON  bool
	historyClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded print jobs",
	Long: `Show print jobs recorded in the history database, newest first.

Examples:
  vsdcard history
  vsdcard history --state error --limit 5
  vsdcard history --card sdcard --clear`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyCard, "card", "", "only jobs for this card")
	historyCmd.Flags().StringVar(&historyState, "state", "", "only jobs in this state (in_progress, paused, completed, error, cancelled)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum jobs to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output JSON")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete the jobs of --card")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if !flags.New(cfg.Flags).Enabled(flags.FlagJobHistory) {
		return fmt.Errorf("job history is disabled (flags.%s)", flags.FlagJobHistory)
	}
	db, err := history.NewDB(catalog.ExpandPath(cfg.History.Path))
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer func() { _ = db.Close() }()
	repo := db.Jobs()

	if historyClear {
		if historyCard == "" {
			return fmt.Errorf("--clear needs --card")
		}
		if err := repo.DeleteAll(historyCard); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared history for %s\n", historyCard)
		return nil
	}

	jobs, err := repo.List(history.ListFilter{
		Card:  historyCard,
		State: history.JobState(historyState),
		Limit: historyLimit,
	})
	if err != nil {
		return err
	}
	return presentation.NewFormatter(cmd.OutOrStdout(), historyJSON).FormatJobs(presentation.FromJobs(jobs))
}
