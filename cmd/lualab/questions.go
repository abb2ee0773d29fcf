package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kshou/lualab/internal/config"
	"github.com/kshou/lualab/internal/questions"
)

var (
	questionsWorkbook string
	questionsOut      string
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Fetch the exercise catalog and write the local snapshot",
	Long: `Fetch exercises from the configured sheet (or a local workbook) and
write them to the JSON snapshot the server falls back to when the sheet is
unreachable.

Examples:
  lualab questions
  lualab questions --workbook exercises.xlsx
  lualab questions --out questions.json`,
	RunE: runQuestions,
}

func init() {
	questionsCmd.Flags().StringVar(&questionsWorkbook, "workbook", "", "Read from a local .xlsx workbook instead of the sheet")
	questionsCmd.Flags().StringVar(&questionsOut, "out", "", "Snapshot path (overrides config)")
	rootCmd.AddCommand(questionsCmd)
}

func runQuestions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var src questions.Source
	switch {
	case questionsWorkbook != "":
		src = questions.NewWorkbookSource(questionsWorkbook)
	case cfg.Questions.SheetURL != "":
		src = questions.NewSheetSource(cfg.Questions.SheetURL)
	case cfg.Questions.WorkbookPath != "":
		src = questions.NewWorkbookSource(cfg.Questions.WorkbookPath)
	default:
		return fmt.Errorf("no question source configured")
	}

	snapshot := cfg.Questions.SnapshotPath
	if questionsOut != "" {
		snapshot = questionsOut
	}

	repo := questions.NewRepository(src, snapshot, cfg.Questions.CacheTTL)
	qs, err := repo.Refresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching questions: %w", err)
	}

	fmt.Printf("Fetched %d questions", len(qs))
	if snapshot != "" {
		fmt.Printf(", snapshot written to %s", snapshot)
	}
	fmt.Println()
	for _, q := range qs {
		fmt.Printf("  [%s] %s (%s)\n", q.ID, q.Title, q.Difficulty)
	}
	return nil
}
