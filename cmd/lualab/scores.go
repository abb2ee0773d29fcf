package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kshou/lualab/internal/config"
	"github.com/kshou/lualab/internal/storage"
	"github.com/kshou/lualab/internal/storage/sqlite"
)

var scoresFormat string

var scoresCmd = &cobra.Command{
	Use:   "scores <student>",
	Short: "List a student's recorded scores",
	Long: `List the scores stored for one student, newest first.

Examples:
  lualab scores alice
  lualab scores alice --format csv > alice.csv
  lualab scores alice --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runScores,
}

func init() {
	scoresCmd.Flags().StringVar(&scoresFormat, "format", "table", "Output format: table, csv, json")
	rootCmd.AddCommand(scoresCmd)
}

func runScores(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	student := args[0]
	scores, err := store.StudentScores(cmd.Context(), student)
	if err != nil {
		return fmt.Errorf("loading scores: %w", err)
	}

	switch scoresFormat {
	case "csv":
		data, err := storage.ExportCSV(scores)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
	case "json":
		data, err := storage.ExportJSON(student, scores)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		fmt.Println()
	default:
		if len(scores) == 0 {
			fmt.Printf("No scores recorded for %s\n", student)
			return nil
		}
		fmt.Printf("Scores for %s:\n", student)
		for _, s := range scores {
			fmt.Printf("  [%s] %-30s %3d  (%s)\n",
				s.QuestionID, s.QuestionTitle, s.Overall,
				s.UpdatedAt.Format("2006-01-02 15:04"))
		}
	}
	return nil
}
