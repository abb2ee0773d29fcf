package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kshou/lualab/internal/sandbox"
)

var checkCmd = &cobra.Command{
	Use:   "check <file.lua>",
	Short: "Validate a Lua file without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		code := string(source)
		if err := sandbox.CheckLimits(code, nil); err != nil {
			return err
		}

		validator := sandbox.NewValidator(sandbox.DefaultPolicy())
		if verdict := validator.Validate(code); !verdict.OK {
			return fmt.Errorf("rejected: %s", verdict.Reason)
		}

		fmt.Println("OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
