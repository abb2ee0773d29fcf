package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kshou/lualab/internal/sandbox"
)

var (
	runInputs  []string
	runTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <file.lua>",
	Short: "Run a Lua file inside the sandbox",
	Long: `Validate and run a local Lua file under the same restrictions the
playground applies: the capability allowlist, the wall-clock timeout, and the
output cap.

Examples:
  lualab run solution.lua
  lualab run solution.lua --input alice --input 42
  lualab run solution.lua --timeout 10s`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVar(&runInputs, "input", nil, "Simulated input line (repeatable)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", sandbox.DefaultTimeout, "Execution timeout")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	code := string(source)
	if err := sandbox.CheckLimits(code, runInputs); err != nil {
		return err
	}

	validator := sandbox.NewValidator(sandbox.DefaultPolicy())
	if verdict := validator.Validate(code); !verdict.OK {
		return fmt.Errorf("rejected: %s", verdict.Reason)
	}

	runner := sandbox.NewRunner(sandbox.DefaultPolicy(), runTimeout)
	result := runner.Run(cmd.Context(), code, runInputs)

	fmt.Print(result.Output)
	if result.Output != "" && result.Output[len(result.Output)-1] != '\n' {
		fmt.Println()
	}
	if result.TimedOut {
		return fmt.Errorf("%s", result.Err)
	}
	if result.Err != "" {
		return fmt.Errorf("runtime error: %s", result.Err)
	}
	return nil
}
