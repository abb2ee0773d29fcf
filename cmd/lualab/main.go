package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lualab",
	Short: "lualab - Lua learning playground",
	Long: `lualab serves a sandboxed Lua playground for programming classes.

Students run small Lua programs against a restricted interpreter, fetch
exercises from the course sheet, and get AI-assisted feedback and scoring.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
