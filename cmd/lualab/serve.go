package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kshou/lualab/internal/advisor"
	"github.com/kshou/lualab/internal/config"
	"github.com/kshou/lualab/internal/keypool"
	"github.com/kshou/lualab/internal/questions"
	"github.com/kshou/lualab/internal/sandbox"
	"github.com/kshou/lualab/internal/server"
	"github.com/kshou/lualab/internal/storage"
	"github.com/kshou/lualab/internal/storage/sqlite"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the playground web server",
	Long: `Start the playground HTTP server with REST API and WebSocket support.

The playground page is served at the root URL. API endpoints are under /api.

Examples:
  lualab serve
  lualab serve --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Open storage
	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	// Question repository: prefer the published sheet, fall back to a
	// local workbook.
	var repo *questions.Repository
	switch {
	case cfg.Questions.SheetURL != "":
		src := questions.NewSheetSource(cfg.Questions.SheetURL)
		repo = questions.NewRepository(src, cfg.Questions.SnapshotPath, cfg.Questions.CacheTTL)
	case cfg.Questions.WorkbookPath != "":
		src := questions.NewWorkbookSource(cfg.Questions.WorkbookPath)
		repo = questions.NewRepository(src, cfg.Questions.SnapshotPath, cfg.Questions.CacheTTL)
	default:
		log.Println("Questions: no source configured, endpoints disabled")
	}

	// AI advisor
	var adv *advisor.Advisor
	if len(cfg.AI.APIKeys) > 0 {
		prompts, err := loadPrompts(cfg.AI.PromptsPath)
		if err != nil {
			return err
		}
		pool := keypool.New(cfg.AI.APIKeys)
		adv = advisor.New(pool, cfg.AI.BaseURL, cfg.AI.Model, prompts)
		log.Printf("AI: %s via %s (%d keys)", cfg.AI.Model, cfg.AI.BaseURL, pool.Len())
	} else {
		log.Println("AI: no API keys configured, endpoints disabled")
	}

	// Score sheet mirror
	var sheet *storage.WebAppClient
	if cfg.Storage.WebAppURL != "" {
		sheet = storage.NewWebAppClient(cfg.Storage.WebAppURL)
	}

	// Determine port
	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	runner := sandbox.NewRunner(sandbox.DefaultPolicy(), cfg.Sandbox.Timeout)
	srv := server.New(cfg, runner, repo, adv, store, sheet)

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		srv.Shutdown(context.Background())
	}()

	return srv.Start(port)
}

func loadPrompts(path string) (*advisor.Prompts, error) {
	if path == "" {
		return advisor.DefaultPrompts(), nil
	}
	prompts, err := advisor.LoadPrompts(path)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}
	return prompts, nil
}
