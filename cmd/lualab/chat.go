package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/kshou/lualab/internal/advisor"
	"github.com/kshou/lualab/internal/config"
	"github.com/kshou/lualab/internal/keypool"
	"github.com/kshou/lualab/internal/questions"
)

var (
	chatCodeFile string
	chatQuestion string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive tutoring chat",
	Long: `Start an interactive conversation with the Lua tutor. The tutor
answers questions and gives hints without writing full solutions.

Pass --code to let the tutor see your current attempt, and --question to
give it the exercise you are working on.

Examples:
  lualab chat
  lualab chat --code solution.lua
  lualab chat --code solution.lua --question 3`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatCodeFile, "code", "", "Lua file to discuss")
	chatCmd.Flags().StringVar(&chatQuestion, "question", "", "Exercise ID for context")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(cfg.AI.APIKeys) == 0 {
		return fmt.Errorf("no AI API keys configured")
	}

	prompts, err := loadPrompts(cfg.AI.PromptsPath)
	if err != nil {
		return err
	}
	adv := advisor.New(keypool.New(cfg.AI.APIKeys), cfg.AI.BaseURL, cfg.AI.Model, prompts)

	sub := advisor.Submission{}
	if chatCodeFile != "" {
		source, err := os.ReadFile(chatCodeFile)
		if err != nil {
			return fmt.Errorf("reading code file: %w", err)
		}
		sub.Code = string(source)
	}
	if chatQuestion != "" {
		question, err := resolveQuestion(cmd.Context(), cfg, chatQuestion)
		if err != nil {
			return err
		}
		sub.Question = question
	}

	fmt.Printf("lualab - Lua tutoring chat\n")
	fmt.Printf("Model: %s\n", cfg.AI.Model)
	fmt.Printf("Type /help for commands, /quit to exit\n\n")

	// Set up readline for input with history
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36myou>\033[0m ",
		HistoryFile:     "/tmp/lualab_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	// Per-request cancellation: Ctrl+C cancels the active request, not the
	// whole app. A second Ctrl+C while idle exits.
	var reqCancel context.CancelFunc
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range sigCh {
			if reqCancel != nil {
				reqCancel()
			}
		}
	}()

	var history []advisor.ChatMessage
	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		// Handle slash commands
		if strings.HasPrefix(input, "/") {
			switch strings.ToLower(strings.Fields(input)[0]) {
			case "/quit", "/exit", "/q":
				fmt.Println("Goodbye!")
				return nil
			case "/reset":
				history = nil
				fmt.Println("Conversation reset.")
				fmt.Println()
			case "/help":
				fmt.Println("Commands:")
				fmt.Println("  /help   - Show this help")
				fmt.Println("  /reset  - Clear conversation history")
				fmt.Println("  /quit   - Exit")
				fmt.Println()
			default:
				fmt.Printf("Unknown command: %s (try /help)\n\n", input)
			}
			continue
		}

		history = append(history, advisor.ChatMessage{Role: "user", Content: input})

		// Create a per-request context so Ctrl+C only cancels this request
		reqCtx, cancel := context.WithCancel(context.Background())
		reqCancel = cancel

		fmt.Printf("\n\033[32mtutor>\033[0m ")
		var reply strings.Builder
		err = adv.ChatStream(reqCtx, sub, history, func(delta string) {
			reply.WriteString(delta)
			fmt.Print(delta)
		})
		wasInterrupted := reqCtx.Err() != nil
		cancel()
		reqCancel = nil

		if err != nil {
			// Drop the failed turn so a retry doesn't double it.
			history = history[:len(history)-1]
			if wasInterrupted {
				fmt.Println("\n(interrupted)")
				continue
			}
			fmt.Printf("\n\033[31merror: %s\033[0m\n\n", err)
			continue
		}

		history = append(history, advisor.ChatMessage{Role: "assistant", Content: reply.String()})
		fmt.Printf("\n\n")
	}
}

// resolveQuestion looks the exercise up through the configured source so the
// tutor sees its full text, not just the ID.
func resolveQuestion(ctx context.Context, cfg *config.Config, id string) (string, error) {
	var src questions.Source
	switch {
	case cfg.Questions.SheetURL != "":
		src = questions.NewSheetSource(cfg.Questions.SheetURL)
	case cfg.Questions.WorkbookPath != "":
		src = questions.NewWorkbookSource(cfg.Questions.WorkbookPath)
	default:
		return "", fmt.Errorf("no question source configured")
	}

	repo := questions.NewRepository(src, cfg.Questions.SnapshotPath, cfg.Questions.CacheTTL)
	q, err := repo.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("looking up question %s: %w", id, err)
	}
	return q.Title + "\n" + q.Description, nil
}
