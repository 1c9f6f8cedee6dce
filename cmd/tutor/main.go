// Command tutor runs the language tutor, either as an HTTP server
// ("tutor serve") or as an interactive terminal session ("tutor chat").
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rafalkola/language-ai-bot/agent"
	"github.com/rafalkola/language-ai-bot/config"
	"github.com/rafalkola/language-ai-bot/core"
	"github.com/rafalkola/language-ai-bot/memory"
	mockembed "github.com/rafalkola/language-ai-bot/memory/embedder/mock"
	openaiembed "github.com/rafalkola/language-ai-bot/memory/embedder/openai"
	"github.com/rafalkola/language-ai-bot/memory/store"
	"github.com/rafalkola/language-ai-bot/profile"
	"github.com/rafalkola/language-ai-bot/prompt"
	"github.com/rafalkola/language-ai-bot/server"
	"github.com/rafalkola/language-ai-bot/session"
)

func main() {
	root := &cobra.Command{
		Use:   "tutor",
		Short: "AI language tutor with long-term memory",
	}
	root.AddCommand(serveCmd(), chatCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired components and their cleanup.
type app struct {
	cfg      *config.Config
	deps     session.Deps
	memories *memory.Service
	store    memory.Store
	profiles *profile.Store
}

func (a *app) close() {
	a.memories.Close()
	if err := a.store.Close(); err != nil {
		log.Printf("[MAIN] Error closing store: %v", err)
	}
}

// buildApp wires the full dependency graph from configuration. Everything
// is passed explicitly; nothing here is a package-level singleton.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var embedder memory.Embedder
	if cfg.OpenAIAPIKey != "" {
		embedder = openaiembed.New(openaiembed.Config{APIKey: cfg.OpenAIAPIKey})
	} else {
		log.Printf("[MAIN] OPENAI_API_KEY not set, using deterministic local embedder")
		embedder = mockembed.New(openaiembed.Dimensions)
	}

	st := store.Open(ctx, store.Config{
		PostgresDSN: cfg.PostgresDSN,
		Namespace:   cfg.Namespace,
		Dimensions:  embedder.Dimensions(),
	})

	memories := memory.NewService(st, embedder, &memory.Config{TopK: cfg.MemoryTopK})

	profiles, err := profile.NewStore(cfg.ProfileDir)
	if err != nil {
		return nil, err
	}

	completer := agent.NewAnthropicCompleter(agent.AnthropicConfig{
		APIKey: cfg.AnthropicAPIKey,
		Model:  cfg.ChatModel,
	})

	return &app{
		cfg:      cfg,
		memories: memories,
		store:    st,
		profiles: profiles,
		deps: session.Deps{
			Agent:    agent.New(completer, memories),
			Composer: prompt.NewComposer(memories),
			Memories: memories,
			Profiles: profiles,
		},
	}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			srv := server.New(a.deps, a.memories, a.profiles)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(a.cfg.ListenAddr)
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				log.Printf("[MAIN] Received %v, shutting down", sig)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
}

func chatCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run an interactive tutoring session in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			return runChat(ctx, session.New(userID, a.deps))
		},
	}
	cmd.Flags().StringVar(&userID, "user", "default_user", "user id for memory and profile scoping")
	return cmd
}

// runChat drives one terminal session: language and level selection, mode
// selection, then a chat loop with /end, /reset and /quit commands.
func runChat(ctx context.Context, sess *session.Session) error {
	in := bufio.NewScanner(os.Stdin)

	language, err := pickOption(in, "Choose a language:", core.Languages)
	if err != nil {
		return err
	}

	levelLabels := make([]string, len(core.Levels))
	for i, l := range core.Levels {
		levelLabels[i] = l.Label()
	}
	levelChoice, err := pickOption(in, "Choose your level:", levelLabels)
	if err != nil {
		return err
	}
	level, _ := core.ParseLevel(levelChoice)

	welcome, err := sess.Start(ctx, language, level)
	if err != nil {
		return err
	}
	fmt.Printf("\nTutor: %s\n\n", welcome)

	modeNames := make([]string, len(prompt.Modes))
	for i, m := range prompt.Modes {
		modeNames[i] = m.String()
	}
	modeChoice, err := pickOption(in, "Choose a practice mode:", modeNames)
	if err != nil {
		return err
	}
	mode, _ := prompt.ParseMode(modeChoice)

	response, err := sess.SelectMode(ctx, mode)
	if err != nil {
		return err
	}
	fmt.Printf("\nTutor: %s\n\n", response)
	fmt.Println("Type your messages. Commands: /end (finish lesson), /reset (start over), /quit")

	for {
		fmt.Print("You: ")
		if !in.Scan() {
			return in.Err()
		}
		text := strings.TrimSpace(in.Text())

		switch text {
		case "":
			continue
		case "/quit":
			return nil
		case "/reset":
			sess.Reset()
			fmt.Println("Session reset. Restart with `tutor chat`.")
			return nil
		case "/end":
			eval, err := sess.EndLesson(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("\nTutor: %s\n", eval.Summary)
			if eval.Score != nil {
				fmt.Printf("\nLesson score: %.1f/10\n", *eval.Score)
			}
			return nil
		default:
			reply, err := sess.Chat(ctx, text)
			if err != nil {
				return err
			}
			fmt.Printf("\nTutor: %s\n\n", reply)
		}
	}
}

// pickOption prints a numbered menu and reads a selection, accepting either
// the number or the literal option text.
func pickOption(in *bufio.Scanner, title string, options []string) (string, error) {
	fmt.Println(title)
	for i, opt := range options {
		fmt.Printf("  %d. %s\n", i+1, opt)
	}
	for {
		fmt.Print("> ")
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("input closed")
		}
		choice := strings.TrimSpace(in.Text())
		for i, opt := range options {
			if choice == opt || choice == fmt.Sprintf("%d", i+1) {
				return opt, nil
			}
		}
		fmt.Println("Invalid choice, try again.")
	}
}
