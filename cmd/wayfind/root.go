package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wayfind-ai/wayfind/internal/agent"
	"github.com/wayfind-ai/wayfind/internal/browser"
	"github.com/wayfind-ai/wayfind/internal/config"
	"github.com/wayfind-ai/wayfind/internal/devlog"
	"github.com/wayfind-ai/wayfind/internal/provider"
	"github.com/wayfind-ai/wayfind/internal/semantic"
	"github.com/wayfind-ai/wayfind/internal/store"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wayfind [goal]",
		Short: "A browser assistant that turns goals into page actions",
		Long: `wayfind attaches to a real Chrome, plans a natural-language goal into
browser steps, and executes them: scan the page, rank the interactive
elements, ask the configured model for the next action, highlight it,
and confirm before acting.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoals(cmd, args)
		},
	}
	root.Flags().BoolP("yes", "y", false, "auto-confirm actions without prompting")
	root.Flags().Bool("headless", false, "launch Chrome headless")
	root.Flags().String("provider", "", "override the configured provider profile")

	run := &cobra.Command{
		Use:   "run [goal]",
		Short: "Run a goal (or an interactive goal loop)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoals(cmd, args)
		},
	}
	run.Flags().AddFlagSet(root.Flags())

	root.AddCommand(run, doctorCmd())
	return root
}

func runGoals(cmd *cobra.Command, args []string) error {
	autoConfirm, _ := cmd.Flags().GetBool("yes")
	headless, _ := cmd.Flags().GetBool("headless")
	providerOverride, _ := cmd.Flags().GetString("provider")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if providerOverride != "" {
		cfg.Provider = providerOverride
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	llm, err := buildClient(cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "wayfind.db"))
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer st.Close()

	ranker := buildRanker(cfg, st)
	if ranker != nil {
		defer ranker.Close()
	}

	b, err := browser.Connect(browser.Options{
		Path:     cfg.Browser.Path,
		Port:     cfg.Browser.DebugPort,
		Headless: headless || cfg.Browser.Headless,
		DataDir:  cfg.DataDir,
	})
	if err != nil {
		return err
	}
	defer b.Close()

	var confirm agent.Confirmer
	if autoConfirm || cfg.AutoConfirm {
		confirm = agent.AutoConfirmer{}
	} else {
		confirm = &terminalConfirmer{in: bufio.NewReader(os.Stdin)}
	}

	// Config edits between goals swap the provider without a restart.
	var activeLLM atomic.Pointer[clientBox]
	activeLLM.Store(&clientBox{c: llm})
	stopWatch, err := config.Watch(config.Path(cfg.DataDir), func(fresh *config.Config) {
		if providerOverride != "" {
			fresh.Provider = providerOverride
		}
		if next, err := buildClient(fresh); err == nil {
			activeLLM.Store(&clientBox{c: next})
		} else {
			devlog.Tagf("CLI", "config reload kept previous provider: %v", err)
		}
	})
	if err == nil {
		defer stopWatch()
	}

	runOne := func(goal string) error {
		ctrl := agent.NewController(b.Page(), activeLLM.Load().c, agent.Options{
			Ranker:   ranker,
			Store:    st,
			Confirm:  confirm,
			EnableAX: cfg.EnableAX,
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			<-sigCh
			fmt.Println("\nStopping after the current step...")
			ctrl.Stop()
			cancel()
		}()

		return ctrl.Run(ctx, goal)
	}

	if goal := strings.TrimSpace(strings.Join(args, " ")); goal != "" {
		return runOne(goal)
	}

	// Interactive loop: one goal per line, empty line or EOF exits.
	in := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("goal> ")
		line, err := in.ReadString('\n')
		if err != nil {
			return nil
		}
		goal := strings.TrimSpace(line)
		if goal == "" {
			return nil
		}
		if err := runOne(goal); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if hint := providerHint(err); hint != "" {
				fmt.Fprintln(os.Stderr, hint)
			}
		}
	}
}

// clientBox wraps the interface for atomic.Pointer.
type clientBox struct{ c provider.Client }

func buildClient(cfg *config.Config) (provider.Client, error) {
	p, err := cfg.ActiveProvider()
	if err != nil {
		return nil, err
	}
	if p.APIKey == "" && p.Name != "ollama" {
		return nil, fmt.Errorf("no API key for provider %q; set it in %s or the environment", p.Name, config.Path(cfg.DataDir))
	}

	switch p.Name {
	case "anthropic":
		return provider.NewAnthropicClient(p.APIKey, p.Model), nil
	case "gemini":
		return provider.NewGeminiClient(p.APIKey, p.Model), nil
	case "ollama":
		return provider.NewOllamaClient(p.BaseURL, p.Model)
	case "openai":
		return provider.NewOpenAIClient(p.Name, p.APIKey, p.Model, p.BaseURL), nil
	case "deepseek":
		return provider.NewOpenAIClient(p.Name, p.APIKey, p.Model, orDefault(p.BaseURL, "https://api.deepseek.com/v1")), nil
	case "groq":
		return provider.NewOpenAIClient(p.Name, p.APIKey, p.Model, orDefault(p.BaseURL, "https://api.groq.com/openai/v1")), nil
	case "openrouter":
		return provider.NewOpenAIClient(p.Name, p.APIKey, p.Model, orDefault(p.BaseURL, "https://openrouter.ai/api/v1")), nil
	default:
		// Custom OpenAI-compatible endpoint.
		if p.BaseURL == "" {
			return nil, fmt.Errorf("provider %q needs a base_url", p.Name)
		}
		return provider.NewOpenAIClient(p.Name, p.APIKey, p.Model, p.BaseURL), nil
	}
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// buildRanker wires the semantic reranker when an embedding provider is
// configured; nil disables semantic ranking and the pipeline stays
// lexical-only.
func buildRanker(cfg *config.Config, st *store.Store) *semantic.Ranker {
	var embedder semantic.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		embedder = semantic.NewOpenAIEmbedder(semantic.OpenAIEmbedderConfig{
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
			BaseURL: cfg.Embedding.BaseURL,
		})
	case "ollama":
		embedder = semantic.NewOllamaEmbedder(semantic.OllamaEmbedderConfig{
			Model:   cfg.Embedding.Model,
			BaseURL: cfg.Embedding.BaseURL,
		})
	default:
		return nil
	}
	return semantic.NewRanker(semantic.NewService(embedder, semantic.NewCache(st.DB())))
}

// providerHint surfaces the remediation hint for classified provider
// failures.
func providerHint(err error) string {
	var perr *provider.Error
	if errors.As(err, &perr) {
		return provider.Hint(perr.Kind)
	}
	return ""
}

// terminalConfirmer prompts on stdin for each visually-applied action
// and for the final goal verdict.
type terminalConfirmer struct {
	in *bufio.Reader
}

func (t *terminalConfirmer) ConfirmAction(step agent.Step, entry agent.HistoryEntry) bool {
	fmt.Printf("\nStep: %s\nProposed: %s\n", step.Instruction, entry.Line())
	if entry.Thought != "" {
		fmt.Printf("Reasoning: %s\n", entry.Thought)
	}
	fmt.Print("Confirm? [Y/n] ")
	line, err := t.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "" || answer == "y" || answer == "yes"
}

func (t *terminalConfirmer) ConfirmDone(goal string) (bool, string) {
	fmt.Printf("\nGoal: %s\nIs this done? [y/n] ", goal)
	line, err := t.in.ReadString('\n')
	if err != nil {
		return true, ""
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "" || answer == "y" || answer == "yes" {
		return true, ""
	}
	for {
		fmt.Print("What is still missing? ")
		reason, err := t.in.ReadString('\n')
		if err != nil {
			return false, "not completed"
		}
		if r := strings.TrimSpace(reason); r != "" {
			return false, r
		}
	}
}
