package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/wayfind-ai/wayfind/internal/browser"
	"github.com/wayfind-ai/wayfind/internal/config"
)

type checkResult struct {
	name    string
	status  string // "ok", "warn", "error"
	message string
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check Chrome, provider credentials, and the data directory",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	var results []checkResult

	cfg, err := config.Load()
	if err != nil {
		results = append(results, checkResult{"Config", "error", err.Error()})
		printResults(results)
		return
	}
	results = append(results, checkResult{"Config", "ok", config.Path(cfg.DataDir)})

	// Data directory must be writable for history and the Chrome profile.
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		results = append(results, checkResult{"Data dir", "error", err.Error()})
	} else {
		probe := filepath.Join(cfg.DataDir, ".doctor-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			results = append(results, checkResult{"Data dir", "error", "not writable: " + err.Error()})
		} else {
			os.Remove(probe)
			results = append(results, checkResult{"Data dir", "ok", cfg.DataDir})
		}
	}

	p, err := cfg.ActiveProvider()
	switch {
	case err != nil:
		results = append(results, checkResult{"Provider", "error", err.Error()})
	case p.APIKey == "" && p.Name != "ollama":
		results = append(results, checkResult{"Provider", "error",
			fmt.Sprintf("%s selected but no API key found (config, env, or keychain)", p.Name)})
	default:
		results = append(results, checkResult{"Provider", "ok",
			fmt.Sprintf("%s / %s", p.Name, p.Model)})
	}

	if exe, err := browser.FindChrome(cfg.Browser.Path); err != nil {
		results = append(results, checkResult{"Chrome", "error", err.Error()})
	} else {
		results = append(results, checkResult{"Chrome", "ok", exe})
	}

	port := cfg.Browser.DebugPort
	if port == 0 {
		port = 9222
	}
	if browser.IsRunning(port, time.Second) {
		results = append(results, checkResult{"CDP", "ok",
			fmt.Sprintf("Chrome answering on port %d", port)})
	} else {
		results = append(results, checkResult{"CDP", "warn",
			fmt.Sprintf("nothing on port %d (wayfind will launch its own Chrome)", port)})
	}

	printResults(results)
}

func printResults(results []checkResult) {
	failed := false
	for _, r := range results {
		mark := "✓"
		switch r.status {
		case "warn":
			mark = "!"
		case "error":
			mark = "✗"
			failed = true
		}
		fmt.Printf("%s %-10s %s\n", mark, r.name, r.message)
	}
	if failed {
		os.Exit(1)
	}
}
