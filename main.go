package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"threechat/internal/config"
	"threechat/internal/db"
	"threechat/internal/llm"
	"threechat/internal/store"
	"threechat/internal/styles"
	"threechat/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI; diagnostics go to the log file or nowhere.
	log.SetOutput(io.Discard)
	if cfg.LogPath != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.LogPath), 0o700)
		if f, err := tea.LogToFile(cfg.LogPath, "threechat"); err == nil {
			defer f.Close()
		}
	}

	var st *store.Store
	history, err := db.Open(cfg.Storage, cfg.DBPath)
	if err != nil {
		// History is unavailable but the chat still works in memory.
		log.Printf("main: %v", err)
		st = store.New(nil)
	} else {
		defer history.Close()
		st = store.New(history)
	}
	st.LoadFromStorage()

	provider, err := llm.NewProviderFromConfig(cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	styles.InitTheme()

	p := ui.NewProgram(cfg, st, llm.NewBinder(provider))
	finalModel, err := p.Run()
	if err != nil {
		fmt.Printf("Error: %v", err)
		return
	}
	if m, ok := finalModel.(*ui.Model); ok {
		m.Close()
	}
}
