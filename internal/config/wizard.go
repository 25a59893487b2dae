package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .docsentry.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to docsentry! Let's configure your document store.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Chat model.
	modelPrompt := promptui.Select{
		Label: "Select chat model",
		Items: []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1"},
	}
	_, model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model selection: %w", err)
	}
	cfg.ChatModel = model

	// 2. Embedding model.
	embedPrompt := promptui.Select{
		Label: "Select embedding model",
		Items: []string{"text-embedding-3-small", "text-embedding-3-large"},
	}
	_, embedModel, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding model selection: %w", err)
	}
	cfg.EmbeddingModel = embedModel

	// 3. Inbox directory.
	inboxPrompt := promptui.Prompt{
		Label:   "Inbox directory to watch for new documents",
		Default: cfg.InboxDir,
	}
	if cfg.InboxDir, err = inboxPrompt.Run(); err != nil {
		return nil, fmt.Errorf("inbox dir: %w", err)
	}

	// 4. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory for the index and conversation store",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 5. Chunk size.
	chunkPrompt := promptui.Prompt{
		Label:   "Chunk size (characters)",
		Default: strconv.Itoa(cfg.Chunk.Size),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return fmt.Errorf("must be a positive integer")
			}
			return nil
		},
	}
	chunkStr, err := chunkPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("chunk size: %w", err)
	}
	cfg.Chunk.Size, _ = strconv.Atoi(chunkStr)
	if cfg.Chunk.Overlap >= cfg.Chunk.Size {
		cfg.Chunk.Overlap = cfg.Chunk.Size / 5
	}

	// 6. Extra exclude patterns.
	excludePrompt := promptui.Prompt{
		Label:   "Extra exclude patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	if excludeStr != "" {
		cfg.Exclude = append(cfg.Exclude, splitAndTrim(excludeStr)...)
	}

	if cfg.APIKey() == "" {
		fmt.Println("\nNote: Set OPENAI_API_KEY in your environment before ingesting documents.")
	}

	configPath := ".docsentry.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
