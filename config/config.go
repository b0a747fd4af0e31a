// Package config loads the prompt_llm_SR.json settings file. A missing
// file is not an error; the defaults describe a local whisper + Ollama
// setup.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const DefaultPath = "prompt_llm_SR.json"

type Config struct {
	// Inference settings.
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt"`
	OllamaHost   string  `json:"ollama_host"`

	// Recognition settings.
	DefaultLanguage string `json:"default_language"`
	SpeechURL       string `json:"speech_url"`
	SpeechKey       string `json:"speech_key"`

	Debug bool `json:"debug"`
}

func defaults() Config {
	return Config{
		Model:           "qwen3:8b",
		Temperature:     0.7,
		MaxTokens:       512,
		OllamaHost:      "http://127.0.0.1:11434",
		DefaultLanguage: "id-ID",
		SpeechURL:       "http://127.0.0.1:8080/inference",
	}
}

// Load reads the config at path, filling unset fields with defaults.
// The second return reports whether the file existed.
func Load(path string) (Config, bool, error) {
	cfg := defaults()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, false, nil
	}
	if err != nil {
		return cfg, false, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return defaults(), true, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Secrets and hosts may reference the environment.
	cfg.SpeechURL = os.ExpandEnv(cfg.SpeechURL)
	cfg.SpeechKey = os.ExpandEnv(cfg.SpeechKey)
	cfg.OllamaHost = os.ExpandEnv(cfg.OllamaHost)

	fillDefaults(&cfg)
	return cfg, true, nil
}

func fillDefaults(cfg *Config) {
	def := defaults()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.OllamaHost == "" {
		cfg.OllamaHost = def.OllamaHost
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = def.DefaultLanguage
	}
	if cfg.SpeechURL == "" {
		cfg.SpeechURL = def.SpeechURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
}
