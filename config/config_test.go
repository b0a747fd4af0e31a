package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompt_llm_SR.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, found, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("found = true for missing file")
	}
	if cfg.Model != "qwen3:8b" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.DefaultLanguage != "id-ID" {
		t.Errorf("DefaultLanguage = %q", cfg.DefaultLanguage)
	}
	if cfg.OllamaHost != "http://127.0.0.1:11434" {
		t.Errorf("OllamaHost = %q", cfg.OllamaHost)
	}
}

func TestLoadOverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"model": "llama3.2:3b",
		"system_prompt": "jawab singkat",
		"temperature": 0.2,
		"default_language": "en-US"
	}`)

	cfg, found, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Error("found = false for existing file")
	}
	if cfg.Model != "llama3.2:3b" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.SystemPrompt != "jawab singkat" {
		t.Errorf("SystemPrompt = %q", cfg.SystemPrompt)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.DefaultLanguage != "en-US" {
		t.Errorf("DefaultLanguage = %q", cfg.DefaultLanguage)
	}
	// Fields absent from the file keep their defaults.
	if cfg.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d", cfg.MaxTokens)
	}
	if cfg.SpeechURL != "http://127.0.0.1:8080/inference" {
		t.Errorf("SpeechURL = %q", cfg.SpeechURL)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SPEECH_API_KEY", "sk-test")
	path := writeConfig(t, `{"speech_key": "${SPEECH_API_KEY}"}`)

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SpeechKey != "sk-test" {
		t.Errorf("SpeechKey = %q", cfg.SpeechKey)
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)

	cfg, found, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !found {
		t.Error("found = false for existing file")
	}
	// Caller still gets usable defaults.
	if cfg.Model != "qwen3:8b" {
		t.Errorf("Model = %q", cfg.Model)
	}
}

func TestLoadEmptyPathUsesDefaultName(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	if err := os.WriteFile(DefaultPath, []byte(`{"model":"from-default"}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, found, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !found || cfg.Model != "from-default" {
		t.Errorf("found=%v Model=%q", found, cfg.Model)
	}
}
