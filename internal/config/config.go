package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"document-chat/internal/models"
)

type StoreConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	InMemory   bool   `yaml:"in_memory"`
}

type LLMConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ExtractConfig struct {
	OCRDPI      float64 `yaml:"ocr_dpi"`
	OCRLanguage string  `yaml:"ocr_language"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

type UIConfig struct {
	PreviewChars int    `yaml:"preview_chars"`
	TempDir      string `yaml:"temp_dir"`
}

type Config struct {
	Store      StoreConfig     `yaml:"store"`
	EmbedLLM   LLMConfig       `yaml:"embedding"`
	Completion LLMConfig       `yaml:"completion"`
	Extract    ExtractConfig   `yaml:"extract"`
	Retrieval  RetrievalConfig `yaml:"retrieval"`
	UI         UIConfig        `yaml:"ui"`
}

// LoadConfig reads a YAML config file and fills in defaults for unset values.
// A missing file is not an error; the defaults alone are a working setup for a
// local Ollama install.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./chromem_data"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "documents"
	}

	if cfg.EmbedLLM.BaseURL == "" {
		cfg.EmbedLLM.BaseURL = models.DefaultOllamaURL
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = models.DefaultEmbeddingModel
	}

	if cfg.Completion.BaseURL == "" {
		cfg.Completion.BaseURL = models.DefaultOllamaURL
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = models.DefaultCompletionModel
	}
	if cfg.Completion.TimeoutSeconds == 0 {
		// Local generation can be very slow on CPU-only machines.
		cfg.Completion.TimeoutSeconds = 1200
	}

	if cfg.Extract.OCRDPI == 0 {
		cfg.Extract.OCRDPI = models.DefaultOCRDPI
	}
	if cfg.Extract.OCRLanguage == "" {
		cfg.Extract.OCRLanguage = "eng"
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = models.DefaultTopK
	}

	if cfg.UI.PreviewChars == 0 {
		cfg.UI.PreviewChars = models.DefaultPreviewChars
	}
	if cfg.UI.TempDir == "" {
		cfg.UI.TempDir = "temp_files"
	}
}
