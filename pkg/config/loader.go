package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/modforge/assembly/pkg/models"
)

// ModforgeYAMLConfig represents the complete modforge.yaml file structure.
type ModforgeYAMLConfig struct {
	Tiers    map[models.Tier]TierConfig `yaml:"tiers"`
	Defaults *Defaults                 `yaml:"defaults"`
}

// LLMProvidersYAMLConfig represents the complete llm-providers.yaml file structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined configurations
//  5. Build in-memory registries
//  6. Load and validate required process environment variables
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized successfully",
		"tiers", stats.Tiers,
		"llm_providers", stats.LLMProviders)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	modforgeConfig, err := loader.loadModforgeYAML()
	if err != nil {
		return nil, NewLoadError("modforge.yaml", err)
	}

	llmProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	builtin := GetBuiltinConfig()

	tiers := mergeTiers(builtin.Tiers, modforgeConfig.Tiers)
	llmProvidersMerged := mergeLLMProviders(builtin.LLMProviders, llmProviders)

	tierRegistry := NewTierRegistry(tiers)
	llmProviderRegistry := NewLLMProviderRegistry(llmProvidersMerged)

	defaults := DefaultDefaults()
	if modforgeConfig.Defaults != nil {
		if err := mergo.Merge(defaults, modforgeConfig.Defaults, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge defaults: %w", err)
		}
	}

	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}

	return &Config{
		configDir:           configDir,
		Defaults:            defaults,
		Env:                 env,
		TierRegistry:        tierRegistry,
		LLMProviderRegistry: llmProviderRegistry,
	}, nil
}

func validate(cfg *Config) error {
	v := NewValidator(cfg)
	return v.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand $VAR / ${VAR} environment variable references before parsing
	// (mirrors the teacher's ExpandEnv contract).
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

func (l *configLoader) loadModforgeYAML() (*ModforgeYAMLConfig, error) {
	var cfg ModforgeYAMLConfig
	cfg.Tiers = make(map[models.Tier]TierConfig)
	if err := l.loadYAML("modforge.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var cfg LLMProvidersYAMLConfig
	cfg.LLMProviders = make(map[string]LLMProviderConfig)
	if err := l.loadYAML("llm-providers.yaml", &cfg); err != nil {
		return nil, err
	}
	return cfg.LLMProviders, nil
}
