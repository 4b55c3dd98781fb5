package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ArchonYAMLConfig represents the complete archon.yaml file structure.
type ArchonYAMLConfig struct {
	System    *SystemConfig    `yaml:"system"`
	Ingestion *IngestionConfig `yaml:"ingestion"`
	Retrieval *RetrievalConfig `yaml:"retrieval"`
	Session   *SessionConfig   `yaml:"session"`
	Retention *RetentionConfig `yaml:"retention"`
	RBAC      *RBACConfig      `yaml:"rbac"`
	Defaults  *Defaults        `yaml:"defaults"`
}

// ProvidersYAMLConfig represents the complete providers.yaml file structure.
type ProvidersYAMLConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined providers
//  5. Build the provider registry
//  6. Apply built-in defaults for any unset values
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
	log.Info("configuration initialized", "providers", stats.Providers)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	archonCfg, err := loader.loadArchonYAML()
	if err != nil {
		return nil, NewLoadError("archon.yaml", err)
	}

	userProviders, err := loader.loadProvidersYAML()
	if err != nil {
		return nil, NewLoadError("providers.yaml", err)
	}

	providers := mergeProviders(builtinProviders(), userProviders)
	providerRegistry := NewProviderRegistry(providers)

	defaults := archonCfg.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	builtin := builtinDefaults()
	if defaults.ChatProvider == "" {
		defaults.ChatProvider = builtin.ChatProvider
	}
	if defaults.EmbeddingProvider == "" {
		defaults.EmbeddingProvider = builtin.EmbeddingProvider
	}
	if defaults.RerankProvider == "" {
		defaults.RerankProvider = builtin.RerankProvider
	}

	ingestion := DefaultIngestionConfig()
	if archonCfg.Ingestion != nil {
		if err := mergo.Merge(ingestion, archonCfg.Ingestion, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge ingestion config: %w", err)
		}
	}

	retrieval := DefaultRetrievalConfig()
	if archonCfg.Retrieval != nil {
		if err := mergo.Merge(retrieval, archonCfg.Retrieval, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retrieval config: %w", err)
		}
	}

	session := DefaultSessionConfig()
	if archonCfg.Session != nil {
		if err := mergo.Merge(session, archonCfg.Session, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge session config: %w", err)
		}
	}

	retention := DefaultRetentionConfig()
	if archonCfg.Retention != nil {
		if err := mergo.Merge(retention, archonCfg.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	rbac := DefaultRBACConfig()
	if archonCfg.RBAC != nil {
		if err := mergo.Merge(rbac, archonCfg.RBAC, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge rbac config: %w", err)
		}
		rbac.SeedGrants = append(rbac.SeedGrants, archonCfg.RBAC.SeedGrants...)
	}

	system := DefaultSystemConfig()
	if archonCfg.System != nil {
		if err := mergo.Merge(system, archonCfg.System, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge system config: %w", err)
		}
	}

	return &Config{
		configDir:        configDir,
		Defaults:         defaults,
		ProviderRegistry: providerRegistry,
		Ingestion:        ingestion,
		Retrieval:        retrieval,
		Session:          session,
		Retention:        retention,
		RBAC:             rbac,
		System:           system,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
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

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadArchonYAML() (*ArchonYAMLConfig, error) {
	var cfg ArchonYAMLConfig

	// archon.yaml is optional; an absent file means every section falls
	// back to its built-in defaults.
	path := filepath.Join(l.configDir, "archon.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &cfg, nil
	}

	if err := l.loadYAML("archon.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *configLoader) loadProvidersYAML() (map[string]ProviderConfig, error) {
	var cfg ProvidersYAMLConfig
	cfg.Providers = make(map[string]ProviderConfig)

	path := filepath.Join(l.configDir, "providers.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg.Providers, nil
	}

	if err := l.loadYAML("providers.yaml", &cfg); err != nil {
		return nil, err
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	return cfg.Providers, nil
}
