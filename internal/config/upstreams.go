package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Upstream kinds
const (
	UpstreamKindOpenAI = "openai" // Any OpenAI-compatible chat completions endpoint
	UpstreamKindLorem  = "lorem"  // Offline lorem ipsum generator for local development
)

// UpstreamConfig describes one completion-API client in the pool.
type UpstreamConfig struct {
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"`
	BaseURL string            `yaml:"base_url"`
	APIKey  string            `yaml:"api_key"` // ${VAR} references are expanded from the environment
	Model   string            `yaml:"model"`
	Headers map[string]string `yaml:"headers"`
}

// upstreamFile is the on-disk shape of UPSTREAMS_FILE
type upstreamFile struct {
	Upstreams []UpstreamConfig `yaml:"upstreams"`
}

// loadUpstreams builds the upstream pool configuration.
//
// Sources, first match wins:
//  1. UPSTREAMS_FILE (yaml)
//  2. UPSTREAM_API_KEYS (comma list) + UPSTREAM_BASE_URL, one client per key
//  3. CLIENT_XUNFEI1_API_KEY / CLIENT_XUNFEI2_API_KEY + CLIENT_XUNFEI_BASE_URL
//  4. a single lorem client outside prod
func loadUpstreams(cfg *Config) ([]UpstreamConfig, error) {
	var upstreams []UpstreamConfig

	if path := os.Getenv("UPSTREAMS_FILE"); path != "" {
		fromFile, err := LoadUpstreamsFile(path)
		if err != nil {
			return nil, err
		}
		upstreams = fromFile
	} else if keys := splitList(os.Getenv("UPSTREAM_API_KEYS")); len(keys) > 0 {
		baseURL := os.Getenv("UPSTREAM_BASE_URL")
		for i, key := range keys {
			upstreams = append(upstreams, UpstreamConfig{
				Name:    fmt.Sprintf("upstream-%d", i+1),
				Kind:    UpstreamKindOpenAI,
				BaseURL: baseURL,
				APIKey:  key,
			})
		}
	} else {
		baseURL := os.Getenv("CLIENT_XUNFEI_BASE_URL")
		for i, envKey := range []string{"CLIENT_XUNFEI1_API_KEY", "CLIENT_XUNFEI2_API_KEY"} {
			if key := os.Getenv(envKey); key != "" && baseURL != "" {
				upstreams = append(upstreams, UpstreamConfig{
					Name:    fmt.Sprintf("xunfei-%d", i+1),
					Kind:    UpstreamKindOpenAI,
					BaseURL: baseURL,
					APIKey:  key,
				})
			}
		}
	}

	if len(upstreams) == 0 {
		if cfg.Environment == "prod" {
			return nil, errors.New("no upstream completion clients configured (set UPSTREAMS_FILE or UPSTREAM_API_KEYS)")
		}
		upstreams = append(upstreams, UpstreamConfig{
			Name:  "lorem",
			Kind:  UpstreamKindLorem,
			Model: "lorem-fast",
		})
	}

	for i := range upstreams {
		applyUpstreamDefaults(&upstreams[i], cfg)
		if err := upstreams[i].validate(); err != nil {
			return nil, err
		}
	}

	return upstreams, nil
}

// LoadUpstreamsFile reads an upstream pool definition from a yaml file.
func LoadUpstreamsFile(path string) ([]UpstreamConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upstreams file: %w", err)
	}

	var file upstreamFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse upstreams file %s: %w", path, err)
	}

	for i := range file.Upstreams {
		file.Upstreams[i].APIKey = os.ExpandEnv(file.Upstreams[i].APIKey)
		file.Upstreams[i].BaseURL = os.ExpandEnv(file.Upstreams[i].BaseURL)
	}

	return file.Upstreams, nil
}

func applyUpstreamDefaults(u *UpstreamConfig, cfg *Config) {
	if u.Kind == "" {
		u.Kind = UpstreamKindOpenAI
	}
	if u.Model == "" {
		u.Model = cfg.UpstreamModel
	}
	if u.Headers == nil {
		u.Headers = make(map[string]string)
	}
	if _, ok := u.Headers["lora_id"]; !ok && u.Kind == UpstreamKindOpenAI && cfg.UpstreamLoraID != "" {
		u.Headers["lora_id"] = cfg.UpstreamLoraID
	}
}

func (u *UpstreamConfig) validate() error {
	switch u.Kind {
	case UpstreamKindOpenAI:
		if u.BaseURL == "" {
			return fmt.Errorf("upstream %q: base_url is required", u.Name)
		}
		if u.APIKey == "" {
			return fmt.Errorf("upstream %q: api_key is required", u.Name)
		}
	case UpstreamKindLorem:
	default:
		return fmt.Errorf("upstream %q: unknown kind %q", u.Name, u.Kind)
	}
	return nil
}
