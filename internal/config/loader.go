package config

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

//go:embed defaults.yaml
var defaults []byte

// envSections are the top-level keys environment variables may target.
// Anything else in the environment is ignored.
var envSections = map[string]bool{
	"server":    true,
	"database":  true,
	"redis":     true,
	"auth":      true,
	"vector":    true,
	"pinecone":  true,
	"qdrant":    true,
	"embedding": true,
	"llm":       true,
	"chat":      true,
	"logging":   true,
}

// envAliases keeps the variable names earlier deployments used
var envAliases = map[string]string{
	"DEFAULT_ANSWER":           "chat.default_answer",
	"JWT_SECRET":               "auth.jwt_secret",
	"HUGGINGFACEHUB_API_TOKEN": "llm.api_key",
}

// envLists are keys whose environment value is a comma-separated list
var envLists = map[string]bool{
	"server.allowed_origins": true,
}

// Load builds the configuration.
//
// Precedence, highest first:
//  1. Environment variables (AUTH_JWT_SECRET, PINECONE_API_KEY, CHAT_TOP_K, ...)
//  2. The YAML file at path, when path is not empty
//  3. Built-in defaults
//
// Environment variables map SECTION_FIELD onto section.field, splitting on the
// first underscore only:
//
//	DATABASE_URL        -> database.url
//	AUTH_JWT_SECRET     -> auth.jwt_secret
//	CHAT_DEFAULT_ANSWER -> chat.default_answer
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envValue maps an environment variable to a config key and value.
// List keys are split on commas, dropping blank items.
func envValue(name, value string) (string, interface{}) {
	key := envKey(name)
	if key == "" || !envLists[key] {
		return key, value
	}
	items := make([]string, 0, strings.Count(value, ",")+1)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// envKey maps an environment variable to a config key.
// An empty result tells koanf to skip the variable.
func envKey(name string) string {
	if key, ok := envAliases[name]; ok {
		return key
	}

	lower := strings.ToLower(name)
	section, field, ok := strings.Cut(lower, "_")
	if !ok || field == "" || !envSections[section] {
		return ""
	}
	return section + "." + field
}

// readConfigFile reads at most maxConfigFileSize bytes from a regular file
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("config file %s is not a regular file", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
