package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const configHeader = `# DittoDir Configuration File
#
# Every value below is a default. Any setting can be overridden from the
# environment with the DITTODIR_ prefix, e.g. DITTODIR_API_PORT=8081.
`

// sectionComments document the top-level sections of a generated file.
var sectionComments = map[string]string{
	"logging": "Logging: level (DEBUG, INFO, WARN, ERROR), format (text, json), output (stdout, stderr, or a file path)",
	"server":  "Server-wide settings",
	"api":     "HTTP API serving folders and files under /api/v1",
	"metrics": "Prometheus metrics, served on their own port",
	"store":   "Record store: type is one of memory, badger, s3, duckdb, sqlite (only the matching section is used)",
}

// fieldComments document individual keys, addressed by dotted path.
var fieldComments = map[string]string{
	"api.owner_header":                   "Request header carrying the authenticated owner",
	"api.max_upload_bytes":               "Largest accepted multipart upload",
	"api.rate_limit.requests_per_second": "Per-owner request rate (0 = unlimited)",
	"api.rate_limit.burst":               "Per-owner burst (0 = same as the rate)",
	"store.badger":                       "BadgerDB: db_path, in_memory, block_cache_mb, index_cache_mb",
	"store.s3":                           "S3: bucket, region, key_prefix, endpoint, access_key_id, secret_access_key, max_retries, concurrency",
	"store.sql":                          "DuckDB and SQLite: dsn (an empty DuckDB dsn opens an in-memory database)",
}

// InitConfig writes a default configuration file to the default location.
//
// Returns the path of the written file. Fails if the file already exists
// unless force is set.
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()
	if err := InitConfigToPath(configPath, force); err != nil {
		return "", err
	}
	return configPath, nil
}

// InitConfigToPath writes a default configuration file to configPath,
// creating parent directories as needed.
func InitConfigToPath(configPath string, force bool) error {
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg as YAML with a header and a comment
// above each documented key.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	annotate(&doc, "", true)

	var sb strings.Builder
	sb.WriteString(configHeader)
	sb.WriteString("\n")

	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	return sb.String(), nil
}

// annotate attaches comments to the keys of a mapping node, recursing into
// nested mappings.
func annotate(node *yaml.Node, prefix string, top bool) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		path := key.Value
		if prefix != "" {
			path = prefix + "." + key.Value
		}

		if top {
			if comment, ok := sectionComments[path]; ok {
				key.HeadComment = comment
			}
		} else if comment, ok := fieldComments[path]; ok {
			key.HeadComment = comment
		}

		annotate(value, path, false)
	}
}
