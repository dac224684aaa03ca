// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files. Each
// file is one secret: the filename is the key name and the trimmed contents
// are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Key files understood by the research assistant.
const (
	AnthropicAPIKey       = "anthropic-api-key"
	OpenRouterAPIKey      = "openrouter-api-key"
	FirecrawlAPIKey       = "firecrawl-api-key"
	SemanticScholarAPIKey = "semantic-scholar-api-key"
)

// Set maps secret names to values.
type Set map[string]string

// Get returns the explicit value when it is non-empty, otherwise the secret
// stored under name, otherwise "".
func (s Set) Get(name, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return s[name]
}

// Names returns the loaded secret names in sorted order. Values are never
// exposed this way so the list is safe to log.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Load reads all files in dir. A missing directory is not an error and
// yields an empty Set. Unreadable files are reported through warn (when
// non-nil) and skipped.
func Load(dir string, warn func(name string, err error)) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Set)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if warn != nil {
				warn(name, err)
			}
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}
