// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// SavedQuery is the on-disk record of one answered query.
type SavedQuery struct {
	Request  types.QueryRequest  `json:"request" yaml:"request"`
	Response types.QueryResponse `json:"response" yaml:"response"`
	SavedAt  time.Time           `json:"saved_at" yaml:"saved_at"`
}

// Save writes the request and response to path. A .json extension selects
// JSON; anything else is written as YAML.
func Save(path string, req types.QueryRequest, resp types.QueryResponse) error {
	sq := SavedQuery{Request: req.WithDefaults(), Response: resp, SavedAt: time.Now().UTC()}

	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(&sq, "", "  ")
	} else {
		data, err = yaml.Marshal(&sq)
	}
	if err != nil {
		return fmt.Errorf("marshaling saved query: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a file written by Save.
func Load(path string) (*SavedQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading saved query: %w", err)
	}
	var sq SavedQuery
	if isJSON(path) {
		err = json.Unmarshal(data, &sq)
	} else {
		err = yaml.Unmarshal(data, &sq)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing saved query: %w", err)
	}
	return &sq, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
