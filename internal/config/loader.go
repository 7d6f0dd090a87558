package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

const includeKey = "$include"

// Load reads a configuration file, resolves $include directives and
// environment variables, validates it against the schema and applies
// defaults. A file without a version key is treated as current.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	_, hasVersion := raw["version"]

	if err := validateSchema(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg, err := decodeStrict(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !hasVersion {
		cfg.Version = CurrentVersion
	}
	if err := ValidateVersion(cfg.Version); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRaw reads a configuration file into a map with every $include merged
// in. Values in the including file win over included ones.
func LoadRaw(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config path is required")
	}
	l := &rawLoader{open: map[string]bool{}}
	return l.load(path)
}

// rawLoader tracks the files currently being loaded so include cycles are
// caught. A file may still be included twice from different branches.
type rawLoader struct {
	open map[string]bool
}

func (l *rawLoader) load(path string) (map[string]any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if l.open[abs] {
		return nil, fmt.Errorf("config include cycle detected at %s", abs)
	}
	l.open[abs] = true
	defer delete(l.open, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	doc, err := decodeDocument([]byte(expandEnv(string(data))), filepath.Ext(abs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	includes, err := popIncludes(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}

	merged := map[string]any{}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(abs), inc)
		}
		included, err := l.load(inc)
		if err != nil {
			return nil, err
		}
		deepMerge(merged, included)
	}
	deepMerge(merged, doc)
	return merged, nil
}

// expandEnv substitutes environment variables, leaving the $include key
// intact.
func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		if name == includeKey[1:] {
			return includeKey
		}
		return os.Getenv(name)
	})
}

// decodeDocument reads JSON5 for .json and .json5 files and YAML otherwise.
// YAML files must hold a single document.
func decodeDocument(data []byte, ext string) (map[string]any, error) {
	var doc map[string]any
	switch strings.ToLower(ext) {
	case ".json", ".json5":
		if err := json5.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		var extra any
		if err := dec.Decode(&extra); err != io.EOF {
			return nil, errors.New("failed to parse config: expected a single document")
		}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// popIncludes removes $include from doc and returns its non-blank paths.
func popIncludes(doc map[string]any) ([]string, error) {
	value, ok := doc[includeKey]
	if !ok {
		return nil, nil
	}
	delete(doc, includeKey)

	var entries []any
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		entries = []any{v}
	case []any:
		entries = v
	default:
		return nil, errors.New("$include must be a string or list of strings")
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		p, ok := entry.(string)
		if !ok {
			return nil, errors.New("$include entries must be strings")
		}
		if strings.TrimSpace(p) != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// deepMerge copies src into dst, merging nested maps key by key.
func deepMerge(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			deepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
}

// decodeStrict re-encodes raw and decodes it into Config, rejecting unknown
// fields.
func decodeStrict(raw map[string]any) (*Config, error) {
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(payload))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
