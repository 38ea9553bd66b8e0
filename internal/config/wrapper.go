// Package config loads the YAML configuration file for a middleware run
// and layers environment-variable and secret-file overrides on top of it,
// lazily, per lookup — no global mutation, no eager flattening of the
// tree, per the "config layered with env/secret overrides" design note.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// secretsDir is where override files are looked up; overridable in tests.
var secretsDir = "/run/secrets"

// Wrapper is a lazy view over a YAML document plus its environment and
// secret-file overrides. Prefix namespaces the override keys, e.g. a
// Wrapper built with prefix "SQL2ARC" resolves the path ["db", "host"]
// against the env var SQL2ARC_DB_HOST, then the file
// /run/secrets/sql2arc_db_host, then the YAML tree itself.
type Wrapper struct {
	prefix string
	tree   map[string]any
}

// NewWrapper builds a Wrapper from raw YAML bytes. data may be nil or
// empty, in which case only overrides apply.
func NewWrapper(prefix string, data []byte) (*Wrapper, error) {
	tree := map[string]any{}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	return &Wrapper{prefix: prefix, tree: tree}, nil
}

// LoadWrapper reads path and builds a Wrapper over its contents. A
// missing file is not an error: the Wrapper falls back to pure
// env/secret overrides and whatever defaults the caller applies
// afterwards.
func LoadWrapper(prefix, path string) (*Wrapper, error) {
	if path == "" {
		return NewWrapper(prefix, nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewWrapper(prefix, nil)
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return NewWrapper(prefix, data)
}

// override resolves a dotted path against env var
// PREFIX_KEY_PATH_UPPER, falling back to the secret file
// /run/secrets/prefix_key_path_lower, and reports whether either fired.
func (w *Wrapper) override(path []string) (string, bool) {
	joined := strings.Join(path, "_")

	envKey := strings.ToUpper(w.prefix + "_" + joined)
	if v, ok := os.LookupEnv(envKey); ok {
		return v, true
	}

	secretName := strings.ToLower(w.prefix + "_" + joined)
	data, err := os.ReadFile(secretsDir + "/" + secretName)
	if err == nil {
		return strings.TrimSpace(string(data)), true
	}

	return "", false
}

// lookup walks the parsed tree following path, returning the raw value
// and whether it was found.
func (w *Wrapper) lookup(path []string) (any, bool) {
	var cur any = w.tree
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String resolves path as a string, preferring env/secret overrides over
// the YAML tree, and finally def.
func (w *Wrapper) String(def string, path ...string) string {
	if v, ok := w.override(path); ok {
		return v
	}
	if v, ok := w.lookup(path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Int resolves path as an int.
func (w *Wrapper) Int(def int, path ...string) int {
	if v, ok := w.override(path); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if v, ok := w.lookup(path); ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return def
}

// Bool resolves path as a bool.
func (w *Wrapper) Bool(def bool, path ...string) bool {
	if v, ok := w.override(path); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	if v, ok := w.lookup(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// StringSlice resolves path as a []string. Overrides, if present, are
// treated as a comma-separated list.
func (w *Wrapper) StringSlice(def []string, path ...string) []string {
	if v, ok := w.override(path); ok {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	if v, ok := w.lookup(path); ok {
		if raw, ok := v.([]any); ok {
			out := make([]string, 0, len(raw))
			for _, item := range raw {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return def
}

// Sub returns a Wrapper scoped to the subtree at path, sharing the same
// prefix so overrides continue to resolve against the full dotted path.
func (w *Wrapper) Sub(path ...string) *Wrapper {
	sub := &Wrapper{prefix: w.prefix}
	if v, ok := w.lookup(path); ok {
		if m, ok := v.(map[string]any); ok {
			sub.tree = m
		}
	}
	if sub.tree == nil {
		sub.tree = map[string]any{}
	}
	// Preserve the full path prefix for override lookups performed
	// directly against the sub-wrapper's own keys.
	sub.prefix = strings.Join(append([]string{w.prefix}, path...), "_")
	return sub
}
