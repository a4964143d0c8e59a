package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Flatten converts a nested map into a flat map with dot-separated keys.
// For example, {"agent": {"binary": "opencode"}} becomes
// {"agent.binary": "opencode"}.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	flatten("", m, out)
	return out
}

func flatten(prefix string, m map[string]any, out map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch child := v.(type) {
		case map[string]any:
			flatten(key, child, out)
		default:
			out[key] = v
		}
	}
}

// ListValues returns the effective configuration as a flat map of
// dot-separated keys.
func ListValues(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return Flatten(m), nil
}

// GetValue returns the value for a dot-separated key from the effective
// configuration.
func GetValue(cfg *Config, key string) (any, error) {
	values, err := ListValues(cfg)
	if err != nil {
		return nil, err
	}
	val, ok := values[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", strings.TrimSpace(key))
	}
	return val, nil
}
