package settings

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
)

// CurrentVersion of the persisted settings shape. Bump together with a new
// step in migrate().
const CurrentVersion = 3

// Settings is the cached client state restored at boot. It is an explicit
// versioned value; shape changes go through migrate() once at load instead of
// ad hoc patching at the call sites.
type Settings struct {
	Version       int     `json:"version"`
	Provider      string  `json:"provider"`
	Model         string  `json:"model"`
	Temperature   float32 `json:"temperature"`
	CachedOwnerID string  `json:"cached_owner_id,omitempty"`
}

func defaults() *Settings {
	return &Settings{
		Version:     CurrentVersion,
		Provider:    "gemini",
		Temperature: 0.2,
	}
}

// Load reads the settings file, migrating older shapes forward. A missing
// file yields defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaults(), nil
	}
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// corrupted cache is not fatal; start over
		return defaults(), nil
	}
	raw = migrate(raw)

	migrated, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	s := defaults()
	if err := json.Unmarshal(migrated, s); err != nil {
		return defaults(), nil
	}
	s.Version = CurrentVersion
	return s, nil
}

// Save persists the current shape.
func (s *Settings) Save(path string) error {
	s.Version = CurrentVersion
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ClearIdentity drops cached identity-scoped state (sign-out path).
func (s *Settings) ClearIdentity() {
	s.CachedOwnerID = ""
}

// migrate walks the version chain one step at a time.
func migrate(raw map[string]json.RawMessage) map[string]json.RawMessage {
	version := 1
	if v, ok := raw["version"]; ok {
		_ = json.Unmarshal(v, &version)
	}

	if version < 2 {
		// v1 named the field default_provider
		if v, ok := raw["default_provider"]; ok {
			raw["provider"] = v
			delete(raw, "default_provider")
		}
	}
	if version < 3 {
		// v2 stored temperature as a string
		if v, ok := raw["temperature"]; ok {
			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				if f, err := strconv.ParseFloat(s, 32); err == nil {
					b, _ := json.Marshal(float32(f))
					raw["temperature"] = b
				} else {
					delete(raw, "temperature")
				}
			}
		}
	}

	b, _ := json.Marshal(CurrentVersion)
	raw["version"] = b
	return raw
}
