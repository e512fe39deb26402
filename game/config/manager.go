package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/wricardo/pong-arena/game/engine"
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrInvalidPreset  = errors.New("invalid preset")
)

// Supported preset file extensions, in lookup order
var presetExtensions = []string{".json", ".toml"}

// Manager handles preset loading and caching
type Manager struct {
	presetDir     string
	defaultName   string
	defaultPreset *Preset
	presets       map[string]*Preset
	mu            sync.RWMutex
}

// NewManager creates a new preset manager. A missing directory is an error;
// an empty one falls back to built-in settings.
func NewManager(presetDir string) (*Manager, error) {
	if _, err := os.Stat(presetDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("preset directory does not exist: %s", presetDir)
	}

	m := &Manager{
		presetDir: presetDir,
		presets:   make(map[string]*Preset),
	}

	m.loadDefaultPreset()
	return m, nil
}

// LoadPreset loads a preset by name
func (m *Manager) LoadPreset(name string) (*Preset, error) {
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".json"), ".toml")
	if name == "" || name != filepath.Base(name) {
		return nil, ErrPresetNotFound
	}

	m.mu.RLock()
	if preset, exists := m.presets[name]; exists {
		m.mu.RUnlock()
		return preset, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if preset, exists := m.presets[name]; exists {
		return preset, nil
	}

	preset, err := m.readPreset(name)
	if err != nil {
		return nil, err
	}

	m.presets[name] = preset
	return preset, nil
}

// readPreset decodes name.json or name.toml, whichever exists first.
func (m *Manager) readPreset(name string) (*Preset, error) {
	for _, ext := range presetExtensions {
		data, err := os.ReadFile(filepath.Join(m.presetDir, name+ext))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read preset file: %w", err)
		}

		preset := &Preset{Name: name, Settings: engine.DefaultSettings()}
		if ext == ".toml" {
			err = toml.Unmarshal(data, preset)
		} else {
			err = json.Unmarshal(data, preset)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s%s: %v", ErrInvalidPreset, name, ext, err)
		}

		if err := engine.ValidateSettings(&preset.Settings); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
		}
		return preset, nil
	}
	return nil, ErrPresetNotFound
}

// ListPresets returns information about all loadable presets, sorted by id
func (m *Manager) ListPresets() ([]*PresetInfo, error) {
	entries, err := os.ReadDir(m.presetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset directory: %w", err)
	}

	seen := make(map[string]bool)
	var presets []*PresetInfo

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".json" && ext != ".toml") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ext)
		if seen[id] {
			continue
		}

		preset, err := m.LoadPreset(id)
		if err != nil {
			// Skip invalid presets
			continue
		}
		seen[id] = true

		presets = append(presets, &PresetInfo{
			Filename:    entry.Name(),
			PresetID:    id,
			Name:        preset.Name,
			Description: preset.Description,
			Settings:    preset.Settings,
		})
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].PresetID < presets[j].PresetID })
	return presets, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SetDefault sets the default preset by name
func (m *Manager) SetDefault(name string) error {
	preset, err := m.LoadPreset(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPreset = preset
	m.defaultName = name
	return nil
}

// RefreshCache drops cached presets and reloads the default from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.presets = make(map[string]*Preset)
	name := m.defaultName
	m.mu.Unlock()

	if name != "" {
		if err := m.SetDefault(name); err == nil {
			return
		}
	}
	m.loadDefaultPreset()
}

// SavePreset writes a preset to disk as JSON
func (m *Manager) SavePreset(name string, preset *Preset) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("%w: bad preset name %q", ErrInvalidPreset, name)
	}
	if err := engine.ValidateSettings(&preset.Settings); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}

	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}

	path := filepath.Join(m.presetDir, strings.TrimSuffix(name, ".json")+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}

	m.mu.Lock()
	m.presets[strings.TrimSuffix(name, ".json")] = preset
	m.mu.Unlock()

	return nil
}

// Setup returns the default preset for any game, with no side assignment.
func (m *Manager) Setup(ctx context.Context, gameID string) (*GameSetup, error) {
	m.mu.RLock()
	preset, id := m.defaultPreset, m.defaultName
	m.mu.RUnlock()

	if id == "" {
		id = "default"
	}
	return &GameSetup{
		GameID:   gameID,
		Preset:   id,
		Settings: preset.Settings,
	}, nil
}

// loadDefaultPreset prefers classic, then the first loadable preset, then built-ins.
func (m *Manager) loadDefaultPreset() {
	if err := m.SetDefault("classic"); err == nil {
		return
	}

	presets, err := m.ListPresets()
	if err == nil && len(presets) > 0 {
		if err := m.SetDefault(presets[0].PresetID); err == nil {
			return
		}
	}

	m.mu.Lock()
	m.defaultPreset = &Preset{
		Name:        "default",
		Description: "Built-in settings",
		Settings:    engine.DefaultSettings(),
	}
	m.defaultName = ""
	m.mu.Unlock()
}
