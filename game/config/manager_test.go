package config

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/pong-arena/game/engine"
)

func writePresetFile(t *testing.T, dir, filename, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(body), 0644))
}

func createPresetDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writePresetFile(t, dir, "classic.json", `{"name":"Classic","description":"first to five","settings":{"score_limit":5}}`)
	writePresetFile(t, dir, "rally.toml", "name = \"Rally\"\ndescription = \"fast\"\n\n[settings]\nball_speed_x = 7\npaddle_height = 80\n")
	return dir
}

func TestNewManager(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := NewManager(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("classic becomes default", func(t *testing.T) {
		m, err := NewManager(createPresetDir(t))
		require.NoError(t, err)
		assert.Equal(t, "Classic", m.GetDefault().Name)
	})

	t.Run("first preset when no classic", func(t *testing.T) {
		dir := t.TempDir()
		writePresetFile(t, dir, "zen.json", `{"name":"Zen","settings":{}}`)
		writePresetFile(t, dir, "arcade.json", `{"name":"Arcade","settings":{}}`)

		m, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, "Arcade", m.GetDefault().Name)
	})

	t.Run("empty directory uses built-ins", func(t *testing.T) {
		m, err := NewManager(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "default", m.GetDefault().Name)
		assert.Equal(t, engine.DefaultSettings(), m.GetDefault().Settings)
	})
}

func TestLoadPreset(t *testing.T) {
	dir := createPresetDir(t)
	writePresetFile(t, dir, "broken.json", `{"name":`)
	writePresetFile(t, dir, "invalid.json", `{"name":"Bad","settings":{"tick_rate":0}}`)

	m, err := NewManager(dir)
	require.NoError(t, err)

	t.Run("json fills defaults", func(t *testing.T) {
		p, err := m.LoadPreset("classic")
		require.NoError(t, err)
		assert.Equal(t, 5, p.Settings.ScoreLimit)
		assert.Equal(t, 60, p.Settings.TickRate)
		assert.Equal(t, 4.0, p.Settings.BallSpeedX)
	})

	t.Run("toml", func(t *testing.T) {
		p, err := m.LoadPreset("rally.toml")
		require.NoError(t, err)
		assert.Equal(t, "Rally", p.Name)
		assert.Equal(t, 7.0, p.Settings.BallSpeedX)
		assert.Equal(t, 80.0, p.Settings.PaddleHeight)
		assert.Equal(t, 8.0, p.Settings.PaddleSpeed)
	})

	t.Run("cached", func(t *testing.T) {
		a, _ := m.LoadPreset("classic")
		b, _ := m.LoadPreset("classic")
		assert.Same(t, a, b)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := m.LoadPreset("missing")
		assert.True(t, errors.Is(err, ErrPresetNotFound))
	})

	t.Run("path traversal", func(t *testing.T) {
		_, err := m.LoadPreset("../classic")
		assert.True(t, errors.Is(err, ErrPresetNotFound))
	})

	t.Run("parse error", func(t *testing.T) {
		_, err := m.LoadPreset("broken")
		assert.True(t, errors.Is(err, ErrInvalidPreset))
	})

	t.Run("validation error", func(t *testing.T) {
		_, err := m.LoadPreset("invalid")
		assert.True(t, errors.Is(err, ErrInvalidPreset))
	})
}

func TestListPresetsSkipsInvalid(t *testing.T) {
	dir := createPresetDir(t)
	writePresetFile(t, dir, "invalid.json", `{"settings":{"paddle_speed":-3}}`)
	writePresetFile(t, dir, "notes.txt", "ignored")

	m, err := NewManager(dir)
	require.NoError(t, err)

	presets, err := m.ListPresets()
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, "classic", presets[0].PresetID)
	assert.Equal(t, "rally", presets[1].PresetID)
	assert.Equal(t, "rally.toml", presets[1].Filename)
}

func TestSavePresetAndRefresh(t *testing.T) {
	dir := createPresetDir(t)
	m, err := NewManager(dir)
	require.NoError(t, err)

	custom := &Preset{Name: "Custom", Description: "saved", Settings: engine.DefaultSettings()}
	custom.Settings.ScoreLimit = 21
	require.NoError(t, m.SavePreset("custom", custom))

	m.RefreshCache()
	loaded, err := m.LoadPreset("custom")
	require.NoError(t, err)
	assert.Equal(t, 21, loaded.Settings.ScoreLimit)
	assert.Equal(t, "Classic", m.GetDefault().Name)

	bad := &Preset{Name: "Bad", Settings: engine.Settings{}}
	assert.True(t, errors.Is(m.SavePreset("bad", bad), ErrInvalidPreset))
	assert.Error(t, m.SavePreset("../escape", custom))
}

func TestManagerSetup(t *testing.T) {
	m, err := NewManager(createPresetDir(t))
	require.NoError(t, err)

	setup, err := m.Setup(context.Background(), "game-1")
	require.NoError(t, err)
	assert.Equal(t, "game-1", setup.GameID)
	assert.Equal(t, "classic", setup.Preset)
	assert.Empty(t, setup.Sides)

	_, pinned := setup.SideFor("anyone")
	assert.False(t, pinned)
}

func TestManagerConcurrentLoads(t *testing.T) {
	m, err := NewManager(createPresetDir(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "classic"
			if i%2 == 0 {
				name = "rally"
			}
			_, err := m.LoadPreset(name)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}

func TestHTTPSource(t *testing.T) {
	m, err := NewManager(createPresetDir(t))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/games/ranked-1":
			json.NewEncoder(w).Encode(map[string]any{
				"preset":   "rally",
				"settings": map[string]any{"score_limit": 3},
				"sides":    map[string]string{"alice": "p1", "bob": "p2"},
			})
		case "/games/broken":
			w.Write([]byte("{"))
		case "/games/bad-settings":
			json.NewEncoder(w).Encode(map[string]any{"settings": map[string]any{"tick_rate": 0}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/games/", m, 0)
	ctx := context.Background()

	setup, err := src.Setup(ctx, "ranked-1")
	require.NoError(t, err)
	assert.Equal(t, "rally", setup.Preset)
	assert.Equal(t, 7.0, setup.Settings.BallSpeedX)
	assert.Equal(t, 3, setup.Settings.ScoreLimit)

	side, pinned := setup.SideFor("bob")
	assert.True(t, pinned)
	assert.Equal(t, engine.SideRight, side)
	side, _ = setup.SideFor("mallory")
	assert.Equal(t, engine.SideSpectator, side)

	_, err = src.Setup(ctx, "unknown")
	assert.True(t, errors.Is(err, ErrSetupUnavailable))

	_, err = src.Setup(ctx, "broken")
	assert.True(t, errors.Is(err, ErrSetupUnavailable))

	_, err = src.Setup(ctx, "bad-settings")
	assert.True(t, errors.Is(err, ErrInvalidPreset))
}
