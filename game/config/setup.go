package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wricardo/pong-arena/game/engine"
)

var ErrSetupUnavailable = errors.New("game setup unavailable")

// setupResponse is the body returned by the game service for one game.
// Settings, when present, override the named preset field by field.
type setupResponse struct {
	Preset   string                 `json:"preset"`
	Settings json.RawMessage        `json:"settings,omitempty"`
	Sides    map[string]engine.Side `json:"sides,omitempty"`
}

// HTTPSource fetches per-game setup from the game service at
// GET {baseURL}/{gameID}. Presets named in the response resolve through presets.
type HTTPSource struct {
	baseURL    string
	presets    *Manager
	httpClient *http.Client
}

// NewHTTPSource creates a setup source backed by the game service.
func NewHTTPSource(baseURL string, presets *Manager, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		presets:    presets,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Setup asks the game service how gameID should be played.
func (h *HTTPSource) Setup(ctx context.Context, gameID string) (*GameSetup, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/"+url.PathEscape(gameID), nil)
	if err != nil {
		return nil, fmt.Errorf("build setup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSetupUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: game service returned %d", ErrSetupUnavailable, resp.StatusCode)
	}

	var body setupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSetupUnavailable, err)
	}

	setup, err := h.presets.Setup(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if body.Preset != "" {
		preset, err := h.presets.LoadPreset(body.Preset)
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", body.Preset, err)
		}
		setup.Preset = body.Preset
		setup.Settings = preset.Settings
	}
	if len(body.Settings) > 0 {
		if err := json.Unmarshal(body.Settings, &setup.Settings); err != nil {
			return nil, fmt.Errorf("%w: settings: %v", ErrInvalidPreset, err)
		}
		if err := engine.ValidateSettings(&setup.Settings); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
		}
	}
	setup.Sides = body.Sides

	return setup, nil
}
