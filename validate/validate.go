// Command validate checks every physics preset file (*.json, *.toml) in a
// directory, ../configs by default. It checks:
//   - The file decodes and has no unknown keys
//   - Every setting is within its allowed range and the ball is smaller than a paddle
//   - The serve is slower than a paddle is wide, so no hit is skipped in one tick
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/wricardo/pong-arena/game/config"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validatePreset loads one preset file through the preset manager and adds
// the checks the manager does not make.
func validatePreset(manager *config.Manager, filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	if err := checkKnownFields(filePath); err != nil {
		result.fail("Unknown or malformed keys: %v", err)
		return result
	}

	preset, err := manager.LoadPreset(result.File)
	if err != nil {
		result.fail("Failed to load preset: %v", err)
		return result
	}

	s := preset.Settings
	if s.BallSpeedX >= s.PaddleWidth+2*s.BallRadius {
		result.fail("ball_speed_x (%.1f) must be below paddle_width + ball diameter (%.1f)", s.BallSpeedX, s.PaddleWidth+2*s.BallRadius)
	}

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", preset.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Ball: speed %.1f x %.1f, radius %.0f", s.BallSpeedX, s.BallSpeedY, s.BallRadius))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Paddle: %.0fx%.0f, speed %.1f", s.PaddleWidth, s.PaddleHeight, s.PaddleSpeed))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Score limit: %d", s.ScoreLimit))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Tick rate: %d Hz, broadcast every %d", s.TickRate, s.BroadcastEvery))
	}

	return result
}

// checkKnownFields decodes the file strictly so that misspelled keys are
// reported instead of silently falling back to defaults.
func checkKnownFields(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	var preset config.Preset
	if filepath.Ext(filePath) == ".toml" {
		md, err := toml.Decode(string(data), &preset)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return fmt.Errorf("%s", strings.Join(keys, ", "))
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(&preset)
}

// presetFiles lists the preset files of dir in name order
func presetFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.toml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// run validates dir and prints a concise report. It reports whether every
// preset is valid.
func run(w io.Writer, dir string) (bool, error) {
	manager, err := config.NewManager(dir)
	if err != nil {
		return false, err
	}
	files, err := presetFiles(dir)
	if err != nil {
		return false, fmt.Errorf("error finding preset files: %w", err)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no preset files in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validatePreset(manager, file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All presets are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some presets have errors")
	}
	return allValid, nil
}

func main() {
	dir := "../configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	ok, err := run(os.Stdout, dir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}
