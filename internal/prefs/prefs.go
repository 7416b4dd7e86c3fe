// Package prefs persists trolley user preferences in
// ~/.config/trolley/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs are the settings the UI changes at runtime.
type Prefs struct {
	Theme string `toml:"theme"`
	// ConfirmRemove asks before deleting a cart line.
	ConfirmRemove bool `toml:"confirm_remove"`
}

const (
	defaultPrefsPath = "~/.config/trolley/prefs.toml"
	defaultTheme     = "Dracula"
)

// Default returns the preferences used when no file exists.
func Default() Prefs {
	return Prefs{Theme: defaultTheme, ConfirmRemove: true}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// filePrefs mirrors Prefs with optional fields so absent keys keep defaults.
type filePrefs struct {
	Theme         string `toml:"theme"`
	ConfirmRemove *bool  `toml:"confirm_remove"`
}

// Load reads preferences from path (empty means DefaultPath). A missing file
// yields Default with no error. A malformed file also yields Default, along
// with the parse error so the caller can log it.
func Load(path string) (Prefs, error) {
	p := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		return p, err
	}
	data, err := os.ReadFile(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read prefs: %w", err)
	}

	var raw filePrefs
	if err := toml.Unmarshal(data, &raw); err != nil {
		return p, fmt.Errorf("parse prefs %s: %w", resolved, err)
	}
	if theme := strings.TrimSpace(raw.Theme); theme != "" {
		p.Theme = theme
	}
	if raw.ConfirmRemove != nil {
		p.ConfirmRemove = *raw.ConfirmRemove
	}
	return p, nil
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// Update loads the stored preferences, applies fn and saves the result, so a
// change to one setting keeps the others. An unreadable file starts from
// Default.
func Update(path string, fn func(*Prefs)) (Prefs, error) {
	p, _ := Load(path)
	fn(&p)
	return p, Save(path, p)
}

func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultPrefsPath
	}
	if rest, ok := strings.CutPrefix(trimmed, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, rest)
	}
	return filepath.Abs(trimmed)
}
