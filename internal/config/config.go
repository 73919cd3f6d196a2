// Package config carries the user-tunable defaults for the backtree
// commands, read from a small TOML file in the user's config directory.
// Every setting maps to a command-line flag, with the flag winning on
// conflict.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"backtree/internal/pathtree"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/pgzip"
	"github.com/spf13/afero"
)

// EnvVar overrides the settings file location when set.
const EnvVar = "BACKTREE_CONFIG"

// Sibling orderings accepted by the Order setting.
const (
	OrderDirsFirst  = "dirs-first"
	OrderFilesFirst = "files-first"
)

const bytesPerMB = 1e6

// ErrInvalidParameter is returned when a setting holds a nonsensical value,
// whether it came from the settings file or a command-line flag.
var ErrInvalidParameter = errors.New("invalid parameter")

// Settings tunes the defaults of the backtree commands.
type Settings struct {
	ShowMB    float64  `toml:"show_mb"`
	FileMaxMB float64  `toml:"filemax_mb"`
	MaxDepth  int      `toml:"max_depth"`
	Order     string   `toml:"order"`
	MaxItems  int      `toml:"max_items"`
	Level     int      `toml:"level"`
	Exclude   []string `toml:"exclude"`
}

// DefaultSettings are the stock settings active without a settings file.
var DefaultSettings = Settings{
	ShowMB:    1,
	FileMaxMB: -1,
	MaxDepth:  -1,
	Order:     OrderDirsFirst,
	MaxItems:  1000,
	Level:     pgzip.DefaultCompression,
}

// Validate reports the first nonsensical value among the settings.
func (s *Settings) Validate() error {
	if math.IsNaN(s.ShowMB) || math.IsInf(s.ShowMB, 0) {
		return fmt.Errorf("%w: show threshold must be a finite number", ErrInvalidParameter)
	}

	if math.IsNaN(s.FileMaxMB) || math.IsInf(s.FileMaxMB, 0) {
		return fmt.Errorf("%w: file size ceiling must be a finite number", ErrInvalidParameter)
	}

	if s.Order != OrderDirsFirst && s.Order != OrderFilesFirst {
		return fmt.Errorf("%w: unknown sibling order %q", ErrInvalidParameter, s.Order)
	}

	if s.MaxItems <= 0 {
		return fmt.Errorf("%w: display item limit must be positive", ErrInvalidParameter)
	}

	if s.Level < pgzip.DefaultCompression || s.Level > pgzip.BestCompression {
		return fmt.Errorf("%w: compression level %d is out of range", ErrInvalidParameter, s.Level)
	}

	return nil
}

// ShowBytes converts the display threshold to bytes.
func (s *Settings) ShowBytes() int64 {
	return int64(s.ShowMB * bytesPerMB)
}

// FileMaxBytes converts the file size ceiling to bytes, with non-positive
// values meaning no ceiling.
func (s *Settings) FileMaxBytes() int64 {
	if s.FileMaxMB <= 0 {
		return -1
	}

	return int64(s.FileMaxMB * bytesPerMB)
}

// TreeOrder maps the textual order setting to its tree counterpart.
func (s *Settings) TreeOrder() pathtree.Order {
	if s.Order == OrderFilesFirst {
		return pathtree.OrderFilesFirst
	}

	return pathtree.OrderDirsFirst
}

// Manager handles reading and writing the settings file.
type Manager struct{}

// Read decodes Settings from the provided reader, with absent keys keeping
// their stock value.
func (m *Manager) Read(r io.Reader) (*Settings, error) {
	s := DefaultSettings

	if _, err := toml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	return &s, nil
}

// Write encodes Settings to the provided writer.
func (m *Manager) Write(w io.Writer, s *Settings) error {
	if err := toml.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	return nil
}

// Path returns the settings file location, preferring the BACKTREE_CONFIG
// environment variable over the default ~/.config/backtree.toml.
func Path() (string, error) {
	if path := os.Getenv(EnvVar); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "backtree.toml"), nil
}

// Load reads and validates the settings at path, falling back to the stock
// settings when no file exists there yet.
func Load(fsys afero.Fs, path string) (*Settings, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s := DefaultSettings

			return &s, nil
		}

		return nil, fmt.Errorf("failed to open settings file: %w", err)
	}
	defer f.Close()

	m := &Manager{}

	s, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading settings from %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}

	return s, nil
}
