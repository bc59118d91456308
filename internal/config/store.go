package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/Alia5/rawpad/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// Store reads and writes one profile file.
type Store struct {
	path   string
	format string
	logger *slog.Logger
}

// NewStore creates a store for path. The format follows the extension;
// anything unknown is JSON.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, format: configpaths.FormatOf(path), logger: logger}
}

// Path returns the profile file path.
func (s *Store) Path() string { return s.path }

// Load reads the profile. A missing file is not an error: defaults are
// returned and written. An unreadable, malformed or invalid file yields the
// defaults together with an error wrapping ErrConfigLoad, and the file is
// left alone.
func (s *Store) Load() (Profile, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		p := DefaultProfile()
		s.logger.Info("no profile found, writing defaults", "path", s.path)
		if err := s.Save(p); err != nil {
			s.logger.Warn("failed to save default profile", "path", s.path, "error", err)
		}
		return p, nil
	}
	if err != nil {
		return DefaultProfile(), fmt.Errorf("%w: %s: %w", ErrConfigLoad, s.path, err)
	}

	var doc document
	if err := unmarshal(s.format, data, &doc); err != nil {
		return DefaultProfile(), fmt.Errorf("%w: %s: %w", ErrConfigLoad, s.path, err)
	}
	p := doc.profile()
	if err := p.Validate(); err != nil {
		return DefaultProfile(), fmt.Errorf("%w: %s: %w", ErrConfigLoad, s.path, err)
	}
	s.logger.Debug("profile loaded", "path", s.path, "name", p.Name)
	return p, nil
}

// Save writes p, creating the parent directory if needed.
func (s *Store) Save(p Profile) error {
	data, err := Marshal(s.format, p)
	if err != nil {
		return err
	}
	if err := configpaths.EnsureDir(s.path); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Marshal encodes p as json, yaml or toml.
func Marshal(format string, p Profile) ([]byte, error) {
	doc := toDocument(p)
	switch format {
	case "json":
		return json.MarshalIndent(doc, "", "  ")
	case "yaml":
		return yaml.Marshal(doc)
	case "toml":
		return toml.Marshal(doc)
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

func unmarshal(format string, data []byte, doc *document) error {
	switch format {
	case "json":
		return json.Unmarshal(data, doc)
	case "yaml":
		return yaml.Unmarshal(data, doc)
	case "toml":
		return toml.Unmarshal(data, doc)
	}
	return fmt.Errorf("unsupported format: %s", format)
}
