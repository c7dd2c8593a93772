// Package store persists settings and session records on the local file
// system.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/domain/errors"
	"github.com/gal-dev/galrt/domain/ports"
	"github.com/gal-dev/galrt/wireformat"
)

const (
	settingsFile = "settings.yaml"
	saveDir      = "save"
	recordExt    = ".cbor"
)

type fileStoreConfig struct {
	baseDir  string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

func defaultFileStoreConfig() fileStoreConfig {
	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(os.TempDir(), "galrt")
	}
	return fileStoreConfig{
		baseDir:  base,
		dirPerm:  0o755,
		filePerm: 0o600,
	}
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*fileStoreConfig)

// WithBaseDir sets the directory holding one subdirectory per installation
// identifier. Default is os.UserConfigDir.
func WithBaseDir(dir string) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.baseDir = dir
	}
}

// WithFilePermissions sets the mode of written files. Default is 0o600.
func WithFilePermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.filePerm = perm
	}
}

// WithDirPermissions sets the mode of created directories. Default is 0o755.
func WithDirPermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.dirPerm = perm
	}
}

// FileStore keeps settings as YAML at <base>/<ident>/settings.yaml and
// records as CBOR at <base>/<ident>/save/<game>/<index>.cbor.
type FileStore struct {
	config   fileStoreConfig
	validate *validator.Validate
}

var (
	_ ports.SettingsStore = (*FileStore)(nil)
	_ ports.RecordStore   = (*FileStore)(nil)
)

// NewFileStore returns a FileStore.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	cfg := defaultFileStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FileStore{config: cfg, validate: validator.New()}
}

// BaseDir returns the directory the store writes under.
func (s *FileStore) BaseDir() string {
	return s.config.baseDir
}

// LoadSettings returns the settings of ident, or zero Settings if none were
// saved.
func (s *FileStore) LoadSettings(ctx context.Context, ident string) (entities.Settings, error) {
	if err := ctx.Err(); err != nil {
		return entities.Settings{}, err
	}
	path, err := s.settingsPath(ident)
	if err != nil {
		return entities.Settings{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return entities.Settings{}, nil
	}
	if err != nil {
		return entities.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var settings entities.Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return entities.Settings{}, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if err := s.validateSettings(settings); err != nil {
		return entities.Settings{}, err
	}
	return settings, nil
}

// SaveSettings validates and writes the settings of ident.
func (s *FileStore) SaveSettings(ctx context.Context, ident string, settings entities.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.validateSettings(settings); err != nil {
		return err
	}
	path, err := s.settingsPath(ident)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return s.writeFile(path, data)
}

// LoadRecords returns the records of game in index order. A game without
// records yields an empty list.
func (s *FileStore) LoadRecords(ctx context.Context, ident, game string) ([]entities.RawContext, error) {
	dir, err := s.recordsDir(ident, game)
	if err != nil {
		return nil, err
	}
	indexes, err := recordIndexes(dir)
	if err != nil {
		return nil, err
	}

	records := make([]entities.RawContext, 0, len(indexes))
	for _, i := range indexes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, recordName(i))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		var rec entities.RawContext
		if err := wireformat.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse record %s: %w", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// SaveRecords writes records as 0.cbor, 1.cbor, ... and removes records
// beyond the new list.
func (s *FileStore) SaveRecords(ctx context.Context, ident, game string, records []entities.RawContext) error {
	dir, err := s.recordsDir(ident, game)
	if err != nil {
		return err
	}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := wireformat.Marshal(rec)
		if err != nil {
			return err
		}
		if err := s.writeFile(filepath.Join(dir, recordName(i)), data); err != nil {
			return err
		}
	}

	existing, err := recordIndexes(dir)
	if err != nil {
		return err
	}
	for _, i := range existing {
		if i < len(records) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, recordName(i))); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale record: %w", err)
		}
	}
	return nil
}

func (s *FileStore) validateSettings(settings entities.Settings) error {
	if err := s.validate.Struct(settings); err != nil {
		field := ""
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			field = verrs[0].Field()
		}
		return &errors.ConfigError{Field: field, Err: err}
	}
	return nil
}

func (s *FileStore) settingsPath(ident string) (string, error) {
	if err := checkName("identifier", ident); err != nil {
		return "", err
	}
	return filepath.Join(s.config.baseDir, ident, settingsFile), nil
}

func (s *FileStore) recordsDir(ident, game string) (string, error) {
	if err := checkName("identifier", ident); err != nil {
		return "", err
	}
	if err := checkName("game", game); err != nil {
		return "", err
	}
	return filepath.Join(s.config.baseDir, ident, saveDir, game), nil
}

func (s *FileStore) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), s.config.dirPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, s.config.filePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// checkName rejects names that would escape the store directory.
func checkName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid %s %q", kind, name)
	}
	return nil
}

func recordName(i int) string {
	return strconv.Itoa(i) + recordExt
}

// recordIndexes lists the record indexes in dir in ascending order. Files
// that are not <n>.cbor are ignored.
func recordIndexes(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	var indexes []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != recordExt {
			continue
		}
		i, err := strconv.Atoi(strings.TrimSuffix(name, recordExt))
		if err != nil || i < 0 {
			continue
		}
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	return indexes, nil
}
