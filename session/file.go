package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileName is the default file store name inside a project directory.
const FileName = ".remis.session"

// fileVersion is the on-disk format version.
const fileVersion = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// FileStore keeps values in a YAML document. Every mutation rewrites the
// file; a mutation whose write fails is undone in memory.
type FileStore struct {
	Version int               `yaml:"version"`
	Values  map[string]string `yaml:"values"`

	mu     sync.Mutex `yaml:"-"`
	path   string     `yaml:"-"`
	closed bool       `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// OpenFileStore reads the store at path. A missing file yields an empty
// store; the file is created on the first write. A directory path gets
// FileName appended.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path not set")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, FileName)
	}

	fs := &FileStore{
		Version: fileVersion,
		Values:  make(map[string]string),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, fs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if fs.Values == nil {
		fs.Values = make(map[string]string)
	}
	if fs.Version > fileVersion {
		return nil, fmt.Errorf("%s: unsupported version %d", path, fs.Version)
	}
	fs.Version = fileVersion
	return fs, nil
}

// save writes the store to a temporary file and renames it over the
// store file. Callers hold fs.mu.
func (fs *FileStore) save() error {
	data, err := yaml.Marshal(fs)
	if err != nil {
		return fmt.Errorf("marshaling session store: %w", err)
	}
	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", fs.path, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", fs.path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", fs.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", fs.path, err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("replacing %s: %w", fs.path, err)
	}
	return nil
}

// Path returns the store file path.
func (fs *FileStore) Path() string {
	return fs.path
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

func (fs *FileStore) Get(key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return "", false, ErrClosed
	}
	v, ok := fs.Values[key]
	return v, ok, nil
}

func (fs *FileStore) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return ErrClosed
	}
	old, had := fs.Values[key]
	if had && old == value {
		return nil
	}
	fs.Values[key] = value
	if err := fs.save(); err != nil {
		if had {
			fs.Values[key] = old
		} else {
			delete(fs.Values, key)
		}
		return err
	}
	return nil
}

func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return ErrClosed
	}
	old, ok := fs.Values[key]
	if !ok {
		return nil
	}
	delete(fs.Values, key)
	if err := fs.save(); err != nil {
		fs.Values[key] = old
		return err
	}
	return nil
}

func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.closed = true
	return nil
}

// Keys returns the stored keys, sorted.
func (fs *FileStore) Keys() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	keys := make([]string, 0, len(fs.Values))
	for k := range fs.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
