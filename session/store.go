// Package session persists small pieces of editor state between runs:
// the selected project and file, the project filter, per-file drafts
// and, for the local backend, kanban statuses.
//
// Three stores are available. MemoryStore keeps values for the lifetime
// of the process, FileStore keeps them in a YAML document next to the
// project, and SQLiteStore keeps them in a key/value table.
package session

import (
	"errors"
	"fmt"
	"strings"
)

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("session store closed")

// Store is a string key/value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores value under key.
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Close releases resources held by the store.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Drivers returns the supported driver names.
func Drivers() []string {
	return []string{DriverMemory, DriverFile, DriverSQLite}
}

// Open returns a store for driver. path is ignored by the memory driver.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return OpenFileStore(path)
	case DriverSQLite:
		return OpenSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported session store driver %q (supported: %s)",
			driver, strings.Join(Drivers(), ", "))
	}
}
