// Package settings stores remis user credentials.
//
// Credentials live in the XDG data directory:
//
//	$XDG_DATA_HOME/remis/auth.json  (default: ~/.local/share/remis/auth.json)
//
// The file is a JSON object keyed by provider ID. The "remis" entry is
// the token sent to a remote proofreading backend; other entries hold
// API keys for the translation providers the backend may call on the
// user's behalf. File permissions are 0600.
//
// Lookup order for the backend token:
//  1. --token flag
//  2. REMIS_TOKEN environment variable
//  3. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	dataDirName = "remis"
	fileName    = "auth.json"

	// BackendProvider is the provider ID of the backend token.
	BackendProvider = "remis"
	// TokenEnv overrides the stored backend token.
	TokenEnv = "REMIS_TOKEN"
)

// KnownProviders lists provider IDs that the CLI offers for completion.
var KnownProviders = []string{BackendProvider, "openai", "gemini", "anthropic", "deepseek", "ollama"}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Info is one stored credential.
type Info struct {
	Key string `json:"key"`
	// BaseURL is an optional endpoint override.
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds all credentials, keyed by provider ID.
type Store map[string]*Info

// Providers returns the stored provider IDs, sorted.
func (s Store) Providers() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// DataDir returns the remis data directory. Respects $XDG_DATA_HOME.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the credential store. A missing or invalid file yields an
// empty store.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the credential store with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// Get returns the entry for a provider, or nil.
func Get(providerID string) *Info {
	return Load()[providerID]
}

// Set stores a key for a provider (upsert).
func Set(providerID, key, baseURL string) error {
	if providerID == "" {
		return fmt.Errorf("provider ID is empty")
	}
	if key == "" {
		return fmt.Errorf("key for %s is empty", providerID)
	}
	store := Load()
	store[providerID] = &Info{Key: key, BaseURL: baseURL}
	return Save(store)
}

// Remove deletes the credential for a provider.
func Remove(providerID string) error {
	store := Load()
	if _, ok := store[providerID]; !ok {
		return nil
	}
	delete(store, providerID)
	return Save(store)
}

// RemoveAll deletes the credential file.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// BackendToken resolves the backend token: explicit flag value, then
// TokenEnv, then the stored "remis" entry.
func BackendToken(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(TokenEnv); env != "" {
		return env
	}
	if info := Get(BackendProvider); info != nil {
		return info.Key
	}
	return ""
}

// MaskKey returns a masked version of a key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
