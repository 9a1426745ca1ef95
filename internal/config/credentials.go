package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
)

// knownCredentialsFile is the sidecar index `keychain list` reads,
// tracking which names have been set — go-keyring itself has no
// enumeration API (see internal/credential.Store.List).
const knownCredentialsFile = "known_credentials.json"

// ConfigDir returns Minerva's configuration directory, following the
// teacher's XDG Base Directory convention.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "minerva")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "minerva")
	}
	return filepath.Join(home, ".config", "minerva")
}

func knownCredentialsPath() string {
	return filepath.Join(ConfigDir(), knownCredentialsFile)
}

// LoadKnownCredentialNames returns the credential names `keychain set`
// has recorded. A missing sidecar file is not an error — it just means
// nothing has been recorded yet.
func LoadKnownCredentialNames() ([]string, error) {
	data, err := os.ReadFile(knownCredentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, minerrors.StorageError("failed to read credential index", err)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, minerrors.StorageError("failed to parse credential index", err)
	}
	return names, nil
}

// RecordCredentialName adds name to the sidecar index, deduplicating and
// sorting, creating the config directory if necessary.
func RecordCredentialName(name string) error {
	names, err := LoadKnownCredentialNames()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(names)+1)
	for _, n := range names {
		seen[n] = struct{}{}
	}
	seen[name] = struct{}{}

	merged := make([]string, 0, len(seen))
	for n := range seen {
		merged = append(merged, n)
	}
	sort.Strings(merged)

	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return minerrors.StorageError("failed to create config directory "+dir, err)
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return minerrors.StorageError("failed to encode credential index", err)
	}
	if err := os.WriteFile(knownCredentialsPath(), data, 0o644); err != nil {
		return minerrors.StorageError("failed to write credential index", err)
	}
	return nil
}

// ForgetCredentialName removes name from the sidecar index, used by
// `keychain delete`.
func ForgetCredentialName(name string) error {
	names, err := LoadKnownCredentialNames()
	if err != nil {
		return err
	}

	kept := names[:0]
	for _, n := range names {
		if n != name {
			kept = append(kept, n)
		}
	}

	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return minerrors.StorageError("failed to create config directory "+dir, err)
	}
	data, err := json.MarshalIndent(kept, "", "  ")
	if err != nil {
		return minerrors.StorageError("failed to encode credential index", err)
	}
	if err := os.WriteFile(knownCredentialsPath(), data, 0o644); err != nil {
		return minerrors.StorageError("failed to write credential index", err)
	}
	return nil
}
