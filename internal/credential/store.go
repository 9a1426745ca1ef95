// Package credential resolves "${NAME}" references (spec C2) against the
// process environment, falling back to the OS keychain, and exposes the
// administrative set/get/list/delete operations that only ever touch the
// keychain.
package credential

import (
	"os"
	"regexp"
	"sort"
	"strings"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
	"github.com/zalando/go-keyring"
)

// ServiceName is the fixed keychain service under which every credential
// is stored, regardless of which provider references it.
const ServiceName = "minerva"

var referencePattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// Store resolves credential references and administers the keychain. It
// has no other state: resolution order is always env-then-keychain, per
// spec §4.1, with no caching — a revoked key or updated env var is
// visible to the very next call.
type Store struct{}

// NewStore constructs a credential Store.
func NewStore() *Store {
	return &Store{}
}

// ParseReference reports whether s is a "${NAME}" template and, if so,
// returns the bare variable name.
func ParseReference(s string) (name string, isReference bool) {
	m := referencePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Resolve returns the secret behind reference. A literal (non-template)
// string is returned unchanged — callers never need to special-case
// providers with no credential at all.
func (s *Store) Resolve(reference string) (string, error) {
	if reference == "" {
		return "", nil
	}
	name, isRef := ParseReference(reference)
	if !isRef {
		return reference, nil
	}

	if v := os.Getenv(name); v != "" {
		return v, nil
	}

	secret, err := keyring.Get(ServiceName, name)
	if err == nil {
		return secret, nil
	}

	return "", minerrors.CredentialMissing(
		"unresolved credential reference "+reference, err).
		WithDetail("variable", name).
		WithSuggestion("export " + name + "=... or run: minerva keychain set " + name)
}

// Set stores a credential in the OS keychain under account name.
func (s *Store) Set(name, secret string) error {
	if err := keyring.Set(ServiceName, name, secret); err != nil {
		return minerrors.StorageError("failed to write keychain entry "+name, err)
	}
	return nil
}

// Get reads a credential directly from the OS keychain, bypassing the
// environment — used by the `keychain get` administrative command.
func (s *Store) Get(name string) (string, error) {
	secret, err := keyring.Get(ServiceName, name)
	if err != nil {
		return "", minerrors.CredentialMissing("no keychain entry "+name, err).
			WithDetail("variable", name)
	}
	return secret, nil
}

// Delete removes a credential from the OS keychain.
func (s *Store) Delete(name string) error {
	if err := keyring.Delete(ServiceName, name); err != nil {
		return minerrors.StorageError("failed to delete keychain entry "+name, err)
	}
	return nil
}

// List returns the account names known to the go-keyring backend.
//
// go-keyring exposes no native enumeration API (it wraps each OS's
// single-secret get/set/delete primitives, not its directory listing), so
// List only reports names this process has been told about explicitly via
// known — administrators enumerate what they've set, not what's on
// disk. Names are trimmed, deduplicated and returned sorted.
func (s *Store) List(known []string) []string {
	seen := make(map[string]struct{}, len(known))
	var out []string
	for _, name := range known {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
