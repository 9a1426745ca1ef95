// Package discovery implements startup collection discovery (spec C7): at
// server startup, enumerate every collection in the vector store,
// reconstruct a provider for each from its collection metadata, probe
// availability, and publish an immutable in-memory registry the MCP tool
// surface and Search Engine look entries up in for the lifetime of the
// process.
package discovery

import (
	"context"
	"fmt"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
	"github.com/michele-orsini-71/minerva/internal/provider"
	"github.com/michele-orsini-71/minerva/internal/vectorstore"
)

// Entry is one collection's discovery outcome (spec §4.7 step 4).
type Entry struct {
	Name      string
	Handle    *vectorstore.Handle
	Provider  provider.Provider // nil unless Available
	Metadata  vectorstore.CollectionMetadata
	Available bool
	Reason    string // populated only when Available is false
}

// Registry is the immutable {collectionName → Entry} map published at
// startup. New collections require a server restart to appear (spec §4.7).
type Registry struct {
	entries map[string]Entry
}

// NewRegistry builds a Registry directly from a pre-populated entry map,
// bypassing Discover, for callers that already hold Entry values (the
// search, MCP and CLI tests build their registries this way) and need no
// full-store scan or provider probe.
func NewRegistry(entries map[string]Entry) *Registry {
	return &Registry{entries: entries}
}

// Lookup returns the entry for name, if any was discovered.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// List returns every discovered entry, available or not.
func (r *Registry) List() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// AvailableCount reports how many collections passed their provider check.
func (r *Registry) AvailableCount() int {
	n := 0
	for _, e := range r.entries {
		if e.Available {
			n++
		}
	}
	return n
}

// Close releases every discovered provider's resources. Called once at
// server shutdown.
func (r *Registry) Close() error {
	var firstErr error
	for _, e := range r.entries {
		if e.Provider == nil {
			continue
		}
		if err := e.Provider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Discover runs the spec §4.7 startup sequence against store, resolving
// provider credentials through resolver. It fails only when the store
// cannot list its collections — a
// collection that cannot be made available is recorded unavailable with a
// reason, and the registry is still published with zero available entries
// if that's all discovery found (callers report this, per spec §4.7 step 5).
func Discover(ctx context.Context, store vectorstore.Store, resolver provider.Resolver) (*Registry, error) {
	infos, err := store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]Entry, len(infos))
	for _, info := range infos {
		entries[info.Name] = discoverOne(ctx, store, resolver, info)
	}
	return &Registry{entries: entries}, nil
}

func discoverOne(ctx context.Context, store vectorstore.Store, resolver provider.Resolver, info vectorstore.CollectionInfo) Entry {
	entry := Entry{Name: info.Name, Metadata: info.Metadata}

	if info.Metadata.Version != vectorstore.CurrentMetadataVersion {
		entry.Reason = "legacy v1 collection"
		return entry
	}

	handle, err := store.GetCollection(ctx, info.Name)
	if err != nil {
		entry.Reason = "storage error: " + err.Error()
		return entry
	}
	entry.Handle = handle

	cfg := reconstructProviderConfig(info.Metadata)
	if !cfg.Kind.IsValid() {
		entry.Reason = "unknown provider type"
		return entry
	}

	p, err := provider.New(ctx, cfg, resolver)
	if err != nil {
		entry.Reason = credentialReason(err)
		return entry
	}

	check := p.Check(ctx)
	if !check.Available {
		entry.Reason = check.Reason
		_ = p.Close()
		return entry
	}
	if check.Dimension != info.Metadata.EmbeddingDimension {
		entry.Reason = fmt.Sprintf("dimension mismatch %d vs %d", check.Dimension, info.Metadata.EmbeddingDimension)
		_ = p.Close()
		return entry
	}

	entry.Provider = p
	entry.Available = true
	return entry
}

// reconstructProviderConfig implements spec §4.5's read-side contract:
// copy provider type/models/base URL from metadata, and copy the "${NAME}"
// reference into APIKeyRef unresolved — actual resolution happens inside
// provider.New, once, when discovery constructs the provider at startup,
// never here.
func reconstructProviderConfig(meta vectorstore.CollectionMetadata) provider.Config {
	return provider.Config{
		Kind:           provider.Kind(meta.EmbeddingProvider),
		EmbeddingModel: meta.EmbeddingModel,
		LLMModel:       meta.LLMModel,
		BaseURL:        meta.EmbeddingBaseURL,
		APIKeyRef:      meta.EmbeddingAPIKeyRef,
	}
}

func credentialReason(err error) string {
	if ae, ok := err.(*minerrors.MinervaError); ok && ae.Code == minerrors.ErrCodeCredentialMissing {
		if v := ae.Details["variable"]; v != "" {
			return "missing env var " + v
		}
	}
	return err.Error()
}
