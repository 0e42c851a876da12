package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	managerout "amio/internal/modules/manager/port/out"
	"amio/internal/modules/plugin/domain"
	pluginout "amio/internal/modules/plugin/port/out"
	apperrors "amio/internal/platform/errors"
)

// NativeConstructor builds an in-process manager implementation.
type NativeConstructor func() (managerout.ManagerInterface, error)

// Factory discovers manager plugins and instantiates implementations
// by identifier. It is a hybrid factory: natively registered
// constructors and discovered plugin binaries share one identifier
// space, native registrations shadowing discovered plugins on
// collision. Each Factory owns its own discovery cache; there is no
// process-global plugin state.
type Factory struct {
	store  pluginout.ManifestStore
	host   pluginout.Host
	logger hclog.Logger

	mu     sync.Mutex
	native map[string]NativeConstructor
	cache  map[string]domain.Manifest
	loaded bool
}

var _ managerout.ImplementationFactory = (*Factory)(nil)

func NewFactory(store pluginout.ManifestStore, host pluginout.Host, logger hclog.Logger) *Factory {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Factory{
		store:  store,
		host:   host,
		logger: logger,
		native: map[string]NativeConstructor{},
	}
}

// RegisterNative adds an in-process implementation under identifier,
// shadowing any discovered plugin with the same identifier.
func (f *Factory) RegisterNative(identifier string, ctor NativeConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.native[identifier] = ctor
}

// Identifiers enumerates all known manager identifiers, sorted.
// Discovery runs lazily on first use and is cached; Refresh forces a
// re-scan.
func (f *Factory) Identifiers(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for identifier := range f.native {
		seen[identifier] = struct{}{}
	}
	for identifier := range f.cache {
		seen[identifier] = struct{}{}
	}
	identifiers := make([]string, 0, len(seen))
	for identifier := range seen {
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)
	return identifiers, nil
}

// Instantiate returns a fresh implementation bound to identifier.
// Unknown identifiers fail with a not-found error.
func (f *Factory) Instantiate(ctx context.Context, identifier string) (managerout.ManagerInterface, error) {
	f.mu.Lock()
	if err := f.ensureLoadedLocked(ctx); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	ctor, isNative := f.native[identifier]
	manifest, isDiscovered := f.cache[identifier]
	f.mu.Unlock()

	switch {
	case isNative:
		return ctor()
	case isDiscovered:
		return f.host.Dispense(ctx, manifest)
	default:
		return nil, fmt.Errorf("%w: no manager plugin with identifier %q", apperrors.ErrNotFound, identifier)
	}
}

// Refresh discards the discovery cache and re-scans.
func (f *Factory) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = false
	return f.ensureLoadedLocked(ctx)
}

func (f *Factory) ensureLoadedLocked(ctx context.Context) error {
	if f.loaded {
		return nil
	}
	manifests, err := f.store.Load(ctx)
	if err != nil {
		return err
	}
	cache := make(map[string]domain.Manifest, len(manifests))
	for _, manifest := range manifests {
		if _, ok := cache[manifest.Identifier]; ok {
			f.logger.Warn("duplicate plugin identifier, keeping first",
				"identifier", manifest.Identifier, "binary", manifest.Binary)
			continue
		}
		cache[manifest.Identifier] = manifest
	}
	f.cache = cache
	f.loaded = true
	return nil
}
