package out

import (
	"context"

	managerout "amio/internal/modules/manager/port/out"
	"amio/internal/modules/plugin/domain"
)

// ManifestStore enumerates discoverable plugin manifests. Load is
// idempotent; each call re-scans.
type ManifestStore interface {
	Load(ctx context.Context) ([]domain.Manifest, error)
}

// Host turns a manifest into a live manager implementation, typically
// by launching the plugin binary. The returned interface owns the
// plugin process; Close releases it.
type Host interface {
	Dispense(ctx context.Context, manifest domain.Manifest) (managerout.ManagerInterface, error)
}
