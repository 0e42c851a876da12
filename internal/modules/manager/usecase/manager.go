package usecase

import (
	"context"
	"fmt"
	"sync"

	managerdomain "amio/internal/modules/manager/domain"
	"amio/internal/modules/manager/dto"
	managerin "amio/internal/modules/manager/port/in"
	managerout "amio/internal/modules/manager/port/out"
	"amio/internal/modules/manager/service"
	traitdomain "amio/internal/modules/trait/domain"
	apperrors "amio/internal/platform/errors"
)

// DefaultManagerFn lazily supplies the configured default manager, or
// nil when none is configured.
type DefaultManagerFn func(ctx context.Context) (*service.Manager, error)

type Interactor struct {
	factory      managerout.ImplementationFactory
	defaultMgrFn DefaultManagerFn

	mu         sync.Mutex
	defaultMgr *service.Manager
	resolved   bool
}

func NewInteractor(factory managerout.ImplementationFactory, defaultMgrFn DefaultManagerFn) managerin.Usecase {
	return &Interactor{factory: factory, defaultMgrFn: defaultMgrFn}
}

// ListManagers instantiates each known manager briefly to collect its
// self-reported identity.
func (i *Interactor) ListManagers(ctx context.Context) ([]dto.ManagerDetail, error) {
	identifiers, err := i.factory.Identifiers(ctx)
	if err != nil {
		return nil, err
	}
	details := make([]dto.ManagerDetail, 0, len(identifiers))
	for _, identifier := range identifiers {
		detail, err := i.describe(ctx, identifier)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func (i *Interactor) describe(ctx context.Context, identifier string) (dto.ManagerDetail, error) {
	impl, err := i.factory.Instantiate(ctx, identifier)
	if err != nil {
		return dto.ManagerDetail{}, err
	}
	defer func() { _ = impl.Close() }()

	id, err := impl.Identifier()
	if err != nil {
		return dto.ManagerDetail{}, fmt.Errorf("identifier of %q: %w", identifier, err)
	}
	displayName, err := impl.DisplayName()
	if err != nil {
		return dto.ManagerDetail{}, fmt.Errorf("display name of %q: %w", identifier, err)
	}
	info, err := impl.Info()
	if err != nil {
		return dto.ManagerDetail{}, fmt.Errorf("info of %q: %w", identifier, err)
	}
	rendered := make(map[string]string, len(info))
	for key, value := range info {
		rendered[key] = value.String()
	}
	return dto.ManagerDetail{Identifier: id, DisplayName: displayName, Info: rendered}, nil
}

func (i *Interactor) Resolve(ctx context.Context, input dto.ResolveInput) (dto.ResolveOutput, error) {
	manager, err := i.defaultManager(ctx)
	if err != nil {
		return dto.ResolveOutput{}, err
	}
	if !manager.HasCapability(managerdomain.CapabilityResolution) {
		return dto.ResolveOutput{}, fmt.Errorf("%w: manager does not support resolution", apperrors.ErrInvalidInput)
	}
	ref, err := manager.CreateEntityReference(input.Ref)
	if err != nil {
		return dto.ResolveOutput{}, err
	}
	access, err := accessFromName(input.Access)
	if err != nil {
		return dto.ResolveOutput{}, err
	}
	data, err := manager.ResolveEntity(ctx, ref, traitdomain.NewTraitSet(input.Traits...), access, managerdomain.NewContext())
	if err != nil {
		return dto.ResolveOutput{}, err
	}

	traits := map[string]map[string]string{}
	for _, traitID := range data.TraitSet().Slice() {
		properties := map[string]string{}
		for _, key := range data.TraitPropertyKeys(traitID) {
			value, _ := data.TraitProperty(traitID, key)
			properties[key] = value.String()
		}
		traits[traitID] = properties
	}
	return dto.ResolveOutput{Ref: input.Ref, Traits: traits}, nil
}

func (i *Interactor) Exists(ctx context.Context, refs []string) ([]dto.ExistsOutput, error) {
	manager, err := i.defaultManager(ctx)
	if err != nil {
		return nil, err
	}
	if !manager.HasCapability(managerdomain.CapabilityExistenceQueries) {
		return nil, fmt.Errorf("%w: manager does not support existence queries", apperrors.ErrInvalidInput)
	}
	entityRefs := make([]managerdomain.EntityReference, len(refs))
	for idx, ref := range refs {
		entityRef, err := manager.CreateEntityReference(ref)
		if err != nil {
			return nil, err
		}
		entityRefs[idx] = entityRef
	}
	results, err := manager.Exists(ctx, entityRefs, managerdomain.NewContext())
	if err != nil {
		return nil, err
	}
	out := make([]dto.ExistsOutput, len(results))
	for idx, exists := range results {
		out[idx] = dto.ExistsOutput{Ref: refs[idx], Exists: exists}
	}
	return out, nil
}

func (i *Interactor) defaultManager(ctx context.Context) (*service.Manager, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.resolved {
		manager, err := i.defaultMgrFn(ctx)
		if err != nil {
			return nil, err
		}
		i.defaultMgr = manager
		i.resolved = true
	}
	if i.defaultMgr == nil {
		return nil, fmt.Errorf("%w: no default manager configured (set %s)",
			apperrors.ErrConfiguration, "AMIO_DEFAULT_CONFIG")
	}
	return i.defaultMgr, nil
}

func accessFromName(name string) (managerdomain.Access, error) {
	switch name {
	case "", "read":
		return managerdomain.AccessRead, nil
	case "write":
		return managerdomain.AccessWrite, nil
	case "createRelated":
		return managerdomain.AccessCreateRelated, nil
	case "managerDriven":
		return managerdomain.AccessManagerDriven, nil
	default:
		return 0, fmt.Errorf("%w: unknown access mode %q", apperrors.ErrInvalidInput, name)
	}
}
