package out

import (
	"context"

	managerdomain "amio/internal/modules/manager/domain"
	traitdomain "amio/internal/modules/trait/domain"
)

// Callback pairs for the raw batch protocol. For every batch call the
// implementation must invoke exactly one of the pair exactly once per
// input index, in any order and from any goroutine, before the call
// returns. An implementation that never reports an index leaves the
// caller blocked; the invocation core does not defend against that.
type (
	ExistsSuccessCallback     func(index int, exists bool)
	ResolveSuccessCallback    func(index int, data *traitdomain.TraitsData)
	ReferenceSuccessCallback  func(index int, ref managerdomain.EntityReference)
	BatchElementErrorCallback func(index int, err managerdomain.BatchElementError)
)

// ManagerInterface is the contract a manager implementation satisfies.
// Variants: native in-process implementations, suite-bridged
// implementations, and gRPC plugin-bridged implementations all satisfy
// the same interface; the invocation core never knows which it holds.
type ManagerInterface interface {
	Identifier() (string, error)
	DisplayName() (string, error)
	Info() (traitdomain.InfoDictionary, error)

	// Settings reports the currently-applied settings. Initialize
	// accepts a sparse update; keys absent from the argument retain
	// their previous values.
	Settings() (traitdomain.InfoDictionary, error)
	Initialize(settings traitdomain.InfoDictionary) error

	HasCapability(c managerdomain.Capability) bool

	// IsEntityReferenceString reports whether s is well-formed for
	// this manager. Cheap, non-batch, never errors.
	IsEntityReferenceString(s string) bool

	Exists(ctx context.Context, refs []managerdomain.EntityReference, cctx *managerdomain.Context,
		onSuccess ExistsSuccessCallback, onError BatchElementErrorCallback) error

	Resolve(ctx context.Context, refs []managerdomain.EntityReference, traitSet traitdomain.TraitSet,
		access managerdomain.ResolveAccess, cctx *managerdomain.Context,
		onSuccess ResolveSuccessCallback, onError BatchElementErrorCallback) error

	Preflight(ctx context.Context, refs []managerdomain.EntityReference, hints []*traitdomain.TraitsData,
		access managerdomain.PublishingAccess, cctx *managerdomain.Context,
		onSuccess ReferenceSuccessCallback, onError BatchElementErrorCallback) error

	Register(ctx context.Context, refs []managerdomain.EntityReference, data []*traitdomain.TraitsData,
		access managerdomain.PublishingAccess, cctx *managerdomain.Context,
		onSuccess ReferenceSuccessCallback, onError BatchElementErrorCallback) error

	// Close releases implementation resources (plugin processes,
	// bridge handles). Safe to call once; the owner calls it exactly
	// once.
	Close() error
}

// ImplementationFactory discovers manager implementations and
// instantiates them by identifier.
type ImplementationFactory interface {
	Identifiers(ctx context.Context) ([]string, error)
	Instantiate(ctx context.Context, identifier string) (ManagerInterface, error)
}
