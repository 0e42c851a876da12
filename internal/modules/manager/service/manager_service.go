package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	managerdomain "amio/internal/modules/manager/domain"
	managerout "amio/internal/modules/manager/port/out"
	traitdomain "amio/internal/modules/trait/domain"
	apperrors "amio/internal/platform/errors"
)

// Manager is the invocation core: it wraps one exclusively-owned
// ManagerInterface and reduces the raw batch/callback protocol into the
// caller-selected shape. Two reductions are offered per operation:
//
//   - the default, where the first reported element error aborts the
//     call and is returned as a *domain.BatchElementException;
//   - the Outcomes form, where every element's success or error is
//     captured in input-index order and no element error becomes a Go
//     error.
//
// Callers needing full control use the With form, which forwards their
// callbacks unreduced.
//
// Implementations may fire callbacks from worker goroutines in any
// order; the aggregation here writes each outcome to its own index
// slot and tracks completion with an atomic tally, so arrival order is
// never visible in a returned sequence.
type Manager struct {
	impl managerout.ManagerInterface
}

func NewManager(impl managerout.ManagerInterface) *Manager {
	return &Manager{impl: impl}
}

func (m *Manager) Identifier() (string, error) { return m.impl.Identifier() }

func (m *Manager) DisplayName() (string, error) { return m.impl.DisplayName() }

func (m *Manager) Info() (traitdomain.InfoDictionary, error) { return m.impl.Info() }

func (m *Manager) Settings() (traitdomain.InfoDictionary, error) { return m.impl.Settings() }

func (m *Manager) Initialize(s traitdomain.InfoDictionary) error { return m.impl.Initialize(s) }

func (m *Manager) HasCapability(c managerdomain.Capability) bool { return m.impl.HasCapability(c) }

func (m *Manager) IsEntityReferenceString(s string) bool { return m.impl.IsEntityReferenceString(s) }

func (m *Manager) Close() error { return m.impl.Close() }

// CreateEntityReference validates s with the manager and wraps it.
// Malformed strings are a programmer error, not a batch element error.
func (m *Manager) CreateEntityReference(s string) (managerdomain.EntityReference, error) {
	if !m.impl.IsEntityReferenceString(s) {
		return managerdomain.EntityReference{}, fmt.Errorf(
			"%w: not an entity reference for this manager: %q", apperrors.ErrInvalidInput, s)
	}
	return managerdomain.NewEntityReference(s), nil
}

// aggregator collects index-addressed outcomes arriving in any order,
// possibly concurrently. Each callback writes a distinct slot; the
// completion tally and first-error capture are the only shared state
// and are synchronized.
type aggregator[T any] struct {
	results  []T
	reported []atomic.Bool
	tally    atomic.Int64

	mu       sync.Mutex
	firstErr error
}

func newAggregator[T any](n int) *aggregator[T] {
	return &aggregator[T]{
		results:  make([]T, n),
		reported: make([]atomic.Bool, n),
	}
}

// success records value at index. Duplicate reports for an index keep
// the first write; out-of-range indices fail the whole batch as a
// programmer error.
func (a *aggregator[T]) success(index int, value T) {
	if index < 0 || index >= len(a.results) {
		a.fail(fmt.Errorf("%w: index %d out of bounds for batch size of %d",
			apperrors.ErrInvalidInput, index, len(a.results)))
		return
	}
	if !a.reported[index].CompareAndSwap(false, true) {
		return
	}
	a.results[index] = value
	a.tally.Add(1)
}

// fail records err if it is the first failure reported.
func (a *aggregator[T]) fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.firstErr == nil {
		a.firstErr = err
	}
}

func (a *aggregator[T]) err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.firstErr
}

// finish produces the aggregate once the dispatch call has returned.
// An incomplete tally means the implementation violated the
// exactly-once callback contract.
func (a *aggregator[T]) finish() ([]T, error) {
	if err := a.err(); err != nil {
		return nil, err
	}
	if got := int(a.tally.Load()); got != len(a.results) {
		return nil, fmt.Errorf("%w: manager reported %d of %d batch outcomes",
			apperrors.ErrInvalidInput, got, len(a.results))
	}
	return a.results, nil
}

// exceptionContext carries what is known about an element for building
// a BatchElementException message.
type exceptionContext struct {
	access *managerdomain.Access
	entity func(index int) *managerdomain.EntityReference
}

func entityAt(refs []managerdomain.EntityReference) func(int) *managerdomain.EntityReference {
	return func(index int) *managerdomain.EntityReference {
		if index < 0 || index >= len(refs) {
			return nil
		}
		ref := refs[index]
		return &ref
	}
}

// dispatchFn issues the underlying batch call with the given callbacks.
type dispatchFn[T any] func(onSuccess func(int, T), onError managerout.BatchElementErrorCallback) error

// runExceptional reduces a batch call under the default policy: the
// first reported element error (dispatch order, not index order) is
// converted to a *BatchElementException and aborts result collection.
func runExceptional[T any](n int, excCtx exceptionContext, dispatch dispatchFn[T]) ([]T, error) {
	agg := newAggregator[T](n)
	err := dispatch(agg.success, func(index int, elemErr managerdomain.BatchElementError) {
		agg.fail(managerdomain.NewBatchElementException(index, elemErr, excCtx.access, excCtx.entity(index)))
	})
	if err != nil {
		return nil, err
	}
	return agg.finish()
}

// runOutcomes reduces a batch call under the variant policy: every
// element's outcome, success or error, is captured at its input index.
func runOutcomes[T any](n int, dispatch dispatchFn[T]) ([]managerdomain.Outcome[T], error) {
	agg := newAggregator[managerdomain.Outcome[T]](n)
	err := dispatch(
		func(index int, value T) {
			agg.success(index, managerdomain.SuccessOutcome(value))
		},
		func(index int, elemErr managerdomain.BatchElementError) {
			agg.success(index, managerdomain.ErrorOutcome[T](elemErr))
		})
	if err != nil {
		return nil, err
	}
	return agg.finish()
}

func requireContext(cctx *managerdomain.Context) error {
	if cctx == nil {
		return fmt.Errorf("%w: nil Context", apperrors.ErrInvalidInput)
	}
	return nil
}

func requireSameLength(refs []managerdomain.EntityReference, data []*traitdomain.TraitsData, what string) error {
	if len(refs) != len(data) {
		return fmt.Errorf("%w: %d entity references with %d %s", apperrors.ErrInvalidInput,
			len(refs), len(data), what)
	}
	for i, d := range data {
		if d == nil {
			return fmt.Errorf("%w: nil %s at index %d", apperrors.ErrInvalidInput, what, i)
		}
	}
	return nil
}

/******************************************
 * entityExists
 ******************************************/

// ExistsWith forwards the caller's callbacks unreduced.
func (m *Manager) ExistsWith(ctx context.Context, refs []managerdomain.EntityReference, cctx *managerdomain.Context,
	onSuccess managerout.ExistsSuccessCallback, onError managerout.BatchElementErrorCallback) error {
	if err := requireContext(cctx); err != nil {
		return err
	}
	return m.impl.Exists(ctx, refs, cctx, onSuccess, onError)
}

func (m *Manager) Exists(ctx context.Context, refs []managerdomain.EntityReference, cctx *managerdomain.Context) ([]bool, error) {
	if err := requireContext(cctx); err != nil {
		return nil, err
	}
	return runExceptional(len(refs), exceptionContext{entity: entityAt(refs)},
		func(onSuccess func(int, bool), onError managerout.BatchElementErrorCallback) error {
			return m.impl.Exists(ctx, refs, cctx, onSuccess, onError)
		})
}

func (m *Manager) ExistsOutcomes(ctx context.Context, refs []managerdomain.EntityReference, cctx *managerdomain.Context) ([]managerdomain.Outcome[bool], error) {
	if err := requireContext(cctx); err != nil {
		return nil, err
	}
	return runOutcomes(len(refs),
		func(onSuccess func(int, bool), onError managerout.BatchElementErrorCallback) error {
			return m.impl.Exists(ctx, refs, cctx, onSuccess, onError)
		})
}

// ExistsEntity is the singular convenience: a one-element batch under
// the default policy.
func (m *Manager) ExistsEntity(ctx context.Context, ref managerdomain.EntityReference, cctx *managerdomain.Context) (bool, error) {
	results, err := m.Exists(ctx, []managerdomain.EntityReference{ref}, cctx)
	if err != nil {
		return false, err
	}
	return results[0], nil
}

func (m *Manager) ExistsEntityOutcome(ctx context.Context, ref managerdomain.EntityReference, cctx *managerdomain.Context) (managerdomain.Outcome[bool], error) {
	results, err := m.ExistsOutcomes(ctx, []managerdomain.EntityReference{ref}, cctx)
	if err != nil {
		return managerdomain.Outcome[bool]{}, err
	}
	return results[0], nil
}

/******************************************
 * resolve
 ******************************************/

func (m *Manager) ResolveWith(ctx context.Context, refs []managerdomain.EntityReference, traitSet traitdomain.TraitSet,
	access managerdomain.ResolveAccess, cctx *managerdomain.Context,
	onSuccess managerout.ResolveSuccessCallback, onError managerout.BatchElementErrorCallback) error {
	if err := requireContext(cctx); err != nil {
		return err
	}
	return m.impl.Resolve(ctx, refs, traitSet, access, cctx, onSuccess, onError)
}

func (m *Manager) Resolve(ctx context.Context, refs []managerdomain.EntityReference, traitSet traitdomain.TraitSet,
	access managerdomain.ResolveAccess, cctx *managerdomain.Context) ([]*traitdomain.TraitsData, error) {
	if err := requireContext(cctx); err != nil {
		return nil, err
	}
	return runExceptional(len(refs), exceptionContext{access: &access, entity: entityAt(refs)},
		func(onSuccess func(int, *traitdomain.TraitsData), onError managerout.BatchElementErrorCallback) error {
			return m.impl.Resolve(ctx, refs, traitSet, access, cctx, onSuccess, onError)
		})
}

func (m *Manager) ResolveOutcomes(ctx context.Context, refs []managerdomain.EntityReference, traitSet traitdomain.TraitSet,
	access managerdomain.ResolveAccess, cctx *managerdomain.Context) ([]managerdomain.Outcome[*traitdomain.TraitsData], error) {
	if err := requireContext(cctx); err != nil {
		return nil, err
	}
	return runOutcomes(len(refs),
		func(onSuccess func(int, *traitdomain.TraitsData), onError managerout.BatchElementErrorCallback) error {
			return m.impl.Resolve(ctx, refs, traitSet, access, cctx, onSuccess, onError)
		})
}

func (m *Manager) ResolveEntity(ctx context.Context, ref managerdomain.EntityReference, traitSet traitdomain.TraitSet,
	access managerdomain.ResolveAccess, cctx *managerdomain.Context) (*traitdomain.TraitsData, error) {
	results, err := m.Resolve(ctx, []managerdomain.EntityReference{ref}, traitSet, access, cctx)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func (m *Manager) ResolveEntityOutcome(ctx context.Context, ref managerdomain.EntityReference, traitSet traitdomain.TraitSet,
	access managerdomain.ResolveAccess, cctx *managerdomain.Context) (managerdomain.Outcome[*traitdomain.TraitsData], error) {
	results, err := m.ResolveOutcomes(ctx, []managerdomain.EntityReference{ref}, traitSet, access, cctx)
	if err != nil {
		return managerdomain.Outcome[*traitdomain.TraitsData]{}, err
	}
	return results[0], nil
}

/******************************************
 * preflight
 ******************************************/

func (m *Manager) PreflightWith(ctx context.Context, refs []managerdomain.EntityReference, hints []*traitdomain.TraitsData,
	access managerdomain.PublishingAccess, cctx *managerdomain.Context,
	onSuccess managerout.ReferenceSuccessCallback, onError managerout.BatchElementErrorCallback) error {
	if err := requireContext(cctx); err != nil {
		return err
	}
	if err := requireSameLength(refs, hints, "traits hints"); err != nil {
		return err
	}
	return m.impl.Preflight(ctx, refs, hints, access, cctx, onSuccess, onError)
}

func (m *Manager) Preflight(ctx context.Context, refs []managerdomain.EntityReference, hints []*traitdomain.TraitsData,
	access managerdomain.PublishingAccess, cctx *managerdomain.Context) ([]managerdomain.EntityReference, error) {
	if err := requireContext(cctx); err != nil {
		return nil, err
	}
	if err := requireSameLength(refs, hints, "traits hints"); err != nil {
		return nil, err
	}
	return runExceptional(len(refs), exceptionContext{access: &access, entity: entityAt(refs)},
		func(onSuccess func(int, managerdomain.EntityReference), onError managerout.BatchElementErrorCallback) error {
			return m.impl.Preflight(ctx, refs, hints, access, cctx, onSuccess, onError)
		})
}

func (m *Manager) PreflightOutcomes(ctx context.Context, refs []managerdomain.EntityReference, hints []*traitdomain.TraitsData,
	access managerdomain.PublishingAccess, cctx *managerdomain.Context) ([]managerdomain.Outcome[managerdomain.EntityReference], error) {
	if err := requireContext(cctx); err != nil {
		return nil, err
	}
	if err := requireSameLength(refs, hints, "traits hints"); err != nil {
		return nil, err
	}
	return runOutcomes(len(refs),
		func(onSuccess func(int, managerdomain.EntityReference), onError managerout.BatchElementErrorCallback) error {
			return m.impl.Preflight(ctx, refs, hints, access, cctx, onSuccess, onError)
		})
}

func (m *Manager) PreflightEntity(ctx context.Context, ref managerdomain.EntityReference, hint *traitdomain.TraitsData,
	access managerdomain.PublishingAccess, cctx *managerdomain.Context) (managerdomain.EntityReference, error) {
	results, err := m.Preflight(ctx, []managerdomain.EntityReference{ref}, []*traitdomain.TraitsData{hint}, access, cctx)
	if err != nil {
		return managerdomain.EntityReference{}, err
	}
	return results[0], nil
}

/******************************************
 * register
 ******************************************/

func (m *Manager) RegisterWith(ctx context.Context, refs []managerdomain.EntityReference, data []*traitdomain.TraitsData,
	access managerdomain.PublishingAccess, cctx *managerdomain.Context,
	onSuccess managerout.ReferenceSuccessCallback, onError managerout.BatchElementErrorCallback) error {
	if err := requireContext(cctx); err != nil {
		return err
	}
	if err := requireSameLength(refs, data, "traits data"); err != nil {
		return err
	}
	return m.impl.Register(ctx, refs, data, access, cctx, onSuccess, onError)
}

func (m *Manager) Register(ctx context.Context, refs []managerdomain.EntityReference, data []*traitdomain.TraitsData,
	access managerdomain.PublishingAccess, cctx *managerdomain.Context) ([]managerdomain.EntityReference, error) {
	if err := requireContext(cctx); err != nil {
		return nil, err
	}
	if err := requireSameLength(refs, data, "traits data"); err != nil {
		return nil, err
	}
	return runExceptional(len(refs), exceptionContext{access: &access, entity: entityAt(refs)},
		func(onSuccess func(int, managerdomain.EntityReference), onError managerout.BatchElementErrorCallback) error {
			return m.impl.Register(ctx, refs, data, access, cctx, onSuccess, onError)
		})
}

func (m *Manager) RegisterOutcomes(ctx context.Context, refs []managerdomain.EntityReference, data []*traitdomain.TraitsData,
	access managerdomain.PublishingAccess, cctx *managerdomain.Context) ([]managerdomain.Outcome[managerdomain.EntityReference], error) {
	if err := requireContext(cctx); err != nil {
		return nil, err
	}
	if err := requireSameLength(refs, data, "traits data"); err != nil {
		return nil, err
	}
	return runOutcomes(len(refs),
		func(onSuccess func(int, managerdomain.EntityReference), onError managerout.BatchElementErrorCallback) error {
			return m.impl.Register(ctx, refs, data, access, cctx, onSuccess, onError)
		})
}

func (m *Manager) RegisterEntity(ctx context.Context, ref managerdomain.EntityReference, data *traitdomain.TraitsData,
	access managerdomain.PublishingAccess, cctx *managerdomain.Context) (managerdomain.EntityReference, error) {
	results, err := m.Register(ctx, []managerdomain.EntityReference{ref}, []*traitdomain.TraitsData{data}, access, cctx)
	if err != nil {
		return managerdomain.EntityReference{}, err
	}
	return results[0], nil
}
