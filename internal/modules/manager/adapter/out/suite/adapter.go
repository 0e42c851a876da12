package suite

import (
	"context"
	"fmt"
	"sync"

	managerdomain "amio/internal/modules/manager/domain"
	managerout "amio/internal/modules/manager/port/out"
	traitdomain "amio/internal/modules/trait/domain"
	apperrors "amio/internal/platform/errors"
)

// Adapter is the consumer side of the bridge: a ManagerInterface
// implemented by forwarding each call through the suite's function
// table over the opaque handle. Hold it by pointer only; the handle is
// exclusively owned and the destructor must run exactly once.
type Adapter struct {
	suite  V1
	handle Handle

	dtorOnce sync.Once
}

var _ managerout.ManagerInterface = (*Adapter)(nil)

func NewAdapter(suite V1, handle Handle) *Adapter {
	return &Adapter{suite: suite, handle: handle}
}

// stringCall is the fixed pattern for suite functions returning a short
// string: stack-local error and return buffers, invoke, convert a
// non-OK code plus the error buffer into an error, otherwise copy the
// used-length prefix of the return buffer out.
func (a *Adapter) stringCall(fn func(errMsg, out *StringView, h Handle) ErrorCode) (string, error) {
	errMsg := NewStringView(DefaultCapacity)
	out := NewStringView(DefaultCapacity)
	code := fn(errMsg, out, a.handle)
	if err := errorFromCode(code, errMsg); err != nil {
		return "", err
	}
	return out.String(), nil
}

func (a *Adapter) Identifier() (string, error) {
	return a.stringCall(a.suite.Identifier)
}

func (a *Adapter) DisplayName() (string, error) {
	return a.stringCall(a.suite.DisplayName)
}

func (a *Adapter) Info() (traitdomain.InfoDictionary, error) {
	errMsg := NewStringView(DefaultCapacity)
	out := traitdomain.InfoDictionary{}
	code := a.suite.Info(errMsg, &out, a.handle)
	if err := errorFromCode(code, errMsg); err != nil {
		return nil, err
	}
	return out, nil
}

// The remaining interface methods are not bridged by suite V1. They
// must reject explicitly rather than succeed with empty data.

func (a *Adapter) Settings() (traitdomain.InfoDictionary, error) {
	return nil, errNotBridged("Settings")
}

func (a *Adapter) Initialize(traitdomain.InfoDictionary) error {
	return errNotBridged("Initialize")
}

func (a *Adapter) HasCapability(managerdomain.Capability) bool {
	return false
}

func (a *Adapter) IsEntityReferenceString(string) bool {
	return false
}

func (a *Adapter) Exists(context.Context, []managerdomain.EntityReference, *managerdomain.Context,
	managerout.ExistsSuccessCallback, managerout.BatchElementErrorCallback) error {
	return errNotBridged("Exists")
}

func (a *Adapter) Resolve(context.Context, []managerdomain.EntityReference, traitdomain.TraitSet,
	managerdomain.ResolveAccess, *managerdomain.Context,
	managerout.ResolveSuccessCallback, managerout.BatchElementErrorCallback) error {
	return errNotBridged("Resolve")
}

func (a *Adapter) Preflight(context.Context, []managerdomain.EntityReference, []*traitdomain.TraitsData,
	managerdomain.PublishingAccess, *managerdomain.Context,
	managerout.ReferenceSuccessCallback, managerout.BatchElementErrorCallback) error {
	return errNotBridged("Preflight")
}

func (a *Adapter) Register(context.Context, []managerdomain.EntityReference, []*traitdomain.TraitsData,
	managerdomain.PublishingAccess, *managerdomain.Context,
	managerout.ReferenceSuccessCallback, managerout.BatchElementErrorCallback) error {
	return errNotBridged("Register")
}

// Close invokes the suite destructor. Exactly once, no matter how many
// times Close is called.
func (a *Adapter) Close() error {
	a.dtorOnce.Do(func() {
		if a.suite.Dtor != nil {
			a.suite.Dtor(a.handle)
		}
	})
	return nil
}

func errNotBridged(method string) error {
	return fmt.Errorf("%w: %s is not bridged by suite v1", apperrors.ErrNotImplemented, method)
}

func errorFromCode(code ErrorCode, errMsg *StringView) error {
	switch code {
	case ErrorCodeOK:
		return nil
	case ErrorCodeNotImplemented:
		return fmt.Errorf("%w: %s", apperrors.ErrNotImplemented, errMsg.String())
	default:
		return fmt.Errorf("%s: %s", code, errMsg.String())
	}
}
