package suite_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"amio/internal/modules/manager/adapter/out/suite"
	managerdomain "amio/internal/modules/manager/domain"
	managerout "amio/internal/modules/manager/port/out"
	traitdomain "amio/internal/modules/trait/domain"
	apperrors "amio/internal/platform/errors"
)

// bridgeImpl is the native implementation placed behind the suite in
// these tests. Error and panic fields switch on the failure paths.
type bridgeImpl struct {
	identifier  string
	displayName string
	info        traitdomain.InfoDictionary

	identifierErr    error
	displayNamePanic any

	closed int
}

func (b *bridgeImpl) Identifier() (string, error) {
	if b.identifierErr != nil {
		return "", b.identifierErr
	}
	return b.identifier, nil
}

func (b *bridgeImpl) DisplayName() (string, error) {
	if b.displayNamePanic != nil {
		panic(b.displayNamePanic)
	}
	return b.displayName, nil
}

func (b *bridgeImpl) Info() (traitdomain.InfoDictionary, error) {
	return b.info, nil
}

func (b *bridgeImpl) Settings() (traitdomain.InfoDictionary, error) {
	return nil, fmt.Errorf("%w: settings", apperrors.ErrNotImplemented)
}

func (b *bridgeImpl) Initialize(traitdomain.InfoDictionary) error { return nil }
func (b *bridgeImpl) HasCapability(managerdomain.Capability) bool { return false }
func (b *bridgeImpl) IsEntityReferenceString(string) bool         { return false }

func (b *bridgeImpl) Exists(context.Context, []managerdomain.EntityReference, *managerdomain.Context,
	managerout.ExistsSuccessCallback, managerout.BatchElementErrorCallback) error {
	return nil
}

func (b *bridgeImpl) Resolve(context.Context, []managerdomain.EntityReference, traitdomain.TraitSet,
	managerdomain.ResolveAccess, *managerdomain.Context,
	managerout.ResolveSuccessCallback, managerout.BatchElementErrorCallback) error {
	return nil
}

func (b *bridgeImpl) Preflight(context.Context, []managerdomain.EntityReference, []*traitdomain.TraitsData,
	managerdomain.PublishingAccess, *managerdomain.Context,
	managerout.ReferenceSuccessCallback, managerout.BatchElementErrorCallback) error {
	return nil
}

func (b *bridgeImpl) Register(context.Context, []managerdomain.EntityReference, []*traitdomain.TraitsData,
	managerdomain.PublishingAccess, *managerdomain.Context,
	managerout.ReferenceSuccessCallback, managerout.BatchElementErrorCallback) error {
	return nil
}

func (b *bridgeImpl) Close() error {
	b.closed++
	return nil
}

func bridged(impl *bridgeImpl) *suite.Adapter {
	return suite.NewAdapter(suite.Export(impl))
}

func TestRoundTripIdentity(t *testing.T) {
	t.Parallel()
	impl := &bridgeImpl{
		identifier:  "org.test.bridge",
		displayName: "Bridge Manager",
		info: traitdomain.InfoDictionary{
			"vendor": traitdomain.String("test"),
		},
	}
	adapter := bridged(impl)

	id, err := adapter.Identifier()
	if err != nil || id != "org.test.bridge" {
		t.Fatalf("identifier: %q %v", id, err)
	}
	name, err := adapter.DisplayName()
	if err != nil || name != "Bridge Manager" {
		t.Fatalf("display name: %q %v", name, err)
	}
	info, err := adapter.Info()
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if v, _ := info["vendor"].AsString(); v != "test" {
		t.Fatalf("info vendor = %q", v)
	}
}

func TestStringViewTruncatesAtCapacity(t *testing.T) {
	t.Parallel()
	view := suite.NewStringView(8)
	view.Assign("0123456789")
	if view.Size() != 8 || view.String() != "01234567" {
		t.Fatalf("expected truncation to capacity, got size=%d %q", view.Size(), view.String())
	}
	view.Assign("ab")
	if view.String() != "ab" {
		t.Fatalf("reassign must shrink the used length, got %q", view.String())
	}
	if view.Capacity() != 8 {
		t.Fatalf("capacity must be fixed, got %d", view.Capacity())
	}
}

func TestLongIdentifierTruncatedNotOverflowed(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", suite.DefaultCapacity+100)
	adapter := bridged(&bridgeImpl{identifier: long})

	id, err := adapter.Identifier()
	if err != nil {
		t.Fatalf("identifier: %v", err)
	}
	if id != long[:suite.DefaultCapacity] {
		t.Fatalf("expected %d-byte prefix, got %d bytes", suite.DefaultCapacity, len(id))
	}
}

func TestReturnedErrorBecomesExceptionCode(t *testing.T) {
	t.Parallel()
	adapter := bridged(&bridgeImpl{identifierErr: errors.New("backend offline")})

	_, err := adapter.Identifier()
	if err == nil || !strings.Contains(err.Error(), "backend offline") {
		t.Fatalf("expected backend error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "exception:") {
		t.Fatalf("expected exception code prefix, got %q", err.Error())
	}
}

func TestLongErrorMessageTruncated(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("e", suite.DefaultCapacity+50)
	adapter := bridged(&bridgeImpl{identifierErr: errors.New(long)})

	_, err := adapter.Identifier()
	if err == nil {
		t.Fatalf("expected error")
	}
	want := "exception: " + long[:suite.DefaultCapacity]
	if err.Error() != want {
		t.Fatalf("expected truncated message, got %d bytes", len(err.Error()))
	}
}

func TestErrorPanicBecomesException(t *testing.T) {
	t.Parallel()
	adapter := bridged(&bridgeImpl{displayNamePanic: errors.New("invariant broken")})

	_, err := adapter.DisplayName()
	if err == nil || err.Error() != "exception: invariant broken" {
		t.Fatalf("expected exception with panic message, got %v", err)
	}
}

func TestNonErrorPanicBecomesUnknown(t *testing.T) {
	t.Parallel()
	adapter := bridged(&bridgeImpl{displayNamePanic: 42})

	_, err := adapter.DisplayName()
	if err == nil {
		t.Fatalf("expected error")
	}
	want := "unknown: " + suite.UnknownPanicMessage
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func TestNotImplementedErrorMapsToCode(t *testing.T) {
	t.Parallel()
	adapter := bridged(&bridgeImpl{
		identifierErr: fmt.Errorf("%w: no identifier", apperrors.ErrNotImplemented),
	})

	_, err := adapter.Identifier()
	if !errors.Is(err, apperrors.ErrNotImplemented) {
		t.Fatalf("not-implemented must survive the round trip, got %v", err)
	}
}

func TestUnbridgedMethodsRejected(t *testing.T) {
	t.Parallel()
	adapter := bridged(&bridgeImpl{})

	if _, err := adapter.Settings(); !errors.Is(err, apperrors.ErrNotImplemented) {
		t.Fatalf("settings: %v", err)
	}
	if err := adapter.Initialize(nil); !errors.Is(err, apperrors.ErrNotImplemented) {
		t.Fatalf("initialize: %v", err)
	}
	err := adapter.Exists(context.Background(), nil, managerdomain.NewContext(),
		func(int, bool) {}, func(int, managerdomain.BatchElementError) {})
	if !errors.Is(err, apperrors.ErrNotImplemented) {
		t.Fatalf("exists: %v", err)
	}
	if adapter.HasCapability(managerdomain.CapabilityResolution) {
		t.Fatalf("unbridged capability query must report false")
	}
	if adapter.IsEntityReferenceString("a://x") {
		t.Fatalf("unbridged reference check must report false")
	}
}

func TestCloseRunsDestructorExactlyOnce(t *testing.T) {
	t.Parallel()
	impl := &bridgeImpl{}
	adapter := bridged(impl)

	if err := adapter.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := adapter.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if impl.closed != 1 {
		t.Fatalf("destructor ran %d times, want 1", impl.closed)
	}
}
