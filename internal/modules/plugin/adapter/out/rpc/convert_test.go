package rpc_test

import (
	"testing"

	managerdomain "amio/internal/modules/manager/domain"
	"amio/internal/modules/plugin/adapter/out/rpc"
	traitdomain "amio/internal/modules/trait/domain"
)

func TestTraitsDataSurvivesWireRoundTrip(t *testing.T) {
	t.Parallel()
	data := traitdomain.NewTraitsData()
	data.AddTrait("proxy")
	data.SetTraitProperty("image", "width", traitdomain.Int(1920))
	data.SetTraitProperty("image", "interlaced", traitdomain.Bool(false))
	data.SetTraitProperty("image", "aspect", traitdomain.Float(1.85))
	data.SetTraitProperty("image", "codec", traitdomain.String("exr"))

	wire := rpc.TraitsDataToWire(data)
	if _, ok := wire["proxy"]; !ok {
		t.Fatalf("property-less trait must survive as an empty map")
	}
	back, err := rpc.TraitsDataFromWire(wire)
	if err != nil {
		t.Fatalf("from wire: %v", err)
	}
	if !back.Equal(data) {
		t.Fatalf("round trip changed the data: %+v", wire)
	}
}

func TestNilTraitsDataToWireIsNil(t *testing.T) {
	t.Parallel()
	if wire := rpc.TraitsDataToWire(nil); wire != nil {
		t.Fatalf("nil data must map to nil wire form, got %v", wire)
	}
}

func TestValueFromWireRejectsUnknownType(t *testing.T) {
	t.Parallel()
	if _, err := rpc.ValueFromWire(rpc.Value{Type: "blob"}); err == nil {
		t.Fatalf("unknown wire type must be rejected")
	}
	if _, err := rpc.TraitsDataFromWire(rpc.TraitsData{
		"image": {"payload": {Type: "blob"}},
	}); err == nil {
		t.Fatalf("unknown wire type inside traits data must be rejected")
	}
}

func TestInfoDictionaryWireRoundTrip(t *testing.T) {
	t.Parallel()
	info := traitdomain.InfoDictionary{
		"vendor":  traitdomain.String("acme"),
		"timeout": traitdomain.Int(30),
	}
	back, err := rpc.InfoFromWire(rpc.InfoToWire(info))
	if err != nil {
		t.Fatalf("from wire: %v", err)
	}
	if len(back) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(back))
	}
	if v, _ := back["vendor"].AsString(); v != "acme" {
		t.Fatalf("vendor = %q", v)
	}
	if v, _ := back["timeout"].AsInt(); v != 30 {
		t.Fatalf("timeout = %d", v)
	}
}

func TestContextToWireCarriesLocaleAndStateToken(t *testing.T) {
	t.Parallel()
	cctx := managerdomain.NewContext()
	cctx.Locale["application"] = "amio-cli"
	cctx.ManagerState = "session-42"

	wire := rpc.ContextToWire(cctx)
	if wire.Locale["application"] != "amio-cli" || wire.State != "session-42" {
		t.Fatalf("unexpected wire context: %+v", wire)
	}

	cctx.ManagerState = struct{ x int }{1}
	if rpc.ContextToWire(cctx).State != "" {
		t.Fatalf("non-string state must not cross the wire")
	}
	if got := rpc.ContextToWire(nil); got.State != "" || got.Locale != nil {
		t.Fatalf("nil context must map to the zero wire context, got %+v", got)
	}
}

func TestBatchElementErrorWireRoundTrip(t *testing.T) {
	t.Parallel()
	err := managerdomain.BatchElementError{
		Code:    managerdomain.ErrorCodeInvalidPreflightHint,
		Message: "hint rejected",
	}
	if back := rpc.ErrorFromWire(rpc.ErrorToWire(err)); back != err {
		t.Fatalf("round trip changed the error: %+v", back)
	}
}

func TestRefsToWire(t *testing.T) {
	t.Parallel()
	refs := []managerdomain.EntityReference{
		managerdomain.NewEntityReference("a://1"),
		managerdomain.NewEntityReference("a://2"),
	}
	wire := rpc.RefsToWire(refs)
	if len(wire) != 2 || wire[0] != "a://1" || wire[1] != "a://2" {
		t.Fatalf("unexpected wire refs: %v", wire)
	}
}
