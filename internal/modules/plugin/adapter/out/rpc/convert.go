package rpc

import (
	"fmt"

	managerdomain "amio/internal/modules/manager/domain"
	traitdomain "amio/internal/modules/trait/domain"
)

// Conversions between the wire types and the domain model, shared by
// the host-side bridge and plugin binaries.

func ValueToWire(v traitdomain.Value) Value {
	switch v.Type() {
	case traitdomain.ValueTypeBool:
		b, _ := v.AsBool()
		return Value{Type: "bool", Bool: b}
	case traitdomain.ValueTypeInt:
		i, _ := v.AsInt()
		return Value{Type: "int", Int: i}
	case traitdomain.ValueTypeFloat:
		f, _ := v.AsFloat()
		return Value{Type: "float", Float: f}
	default:
		s, _ := v.AsString()
		return Value{Type: "string", Str: s}
	}
}

func ValueFromWire(v Value) (traitdomain.Value, error) {
	switch v.Type {
	case "bool":
		return traitdomain.Bool(v.Bool), nil
	case "int":
		return traitdomain.Int(v.Int), nil
	case "float":
		return traitdomain.Float(v.Float), nil
	case "string":
		return traitdomain.String(v.Str), nil
	default:
		return traitdomain.Value{}, fmt.Errorf("unsupported wire value type %q", v.Type)
	}
}

func TraitsDataToWire(d *traitdomain.TraitsData) TraitsData {
	if d == nil {
		return nil
	}
	out := TraitsData{}
	for _, traitID := range d.TraitSet().Slice() {
		properties := map[string]Value{}
		for _, key := range d.TraitPropertyKeys(traitID) {
			value, _ := d.TraitProperty(traitID, key)
			properties[key] = ValueToWire(value)
		}
		out[traitID] = properties
	}
	return out
}

func TraitsDataFromWire(wire TraitsData) (*traitdomain.TraitsData, error) {
	data := traitdomain.NewTraitsData()
	for traitID, properties := range wire {
		data.AddTrait(traitID)
		for key, wireValue := range properties {
			value, err := ValueFromWire(wireValue)
			if err != nil {
				return nil, fmt.Errorf("trait %q property %q: %w", traitID, key, err)
			}
			data.SetTraitProperty(traitID, key, value)
		}
	}
	return data, nil
}

func InfoToWire(info traitdomain.InfoDictionary) InfoDictionary {
	out := make(InfoDictionary, len(info))
	for key, value := range info {
		out[key] = ValueToWire(value)
	}
	return out
}

func InfoFromWire(wire InfoDictionary) (traitdomain.InfoDictionary, error) {
	out := make(traitdomain.InfoDictionary, len(wire))
	for key, wireValue := range wire {
		value, err := ValueFromWire(wireValue)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out[key] = value
	}
	return out, nil
}

func ContextToWire(cctx *managerdomain.Context) Context {
	if cctx == nil {
		return Context{}
	}
	wire := Context{Locale: cctx.Locale}
	if state, ok := cctx.ManagerState.(string); ok {
		wire.State = state
	}
	return wire
}

func RefsToWire(refs []managerdomain.EntityReference) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.String()
	}
	return out
}

func ErrorFromWire(wire BatchElementError) managerdomain.BatchElementError {
	return managerdomain.BatchElementError{
		Code:    managerdomain.ErrorCode(wire.Code),
		Message: wire.Message,
	}
}

func ErrorToWire(err managerdomain.BatchElementError) BatchElementError {
	return BatchElementError{Code: int(err.Code), Message: err.Message}
}
