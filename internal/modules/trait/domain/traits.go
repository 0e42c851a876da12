package domain

import (
	"fmt"
	"sort"

	apperrors "amio/internal/platform/errors"
)

// TraitID names a single facet of schema attached to an entity, e.g.
// "image" or "version".
type TraitID = string

// PropertyKey names one property within a trait.
type PropertyKey = string

// ValueType enumerates the closed set of property value types that may
// cross the host/manager boundary.
type ValueType int

const (
	ValueTypeBool ValueType = iota
	ValueTypeInt
	ValueTypeFloat
	ValueTypeString
)

// Value is a closed variant over {bool, int64, float64, string}. The
// zero Value is a false bool.
type Value struct {
	kind ValueType
	b    bool
	i    int64
	f    float64
	s    string
}

func Bool(v bool) Value     { return Value{kind: ValueTypeBool, b: v} }
func Int(v int64) Value     { return Value{kind: ValueTypeInt, i: v} }
func Float(v float64) Value { return Value{kind: ValueTypeFloat, f: v} }
func String(v string) Value { return Value{kind: ValueTypeString, s: v} }

func (v Value) Type() ValueType { return v.kind }

func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == ValueTypeBool }
func (v Value) AsInt() (int64, bool)     { return v.i, v.kind == ValueTypeInt }
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == ValueTypeFloat }
func (v Value) AsString() (string, bool) { return v.s, v.kind == ValueTypeString }

// String renders the value for diagnostics. Not a wire format.
func (v Value) String() string {
	switch v.kind {
	case ValueTypeBool:
		return fmt.Sprintf("%t", v.b)
	case ValueTypeInt:
		return fmt.Sprintf("%d", v.i)
	case ValueTypeFloat:
		return fmt.Sprintf("%g", v.f)
	case ValueTypeString:
		return v.s
	default:
		return "<invalid>"
	}
}

// TraitSet is a set of trait identifiers. The zero value is usable.
type TraitSet map[TraitID]struct{}

func NewTraitSet(ids ...TraitID) TraitSet {
	set := make(TraitSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s TraitSet) Has(id TraitID) bool {
	_, ok := s[id]
	return ok
}

func (s TraitSet) Add(id TraitID) {
	s[id] = struct{}{}
}

func (s TraitSet) Equal(other TraitSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Slice returns the trait identifiers in sorted order.
func (s TraitSet) Slice() []TraitID {
	ids := make([]TraitID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TraitsData holds a property bag keyed by trait identifier. A trait
// may be present with zero properties; trait presence and property
// presence are independent. Consumers treat an instance as immutable
// once shared, so copying is always an explicit deep copy.
type TraitsData struct {
	data map[TraitID]map[PropertyKey]Value
}

func NewTraitsData() *TraitsData {
	return &TraitsData{data: map[TraitID]map[PropertyKey]Value{}}
}

// NewTraitsDataOf constructs an instance with the given traits present
// and no properties set.
func NewTraitsDataOf(traitSet TraitSet) *TraitsData {
	d := NewTraitsData()
	d.AddTraits(traitSet)
	return d
}

// CopyTraitsData deep-copies src. A nil src is an input validation
// error: callers asking to copy a missing instance must not silently
// receive an empty one.
func CopyTraitsData(src *TraitsData) (*TraitsData, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: cannot copy-construct from a nil TraitsData", apperrors.ErrInvalidInput)
	}
	dst := NewTraitsData()
	for traitID, properties := range src.data {
		copied := make(map[PropertyKey]Value, len(properties))
		for key, value := range properties {
			copied[key] = value
		}
		dst.data[traitID] = copied
	}
	return dst, nil
}

// AddTrait adds the trait with no properties if absent. Idempotent.
func (d *TraitsData) AddTrait(traitID TraitID) {
	if _, ok := d.data[traitID]; !ok {
		d.data[traitID] = map[PropertyKey]Value{}
	}
}

func (d *TraitsData) AddTraits(traitSet TraitSet) {
	for traitID := range traitSet {
		d.AddTrait(traitID)
	}
}

func (d *TraitsData) HasTrait(traitID TraitID) bool {
	_, ok := d.data[traitID]
	return ok
}

// TraitSet returns a snapshot of the trait identifiers present.
func (d *TraitsData) TraitSet() TraitSet {
	set := make(TraitSet, len(d.data))
	for traitID := range d.data {
		set[traitID] = struct{}{}
	}
	return set
}

// SetTraitProperty sets key to value, implicitly adding the trait if
// absent. Existing values are overwritten silently.
func (d *TraitsData) SetTraitProperty(traitID TraitID, key PropertyKey, value Value) {
	d.AddTrait(traitID)
	d.data[traitID][key] = value
}

// TraitProperty reports the value for (traitID, key) and whether it was
// found. Absent traits and absent keys are a not-found, not an error.
func (d *TraitsData) TraitProperty(traitID TraitID, key PropertyKey) (Value, bool) {
	properties, ok := d.data[traitID]
	if !ok {
		return Value{}, false
	}
	value, ok := properties[key]
	return value, ok
}

// TraitPropertyKeys returns the sorted property keys of the trait, or
// nil if the trait is absent.
func (d *TraitsData) TraitPropertyKeys(traitID TraitID) []PropertyKey {
	properties, ok := d.data[traitID]
	if !ok {
		return nil
	}
	keys := make([]PropertyKey, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports structural equality: trait sets match and every trait's
// property mapping matches.
func (d *TraitsData) Equal(other *TraitsData) bool {
	if other == nil {
		return false
	}
	if len(d.data) != len(other.data) {
		return false
	}
	for traitID, properties := range d.data {
		otherProperties, ok := other.data[traitID]
		if !ok || len(properties) != len(otherProperties) {
			return false
		}
		for key, value := range properties {
			otherValue, ok := otherProperties[key]
			if !ok || value != otherValue {
				return false
			}
		}
	}
	return true
}

// InfoDictionary is a flat key/value mapping used for manager info and
// settings payloads.
type InfoDictionary map[string]Value

// Merge copies entries from other that are not already present.
func (i InfoDictionary) Merge(other InfoDictionary) {
	for key, value := range other {
		if _, ok := i[key]; !ok {
			i[key] = value
		}
	}
}

// Copy returns an independent shallow copy (values are immutable).
func (i InfoDictionary) Copy() InfoDictionary {
	out := make(InfoDictionary, len(i))
	for key, value := range i {
		out[key] = value
	}
	return out
}
