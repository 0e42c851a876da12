package domain_test

import (
	"errors"
	"testing"

	"amio/internal/modules/trait/domain"
	apperrors "amio/internal/platform/errors"
)

func TestValueAccessorsMatchConstructedType(t *testing.T) {
	t.Parallel()
	if v, ok := domain.Bool(true).AsBool(); !ok || !v {
		t.Fatalf("expected bool true, got %v ok=%v", v, ok)
	}
	if _, ok := domain.Bool(true).AsInt(); ok {
		t.Fatalf("bool value must not read as int")
	}
	if v, ok := domain.Int(42).AsInt(); !ok || v != 42 {
		t.Fatalf("expected int 42, got %v ok=%v", v, ok)
	}
	if v, ok := domain.Float(1.5).AsFloat(); !ok || v != 1.5 {
		t.Fatalf("expected float 1.5, got %v ok=%v", v, ok)
	}
	if v, ok := domain.String("hi").AsString(); !ok || v != "hi" {
		t.Fatalf("expected string hi, got %q ok=%v", v, ok)
	}
}

func TestValueStringRendersEachKind(t *testing.T) {
	t.Parallel()
	cases := []struct {
		value domain.Value
		want  string
	}{
		{domain.Bool(false), "false"},
		{domain.Int(-7), "-7"},
		{domain.Float(2.5), "2.5"},
		{domain.String("x"), "x"},
	}
	for _, c := range cases {
		if got := c.value.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}

func TestTraitSetEqualIgnoresOrder(t *testing.T) {
	t.Parallel()
	a := domain.NewTraitSet("image", "version")
	b := domain.NewTraitSet("version", "image")
	if !a.Equal(b) {
		t.Fatalf("sets with identical members must be equal")
	}
	b.Add("extra")
	if a.Equal(b) {
		t.Fatalf("sets of different size must not be equal")
	}
	if got := b.Slice(); got[0] != "extra" || got[1] != "image" || got[2] != "version" {
		t.Fatalf("Slice must be sorted, got %v", got)
	}
}

func TestTraitsDataTraitPresenceWithoutProperties(t *testing.T) {
	t.Parallel()
	d := domain.NewTraitsData()
	d.AddTrait("image")
	d.AddTrait("image")
	if !d.HasTrait("image") {
		t.Fatalf("added trait must be present")
	}
	if keys := d.TraitPropertyKeys("image"); len(keys) != 0 || keys == nil {
		t.Fatalf("present trait with no properties must yield empty non-nil keys, got %v", keys)
	}
	if keys := d.TraitPropertyKeys("absent"); keys != nil {
		t.Fatalf("absent trait must yield nil keys, got %v", keys)
	}
}

func TestTraitsDataSetPropertyImplicitlyAddsTrait(t *testing.T) {
	t.Parallel()
	d := domain.NewTraitsData()
	d.SetTraitProperty("image", "width", domain.Int(1920))
	if !d.HasTrait("image") {
		t.Fatalf("setting a property must add the trait")
	}
	value, ok := d.TraitProperty("image", "width")
	if !ok {
		t.Fatalf("expected property to be present")
	}
	if got, _ := value.AsInt(); got != 1920 {
		t.Fatalf("expected 1920, got %d", got)
	}
	if _, ok := d.TraitProperty("image", "height"); ok {
		t.Fatalf("unset key must report not found")
	}

	d.SetTraitProperty("image", "width", domain.Int(3840))
	value, _ = d.TraitProperty("image", "width")
	if got, _ := value.AsInt(); got != 3840 {
		t.Fatalf("overwrite must win, got %d", got)
	}
}

func TestTraitsDataPropertyKeysSorted(t *testing.T) {
	t.Parallel()
	d := domain.NewTraitsData()
	d.SetTraitProperty("image", "width", domain.Int(1))
	d.SetTraitProperty("image", "depth", domain.Int(2))
	d.SetTraitProperty("image", "height", domain.Int(3))
	keys := d.TraitPropertyKeys("image")
	if len(keys) != 3 || keys[0] != "depth" || keys[1] != "height" || keys[2] != "width" {
		t.Fatalf("expected sorted keys, got %v", keys)
	}
}

func TestCopyTraitsDataIsolatesMutation(t *testing.T) {
	t.Parallel()
	src := domain.NewTraitsDataOf(domain.NewTraitSet("image"))
	src.SetTraitProperty("image", "width", domain.Int(100))

	dst, err := domain.CopyTraitsData(src)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if !dst.Equal(src) {
		t.Fatalf("copy must be structurally equal to source")
	}

	dst.SetTraitProperty("image", "width", domain.Int(200))
	dst.AddTrait("version")
	if value, _ := src.TraitProperty("image", "width"); value.String() != "100" {
		t.Fatalf("mutating copy must not touch source, got %s", value.String())
	}
	if src.HasTrait("version") {
		t.Fatalf("adding trait to copy must not touch source")
	}
}

func TestCopyTraitsDataNilSourceFails(t *testing.T) {
	t.Parallel()
	_, err := domain.CopyTraitsData(nil)
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestTraitsDataEqual(t *testing.T) {
	t.Parallel()
	a := domain.NewTraitsData()
	a.SetTraitProperty("image", "width", domain.Int(1))
	b := domain.NewTraitsData()
	b.SetTraitProperty("image", "width", domain.Int(1))
	if !a.Equal(b) {
		t.Fatalf("identical data must be equal")
	}
	b.SetTraitProperty("image", "width", domain.Float(1))
	if a.Equal(b) {
		t.Fatalf("same rendering but different kinds must not be equal")
	}
	if a.Equal(nil) {
		t.Fatalf("nil must never be equal")
	}
}

func TestInfoDictionaryMergeKeepsExisting(t *testing.T) {
	t.Parallel()
	base := domain.InfoDictionary{"vendor": domain.String("a")}
	base.Merge(domain.InfoDictionary{
		"vendor":  domain.String("b"),
		"version": domain.String("1"),
	})
	if v, _ := base["vendor"].AsString(); v != "a" {
		t.Fatalf("merge must not overwrite, got %q", v)
	}
	if v, _ := base["version"].AsString(); v != "1" {
		t.Fatalf("merge must add missing keys, got %q", v)
	}

	copied := base.Copy()
	copied["vendor"] = domain.String("c")
	if v, _ := base["vendor"].AsString(); v != "a" {
		t.Fatalf("copy must be independent, got %q", v)
	}
}
