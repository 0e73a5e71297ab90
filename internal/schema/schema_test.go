package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func textDef() FieldDefinition {
	return FieldDefinition{GID: "cf-text", Name: "Notes", Type: TypeText}
}

func numberDef() FieldDefinition {
	return FieldDefinition{GID: "cf-num", Name: "Estimate", Type: TypeNumber}
}

func enumDef() FieldDefinition {
	return FieldDefinition{
		GID:  "cf-enum",
		Name: "Priority",
		Type: TypeEnum,
		Options: []EnumOption{
			{GID: "opt-low", Name: "Low", Enabled: true},
			{GID: "opt-high", Name: "High", Enabled: true},
		},
	}
}

func multiDef() FieldDefinition {
	return FieldDefinition{
		GID:  "cf-multi",
		Name: "Tags",
		Type: TypeMultiEnum,
		Options: []EnumOption{
			{GID: "opt-a", Name: "A", Enabled: true},
			{GID: "opt-b", Name: "B", Enabled: true},
			{GID: "opt-c", Name: "C", Enabled: true},
		},
	}
}

func TestCoerceRoundTripsLegalValues(t *testing.T) {
	num := decimal.RequireFromString("12.340")
	cases := []struct {
		name string
		def  FieldDefinition
		make func(t *testing.T) FieldValue
	}{
		{"text", textDef(), func(t *testing.T) FieldValue {
			v, err := TextValue(textDef(), "  keep my whitespace  ")
			if err != nil {
				t.Fatalf("TextValue: %v", err)
			}
			return v
		}},
		{"number", numberDef(), func(t *testing.T) FieldValue {
			v, err := NumberValue(numberDef(), num)
			if err != nil {
				t.Fatalf("NumberValue: %v", err)
			}
			return v
		}},
		{"enum", enumDef(), func(t *testing.T) FieldValue {
			v, err := EnumValue(enumDef(), "opt-high")
			if err != nil {
				t.Fatalf("EnumValue: %v", err)
			}
			return v
		}},
		{"multi_enum", multiDef(), func(t *testing.T) FieldValue {
			v, err := MultiEnumValue(multiDef(), []string{"opt-b", "opt-a"})
			if err != nil {
				t.Fatalf("MultiEnumValue: %v", err)
			}
			return v
		}},
		{"empty", enumDef(), func(t *testing.T) FieldValue {
			return EmptyValue(enumDef())
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want := tc.make(t)
			got, err := Coerce(tc.def, want.WireValue(tc.def))
			if err != nil {
				t.Fatalf("Coerce: %v", err)
			}
			if !got.Equal(want) {
				t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
			}
		})
	}
}

func TestCoerceRejectsUnknownEnumOption(t *testing.T) {
	w := WireField{
		GID:             "cf-enum",
		ResourceSubtype: "enum",
		EnumValue:       &WireEnumOption{GID: "opt-gone"},
	}
	_, err := Coerce(enumDef(), w)
	var unknown *UnknownOptionError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownOptionError, got %v", err)
	}
	if unknown.OptionGID != "opt-gone" || unknown.FieldGID != "cf-enum" {
		t.Fatalf("unexpected error detail: %+v", unknown)
	}
}

func TestCoerceRejectsUnknownMultiEnumOption(t *testing.T) {
	w := WireField{
		GID:             "cf-multi",
		ResourceSubtype: "multi_enum",
		MultiEnumValues: []WireEnumOption{{GID: "opt-a"}, {GID: "opt-gone"}},
	}
	_, err := Coerce(multiDef(), w)
	var unknown *UnknownOptionError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownOptionError, got %v", err)
	}
}

func TestMultiEnumCollapsesDuplicatesKeepingFirstOccurrence(t *testing.T) {
	v, err := MultiEnumValue(multiDef(), []string{"opt-b", "opt-a", "opt-b", "opt-c", "opt-a"})
	if err != nil {
		t.Fatalf("MultiEnumValue: %v", err)
	}
	got := v.Options()
	want := []string{"opt-b", "opt-a", "opt-c"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestNumberSurvivesWireRoundTripWithoutDrift(t *testing.T) {
	// 0.1 + 0.2 style values must not pick up float artifacts.
	raw := json.Number("1234567890.123456789")
	w := WireField{GID: "cf-num", ResourceSubtype: "number", NumberValue: &raw}
	v, err := Coerce(numberDef(), w)
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	payload, ok := v.UpdatePayload().(json.Number)
	if !ok {
		t.Fatalf("expected json.Number payload, got %T", v.UpdatePayload())
	}
	if payload.String() != "1234567890.123456789" {
		t.Fatalf("number drifted: %s", payload)
	}
}

func TestCoerceRejectsMalformedNumber(t *testing.T) {
	raw := json.Number("not-a-number")
	w := WireField{GID: "cf-num", ResourceSubtype: "number", NumberValue: &raw}
	_, err := Coerce(numberDef(), w)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestTextIsStoredVerbatim(t *testing.T) {
	text := "\ttrailing and leading stay\n"
	v, err := TextValue(textDef(), text)
	if err != nil {
		t.Fatalf("TextValue: %v", err)
	}
	if v.Text() != text {
		t.Fatalf("text was rewritten: %q", v.Text())
	}
	if got := v.UpdatePayload(); got != text {
		t.Fatalf("payload rewrote text: %q", got)
	}
}

func TestConstructorsRejectTypeMismatch(t *testing.T) {
	if _, err := TextValue(numberDef(), "x"); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if _, err := EnumValue(textDef(), "opt-low"); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestDefinitionFromWireRejectsUnsupportedSubtype(t *testing.T) {
	_, err := DefinitionFromWire(WireField{GID: "cf-x", ResourceSubtype: "formula"})
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestStringUsesOptionLabels(t *testing.T) {
	v, err := MultiEnumValue(multiDef(), []string{"opt-c", "opt-a"})
	if err != nil {
		t.Fatalf("MultiEnumValue: %v", err)
	}
	if got := v.String(multiDef()); got != "C, A" {
		t.Fatalf("got %q", got)
	}
}
