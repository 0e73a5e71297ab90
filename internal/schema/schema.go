// Package schema validates and coerces custom field definitions and values
// between the service's wire representation and typed local values. Code
// outside this package only ever sees a FieldValue that already matches its
// definition; illegal values are rejected at construction and never stored.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// FieldType is the declared type of a custom field definition.
type FieldType string

const (
	TypeText      FieldType = "text"
	TypeNumber    FieldType = "number"
	TypeEnum      FieldType = "enum"
	TypeMultiEnum FieldType = "multi_enum"
)

// ErrSchemaMismatch reports a wire value that does not fit its definition.
// The owning task is retained and the field shown degraded; the model never
// stores the offending value.
var ErrSchemaMismatch = errors.New("schema: value does not match field definition")

// UnknownOptionError reports an enum value referencing an option that is not
// in the cached definition. Callers treat it as a stale-definition signal.
type UnknownOptionError struct {
	FieldGID  string
	OptionGID string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("schema: field %s references unknown option %s", e.FieldGID, e.OptionGID)
}

// EnumOption is one allowed choice of an enum or multi-enum field.
type EnumOption struct {
	GID     string `json:"gid"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Color   string `json:"color,omitempty"`
}

// FieldDefinition describes one custom field of a project. Definitions are
// immutable once fetched and replaced wholesale on refresh.
type FieldDefinition struct {
	GID     string
	Name    string
	Type    FieldType
	Options []EnumOption
}

// Option returns the enum option with the given GID, if declared.
func (d FieldDefinition) Option(gid string) (EnumOption, bool) {
	for _, opt := range d.Options {
		if opt.GID == gid {
			return opt, true
		}
	}
	return EnumOption{}, false
}

// WireEnumOption is the JSON shape of an enum option value slot.
type WireEnumOption struct {
	GID     string `json:"gid"`
	Name    string `json:"name,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
	Color   string `json:"color,omitempty"`
}

// WireField is the JSON shape of a custom field as the service returns it on
// a task or a project: the definition part plus at most one populated value
// slot matching resource_subtype.
type WireField struct {
	GID             string           `json:"gid"`
	Name            string           `json:"name"`
	ResourceSubtype string           `json:"resource_subtype"`
	EnumOptions     []WireEnumOption `json:"enum_options,omitempty"`
	TextValue       *string          `json:"text_value,omitempty"`
	NumberValue     *json.Number     `json:"number_value,omitempty"`
	EnumValue       *WireEnumOption  `json:"enum_value,omitempty"`
	MultiEnumValues []WireEnumOption `json:"multi_enum_values,omitempty"`
}

// DefinitionFromWire extracts the definition part of a wire field.
func DefinitionFromWire(w WireField) (FieldDefinition, error) {
	var typ FieldType
	switch FieldType(w.ResourceSubtype) {
	case TypeText, TypeNumber, TypeEnum, TypeMultiEnum:
		typ = FieldType(w.ResourceSubtype)
	default:
		return FieldDefinition{}, fmt.Errorf("%w: field %s has unsupported subtype %q",
			ErrSchemaMismatch, w.GID, w.ResourceSubtype)
	}
	def := FieldDefinition{GID: w.GID, Name: w.Name, Type: typ}
	for _, opt := range w.EnumOptions {
		def.Options = append(def.Options, EnumOption(opt))
	}
	return def, nil
}

// FieldValue is a type-tagged custom field value bound to a definition.
// Exactly one slot is meaningful, selected by the definition's type; the
// zero slot plus set=false represents an explicitly empty value.
type FieldValue struct {
	defGID  string
	typ     FieldType
	set     bool
	text    string
	number  decimal.Decimal
	option  string
	options []string
}

// DefinitionGID returns the GID of the definition this value belongs to.
func (v FieldValue) DefinitionGID() string { return v.defGID }

// Type returns the declared type of the underlying definition.
func (v FieldValue) Type() FieldType { return v.typ }

// IsSet reports whether the value is populated (false means empty/unset).
func (v FieldValue) IsSet() bool { return v.set }

// Text returns the text slot. Only meaningful for TypeText when set.
func (v FieldValue) Text() string { return v.text }

// Number returns the number slot. Only meaningful for TypeNumber when set.
func (v FieldValue) Number() decimal.Decimal { return v.number }

// Option returns the single enum option GID. Only meaningful for TypeEnum.
func (v FieldValue) Option() string { return v.option }

// Options returns the multi-enum option GIDs in display order. The returned
// slice is a copy.
func (v FieldValue) Options() []string {
	if len(v.options) == 0 {
		return nil
	}
	out := make([]string, len(v.options))
	copy(out, v.options)
	return out
}

// Equal reports whether two values are the same field value. Numbers compare
// by decimal equality, multi-enum by exact order.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.defGID != other.defGID || v.typ != other.typ || v.set != other.set {
		return false
	}
	if !v.set {
		return true
	}
	switch v.typ {
	case TypeText:
		return v.text == other.text
	case TypeNumber:
		return v.number.Equal(other.number)
	case TypeEnum:
		return v.option == other.option
	case TypeMultiEnum:
		if len(v.options) != len(other.options) {
			return false
		}
		for i := range v.options {
			if v.options[i] != other.options[i] {
				return false
			}
		}
		return true
	}
	return false
}

// EmptyValue returns the unset value for a definition.
func EmptyValue(def FieldDefinition) FieldValue {
	return FieldValue{defGID: def.GID, typ: def.Type}
}

// TextValue constructs a text value. Content is stored byte-for-byte; the
// engine never trims or normalizes user text.
func TextValue(def FieldDefinition, text string) (FieldValue, error) {
	if def.Type != TypeText {
		return FieldValue{}, fmt.Errorf("%w: field %s is %s, not text", ErrSchemaMismatch, def.GID, def.Type)
	}
	return FieldValue{defGID: def.GID, typ: TypeText, set: true, text: text}, nil
}

// NumberValue constructs a number value.
func NumberValue(def FieldDefinition, n decimal.Decimal) (FieldValue, error) {
	if def.Type != TypeNumber {
		return FieldValue{}, fmt.Errorf("%w: field %s is %s, not number", ErrSchemaMismatch, def.GID, def.Type)
	}
	return FieldValue{defGID: def.GID, typ: TypeNumber, set: true, number: n}, nil
}

// EnumValue constructs a single-enum value. The option must be declared by
// the definition.
func EnumValue(def FieldDefinition, optionGID string) (FieldValue, error) {
	if def.Type != TypeEnum {
		return FieldValue{}, fmt.Errorf("%w: field %s is %s, not enum", ErrSchemaMismatch, def.GID, def.Type)
	}
	if _, ok := def.Option(optionGID); !ok {
		return FieldValue{}, &UnknownOptionError{FieldGID: def.GID, OptionGID: optionGID}
	}
	return FieldValue{defGID: def.GID, typ: TypeEnum, set: true, option: optionGID}, nil
}

// MultiEnumValue constructs a multi-enum value. Duplicates collapse keeping
// first-occurrence order; every option must be declared by the definition.
func MultiEnumValue(def FieldDefinition, optionGIDs []string) (FieldValue, error) {
	if def.Type != TypeMultiEnum {
		return FieldValue{}, fmt.Errorf("%w: field %s is %s, not multi_enum", ErrSchemaMismatch, def.GID, def.Type)
	}
	seen := make(map[string]struct{}, len(optionGIDs))
	var ordered []string
	for _, gid := range optionGIDs {
		if _, ok := def.Option(gid); !ok {
			return FieldValue{}, &UnknownOptionError{FieldGID: def.GID, OptionGID: gid}
		}
		if _, dup := seen[gid]; dup {
			continue
		}
		seen[gid] = struct{}{}
		ordered = append(ordered, gid)
	}
	if len(ordered) == 0 {
		return EmptyValue(def), nil
	}
	return FieldValue{defGID: def.GID, typ: TypeMultiEnum, set: true, options: ordered}, nil
}

// Coerce validates a wire field against its definition and produces a typed
// value. Unknown enum options are rejected, never silently dropped; the
// caller decides whether to refetch the definition or degrade the field.
func Coerce(def FieldDefinition, w WireField) (FieldValue, error) {
	if w.GID != def.GID {
		return FieldValue{}, fmt.Errorf("%w: wire field %s coerced against definition %s",
			ErrSchemaMismatch, w.GID, def.GID)
	}
	switch def.Type {
	case TypeText:
		if w.TextValue == nil {
			return EmptyValue(def), nil
		}
		return TextValue(def, *w.TextValue)
	case TypeNumber:
		if w.NumberValue == nil {
			return EmptyValue(def), nil
		}
		n, err := decimal.NewFromString(w.NumberValue.String())
		if err != nil {
			return FieldValue{}, fmt.Errorf("%w: field %s number %q: %v",
				ErrSchemaMismatch, def.GID, w.NumberValue.String(), err)
		}
		return NumberValue(def, n)
	case TypeEnum:
		if w.EnumValue == nil {
			return EmptyValue(def), nil
		}
		return EnumValue(def, w.EnumValue.GID)
	case TypeMultiEnum:
		if len(w.MultiEnumValues) == 0 {
			return EmptyValue(def), nil
		}
		gids := make([]string, 0, len(w.MultiEnumValues))
		for _, opt := range w.MultiEnumValues {
			gids = append(gids, opt.GID)
		}
		return MultiEnumValue(def, gids)
	default:
		return FieldValue{}, fmt.Errorf("%w: definition %s has unsupported type %q",
			ErrSchemaMismatch, def.GID, def.Type)
	}
}

// UpdatePayload renders the value as the service expects it inside an
// update request's custom_fields object. Unset values render as nil, which
// clears the field remotely.
func (v FieldValue) UpdatePayload() any {
	if !v.set {
		return nil
	}
	switch v.typ {
	case TypeText:
		return v.text
	case TypeNumber:
		return json.Number(v.number.String())
	case TypeEnum:
		return v.option
	case TypeMultiEnum:
		return v.Options()
	}
	return nil
}

// WireValue renders the value back into the wire field's value slots, the
// inverse of Coerce. Used by tests to prove round-trip fidelity and by the
// reconciler to echo optimistic values into cached wire state.
func (v FieldValue) WireValue(def FieldDefinition) WireField {
	w := WireField{GID: def.GID, Name: def.Name, ResourceSubtype: string(def.Type)}
	for _, opt := range def.Options {
		w.EnumOptions = append(w.EnumOptions, WireEnumOption(opt))
	}
	if !v.set {
		return w
	}
	switch v.typ {
	case TypeText:
		text := v.text
		w.TextValue = &text
	case TypeNumber:
		n := json.Number(v.number.String())
		w.NumberValue = &n
	case TypeEnum:
		if opt, ok := def.Option(v.option); ok {
			wo := WireEnumOption(opt)
			w.EnumValue = &wo
		}
	case TypeMultiEnum:
		for _, gid := range v.options {
			if opt, ok := def.Option(gid); ok {
				w.MultiEnumValues = append(w.MultiEnumValues, WireEnumOption(opt))
			}
		}
	}
	return w
}

// String renders the value for display using the definition's option labels.
func (v FieldValue) String(def FieldDefinition) string {
	if !v.set {
		return ""
	}
	switch v.typ {
	case TypeText:
		return v.text
	case TypeNumber:
		return v.number.String()
	case TypeEnum:
		if opt, ok := def.Option(v.option); ok {
			return opt.Name
		}
		return v.option
	case TypeMultiEnum:
		out := ""
		for i, gid := range v.options {
			label := gid
			if opt, ok := def.Option(gid); ok {
				label = opt.Name
			}
			if i > 0 {
				out += ", "
			}
			out += label
		}
		return out
	}
	return ""
}
