// Package schema derives the external data contracts of the curated
// entities from their gorm model definitions: a read schema, a create
// schema and a filter schema per model, each a set of field specs mapping
// envelope names to columns, relations and value kinds.
package schema

import (
	"reflect"
	"strings"

	gormschema "gorm.io/gorm/schema"
)

// FieldKind classifies the external value shape of one field.
type FieldKind string

const (
	KindString   FieldKind = "string"
	KindInt      FieldKind = "integer"
	KindFloat    FieldKind = "number"
	KindBool     FieldKind = "boolean"
	KindUUID     FieldKind = "uuid"
	KindDate     FieldKind = "date"
	KindDateTime FieldKind = "datetime"
	KindEnum     FieldKind = "enum"
	KindMeasure  FieldKind = "measure"
	KindPeriod   FieldKind = "period"
	KindIntRange FieldKind = "int-range"
	KindArray    FieldKind = "array"
	KindJSON     FieldKind = "json"

	// Relation-backed kinds.
	KindConcept      FieldKind = "coded-concept"
	KindUser         FieldKind = "user"
	KindReference    FieldKind = "reference"
	KindReferences   FieldKind = "references"
	KindExpanded     FieldKind = "expanded"
	KindExpandedMany FieldKind = "expanded-many"
	KindNestedMany   FieldKind = "nested-many"
)

// RelationKind mirrors the gorm relationship type of a relation-backed
// field.
type RelationKind string

const (
	RelationBelongsTo RelationKind = "belongs-to"
	RelationHasOne    RelationKind = "has-one"
	RelationHasMany   RelationKind = "has-many"
	RelationMany2Many RelationKind = "many2many"
)

// RelationSpec describes the ORM side of a relation-backed field.
type RelationSpec struct {
	Kind       RelationKind
	Model      reflect.Type
	FieldName  string // Go name of the relation struct field
	ForeignKey string // Go name of the owning-side id field, if any
	JoinTable  string // join table name for many2many
}

// FieldSpec is one field of a derived schema: the envelope name, the
// backing column or relation, and everything the marshaller and filter
// catalog need to know about its value.
type FieldSpec struct {
	Name        string // Go struct field name
	JSON        string // envelope key, lower camel case
	Column      string // database column, empty for pure relations
	Kind        FieldKind
	Elem        FieldKind // element kind for KindArray
	Optional    bool
	Nullable    bool
	ReadOnly    bool
	Enum        []string
	Terminology string
	MeasureKind string
	DefaultUnit string
	Expanded    bool
	Relation    *RelationSpec
	Nested      *Schema    // derived schema of expanded or nested values
	Resolver    ResolverFn // bound read resolver, nil for plain columns
	Description string

	orm *gormschema.Field
}

// ORMField exposes the underlying gorm field descriptor, nil for custom
// and relation-only fields.
func (f *FieldSpec) ORMField() *gormschema.Field { return f.orm }

// Metadata renders the extension attributes carried alongside the type
// descriptor.
func (f *FieldSpec) Metadata() map[string]any {
	out := map[string]any{}
	if f.Description != "" {
		out["description"] = f.Description
	}
	if f.Terminology != "" {
		out["x-terminology"] = f.Terminology
	}
	if f.MeasureKind != "" {
		out["x-measure"] = f.MeasureKind
	}
	if f.DefaultUnit != "" {
		out["x-default-unit"] = f.DefaultUnit
	}
	if f.Expanded {
		out["x-expanded"] = true
	}
	return out
}

// apiTag is the parsed form of the declarative `api:"..."` struct tag.
type apiTag struct {
	exclude     bool
	readonly    bool
	enum        []string
	terminology string
	measureKind string
	defaultUnit string
	description string
}

func parseAPITag(tag reflect.StructTag) apiTag {
	out := apiTag{}
	raw, ok := tag.Lookup("api")
	if !ok || raw == "" {
		return out
	}
	for _, part := range strings.Split(raw, ",") {
		key, value, _ := strings.Cut(part, "=")
		switch key {
		case "exclude":
			out.exclude = true
		case "readonly":
			out.readonly = true
		case "enum":
			out.enum = strings.Split(value, "|")
		case "terminology":
			out.terminology = value
		case "measure":
			out.measureKind = value
		case "unit":
			out.defaultUnit = value
		case "desc":
			out.description = value
		}
	}
	return out
}

// jsonName extracts the wire name from a json struct tag, falling back to
// the given default.
func jsonName(tag reflect.StructTag, fallback string) string {
	raw, ok := tag.Lookup("json")
	if !ok {
		return fallback
	}
	name, _, _ := strings.Cut(raw, ",")
	if name == "" || name == "-" {
		return fallback
	}
	return name
}

// lowerCamel converts a snake_case internal name to the envelope's lower
// camel case.
func lowerCamel(snake string) string {
	parts := strings.Split(snake, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// singularIDs turns a plural envelope name into its id-list form, e.g.
// stagedEntities -> stagedEntityIds, genes -> geneIds.
func singularIDs(name string) string {
	switch {
	case strings.HasSuffix(name, "ies"):
		return name[:len(name)-3] + "yIds"
	case strings.HasSuffix(name, "s"):
		return name[:len(name)-1] + "Ids"
	default:
		return name + "Ids"
	}
}
