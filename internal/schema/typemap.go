package schema

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	gormschema "gorm.io/gorm/schema"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	uuidType     = reflect.TypeOf(uuid.UUID{})
	periodType   = reflect.TypeOf(types.Period{})
	intRangeType = reflect.TypeOf(types.IntRange{})
	measureType  = reflect.TypeOf(types.Measure{})
	rawJSONType  = reflect.TypeOf(datatypes.JSON{})
	conceptType  = reflect.TypeOf(types.CodedConcept{})
	userType     = reflect.TypeOf(types.User{})
)

// buildFields maps the parsed model schema to field specs, one per
// envelope field, applying the include/exclude/expand configuration.
func (f *Factory) buildFields(gs *gormschema.Schema, cfg buildConfig) ([]*FieldSpec, error) {
	// Foreign-key columns consumed by a relation that renders the value
	// itself (concepts, users, expansions) are hidden from the envelope.
	consumedFK := map[string]bool{}
	for _, rel := range gs.Relationships.Relations {
		field := rel.Field
		if field == nil {
			continue
		}
		tag := parseAPITag(field.Tag)
		if tag.exclude {
			continue
		}
		target := rel.FieldSchema.ModelType
		singular := rel.Type == gormschema.BelongsTo || rel.Type == gormschema.HasOne
		if singular && (target == conceptType || target == userType || cfg.expanded(relationJSON(field))) {
			if fk := ownForeignKey(rel); fk != "" {
				consumedFK[fk] = true
			}
		}
	}

	specs := make([]*FieldSpec, 0, len(gs.Fields))
	for _, field := range gs.Fields {
		var (
			spec *FieldSpec
			err  error
		)
		if rel, ok := gs.Relationships.Relations[field.Name]; ok {
			spec, err = f.relationSpec(field, rel, cfg)
		} else {
			spec = scalarSpec(field, consumedFK)
		}
		if err != nil {
			return nil, err
		}
		if spec == nil || !cfg.selected(spec.JSON) {
			continue
		}
		if cfg.variant == VariantCreate && (spec.ReadOnly || field.PrimaryKey) {
			continue
		}
		if cfg.optional[spec.JSON] {
			spec.Optional = true
		}
		if cfg.variant != VariantRead {
			spec.Resolver = nil
		} else if custom, ok := cfg.resolvers[spec.JSON]; ok {
			spec.Resolver = custom
		}
		specs = append(specs, spec)
	}

	for _, custom := range cfg.custom {
		if !cfg.selected(custom.Name) {
			continue
		}
		if cfg.variant != VariantRead {
			continue
		}
		specs = append(specs, &FieldSpec{
			Name:        custom.Name,
			JSON:        custom.Name,
			Kind:        custom.Kind,
			Optional:    true,
			ReadOnly:    true,
			Resolver:    custom.Resolver,
			Description: custom.Description,
		})
	}
	return specs, nil
}

// scalarSpec maps one column-backed field.
func scalarSpec(field *gormschema.Field, consumedFK map[string]bool) *FieldSpec {
	if consumedFK[field.Name] {
		return nil
	}
	tag := parseAPITag(field.Tag)
	if tag.exclude {
		return nil
	}
	name := jsonName(field.Tag, field.DBName)
	spec := &FieldSpec{
		Name:        field.Name,
		JSON:        lowerCamel(name),
		Column:      field.DBName,
		Optional:    field.PrimaryKey || field.HasDefaultValue || !field.NotNull || tag.readonly,
		Nullable:    field.FieldType.Kind() == reflect.Pointer || !field.NotNull,
		ReadOnly:    tag.readonly,
		Enum:        tag.enum,
		MeasureKind: tag.measureKind,
		DefaultUnit: tag.defaultUnit,
		Description: tag.description,
		orm:         field,
	}

	ft := field.FieldType
	for ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}
	switch {
	case ft == uuidType:
		spec.Kind = KindUUID
	case ft == timeType:
		if field.DataType == "date" {
			spec.Kind = KindDate
		} else {
			spec.Kind = KindDateTime
		}
	case ft == periodType:
		spec.Kind = KindPeriod
		spec.Resolver = resolveEnvelope(field.Name)
	case ft == intRangeType:
		spec.Kind = KindIntRange
		spec.Resolver = resolveEnvelope(field.Name)
	case ft == measureType:
		spec.Kind = KindMeasure
		spec.Resolver = resolveMeasure(field.Name, tag.defaultUnit)
	case ft == rawJSONType:
		spec.Kind = KindJSON
	case ft.Kind() == reflect.String:
		if len(tag.enum) > 0 {
			spec.Kind = KindEnum
		} else {
			spec.Kind = KindString
		}
	case ft.Kind() == reflect.Bool:
		spec.Kind = KindBool
	case ft.Kind() >= reflect.Int && ft.Kind() <= reflect.Uint64:
		spec.Kind = KindInt
	case ft.Kind() == reflect.Float32 || ft.Kind() == reflect.Float64:
		spec.Kind = KindFloat
	case ft.Kind() == reflect.Slice:
		spec.Kind = KindArray
		spec.Elem = KindString
	default:
		spec.Kind = KindString
	}
	return spec
}

// relationSpec maps one relation-backed field. Plain single relations
// without expansion yield nil: their raw id column already carries the
// envelope field.
func (f *Factory) relationSpec(field *gormschema.Field, rel *gormschema.Relationship, cfg buildConfig) (*FieldSpec, error) {
	tag := parseAPITag(field.Tag)
	if tag.exclude {
		return nil, nil
	}
	name := relationJSON(field)
	target := rel.FieldSchema.ModelType
	relation := &RelationSpec{
		Model:      target,
		FieldName:  field.Name,
		ForeignKey: ownForeignKey(rel),
	}
	if rel.JoinTable != nil {
		relation.JoinTable = rel.JoinTable.Table
	}

	switch rel.Type {
	case gormschema.BelongsTo, gormschema.HasOne:
		relation.Kind = RelationBelongsTo
		if rel.Type == gormschema.HasOne {
			relation.Kind = RelationHasOne
		}
		required := false
		if fk, ok := rel.Schema.FieldsByName[relation.ForeignKey]; ok {
			required = fk.NotNull && !fk.HasDefaultValue
		}
		switch {
		case target == conceptType:
			return &FieldSpec{
				Name:        field.Name,
				JSON:        lowerCamel(name),
				Kind:        KindConcept,
				Optional:    !required,
				Nullable:    !required,
				Terminology: tag.terminology,
				Relation:    relation,
				Resolver:    resolveConcept(field.Name, relation.ForeignKey),
				Description: tag.description,
			}, nil
		case target == userType:
			return &FieldSpec{
				Name:        field.Name,
				JSON:        lowerCamel(name),
				Kind:        KindUser,
				Optional:    true,
				Nullable:    true,
				ReadOnly:    tag.readonly,
				Relation:    relation,
				Resolver:    resolveUser(field.Name, relation.ForeignKey),
				Description: tag.description,
			}, nil
		case cfg.expanded(name) && cfg.depth > 0:
			nested, err := f.nested(target, cfg)
			if err != nil {
				return nil, err
			}
			return &FieldSpec{
				Name:        field.Name,
				JSON:        lowerCamel(name),
				Kind:        KindExpanded,
				Optional:    true,
				Nullable:    true,
				Expanded:    true,
				Relation:    relation,
				Nested:      nested,
				Resolver:    resolveRelated(field.Name),
				Description: tag.description,
			}, nil
		default:
			return nil, nil
		}

	case gormschema.HasMany:
		relation.Kind = RelationHasMany
		nested, err := f.nested(target, cfg)
		if err != nil {
			return nil, err
		}
		return &FieldSpec{
			Name:        field.Name,
			JSON:        lowerCamel(name),
			Kind:        KindNestedMany,
			Optional:    true,
			ReadOnly:    tag.readonly,
			Relation:    relation,
			Nested:      nested,
			Resolver:    resolveRelated(field.Name),
			Description: tag.description,
		}, nil

	case gormschema.Many2Many:
		relation.Kind = RelationMany2Many
		switch {
		case target == conceptType:
			return &FieldSpec{
				Name:        field.Name,
				JSON:        lowerCamel(name),
				Kind:        KindConcept,
				Elem:        KindConcept,
				Optional:    true,
				Terminology: tag.terminology,
				Relation:    relation,
				Resolver:    resolveConceptList(field.Name),
				Description: tag.description,
			}, nil
		case cfg.expanded(name) && cfg.depth > 0:
			nested, err := f.nested(target, cfg)
			if err != nil {
				return nil, err
			}
			return &FieldSpec{
				Name:        field.Name,
				JSON:        lowerCamel(name),
				Kind:        KindExpandedMany,
				Optional:    true,
				Expanded:    true,
				Relation:    relation,
				Nested:      nested,
				Resolver:    resolveRelated(field.Name),
				Description: tag.description,
			}, nil
		default:
			return &FieldSpec{
				Name:        field.Name,
				JSON:        singularIDs(lowerCamel(name)),
				Kind:        KindReferences,
				Optional:    true,
				Relation:    relation,
				Resolver:    resolveManyIDs(field.Name),
				Description: tag.description,
			}, nil
		}
	}
	return nil, fmt.Errorf("schema: unsupported relationship %s on %s", rel.Type, field.Name)
}

// nested derives the schema of a related model one level deeper. Create
// schemas nest create schemas; everything else nests read schemas.
func (f *Factory) nested(model reflect.Type, cfg buildConfig) (*Schema, error) {
	variant := VariantRead
	if cfg.variant == VariantCreate {
		variant = VariantCreate
	}
	instance := reflect.New(model).Interface()
	return f.build(instance, variant, []Option{WithDepth(cfg.depth - 1)})
}

// relationJSON is the relation field's own wire name (before any Id/Ids
// suffixing).
func relationJSON(field *gormschema.Field) string {
	return jsonName(field.Tag, gormschema.NamingStrategy{}.ColumnName("", field.Name))
}

// ownForeignKey finds the Go name of the id field backing a relation on
// its owning side.
func ownForeignKey(rel *gormschema.Relationship) string {
	for _, ref := range rel.References {
		if ref.ForeignKey == nil {
			continue
		}
		if rel.Type == gormschema.BelongsTo && ref.ForeignKey.Schema == rel.Schema {
			return ref.ForeignKey.Name
		}
		if rel.Type != gormschema.BelongsTo {
			return ref.ForeignKey.Name
		}
	}
	return ""
}
