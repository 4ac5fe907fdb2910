package marshal

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/schema"
)

// Create persists a new row from the payload inside one transaction:
// scalars and single relations first, then the row itself, then to-many
// collections and owned children. Any failure rolls the whole write back.
func Create(ctx context.Context, db *gorm.DB, s *schema.Schema, payload map[string]any) (any, error) {
	row := s.New()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return writeRow(ctx, tx, s, payload, row, true, nil)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Update applies the payload to a loaded row inside one transaction,
// replacing to-many collections and owned children wholesale.
func Update(ctx context.Context, db *gorm.DB, s *schema.Schema, payload map[string]any, row any) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return writeRow(ctx, tx, s, payload, row, false, nil)
	})
}

// writeRow is the write path of one aggregate level. injected names
// bypass the required-field check for values the caller assigns itself
// (reverse foreign keys of nested children).
func writeRow(ctx context.Context, tx *gorm.DB, s *schema.Schema, payload map[string]any, row any, creating bool, injected map[string]bool) error {
	for key := range payload {
		if _, ok := s.Field(key); !ok {
			return errs.InvalidArgumentf("unknown field %q", key)
		}
	}
	if creating {
		for _, spec := range s.Fields {
			if spec.Optional || injected[spec.JSON] {
				continue
			}
			if _, ok := payload[spec.JSON]; !ok {
				return errs.InvalidArgumentf("missing required field %q", spec.JSON)
			}
		}
	}

	rv := reflect.ValueOf(row)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	type deferred struct {
		spec  *schema.FieldSpec
		value any
	}
	var collections []deferred

	for _, spec := range s.Fields {
		value, present := payload[spec.JSON]
		if !present {
			continue
		}
		switch {
		case spec.Kind == schema.KindNestedMany,
			spec.Kind == schema.KindExpandedMany,
			spec.Kind == schema.KindReferences,
			spec.Kind == schema.KindConcept && spec.Relation != nil && spec.Relation.Kind == schema.RelationMany2Many:
			collections = append(collections, deferred{spec: spec, value: value})
		case spec.Kind == schema.KindConcept:
			if err := assignConcept(ctx, tx, spec, rv, value); err != nil {
				return err
			}
		case spec.Kind == schema.KindUser:
			if err := assignUser(ctx, tx, spec, rv, value); err != nil {
				return err
			}
		default:
			if err := assignScalar(spec, rv, value); err != nil {
				return err
			}
		}
	}

	save := tx.Omit(clause.Associations)
	var err error
	if creating {
		err = save.Create(row).Error
	} else {
		err = save.Save(row).Error
	}
	if err != nil {
		return errs.FromDB(err)
	}

	for _, d := range collections {
		switch d.spec.Kind {
		case schema.KindNestedMany:
			if err := writeChildren(ctx, tx, s, d.spec, rv, row, d.value, creating); err != nil {
				return err
			}
		default:
			if err := replaceMany(ctx, tx, d.spec, row, d.value); err != nil {
				return err
			}
		}
	}
	return nil
}

// assignScalar coerces one envelope value onto its struct field.
func assignScalar(spec *schema.FieldSpec, rv reflect.Value, value any) error {
	field := rv.FieldByName(spec.Name)
	if !field.IsValid() {
		return fmt.Errorf("marshal: no field %s on %s", spec.Name, rv.Type())
	}
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	target := field
	if target.Kind() == reflect.Pointer {
		target.Set(reflect.New(target.Type().Elem()))
		target = target.Elem()
	}

	switch spec.Kind {
	case schema.KindUUID:
		raw, ok := value.(string)
		if !ok {
			return errs.InvalidArgumentf("field %q expects an id", spec.JSON)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return errs.InvalidArgumentf("field %q carries a malformed id", spec.JSON)
		}
		target.Set(reflect.ValueOf(id))

	case schema.KindDate, schema.KindDateTime:
		raw, ok := value.(string)
		if !ok {
			return errs.InvalidArgumentf("field %q expects a date string", spec.JSON)
		}
		t, err := parseTime(raw)
		if err != nil {
			return errs.InvalidArgumentf("field %q carries a malformed date %q", spec.JSON, raw)
		}
		target.Set(reflect.ValueOf(t))

	case schema.KindPeriod:
		period, err := decodePeriod(spec, value)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(period))

	case schema.KindIntRange:
		r, err := decodeIntRange(spec, value)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(r))

	case schema.KindMeasure:
		m, err := decodeMeasure(spec, value)
		if err != nil {
			return err
		}
		target.Set(reflect.ValueOf(m))

	case schema.KindEnum:
		raw, ok := value.(string)
		if !ok {
			return errs.InvalidArgumentf("field %q expects a string", spec.JSON)
		}
		valid := false
		for _, v := range spec.Enum {
			if v == raw {
				valid = true
				break
			}
		}
		if !valid {
			return errs.InvalidArgumentf("field %q has no value %q", spec.JSON, raw)
		}
		target.Set(reflect.ValueOf(raw).Convert(target.Type()))

	case schema.KindString:
		raw, ok := value.(string)
		if !ok {
			return errs.InvalidArgumentf("field %q expects a string", spec.JSON)
		}
		target.Set(reflect.ValueOf(raw).Convert(target.Type()))

	case schema.KindInt:
		n, ok := asFloat(value)
		if !ok {
			return errs.InvalidArgumentf("field %q expects an integer", spec.JSON)
		}
		target.SetInt(int64(n))

	case schema.KindFloat:
		n, ok := asFloat(value)
		if !ok {
			return errs.InvalidArgumentf("field %q expects a number", spec.JSON)
		}
		target.SetFloat(n)

	case schema.KindBool:
		b, ok := value.(bool)
		if !ok {
			return errs.InvalidArgumentf("field %q expects a boolean", spec.JSON)
		}
		target.SetBool(b)

	case schema.KindJSON:
		raw, err := json.Marshal(value)
		if err != nil {
			return errs.InvalidArgumentf("field %q carries malformed json", spec.JSON)
		}
		target.Set(reflect.ValueOf(datatypes.JSON(raw)))

	default:
		return errs.InvalidArgumentf("field %q is not writable", spec.JSON)
	}
	return nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func decodePeriod(spec *schema.FieldSpec, value any) (types.Period, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return types.Period{}, errs.InvalidArgumentf("field %q expects a {start, end} object", spec.JSON)
	}
	out := types.Period{}
	if raw, ok := m["start"].(string); ok && raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return out, errs.InvalidArgumentf("field %q carries a malformed start date", spec.JSON)
		}
		out.Start = &t
	}
	if raw, ok := m["end"].(string); ok && raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return out, errs.InvalidArgumentf("field %q carries a malformed end date", spec.JSON)
		}
		out.End = &t
	}
	return out, nil
}

func decodeIntRange(spec *schema.FieldSpec, value any) (types.IntRange, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return types.IntRange{}, errs.InvalidArgumentf("field %q expects a {start, end} object", spec.JSON)
	}
	out := types.IntRange{}
	if raw, ok := m["start"]; ok && raw != nil {
		n, ok := asFloat(raw)
		if !ok {
			return out, errs.InvalidArgumentf("field %q carries a malformed start", spec.JSON)
		}
		v := int(n)
		out.Start = &v
	}
	if raw, ok := m["end"]; ok && raw != nil {
		n, ok := asFloat(raw)
		if !ok {
			return out, errs.InvalidArgumentf("field %q carries a malformed end", spec.JSON)
		}
		v := int(n)
		out.End = &v
	}
	return out, nil
}

func decodeMeasure(spec *schema.FieldSpec, value any) (types.Measure, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return types.Measure{}, errs.InvalidArgumentf("field %q expects a {value, unit} object", spec.JSON)
	}
	amount, ok := asFloat(m["value"])
	if !ok {
		return types.Measure{}, errs.InvalidArgumentf("field %q expects a numeric value", spec.JSON)
	}
	unit, _ := m["unit"].(string)
	if unit == "" {
		unit = spec.DefaultUnit
	}
	return types.Measure{Amount: amount, Unit: unit}, nil
}

// assignConcept resolves a single concept value (id or {code, system}
// object) and assigns its foreign key.
func assignConcept(ctx context.Context, tx *gorm.DB, spec *schema.FieldSpec, rv reflect.Value, value any) error {
	fkField := rv.FieldByName(spec.Relation.ForeignKey)
	if !fkField.IsValid() {
		return fmt.Errorf("marshal: no foreign key field for %s", spec.JSON)
	}
	if value == nil {
		fkField.Set(reflect.Zero(fkField.Type()))
		clearRelation(rv, spec.Relation.FieldName)
		return nil
	}
	concept, err := resolveConcept(ctx, tx, spec, value)
	if err != nil {
		return err
	}
	setUUID(fkField, concept.ID)
	setRelation(rv, spec.Relation.FieldName, concept)
	return nil
}

// resolveConcept looks one concept up by id or by (code, system). The
// terminology row must exist; writes never create concepts implicitly.
func resolveConcept(ctx context.Context, tx *gorm.DB, spec *schema.FieldSpec, value any) (*types.CodedConcept, error) {
	var concept types.CodedConcept
	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, errs.InvalidArgumentf("field %q carries a malformed concept id", spec.JSON)
		}
		if err := tx.WithContext(ctx).First(&concept, "id = ?", id).Error; err != nil {
			return nil, errs.NotFoundf("concept %s for %q", v, spec.JSON)
		}
	case map[string]any:
		code, _ := v["code"].(string)
		system, _ := v["system"].(string)
		if code == "" {
			return nil, errs.InvalidArgumentf("field %q expects a concept code", spec.JSON)
		}
		q := tx.WithContext(ctx).Where("code = ?", code)
		if system != "" {
			q = q.Where("system = ?", system)
		}
		if spec.Terminology != "" {
			q = q.Where("terminology = ?", spec.Terminology)
		}
		if err := q.First(&concept).Error; err != nil {
			return nil, errs.NotFoundf("concept %s/%s for %q", code, system, spec.JSON)
		}
	default:
		return nil, errs.InvalidArgumentf("field %q expects a concept id or object", spec.JSON)
	}
	return &concept, nil
}

// assignUser resolves a username and assigns its foreign key.
func assignUser(ctx context.Context, tx *gorm.DB, spec *schema.FieldSpec, rv reflect.Value, value any) error {
	fkField := rv.FieldByName(spec.Relation.ForeignKey)
	if !fkField.IsValid() {
		return fmt.Errorf("marshal: no foreign key field for %s", spec.JSON)
	}
	if value == nil {
		fkField.Set(reflect.Zero(fkField.Type()))
		clearRelation(rv, spec.Relation.FieldName)
		return nil
	}
	username, ok := value.(string)
	if !ok {
		return errs.InvalidArgumentf("field %q expects a username", spec.JSON)
	}
	var user types.User
	if err := tx.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return errs.NotFoundf("user %q for %q", username, spec.JSON)
	}
	setUUID(fkField, user.ID)
	setRelation(rv, spec.Relation.FieldName, &user)
	return nil
}

// replaceMany resolves every referenced row of a to-many value and
// replaces the association set.
func replaceMany(ctx context.Context, tx *gorm.DB, spec *schema.FieldSpec, row any, value any) error {
	list, ok := value.([]any)
	if !ok {
		return errs.InvalidArgumentf("field %q expects a list", spec.JSON)
	}

	elemType := spec.Relation.Model
	items := reflect.MakeSlice(reflect.SliceOf(elemType), 0, len(list))

	if spec.Kind == schema.KindConcept {
		for _, entry := range list {
			concept, err := resolveConcept(ctx, tx, spec, entry)
			if err != nil {
				return err
			}
			items = reflect.Append(items, reflect.ValueOf(*concept))
		}
	} else {
		ids := make([]uuid.UUID, 0, len(list))
		for _, entry := range list {
			raw, ok := entry.(string)
			if !ok {
				return errs.InvalidArgumentf("field %q expects a list of ids", spec.JSON)
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				return errs.InvalidArgumentf("field %q carries a malformed id", spec.JSON)
			}
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			loaded := reflect.New(reflect.SliceOf(elemType))
			err := tx.WithContext(ctx).Find(loaded.Interface(), "id IN ?", ids).Error
			if err != nil {
				return errs.FromDB(err)
			}
			if loaded.Elem().Len() != len(ids) {
				return errs.NotFoundf("field %q references missing rows", spec.JSON)
			}
			items = loaded.Elem()
		}
	}

	err := tx.WithContext(ctx).Model(row).Association(spec.Relation.FieldName).Replace(items.Interface())
	if err != nil {
		return errs.FromDB(err)
	}
	return nil
}

// writeChildren replaces the owned children of a one-to-many field,
// recursing through the child schema's write path with the reverse
// foreign key injected.
func writeChildren(ctx context.Context, tx *gorm.DB, s *schema.Schema, spec *schema.FieldSpec, rv reflect.Value, row any, value any, creating bool) error {
	list, ok := value.([]any)
	if !ok {
		return errs.InvalidArgumentf("field %q expects a list", spec.JSON)
	}
	child := spec.Nested
	fkName := spec.Relation.ForeignKey

	parentPK := rv.FieldByName("ID")
	if !parentPK.IsValid() {
		return fmt.Errorf("marshal: parent %s carries no ID", rv.Type())
	}
	parentID, ok := parentPK.Interface().(uuid.UUID)
	if !ok {
		return fmt.Errorf("marshal: parent %s primary key is not a uuid", rv.Type())
	}

	if !creating {
		fk, ok := child.ORM().FieldsByName[fkName]
		if !ok {
			return fmt.Errorf("marshal: child %s has no field %s", child.Name, fkName)
		}
		err := tx.WithContext(ctx).
			Where(fk.DBName+" = ?", parentID).
			Delete(child.New()).Error
		if err != nil {
			return errs.FromDB(err)
		}
	}

	injected := map[string]bool{}
	for _, cs := range child.Fields {
		if cs.Name == fkName {
			injected[cs.JSON] = true
		}
	}

	for _, entry := range list {
		childPayload, ok := entry.(map[string]any)
		if !ok {
			return errs.InvalidArgumentf("field %q expects a list of objects", spec.JSON)
		}
		childRow := child.New()
		crv := reflect.ValueOf(childRow).Elem()
		fkField := crv.FieldByName(fkName)
		if !fkField.IsValid() {
			return fmt.Errorf("marshal: child %s has no field %s", child.Name, fkName)
		}
		setUUID(fkField, parentID)
		if err := writeRow(ctx, tx, child, childPayload, childRow, true, injected); err != nil {
			return err
		}
	}
	return nil
}

// Populate validates the payload against the schema and assigns its
// fields onto a fresh row without saving it. Collection fields are
// rejected; callers use it for polymorphic subtype rows whose insert is
// managed separately (see ReplaceSubtype).
func Populate(ctx context.Context, tx *gorm.DB, s *schema.Schema, payload map[string]any) (any, error) {
	for key := range payload {
		if _, ok := s.Field(key); !ok {
			return nil, errs.InvalidArgumentf("unknown field %q", key)
		}
	}
	for _, spec := range s.Fields {
		if spec.Optional {
			continue
		}
		if _, ok := payload[spec.JSON]; !ok {
			return nil, errs.InvalidArgumentf("missing required field %q", spec.JSON)
		}
	}

	row := s.New()
	rv := reflect.ValueOf(row).Elem()
	for _, spec := range s.Fields {
		value, present := payload[spec.JSON]
		if !present {
			continue
		}
		switch {
		case spec.Kind == schema.KindNestedMany,
			spec.Kind == schema.KindExpandedMany,
			spec.Kind == schema.KindReferences,
			spec.Kind == schema.KindConcept && spec.Relation != nil && spec.Relation.Kind == schema.RelationMany2Many:
			return nil, errs.InvalidArgumentf("field %q is not supported on a subtype payload", spec.JSON)
		case spec.Kind == schema.KindConcept:
			if err := assignConcept(ctx, tx, spec, rv, value); err != nil {
				return nil, err
			}
		case spec.Kind == schema.KindUser:
			if err := assignUser(ctx, tx, spec, rv, value); err != nil {
				return nil, err
			}
		default:
			if err := assignScalar(spec, rv, value); err != nil {
				return nil, err
			}
		}
	}
	return row, nil
}

// ReplaceSubtype swaps the typed child row of a polymorphic parent while
// preserving the shared primary key: the old subtype row is deleted and
// the new one inserted under the parent's id.
func ReplaceSubtype(ctx context.Context, tx *gorm.DB, pk uuid.UUID, old, subtype any) error {
	if old != nil {
		if err := tx.WithContext(ctx).Where("id = ?", pk).Delete(old).Error; err != nil {
			return errs.FromDB(err)
		}
	}
	rv := reflect.ValueOf(subtype).Elem()
	idField := rv.FieldByName("ID")
	if !idField.IsValid() {
		return fmt.Errorf("marshal: subtype %s carries no ID", rv.Type())
	}
	setUUID(idField, pk)
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(subtype).Error; err != nil {
		return errs.FromDB(err)
	}
	return nil
}

func setUUID(field reflect.Value, id uuid.UUID) {
	if field.Kind() == reflect.Pointer {
		field.Set(reflect.New(field.Type().Elem()))
		field.Elem().Set(reflect.ValueOf(id))
		return
	}
	field.Set(reflect.ValueOf(id))
}

func setRelation(rv reflect.Value, fieldName string, value any) {
	f := rv.FieldByName(fieldName)
	if !f.IsValid() || f.Kind() != reflect.Pointer {
		return
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(f.Type()) {
		f.Set(v)
	}
}

func clearRelation(rv reflect.Value, fieldName string) {
	f := rv.FieldByName(fieldName)
	if f.IsValid() && f.Kind() == reflect.Pointer {
		f.Set(reflect.Zero(f.Type()))
	}
}
