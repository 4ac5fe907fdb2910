// Package marshal converts between loaded model instances and the JSON
// envelope, in both directions. Reads walk the schema's field specs;
// writes run inside one transaction and resolve related rows before
// assignment.
package marshal

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oncotrace/oncotrace-backend/internal/schema"
)

const dateLayout = "2006-01-02"

// Read renders one loaded model instance as its envelope. Nil values are
// omitted; fields with bound resolvers delegate to them; expanded and
// nested relations recurse over their nested schemas.
func Read(ctx context.Context, db *gorm.DB, s *schema.Schema, row any) (map[string]any, error) {
	rv := reflect.ValueOf(row)
	out := make(map[string]any, len(s.Fields))

	for _, spec := range s.Fields {
		value, err := readField(ctx, db, spec, rv)
		if err != nil {
			return nil, fmt.Errorf("read %s.%s: %w", s.Name, spec.JSON, err)
		}
		if value == nil {
			continue
		}
		out[spec.JSON] = value
	}
	return out, nil
}

// ReadAll renders a slice of model instances.
func ReadAll(ctx context.Context, db *gorm.DB, s *schema.Schema, rows any) ([]map[string]any, error) {
	rv := reflect.ValueOf(rows)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("marshal: ReadAll expects a slice, got %T", rows)
	}
	out := make([]map[string]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		envelope, err := Read(ctx, db, s, rv.Index(i).Addr().Interface())
		if err != nil {
			return nil, err
		}
		out = append(out, envelope)
	}
	return out, nil
}

func readField(ctx context.Context, db *gorm.DB, spec *schema.FieldSpec, rv reflect.Value) (any, error) {
	if spec.Resolver != nil {
		value, err := spec.Resolver(ctx, db, rv)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, nil
		}
		if spec.Nested != nil {
			return readNested(ctx, db, spec.Nested, value)
		}
		return normalize(spec, reflect.ValueOf(value))
	}

	field := rv
	for field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return nil, nil
		}
		field = field.Elem()
	}
	f := field.FieldByName(spec.Name)
	if !f.IsValid() {
		return nil, fmt.Errorf("no field %s on %s", spec.Name, field.Type())
	}
	for f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return nil, nil
		}
		f = f.Elem()
	}
	return normalize(spec, f)
}

// readNested recurses over an expanded or owned relation value.
func readNested(ctx context.Context, db *gorm.DB, nested *schema.Schema, value any) (any, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice {
		out := make([]map[string]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i)
			if elem.Kind() != reflect.Pointer {
				elem = elem.Addr()
			}
			envelope, err := Read(ctx, db, nested, elem.Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, envelope)
		}
		return out, nil
	}
	if rv.Kind() != reflect.Pointer {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		rv = p
	}
	return Read(ctx, db, nested, rv.Interface())
}

// normalize renders one raw value in its envelope form.
func normalize(spec *schema.FieldSpec, v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	switch spec.Kind {
	case schema.KindDate:
		t, ok := v.Interface().(time.Time)
		if !ok {
			return v.Interface(), nil
		}
		if t.IsZero() {
			return nil, nil
		}
		return t.Format(dateLayout), nil
	case schema.KindDateTime:
		t, ok := v.Interface().(time.Time)
		if !ok {
			return v.Interface(), nil
		}
		if t.IsZero() {
			return nil, nil
		}
		return t.Format(time.RFC3339), nil
	case schema.KindJSON:
		raw, ok := v.Interface().(datatypes.JSON)
		if !ok || len(raw) == 0 {
			return nil, nil
		}
		return json.RawMessage(raw), nil
	case schema.KindPeriod, schema.KindIntRange:
		if m, ok := v.Interface().(map[string]any); ok {
			if len(m) == 0 {
				return nil, nil
			}
			return m, nil
		}
		return v.Interface(), nil
	case schema.KindEnum:
		// Named string types render as their plain string value.
		if v.Kind() == reflect.String {
			s := v.String()
			if s == "" {
				return nil, nil
			}
			return s, nil
		}
		return v.Interface(), nil
	default:
		return v.Interface(), nil
	}
}
