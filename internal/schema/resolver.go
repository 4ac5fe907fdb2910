package schema

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
)

// ResolverFn extracts one envelope value from a loaded model instance.
// The db handle is only touched when a required association was not
// preloaded.
type ResolverFn func(ctx context.Context, db *gorm.DB, row reflect.Value) (any, error)

// envelope is implemented by value types that render their own external
// object form (Period, IntRange, CodedConcept).
type envelope interface {
	Envelope() map[string]any
}

// structField walks to the named field of a possibly-pointer struct
// value.
func structField(row reflect.Value, name string) (reflect.Value, bool) {
	v := deref(row)
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	f := v.FieldByName(name)
	return f, f.IsValid()
}

func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// asEnvelope resolves the envelope interface for value and pointer
// receivers alike, copying non-addressable values.
func asEnvelope(v reflect.Value) (envelope, bool) {
	if env, ok := v.Interface().(envelope); ok {
		return env, true
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	env, ok := p.Interface().(envelope)
	return env, ok
}

// resolveForeignKey reads the owning-side id column, nil when unset.
func resolveForeignKey(idField string) ResolverFn {
	return func(_ context.Context, _ *gorm.DB, row reflect.Value) (any, error) {
		f, ok := structField(row, idField)
		if !ok {
			return nil, fmt.Errorf("resolver: no field %s on %s", idField, row.Type())
		}
		v := deref(f)
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	}
}

// resolveRelated hands back the loaded relation value for nested
// marshalling, nil when the association is absent.
func resolveRelated(fieldName string) ResolverFn {
	return func(_ context.Context, _ *gorm.DB, row reflect.Value) (any, error) {
		f, ok := structField(row, fieldName)
		if !ok {
			return nil, fmt.Errorf("resolver: no field %s on %s", fieldName, row.Type())
		}
		v := deref(f)
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	}
}

// resolveManyIDs collects the ids of a loaded to-many association.
func resolveManyIDs(fieldName string) ResolverFn {
	return func(_ context.Context, _ *gorm.DB, row reflect.Value) (any, error) {
		f, ok := structField(row, fieldName)
		if !ok {
			return nil, fmt.Errorf("resolver: no field %s on %s", fieldName, row.Type())
		}
		if f.Kind() != reflect.Slice {
			return nil, fmt.Errorf("resolver: field %s on %s is not a slice", fieldName, row.Type())
		}
		ids := make([]uuid.UUID, 0, f.Len())
		for i := 0; i < f.Len(); i++ {
			id, ok := structField(f.Index(i), "ID")
			if !ok {
				return nil, fmt.Errorf("resolver: %s elements carry no ID", fieldName)
			}
			ids = append(ids, id.Interface().(uuid.UUID))
		}
		return ids, nil
	}
}

// resolveConcept renders the coded-concept envelope of a loaded concept
// relation, fetching by id when the association was not preloaded.
func resolveConcept(fieldName, idField string) ResolverFn {
	return func(ctx context.Context, db *gorm.DB, row reflect.Value) (any, error) {
		f, ok := structField(row, fieldName)
		if ok {
			if v := deref(f); v.IsValid() {
				if env, ok := asEnvelope(v); ok {
					return env.Envelope(), nil
				}
			}
		}
		if idField == "" || db == nil {
			return nil, nil
		}
		idValue, ok := structField(row, idField)
		if !ok {
			return nil, nil
		}
		id := deref(idValue)
		if !id.IsValid() {
			return nil, nil
		}
		var concept types.CodedConcept
		err := db.WithContext(ctx).First(&concept, "id = ?", id.Interface()).Error
		if err != nil {
			return nil, fmt.Errorf("resolve concept %s: %w", fieldName, err)
		}
		return concept.Envelope(), nil
	}
}

// resolveConceptList renders a loaded to-many concept association as a
// list of concept envelopes.
func resolveConceptList(fieldName string) ResolverFn {
	return func(_ context.Context, _ *gorm.DB, row reflect.Value) (any, error) {
		f, ok := structField(row, fieldName)
		if !ok {
			return nil, fmt.Errorf("resolver: no field %s on %s", fieldName, row.Type())
		}
		if f.Kind() != reflect.Slice {
			return nil, fmt.Errorf("resolver: field %s on %s is not a slice", fieldName, row.Type())
		}
		out := make([]map[string]any, 0, f.Len())
		for i := 0; i < f.Len(); i++ {
			v := deref(f.Index(i))
			if !v.IsValid() {
				continue
			}
			env, ok := asEnvelope(v)
			if !ok {
				return nil, fmt.Errorf("resolver: %s elements have no envelope form", fieldName)
			}
			out = append(out, env.Envelope())
		}
		return out, nil
	}
}

// resolveUser maps a user relation to its username.
func resolveUser(fieldName, idField string) ResolverFn {
	return func(ctx context.Context, db *gorm.DB, row reflect.Value) (any, error) {
		if f, ok := structField(row, fieldName); ok {
			if v := deref(f); v.IsValid() {
				if name, ok := structField(v, "Username"); ok {
					return name.Interface(), nil
				}
			}
		}
		if idField == "" || db == nil {
			return nil, nil
		}
		idValue, ok := structField(row, idField)
		if !ok {
			return nil, nil
		}
		id := deref(idValue)
		if !id.IsValid() {
			return nil, nil
		}
		var user types.User
		err := db.WithContext(ctx).Select("username").First(&user, "id = ?", id.Interface()).Error
		if err != nil {
			return nil, fmt.Errorf("resolve user %s: %w", fieldName, err)
		}
		return user.Username, nil
	}
}

// resolveMeasure expands a measure column to {value, unit}, injecting the
// field's default unit when the stored one is empty.
func resolveMeasure(fieldName, defaultUnit string) ResolverFn {
	return func(_ context.Context, _ *gorm.DB, row reflect.Value) (any, error) {
		f, ok := structField(row, fieldName)
		if !ok {
			return nil, fmt.Errorf("resolver: no field %s on %s", fieldName, row.Type())
		}
		v := deref(f)
		if !v.IsValid() {
			return nil, nil
		}
		m, ok := v.Interface().(types.Measure)
		if !ok {
			return nil, fmt.Errorf("resolver: field %s on %s is not a measure", fieldName, row.Type())
		}
		unit := m.Unit
		if unit == "" {
			unit = defaultUnit
		}
		return map[string]any{"value": m.Amount, "unit": unit}, nil
	}
}

// resolveEnvelope renders a self-describing value type ({start, end}
// ranges and the like).
func resolveEnvelope(fieldName string) ResolverFn {
	return func(_ context.Context, _ *gorm.DB, row reflect.Value) (any, error) {
		f, ok := structField(row, fieldName)
		if !ok {
			return nil, fmt.Errorf("resolver: no field %s on %s", fieldName, row.Type())
		}
		v := deref(f)
		if !v.IsValid() {
			return nil, nil
		}
		if env, ok := asEnvelope(v); ok {
			return env.Envelope(), nil
		}
		return nil, fmt.Errorf("resolver: field %s on %s has no envelope form", fieldName, row.Type())
	}
}
