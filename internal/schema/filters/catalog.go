// Package filters defines the predicate kinds available per value type
// and renders query-parameter filters into database predicates.
package filters

import (
	"github.com/oncotrace/oncotrace-backend/internal/schema"
)

// Filter is one predicate kind of a filter group. The envelope key of a
// filter is the field path joined with its suffix, the `not` segment
// inverting it, e.g. `topography.not.descendantsOf`.
type Filter struct {
	Suffix      string
	Negated     bool
	Description string
}

func withNegations(base []Filter) []Filter {
	out := make([]Filter, 0, len(base)*2)
	for _, f := range base {
		out = append(out, f)
		out = append(out, Filter{Suffix: f.Suffix, Negated: true, Description: "not: " + f.Description})
	}
	return out
}

var (
	stringGroup = withNegations([]Filter{
		{Suffix: "", Description: "exact match"},
		{Suffix: "contains", Description: "case-insensitive substring"},
		{Suffix: "beginsWith", Description: "case-insensitive prefix"},
		{Suffix: "endsWith", Description: "case-insensitive suffix"},
		{Suffix: "anyOf", Description: "matches any of the given values"},
	})

	dateGroup = withNegations([]Filter{
		{Suffix: "before", Description: "strictly before"},
		{Suffix: "after", Description: "strictly after"},
		{Suffix: "onOrBefore", Description: "on or before"},
		{Suffix: "onOrAfter", Description: "on or after"},
		{Suffix: "on", Description: "on the given date"},
		{Suffix: "between", Description: "within the inclusive bounds"},
	})

	numberGroup = withNegations([]Filter{
		{Suffix: "", Description: "equal"},
		{Suffix: "lessThan", Description: "strictly less"},
		{Suffix: "greaterThan", Description: "strictly greater"},
		{Suffix: "lessOrEqual", Description: "less or equal"},
		{Suffix: "greaterOrEqual", Description: "greater or equal"},
		{Suffix: "between", Description: "within the inclusive bounds"},
	})

	boolGroup = []Filter{
		{Suffix: "", Description: "exact match"},
	}

	enumGroup = withNegations([]Filter{
		{Suffix: "", Description: "equals"},
		{Suffix: "anyOf", Description: "matches any of the given values"},
	})

	referenceGroup = withNegations([]Filter{
		{Suffix: "", Description: "references the given id"},
		{Suffix: "oneOf", Description: "references one of the given ids"},
	})

	conceptGroup = withNegations([]Filter{
		{Suffix: "", Description: "concept code equals"},
		{Suffix: "anyOf", Description: "concept code is any of the given codes"},
		{Suffix: "descendantsOf", Description: "concept is a strict descendant of the given code"},
		{Suffix: "isA", Description: "concept is the given code or one of its descendants"},
	})

	conceptManyGroup = append(conceptGroup, withNegations([]Filter{
		{Suffix: "allOf", Description: "relates to every one of the given codes"},
	})...)

	periodGroup = withNegations([]Filter{
		{Suffix: "overlaps", Description: "period overlaps the given range"},
		{Suffix: "contains", Description: "period contains the given date"},
		{Suffix: "containedBy", Description: "period lies within the given range"},
	})

	arrayGroup = withNegations([]Filter{
		{Suffix: "", Description: "array equals"},
		{Suffix: "contains", Description: "array contains every given value"},
		{Suffix: "containedBy", Description: "array is contained in the given values"},
		{Suffix: "overlaps", Description: "array shares at least one value"},
	})

	existsGroup = []Filter{
		{Suffix: "exists", Description: "value is present"},
		{Suffix: "notExists", Description: "value is absent"},
	}
)

// GroupFor yields the filter kinds applicable to one field spec, the
// exists pair appended for nullable fields.
func GroupFor(spec *schema.FieldSpec) []Filter {
	var group []Filter
	switch spec.Kind {
	case schema.KindString, schema.KindUUID:
		group = stringGroup
	case schema.KindDate, schema.KindDateTime:
		group = dateGroup
	case schema.KindInt, schema.KindFloat, schema.KindMeasure:
		group = numberGroup
	case schema.KindBool:
		group = boolGroup
	case schema.KindEnum:
		group = enumGroup
	case schema.KindReferences:
		group = referenceGroup
	case schema.KindConcept:
		if spec.Relation != nil && spec.Relation.Kind == schema.RelationMany2Many {
			group = conceptManyGroup
		} else {
			group = conceptGroup
		}
	case schema.KindPeriod, schema.KindIntRange:
		group = periodGroup
	case schema.KindArray, schema.KindJSON:
		group = arrayGroup
	default:
		return nil
	}
	if spec.Nullable {
		group = append(append([]Filter{}, group...), existsGroup...)
	}
	return group
}

// lookup finds the filter of a group matching the parsed suffix.
func lookup(group []Filter, suffix string, negated bool) (Filter, bool) {
	for _, f := range group {
		if f.Suffix == suffix && f.Negated == negated {
			return f, true
		}
	}
	return Filter{}, false
}
