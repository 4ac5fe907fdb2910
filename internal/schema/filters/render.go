package filters

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/schema"
)

// Query parameters claimed by the surrounding request handling rather
// than the filter schema.
var reservedParams = map[string]bool{
	"page":       true,
	"pageSize":   true,
	"sort":       true,
	"anonymized": true,
	"expand":     true,
}

const conceptTable = "coded_concept"

// Apply renders every filter parameter of the query into a predicate on
// the statement. Unknown fields and unknown filter kinds are rejected;
// null values render no predicate.
func Apply(db *gorm.DB, s *schema.Schema, query url.Values) (*gorm.DB, error) {
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reservedParams[key] {
			continue
		}
		raw := query.Get(key)
		if raw == "" || raw == "null" {
			continue
		}
		cond, args, err := condition(s, key, raw)
		if err != nil {
			return nil, err
		}
		if cond == "" {
			continue
		}
		db = db.Where(cond, args...)
	}
	return db, nil
}

// condition renders one `path.suffix=value` filter against the schema's
// table.
func condition(s *schema.Schema, key, raw string) (string, []any, error) {
	tokens := strings.Split(key, ".")
	spec, ok := s.Field(tokens[0])
	if !ok {
		return "", nil, errs.InvalidArgumentf("unknown filter field %q", tokens[0])
	}
	rest := tokens[1:]

	// Dotted paths into nested relational fields recurse one level and
	// wrap the child predicate in an existence subquery.
	if spec.Nested != nil && len(rest) > 0 {
		if _, ok := spec.Nested.Field(rest[0]); ok {
			return nestedCondition(s, spec, strings.Join(rest, "."), raw)
		}
	}

	negated := false
	if len(rest) > 0 && rest[0] == "not" {
		negated = true
		rest = rest[1:]
	}
	if len(rest) > 1 {
		return "", nil, errs.InvalidArgumentf("malformed filter key %q", key)
	}
	suffix := ""
	if len(rest) == 1 {
		suffix = rest[0]
	}

	group := GroupFor(spec)
	if group == nil {
		return "", nil, errs.InvalidArgumentf("field %q is not filterable", spec.JSON)
	}
	if _, ok := lookup(group, suffix, negated); !ok {
		return "", nil, errs.InvalidArgumentf("field %q has no filter %q", spec.JSON, suffix)
	}

	cond, args, err := render(s, spec, suffix, raw)
	if err != nil {
		return "", nil, err
	}
	if negated && cond != "" {
		cond = "NOT (" + cond + ")"
	}
	return cond, args, nil
}

// nestedCondition renders a child predicate under an EXISTS over the
// relation.
func nestedCondition(s *schema.Schema, spec *schema.FieldSpec, childKey, raw string) (string, []any, error) {
	childCond, args, err := condition(spec.Nested, childKey, raw)
	if err != nil {
		return "", nil, err
	}
	if childCond == "" {
		return "", nil, nil
	}
	parentPK := s.ORM().PrioritizedPrimaryField.DBName
	child := spec.Nested
	rel := spec.Relation

	switch rel.Kind {
	case schema.RelationHasMany:
		fk, ok := child.ORM().FieldsByName[rel.ForeignKey]
		if !ok {
			return "", nil, fmt.Errorf("filters: relation %s has no foreign key field", spec.JSON)
		}
		cond := fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s.%s = %s.%s AND %s)",
			child.Table, child.Table, fk.DBName, s.Table, parentPK, childCond)
		return cond, args, nil

	case schema.RelationBelongsTo, schema.RelationHasOne:
		fk, ok := s.ORM().FieldsByName[rel.ForeignKey]
		if !ok {
			return "", nil, fmt.Errorf("filters: relation %s has no foreign key field", spec.JSON)
		}
		childPK := child.ORM().PrioritizedPrimaryField.DBName
		cond := fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s.%s = %s.%s AND %s)",
			child.Table, child.Table, childPK, s.Table, fk.DBName, childCond)
		return cond, args, nil

	case schema.RelationMany2Many:
		ownFK, targetFK, err := joinColumns(s, spec)
		if err != nil {
			return "", nil, err
		}
		childPK := child.ORM().PrioritizedPrimaryField.DBName
		cond := fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s JOIN %s ON %s.%s = %s.%s WHERE %s.%s = %s.%s AND %s)",
			rel.JoinTable, child.Table, child.Table, childPK, rel.JoinTable, targetFK,
			rel.JoinTable, ownFK, s.Table, parentPK, childCond)
		return cond, args, nil
	}
	return "", nil, fmt.Errorf("filters: relation %s is not filterable", spec.JSON)
}

// render maps one (field, suffix, value) to its SQL predicate.
func render(s *schema.Schema, spec *schema.FieldSpec, suffix, raw string) (string, []any, error) {
	values := splitCSV(raw)

	switch suffix {
	case "exists":
		return existsPredicate(s, spec, true)
	case "notExists":
		return existsPredicate(s, spec, false)
	}

	switch spec.Kind {
	case schema.KindString, schema.KindUUID:
		return stringPredicate(s, spec, suffix, values)
	case schema.KindDate, schema.KindDateTime:
		return datePredicate(s, spec, suffix, values)
	case schema.KindInt, schema.KindFloat, schema.KindMeasure:
		return numberPredicate(s, spec, suffix, values)
	case schema.KindBool:
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return "", nil, errs.InvalidArgumentf("field %q expects a boolean, got %q", spec.JSON, raw)
		}
		return column(s, spec) + " = ?", []any{parsed}, nil
	case schema.KindEnum:
		return enumPredicate(s, spec, suffix, values)
	case schema.KindReferences:
		return referencesPredicate(s, spec, suffix, values)
	case schema.KindConcept:
		return conceptPredicate(s, spec, suffix, values)
	case schema.KindPeriod, schema.KindIntRange:
		return rangePredicate(s, spec, suffix, values)
	case schema.KindArray, schema.KindJSON:
		return arrayPredicate(s, spec, suffix, values)
	}
	return "", nil, errs.InvalidArgumentf("field %q is not filterable", spec.JSON)
}

func column(s *schema.Schema, spec *schema.FieldSpec) string {
	return s.Table + "." + spec.Column
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func existsPredicate(s *schema.Schema, spec *schema.FieldSpec, present bool) (string, []any, error) {
	col := column(s, spec)
	if spec.Kind == schema.KindConcept && spec.Relation != nil {
		if spec.Relation.Kind == schema.RelationMany2Many {
			ownFK, _, err := joinColumns(s, spec)
			if err != nil {
				return "", nil, err
			}
			parentPK := s.ORM().PrioritizedPrimaryField.DBName
			cond := fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s.%s = %s.%s)",
				spec.Relation.JoinTable, spec.Relation.JoinTable, ownFK, s.Table, parentPK)
			if !present {
				cond = "NOT " + cond
			}
			return cond, nil, nil
		}
		fkCol, err := foreignKeyColumn(s, spec)
		if err != nil {
			return "", nil, err
		}
		col = s.Table + "." + fkCol
	}
	if present {
		return col + " IS NOT NULL", nil, nil
	}
	return col + " IS NULL", nil, nil
}

func stringPredicate(s *schema.Schema, spec *schema.FieldSpec, suffix string, values []string) (string, []any, error) {
	col := column(s, spec)
	likeCol := col
	if spec.Kind == schema.KindUUID {
		likeCol = col + "::text"
	}
	switch suffix {
	case "":
		return col + " = ?", []any{values[0]}, nil
	case "contains":
		return likeCol + " ILIKE ?", []any{"%" + escapeLike(values[0]) + "%"}, nil
	case "beginsWith":
		return likeCol + " ILIKE ?", []any{escapeLike(values[0]) + "%"}, nil
	case "endsWith":
		return likeCol + " ILIKE ?", []any{"%" + escapeLike(values[0])}, nil
	case "anyOf":
		return col + " IN ?", []any{values}, nil
	}
	return "", nil, errs.InvalidArgumentf("field %q has no filter %q", spec.JSON, suffix)
}

func escapeLike(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "%", `\%`)
	return strings.ReplaceAll(v, "_", `\_`)
}

func datePredicate(s *schema.Schema, spec *schema.FieldSpec, suffix string, values []string) (string, []any, error) {
	for _, v := range values {
		if err := validDate(v); err != nil {
			return "", nil, errs.InvalidArgumentf("field %q expects a date, got %q", spec.JSON, v)
		}
	}
	col := column(s, spec)
	switch suffix {
	case "before":
		return col + " < ?", []any{values[0]}, nil
	case "after":
		return col + " > ?", []any{values[0]}, nil
	case "onOrBefore":
		return col + " <= ?", []any{values[0]}, nil
	case "onOrAfter":
		return col + " >= ?", []any{values[0]}, nil
	case "on":
		return col + " = ?", []any{values[0]}, nil
	case "between":
		if len(values) != 2 {
			return "", nil, errs.InvalidArgumentf("field %q between expects two bounds", spec.JSON)
		}
		return col + " BETWEEN ? AND ?", []any{values[0], values[1]}, nil
	}
	return "", nil, errs.InvalidArgumentf("field %q has no filter %q", spec.JSON, suffix)
}

func validDate(v string) error {
	if _, err := time.Parse("2006-01-02", v); err == nil {
		return nil
	}
	_, err := time.Parse(time.RFC3339, v)
	return err
}

func numberPredicate(s *schema.Schema, spec *schema.FieldSpec, suffix string, values []string) (string, []any, error) {
	col := column(s, spec)
	if spec.Kind == schema.KindMeasure {
		col = "(" + col + "->>'value')::numeric"
	}
	parsed := make([]any, 0, len(values))
	for _, v := range values {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "", nil, errs.InvalidArgumentf("field %q expects a number, got %q", spec.JSON, v)
		}
		parsed = append(parsed, n)
	}
	switch suffix {
	case "":
		return col + " = ?", parsed[:1], nil
	case "lessThan":
		return col + " < ?", parsed[:1], nil
	case "greaterThan":
		return col + " > ?", parsed[:1], nil
	case "lessOrEqual":
		return col + " <= ?", parsed[:1], nil
	case "greaterOrEqual":
		return col + " >= ?", parsed[:1], nil
	case "between":
		if len(parsed) != 2 {
			return "", nil, errs.InvalidArgumentf("field %q between expects two bounds", spec.JSON)
		}
		return col + " BETWEEN ? AND ?", parsed, nil
	}
	return "", nil, errs.InvalidArgumentf("field %q has no filter %q", spec.JSON, suffix)
}

func enumPredicate(s *schema.Schema, spec *schema.FieldSpec, suffix string, values []string) (string, []any, error) {
	for _, v := range values {
		if !contains(spec.Enum, v) {
			return "", nil, errs.InvalidArgumentf("field %q has no value %q", spec.JSON, v)
		}
	}
	col := column(s, spec)
	switch suffix {
	case "":
		return col + " = ?", []any{values[0]}, nil
	case "anyOf":
		return col + " IN ?", []any{values}, nil
	}
	return "", nil, errs.InvalidArgumentf("field %q has no filter %q", spec.JSON, suffix)
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func referencesPredicate(s *schema.Schema, spec *schema.FieldSpec, suffix string, values []string) (string, []any, error) {
	ownFK, targetFK, err := joinColumns(s, spec)
	if err != nil {
		return "", nil, err
	}
	parentPK := s.ORM().PrioritizedPrimaryField.DBName
	join := spec.Relation.JoinTable
	var member string
	var args []any
	switch suffix {
	case "":
		member = fmt.Sprintf("%s.%s = ?", join, targetFK)
		args = []any{values[0]}
	case "oneOf":
		member = fmt.Sprintf("%s.%s IN ?", join, targetFK)
		args = []any{values}
	default:
		return "", nil, errs.InvalidArgumentf("field %q has no filter %q", spec.JSON, suffix)
	}
	cond := fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s.%s = %s.%s AND %s)",
		join, join, ownFK, s.Table, parentPK, member)
	return cond, args, nil
}

// conceptSubquery selects the ids of the concepts matching the given
// codes; descendant forms expand the terminology's parent-child graph with
// a recursive query, excluding the roots unless rooted is set.
func conceptSubquery(spec *schema.FieldSpec, codes []string, descendants, rooted bool) (string, []any) {
	where := "code IN ?"
	args := []any{codes}
	if spec.Terminology != "" {
		where += " AND terminology = ?"
		args = append(args, spec.Terminology)
	}
	if !descendants {
		return fmt.Sprintf("SELECT id FROM %s WHERE %s", conceptTable, where), args
	}
	tail := " WHERE id <> root_id"
	if rooted {
		tail = ""
	}
	sql := fmt.Sprintf(
		"WITH RECURSIVE concept_tree AS ("+
			"SELECT id, id AS root_id FROM %s WHERE %s "+
			"UNION ALL "+
			"SELECT c.id, t.root_id FROM %s c JOIN concept_tree t ON c.parent_id = t.id"+
			") SELECT id FROM concept_tree%s",
		conceptTable, where, conceptTable, tail)
	return sql, args
}

func conceptPredicate(s *schema.Schema, spec *schema.FieldSpec, suffix string, values []string) (string, []any, error) {
	descendants := suffix == "descendantsOf" || suffix == "isA"
	rooted := suffix == "isA"
	switch suffix {
	case "", "anyOf", "descendantsOf", "isA", "allOf":
	default:
		return "", nil, errs.InvalidArgumentf("field %q has no filter %q", spec.JSON, suffix)
	}

	if spec.Relation != nil && spec.Relation.Kind == schema.RelationMany2Many {
		return conceptManyPredicate(s, spec, suffix, values, descendants, rooted)
	}
	if suffix == "allOf" {
		return "", nil, errs.InvalidArgumentf("field %q has no filter allOf", spec.JSON)
	}

	fkCol, err := foreignKeyColumn(s, spec)
	if err != nil {
		return "", nil, err
	}
	sub, args := conceptSubquery(spec, values, descendants, rooted)
	cond := fmt.Sprintf("%s.%s IN (%s)", s.Table, fkCol, sub)
	return cond, args, nil
}

func conceptManyPredicate(s *schema.Schema, spec *schema.FieldSpec, suffix string, values []string, descendants, rooted bool) (string, []any, error) {
	ownFK, targetFK, err := joinColumns(s, spec)
	if err != nil {
		return "", nil, err
	}
	parentPK := s.ORM().PrioritizedPrimaryField.DBName
	join := spec.Relation.JoinTable
	sub, args := conceptSubquery(spec, values, descendants, rooted)

	if suffix == "allOf" {
		// The row must relate to every supplied code: count the distinct
		// matches and demand one per value.
		where := "c.code IN ?"
		countArgs := []any{values}
		if spec.Terminology != "" {
			where += " AND c.terminology = ?"
			countArgs = append(countArgs, spec.Terminology)
		}
		cond := fmt.Sprintf(
			"(SELECT count(DISTINCT c.code) FROM %s JOIN %s c ON c.id = %s.%s "+
				"WHERE %s.%s = %s.%s AND %s) = ?",
			join, conceptTable, join, targetFK, join, ownFK, s.Table, parentPK, where)
		countArgs = append(countArgs, len(values))
		return cond, countArgs, nil
	}

	cond := fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s.%s = %s.%s AND %s.%s IN (%s))",
		join, join, ownFK, s.Table, parentPK, join, targetFK, sub)
	return cond, args, nil
}

func rangePredicate(s *schema.Schema, spec *schema.FieldSpec, suffix string, values []string) (string, []any, error) {
	col := column(s, spec)
	rangeCtor, elemCast := "daterange", "date"
	if spec.Kind == schema.KindIntRange {
		rangeCtor, elemCast = "int4range", "int"
	}
	switch suffix {
	case "overlaps", "containedBy":
		if len(values) != 2 {
			return "", nil, errs.InvalidArgumentf("field %q %s expects two bounds", spec.JSON, suffix)
		}
		op := "&&"
		if suffix == "containedBy" {
			op = "<@"
		}
		cond := fmt.Sprintf("%s %s %s(?, ?, '[]')", col, op, rangeCtor)
		return cond, []any{values[0], values[1]}, nil
	case "contains":
		cond := fmt.Sprintf("%s @> ?::%s", col, elemCast)
		return cond, []any{values[0]}, nil
	}
	return "", nil, errs.InvalidArgumentf("field %q has no filter %q", spec.JSON, suffix)
}

func arrayPredicate(s *schema.Schema, spec *schema.FieldSpec, suffix string, values []string) (string, []any, error) {
	col := column(s, spec)
	doc, err := json.Marshal(values)
	if err != nil {
		return "", nil, err
	}
	switch suffix {
	case "":
		return col + " = ?::jsonb", []any{string(doc)}, nil
	case "contains":
		return col + " @> ?::jsonb", []any{string(doc)}, nil
	case "containedBy":
		return col + " <@ ?::jsonb", []any{string(doc)}, nil
	case "overlaps":
		return "jsonb_exists_any(" + col + ", ARRAY[?])", []any{values}, nil
	}
	return "", nil, errs.InvalidArgumentf("field %q has no filter %q", spec.JSON, suffix)
}

// foreignKeyColumn resolves the db column backing a single concept
// relation.
func foreignKeyColumn(s *schema.Schema, spec *schema.FieldSpec) (string, error) {
	if spec.Relation == nil || spec.Relation.ForeignKey == "" {
		return "", fmt.Errorf("filters: field %s has no foreign key", spec.JSON)
	}
	fk, ok := s.ORM().FieldsByName[spec.Relation.ForeignKey]
	if !ok {
		return "", fmt.Errorf("filters: field %s has no foreign key column", spec.JSON)
	}
	return fk.DBName, nil
}

// joinColumns resolves the join-table columns of a many2many relation:
// the one referencing the owning row and the one referencing the target.
func joinColumns(s *schema.Schema, spec *schema.FieldSpec) (string, string, error) {
	rel, ok := s.ORM().Relationships.Relations[spec.Relation.FieldName]
	if !ok || rel.JoinTable == nil {
		return "", "", fmt.Errorf("filters: field %s has no join table", spec.JSON)
	}
	var ownFK, targetFK string
	for _, ref := range rel.References {
		if ref.ForeignKey == nil {
			continue
		}
		if ref.OwnPrimaryKey {
			ownFK = ref.ForeignKey.DBName
		} else {
			targetFK = ref.ForeignKey.DBName
		}
	}
	if ownFK == "" || targetFK == "" {
		return "", "", fmt.Errorf("filters: field %s has incomplete join references", spec.JSON)
	}
	return ownFK, targetFK, nil
}
