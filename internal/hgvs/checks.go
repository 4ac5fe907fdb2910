package hgvs

import "fmt"

// CheckConstraint renders the CHECK predicate enforcing one molecule's
// grammar over a column. The pattern is the exact pattern the in-process
// validator compiles, so validator and constraint cannot drift.
func CheckConstraint(column string, m Molecule) string {
	return fmt.Sprintf("%s IS NULL OR %s ~ '%s'", column, column, Pattern(m))
}
