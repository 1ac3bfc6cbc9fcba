package records

import (
	"strconv"
	"strings"

	"github.com/louisbranch/expertfinder/internal/services/expertfinder/domain"
)

// SelectAll is the predicate used when the filter constrains nothing. Every
// stored row has a non-empty partition key.
const SelectAll = "PartitionKey ne ''"

// BuildPredicate renders the filter as a store predicate. Equality clauses
// come first in key order, then availability; skills are matched locally
// after retrieval.
func BuildPredicate(filter domain.Filter) string {
	var clauses []string
	for _, field := range filter.EqualityFields() {
		clauses = append(clauses, "("+field.Key+" eq "+QuoteString(field.Value)+")")
	}
	if available, ok := filter.Availability.Bool(); ok {
		clauses = append(clauses, "("+domain.FieldAvailability+" eq "+strconv.FormatBool(available)+")")
	}
	if len(clauses) == 0 {
		return SelectAll
	}
	return strings.Join(clauses, " and ")
}

// QuoteString wraps value in single quotes, doubling embedded quotes.
func QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
