package sqlite

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// SQLCondition represents a SQL WHERE clause fragment with parameters.
type SQLCondition struct {
	Clause string
	Params []any
}

// predicateColumns maps predicate field names to record columns.
var predicateColumns = map[string]string{
	"PartitionKey": "partition_key",
	"RowKey":       "row_key",
	"name":         "name",
	"skills":       "skills",
	"location":     "location",
	"country":      "location",
	"availability": "availability",
}

// predicateOperators maps table-store comparison words onto filter syntax.
var predicateOperators = map[string]string{
	"eq":  "=",
	"ne":  "!=",
	"gt":  ">",
	"ge":  ">=",
	"lt":  "<",
	"le":  "<=",
	"and": "AND",
	"or":  "OR",
	"not": "NOT",
}

func predicateDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("PartitionKey", filtering.TypeString),
		filtering.DeclareIdent("RowKey", filtering.TypeString),
		filtering.DeclareIdent("name", filtering.TypeString),
		filtering.DeclareIdent("skills", filtering.TypeString),
		filtering.DeclareIdent("location", filtering.TypeString),
		filtering.DeclareIdent("country", filtering.TypeString),
		filtering.DeclareIdent("availability", filtering.TypeBool),
		// Filter syntax has no boolean literals; they resolve as identifiers.
		filtering.DeclareIdent("true", filtering.TypeBool),
		filtering.DeclareIdent("false", filtering.TypeBool),
	)
}

// ParsePredicate translates a table-store predicate such as
// "(location eq 'Seattle') and (availability eq true)" into a SQL condition.
// An empty predicate yields an empty condition.
func ParsePredicate(predicate string) (SQLCondition, error) {
	if strings.TrimSpace(predicate) == "" {
		return SQLCondition{}, nil
	}
	filterStr, err := toFilterSyntax(predicate)
	if err != nil {
		return SQLCondition{}, err
	}
	decls, err := predicateDeclarations()
	if err != nil {
		return SQLCondition{}, fmt.Errorf("create declarations: %w", err)
	}
	filter, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return SQLCondition{}, fmt.Errorf("parse predicate: %w", err)
	}
	return translateExpr(filter.CheckedExpr.GetExpr())
}

// toFilterSyntax rewrites operator words and single-quoted strings (with
// doubled quotes as escapes) into AIP-160 filter syntax.
func toFilterSyntax(predicate string) (string, error) {
	runes := []rune(predicate)
	var out strings.Builder
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '\'':
			var value strings.Builder
			closed := false
			i++
			for i < len(runes) {
				if runes[i] == '\'' {
					if i+1 < len(runes) && runes[i+1] == '\'' {
						value.WriteRune('\'')
						i += 2
						continue
					}
					closed = true
					i++
					break
				}
				value.WriteRune(runes[i])
				i++
			}
			if !closed {
				return "", fmt.Errorf("unterminated string in predicate")
			}
			out.WriteString(strconv.Quote(value.String()))
		case isWordRune(r):
			start := i
			for i < len(runes) && isWordRune(runes[i]) {
				i++
			}
			word := string(runes[start:i])
			if op, ok := predicateOperators[word]; ok {
				word = op
			}
			out.WriteString(word)
		default:
			out.WriteRune(r)
			i++
		}
	}
	return out.String(), nil
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func translateExpr(e *expr.Expr) (SQLCondition, error) {
	if e == nil {
		return SQLCondition{}, nil
	}
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return translateCall(kind.CallExpr)
	default:
		return SQLCondition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func translateCall(call *expr.Expr_Call) (SQLCondition, error) {
	switch call.Function {
	case "AND":
		return translateJunction(call.Args, "AND")
	case "OR":
		return translateJunction(call.Args, "OR")
	case "NOT":
		return translateNot(call.Args)
	case "=", "!=", "<", "<=", ">", ">=":
		return translateComparison(call.Args, call.Function)
	default:
		return SQLCondition{}, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func translateJunction(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("%s requires 2 arguments", op)
	}
	left, err := translateExpr(args[0])
	if err != nil {
		return SQLCondition{}, err
	}
	right, err := translateExpr(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	return SQLCondition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: append(left.Params, right.Params...),
	}, nil
}

func translateNot(args []*expr.Expr) (SQLCondition, error) {
	if len(args) != 1 {
		return SQLCondition{}, fmt.Errorf("NOT requires 1 argument")
	}
	inner, err := translateExpr(args[0])
	if err != nil {
		return SQLCondition{}, err
	}
	return SQLCondition{Clause: "(NOT " + inner.Clause + ")", Params: inner.Params}, nil
}

func translateComparison(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	field := args[0].GetIdentExpr().GetName()
	column, ok := predicateColumns[field]
	if !ok {
		return SQLCondition{}, fmt.Errorf("unknown field: %q", field)
	}
	value, err := extractValue(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	return SQLCondition{
		Clause: fmt.Sprintf("%s %s ?", column, op),
		Params: []any{value},
	}, nil
}

func extractValue(e *expr.Expr) (any, error) {
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		switch c := kind.ConstExpr.ConstantKind.(type) {
		case *expr.Constant_StringValue:
			return c.StringValue, nil
		case *expr.Constant_Int64Value:
			return c.Int64Value, nil
		case *expr.Constant_BoolValue:
			return boolParam(c.BoolValue), nil
		default:
			return nil, fmt.Errorf("unsupported constant type: %T", c)
		}
	case *expr.Expr_IdentExpr:
		switch kind.IdentExpr.GetName() {
		case "true":
			return boolParam(true), nil
		case "false":
			return boolParam(false), nil
		}
		return nil, fmt.Errorf("unsupported value: %s", kind.IdentExpr.GetName())
	default:
		return nil, fmt.Errorf("unsupported value expression: %T", kind)
	}
}

func boolParam(value bool) int64 {
	if value {
		return 1
	}
	return 0
}
