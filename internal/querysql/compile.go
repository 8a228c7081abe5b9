package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/reach/internal/queryir"
)

// FactsTable is the table holding derived facts.
const FactsTable = "facts"

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// CRITICAL: ALL queries end in ORDER BY seq so rows come back in derivation
// order.
// CRITICAL: All values are parameterized (never interpolated); field names
// are checked against the closed field set before they reach the statement.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	if q.RunID == "" {
		return "", nil, fmt.Errorf("select requires a run ID")
	}

	selectClause, err := c.compileColumns(q.Columns)
	if err != nil {
		return "", nil, err
	}

	whereClause := "run_id = ?"
	params := []any{q.RunID}
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause += " AND " + filterSQL
		params = append(params, filterParams...)
	}

	// MANDATORY: derivation order with a binary tiebreaker
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		selectClause,
		FactsTable,
		whereClause,
		c.stableOrderKey())

	if q.Limit < 0 {
		return "", nil, fmt.Errorf("limit must be >= 0, got %d", q.Limit)
	}
	if q.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, int64(q.Limit))
	}

	return sql, params, nil
}

// compileColumns renders the column list, defaulting to FactColumns.
func (c *SQLCompiler) compileColumns(cols []string) (string, error) {
	if len(cols) == 0 {
		cols = queryir.FactColumns
	}
	for _, col := range cols {
		if !queryir.IsField(col) {
			return "", fmt.Errorf("unknown column %q", col)
		}
	}
	return strings.Join(cols, ", "), nil
}

// stableOrderKey returns the ORDER BY clause for a query.
// MANDATORY: Every query MUST call this function.
func (c *SQLCompiler) stableOrderKey() string {
	return "seq ASC, id ASC COLLATE BINARY"
}

// compilePredicate compiles a queryir.Predicate to SQL WHERE clause fragment.
// Returns (sql, params, error).
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.AtMost:
		return c.compileAtMost(pred)
	case *queryir.AtMost:
		return c.compileAtMost(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to "field = ?".
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	if !queryir.IsField(eq.Field) {
		return "", nil, fmt.Errorf("unknown field %q", eq.Field)
	}
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", eq.Field, err)
	}
	return fmt.Sprintf("%s = ?", eq.Field), []any{param}, nil
}

// compileAtMost compiles an AtMost predicate to "field <= ?".
func (c *SQLCompiler) compileAtMost(am queryir.AtMost) (string, []any, error) {
	if !queryir.IsIntField(am.Field) {
		return "", nil, fmt.Errorf("field %q cannot be bounded: not an integer field", am.Field)
	}
	return fmt.Sprintf("%s <= ?", am.Field), []any{am.Value}, nil
}

// compileAnd compiles an And predicate to conjunction with AND.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	var sqlParts []string
	var allParams []any

	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}

// valueToParam checks a literal is a supported SQL parameter type.
func valueToParam(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case nil:
		return nil, fmt.Errorf("NULL cannot be compared with =")
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
