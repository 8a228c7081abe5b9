package queryir

import "fmt"

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	// IsValid is true when Problems is empty.
	IsValid bool

	// Problems describes each violation, in traversal order.
	Problems []string
}

// Err returns the problems as a single error, or nil.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return fmt.Errorf("invalid query: %v", r.Problems)
}

// Validate checks that a query only names known fields, compares each field
// with a value of its type, and is scoped to a run.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addProblem("nil query")
		return
	}

	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.RunID == "" {
		v.addProblem("select requires a run ID")
	}
	for _, c := range sel.Columns {
		if !IsField(c) {
			v.addProblem("unknown column %q", c)
		}
	}
	if sel.Limit < 0 {
		v.addProblem("limit must be >= 0, got %d", sel.Limit)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return // nil predicates are valid (no filter)
	}

	switch pred := p.(type) {
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case AtMost:
		v.validateAtMost(pred)
	case *AtMost:
		v.validateAtMost(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	if !IsField(eq.Field) {
		v.addProblem("unknown field %q", eq.Field)
		return
	}
	switch eq.Value.(type) {
	case int64:
		if !IsIntField(eq.Field) {
			v.addProblem("field %q is text, compared to an integer", eq.Field)
		}
	case string:
		if IsIntField(eq.Field) {
			v.addProblem("field %q is an integer, compared to text", eq.Field)
		}
	default:
		v.addProblem("field %q compared to unsupported value type %T", eq.Field, eq.Value)
	}
}

func (v *validator) validateAtMost(am AtMost) {
	if !IsField(am.Field) {
		v.addProblem("unknown field %q", am.Field)
		return
	}
	if !IsIntField(am.Field) {
		v.addProblem("field %q is text, bounds need an integer field", am.Field)
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}
