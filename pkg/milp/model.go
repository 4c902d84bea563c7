// Package milp describes mixed-integer linear programs and the narrow solve
// capability the rest of the application consumes. Models are built once,
// handed to a Solver, and never mutated by it.
package milp

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidModel is returned when a model cannot be constructed or handed to
// a solver, e.g. inverted bounds or a reference to an unknown variable.
var ErrInvalidModel = errors.New("milp: invalid model")

// Var is a handle to a variable within the Model that created it.
type Var int

// Kind is the domain of a variable.
type Kind int

const (
	// Continuous variables take any real value within their bounds.
	Continuous Kind = iota
	// Integer variables must take integral values within their bounds. A
	// binary variable is an Integer with bounds [0, 1].
	Integer
)

// Op is the relation of a linear constraint.
type Op int

const (
	LE Op = iota // lhs <= rhs
	GE           // lhs >= rhs
	EQ           // lhs == rhs
)

func (op Op) String() string {
	switch op {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "=="
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Sense is the optimization direction of the objective.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

func (s Sense) String() string {
	if s == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Term is a single coefficient × variable product.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is a linear expression: a sum of terms plus a constant. Expressions are
// values; the helper methods return new expressions and never alias the
// receiver's terms.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Sum returns the expression v1 + v2 + ... with unit coefficients.
func Sum(vars ...Var) Expr {
	terms := make([]Term, 0, len(vars))
	for _, v := range vars {
		terms = append(terms, Term{Var: v, Coef: 1})
	}
	return Expr{Terms: terms}
}

// Const returns a constant expression.
func Const(value float64) Expr {
	return Expr{Constant: value}
}

// Add returns e + coef×v.
func (e Expr) Add(v Var, coef float64) Expr {
	terms := make([]Term, len(e.Terms), len(e.Terms)+1)
	copy(terms, e.Terms)
	return Expr{Terms: append(terms, Term{Var: v, Coef: coef}), Constant: e.Constant}
}

// Plus returns e + other.
func (e Expr) Plus(other Expr) Expr {
	terms := make([]Term, 0, len(e.Terms)+len(other.Terms))
	terms = append(terms, e.Terms...)
	terms = append(terms, other.Terms...)
	return Expr{Terms: terms, Constant: e.Constant + other.Constant}
}

// Scale returns k×e.
func (e Expr) Scale(k float64) Expr {
	terms := make([]Term, len(e.Terms))
	for i, t := range e.Terms {
		terms[i] = Term{Var: t.Var, Coef: t.Coef * k}
	}
	return Expr{Terms: terms, Constant: e.Constant * k}
}

// Constraint is a named linear relation Expr (op) RHS. Any constant carried by
// Expr is folded into RHS when the constraint is added to a model.
type Constraint struct {
	Name string
	Expr Expr
	Op   Op
	RHS  float64
}

type variable struct {
	name  string
	lower float64
	upper float64
	kind  Kind
}

// Model is a mixed-integer linear program under construction.
type Model struct {
	name        string
	vars        []variable
	byName      map[string]Var
	constraints []Constraint
	sense       Sense
	objective   Expr
}

// NewModel returns an empty model with a minimize sense and zero objective.
func NewModel(name string) *Model {
	return &Model{name: name, byName: make(map[string]Var)}
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.name
}

// AddVar adds a variable with the given bounds. The lower bound must be
// finite; the upper bound may be +Inf.
func (m *Model) AddVar(name string, lower, upper float64, kind Kind) (Var, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1, fmt.Errorf("%w: variable name cannot be empty", ErrInvalidModel)
	}
	if _, exists := m.byName[name]; exists {
		return -1, fmt.Errorf("%w: duplicate variable %q", ErrInvalidModel, name)
	}
	if math.IsNaN(lower) || math.IsInf(lower, 0) {
		return -1, fmt.Errorf("%w: variable %q requires a finite lower bound, got %v", ErrInvalidModel, name, lower)
	}
	if math.IsNaN(upper) || math.IsInf(upper, -1) {
		return -1, fmt.Errorf("%w: variable %q has invalid upper bound %v", ErrInvalidModel, name, upper)
	}
	if lower > upper {
		return -1, fmt.Errorf("%w: variable %q has lower bound %v above upper bound %v", ErrInvalidModel, name, lower, upper)
	}
	if kind != Continuous && kind != Integer {
		return -1, fmt.Errorf("%w: variable %q has unknown kind %d", ErrInvalidModel, name, kind)
	}

	v := Var(len(m.vars))
	m.vars = append(m.vars, variable{name: name, lower: lower, upper: upper, kind: kind})
	m.byName[name] = v
	return v, nil
}

// AddConstraint adds the relation lhs (op) rhs.
func (m *Model) AddConstraint(name string, lhs Expr, op Op, rhs float64) error {
	if op != LE && op != GE && op != EQ {
		return fmt.Errorf("%w: constraint %q has unknown relation %d", ErrInvalidModel, name, op)
	}
	if math.IsNaN(rhs) || math.IsInf(rhs, 0) {
		return fmt.Errorf("%w: constraint %q has non-finite right-hand side %v", ErrInvalidModel, name, rhs)
	}
	if err := m.checkExpr(lhs); err != nil {
		return fmt.Errorf("constraint %q: %w", name, err)
	}

	folded := Expr{Terms: append([]Term(nil), lhs.Terms...)}
	m.constraints = append(m.constraints, Constraint{
		Name: name,
		Expr: folded,
		Op:   op,
		RHS:  rhs - lhs.Constant,
	})
	return nil
}

// SetObjective replaces the objective.
func (m *Model) SetObjective(sense Sense, objective Expr) error {
	if sense != Minimize && sense != Maximize {
		return fmt.Errorf("%w: unknown objective sense %d", ErrInvalidModel, sense)
	}
	if err := m.checkExpr(objective); err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	m.sense = sense
	m.objective = Expr{Terms: append([]Term(nil), objective.Terms...), Constant: objective.Constant}
	return nil
}

func (m *Model) checkExpr(e Expr) error {
	for _, t := range e.Terms {
		if int(t.Var) < 0 || int(t.Var) >= len(m.vars) {
			return fmt.Errorf("%w: unknown variable %d", ErrInvalidModel, t.Var)
		}
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			return fmt.Errorf("%w: variable %q has non-finite coefficient %v", ErrInvalidModel, m.vars[t.Var].name, t.Coef)
		}
	}
	if math.IsNaN(e.Constant) || math.IsInf(e.Constant, 0) {
		return fmt.Errorf("%w: non-finite constant %v", ErrInvalidModel, e.Constant)
	}
	return nil
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int {
	return len(m.vars)
}

// NumConstraints returns the number of structural constraints. Variable
// bounds are not counted.
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// Constraints returns a copy of the structural constraints.
func (m *Model) Constraints() []Constraint {
	out := make([]Constraint, len(m.constraints))
	copy(out, m.constraints)
	return out
}

// Objective returns the objective sense and expression.
func (m *Model) Objective() (Sense, Expr) {
	return m.sense, m.objective
}

// VarName returns the name of v.
func (m *Model) VarName(v Var) string {
	return m.vars[v].name
}

// Bounds returns the lower and upper bounds of v.
func (m *Model) Bounds(v Var) (float64, float64) {
	return m.vars[v].lower, m.vars[v].upper
}

// Kind returns the domain of v.
func (m *Model) Kind(v Var) Kind {
	return m.vars[v].kind
}

// Lookup finds a variable by name.
func (m *Model) Lookup(name string) (Var, bool) {
	v, ok := m.byName[name]
	return v, ok
}

// dense returns the coefficients of e as a slice indexed by variable.
func (m *Model) dense(e Expr) []float64 {
	coef := make([]float64, len(m.vars))
	for _, t := range e.Terms {
		coef[t.Var] += t.Coef
	}
	return coef
}
