package milp

import (
	"context"
	"fmt"
)

// Status is the outcome of a solve. The numeric codes match the ones
// commonly reported by LP front ends so they can be logged as-is.
type Status int

const (
	StatusNotSolved  Status = 0
	StatusOptimal    Status = 1
	StatusInfeasible Status = -1
	StatusUnbounded  Status = -2
	StatusUndefined  Status = -3
)

func (s Status) String() string {
	switch s {
	case StatusNotSolved:
		return "Not Solved"
	case StatusOptimal:
		return "Optimal"
	case StatusInfeasible:
		return "Infeasible"
	case StatusUnbounded:
		return "Unbounded"
	case StatusUndefined:
		return "Undefined"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Solution is the result of solving a Model.
type Solution struct {
	Status Status
	// Objective is nil unless Status is StatusOptimal.
	Objective *float64
	// Values holds one entry per model variable, indexed by Var. It is nil
	// unless Status is StatusOptimal.
	Values []float64
}

// Value returns the assigned value of v, or 0 when the solution carries no
// values.
func (s *Solution) Value(v Var) float64 {
	if s == nil || int(v) < 0 || int(v) >= len(s.Values) {
		return 0
	}
	return s.Values[v]
}

// Solver is the solve capability consumed by model builders. Implementations
// report non-optimal outcomes through Solution.Status; a non-nil error means
// the model could not be solved at all (invalid model, cancelled context).
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, m *Model) (*Solution, error)

// Solve calls f(ctx, m).
func (f SolverFunc) Solve(ctx context.Context, m *Model) (*Solution, error) {
	return f(ctx, m)
}
