package scenario

import (
	"fmt"

	"github.com/iwvelando/vest-optimizer/pkg/milp"
)

// Variable names as they appear in Result.Values.
const (
	VarCurrentShortTerm = "current_short_term_shares"
	VarCurrentLongTerm  = "current_long_term_shares"
	VarNewShortTerm     = "new_short_term_shares"
	VarNewLongTerm      = "new_long_term_shares"
	VarRelocating       = "relocating"
)

// Constraint names.
const (
	ConstraintConservation    = "total_shares_sum"
	ConstraintRelocationFloor = "new_residence_shares_dependency"
	ConstraintRelocationFlag  = "new_residence_shares_flag"
)

// Model is a built, unsolved program together with handles to its variables.
type Model struct {
	Program *milp.Model

	CurrentShortTerm milp.Var
	CurrentLongTerm  milp.Var
	NewShortTerm     milp.Var
	NewLongTerm      milp.Var
	Relocating       milp.Var
}

// BuildModel constructs the program for in. It does not solve it.
func BuildModel(in Inputs) (*Model, error) {
	if err := in.check(); err != nil {
		return nil, err
	}

	shares := in.PostWithholdingShares()
	name := fmt.Sprintf("scenario_%g_%g", in.NearTermMultiplier, in.LongerTermMultiplier)
	program := milp.NewModel(name)
	model := &Model{Program: program}

	vars := []struct {
		name   string
		target *milp.Var
		upper  float64
		kind   milp.Kind
	}{
		{VarCurrentShortTerm, &model.CurrentShortTerm, shares, milp.Continuous},
		{VarCurrentLongTerm, &model.CurrentLongTerm, shares, milp.Continuous},
		{VarNewShortTerm, &model.NewShortTerm, shares, milp.Continuous},
		{VarNewLongTerm, &model.NewLongTerm, shares, milp.Continuous},
		{VarRelocating, &model.Relocating, 1, milp.Integer},
	}
	for _, v := range vars {
		handle, err := program.AddVar(v.name, 0, v.upper, v.kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModelInput, err)
		}
		*v.target = handle
	}

	cs, cl := model.CurrentShortTerm, model.CurrentLongTerm
	ns, nl := model.NewShortTerm, model.NewLongTerm
	moving := model.Relocating
	newResidence := milp.Sum(ns, nl)

	constraints := []struct {
		name string
		lhs  milp.Expr
		op   milp.Op
		rhs  float64
	}{
		// Every disposable share lands in exactly one category.
		{ConstraintConservation, milp.Sum(cs, cl, ns, nl), milp.EQ, shares},
		// relocating <= ns + nl: no new-residence shares forces relocating to 0.
		{ConstraintRelocationFloor, milp.Sum(moving).Plus(newResidence.Scale(-1)), milp.LE, 0},
		// ns + nl <= relocating × shares: any new-residence share forces relocating to 1.
		{ConstraintRelocationFlag, newResidence.Add(moving, -shares), milp.LE, 0},
	}
	for _, c := range constraints {
		if err := program.AddConstraint(c.name, c.lhs, c.op, c.rhs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModelInput, err)
		}
	}

	if err := program.SetObjective(milp.Maximize, objective(in, model)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModelInput, err)
	}
	return model, nil
}

// objective is the net-of-tax value of the allocation: capital plus gains
// plus reinvestment gains on short-term proceeds, less the taxes on each,
// less the relocation cost when relocating.
func objective(in Inputs, model *Model) milp.Expr {
	shares := in.PostWithholdingShares()
	shortGain := in.ShortTermPrice() - in.Basis
	longGain := in.LongTermPrice() - in.Basis
	opportunity := in.shortTermOpportunityPerShare()

	currentShortRate := in.FederalShortTermRate + in.CurrentShortTermRate
	currentLongRate := in.FederalLongTermRate + in.CurrentLongTermRate
	newShortRate := in.FederalShortTermRate + in.NewShortTermRate
	newLongRate := in.FederalLongTermRate + in.NewLongTermRate

	cs, cl := model.CurrentShortTerm, model.CurrentLongTerm
	ns, nl := model.NewShortTerm, model.NewLongTerm

	return milp.Const(shares*in.Basis).
		// capital gains
		Add(cs, shortGain).
		Add(cl, longGain).
		Add(ns, shortGain).
		Add(nl, longGain).
		// reinvested short-term proceeds
		Add(cs, opportunity).
		Add(ns, opportunity).
		// taxes on gains
		Add(cs, -shortGain*currentShortRate).
		Add(cl, -longGain*currentLongRate).
		Add(ns, -shortGain*newShortRate).
		Add(nl, -longGain*newLongRate).
		// reinvestment gains are taxed at the short-term rate of the sale that funded them
		Add(cs, -opportunity*currentShortRate).
		Add(ns, -opportunity*newShortRate).
		Add(model.Relocating, -in.RelocationCost)
}
