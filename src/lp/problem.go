package lp

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

type variable struct {
	name  string
	lower float64
	upper float64
	kind  VarType
}

type constraint struct {
	name  string
	expr  Expr
	sense Sense
	rhs   float64
}

type term struct {
	col int
	val float64
}

// Problem is a linear or mixed-integer program over named variables. It holds
// no backend state, so one Problem can be solved by any Solver.
type Problem struct {
	vars      []variable
	varIndex  map[string]int
	rows      []constraint
	rowIndex  map[string]int
	objective Expr
	Maximize  bool
}

func NewProblem() *Problem {
	return &Problem{
		varIndex:  make(map[string]int),
		rowIndex:  make(map[string]int),
		objective: make(Expr),
	}
}

func (p *Problem) AddVar(name string, lower, upper float64, kind VarType) error {
	if name == "" {
		return fmt.Errorf("empty variable name")
	}
	if _, ok := p.varIndex[name]; ok {
		return fmt.Errorf("duplicate variable %q", name)
	}
	if lower > upper {
		return fmt.Errorf("variable %q: lower bound %g exceeds upper bound %g", name, lower, upper)
	}
	if kind == Binary {
		lower, upper = math.Max(lower, 0), math.Min(upper, 1)
	}
	p.varIndex[name] = len(p.vars)
	p.vars = append(p.vars, variable{name: name, lower: lower, upper: upper, kind: kind})
	return nil
}

func (p *Problem) HasVar(name string) bool {
	_, ok := p.varIndex[name]
	return ok
}

func (p *Problem) SetBounds(name string, lower, upper float64) error {
	j, ok := p.varIndex[name]
	if !ok {
		return fmt.Errorf("unknown variable %q", name)
	}
	if lower > upper {
		return fmt.Errorf("variable %q: lower bound %g exceeds upper bound %g", name, lower, upper)
	}
	p.vars[j].lower = lower
	p.vars[j].upper = upper
	return nil
}

func (p *Problem) Bounds(name string) (lower, upper float64, err error) {
	j, ok := p.varIndex[name]
	if !ok {
		return 0, 0, fmt.Errorf("unknown variable %q", name)
	}
	return p.vars[j].lower, p.vars[j].upper, nil
}

func (p *Problem) AddConstraint(name string, expr Expr, sense Sense, rhs float64) error {
	if name == "" {
		return fmt.Errorf("empty constraint name")
	}
	if _, ok := p.rowIndex[name]; ok {
		return fmt.Errorf("duplicate constraint %q", name)
	}
	for v := range expr {
		if _, ok := p.varIndex[v]; !ok {
			return fmt.Errorf("constraint %q references unknown variable %q", name, v)
		}
	}
	p.rowIndex[name] = len(p.rows)
	p.rows = append(p.rows, constraint{name: name, expr: maps.Clone(expr), sense: sense, rhs: rhs})
	return nil
}

func (p *Problem) HasConstraint(name string) bool {
	_, ok := p.rowIndex[name]
	return ok
}

// SetCoefficient changes the coefficient of one variable in an existing
// constraint. A zero coefficient removes the variable from the row.
func (p *Problem) SetCoefficient(row, name string, coef float64) error {
	i, ok := p.rowIndex[row]
	if !ok {
		return fmt.Errorf("unknown constraint %q", row)
	}
	if _, ok := p.varIndex[name]; !ok {
		return fmt.Errorf("unknown variable %q", name)
	}
	if coef == 0 {
		delete(p.rows[i].expr, name)
	} else {
		p.rows[i].expr[name] = coef
	}
	return nil
}

func (p *Problem) SetObjective(expr Expr, maximize bool) error {
	for v := range expr {
		if _, ok := p.varIndex[v]; !ok {
			return fmt.Errorf("objective references unknown variable %q", v)
		}
	}
	p.objective = maps.Clone(expr)
	p.Maximize = maximize
	return nil
}

// AddIntegerCut forbids the single 0/1 assignment of vars in which exactly
// the variables in ones are set.
func (p *Problem) AddIntegerCut(name string, vars, ones []string) error {
	set := make(map[string]bool, len(ones))
	for _, v := range ones {
		set[v] = true
	}
	expr := make(Expr, len(vars))
	for _, v := range vars {
		if set[v] {
			expr[v] = 1
		} else {
			expr[v] = -1
		}
	}
	return p.AddConstraint(name, expr, LE, float64(len(ones)-1))
}

// AddSubsetCut forbids the assignment setting ones and every assignment that
// sets a superset of it.
func (p *Problem) AddSubsetCut(name string, ones []string) error {
	expr := make(Expr, len(ones))
	for _, v := range ones {
		expr[v] = 1
	}
	return p.AddConstraint(name, expr, LE, float64(len(ones)-1))
}

func (p *Problem) NumVars() int {
	return len(p.vars)
}

func (p *Problem) NumConstraints() int {
	return len(p.rows)
}

func (p *Problem) IsMIP() bool {
	for _, v := range p.vars {
		if v.kind != Continuous {
			return true
		}
	}
	return false
}

func (p *Problem) Clone() *Problem {
	c := &Problem{
		vars:      slices.Clone(p.vars),
		varIndex:  maps.Clone(p.varIndex),
		rows:      make([]constraint, len(p.rows)),
		rowIndex:  maps.Clone(p.rowIndex),
		objective: maps.Clone(p.objective),
		Maximize:  p.Maximize,
	}
	for i, r := range p.rows {
		r.expr = maps.Clone(r.expr)
		c.rows[i] = r
	}
	return c
}

// Check reports whether values satisfy every bound and constraint of p.
// Bounds are checked within tol. Rows are checked within tol times the
// largest term of the row, so rows carrying big-M coefficients are judged
// relative to their own magnitude. Used to verify what a backend returned.
func (p *Problem) Check(values map[string]float64, tol float64) error {
	for _, v := range p.vars {
		x := values[v.name]
		slack := tol * math.Max(1, math.Abs(x))
		if x < v.lower-slack || x > v.upper+slack {
			return fmt.Errorf("variable %q = %g outside [%g, %g]", v.name, x, v.lower, v.upper)
		}
		if v.kind != Continuous && math.Abs(x-math.Round(x)) > tol {
			return fmt.Errorf("variable %q = %g is not integral", v.name, x)
		}
	}
	for _, r := range p.rows {
		lhs, scale := 0.0, math.Max(1, math.Abs(r.rhs))
		for name, coef := range r.expr {
			lhs += coef * values[name]
			scale = math.Max(scale, math.Abs(coef*values[name]))
		}
		lo, hi := r.bounds()
		if slack := tol * scale; lhs < lo-slack || lhs > hi+slack {
			return fmt.Errorf("constraint %q violated: %g %v %g", r.name, lhs, r.sense, r.rhs)
		}
	}
	return nil
}

func (r *constraint) bounds() (lower, upper float64) {
	switch r.sense {
	case LE:
		return math.Inf(-1), r.rhs
	case GE:
		return r.rhs, math.Inf(1)
	default:
		return r.rhs, r.rhs
	}
}

// terms returns the row's nonzeros ordered by column so every backend sees
// the same matrix.
func (p *Problem) terms(r *constraint) []term {
	ts := make([]term, 0, len(r.expr))
	for name, coef := range r.expr {
		if coef == 0 {
			continue
		}
		ts = append(ts, term{col: p.varIndex[name], val: coef})
	}
	slices.SortFunc(ts, func(a, b term) int { return a.col - b.col })
	return ts
}

func (p *Problem) costs() []float64 {
	c := make([]float64, len(p.vars))
	for name, coef := range p.objective {
		c[p.varIndex[name]] = coef
	}
	return c
}

func (p *Problem) valuesFrom(primal []float64) map[string]float64 {
	values := make(map[string]float64, len(p.vars))
	for j, v := range p.vars {
		if j < len(primal) {
			values[v.name] = primal[j]
		}
	}
	return values
}

func (p *Problem) String() string {
	s := new(strings.Builder)
	if p.Maximize {
		s.WriteString("maximize")
	} else {
		s.WriteString("minimize")
	}
	fmt.Fprintf(s, " %v\n", p.objective)
	fmt.Fprintf(s, "N. variables: %d\n", len(p.vars))
	fmt.Fprintf(s, "N. constraints: %d\n", len(p.rows))
	for _, r := range p.rows {
		fmt.Fprintf(s, "%s: %v %v %g\n", r.name, r.expr, r.sense, r.rhs)
	}
	return s.String()
}
