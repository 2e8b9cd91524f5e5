package milp

import "fmt"

// VarKind distinguishes binary decision variables from non-negative
// continuous ones. These are the only two kinds the scheduling core needs.
type VarKind int

const (
	// Binary variables take values in {0,1}.
	Binary VarKind = iota
	// Continuous variables take values in [0, +inf).
	Continuous
)

// Var identifies a variable within the Model that created it.
type Var int

// Term is a single coefficient*variable product in a linear expression.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is a linear expression: sum of terms plus a constant.
type Expr struct {
	Terms []Term
	Const float64
}

// Add appends coef*v to the expression.
func (e *Expr) Add(v Var, coef float64) {
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
}

// AddExpr appends all terms of other, scaled by coef, to the expression.
func (e *Expr) AddExpr(other Expr, coef float64) {
	for _, t := range other.Terms {
		e.Terms = append(e.Terms, Term{Var: t.Var, Coef: coef * t.Coef})
	}
	e.Const += coef * other.Const
}

// Eval computes the expression value for a full variable assignment.
func (e Expr) Eval(values []float64) float64 {
	v := e.Const
	for _, t := range e.Terms {
		v += t.Coef * values[t.Var]
	}
	return v
}

// Sense is the relation of a constraint row to its right-hand side.
type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

// Constraint is a named linear constraint. The name is a stable label used
// for solver diagnostics and never affects semantics.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

type varDef struct {
	name string
	kind VarKind
}

// Model is a linear program description: variables, named constraints and a
// single minimization objective. It carries no solver state; a fresh Model is
// built for every solve and discarded after extraction.
type Model struct {
	name         string
	vars         []varDef
	constraints  []Constraint
	objective    Expr
	hasObjective bool
}

// NewModel creates an empty model. The name shows up in diagnostics only.
func NewModel(name string) *Model {
	return &Model{name: name}
}

// Name returns the model's diagnostic name.
func (m *Model) Name() string { return m.name }

// Binary declares a new binary variable.
func (m *Model) Binary(name string) Var {
	m.vars = append(m.vars, varDef{name: name, kind: Binary})
	return Var(len(m.vars) - 1)
}

// Continuous declares a new non-negative continuous variable.
func (m *Model) Continuous(name string) Var {
	m.vars = append(m.vars, varDef{name: name, kind: Continuous})
	return Var(len(m.vars) - 1)
}

// NumVars returns the number of declared variables.
func (m *Model) NumVars() int { return len(m.vars) }

// VarName returns the name a variable was declared with.
func (m *Model) VarName(v Var) string { return m.vars[v].name }

// Kind returns the declared kind of a variable.
func (m *Model) Kind(v Var) VarKind { return m.vars[v].kind }

// AddConstraint appends a named constraint row.
func (m *Model) AddConstraint(name string, e Expr, sense Sense, rhs float64) {
	m.constraints = append(m.constraints, Constraint{Name: name, Expr: e, Sense: sense, RHS: rhs})
}

// Constraints returns all constraint rows in insertion order.
func (m *Model) Constraints() []Constraint { return m.constraints }

// Constraint looks a row up by name.
func (m *Model) Constraint(name string) (Constraint, bool) {
	for _, c := range m.constraints {
		if c.Name == name {
			return c, true
		}
	}
	return Constraint{}, false
}

// Minimize sets the objective. A model carries at most one objective;
// setting it twice is a programming error.
func (m *Model) Minimize(e Expr) {
	if m.hasObjective {
		panic(fmt.Sprintf("milp: model %q already has an objective", m.name))
	}
	m.objective = e
	m.hasObjective = true
}

// Objective returns the objective expression and whether one was set.
func (m *Model) Objective() (Expr, bool) { return m.objective, m.hasObjective }
