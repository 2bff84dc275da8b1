package formula

import (
	"github.com/shopspring/decimal"
)

// Vars is the evaluation context: component codes (and the CTC seed) to amounts.
type Vars map[string]decimal.Decimal

// Node is one node of a parsed formula. Trees are immutable once parsed and
// safe to share between goroutines.
type Node interface {
	Eval(vars Vars) (decimal.Decimal, error)
}

type Literal struct {
	Value decimal.Decimal
}

type Variable struct {
	Name string
}

type Unary struct {
	Op      string
	Operand Node
}

type Binary struct {
	Op    string
	Left  Node
	Right Node
}

// IfCall is IF(Cond, Then, Else). Only the selected branch is evaluated.
type IfCall struct {
	Cond Node
	Then Node
	Else Node
}

// Unsupported stands in for a call or operator the language does not have.
// It evaluates to zero without touching its operands; Err records what it
// replaced so Check can report it.
type Unsupported struct {
	Err error
}

var one = decimal.NewFromInt(1)

func (n Literal) Eval(Vars) (decimal.Decimal, error) {
	return n.Value, nil
}

// Eval resolves the variable; a name missing from vars is zero.
func (n Variable) Eval(vars Vars) (decimal.Decimal, error) {
	if value, ok := vars[n.Name]; ok {
		return value, nil
	}
	return decimal.Zero, nil
}

func (n Unary) Eval(vars Vars) (decimal.Decimal, error) {
	value, err := n.Operand.Eval(vars)
	if err != nil {
		return decimal.Zero, err
	}
	switch n.Op {
	case "-":
		return value.Neg(), nil
	case "+":
		return value, nil
	}
	return decimal.Zero, &OperatorError{Op: n.Op}
}

func (n Binary) Eval(vars Vars) (decimal.Decimal, error) {
	left, err := n.Left.Eval(vars)
	if err != nil {
		return decimal.Zero, err
	}
	right, err := n.Right.Eval(vars)
	if err != nil {
		return decimal.Zero, err
	}

	switch n.Op {
	case "+":
		return left.Add(right), nil
	case "-":
		return left.Sub(right), nil
	case "*":
		return left.Mul(right), nil
	case "/":
		// decimal.Div panics on a zero divisor.
		if right.IsZero() {
			return decimal.Zero, ErrDivisionByZero
		}
		return left.Div(right), nil
	case "<":
		return truth(left.LessThan(right)), nil
	case "<=":
		return truth(left.LessThanOrEqual(right)), nil
	case ">":
		return truth(left.GreaterThan(right)), nil
	case ">=":
		return truth(left.GreaterThanOrEqual(right)), nil
	case "==":
		return truth(left.Equal(right)), nil
	case "!=":
		return truth(!left.Equal(right)), nil
	}
	return decimal.Zero, &OperatorError{Op: n.Op}
}

func (n Unsupported) Eval(Vars) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (n IfCall) Eval(vars Vars) (decimal.Decimal, error) {
	cond, err := n.Cond.Eval(vars)
	if err != nil {
		return decimal.Zero, err
	}
	if !cond.IsZero() {
		return n.Then.Eval(vars)
	}
	return n.Else.Eval(vars)
}

func truth(ok bool) decimal.Decimal {
	if ok {
		return one
	}
	return decimal.Zero
}

// Identifiers lists the distinct variable names a tree references, in the
// order they first appear.
func Identifiers(node Node) []string {
	seen := map[string]bool{}
	var names []string
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case Variable:
			if !seen[v.Name] {
				seen[v.Name] = true
				names = append(names, v.Name)
			}
		case Unary:
			walk(v.Operand)
		case Binary:
			walk(v.Left)
			walk(v.Right)
		case IfCall:
			walk(v.Cond)
			walk(v.Then)
			walk(v.Else)
		}
	}
	if node != nil {
		walk(node)
	}
	return names
}

// Problems lists the unsupported calls and operators in a tree, left to right.
func Problems(node Node) []error {
	var errs []error
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case Unsupported:
			errs = append(errs, v.Err)
		case Unary:
			walk(v.Operand)
		case Binary:
			walk(v.Left)
			walk(v.Right)
		case IfCall:
			walk(v.Cond)
			walk(v.Then)
			walk(v.Else)
		}
	}
	if node != nil {
		walk(node)
	}
	return errs
}
