package formula

import (
	"errors"
	"fmt"
)

var ErrDivisionByZero = errors.New("division by zero")

// SyntaxError reports where the parser gave up.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d: %s", e.Pos, e.Msg)
}

type OperatorError struct {
	Op string
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("unsupported operator %q", e.Op)
}

type CallError struct {
	Name  string
	Arity int
}

func (e *CallError) Error() string {
	if e.Name != FuncIf {
		return fmt.Sprintf("unknown function %q", e.Name)
	}
	return fmt.Sprintf("%s takes 3 arguments, got %d", e.Name, e.Arity)
}
