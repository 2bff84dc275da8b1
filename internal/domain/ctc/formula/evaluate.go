// Package formula evaluates the small expression language used by CTC
// component formulas: decimal literals, component codes, + - * /, comparisons
// and IF(cond, then, else).
//
// Evaluation is lenient. An unknown function, an IF without exactly three
// arguments or an unsupported operator (%, //, **) reads as zero where it
// appears, like an unknown code, and the rest of the formula still counts.
// Bad syntax or a division by zero makes the whole formula zero. TryEvaluate
// exposes those whole-formula failures and Check reports both kinds.
//
// Unary signs and comparisons are real operators: -CTC is the negated seed
// and GROSS < 21000 yields 1 or 0. Rule sets written for an evaluator that
// read both as zero compute differently here.
package formula

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

const maxCachedTrees = 1024

type parsed struct {
	node Node
	err  error
}

type treeCache struct {
	mu    sync.RWMutex
	trees map[string]parsed
}

var cache = &treeCache{trees: make(map[string]parsed)}

func (c *treeCache) parse(src string) (Node, error) {
	c.mu.RLock()
	entry, ok := c.trees[src]
	c.mu.RUnlock()
	if ok {
		return entry.node, entry.err
	}

	node, err := Parse(src)

	c.mu.Lock()
	if len(c.trees) >= maxCachedTrees {
		c.trees = make(map[string]parsed)
	}
	c.trees[src] = parsed{node: node, err: err}
	c.mu.Unlock()
	return node, err
}

// Evaluate returns the value of src against vars, or zero when the formula
// cannot be evaluated.
func Evaluate(src string, vars Vars) decimal.Decimal {
	value, err := TryEvaluate(src, vars)
	if err != nil {
		return decimal.Zero
	}
	return value
}

// TryEvaluate is Evaluate without the zero fallback. A blank formula is zero,
// not an error.
func TryEvaluate(src string, vars Vars) (decimal.Decimal, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return decimal.Zero, nil
	}
	if IsNumericLiteral(src) {
		return decimal.NewFromString(src)
	}
	node, err := cache.parse(src)
	if err != nil {
		return decimal.Zero, err
	}
	return node.Eval(vars)
}

// Check reports a syntax error, or the first unsupported call or operator in
// src. It does not evaluate, so a division by a zero-valued variable is not
// detected here.
func Check(src string) error {
	src = strings.TrimSpace(src)
	if src == "" || IsNumericLiteral(src) {
		return nil
	}
	node, err := cache.parse(src)
	if err != nil {
		return err
	}
	if problems := Problems(node); len(problems) > 0 {
		return problems[0]
	}
	return nil
}

// References lists the variable names src refers to. Unparsable formulas have
// no references.
func References(src string) []string {
	src = strings.TrimSpace(src)
	if src == "" || IsNumericLiteral(src) {
		return nil
	}
	node, err := cache.parse(src)
	if err != nil {
		return nil
	}
	return Identifiers(node)
}

// IsNumericLiteral matches an optional leading minus, digits and at most one
// decimal point. Such formulas bypass the parser entirely.
func IsNumericLiteral(src string) bool {
	s := strings.TrimPrefix(src, "-")
	digits := 0
	dot := false
	for i := 0; i < len(s); i++ {
		switch {
		case isDigit(s[i]):
			digits++
		case s[i] == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}
