package ctc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"hradmin/internal/domain/ctc/formula"
)

type Line struct {
	Code   string
	Amount decimal.Decimal
}

// Breakdown is the ordered code -> amount mapping of one contract. It encodes
// as a JSON object whose keys keep the rule-table order.
type Breakdown []Line

// Overrides are HR-entered amounts that replace a component's formula result.
type Overrides map[string]decimal.Decimal

func (b Breakdown) Get(code string) (decimal.Decimal, bool) {
	for _, line := range b {
		if line.Code == code {
			return line.Amount, true
		}
	}
	return decimal.Zero, false
}

func (b Breakdown) Codes() []string {
	codes := make([]string, len(b))
	for i, line := range b {
		codes[i] = line.Code
	}
	return codes
}

func (b Breakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, line := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(line.Code)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(line.Amount.StringFixed(AmountScale))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *Breakdown) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*b = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("breakdown must be a JSON object")
	}

	lines := Breakdown{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		code, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("breakdown key %v is not a string", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		amount, err := decimal.NewFromString(strings.Trim(string(raw), `"`))
		if err != nil {
			return fmt.Errorf("breakdown %s: %w", code, err)
		}
		lines = append(lines, Line{Code: code, Amount: amount})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*b = lines
	return nil
}

// Normalize upper-cases override keys so they match stored codes. When two
// keys collapse to the same code, the key already in stored form wins;
// otherwise the lexically smallest original key does.
func (o Overrides) Normalize() Overrides {
	if o == nil {
		return Overrides{}
	}
	keys := make([]string, 0, len(o))
	for code := range o {
		keys = append(keys, code)
	}
	sort.Strings(keys)

	out := make(Overrides, len(o))
	exact := make(map[string]bool, len(o))
	for _, key := range keys {
		code := NormalizeCode(key)
		if key == code {
			out[code] = o[key]
			exact[code] = true
			continue
		}
		if _, seen := out[code]; !seen && !exact[code] {
			out[code] = o[key]
		}
	}
	return out
}

// Calculation is a breakdown plus what happened while computing it.
type Calculation struct {
	Breakdown  Breakdown `json:"breakdown"`
	Overridden []string  `json:"overridden,omitempty"`
	// Fallbacks lists components whose formula failed and counted as zero.
	Fallbacks []Issue `json:"fallbacks,omitempty"`
}

// CalculateBreakdown evaluates the rule table for a total annual CTC.
func CalculateBreakdown(table RuleTable, totalAnnualCTC decimal.Decimal, overrides Overrides) Breakdown {
	return Calculate(table, totalAnnualCTC, overrides).Breakdown
}

// Calculate walks the table in order. Each component takes its override when
// one exists, otherwise its formula's value. The stored line is rounded to two
// places, while the unrounded value goes into the context that later
// formulas see.
func Calculate(table RuleTable, totalAnnualCTC decimal.Decimal, overrides Overrides) Calculation {
	vars := formula.Vars{SeedVariable: totalAnnualCTC}
	result := Calculation{Breakdown: make(Breakdown, 0, table.Len())}

	for _, component := range table.components {
		value, overridden := overrides[component.Code]
		if overridden {
			result.Overridden = append(result.Overridden, component.Code)
		} else {
			var err error
			value, err = formula.TryEvaluate(component.Formula, vars)
			if err != nil {
				result.Fallbacks = append(result.Fallbacks, Issue{Code: component.Code, Message: err.Error()})
				value = decimal.Zero
			}
		}

		result.Breakdown = append(result.Breakdown, Line{Code: component.Code, Amount: RoundAmount(value)})
		vars[component.Code] = value
	}
	return result
}

func RoundAmount(value decimal.Decimal) decimal.Decimal {
	return value.RoundBank(AmountScale)
}
