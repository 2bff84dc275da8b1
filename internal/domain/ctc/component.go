package ctc

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"hradmin/internal/domain/ctc/formula"
)

type Component struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	Formula         string    `json:"formula"`
	Order           int       `json:"order"`
	IsActive        bool      `json:"isActive"`
	ShowInDocuments bool      `json:"showInDocuments"`
	Category        string    `json:"category"`
	IsAnnual        bool      `json:"isAnnual"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

var codePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// NormalizeCode trims and upper-cases a component code the way it is stored.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode checks a normalized code. Codes double as formula variable
// names, so they must be identifiers and must not shadow the CTC seed or the
// IF function.
func ValidateCode(code string) error {
	if code == "" || len(code) > MaxCodeLength || !codePattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	if code == SeedVariable || code == formula.FuncIf {
		return fmt.Errorf("%w: %q", ErrReservedCode, code)
	}
	return nil
}

func ValidCategory(category string) bool {
	for _, candidate := range Categories {
		if candidate == category {
			return true
		}
	}
	return false
}

// RuleTable is the evaluation program: active components in evaluation order.
// It is a snapshot; callers build a fresh one from storage before every
// calculation.
type RuleTable struct {
	components []Component
}

// NewRuleTable keeps the active components and orders them by Order, then
// Name, then Code.
func NewRuleTable(components []Component) RuleTable {
	active := make([]Component, 0, len(components))
	for _, component := range components {
		if component.IsActive {
			active = append(active, component)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Code < b.Code
	})
	return RuleTable{components: active}
}

func (t RuleTable) Components() []Component {
	out := make([]Component, len(t.components))
	copy(out, t.components)
	return out
}

func (t RuleTable) Len() int {
	return len(t.components)
}

func (t RuleTable) Lookup(code string) (Component, bool) {
	for _, component := range t.components {
		if component.Code == code {
			return component, true
		}
	}
	return Component{}, false
}

// Issue describes a component whose formula will not compute what its author
// probably meant.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Lint reports formulas that fail to parse and references to codes that are
// not evaluated earlier in the table (those read as zero).
func (t RuleTable) Lint() []Issue {
	var issues []Issue
	known := map[string]bool{SeedVariable: true}
	for _, component := range t.components {
		if err := formula.Check(component.Formula); err != nil {
			issues = append(issues, Issue{Code: component.Code, Message: err.Error()})
		} else {
			for _, ref := range formula.References(component.Formula) {
				if !known[ref] {
					issues = append(issues, Issue{
						Code:    component.Code,
						Message: fmt.Sprintf("%s is not computed before %s and reads as zero", ref, component.Code),
					})
				}
			}
		}
		known[component.Code] = true
	}
	return issues
}
