package ctc

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, b Breakdown, code, want string) {
	t.Helper()
	got, ok := b.Get(code)
	require.Truef(t, ok, "breakdown has no %s line: %v", code, b.Codes())
	assert.Truef(t, got.Equal(dec(want)), "%s: expected %s, got %s", code, want, got.String())
}

func component(code string, order int, expr string) Component {
	return Component{Code: code, Name: code, Formula: expr, Order: order, IsActive: true, ShowInDocuments: true, Category: CategoryEarning}
}

func standardTable() RuleTable {
	return NewRuleTable([]Component{
		component("SPECIAL", 4, "CTC / 12 - BASIC - HRA - PF"),
		component("BASIC", 1, "CTC * 0.4 / 12"),
		component("HRA", 2, "BASIC * 0.5"),
		component("PF", 3, "IF(BASIC > 15000, 1800, BASIC * 0.12)"),
	})
}

func TestCalculateBreakdown(t *testing.T) {
	b := CalculateBreakdown(standardTable(), dec("1200000"), nil)

	assert.Equal(t, []string{"BASIC", "HRA", "PF", "SPECIAL"}, b.Codes())
	assertAmount(t, b, "BASIC", "40000")
	assertAmount(t, b, "HRA", "20000")
	assertAmount(t, b, "PF", "1800")
	assertAmount(t, b, "SPECIAL", "38200")
}

func TestCalculateBreakdownIsDeterministic(t *testing.T) {
	table := standardTable()
	overrides := Overrides{"HRA": dec("7000")}

	first, err := json.Marshal(CalculateBreakdown(table, dec("987654.32"), overrides))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(CalculateBreakdown(table, dec("987654.32"), overrides))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestManualOverridePropagates(t *testing.T) {
	b := CalculateBreakdown(standardTable(), dec("1200000"), Overrides{"HRA": dec("5000")})

	assertAmount(t, b, "HRA", "5000")
	assertAmount(t, b, "SPECIAL", "53200")
}

func TestOverrideForUnknownCodeIsIgnored(t *testing.T) {
	calc := Calculate(standardTable(), dec("1200000"), Overrides{"BONUS": dec("99")})

	_, ok := calc.Breakdown.Get("BONUS")
	assert.False(t, ok)
	assert.Empty(t, calc.Overridden)
	assertAmount(t, calc.Breakdown, "SPECIAL", "38200")
}

func TestForwardReferenceReadsZero(t *testing.T) {
	table := NewRuleTable([]Component{
		component("EARLY", 1, "LATE * 2 + 1"),
		component("LATE", 2, "100"),
	})
	b := CalculateBreakdown(table, dec("500000"), nil)

	assertAmount(t, b, "EARLY", "1")
	assertAmount(t, b, "LATE", "100")
}

func TestContextKeepsUnroundedValues(t *testing.T) {
	table := NewRuleTable([]Component{
		component("THIRD", 1, "CTC / 3"),
		component("WHOLE", 2, "THIRD * 3"),
	})
	b := CalculateBreakdown(table, dec("100"), nil)

	assertAmount(t, b, "THIRD", "33.33")
	// 33.33 * 3 would be 99.99; the context carries 33.3333...
	assertAmount(t, b, "WHOLE", "100")
}

func TestRoundingIsHalfEven(t *testing.T) {
	table := NewRuleTable([]Component{
		component("DOWN", 1, "0.125"),
		component("UP", 2, "0.135"),
	})
	b := CalculateBreakdown(table, decimal.Zero, nil)

	assertAmount(t, b, "DOWN", "0.12")
	assertAmount(t, b, "UP", "0.14")
}

func TestFailingFormulaFallsBackToZero(t *testing.T) {
	table := NewRuleTable([]Component{
		component("BASIC", 1, "CTC / 12"),
		component("BROKEN", 2, "BASIC / (BASIC - BASIC)"),
		component("BLANK", 3, ""),
		component("AFTER", 4, "BASIC + BROKEN"),
	})
	calc := Calculate(table, dec("120000"), nil)

	assertAmount(t, calc.Breakdown, "BROKEN", "0")
	assertAmount(t, calc.Breakdown, "BLANK", "0")
	assertAmount(t, calc.Breakdown, "AFTER", "10000")
	require.Len(t, calc.Fallbacks, 1)
	assert.Equal(t, "BROKEN", calc.Fallbacks[0].Code)
}

func TestEmptyRuleTable(t *testing.T) {
	b := CalculateBreakdown(NewRuleTable(nil), dec("100000"), Overrides{"X": dec("1")})
	assert.Empty(t, b)

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestBreakdownJSONKeepsOrder(t *testing.T) {
	b := Breakdown{
		{Code: "ZETA", Amount: dec("10")},
		{Code: "ALPHA", Amount: dec("2.5")},
		{Code: "MID", Amount: dec("-3.456")},
	}

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `{"ZETA":10.00,"ALPHA":2.50,"MID":-3.46}`, string(raw))

	var decoded Breakdown
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{"ZETA", "ALPHA", "MID"}, decoded.Codes())
	assertAmount(t, decoded, "ALPHA", "2.5")
	assertAmount(t, decoded, "MID", "-3.46")
}

func TestBreakdownUnmarshalAcceptsQuotedAmounts(t *testing.T) {
	var b Breakdown
	require.NoError(t, json.Unmarshal([]byte(`{"BASIC":"40000.00","HRA":20000}`), &b))
	assertAmount(t, b, "BASIC", "40000")
	assertAmount(t, b, "HRA", "20000")

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &b))
	assert.Error(t, json.Unmarshal([]byte(`{"BASIC":"lots"}`), &b))
}

func TestOverridesNormalize(t *testing.T) {
	normalized := Overrides{" hra ": dec("1")}.Normalize()
	_, ok := normalized["HRA"]
	assert.True(t, ok)
	assert.NotNil(t, Overrides(nil).Normalize())
}

func TestOverridesNormalizeCollidingKeys(t *testing.T) {
	for i := 0; i < 100; i++ {
		got := Overrides{"hra": dec("1"), "HRA": dec("2"), " Hra": dec("3")}.Normalize()
		require.Len(t, got, 1)
		assert.True(t, dec("2").Equal(got["HRA"]))

		got = Overrides{"hra": dec("1"), "Hra": dec("3")}.Normalize()
		assert.True(t, dec("3").Equal(got["HRA"]), "lexically smallest key wins")
	}
}
