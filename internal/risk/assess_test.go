package risk

import (
	"reflect"
	"testing"
)

func TestAssessEmptyCart(t *testing.T) {
	result := Assess(nil)
	expected := Assessment{Score: 0, Reasons: []string{}, Gate: GateAllow, KYCRequired: false, TotalValue: 0}
	if !reflect.DeepEqual(result, expected) {
		t.Fatalf("expected %+v got %+v", expected, result)
	}
}

func TestAssessScenarios(t *testing.T) {
	tests := []struct {
		name       string
		lines      []CartLine
		score      int
		gate       Gate
		totalValue float64
		reasons    []string
	}{
		{
			name:       "cattle live stepup",
			lines:      []CartLine{{Species: SpeciesCattle, ProductType: ProductLive, Quantity: 2, LineTotal: 8000}},
			score:      4,
			gate:       GateStepUp,
			totalValue: 8000,
			reasons:    []string{"CATTLE present - requires compliance"},
		},
		{
			name:       "sheep export bulk block",
			lines:      []CartLine{{Species: SpeciesSheep, ProductType: ProductExport, Quantity: 60, LineTotal: 12000}},
			score:      11,
			gate:       GateBlock,
			totalValue: 12000,
			reasons: []string{
				"High value > R10,000",
				"Export consignment - full compliance required",
				"Bulk quantity - commercial transaction",
			},
		},
		{
			name:       "poultry live allow",
			lines:      []CartLine{{Species: SpeciesPoultry, ProductType: ProductLive, Quantity: 10, LineTotal: 500}},
			score:      0,
			gate:       GateAllow,
			totalValue: 500,
			reasons:    []string{},
		},
		{
			name:       "live goats certificates",
			lines:      []CartLine{{Species: SpeciesGoat, ProductType: ProductLive, Quantity: 5, LineTotal: 2500}},
			score:      2,
			gate:       GateAllow,
			totalValue: 2500,
			reasons:    []string{"Live small ruminants - health certificates required"},
		},
		{
			name: "pig abattoir stacks",
			lines: []CartLine{
				{Species: SpeciesPig, ProductType: ProductAbattoir, Quantity: 3, LineTotal: 4000},
			},
			score:      7,
			gate:       GateBlock,
			totalValue: 4000,
			reasons: []string{
				"PIG present - requires compliance",
				"Abattoir processing - health documentation required",
			},
		},
		{
			name: "reasons follow line order",
			lines: []CartLine{
				{Species: SpeciesGoat, ProductType: ProductLive, Quantity: 2, LineTotal: 6000},
				{Species: SpeciesCattle, ProductType: ProductLive, Quantity: 1, LineTotal: 9000},
			},
			score:      9,
			gate:       GateBlock,
			totalValue: 15000,
			reasons: []string{
				"High value > R10,000",
				"Live small ruminants - health certificates required",
				"CATTLE present - requires compliance",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Assess(tc.lines)
			if result.Score != tc.score {
				t.Fatalf("score: expected %d got %d", tc.score, result.Score)
			}
			if result.Gate != tc.gate {
				t.Fatalf("gate: expected %s got %s", tc.gate, result.Gate)
			}
			if result.TotalValue != tc.totalValue {
				t.Fatalf("total: expected %f got %f", tc.totalValue, result.TotalValue)
			}
			if !reflect.DeepEqual(result.Reasons, tc.reasons) {
				t.Fatalf("reasons: expected %v got %v", tc.reasons, result.Reasons)
			}
			if result.KYCRequired != (result.Gate != GateAllow) {
				t.Fatalf("kyc flag decoupled from gate: %+v", result)
			}
		})
	}
}

func TestSpeciesRulesMutuallyExclusive(t *testing.T) {
	// A live cattle line must fire only the cattle/pig rule, never the small
	// ruminant rule on top of it.
	result := Assess([]CartLine{{Species: SpeciesCattle, ProductType: ProductLive, Quantity: 1, LineTotal: 100}})
	if result.Score != 4 {
		t.Fatalf("expected 4 got %d", result.Score)
	}
	// Export sheep: the small ruminant rule requires LIVE, so only export fires.
	result = Assess([]CartLine{{Species: SpeciesSheep, ProductType: ProductExport, Quantity: 1, LineTotal: 100}})
	if result.Score != 6 {
		t.Fatalf("expected 6 got %d", result.Score)
	}
	if len(result.Reasons) != 1 || result.Reasons[0] != "Export consignment - full compliance required" {
		t.Fatalf("unexpected reasons %v", result.Reasons)
	}
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		lines []CartLine
		score int
		gate  Gate
	}{
		// quantity-only rule: score 2 stays ALLOW
		{"score 2 allows", []CartLine{{Species: SpeciesPoultry, ProductType: ProductLive, Quantity: 51, LineTotal: 100}}, 2, GateAllow},
		// abattoir poultry: score 3 is the STEPUP floor
		{"score 3 steps up", []CartLine{{Species: SpeciesPoultry, ProductType: ProductAbattoir, Quantity: 1, LineTotal: 100}}, 3, GateStepUp},
		// cattle + bulk: score 6 is still STEPUP
		{"score 6 steps up", []CartLine{{Species: SpeciesCattle, ProductType: ProductLive, Quantity: 51, LineTotal: 100}}, 6, GateStepUp},
		// cattle + abattoir: score 7 is the BLOCK floor
		{"score 7 blocks", []CartLine{{Species: SpeciesCattle, ProductType: ProductAbattoir, Quantity: 1, LineTotal: 100}}, 7, GateBlock},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Assess(tc.lines)
			if result.Score != tc.score {
				t.Fatalf("score: expected %d got %d", tc.score, result.Score)
			}
			if result.Gate != tc.gate {
				t.Fatalf("gate: expected %s got %s", tc.gate, result.Gate)
			}
		})
	}
}

func TestHighValueBoundary(t *testing.T) {
	// Exactly at the threshold the rule must not fire; one unit over it must.
	at := Assess([]CartLine{{Species: SpeciesPoultry, ProductType: ProductLive, Quantity: 1, LineTotal: 10000}})
	if at.Score != 0 || len(at.Reasons) != 0 {
		t.Fatalf("threshold is exclusive, got %+v", at)
	}
	over := Assess([]CartLine{{Species: SpeciesPoultry, ProductType: ProductLive, Quantity: 1, LineTotal: 10001}})
	if over.Score != 3 || over.Reasons[0] != "High value > R10,000" {
		t.Fatalf("expected high value reason, got %+v", over)
	}
}

func TestAssessMonotonic(t *testing.T) {
	base := []CartLine{{Species: SpeciesPoultry, ProductType: ProductLive, Quantity: 1, LineTotal: 100}}
	extras := []CartLine{
		{Species: SpeciesCattle, ProductType: ProductLive, Quantity: 1, LineTotal: 100},
		{Species: SpeciesSheep, ProductType: ProductLive, Quantity: 1, LineTotal: 100},
		{Species: SpeciesGoat, ProductType: ProductExport, Quantity: 1, LineTotal: 100},
		{Species: SpeciesPig, ProductType: ProductAbattoir, Quantity: 60, LineTotal: 100},
	}
	prev := Assess(base).Score
	cart := base
	for _, extra := range extras {
		cart = append(cart, extra)
		score := Assess(cart).Score
		if score < prev {
			t.Fatalf("score decreased from %d to %d after adding a line", prev, score)
		}
		prev = score
	}
}

func TestAssessIdempotent(t *testing.T) {
	cart := []CartLine{
		{Species: SpeciesCattle, ProductType: ProductExport, Quantity: 70, LineTotal: 15000},
		{Species: SpeciesGoat, ProductType: ProductLive, Quantity: 2, LineTotal: 900},
	}
	first := Assess(cart)
	second := Assess(cart)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated evaluation differs: %+v vs %+v", first, second)
	}
}

func TestEvaluatorOverrides(t *testing.T) {
	e := NewEvaluator(Options{HighValueThreshold: 5000, StepUpScore: 2, BlockScore: 5})
	result := e.Assess([]CartLine{{Species: SpeciesPoultry, ProductType: ProductLive, Quantity: 1, LineTotal: 6000}})
	if result.Score != 3 || result.Gate != GateStepUp {
		t.Fatalf("expected stepup at lowered threshold, got %+v", result)
	}
	if result.Reasons[0] != "High value > R5,000" {
		t.Fatalf("reason should carry configured threshold, got %q", result.Reasons[0])
	}

	blocked := e.Assess([]CartLine{{Species: SpeciesCattle, ProductType: ProductLive, Quantity: 60, LineTotal: 100}})
	if blocked.Score != 6 || blocked.Gate != GateBlock {
		t.Fatalf("expected block at lowered ceiling, got %+v", blocked)
	}
}
