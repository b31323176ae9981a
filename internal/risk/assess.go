// Package risk scores prospective livestock orders against a fixed table of
// compliance rules and gates guest checkout on the result. Evaluation is a
// total, side-effect-free function: any well-typed cart, including an empty
// one, produces an assessment and never an error.
package risk

import "fmt"

// Default thresholds for evaluation. The value threshold is in currency
// units shared by all cart lines.
const (
	DefaultHighValueThreshold = 10000.0
	DefaultStepUpScore        = 3
	DefaultBlockScore         = 7
	highValueWeight           = 3
)

// Evaluator holds the configurable thresholds. The zero value is not usable;
// construct with NewEvaluator.
type Evaluator struct {
	highValueThreshold float64
	stepUpScore        int
	blockScore         int
}

// Options overrides evaluator thresholds. Zero-valued fields fall back to the
// defaults.
type Options struct {
	HighValueThreshold float64
	StepUpScore        int
	BlockScore         int
}

// NewEvaluator constructs an evaluator with the supplied overrides.
func NewEvaluator(opts Options) *Evaluator {
	e := &Evaluator{
		highValueThreshold: DefaultHighValueThreshold,
		stepUpScore:        DefaultStepUpScore,
		blockScore:         DefaultBlockScore,
	}
	if opts.HighValueThreshold > 0 {
		e.highValueThreshold = opts.HighValueThreshold
	}
	if opts.StepUpScore > 0 {
		e.stepUpScore = opts.StepUpScore
	}
	if opts.BlockScore > 0 {
		e.blockScore = opts.BlockScore
	}
	return e
}

// HighValueThreshold reports the configured aggregate value threshold.
func (e *Evaluator) HighValueThreshold() float64 {
	return e.highValueThreshold
}

// Thresholds reports the configured step-up and block scores.
func (e *Evaluator) Thresholds() (stepUp, block int) {
	return e.stepUpScore, e.blockScore
}

// Assess folds the rule table over the cart. The aggregate value rule runs
// first, then each line is checked against the per-line rules in cart order,
// so the reasons slice is deterministic for a given cart.
func (e *Evaluator) Assess(lines []CartLine) Assessment {
	score := 0
	reasons := []string{}

	var totalValue float64
	for _, line := range lines {
		totalValue += line.LineTotal
	}

	if totalValue > e.highValueThreshold {
		score += highValueWeight
		reasons = append(reasons, fmt.Sprintf("High value > R%s", formatRand(e.highValueThreshold)))
	}

	for _, line := range lines {
		matchedGroups := map[string]bool{}
		for _, rule := range lineRules {
			if rule.group != "" && matchedGroups[rule.group] {
				continue
			}
			if !rule.match(line) {
				continue
			}
			if rule.group != "" {
				matchedGroups[rule.group] = true
			}
			score += rule.weight
			reasons = append(reasons, rule.message(line))
		}
	}

	gate := GateAllow
	switch {
	case score >= e.blockScore:
		gate = GateBlock
	case score >= e.stepUpScore:
		gate = GateStepUp
	}

	return Assessment{
		Score:       score,
		Reasons:     reasons,
		Gate:        gate,
		KYCRequired: gate != GateAllow,
		TotalValue:  totalValue,
	}
}

var defaultEvaluator = NewEvaluator(Options{})

// Assess evaluates the cart with the default thresholds.
func Assess(lines []CartLine) Assessment {
	return defaultEvaluator.Assess(lines)
}
