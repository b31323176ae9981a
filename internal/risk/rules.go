package risk

import (
	"fmt"
	"strconv"
	"strings"
)

// lineRule is one additive scoring rule applied to a single cart line.
// Rules sharing a non-empty group are mutually exclusive per line: the first
// matching rule in a group fires and the rest of the group is skipped for
// that line. Evaluation order follows the slice order.
type lineRule struct {
	group   string
	weight  int
	match   func(CartLine) bool
	message func(CartLine) string
}

// lineRules is the fixed per-line rule table. Species compliance rules come
// before product-type and quantity rules so reason ordering stays stable.
var lineRules = []lineRule{
	{
		group:  "species",
		weight: 4,
		match: func(l CartLine) bool {
			return l.Species == SpeciesCattle || l.Species == SpeciesPig
		},
		message: func(l CartLine) string {
			return fmt.Sprintf("%s present - requires compliance", l.Species)
		},
	},
	{
		group:  "species",
		weight: 2,
		match: func(l CartLine) bool {
			return l.ProductType == ProductLive && (l.Species == SpeciesSheep || l.Species == SpeciesGoat)
		},
		message: func(CartLine) string {
			return "Live small ruminants - health certificates required"
		},
	},
	{
		weight: 6,
		match:  func(l CartLine) bool { return l.ProductType == ProductExport },
		message: func(CartLine) string {
			return "Export consignment - full compliance required"
		},
	},
	{
		weight: 3,
		match:  func(l CartLine) bool { return l.ProductType == ProductAbattoir },
		message: func(CartLine) string {
			return "Abattoir processing - health documentation required"
		},
	},
	{
		weight: 2,
		match:  func(l CartLine) bool { return l.Quantity > 50 },
		message: func(CartLine) string {
			return "Bulk quantity - commercial transaction"
		},
	},
}

// RuleCount reports the size of the per-line rule table, exposed for the
// config endpoint.
func RuleCount() int {
	return len(lineRules)
}

// formatRand renders a currency amount as "10,000" style text for reason
// strings. Whole amounts drop the fraction; others keep two decimals.
func formatRand(amount float64) string {
	whole := int64(amount)
	fraction := amount - float64(whole)

	digits := strconv.FormatInt(whole, 10)
	negative := strings.HasPrefix(digits, "-")
	if negative {
		digits = digits[1:]
	}

	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)

	out := strings.Join(parts, ",")
	if negative {
		out = "-" + out
	}
	if fraction > 1e-9 {
		out += strings.TrimPrefix(strconv.FormatFloat(fraction, 'f', 2, 64), "0")
	}
	return out
}
