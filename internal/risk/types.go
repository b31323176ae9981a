package risk

import (
	"fmt"
	"strings"
)

// Species identifies the animal category of a cart line.
type Species string

const (
	SpeciesCattle  Species = "CATTLE"
	SpeciesPig     Species = "PIG"
	SpeciesSheep   Species = "SHEEP"
	SpeciesGoat    Species = "GOAT"
	SpeciesPoultry Species = "POULTRY"
	SpeciesGame    Species = "GAME"
)

// ProductType identifies how the animals in a cart line are sold.
type ProductType string

const (
	ProductLive     ProductType = "LIVE"
	ProductAbattoir ProductType = "ABATTOIR"
	ProductExport   ProductType = "EXPORT"
	ProductBreeding ProductType = "BREEDING"
)

// Gate is the three-level checkout decision derived from the risk score.
type Gate string

const (
	GateAllow  Gate = "ALLOW"
	GateStepUp Gate = "STEPUP"
	GateBlock  Gate = "BLOCK"
)

// CartLine is one prospective order item. All lines in a single evaluation
// share one currency; the evaluator never converts.
type CartLine struct {
	Species     Species
	ProductType ProductType
	Quantity    int
	LineTotal   float64
}

// Assessment is the immutable outcome of a cart evaluation. Reasons are
// ordered by rule evaluation: the aggregate value rule first, then per-line
// rules in cart order.
type Assessment struct {
	Score       int
	Reasons     []string
	Gate        Gate
	KYCRequired bool
	TotalValue  float64
}

// ParseSpecies maps a wire value onto the closed species set.
func ParseSpecies(value string) (Species, error) {
	switch Species(strings.ToUpper(strings.TrimSpace(value))) {
	case SpeciesCattle:
		return SpeciesCattle, nil
	case SpeciesPig:
		return SpeciesPig, nil
	case SpeciesSheep:
		return SpeciesSheep, nil
	case SpeciesGoat:
		return SpeciesGoat, nil
	case SpeciesPoultry:
		return SpeciesPoultry, nil
	case SpeciesGame:
		return SpeciesGame, nil
	}
	return "", fmt.Errorf("unknown species: %q", value)
}

// ParseProductType maps a wire value onto the closed product type set.
func ParseProductType(value string) (ProductType, error) {
	switch ProductType(strings.ToUpper(strings.TrimSpace(value))) {
	case ProductLive:
		return ProductLive, nil
	case ProductAbattoir:
		return ProductAbattoir, nil
	case ProductExport:
		return ProductExport, nil
	case ProductBreeding:
		return ProductBreeding, nil
	}
	return "", fmt.Errorf("unknown product type: %q", value)
}

// ParseGate maps a wire value onto the gate set. Used by the audit listing
// filters, not by the evaluator.
func ParseGate(value string) (Gate, error) {
	switch Gate(strings.ToUpper(strings.TrimSpace(value))) {
	case GateAllow:
		return GateAllow, nil
	case GateStepUp:
		return GateStepUp, nil
	case GateBlock:
		return GateBlock, nil
	}
	return "", fmt.Errorf("unknown gate: %q", value)
}
