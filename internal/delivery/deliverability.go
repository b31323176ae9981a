// Package delivery classifies whether a listing's declared service area can
// serve a buyer, purely from location data already on hand. There is no live
// logistics lookup; cross-border cases always route to a manual RFQ flow.
package delivery

import (
	"strings"

	"herdgate/internal/geo"
)

// ServiceArea is a listing's declared delivery capability. Any combination of
// fields may be absent; an area with no regions and no center is unconstrained.
type ServiceArea struct {
	Regions  []string
	Center   *geo.LatLng
	RadiusKm float64
}

// BuyerLocation is the buyer side of an eligibility check.
type BuyerLocation struct {
	Country string
	Region  string
	Coords  *geo.LatLng
}

// Result is the deliverability classification. When CrossBorder is true the
// Allowed field carries no meaning; cross-border is terminal.
type Result struct {
	CrossBorder bool
	Allowed     bool
	DistanceKm  *float64
}

// Action is the call-to-action suggested to the buyer for a listing.
type Action string

const (
	ActionBuyNow       Action = "BUY_NOW"
	ActionRequestQuote Action = "REQUEST_QUOTE"
	ActionRequestRFQ   Action = "REQUEST_RFQ"
)

// Status classifies the buyer against the listing's service area. Same-country
// checks prefer the region allow-list, then the radius check, and default to
// allowed when the area declares neither.
func Status(area ServiceArea, sellerCountry string, buyer BuyerLocation) Result {
	if !sameLocale(sellerCountry, buyer.Country) {
		return Result{CrossBorder: true}
	}

	if len(area.Regions) > 0 && strings.TrimSpace(buyer.Region) != "" {
		for _, region := range area.Regions {
			if sameLocale(region, buyer.Region) {
				return Result{Allowed: true}
			}
		}
		return Result{Allowed: false}
	}

	if area.Center != nil && buyer.Coords != nil {
		distance := geo.ApproxDistanceKm(*area.Center, *buyer.Coords)
		return Result{Allowed: distance <= area.RadiusKm, DistanceKm: &distance}
	}

	return Result{Allowed: true}
}

// ActionFor maps a deliverability result onto the buyer-facing call to action.
func ActionFor(result Result) Action {
	switch {
	case result.CrossBorder:
		return ActionRequestRFQ
	case result.Allowed:
		return ActionBuyNow
	default:
		return ActionRequestQuote
	}
}

func sameLocale(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
