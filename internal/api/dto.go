package api

import (
	"errors"
	"fmt"
	"time"

	"herdgate/internal/delivery"
	"herdgate/internal/geo"
	"herdgate/internal/risk"
	"herdgate/internal/store"
)

// CartLineDTO is the wire shape of one cart line.
type CartLineDTO struct {
	Species     string  `json:"species"`
	ProductType string  `json:"product_type"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"line_total"`
}

// AssessRequest is the checkout risk evaluation payload.
type AssessRequest struct {
	SessionRef string        `json:"session_ref"`
	Cart       []CartLineDTO `json:"cart"`
}

// AssessmentDTO is the API representation of a persisted risk assessment.
type AssessmentDTO struct {
	Reference        string        `json:"reference"`
	SessionRef       string        `json:"session_ref,omitempty"`
	Score            int           `json:"score"`
	Reasons          []string      `json:"reasons"`
	Gate             string        `json:"gate"`
	KYCRequired      bool          `json:"kyc_required"`
	TotalValue       float64       `json:"total_value"`
	Cart             []CartLineDTO `json:"cart,omitempty"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
	CreatedAt        time.Time     `json:"created_at"`
}

// AssessmentsResponse is the paginated audit listing payload.
type AssessmentsResponse struct {
	Items []AssessmentDTO `json:"items"`
	Total int64           `json:"total"`
}

// LatLngDTO is the wire shape of a coordinate pair.
type LatLngDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ServiceAreaDTO is the wire shape of a listing's declared service area.
type ServiceAreaDTO struct {
	Regions  []string   `json:"regions,omitempty"`
	Center   *LatLngDTO `json:"center,omitempty"`
	RadiusKm float64    `json:"radius_km,omitempty"`
}

// BuyerLocationDTO is the buyer side of a deliverability check.
type BuyerLocationDTO struct {
	Country string     `json:"country"`
	Region  string     `json:"region,omitempty"`
	Coords  *LatLngDTO `json:"coords,omitempty"`
}

// DeliverabilityRequest is the ad-hoc deliverability evaluation payload.
type DeliverabilityRequest struct {
	ServiceArea   ServiceAreaDTO   `json:"service_area"`
	SellerCountry string           `json:"seller_country"`
	Buyer         BuyerLocationDTO `json:"buyer"`
}

// ListingDeliverabilityRequest checks a stored listing against a buyer.
type ListingDeliverabilityRequest struct {
	Buyer BuyerLocationDTO `json:"buyer"`
}

// DeliverabilityDTO is the deliverability verdict plus suggested action.
type DeliverabilityDTO struct {
	CrossBorder bool     `json:"cross_border"`
	Allowed     bool     `json:"allowed"`
	DistanceKm  *float64 `json:"distance_km,omitempty"`
	Action      string   `json:"action"`
}

// StalenessRequest is the location-refresh predicate payload.
type StalenessRequest struct {
	LastUpdated *time.Time `json:"last_updated"`
	OldCoords   *LatLngDTO `json:"old_coords"`
	NewCoords   *LatLngDTO `json:"new_coords"`
}

// StalenessResponse reports whether a stored location needs re-confirmation.
type StalenessResponse struct {
	Stale bool `json:"stale"`
}

// ListingDTO is the API representation of a catalog listing.
type ListingDTO struct {
	ID            uint       `json:"id"`
	Title         string     `json:"title"`
	Species       string     `json:"species"`
	ProductType   string     `json:"product_type"`
	Price         float64    `json:"price"`
	SellerCountry string     `json:"seller_country"`
	Regions       []string   `json:"regions,omitempty"`
	Center        *LatLngDTO `json:"center,omitempty"`
	RadiusKm      float64    `json:"radius_km,omitempty"`
}

// ListingsResponse is the paginated catalog payload.
type ListingsResponse struct {
	Items []ListingDTO `json:"items"`
	Total int64        `json:"total"`
}

// cartFromDTO validates the wire cart and converts it into evaluator input.
// The evaluator itself is total over well-typed carts, so all rejection
// happens here at the boundary.
func cartFromDTO(cart []CartLineDTO) ([]risk.CartLine, error) {
	lines := make([]risk.CartLine, 0, len(cart))
	for i, dto := range cart {
		species, err := risk.ParseSpecies(dto.Species)
		if err != nil {
			return nil, fmt.Errorf("cart line %d: %w", i, err)
		}
		productType, err := risk.ParseProductType(dto.ProductType)
		if err != nil {
			return nil, fmt.Errorf("cart line %d: %w", i, err)
		}
		if dto.Quantity <= 0 {
			return nil, fmt.Errorf("cart line %d: quantity must be positive", i)
		}
		if dto.LineTotal < 0 {
			return nil, fmt.Errorf("cart line %d: line total must not be negative", i)
		}
		lines = append(lines, risk.CartLine{
			Species:     species,
			ProductType: productType,
			Quantity:    dto.Quantity,
			LineTotal:   dto.LineTotal,
		})
	}
	return lines, nil
}

func (dto ServiceAreaDTO) toModel() delivery.ServiceArea {
	area := delivery.ServiceArea{
		Regions:  dto.Regions,
		RadiusKm: dto.RadiusKm,
	}
	if dto.Center != nil {
		area.Center = &geo.LatLng{Lat: dto.Center.Lat, Lng: dto.Center.Lng}
	}
	return area
}

func (dto BuyerLocationDTO) toModel() (delivery.BuyerLocation, error) {
	if dto.Country == "" {
		return delivery.BuyerLocation{}, errors.New("buyer country is required")
	}
	buyer := delivery.BuyerLocation{
		Country: dto.Country,
		Region:  dto.Region,
	}
	if dto.Coords != nil {
		buyer.Coords = &geo.LatLng{Lat: dto.Coords.Lat, Lng: dto.Coords.Lng}
	}
	return buyer, nil
}

func latLngFromDTO(dto *LatLngDTO) *geo.LatLng {
	if dto == nil {
		return nil
	}
	return &geo.LatLng{Lat: dto.Lat, Lng: dto.Lng}
}

// DeliverabilityFromResult converts an evaluator verdict into the wire shape.
func DeliverabilityFromResult(result delivery.Result) DeliverabilityDTO {
	return DeliverabilityDTO{
		CrossBorder: result.CrossBorder,
		Allowed:     result.Allowed,
		DistanceKm:  result.DistanceKm,
		Action:      string(delivery.ActionFor(result)),
	}
}

// FromModel converts a store.Assessment into the DTO representation.
func FromModel(a store.Assessment) AssessmentDTO {
	reasons := a.Reasons()
	if reasons == nil {
		reasons = []string{}
	}
	cart := make([]CartLineDTO, 0, len(a.Cart()))
	for _, line := range a.Cart() {
		cart = append(cart, CartLineDTO{
			Species:     line.Species,
			ProductType: line.ProductType,
			Quantity:    line.Quantity,
			LineTotal:   line.LineTotal,
		})
	}
	return AssessmentDTO{
		Reference:        a.Reference,
		SessionRef:       a.SessionRef,
		Score:            a.Score,
		Reasons:          reasons,
		Gate:             a.Gate,
		KYCRequired:      a.KYCRequired,
		TotalValue:       a.TotalValue,
		Cart:             cart,
		ProcessingTimeMs: a.ProcessingTimeMs,
		CreatedAt:        a.CreatedAt,
	}
}

// ListingFromModel converts a store.Listing into a DTO.
func ListingFromModel(l store.Listing) ListingDTO {
	dto := ListingDTO{
		ID:            l.ID,
		Title:         l.Title,
		Species:       l.Species,
		ProductType:   l.ProductType,
		Price:         l.Price,
		SellerCountry: l.SellerCountry,
		Regions:       l.Regions(),
		RadiusKm:      l.RadiusKm,
	}
	if l.CenterLat != nil && l.CenterLng != nil {
		dto.Center = &LatLngDTO{Lat: *l.CenterLat, Lng: *l.CenterLng}
	}
	return dto
}
