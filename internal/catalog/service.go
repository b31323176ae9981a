// Package catalog manages the marketplace listing inventory consumed by the
// deliverability checks. Listings arrive as a CSV feed exported from the
// storefront and are replaced wholesale on each load.
package catalog

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"herdgate/internal/delivery"
	"herdgate/internal/geo"
	"herdgate/internal/risk"
	"herdgate/internal/store"
)

// Service manages listing persistence and service-area lookup.
type Service struct {
	db *store.Database
}

// NewService constructs a catalog service over the shared database.
func NewService(db *store.Database) *Service {
	return &Service{db: db}
}

// LoadFromCSV ingests the provided CSV and replaces the stored listing
// inventory. Expected columns: id, title, species, product_type, price,
// seller_country, regions (pipe-separated), center_lat, center_lng, radius_km.
// A header row is detected by a non-numeric first column. Rows with an
// unknown species or product type are skipped.
func (s *Service) LoadFromCSV(path string) (int, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, fmt.Errorf("listings path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open listings file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.FieldsPerRecord = -1

	var listings []store.Listing
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read listings row: %w", err)
		}
		if len(row) < 6 {
			continue
		}

		idValue := strings.TrimSpace(strings.TrimPrefix(row[0], "\uFEFF"))
		id, err := strconv.ParseUint(idValue, 10, 64)
		if err != nil || id == 0 {
			continue // header or malformed id
		}

		species, err := risk.ParseSpecies(row[2])
		if err != nil {
			continue
		}
		productType, err := risk.ParseProductType(row[3])
		if err != nil {
			continue
		}

		price, _ := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)

		listing := store.Listing{
			ID:            uint(id),
			Title:         strings.TrimSpace(row[1]),
			Species:       string(species),
			ProductType:   string(productType),
			Price:         price,
			SellerCountry: strings.ToUpper(strings.TrimSpace(row[5])),
		}
		listing.SetRegions(splitRegions(column(row, 6)))

		if lat, lng, ok := parseCenter(column(row, 7), column(row, 8)); ok {
			listing.CenterLat = &lat
			listing.CenterLng = &lng
		}
		if radius, err := strconv.ParseFloat(strings.TrimSpace(column(row, 9)), 64); err == nil && radius > 0 {
			listing.RadiusKm = radius
		}

		listings = append(listings, listing)
	}

	if err := s.db.ReplaceListings(listings); err != nil {
		return 0, err
	}
	return len(listings), nil
}

// Count returns the number of stored listings.
func (s *Service) Count() int {
	if s == nil {
		return 0
	}
	count, err := s.db.CountListings()
	if err != nil {
		return 0
	}
	return int(count)
}

// ServiceAreaFor resolves a stored listing into its declared service area and
// seller country for a deliverability check.
func (s *Service) ServiceAreaFor(listingID uint) (delivery.ServiceArea, string, error) {
	listing, err := s.db.GetListing(listingID)
	if err != nil {
		return delivery.ServiceArea{}, "", err
	}
	return AreaFromListing(listing), listing.SellerCountry, nil
}

// AreaFromListing converts a persisted listing into the evaluator input shape.
func AreaFromListing(listing *store.Listing) delivery.ServiceArea {
	area := delivery.ServiceArea{
		Regions:  listing.Regions(),
		RadiusKm: listing.RadiusKm,
	}
	if listing.CenterLat != nil && listing.CenterLng != nil {
		area.Center = &geo.LatLng{Lat: *listing.CenterLat, Lng: *listing.CenterLng}
	}
	return area
}

func splitRegions(value string) []string {
	var regions []string
	for _, part := range strings.Split(value, "|") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			regions = append(regions, trimmed)
		}
	}
	return regions
}

func parseCenter(latValue, lngValue string) (float64, float64, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latValue), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngValue), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

func column(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
