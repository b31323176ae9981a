package store

import (
	"encoding/json"
	"strings"
	"time"
)

// Assessment is the audit row persisted for every checkout risk evaluation.
// The cart and reasons are stored as JSON so the row stands alone for
// compliance review and export.
type Assessment struct {
	ID               uint   `gorm:"primaryKey"`
	Reference        string `gorm:"size:64;uniqueIndex"`
	SessionRef       string `gorm:"size:128;index"`
	CartJSON         string `gorm:"type:text"`
	Score            int    `gorm:"index"`
	ReasonsJSON      string `gorm:"type:text"`
	Gate             string `gorm:"size:16;index"`
	KYCRequired      bool
	TotalValue       float64
	ProcessingTimeMs int64
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// CartLineRecord is the persisted shape of one cart line inside CartJSON.
type CartLineRecord struct {
	Species     string  `json:"species"`
	ProductType string  `json:"product_type"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"line_total"`
}

// SetCart stores the evaluated cart as JSON.
func (a *Assessment) SetCart(lines []CartLineRecord) {
	payload, _ := json.Marshal(lines)
	a.CartJSON = string(payload)
}

// Cart returns the decoded cart lines.
func (a *Assessment) Cart() []CartLineRecord {
	if strings.TrimSpace(a.CartJSON) == "" {
		return nil
	}
	var out []CartLineRecord
	if err := json.Unmarshal([]byte(a.CartJSON), &out); err != nil {
		return nil
	}
	return out
}

// SetReasons stores the triggered rule messages as JSON.
func (a *Assessment) SetReasons(reasons []string) {
	if reasons == nil {
		a.ReasonsJSON = "[]"
		return
	}
	payload, _ := json.Marshal(reasons)
	a.ReasonsJSON = string(payload)
}

// Reasons returns the decoded rule messages.
func (a *Assessment) Reasons() []string {
	if strings.TrimSpace(a.ReasonsJSON) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(a.ReasonsJSON), &out); err != nil {
		return nil
	}
	return out
}

// DeliveryCheck is the audit row persisted for listing deliverability checks.
type DeliveryCheck struct {
	ID            uint   `gorm:"primaryKey"`
	ListingID     uint   `gorm:"index"`
	SellerCountry string `gorm:"size:8"`
	BuyerCountry  string `gorm:"size:8;index"`
	BuyerRegion   string `gorm:"size:64"`
	CrossBorder   bool
	Allowed       bool
	DistanceKm    *float64
	Action        string    `gorm:"size:16;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// Listing is a catalog entry with its declared service area, loaded from the
// marketplace CSV feed.
type Listing struct {
	ID            uint   `gorm:"primaryKey"`
	Title         string `gorm:"size:255"`
	Species       string `gorm:"size:32;index"`
	ProductType   string `gorm:"size:32;index"`
	Price         float64
	SellerCountry string `gorm:"size:8;index"`
	RegionsJSON   string `gorm:"type:text"`
	CenterLat     *float64
	CenterLng     *float64
	RadiusKm      float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SetRegions stores the service-area region allow-list as JSON.
func (l *Listing) SetRegions(regions []string) {
	if regions == nil {
		l.RegionsJSON = "[]"
		return
	}
	payload, _ := json.Marshal(regions)
	l.RegionsJSON = string(payload)
}

// Regions returns the decoded region allow-list.
func (l *Listing) Regions() []string {
	if strings.TrimSpace(l.RegionsJSON) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(l.RegionsJSON), &out); err != nil {
		return nil
	}
	return out
}
