package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Assessment{}, &DeliveryCheck{}, &Listing{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_assessments_gate_created ON assessments(gate, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_assessments_session ON assessments(session_ref)",
		"CREATE INDEX IF NOT EXISTS idx_delivery_checks_listing ON delivery_checks(listing_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_listings_country_species ON listings(seller_country, species)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// SaveAssessment creates an assessment audit row.
func (d *Database) SaveAssessment(a *Assessment) error {
	if a == nil {
		return errors.New("assessment is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(a).Error
}

// GetAssessment fetches an assessment by its reference.
func (d *Database) GetAssessment(reference string) (*Assessment, error) {
	var row Assessment
	if err := d.gorm.Where("reference = ?", strings.TrimSpace(reference)).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// AssessmentQuery encapsulates filters and pagination for listing assessment rows.
type AssessmentQuery struct {
	Gate     string
	MinScore int
	Session  string
	Sort     string
	Offset   int
	Limit    int
}

// ListAssessments returns paginated assessment records applying optional filters.
func (d *Database) ListAssessments(opts AssessmentQuery) ([]Assessment, int64, error) {
	var total int64
	base := d.gorm.Model(&Assessment{})
	if gate := strings.TrimSpace(opts.Gate); gate != "" {
		base = base.Where("gate = ?", strings.ToUpper(gate))
	}
	if opts.MinScore > 0 {
		base = base.Where("score >= ?", opts.MinScore)
	}
	if session := strings.TrimSpace(opts.Session); session != "" {
		base = base.Where("session_ref = ?", session)
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Order(orderForSort(opts.Sort)).Offset(opts.Offset)
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var rows []Assessment
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "score_asc":
		return "assessments.score ASC, assessments.id DESC"
	case "score_desc":
		return "assessments.score DESC, assessments.id DESC"
	case "value_desc":
		return "assessments.total_value DESC, assessments.id DESC"
	case "created_asc":
		return "assessments.created_at ASC"
	case "created_desc":
		return "assessments.created_at DESC"
	default:
		return "assessments.id DESC"
	}
}

// CountAssessmentsByGate returns assessment counts keyed by gate.
func (d *Database) CountAssessmentsByGate() (map[string]int64, error) {
	type row struct {
		Gate  string
		Count int64
	}
	var rows []row
	if err := d.gorm.Model(&Assessment{}).
		Select("gate, COUNT(*) AS count").
		Group("gate").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Gate] = r.Count
	}
	return out, nil
}

// SaveDeliveryCheck creates a deliverability audit row.
func (d *Database) SaveDeliveryCheck(check *DeliveryCheck) error {
	if check == nil {
		return errors.New("delivery check is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(check).Error
}

// ListDeliveryChecks returns a paged set of delivery checks for a listing,
// newest first. A zero listingID lists across all listings.
func (d *Database) ListDeliveryChecks(listingID uint, offset, limit int) ([]DeliveryCheck, int64, error) {
	base := d.gorm.Model(&DeliveryCheck{})
	if listingID > 0 {
		base = base.Where("listing_id = ?", listingID)
	}
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query := base.Order("id DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []DeliveryCheck
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpsertListing inserts or updates a catalog listing by primary key.
func (d *Database) UpsertListing(listing *Listing) error {
	if listing == nil {
		return errors.New("listing is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "species", "product_type", "price",
			"seller_country", "regions_json", "center_lat", "center_lng", "radius_km", "updated_at",
		}),
	}).Create(listing).Error
}

// ReplaceListings swaps the stored catalog with the provided slice.
func (d *Database) ReplaceListings(listings []Listing) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Listing{}).Error; err != nil {
			return err
		}
		if len(listings) == 0 {
			return nil
		}
		return tx.CreateInBatches(listings, 250).Error
	})
}

// GetListing retrieves a listing by ID.
func (d *Database) GetListing(listingID uint) (*Listing, error) {
	var listing Listing
	if err := d.gorm.First(&listing, listingID).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// ListListings returns a paged set of listings ordered by ID.
func (d *Database) ListListings(offset, limit int) ([]Listing, int64, error) {
	var total int64
	if err := d.gorm.Model(&Listing{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query := d.gorm.Model(&Listing{}).Order("id ASC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	var listings []Listing
	if err := query.Find(&listings).Error; err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

// CountListings returns the number of catalog listings.
func (d *Database) CountListings() (int64, error) {
	var count int64
	if err := d.gorm.Model(&Listing{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
