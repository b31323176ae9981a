package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"herdgate/internal/catalog"
	"herdgate/internal/delivery"
	"herdgate/internal/risk"
	"herdgate/internal/store"
	"herdgate/internal/util"
)

// Config defines server dependencies.
type Config struct {
	DBPath             string
	ListingsPath       string
	AllowedOrigins     []string
	SilentDB           bool
	HighValueThreshold float64
	StepUpScore        int
	BlockScore         int
}

// Server wires HTTP handlers with persistence and the evaluators.
type Server struct {
	db             *store.Database
	evaluator      *risk.Evaluator
	catalog        *catalog.Service
	listingsPath   string
	allowedOrigins []string
	gateNotifier   *GateNotifier
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	server := &Server{
		db: db,
		evaluator: risk.NewEvaluator(risk.Options{
			HighValueThreshold: cfg.HighValueThreshold,
			StepUpScore:        cfg.StepUpScore,
			BlockScore:         cfg.BlockScore,
		}),
		catalog:        catalog.NewService(db),
		allowedOrigins: cfg.AllowedOrigins,
		gateNotifier:   NewGateNotifier(),
	}

	if trimmed := strings.TrimSpace(cfg.ListingsPath); trimmed != "" {
		if err := server.loadListings(trimmed); err != nil {
			logrus.WithError(err).Warn("load listings inventory")
		}
	}

	return server, nil
}

// Close releases the underlying database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/checkout/assess", s.handleAssess)
		api.GET("/checkout/stream", s.handleAssessStream)
		api.GET("/assessments", s.handleListAssessments)
		api.GET("/assessments/:ref", s.handleGetAssessment)
		api.POST("/deliverability", s.handleDeliverability)
		api.POST("/listings/:id/deliverability", s.handleListingDeliverability)
		api.GET("/listings", s.handleListListings)
		api.POST("/location/staleness", s.handleStaleness)
		api.GET("/export.csv", s.handleExportCSV)
		api.GET("/export.json", s.handleExportJSON)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	stepUp, block := s.evaluator.Thresholds()
	c.JSON(http.StatusOK, gin.H{
		"high_value_threshold": s.evaluator.HighValueThreshold(),
		"stepup_score":         stepUp,
		"block_score":          block,
		"line_rules":           risk.RuleCount(),
		"listings":             s.catalog.Count(),
	})
}

func (s *Server) handleAssess(c *gin.Context) {
	var req AssessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	lines, err := cartFromDTO(req.Cart)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	timer := util.StartTimer()
	assessment := s.evaluator.Assess(lines)

	record := store.Assessment{
		Reference:        uuid.NewString(),
		SessionRef:       strings.TrimSpace(req.SessionRef),
		Score:            assessment.Score,
		Gate:             string(assessment.Gate),
		KYCRequired:      assessment.KYCRequired,
		TotalValue:       assessment.TotalValue,
		ProcessingTimeMs: timer.ElapsedMs(),
	}
	record.SetReasons(assessment.Reasons)
	cart := make([]store.CartLineRecord, 0, len(req.Cart))
	for _, line := range lines {
		cart = append(cart, store.CartLineRecord{
			Species:     string(line.Species),
			ProductType: string(line.ProductType),
			Quantity:    line.Quantity,
			LineTotal:   line.LineTotal,
		})
	}
	record.SetCart(cart)

	if err := s.db.SaveAssessment(&record); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	dto := FromModel(record)
	logrus.WithFields(logrus.Fields{
		"reference": record.Reference,
		"gate":      record.Gate,
		"score":     record.Score,
		"lines":     len(lines),
	}).Info("checkout assessed")

	s.gateNotifier.Broadcast(GateEvent{
		Type:       "assessment",
		Reference:  record.Reference,
		Gate:       record.Gate,
		Score:      record.Score,
		TotalValue: record.TotalValue,
		Assessment: &dto,
	})

	c.JSON(http.StatusOK, dto)
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("ref"))
	if ref == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("assessment reference required"))
		return
	}
	row, err := s.db.GetAssessment(ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("assessment %s not found", ref))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusOK, FromModel(*row))
}

func (s *Server) handleListAssessments(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 100
	}
	minScore, _ := strconv.Atoi(c.Query("minScore"))

	gate := strings.TrimSpace(c.Query("gate"))
	if gate != "" {
		if _, err := risk.ParseGate(gate); err != nil {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
	}

	rows, total, err := s.db.ListAssessments(store.AssessmentQuery{
		Gate:     gate,
		MinScore: minScore,
		Session:  strings.TrimSpace(c.Query("session")),
		Sort:     strings.TrimSpace(c.Query("sort")),
		Offset:   page * pageSize,
		Limit:    pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]AssessmentDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	c.JSON(http.StatusOK, AssessmentsResponse{Items: dtos, Total: total})
}

func (s *Server) handleDeliverability(c *gin.Context) {
	var req DeliverabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.SellerCountry) == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("seller country is required"))
		return
	}
	buyer, err := req.Buyer.toModel()
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	result := delivery.Status(req.ServiceArea.toModel(), req.SellerCountry, buyer)
	c.JSON(http.StatusOK, DeliverabilityFromResult(result))
}

func (s *Server) handleListingDeliverability(c *gin.Context) {
	listingID, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	var req ListingDeliverabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	buyer, err := req.Buyer.toModel()
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	area, sellerCountry, err := s.catalog.ServiceAreaFor(listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("listing %d not found", listingID))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}

	result := delivery.Status(area, sellerCountry, buyer)
	dto := DeliverabilityFromResult(result)

	check := store.DeliveryCheck{
		ListingID:     listingID,
		SellerCountry: strings.ToUpper(strings.TrimSpace(sellerCountry)),
		BuyerCountry:  strings.ToUpper(strings.TrimSpace(buyer.Country)),
		BuyerRegion:   strings.TrimSpace(buyer.Region),
		CrossBorder:   result.CrossBorder,
		Allowed:       result.Allowed,
		DistanceKm:    result.DistanceKm,
		Action:        dto.Action,
	}
	if err := s.db.SaveDeliveryCheck(&check); err != nil {
		logrus.WithError(err).WithField("listing", listingID).Warn("persist delivery check")
	}

	c.JSON(http.StatusOK, dto)
}

func (s *Server) handleListListings(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 25
	}

	rows, total, err := s.db.ListListings(page*pageSize, pageSize)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]ListingDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, ListingFromModel(row))
	}
	c.JSON(http.StatusOK, ListingsResponse{Items: dtos, Total: total})
}

func (s *Server) handleStaleness(c *gin.Context) {
	var req StalenessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	stale := delivery.IsLocationStale(req.LastUpdated, latLngFromDTO(req.OldCoords), latLngFromDTO(req.NewCoords))
	c.JSON(http.StatusOK, StalenessResponse{Stale: stale})
}

func (s *Server) handleAssessStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.gateNotifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("gate websocket connected")
	defer s.gateNotifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("gate websocket closed")
			} else {
				logrus.WithError(err).Warn("gate websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) handleExportCSV(c *gin.Context) {
	rows, _, err := s.db.ListAssessments(store.AssessmentQuery{Limit: -1})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=herdgate-assessments.csv")
	c.Header("Content-Type", "text/csv")

	writer := csv.NewWriter(c.Writer)
	headers := []string{"reference", "session_ref", "score", "gate", "kyc_required", "total_value", "reasons", "created_at"}
	if err := writer.Write(headers); err != nil {
		return
	}
	for _, row := range rows {
		line := []string{
			row.Reference,
			row.SessionRef,
			strconv.Itoa(row.Score),
			row.Gate,
			strconv.FormatBool(row.KYCRequired),
			fmt.Sprintf("%.2f", row.TotalValue),
			strings.Join(row.Reasons(), "|"),
			row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(line); err != nil {
			return
		}
	}
	writer.Flush()
}

func (s *Server) handleExportJSON(c *gin.Context) {
	rows, _, err := s.db.ListAssessments(store.AssessmentQuery{Limit: -1})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]AssessmentDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	c.Header("Content-Disposition", "attachment; filename=herdgate-assessments.json")
	c.JSON(http.StatusOK, dtos)
}

func (s *Server) loadListings(path string) error {
	count, err := s.catalog.LoadFromCSV(path)
	if err != nil {
		return err
	}
	s.listingsPath = path
	logrus.WithFields(logrus.Fields{
		"path":     path,
		"listings": count,
	}).Info("listing inventory loaded")
	return nil
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseUintParam(value string) (uint, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, errors.New("identifier is required")
	}
	parsed, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier: %w", err)
	}
	if parsed == 0 {
		return 0, errors.New("identifier must be greater than zero")
	}
	return uint(parsed), nil
}
