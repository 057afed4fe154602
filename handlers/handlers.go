package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"

	"crimewatch/database"
	"crimewatch/mapaggr"
	"crimewatch/models"
	"crimewatch/parser"
	"crimewatch/reward"
	"crimewatch/service"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// maxMediaSize is the per-item limit on decoded media bytes.
const maxMediaSize = 10 * 1024 * 1024

var allowedMimeTypes = map[string]models.MediaKind{
	"image/jpeg": models.MediaPhoto,
	"image/png":  models.MediaPhoto,
	"image/gif":  models.MediaPhoto,
	"image/webp": models.MediaPhoto,
	"video/mp4":  models.MediaVideo,
	"video/avi":  models.MediaVideo,
	"video/mov":  models.MediaVideo,
	"video/wmv":  models.MediaVideo,
}

// Handlers contains the HTTP handlers for the crimewatch service
type Handlers struct {
	svc *service.Service
}

// NewHandlers creates a new handlers instance
func NewHandlers(svc *service.Service) *Handlers {
	return &Handlers{svc: svc}
}

// validateSubmit checks a submission and returns a field-specific message for
// the first problem found.
func validateSubmit(args *models.SubmitArgs) string {
	if args.ID == "" {
		return "id is required"
	}
	if args.Location == "" {
		return "location is required"
	}
	if args.Description == "" {
		return "description is required"
	}
	if args.Category == "" {
		return "category is required"
	}
	if !models.ValidCrimeType(args.Category) {
		return fmt.Sprintf("category %q is not a known crime category", args.Category)
	}
	if args.Priority == "" {
		return "priority is required"
	}
	if !models.ValidPriority(args.Priority) {
		return fmt.Sprintf("priority %q is not one of low, medium, high, critical", args.Priority)
	}
	if len(args.Media) == 0 {
		return "at least one media item is required"
	}
	for i, m := range args.Media {
		if _, ok := allowedMimeTypes[m.MimeType]; !ok {
			return fmt.Sprintf("media[%d]: mime type %q is not supported", i, m.MimeType)
		}
	}
	if args.WalletAddress != "" && !reward.ValidAddress(args.WalletAddress) {
		return fmt.Sprintf("wallet_address %q is not a valid hex address", args.WalletAddress)
	}
	if args.Classification != nil {
		if args.Classification.Confidence < 0 || args.Classification.Confidence > 100 {
			return "classification confidence must be between 0 and 100"
		}
		if args.Classification.Description == "" {
			return "classification description is required"
		}
	}
	return ""
}

// SubmitReport handles POST /report
func (h *Handlers) SubmitReport(c *gin.Context) {
	var args models.SubmitArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if msg := validateSubmit(&args); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	report := &models.Report{
		SubmitterID:   args.ID,
		WalletAddress: args.WalletAddress,
		Location:      args.Location,
		Latitude:      args.Latitude,
		Longitude:     args.Longitude,
		Description:   args.Description,
		Category:      args.Category,
		Priority:      args.Priority,
		Status:        models.StatusPending,
	}

	var firstMedia []byte
	for i, m := range args.Media {
		data, err := base64.StdEncoding.DecodeString(m.Data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("media[%d]: data is not valid base64", i)})
			return
		}
		if len(data) > maxMediaSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("media[%d]: exceeds the 10MiB size limit", i)})
			return
		}
		if i == 0 {
			firstMedia = data
		}
		report.Media = append(report.Media, models.MediaRef{
			Kind:     allowedMimeTypes[m.MimeType],
			MimeType: m.MimeType,
			Size:     len(data),
		})
	}

	// A precomputed classification is renormalized so the closed severity
	// and category vocabularies still hold.
	pre := args.Classification
	if pre != nil {
		pre.CrimeType = parser.NormalizeCrimeType(string(pre.CrimeType))
		pre.Severity = parser.NormalizeSeverity(string(pre.Severity))
	}

	resp, err := h.svc.SubmitReport(c.Request.Context(), report, firstMedia, pre)
	if err != nil {
		log.Errorf("Failed to submit report: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit report"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Verify handles POST /verify
func (h *Handlers) Verify(c *gin.Context) {
	var args models.VerifyArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if args.ReportSeq <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report_seq is required"})
		return
	}
	if args.VerifierID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "verifier_id is required"})
		return
	}
	if args.Decision == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decision must be true or false"})
		return
	}

	resp, err := h.svc.Verify(c.Request.Context(), &args)
	if err != nil {
		if err == database.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("report %d not found", args.ReportSeq)})
			return
		}
		log.Errorf("Failed to verify report %d: %v", args.ReportSeq, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify report"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListReports handles GET /reports
func (h *Handlers) ListReports(c *gin.Context) {
	var filter models.ListArgs
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	reports, err := h.svc.ListReports(&filter)
	if err != nil {
		log.Errorf("Failed to list reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// GetReport handles GET /reports/:seq
func (h *Handlers) GetReport(c *gin.Context) {
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seq must be an integer"})
		return
	}

	report, err := h.svc.GetReport(seq)
	if err != nil {
		if err == database.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("report %d not found", seq)})
			return
		}
		log.Errorf("Failed to get report %d: %v", seq, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get report"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ReanalyzeReport handles POST /reports/:seq/analyze
func (h *Handlers) ReanalyzeReport(c *gin.Context) {
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seq must be an integer"})
		return
	}

	report, err := h.svc.ReanalyzeReport(c.Request.Context(), seq)
	if err != nil {
		if err == database.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("report %d not found", seq)})
			return
		}
		log.Errorf("Failed to reanalyze report %d: %v", seq, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reanalyze report"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetStats handles GET /stats
func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := h.svc.DashboardStats()
	if err != nil {
		log.Errorf("Failed to get stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetMap handles POST /map
func (h *Handlers) GetMap(c *gin.Context) {
	var args models.MapArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	points, err := h.svc.MapPoints(args.ViewPort, args.Status)
	if err != nil {
		log.Errorf("Failed to get map points: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get map points"})
		return
	}

	aggr := mapaggr.New(&args.ViewPort, &args.Center)
	for _, p := range points {
		aggr.AddPoint(p.Lat, p.Lon)
	}

	c.JSON(http.StatusOK, gin.H{"results": aggr.ToArray()})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "crimewatch",
	})
}
