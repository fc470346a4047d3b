package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/application/service"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/report"
)

// maxStatementPages bounds how many review pages one statement includes
const maxStatementPages = 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	providerService service.ProviderService
	reviewService   service.ReviewService
	logger          Logger
	now             func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(providerService service.ProviderService, reviewService service.ReviewService, logger Logger) *Handlers {
	return &Handlers{
		providerService: providerService,
		reviewService:   reviewService,
		logger:          logger,
		now:             time.Now,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SetActiveRequest is the body of PUT /api/providers/:id/active
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SubmitReviewRequest is the body of POST /api/providers/:id/reviews
type SubmitReviewRequest struct {
	RaterID string `json:"rater_id" binding:"required"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ReviewPage is one page of reviews
type ReviewPage struct {
	Page    int              `json:"page"`
	Reviews []*entity.Review `json:"reviews"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: h.now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// ListProviders handles GET /api/providers[?capability=]
func (h *Handlers) ListProviders(c *gin.Context) {
	capability := entity.Capability(c.Query("capability"))
	if capability != "" && !capability.IsValid() {
		h.fail(c, http.StatusBadRequest, "unknown capability")
		return
	}

	providers, err := h.providerService.ListActiveProviders(c.Request.Context(), capability)
	if err != nil {
		h.serviceError(c, "Failed to list providers", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: providers})
}

// GetProvider handles GET /api/providers/:id
func (h *Handlers) GetProvider(c *gin.Context) {
	p, ok := h.loadProvider(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: p})
}

// RegisterProvider handles POST /api/providers
func (h *Handlers) RegisterProvider(c *gin.Context) {
	var input port.ProviderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.providerService.RegisterProvider(c.Request.Context(), input)
	if err != nil {
		h.serviceError(c, "Failed to register provider", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: p})
}

// UpdateProvider handles PATCH /api/providers/:id
func (h *Handlers) UpdateProvider(c *gin.Context) {
	var patch port.ProviderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.providerService.UpdateProvider(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.serviceError(c, "Failed to update provider", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: p})
}

// SetActive handles PUT /api/providers/:id/active
func (h *Handlers) SetActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "body must be {\"active\": true|false}")
		return
	}

	id := c.Param("id")
	if err := h.providerService.SetProviderActive(c.Request.Context(), id, *req.Active); err != nil {
		h.serviceError(c, "Failed to set provider availability", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"id": id, "active": *req.Active}})
}

// GetStats handles GET /api/providers/:id/stats
func (h *Handlers) GetStats(c *gin.Context) {
	if _, ok := h.loadProvider(c); !ok {
		return
	}

	stats, err := h.providerService.GetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, "Failed to load stats", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// GetRating handles GET /api/providers/:id/rating
func (h *Handlers) GetRating(c *gin.Context) {
	summary, err := h.reviewService.GetAverageRating(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, "Failed to load rating", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// ListReviews handles GET /api/providers/:id/reviews?page=
func (h *Handlers) ListReviews(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.fail(c, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}

	reviews, err := h.reviewService.GetReviews(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		h.serviceError(c, "Failed to list reviews", err)
		return
	}
	if reviews == nil {
		reviews = []*entity.Review{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ReviewPage{Page: page, Reviews: reviews}})
}

// SubmitReview handles POST /api/providers/:id/reviews
func (h *Handlers) SubmitReview(c *gin.Context) {
	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	review, err := h.reviewService.SubmitReview(c.Request.Context(), c.Param("id"), req.RaterID, req.Rating, req.Comment)
	if err != nil {
		h.serviceError(c, "Failed to submit review", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: review})
}

// DownloadStatement handles GET /api/providers/:id/statement.xlsx
func (h *Handlers) DownloadStatement(c *gin.Context) {
	p, ok := h.loadProvider(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	stats, err := h.providerService.GetStats(ctx, p.ID)
	if err != nil {
		h.serviceError(c, "Failed to load stats", err)
		return
	}
	rating, err := h.reviewService.GetAverageRating(ctx, p.ID)
	if err != nil {
		h.serviceError(c, "Failed to load rating", err)
		return
	}

	var reviews []*entity.Review
	for page := 1; page <= maxStatementPages; page++ {
		batch, err := h.reviewService.GetReviews(ctx, p.ID, page)
		if err != nil {
			h.serviceError(c, "Failed to list reviews", err)
			return
		}
		if len(batch) == 0 {
			break
		}
		reviews = append(reviews, batch...)
	}

	var buf bytes.Buffer
	err = report.WriteStatement(&buf, report.StatementData{
		Provider:    p,
		Stats:       stats,
		Rating:      rating,
		Reviews:     reviews,
		GeneratedAt: h.now(),
	})
	if err != nil {
		h.serviceError(c, "Failed to build statement", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.xlsx"`, p.ID))
	c.Data(http.StatusOK, report.ContentType, buf.Bytes())
}

// loadProvider writes a 404 and returns false when the provider is unknown
func (h *Handlers) loadProvider(c *gin.Context) (*entity.Provider, bool) {
	p, err := h.providerService.GetProvider(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, "Failed to load provider", err)
		return nil, false
	}
	if p == nil {
		h.fail(c, http.StatusNotFound, "provider not found")
		return nil, false
	}
	return p, true
}

// serviceError maps service errors to status codes
func (h *Handlers) serviceError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrProviderNotFound):
		h.fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidProvider),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidReview):
		h.fail(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)
		h.fail(c, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handlers) fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Success: false, Error: msg})
}
