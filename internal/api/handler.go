package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"token-ledger-service/internal/apperr"
	"token-ledger-service/internal/auth"
	"token-ledger-service/internal/service"
	"token-ledger-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const actorKey = "actor"

// Handler contains HTTP handlers
type Handler struct {
	offeringService *service.OfferingService
	purchaseService *service.PurchaseService
	listingService  *service.ListingService
	identity        auth.IdentityProvider
}

// NewHandler creates a new HTTP handler
func NewHandler(
	offeringService *service.OfferingService,
	purchaseService *service.PurchaseService,
	listingService *service.ListingService,
	identity auth.IdentityProvider,
) *Handler {
	return &Handler{
		offeringService: offeringService,
		purchaseService: purchaseService,
		listingService:  listingService,
		identity:        identity,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(h.authMiddleware())
	{
		v1.POST("/offerings", h.createOffering)
		v1.GET("/offerings", h.listOfferings)
		v1.GET("/offerings/:id", h.getOffering)
		v1.PATCH("/offerings/:id/status", h.updateOfferingStatus)

		v1.POST("/requests", h.submitRequest)
		v1.GET("/requests", h.listMyRequests)
		v1.GET("/requests/:id", h.getRequest)
		v1.POST("/requests/:id/approve", h.approveRequest)
		v1.POST("/requests/:id/reject", h.rejectRequest)
		v1.POST("/requests/:id/payment-proof", h.submitPaymentProof)
		v1.POST("/requests/:id/confirm-payment", h.confirmPayment)
		v1.POST("/requests/:id/assign", h.assignTokens)
		v1.POST("/requests/:id/complete", h.completeRequest)
		v1.POST("/requests/:id/cancel", h.cancelRequest)

		v1.GET("/investments", h.listMyInvestments)

		v1.POST("/listings", h.createListing)
		v1.GET("/listings", h.listActiveListings)
		v1.GET("/listings/:id", h.getListing)
		v1.PATCH("/listings/:id", h.updateListing)
		v1.POST("/listings/:id/cancel", h.cancelListing)
		v1.POST("/listings/:id/purchase", h.purchaseFromListing)
	}
}

// authMiddleware resolves the bearer credential to an explicit actor.
// Handlers pass the actor into every engine call; the engine never sees
// the request.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   string(apperr.KindAuthentication),
				"message": "missing bearer token",
			})
			return
		}

		actor, err := h.identity.Authenticate(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func getActor(c *gin.Context) *auth.Actor {
	return c.MustGet(actorKey).(*auth.Actor)
}

// respondError maps the error taxonomy onto HTTP statuses. Every rejected
// operation returns the category plus a human-readable message.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindAuthorization:
		status = http.StatusForbidden
	case apperr.KindAuthentication:
		status = http.StatusUnauthorized
	case apperr.KindState:
		status = http.StatusUnprocessableEntity
	case apperr.KindTransaction:
		status = http.StatusConflict
	}

	if kind == "" {
		c.JSON(status, gin.H{
			"error":   "internal_error",
			"message": "operation failed",
		})
		return
	}

	c.JSON(status, gin.H{
		"error":   string(kind),
		"message": err.Error(),
	})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(apperr.KindValidation),
			"message": "invalid id",
		})
		return 0, false
	}
	return id, true
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) createOffering(c *gin.Context) {
	var req service.CreateOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(apperr.KindValidation),
			"message": err.Error(),
		})
		return
	}

	offering, err := h.offeringService.CreateOffering(c.Request.Context(), getActor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, offering)
}

func (h *Handler) listOfferings(c *gin.Context) {
	offerings, err := h.offeringService.ListOfferings(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offerings": offerings})
}

func (h *Handler) getOffering(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	offering, err := h.offeringService.GetOffering(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offering)
}

func (h *Handler) updateOfferingStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(apperr.KindValidation),
			"message": err.Error(),
		})
		return
	}

	offering, err := h.offeringService.UpdateOfferingStatus(c.Request.Context(), getActor(c), id, body.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offering)
}

func (h *Handler) submitRequest(c *gin.Context) {
	var input service.SubmitRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(apperr.KindValidation),
			"message": err.Error(),
		})
		return
	}

	request, err := h.purchaseService.SubmitRequest(c.Request.Context(), getActor(c), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (h *Handler) listMyRequests(c *gin.Context) {
	requests, err := h.purchaseService.GetRequestsByBuyer(c.Request.Context(), getActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *Handler) getRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	request, err := h.purchaseService.GetRequest(c.Request.Context(), getActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *Handler) approveRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	request, err := h.purchaseService.ApproveRequest(c.Request.Context(), getActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *Handler) rejectRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	request, err := h.purchaseService.RejectRequest(c.Request.Context(), getActor(c), id, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *Handler) submitPaymentProof(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var body struct {
		PaymentProof string `json:"paymentProof" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(apperr.KindValidation),
			"message": err.Error(),
		})
		return
	}

	request, err := h.purchaseService.SubmitPaymentProof(c.Request.Context(), getActor(c), id, body.PaymentProof)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *Handler) confirmPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	request, err := h.purchaseService.ConfirmPayment(c.Request.Context(), getActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *Handler) assignTokens(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var body struct {
		Tokens int `json:"tokens"`
	}
	_ = c.ShouldBindJSON(&body)

	request, err := h.purchaseService.AssignTokens(c.Request.Context(), getActor(c), id, body.Tokens)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *Handler) completeRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	request, err := h.purchaseService.CompleteRequest(c.Request.Context(), getActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *Handler) cancelRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	request, err := h.purchaseService.CancelRequest(c.Request.Context(), getActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *Handler) listMyInvestments(c *gin.Context) {
	investments, err := h.listingService.GetInvestmentsByBuyer(c.Request.Context(), getActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investments": investments})
}

func (h *Handler) createListing(c *gin.Context) {
	var input service.CreateListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(apperr.KindValidation),
			"message": err.Error(),
		})
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), getActor(c), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h *Handler) listActiveListings(c *gin.Context) {
	var offeringID int64
	if v := c.Query("offeringId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   string(apperr.KindValidation),
				"message": "invalid offeringId",
			})
			return
		}
		offeringID = id
	}

	listings, err := h.listingService.ListActiveListings(c.Request.Context(), offeringID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

func (h *Handler) getListing(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	listing, err := h.listingService.GetListing(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) updateListing(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var input service.UpdateListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(apperr.KindValidation),
			"message": err.Error(),
		})
		return
	}

	listing, err := h.listingService.UpdateListing(c.Request.Context(), getActor(c), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) cancelListing(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	listing, err := h.listingService.CancelListing(c.Request.Context(), getActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) purchaseFromListing(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var body struct {
		TokensToPurchase int `json:"tokensToPurchase"`
	}
	_ = c.ShouldBindJSON(&body)

	listing, err := h.listingService.PurchaseFromListing(c.Request.Context(), getActor(c), id, body.TokensToPurchase)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
