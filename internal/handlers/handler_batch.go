package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/apperrors"
	portssvc "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/services"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/dto"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/middleware"
	"github.com/gin-gonic/gin"
)

// batchHandler handles HTTP requests related to journal entry batches.
type batchHandler struct {
	batchService portssvc.BatchSvcFacade
}

// newBatchHandler creates a new batchHandler.
func newBatchHandler(batchService portssvc.BatchSvcFacade) *batchHandler {
	return &batchHandler{
		batchService: batchService,
	}
}

// createBatch godoc
// @Summary Submit a batch of journal entries
// @Description Validates every entry and creates a PENDING batch; if any entry is unbalanced the whole batch is rejected
// @Tags batches
// @Accept  json
// @Produce  json
// @Param   batch body dto.CreateBatchRequest true "Batch of entries"
// @Success 201 {object} dto.BatchResponse "The created batch"
// @Failure 400 {object} map[string]string "Invalid request or unbalanced entry"
// @Failure 500 {object} map[string]string "Failed to create batch"
// @Router /batches [post]
func (h *batchHandler) createBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	createReq := dto.CreateBatchRequest{}
	if err := c.ShouldBindJSON(&createReq); err != nil {
		logger.Error("Failed to bind JSON for CreateBatch", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	creator := middleware.GetActorFromContext(c)

	batch, err := h.batchService.CreateBatch(c.Request.Context(), createReq, creator)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error creating batch", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("Failed to create batch in service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
		return
	}

	logger.Info("Batch created successfully",
		slog.String("batch_id", batch.BatchID),
		slog.String("batch_number", batch.BatchNumber),
		slog.Int("item_count", batch.ItemCount),
	)
	c.JSON(http.StatusCreated, dto.ToBatchResponse(batch))
}

// getBatch godoc
// @Summary Get a batch by ID
// @Description Retrieves a batch with its items and their posting state
// @Tags batches
// @Produce  json
// @Param   batchID path string true "Batch ID"
// @Success 200 {object} dto.BatchResponse "The batch"
// @Failure 404 {object} map[string]string "Batch not found"
// @Failure 500 {object} map[string]string "Failed to retrieve batch"
// @Router /batches/{batchID} [get]
func (h *batchHandler) getBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	batchID := c.Param("batchID")

	batch, err := h.batchService.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Batch not found", slog.String("batch_id", batchID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
			return
		}
		logger.Error("Failed to get batch from service", slog.String("error", err.Error()), slog.String("batch_id", batchID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve batch"})
		return
	}

	c.JSON(http.StatusOK, dto.ToBatchResponse(batch))
}

// listBatches godoc
// @Summary List batches
// @Description Retrieves a page of batch summaries, most recent first
// @Tags batches
// @Produce  json
// @Param   limit query int false "Max batches to return (default 20)"
// @Param   nextToken query string false "Token from a previous page"
// @Success 200 {object} dto.ListBatchesResponse "Batches"
// @Failure 400 {object} map[string]string "Invalid pagination token"
// @Failure 500 {object} map[string]string "Failed to list batches"
// @Router /batches [get]
func (h *batchHandler) listBatches(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	var nextToken *string
	if token := c.Query("nextToken"); token != "" {
		nextToken = &token
	}

	batches, newToken, err := h.batchService.ListBatches(c.Request.Context(), limit, nextToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Invalid pagination token", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination token"})
			return
		}
		logger.Error("Failed to list batches from service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list batches"})
		return
	}

	c.JSON(http.StatusOK, dto.ListBatchesResponse{
		Batches:   dto.ToBatchResponses(batches),
		NextToken: newToken,
	})
}

// processBatch godoc
// @Summary Start processing a batch
// @Description Claims the batch for processing and posts its entries in the background; poll the batch for the outcome
// @Tags batches
// @Produce  json
// @Param   batchID path string true "Batch ID"
// @Success 202 {object} dto.BatchResponse "The batch in PROCESSING state"
// @Failure 404 {object} map[string]string "Batch not found"
// @Failure 409 {object} map[string]string "Batch is not in a processable state"
// @Failure 500 {object} map[string]string "Failed to start processing"
// @Router /batches/{batchID}/process [post]
func (h *batchHandler) processBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	batchID := c.Param("batchID")
	actor := middleware.GetActorFromContext(c)

	batch, err := h.batchService.ProcessBatch(c.Request.Context(), batchID, actor)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Batch not found for processing", slog.String("batch_id", batchID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		case errors.Is(err, apperrors.ErrConflict):
			logger.Warn("Batch not processable", slog.String("batch_id", batchID), slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to start batch processing", slog.String("error", err.Error()), slog.String("batch_id", batchID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start processing"})
		}
		return
	}

	logger.Info("Batch processing started", slog.String("batch_id", batchID))
	c.JSON(http.StatusAccepted, dto.ToBatchResponse(batch))
}

// cancelBatch godoc
// @Summary Cancel a batch
// @Description Cancels a batch that has not begun processing
// @Tags batches
// @Produce  json
// @Param   batchID path string true "Batch ID"
// @Success 200 {object} dto.BatchResponse "The cancelled batch"
// @Failure 404 {object} map[string]string "Batch not found"
// @Failure 409 {object} map[string]string "Batch can no longer be cancelled"
// @Failure 500 {object} map[string]string "Failed to cancel batch"
// @Router /batches/{batchID}/cancel [post]
func (h *batchHandler) cancelBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	batchID := c.Param("batchID")
	actor := middleware.GetActorFromContext(c)

	batch, err := h.batchService.CancelBatch(c.Request.Context(), batchID, actor)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Batch not found for cancellation", slog.String("batch_id", batchID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		case errors.Is(err, apperrors.ErrConflict):
			logger.Warn("Batch not cancellable", slog.String("batch_id", batchID), slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to cancel batch", slog.String("error", err.Error()), slog.String("batch_id", batchID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel batch"})
		}
		return
	}

	logger.Info("Batch cancelled", slog.String("batch_id", batchID))
	c.JSON(http.StatusOK, dto.ToBatchResponse(batch))
}

// registerBatchRoutes registers batch specific routes
func registerBatchRoutes(group *gin.RouterGroup, batchService portssvc.BatchSvcFacade) {
	h := newBatchHandler(batchService)

	batches := group.Group("/batches")
	{
		batches.POST("", h.createBatch)
		batches.GET("", h.listBatches)
		batches.GET("/:batchID", h.getBatch)
		batches.POST("/:batchID/process", h.processBatch)
		batches.POST("/:batchID/cancel", h.cancelBatch)
	}
}
