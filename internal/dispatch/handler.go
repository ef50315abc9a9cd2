package dispatch

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relay/internal/logger"
	apperrors "relay/pkg/errors"
)

type Handler struct {
	service *Service
	logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/v1/dispatch", h.HandleAssetChange)
}

type assetChangeRequest struct {
	Type string `json:"type" binding:"required"`
	Data struct {
		Host string `json:"host" binding:"required"`
		Path string `json:"path" binding:"required"`
	} `json:"data" binding:"required"`
}

// HandleAssetChange accepts an inbound asset-change notification and runs the
// fan-out. The loop completing is a 200 regardless of individual per-tenant
// outcomes; only pre-loop failures surface as errors.
func (h *Handler) HandleAssetChange(c *gin.Context) {
	var req assetChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "missing required input",
			"error_code": apperrors.ErrValidation.Code,
			"details":    gin.H{"message": err.Error()},
		})
		return
	}

	result, err := h.service.Dispatch(c.Request.Context(), req.Type, req.Data.Host, req.Data.Path)
	if err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Dispatch failed",
			"error", err,
			"event_type", req.Type,
		)
		c.JSON(apperrors.ToHTTPStatus(err), apperrors.ToErrorResponse(err))
		return
	}

	if result.Status == StatusNoop {
		c.JSON(http.StatusOK, gin.H{
			"message": "asset change not eligible for sync",
			"status":  result.Status,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "dispatch completed",
		"status":         result.Status,
		"classification": result.Classification,
		"delivered":      result.DeliveredCount(),
		"outcomes":       result.Outcomes,
	})
}
