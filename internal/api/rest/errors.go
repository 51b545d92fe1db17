package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-flow/internal/api/shared/errors"
	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, apierrors.NewNotFoundError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, apierrors.NewValidationError(message))
}

// respondUnprocessable responds with an unprocessable entity error
func respondUnprocessable(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusUnprocessableEntity, apierrors.NewUnprocessableError(message, details...))
}

// respondUnavailable responds with a service unavailable error
func respondUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, apierrors.NewServiceUnavailableError(message))
}

// respondInternalError logs err and responds with an internal server error
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.ErrorCtx(c.Request.Context(), err, fields...)
	c.JSON(http.StatusInternalServerError, apierrors.NewInternalError(message))
}

// respondServiceError logs err and responds with a bad gateway error
func respondServiceError(c *gin.Context, err error, message string) {
	logger.ErrorCtx(c.Request.Context(), err)
	c.JSON(http.StatusBadGateway, apierrors.NewServiceError(message))
}

// respondStoreError maps repository sentinels to 404 and everything else to 500
func respondStoreError(c *gin.Context, err error, message string, fields ...zap.Field) {
	switch {
	case errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrAlertNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrRuleNotFound),
		errors.Is(err, domain.ErrTemplateNotFound):
		respondNotFound(c, err.Error())
	default:
		respondInternalError(c, err, message, fields...)
	}
}
