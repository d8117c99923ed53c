// Package handler exposes the settlement engine over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// companyID returns the company resolved by the Company middleware.
// It writes a 400 and returns false when there is none.
func (h *BaseHandler) companyID(c *gin.Context) (uuid.UUID, bool) {
	id := middleware.GetCompanyID(c)
	if id == uuid.Nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeCompany, "Company context is required")
		return uuid.Nil, false
	}
	return id, true
}

// pathUUID parses a path parameter, writing a 400 on failure
func (h *BaseHandler) pathUUID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+label+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

// pathYearMonth parses :year and :month, writing a 400 on failure.
// Range checks are left to the domain.
func (h *BaseHandler) pathYearMonth(c *gin.Context) (int, int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		h.BadRequest(c, "Invalid year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		h.BadRequest(c, "Invalid month")
		return 0, 0, false
	}
	return year, month, true
}

// bindJSON binds the body, writing a 400 with field details on failure.
// An empty body is accepted when optional is set.
func (h *BaseHandler) bindJSON(c *gin.Context, req any, optional bool) bool {
	if optional && c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, "", message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError converts domain errors to HTTP responses. Anything that is not a
// DomainError is logged and reported as a 500 without its message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		c.JSON(dto.StatusForKind(domainErr.Kind),
			dto.NewErrorResponseWithRequestID(domainErr.Code, string(domainErr.Kind), domainErr.Message, requestID))
		return
	}

	logger.L(c.Request.Context()).Error("unhandled error", zap.Error(err), zap.String("path", c.FullPath()))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"",
		"An unexpected error occurred",
		requestID,
	))
}
