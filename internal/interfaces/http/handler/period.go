package handler

import (
	"context"
	"strconv"
	"time"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PeriodHandler handles accounting period endpoints
type PeriodHandler struct {
	BaseHandler
	periods *appsettlement.PeriodService
}

// NewPeriodHandler creates a new PeriodHandler
func NewPeriodHandler(periods *appsettlement.PeriodService) *PeriodHandler {
	return &PeriodHandler{periods: periods}
}

// EnsurePeriodRequest names a date whose month should exist
type EnsurePeriodRequest struct {
	Date string `json:"date" binding:"required"`
}

// PeriodNotesRequest carries the optional notes of a lock or unlock
type PeriodNotesRequest struct {
	Notes string `json:"notes" binding:"max=1000"`
}

// List godoc
// @Summary      List accounting periods
// @Description  List the stored periods of a year; defaults to the current year
// @Tags         periods
// @Produce      json
// @Param        year query int false "Year"
// @Success      200 {object} dto.Response{data=[]appsettlement.PeriodResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /periods [get]
func (h *PeriodHandler) List(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	year := time.Now().UTC().Year()
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.BadRequest(c, "Invalid year")
			return
		}
		year = parsed
	}

	periods, err := h.periods.List(c.Request.Context(), companyID, year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, periods)
}

// Ensure godoc
// @Summary      Get or create the period of a date
// @Tags         periods
// @Accept       json
// @Produce      json
// @Param        request body EnsurePeriodRequest true "Date"
// @Success      200 {object} dto.Response{data=appsettlement.PeriodResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /periods [post]
func (h *PeriodHandler) Ensure(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	var req EnsurePeriodRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	period, err := h.periods.GetOrCreate(c.Request.Context(), companyID, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// Get godoc
// @Summary      Get an accounting period
// @Description  A month without a stored row is reported open
// @Tags         periods
// @Produce      json
// @Param        year path int true "Year"
// @Param        month path int true "Month (1-12)"
// @Success      200 {object} dto.Response{data=appsettlement.PeriodResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /periods/{year}/{month} [get]
func (h *PeriodHandler) Get(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	year, month, ok := h.pathYearMonth(c)
	if !ok {
		return
	}

	period, err := h.periods.Get(c.Request.Context(), companyID, year, month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// Lock godoc
// @Summary      Lock an accounting period
// @Tags         periods
// @Accept       json
// @Produce      json
// @Param        year path int true "Year"
// @Param        month path int true "Month (1-12)"
// @Param        request body PeriodNotesRequest false "Notes"
// @Success      200 {object} dto.Response{data=appsettlement.PeriodResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /periods/{year}/{month}/lock [post]
func (h *PeriodHandler) Lock(c *gin.Context) {
	h.transition(c, h.periods.Lock)
}

// Unlock godoc
// @Summary      Unlock an accounting period
// @Tags         periods
// @Accept       json
// @Produce      json
// @Param        year path int true "Year"
// @Param        month path int true "Month (1-12)"
// @Param        request body PeriodNotesRequest false "Notes"
// @Success      200 {object} dto.Response{data=appsettlement.PeriodResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /periods/{year}/{month}/unlock [post]
func (h *PeriodHandler) Unlock(c *gin.Context) {
	h.transition(c, h.periods.Unlock)
}

// Close godoc
// @Summary      Close an accounting period
// @Description  Closing is terminal; the period can no longer be unlocked
// @Tags         periods
// @Produce      json
// @Param        year path int true "Year"
// @Param        month path int true "Month (1-12)"
// @Success      200 {object} dto.Response{data=appsettlement.PeriodResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /periods/{year}/{month}/close [post]
func (h *PeriodHandler) Close(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	year, month, ok := h.pathYearMonth(c)
	if !ok {
		return
	}

	period, err := h.periods.Close(c.Request.Context(), companyID, year, month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

type periodTransition func(ctx context.Context, companyID uuid.UUID, year, month int, notes string) (*appsettlement.PeriodResponse, error)

func (h *PeriodHandler) transition(c *gin.Context, fn periodTransition) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	year, month, ok := h.pathYearMonth(c)
	if !ok {
		return
	}
	var req PeriodNotesRequest
	if !h.bindJSON(c, &req, true) {
		return
	}

	period, err := fn(c.Request.Context(), companyID, year, month, req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}
