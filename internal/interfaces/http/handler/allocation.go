package handler

import (
	"github.com/erp/settlement/internal/application/settlement"
	"github.com/gin-gonic/gin"
)

// AllocationHandler handles endpoints addressing a single allocation
type AllocationHandler struct {
	BaseHandler
	allocations *settlement.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocations *settlement.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocations: allocations}
}

// Cancel godoc
// @Summary      Cancel an allocation
// @Description  Restores the payment's unallocated and the document's unpaid amounts
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        id path string true "Allocation ID" format(uuid)
// @Param        request body ReasonRequest false "Reason"
// @Success      200 {object} dto.Response{data=settlement.AllocationResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /allocations/{id}/cancel [post]
func (h *AllocationHandler) Cancel(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "allocation")
	if !ok {
		return
	}
	var req ReasonRequest
	if !h.bindJSON(c, &req, true) {
		return
	}

	alloc, err := h.allocations.CancelAllocation(c.Request.Context(), companyID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, alloc)
}
