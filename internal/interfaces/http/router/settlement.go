package router

import (
	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the settlement API handlers
type Handlers struct {
	Periods     *handler.PeriodHandler
	Documents   *handler.DocumentHandler
	Payments    *handler.PaymentHandler
	Allocations *handler.AllocationHandler
	Directory   *handler.DirectoryHandler
}

// SettlementGroups builds the settlement route groups. access guards every
// group; periodAdmin additionally guards period lock, unlock and close.
func SettlementGroups(h Handlers, access, periodAdmin gin.HandlerFunc) []*DomainGroup {
	periods := NewDomainGroup("periods", "/periods").Use(access)
	periods.GET("", h.Periods.List)
	periods.POST("", h.Periods.Ensure)
	periods.GET("/:year/:month", h.Periods.Get)
	periods.POST("/:year/:month/lock", periodAdmin, h.Periods.Lock)
	periods.POST("/:year/:month/unlock", periodAdmin, h.Periods.Unlock)
	periods.POST("/:year/:month/close", periodAdmin, h.Periods.Close)

	documents := NewDomainGroup("documents", "/documents").Use(access)
	documents.GET("", h.Documents.List)
	documents.POST("", h.Documents.Create)
	documents.GET("/:id", h.Documents.Get)
	documents.PUT("/:id", h.Documents.Update)
	documents.POST("/:id/post", h.Documents.Post)
	documents.POST("/:id/cancel", h.Documents.Cancel)
	documents.POST("/:id/reverse", h.Documents.Reverse)
	documents.GET("/:id/allocations", h.Documents.ListAllocations)
	documents.POST("/:id/allocations/cancel", h.Documents.CancelAllocations)

	payments := NewDomainGroup("payments", "/payments").Use(access)
	payments.GET("", h.Payments.List)
	payments.POST("", h.Payments.Create)
	payments.GET("/:id", h.Payments.Get)
	payments.PUT("/:id", h.Payments.Update)
	payments.POST("/:id/cancel", h.Payments.Cancel)
	payments.POST("/:id/reverse", h.Payments.Reverse)
	payments.POST("/:id/allocate", h.Payments.Allocate)
	payments.POST("/:id/auto-allocate", h.Payments.AutoAllocate)
	payments.POST("/:id/overpayment", h.Payments.Overpayment)
	payments.GET("/:id/allocations", h.Payments.ListAllocations)
	payments.POST("/:id/allocations/cancel", h.Payments.CancelAllocations)

	allocations := NewDomainGroup("allocations", "/allocations").Use(access)
	allocations.POST("/:id/cancel", h.Allocations.Cancel)

	parties := NewDomainGroup("parties", "/parties").Use(access)
	parties.GET("", h.Directory.ListParties)
	parties.POST("", h.Directory.CreateParty)
	parties.GET("/:party_id", h.Directory.GetParty)
	parties.GET("/:party_id/open-documents", h.Documents.OpenForParty)

	accounts := NewDomainGroup("accounts", "/accounts").Use(access)
	accounts.GET("", h.Directory.ListAccounts)
	accounts.POST("", h.Directory.CreateAccount)
	accounts.GET("/:id", h.Directory.GetAccount)

	return []*DomainGroup{periods, documents, payments, allocations, parties, accounts}
}
