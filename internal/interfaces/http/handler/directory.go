package handler

import (
	"github.com/erp/settlement/internal/application/settlement"
	"github.com/gin-gonic/gin"
)

// DirectoryHandler handles party and account endpoints
type DirectoryHandler struct {
	BaseHandler
	directory *settlement.DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler
func NewDirectoryHandler(directory *settlement.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

// CreatePartyRequest is the body of POST /parties
type CreatePartyRequest struct {
	Code string `json:"code" binding:"max=50"`
	Name string `json:"name" binding:"required,max=200"`
	Type string `json:"type" binding:"required,oneof=customer supplier employee other"`
}

// CreateAccountRequest is the body of POST /accounts
type CreateAccountRequest struct {
	Kind          string `json:"kind" binding:"required,oneof=cashbox bank"`
	Code          string `json:"code" binding:"max=50"`
	Name          string `json:"name" binding:"required,max=200"`
	BankName      string `json:"bank_name" binding:"max=200"`
	AccountNumber string `json:"account_number" binding:"max=100"`
	Currency      string `json:"currency" binding:"omitempty,len=3"`
}

// CreateParty godoc
// @Summary      Create a party
// @Tags         parties
// @Accept       json
// @Produce      json
// @Param        request body CreatePartyRequest true "Party"
// @Success      201 {object} dto.Response{data=settlement.PartyResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parties [post]
func (h *DirectoryHandler) CreateParty(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	var req CreatePartyRequest
	if !h.bindJSON(c, &req, false) {
		return
	}

	party, err := h.directory.CreateParty(c.Request.Context(), settlement.CreatePartyInput{
		CompanyID: companyID,
		Code:      req.Code,
		Name:      req.Name,
		Type:      req.Type,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, party)
}

// ListParties godoc
// @Summary      List parties
// @Tags         parties
// @Produce      json
// @Success      200 {object} dto.Response{data=[]settlement.PartyResponse}
// @Security     BearerAuth
// @Router       /parties [get]
func (h *DirectoryHandler) ListParties(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}

	parties, err := h.directory.ListParties(c.Request.Context(), companyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, parties)
}

// GetParty godoc
// @Summary      Get a party
// @Tags         parties
// @Produce      json
// @Param        party_id path string true "Party ID" format(uuid)
// @Success      200 {object} dto.Response{data=settlement.PartyResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /parties/{party_id} [get]
func (h *DirectoryHandler) GetParty(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "party_id", "party")
	if !ok {
		return
	}

	party, err := h.directory.GetParty(c.Request.Context(), companyID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, party)
}

// CreateAccount godoc
// @Summary      Create a cashbox or bank account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body CreateAccountRequest true "Account"
// @Success      201 {object} dto.Response{data=settlement.AccountResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts [post]
func (h *DirectoryHandler) CreateAccount(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	var req CreateAccountRequest
	if !h.bindJSON(c, &req, false) {
		return
	}

	account, err := h.directory.CreateAccount(c.Request.Context(), settlement.CreateAccountInput{
		CompanyID:     companyID,
		Kind:          req.Kind,
		Code:          req.Code,
		Name:          req.Name,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		Currency:      req.Currency,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// ListAccounts godoc
// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Param        kind query string false "cashbox or bank"
// @Success      200 {object} dto.Response{data=[]settlement.AccountResponse}
// @Security     BearerAuth
// @Router       /accounts [get]
func (h *DirectoryHandler) ListAccounts(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	kind := c.Query("kind")
	if kind != "" && kind != "cashbox" && kind != "bank" {
		h.BadRequest(c, "kind must be cashbox or bank")
		return
	}

	accounts, err := h.directory.ListAccounts(c.Request.Context(), companyID, kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// GetAccount godoc
// @Summary      Get an account
// @Description  Cashboxes report their current balance
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} dto.Response{data=settlement.AccountResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id} [get]
func (h *DirectoryHandler) GetAccount(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id", "account")
	if !ok {
		return
	}

	account, err := h.directory.GetAccount(c.Request.Context(), companyID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}
