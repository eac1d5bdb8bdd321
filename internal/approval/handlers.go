package approval

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksred/watchdog/internal/record"
	"github.com/ksred/watchdog/pkg/response"
)

// GinHandlers contains HTTP handlers for the mutating dashboard actions
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for approval endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type approveRequest struct {
	Password string `json:"password" form:"password"`
}

type dropRequest struct {
	Ticket string `json:"ticket" form:"ticket"`
}

// SubmitOrderHandler handles POST requests from the new order form
func (h *GinHandlers) SubmitOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NewOrder
		if err := c.ShouldBind(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		result, err := h.service.SubmitOrder(req)
		respond(c, result, err)
	}
}

// ApproveHandler handles POST requests that add an approver's flag to a row.
// URL parameters: row (1-based), approver (p or r). The password may come
// from the form, a JSON body or the query string.
func (h *GinHandlers) ApproveHandler(w Workflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		row, ok := rowParam(c)
		if !ok {
			return
		}

		approver, err := record.ParseApprover(c.Param("approver"))
		if err != nil {
			response.BadRequest(c, "Unknown approver")
			return
		}

		// A missing password is not a binding error; the gate rejects it
		var req approveRequest
		_ = c.ShouldBind(&req)
		if req.Password == "" {
			req.Password = c.Query("password")
		}

		result, err := h.service.Approve(w, row, approver, req.Password)
		respond(c, result, err)
	}
}

// CancelOrderHandler handles DELETE requests on the orders queue
func (h *GinHandlers) CancelOrderHandler() gin.HandlerFunc {
	return h.removeHandler(h.service.CancelOrder)
}

// RemoveApprovedHandler handles DELETE requests on the approved queue
func (h *GinHandlers) RemoveApprovedHandler() gin.HandlerFunc {
	return h.removeHandler(h.service.RemoveApproved)
}

// RemoveModifiedHandler handles DELETE requests on the modified queue
func (h *GinHandlers) RemoveModifiedHandler() gin.HandlerFunc {
	return h.removeHandler(h.service.RemoveModified)
}

// RemoveToBeModifiedHandler handles DELETE requests on the to_be_modified queue
func (h *GinHandlers) RemoveToBeModifiedHandler() gin.HandlerFunc {
	return h.removeHandler(h.service.RemoveToBeModified)
}

func (h *GinHandlers) removeHandler(remove func(row int) (*Result, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		row, ok := rowParam(c)
		if !ok {
			return
		}
		result, err := remove(row)
		respond(c, result, err)
	}
}

// DropOrderHandler handles POST requests that queue a ticket for closing
func (h *GinHandlers) DropOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dropRequest
		if err := c.ShouldBind(&req); err != nil {
			response.BadRequest(c, "Ticket parameter required")
			return
		}

		result, err := h.service.DropOrder(req.Ticket)
		respond(c, result, err)
	}
}

// ModifyOrderHandler handles POST requests that queue a stop loss /
// take profit change for approval
func (h *GinHandlers) ModifyOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ModifyRequest
		if err := c.ShouldBind(&req); err != nil {
			response.BadRequest(c, "Ticket, stop loss, and take profit parameters required")
			return
		}

		result, err := h.service.ModifyOrder(req)
		respond(c, result, err)
	}
}

func rowParam(c *gin.Context) (int, bool) {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil {
		response.BadRequest(c, "Invalid row number")
		return 0, false
	}
	return row, true
}

func respond(c *gin.Context, result *Result, err error) {
	if err != nil {
		response.Handle(c, nil, err)
		return
	}
	response.OK(c, result.Message, result)
}
