// internal/handlers/customer/customer.go
package customer

import (
	"net/http"

	"dispatch-console/internal/domain/booking"
	"dispatch-console/internal/domain/customer"
	"dispatch-console/internal/pkg/response"
	"dispatch-console/internal/repository/memory"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	customers *memory.CustomerRepository
	bookings  *memory.BookingRepository
	logger    *zap.Logger
}

func NewCustomerHandler(customers *memory.CustomerRepository, bookings *memory.BookingRepository, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
		bookings:  bookings,
		logger:    logger,
	}
}

// ListCustomers retrieves customers with filters
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	var filters customer.CustomerListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, err)
		return
	}

	result := h.customers.List(c.Request.Context(), filters)
	response.Success(c, http.StatusOK, "customers retrieved", result)
}

// GetCustomer retrieves a customer by ID
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	result, err := h.customers.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "customer retrieved", result)
}

// UpdateCustomer applies a partial profile update
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	var req customer.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.customers.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "customer updated successfully", result)
}

// BlockCustomer stops a customer from booking
func (h *CustomerHandler) BlockCustomer(c *gin.Context) {
	var req customer.BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.customers.Block(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.logger.Info("customer blocked", zap.String("customer_id", result.ID), zap.String("reason", req.Reason))
	response.Success(c, http.StatusOK, "customer blocked", result)
}

// UnblockCustomer restores a blocked customer
func (h *CustomerHandler) UnblockCustomer(c *gin.Context) {
	result, err := h.customers.Unblock(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "customer unblocked", result)
}

// DeleteCustomer removes a customer
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	if err := h.customers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "customer deleted successfully", nil)
}

// GetCustomerBookings lists a customer's bookings
func (h *CustomerHandler) GetCustomerBookings(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.customers.FindByID(ctx, id); err != nil {
		response.FromError(c, err)
		return
	}

	var filters booking.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, err)
		return
	}
	filters.CustomerID = id

	result := h.bookings.List(ctx, filters)
	response.Success(c, http.StatusOK, "customer bookings retrieved", result)
}

// GetCustomerStats summarises the customer base
func (h *CustomerHandler) GetCustomerStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "customer stats retrieved", h.customers.Stats(c.Request.Context()))
}
