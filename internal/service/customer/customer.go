// internal/service/customer/customer.go
package customer

import (
	"context"

	"dispatch-console/internal/domain/booking"
	"dispatch-console/internal/domain/customer"
	"dispatch-console/internal/pkg/validation"
	"dispatch-console/internal/service"

	"go.uber.org/zap"
)

const customersPath = "/api/admin/customers"

type CustomerService struct {
	api    service.API
	logger *zap.Logger
}

func NewCustomerService(api service.API, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{
		api:    api,
		logger: logger,
	}
}

// ListCustomers retrieves customers with filters
func (s *CustomerService) ListCustomers(ctx context.Context, filters customer.CustomerListFilters) (*customer.CustomerListResponse, error) {
	if err := validation.Struct(filters); err != nil {
		return nil, err
	}

	var out customer.CustomerListResponse
	if err := s.api.Get(ctx, customersPath, filters.Query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCustomer retrieves a customer by ID
func (s *CustomerService) GetCustomer(ctx context.Context, id string) (*customer.Customer, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}

	var out customer.Customer
	if err := s.api.Get(ctx, customersPath+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCustomer applies a partial profile update
func (s *CustomerService) UpdateCustomer(ctx context.Context, id string, req *customer.UpdateCustomerRequest) (*customer.Customer, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var out customer.Customer
	if err := s.api.Put(ctx, customersPath+"/"+id, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BlockCustomer stops a customer from booking rides
func (s *CustomerService) BlockCustomer(ctx context.Context, id, reason string) (*customer.Customer, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	req := customer.BlockRequest{Reason: reason}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var out customer.Customer
	if err := s.api.Post(ctx, customersPath+"/"+id+"/block", req, &out); err != nil {
		return nil, err
	}
	s.logger.Info("customer blocked", zap.String("customer_id", id))
	return &out, nil
}

func (s *CustomerService) UnblockCustomer(ctx context.Context, id string) (*customer.Customer, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}

	var out customer.Customer
	if err := s.api.Post(ctx, customersPath+"/"+id+"/unblock", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CustomerService) DeleteCustomer(ctx context.Context, id string) error {
	if err := validation.ID(id); err != nil {
		return err
	}
	return s.api.Delete(ctx, customersPath+"/"+id, nil)
}

// GetCustomerBookings lists a customer's ride history
func (s *CustomerService) GetCustomerBookings(ctx context.Context, id string, filters booking.ListFilters) (*booking.ListResponse, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	if err := validation.Struct(filters); err != nil {
		return nil, err
	}

	var out booking.ListResponse
	if err := s.api.Get(ctx, customersPath+"/"+id+"/bookings", filters.Query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CustomerService) GetCustomerStats(ctx context.Context) (*customer.CustomerStats, error) {
	var out customer.CustomerStats
	if err := s.api.Get(ctx, customersPath+"/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
