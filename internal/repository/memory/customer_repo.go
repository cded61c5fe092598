// internal/repository/memory/customer_repo.go
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dispatch-console/internal/domain/customer"
	xerrors "dispatch-console/internal/pkg/errors"
)

type CustomerRepository struct {
	db *DB
}

func NewCustomerRepository(db *DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create stores a new customer
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	now := r.db.Now()
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Status == "" {
		c.Status = customer.StatusActive
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return r.db.customers.insert(c.ID, c)
}

// FindByID retrieves a customer by ID
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*customer.Customer, error) {
	return r.db.customers.get(id)
}

// List retrieves customers matching the filters, newest first
func (r *CustomerRepository) List(ctx context.Context, f customer.CustomerListFilters) *customer.CustomerListResponse {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	rows := r.db.customers.list(func(c *customer.Customer) bool {
		if f.Status != "" && string(c.Status) != f.Status {
			return false
		}
		return search == "" || matches(search, c.FullName, c.Email, c.Phone)
	})
	items, p := paginate(rows, f.Page, f.PageSize)
	return &customer.CustomerListResponse{
		Customers:  items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}

// Update applies a partial profile update
func (r *CustomerRepository) Update(ctx context.Context, id string, req *customer.UpdateCustomerRequest) (*customer.Customer, error) {
	return r.db.customers.update(id, func(c *customer.Customer) error {
		if req.FullName != nil {
			c.FullName = *req.FullName
		}
		if req.Phone != nil {
			c.Phone = *req.Phone
		}
		if req.Email != nil {
			c.Email = *req.Email
		}
		c.UpdatedAt = r.db.Now()
		return nil
	})
}

// Block stops a customer from booking
func (r *CustomerRepository) Block(ctx context.Context, id, reason string) (*customer.Customer, error) {
	return r.db.customers.update(id, func(c *customer.Customer) error {
		if c.Status == customer.StatusBlocked {
			return fmt.Errorf("customer already blocked: %w", xerrors.ErrInvalidTransition)
		}
		c.Status = customer.StatusBlocked
		c.BlockReason = reason
		c.UpdatedAt = r.db.Now()
		return nil
	})
}

// Unblock restores a blocked customer
func (r *CustomerRepository) Unblock(ctx context.Context, id string) (*customer.Customer, error) {
	return r.db.customers.update(id, func(c *customer.Customer) error {
		if c.Status != customer.StatusBlocked {
			return fmt.Errorf("customer is not blocked: %w", xerrors.ErrInvalidTransition)
		}
		c.Status = customer.StatusActive
		c.BlockReason = ""
		c.UpdatedAt = r.db.Now()
		return nil
	})
}

// Delete removes a customer
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	return r.db.customers.delete(id)
}

// Stats summarises the customer base
func (r *CustomerRepository) Stats(ctx context.Context) *customer.CustomerStats {
	now := r.db.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return &customer.CustomerStats{
		TotalCustomers:   r.db.customers.count(nil),
		ActiveCustomers:  r.db.customers.count(func(c *customer.Customer) bool { return c.Status == customer.StatusActive }),
		BlockedCustomers: r.db.customers.count(func(c *customer.Customer) bool { return c.Status == customer.StatusBlocked }),
		NewThisMonth:     r.db.customers.count(func(c *customer.Customer) bool { return !c.CreatedAt.Before(monthStart) }),
	}
}
