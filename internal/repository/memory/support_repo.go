// internal/repository/memory/support_repo.go
package memory

import (
	"context"
	"fmt"

	"dispatch-console/internal/domain/support"
	xerrors "dispatch-console/internal/pkg/errors"
)

type SupportRepository struct {
	db *DB
}

func NewSupportRepository(db *DB) *SupportRepository {
	return &SupportRepository{db: db}
}

// Create opens a new ticket
func (r *SupportRepository) Create(ctx context.Context, t *support.Ticket) error {
	now := r.db.Now()
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Status == "" {
		t.Status = support.StatusOpen
	}
	if t.Priority == "" {
		t.Priority = support.PriorityMedium
	}
	for i := range t.Messages {
		t.Messages[i].TicketID = t.ID
		if t.Messages[i].ID == "" {
			t.Messages[i].ID = newID()
		}
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return r.db.tickets.insert(t.ID, t)
}

// FindByID retrieves a ticket with its conversation
func (r *SupportRepository) FindByID(ctx context.Context, id string) (*support.Ticket, error) {
	return r.db.tickets.get(id)
}

// List retrieves tickets matching the filters, newest first. Listings omit
// the conversation.
func (r *SupportRepository) List(ctx context.Context, f support.ListFilters) *support.ListResponse {
	rows := r.db.tickets.list(func(t *support.Ticket) bool {
		if f.Status != "" && string(t.Status) != f.Status {
			return false
		}
		if f.Priority != "" && string(t.Priority) != f.Priority {
			return false
		}
		return f.AssignedTo == "" || t.AssignedTo == f.AssignedTo
	})
	items, p := paginate(rows, f.Page, f.PageSize)
	for i := range items {
		items[i].Messages = nil
	}
	return &support.ListResponse{
		Tickets:    items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}

// AddMessage appends a message to a ticket. An admin reply moves an open
// ticket to in_progress.
func (r *SupportRepository) AddMessage(ctx context.Context, ticketID, senderID, senderType, body string) (*support.Message, error) {
	var msg support.Message
	_, err := r.db.tickets.update(ticketID, func(t *support.Ticket) error {
		if t.Status == support.StatusClosed {
			return fmt.Errorf("ticket %s is closed: %w", ticketID, xerrors.ErrInvalidTransition)
		}
		now := r.db.Now()
		msg = support.Message{
			ID:         newID(),
			TicketID:   ticketID,
			SenderID:   senderID,
			SenderType: senderType,
			Body:       body,
			CreatedAt:  now,
		}
		t.Messages = append(t.Messages, msg)
		if senderType == "admin" && t.Status == support.StatusOpen {
			t.Status = support.StatusInProgress
		}
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateStatus sets a ticket's status. Closed tickets stay closed.
func (r *SupportRepository) UpdateStatus(ctx context.Context, id string, status support.Status) (*support.Ticket, error) {
	return r.db.tickets.update(id, func(t *support.Ticket) error {
		if t.Status == support.StatusClosed && status != support.StatusClosed {
			return fmt.Errorf("ticket %s is closed: %w", id, xerrors.ErrInvalidTransition)
		}
		t.Status = status
		t.UpdatedAt = r.db.Now()
		return nil
	})
}

// Assign hands a ticket to an admin
func (r *SupportRepository) Assign(ctx context.Context, id, adminID string) (*support.Ticket, error) {
	return r.db.tickets.update(id, func(t *support.Ticket) error {
		t.AssignedTo = adminID
		t.UpdatedAt = r.db.Now()
		return nil
	})
}

// CountOpen returns the number of tickets not yet resolved or closed
func (r *SupportRepository) CountOpen(ctx context.Context) int64 {
	return r.db.tickets.count(func(t *support.Ticket) bool {
		return t.Status == support.StatusOpen || t.Status == support.StatusInProgress
	})
}
