// internal/domain/support/entity.go
package support

import "time"

type Status string
type Priority string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"

	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Ticket struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Status        Status    `json:"status"`
	Priority      Priority  `json:"priority"`
	RequesterID   string    `json:"requester_id"`
	RequesterType string    `json:"requester_type"` // driver, customer
	AssignedTo    string    `json:"assigned_to,omitempty"`
	Messages      []Message `json:"messages,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Message is one line in a ticket conversation
type Message struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	SenderID   string    `json:"sender_id"`
	SenderType string    `json:"sender_type"` // admin, driver, customer
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
