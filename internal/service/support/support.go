// internal/service/support/support.go
package support

import (
	"context"

	"dispatch-console/internal/domain/support"
	"dispatch-console/internal/pkg/validation"
	"dispatch-console/internal/service"

	"go.uber.org/zap"
)

const ticketsPath = "/api/admin/support/tickets"

type SupportService struct {
	api    service.API
	logger *zap.Logger
}

func NewSupportService(api service.API, logger *zap.Logger) *SupportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupportService{
		api:    api,
		logger: logger,
	}
}

func (s *SupportService) ListTickets(ctx context.Context, filters support.ListFilters) (*support.ListResponse, error) {
	if err := validation.Struct(filters); err != nil {
		return nil, err
	}

	var out support.ListResponse
	if err := s.api.Get(ctx, ticketsPath, filters.Query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTicket retrieves a ticket with its conversation
func (s *SupportService) GetTicket(ctx context.Context, id string) (*support.Ticket, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}

	var out support.Ticket
	if err := s.api.Get(ctx, ticketsPath+"/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SupportService) Reply(ctx context.Context, id, message string) (*support.Message, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	req := support.ReplyRequest{Message: message}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var out support.Message
	if err := s.api.Post(ctx, ticketsPath+"/"+id+"/reply", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SupportService) UpdateStatus(ctx context.Context, id string, status support.Status) (*support.Ticket, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	req := support.UpdateStatusRequest{Status: status}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var out support.Ticket
	if err := s.api.Patch(ctx, ticketsPath+"/"+id+"/status", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SupportService) AssignTicket(ctx context.Context, id, adminID string) (*support.Ticket, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	if err := validation.ID(adminID); err != nil {
		return nil, err
	}

	var out support.Ticket
	if err := s.api.Post(ctx, ticketsPath+"/"+id+"/assign", support.AssignRequest{AdminID: adminID}, &out); err != nil {
		return nil, err
	}
	s.logger.Info("ticket assigned", zap.String("ticket_id", id), zap.String("admin_id", adminID))
	return &out, nil
}
