package support

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"dispatch-console/internal/apiclient"
	"dispatch-console/internal/domain/support"
	xerrors "dispatch-console/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method   string
	endpoint string
	query    url.Values
	body     any
}

type fakeAPI struct {
	calls []call
	reply any
}

func (f *fakeAPI) record(method, endpoint string, query url.Values, body, out any) error {
	f.calls = append(f.calls, call{method: method, endpoint: endpoint, query: query, body: body})
	if out == nil || f.reply == nil {
		return nil
	}
	raw, err := json.Marshal(f.reply)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeAPI) Get(_ context.Context, endpoint string, query url.Values, out any) error {
	return f.record(http.MethodGet, endpoint, query, nil, out)
}

func (f *fakeAPI) Post(_ context.Context, endpoint string, in, out any) error {
	return f.record(http.MethodPost, endpoint, nil, in, out)
}

func (f *fakeAPI) Put(_ context.Context, endpoint string, in, out any) error {
	return f.record(http.MethodPut, endpoint, nil, in, out)
}

func (f *fakeAPI) Patch(_ context.Context, endpoint string, in, out any) error {
	return f.record(http.MethodPatch, endpoint, nil, in, out)
}

func (f *fakeAPI) Delete(_ context.Context, endpoint string, out any) error {
	return f.record(http.MethodDelete, endpoint, nil, nil, out)
}

func (f *fakeAPI) Upload(context.Context, string, []apiclient.UploadFile, map[string]string, any) error {
	return nil
}

func TestListTickets_SendsFilters(t *testing.T) {
	api := &fakeAPI{reply: support.ListResponse{}}
	svc := NewSupportService(api, nil)

	_, err := svc.ListTickets(context.Background(), support.ListFilters{Status: "open", Priority: "urgent"})
	require.NoError(t, err)

	require.Len(t, api.calls, 1)
	assert.Equal(t, http.MethodGet, api.calls[0].method)
	assert.Equal(t, "/api/admin/support/tickets", api.calls[0].endpoint)
	assert.Equal(t, "open", api.calls[0].query.Get("status"))
	assert.Equal(t, "urgent", api.calls[0].query.Get("priority"))
}

func TestTicketActions(t *testing.T) {
	api := &fakeAPI{reply: support.Message{ID: "msg_1", TicketID: "tkt_1"}}
	svc := NewSupportService(api, nil)
	ctx := context.Background()

	msg, err := svc.Reply(ctx, "tkt_1", "refund issued")
	require.NoError(t, err)
	assert.Equal(t, "msg_1", msg.ID)

	api.reply = support.Ticket{ID: "tkt_1"}
	_, err = svc.UpdateStatus(ctx, "tkt_1", support.StatusResolved)
	require.NoError(t, err)
	_, err = svc.AssignTicket(ctx, "tkt_1", "adm_2")
	require.NoError(t, err)

	require.Len(t, api.calls, 3)
	assert.Equal(t, call{method: http.MethodPost, endpoint: "/api/admin/support/tickets/tkt_1/reply", body: support.ReplyRequest{Message: "refund issued"}}, api.calls[0])
	assert.Equal(t, call{method: http.MethodPatch, endpoint: "/api/admin/support/tickets/tkt_1/status", body: support.UpdateStatusRequest{Status: support.StatusResolved}}, api.calls[1])
	assert.Equal(t, call{method: http.MethodPost, endpoint: "/api/admin/support/tickets/tkt_1/assign", body: support.AssignRequest{AdminID: "adm_2"}}, api.calls[2])
}

func TestTicketActions_RejectedLocally(t *testing.T) {
	api := &fakeAPI{}
	svc := NewSupportService(api, nil)
	ctx := context.Background()

	_, err := svc.ListTickets(ctx, support.ListFilters{Priority: "whenever"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	_, err = svc.Reply(ctx, "tkt_1", "")
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	_, err = svc.UpdateStatus(ctx, "tkt_1", support.Status("archived"))
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	_, err = svc.AssignTicket(ctx, "tkt_1", "")
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	assert.Empty(t, api.calls)
}
