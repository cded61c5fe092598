package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"dispatch-console/internal/apiclient"
	"dispatch-console/internal/domain/settings"
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

func TestUpdateSettings(t *testing.T) {
	api := &fakeAPI{reply: settings.Settings{SurgeMultiplier: 2.5, UpdatedBy: "adm_1"}}
	svc := NewSettingsService(api, nil)

	surge := 2.5
	req := &settings.UpdateSettingsRequest{SurgeMultiplier: &surge}
	got, err := svc.UpdateSettings(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.SurgeMultiplier)

	require.Len(t, api.calls, 1)
	assert.Equal(t, call{method: http.MethodPut, endpoint: "/api/admin/settings", body: req}, api.calls[0])
}

func TestGetSettings(t *testing.T) {
	api := &fakeAPI{reply: settings.Settings{BaseFare: 150, MaintenanceMode: true}}
	svc := NewSettingsService(api, nil)

	got, err := svc.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.0, got.BaseFare)
	assert.True(t, got.MaintenanceMode)
	assert.Equal(t, http.MethodGet, api.calls[0].method)
	assert.Equal(t, "/api/admin/settings", api.calls[0].endpoint)
}

func TestUpdateSettings_RejectedLocally(t *testing.T) {
	api := &fakeAPI{}
	svc := NewSettingsService(api, nil)
	ctx := context.Background()

	surge := 9.0
	_, err := svc.UpdateSettings(ctx, &settings.UpdateSettingsRequest{SurgeMultiplier: &surge})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	email := "support-at-example"
	_, err = svc.UpdateSettings(ctx, &settings.UpdateSettingsRequest{SupportEmail: &email})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	assert.Empty(t, api.calls)
}
