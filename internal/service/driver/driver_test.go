package driver

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"dispatch-console/internal/apiclient"
	"dispatch-console/internal/cache"
	"dispatch-console/internal/domain/driver"
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

// fakeAPI records calls and answers every request with reply
type fakeAPI struct {
	calls []call
	reply any
	err   error
}

func (f *fakeAPI) record(method, endpoint string, query url.Values, in, out any) error {
	f.calls = append(f.calls, call{method: method, endpoint: endpoint, query: query, body: in})
	if f.err != nil {
		return f.err
	}
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
	return f.record("GET", endpoint, query, nil, out)
}

func (f *fakeAPI) Post(_ context.Context, endpoint string, in, out any) error {
	return f.record("POST", endpoint, nil, in, out)
}

func (f *fakeAPI) Put(_ context.Context, endpoint string, in, out any) error {
	return f.record("PUT", endpoint, nil, in, out)
}

func (f *fakeAPI) Patch(_ context.Context, endpoint string, in, out any) error {
	return f.record("PATCH", endpoint, nil, in, out)
}

func (f *fakeAPI) Delete(_ context.Context, endpoint string, out any) error {
	return f.record("DELETE", endpoint, nil, nil, out)
}

func (f *fakeAPI) Upload(_ context.Context, endpoint string, files []apiclient.UploadFile, fields map[string]string, out any) error {
	return f.record("UPLOAD", endpoint, nil, fields, out)
}

func (f *fakeAPI) count(method string) int {
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(api *fakeAPI, clk *clock) *DriverService {
	c := cache.New(cache.NewMemoryBackend(), time.Minute, nil, cache.WithNowFunc(clk.now))
	return NewDriverService(api, c, nil)
}

func TestListDrivers_CachedUntilWrite(t *testing.T) {
	clk := &clock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	api := &fakeAPI{reply: driver.ListResponse{Drivers: []driver.Driver{{ID: "drv_1", FullName: "Amina"}}, Total: 1}}
	svc := newTestService(api, clk)
	ctx := context.Background()

	filters := driver.ListFilters{Status: "active", Page: 1}
	first, err := svc.ListDrivers(ctx, filters)
	require.NoError(t, err)
	second, err := svc.ListDrivers(ctx, filters)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, api.count("GET"))
	assert.Equal(t, "active", api.calls[0].query.Get("status"))

	// different filters are a different key
	_, err = svc.ListDrivers(ctx, driver.ListFilters{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("GET"))

	api.reply = driver.Driver{ID: "drv_1", Status: driver.StatusSuspended}
	_, err = svc.SuspendDriver(ctx, "drv_1", "complaints")
	require.NoError(t, err)

	api.reply = driver.ListResponse{Total: 1}
	_, err = svc.ListDrivers(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 3, api.count("GET"))
}

func TestGetDriver_ExpiresWithTTL(t *testing.T) {
	clk := &clock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	api := &fakeAPI{reply: driver.Driver{ID: "drv_1"}}
	svc := newTestService(api, clk)
	ctx := context.Background()

	_, err := svc.GetDriver(ctx, "drv_1")
	require.NoError(t, err)
	_, err = svc.GetDriver(ctx, "drv_1")
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("GET"))

	clk.t = clk.t.Add(2 * time.Minute)
	_, err = svc.GetDriver(ctx, "drv_1")
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("GET"))
}

func TestErrorsAreNotCached(t *testing.T) {
	clk := &clock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	api := &fakeAPI{err: xerrors.ErrNetwork}
	svc := newTestService(api, clk)

	_, err := svc.GetDriver(context.Background(), "drv_1")
	require.ErrorIs(t, err, xerrors.ErrNetwork)

	api.err = nil
	api.reply = driver.Driver{ID: "drv_1"}
	d, err := svc.GetDriver(context.Background(), "drv_1")
	require.NoError(t, err)
	assert.Equal(t, "drv_1", d.ID)
	assert.Equal(t, 2, api.count("GET"))
}

func TestValidationHappensBeforeDispatch(t *testing.T) {
	api := &fakeAPI{}
	svc := newTestService(api, &clock{t: time.Now()})
	ctx := context.Background()

	_, err := svc.GetDriver(ctx, "../admins")
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = svc.SuspendDriver(ctx, "drv_1", "")
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = svc.UploadDocument(ctx, "drv_1", "license", "license.exe", []byte("MZ"))
	assert.ErrorIs(t, err, xerrors.ErrFileType)

	_, err = svc.ListDrivers(ctx, driver.ListFilters{Status: "sleeping"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	assert.Empty(t, api.calls)
}

func TestUploadDocument(t *testing.T) {
	api := &fakeAPI{reply: driver.Document{Type: "license", FileName: "license.pdf"}}
	svc := newTestService(api, &clock{t: time.Now()})

	doc, err := svc.UploadDocument(context.Background(), "drv_1", "license", "license.pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, "license.pdf", doc.FileName)
	require.Len(t, api.calls, 1)
	assert.Equal(t, "/api/admin/drivers/drv_1/documents", api.calls[0].endpoint)
	assert.Equal(t, map[string]string{"type": "license"}, api.calls[0].body)
}
