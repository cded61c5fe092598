// Package service holds the console's typed wrappers over the admin API.
package service

import (
	"context"
	"net/url"

	"dispatch-console/internal/apiclient"
)

// API is the slice of the authenticated REST client the services call.
// *apiclient.Client satisfies it.
type API interface {
	Get(ctx context.Context, endpoint string, query url.Values, out any) error
	Post(ctx context.Context, endpoint string, in, out any) error
	Put(ctx context.Context, endpoint string, in, out any) error
	Patch(ctx context.Context, endpoint string, in, out any) error
	Delete(ctx context.Context, endpoint string, out any) error
	Upload(ctx context.Context, endpoint string, files []apiclient.UploadFile, fields map[string]string, out any) error
}

var _ API = (*apiclient.Client)(nil)
