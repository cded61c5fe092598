// internal/service/driver/driver.go
package driver

import (
	"context"

	"dispatch-console/internal/apiclient"
	"dispatch-console/internal/cache"
	"dispatch-console/internal/domain/driver"
	"dispatch-console/internal/pkg/validation"
	"dispatch-console/internal/service"

	"go.uber.org/zap"
)

const driversPath = "/api/admin/drivers"

// DriverService manages the fleet. Reads go through a TTL cache that every
// write clears.
type DriverService struct {
	api    service.API
	cache  *cache.Cache
	logger *zap.Logger
}

func NewDriverService(api service.API, c *cache.Cache, logger *zap.Logger) *DriverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.New(cache.NewMemoryBackend(), 0, logger)
	}
	return &DriverService{
		api:    api,
		cache:  c,
		logger: logger,
	}
}

// ListDrivers retrieves drivers with filters
func (s *DriverService) ListDrivers(ctx context.Context, filters driver.ListFilters) (*driver.ListResponse, error) {
	if err := validation.Struct(filters); err != nil {
		return nil, err
	}

	q := filters.Query()
	result, err := cache.Remember(ctx, s.cache, cache.Key(driversPath, q), func(ctx context.Context) (driver.ListResponse, error) {
		var out driver.ListResponse
		err := s.api.Get(ctx, driversPath, q, &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetDriver retrieves a driver by ID
func (s *DriverService) GetDriver(ctx context.Context, id string) (*driver.Driver, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}

	endpoint := driversPath + "/" + id
	result, err := cache.Remember(ctx, s.cache, endpoint, func(ctx context.Context) (driver.Driver, error) {
		var out driver.Driver
		err := s.api.Get(ctx, endpoint, nil, &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateDriver applies a partial profile update
func (s *DriverService) UpdateDriver(ctx context.Context, id string, req *driver.UpdateDriverRequest) (*driver.Driver, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var out driver.Driver
	if err := s.api.Put(ctx, driversPath+"/"+id, req, &out); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &out, nil
}

// VerifyDriver approves or rejects a driver's documents
func (s *DriverService) VerifyDriver(ctx context.Context, id string, req driver.VerifyRequest) (*driver.Driver, error) {
	return s.write(ctx, id, "/verify", req)
}

// SuspendDriver takes a driver off the platform
func (s *DriverService) SuspendDriver(ctx context.Context, id, reason string) (*driver.Driver, error) {
	req := driver.SuspendRequest{Reason: reason}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.write(ctx, id, "/suspend", req)
}

// ActivateDriver lifts a suspension
func (s *DriverService) ActivateDriver(ctx context.Context, id string) (*driver.Driver, error) {
	return s.write(ctx, id, "/activate", nil)
}

func (s *DriverService) DeleteDriver(ctx context.Context, id string) error {
	if err := validation.ID(id); err != nil {
		return err
	}
	if err := s.api.Delete(ctx, driversPath+"/"+id, nil); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("driver deleted", zap.String("driver_id", id))
	return nil
}

// UploadDocument attaches a document file to a driver
func (s *DriverService) UploadDocument(ctx context.Context, id, docType, name string, data []byte) (*driver.Document, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}
	if err := validation.File(name, int64(len(data)), validation.DocumentTypes); err != nil {
		return nil, err
	}

	var out driver.Document
	files := []apiclient.UploadFile{{Field: "document", Name: name, Data: data}}
	if err := s.api.Upload(ctx, driversPath+"/"+id+"/documents", files, map[string]string{"type": docType}, &out); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &out, nil
}

// GetLocations returns live positions. Never cached.
func (s *DriverService) GetLocations(ctx context.Context) ([]driver.Location, error) {
	var out driver.LocationsResponse
	if err := s.api.Get(ctx, driversPath+"/locations", nil, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

// --- Helper functions ---

func (s *DriverService) write(ctx context.Context, id, action string, body any) (*driver.Driver, error) {
	if err := validation.ID(id); err != nil {
		return nil, err
	}

	var out driver.Driver
	if err := s.api.Post(ctx, driversPath+"/"+id+action, body, &out); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.logger.Debug("driver updated", zap.String("driver_id", id), zap.String("action", action))
	return &out, nil
}

func (s *DriverService) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, driversPath)
}
