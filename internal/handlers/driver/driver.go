// internal/handlers/driver/driver.go
package driver

import (
	"errors"
	"net/http"
	"path/filepath"

	"dispatch-console/internal/domain/driver"
	wstypes "dispatch-console/internal/domain/websocket"
	xerrors "dispatch-console/internal/pkg/errors"
	"dispatch-console/internal/pkg/response"
	"dispatch-console/internal/pkg/validation"
	"dispatch-console/internal/repository/memory"
	ws "dispatch-console/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DriverHandler struct {
	drivers *memory.DriverRepository
	events  ws.Publisher
	logger  *zap.Logger
}

func NewDriverHandler(drivers *memory.DriverRepository, events ws.Publisher, logger *zap.Logger) *DriverHandler {
	return &DriverHandler{
		drivers: drivers,
		events:  events,
		logger:  logger,
	}
}

// ListDrivers retrieves drivers with filters
func (h *DriverHandler) ListDrivers(c *gin.Context) {
	var filters driver.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, err)
		return
	}

	result := h.drivers.List(c.Request.Context(), filters)
	response.Success(c, http.StatusOK, "drivers retrieved", result)
}

// GetDriver retrieves a driver by ID
func (h *DriverHandler) GetDriver(c *gin.Context) {
	result, err := h.drivers.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "driver retrieved", result)
}

// UpdateDriver applies a partial profile update
func (h *DriverHandler) UpdateDriver(c *gin.Context) {
	var req driver.UpdateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.drivers.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.publishStatus(result)
	response.Success(c, http.StatusOK, "driver updated", result)
}

// VerifyDriver approves or rejects a driver's documents
func (h *DriverHandler) VerifyDriver(c *gin.Context) {
	var req driver.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.drivers.Verify(c.Request.Context(), c.Param("id"), req.Approved)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.events.Publish(wstypes.EventTypeDriverVerified, result,
		wstypes.RoomDriver(result.ID), wstypes.RoomAdmins)
	response.Success(c, http.StatusOK, "driver verification recorded", result)
}

// SuspendDriver takes a driver off the platform
func (h *DriverHandler) SuspendDriver(c *gin.Context) {
	var req driver.SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.drivers.Suspend(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.logger.Info("driver suspended", zap.String("driver_id", result.ID), zap.String("reason", req.Reason))
	h.publishStatus(result)
	response.Success(c, http.StatusOK, "driver suspended", result)
}

// ActivateDriver lifts a suspension
func (h *DriverHandler) ActivateDriver(c *gin.Context) {
	result, err := h.drivers.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.publishStatus(result)
	response.Success(c, http.StatusOK, "driver activated", result)
}

// DeleteDriver removes a driver
func (h *DriverHandler) DeleteDriver(c *gin.Context) {
	if err := h.drivers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "driver deleted", nil)
}

// UploadDocument stores an uploaded verification document's metadata
func (h *DriverHandler) UploadDocument(c *gin.Context) {
	file, err := c.FormFile("document")
	if err != nil {
		response.ValidationError(c, errors.New("document file is required"))
		return
	}
	if err := validation.File(file.Filename, file.Size, validation.DocumentTypes); err != nil {
		if errors.Is(err, xerrors.ErrFileTooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error())
			return
		}
		response.ValidationError(c, err)
		return
	}

	docType := c.PostForm("type")
	if docType == "" {
		docType = "other"
	}

	doc, err := h.drivers.AddDocument(c.Request.Context(), c.Param("id"), driver.Document{
		Type:     docType,
		FileName: filepath.Base(file.Filename),
		Size:     file.Size,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "document uploaded", doc)
}

// GetLocations returns the live positions of online drivers
func (h *DriverHandler) GetLocations(c *gin.Context) {
	locations := h.drivers.Locations(c.Request.Context())
	response.Success(c, http.StatusOK, "driver locations retrieved", driver.LocationsResponse{Locations: locations})
}

// --- Helper functions ---

func (h *DriverHandler) publishStatus(d *driver.Driver) {
	h.events.Publish(wstypes.EventTypeDriverStatus, map[string]any{
		"driver_id": d.ID,
		"status":    d.Status,
	}, wstypes.RoomDriver(d.ID), wstypes.RoomAdmins)
}
