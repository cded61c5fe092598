// internal/domain/driver/entity.go
package driver

import "time"

type Status string
type VerificationStatus string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusOnline    Status = "online"
	StatusOffline   Status = "offline"
	StatusSuspended Status = "suspended"

	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Driver is a fleet member as the backend reports it.
type Driver struct {
	ID                 string             `json:"id"`
	FullName           string             `json:"full_name"`
	Email              string             `json:"email"`
	Phone              string             `json:"phone"`
	Status             Status             `json:"status"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	Vehicle            *Vehicle           `json:"vehicle,omitempty"`
	Rating             float64            `json:"rating"`
	TotalTrips         int64              `json:"total_trips"`
	Location           *Location          `json:"location,omitempty"`
	Documents          []Document         `json:"documents,omitempty"`
	SuspensionReason   string             `json:"suspension_reason,omitempty"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Vehicle is the car registered to a driver
type Vehicle struct {
	Make        string `json:"make"`
	Model       string `json:"model"`
	Year        int    `json:"year"`
	Color       string `json:"color"`
	NumberPlate string `json:"number_plate"`
	Seats       int    `json:"seats,omitempty"`
}

// Location is a driver's last reported position
type Location struct {
	DriverID  string    `json:"driver_id,omitempty"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Heading   float64   `json:"heading,omitempty"`
	Speed     float64   `json:"speed,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is an uploaded verification document
type Document struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"` // license, insurance, registration, id
	FileName   string             `json:"file_name"`
	Size       int64              `json:"size"`
	Status     VerificationStatus `json:"status"`
	UploadedAt time.Time          `json:"uploaded_at"`
}

func (d *Driver) IsSuspended() bool {
	return d.Status == StatusSuspended
}
