// internal/repository/memory/seed.go
package memory

import (
	"context"
	"fmt"
	"time"

	"dispatch-console/internal/domain/admin"
	"dispatch-console/internal/domain/booking"
	"dispatch-console/internal/domain/customer"
	"dispatch-console/internal/domain/driver"
	"dispatch-console/internal/domain/emergency"
	"dispatch-console/internal/domain/support"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes an admin password for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SeedAdmin creates the super admin the console signs in with
func SeedAdmin(ctx context.Context, db *DB, req admin.CreateAdminRequest) (*admin.Admin, error) {
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = admin.RoleSuperAdmin
	}
	a := &admin.Admin{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Role:         role,
		Permissions:  append([]string(nil), admin.DefaultPermissions...),
	}
	if err := NewAdminRepository(db).Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SeedFixtures loads a small fleet so the console has something to show
func SeedFixtures(ctx context.Context, db *DB) error {
	drivers := NewDriverRepository(db)
	customers := NewCustomerRepository(db)
	bookings := NewBookingRepository(db)
	alerts := NewEmergencyRepository(db)
	tickets := NewSupportRepository(db)

	now := db.Now()

	fleet := []*driver.Driver{
		{FullName: "Amina Wanjiru", Email: "amina@example.com", Phone: "+254711000001", Rating: 4.8, TotalTrips: 312,
			Vehicle: &driver.Vehicle{Make: "Toyota", Model: "Axio", Year: 2017, Color: "Silver", NumberPlate: "KDA 123A", Seats: 4}},
		{FullName: "Brian Otieno", Email: "brian@example.com", Phone: "+254711000002", Rating: 4.5, TotalTrips: 128,
			Vehicle: &driver.Vehicle{Make: "Mazda", Model: "Demio", Year: 2015, Color: "Blue", NumberPlate: "KCZ 456B", Seats: 4}},
		{FullName: "Cynthia Mutua", Email: "cynthia@example.com", Phone: "+254711000003"},
	}
	for _, d := range fleet {
		if err := drivers.Create(ctx, d); err != nil {
			return fmt.Errorf("seed driver: %w", err)
		}
	}
	for _, d := range fleet[:2] {
		if _, err := drivers.Verify(ctx, d.ID, true); err != nil {
			return fmt.Errorf("seed driver: %w", err)
		}
	}
	if _, err := db.drivers.update(fleet[0].ID, func(d *driver.Driver) error {
		d.Status = driver.StatusOnline
		d.Location = &driver.Location{Lat: -1.2864, Lng: 36.8172, Heading: 90, Speed: 32, UpdatedAt: now}
		return nil
	}); err != nil {
		return fmt.Errorf("seed driver: %w", err)
	}

	riders := []*customer.Customer{
		{FullName: "David Kamau", Email: "david@example.com", Phone: "+254722000001", Rating: 4.9},
		{FullName: "Esther Njeri", Email: "esther@example.com", Phone: "+254722000002", Rating: 4.7},
	}
	for _, c := range riders {
		if err := customers.Create(ctx, c); err != nil {
			return fmt.Errorf("seed customer: %w", err)
		}
	}

	trips := []*booking.Booking{
		{CustomerID: riders[0].ID, DriverID: fleet[0].ID, Status: booking.StatusCompleted, Fare: 850, DistanceKm: 12.4,
			PaymentMethod: "mpesa", CreatedAt: now.Add(-3 * time.Hour),
			Pickup:  booking.Place{Address: "Westlands", Lat: -1.2676, Lng: 36.8108},
			Dropoff: booking.Place{Address: "Kilimani", Lat: -1.2921, Lng: 36.7856}},
		{CustomerID: riders[1].ID, DriverID: fleet[0].ID, Status: booking.StatusInProgress, Fare: 420, DistanceKm: 5.1,
			PaymentMethod: "cash", CreatedAt: now.Add(-20 * time.Minute),
			Pickup:  booking.Place{Address: "CBD", Lat: -1.2833, Lng: 36.8167},
			Dropoff: booking.Place{Address: "Upper Hill", Lat: -1.2990, Lng: 36.8140}},
		{CustomerID: riders[0].ID, Status: booking.StatusPending, Fare: 600, DistanceKm: 8.0,
			PaymentMethod: "card", CreatedAt: now.Add(-2 * time.Minute),
			Pickup:  booking.Place{Address: "Kileleshwa", Lat: -1.2800, Lng: 36.7833},
			Dropoff: booking.Place{Address: "JKIA", Lat: -1.3192, Lng: 36.9278}},
	}
	for _, b := range trips {
		if b.Status == booking.StatusCompleted {
			done := b.CreatedAt.Add(35 * time.Minute)
			b.CompletedAt = &done
		}
		if err := bookings.Create(ctx, b); err != nil {
			return fmt.Errorf("seed booking: %w", err)
		}
	}

	if err := alerts.Create(ctx, &emergency.Alert{
		BookingID:   trips[1].ID,
		DriverID:    fleet[0].ID,
		CustomerID:  riders[1].ID,
		ReportedBy:  "customer",
		Type:        "sos",
		Severity:    emergency.SeverityCritical,
		Lat:         -1.2900,
		Lng:         36.8150,
		Description: "Rider pressed SOS",
	}); err != nil {
		return fmt.Errorf("seed emergency: %w", err)
	}

	if err := tickets.Create(ctx, &support.Ticket{
		Subject:       "Charged twice",
		Description:   "My card was charged twice for one trip",
		Category:      "payment",
		Priority:      support.PriorityHigh,
		RequesterID:   riders[0].ID,
		RequesterType: "customer",
		Messages: []support.Message{{
			SenderID:   riders[0].ID,
			SenderType: "customer",
			Body:       "My card was charged twice for one trip",
			CreatedAt:  now.Add(-time.Hour),
		}},
	}); err != nil {
		return fmt.Errorf("seed ticket: %w", err)
	}
	return nil
}
