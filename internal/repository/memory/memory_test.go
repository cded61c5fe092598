package memory

import (
	"context"
	"testing"
	"time"

	"dispatch-console/internal/domain/admin"
	"dispatch-console/internal/domain/auth"
	"dispatch-console/internal/domain/booking"
	"dispatch-console/internal/domain/driver"
	"dispatch-console/internal/domain/support"
	xerrors "dispatch-console/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
}

func TestAdminRepository_KeepsPasswordHash(t *testing.T) {
	ctx := context.Background()
	db := NewDB(fixedNow)

	a, err := SeedAdmin(ctx, db, admin.CreateAdminRequest{Email: "Ops@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, admin.RoleSuperAdmin, a.Role)

	repo := NewAdminRepository(db)
	found, err := repo.FindByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.UID, found.UID)
	assert.True(t, CheckPassword(found.PasswordHash, "secret1"))
	assert.False(t, CheckPassword(found.PasswordHash, "wrong"))

	_, err = SeedAdmin(ctx, db, admin.CreateAdminRequest{Email: "ops@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, xerrors.ErrConflict)

	require.NoError(t, repo.UpdateLastLogin(ctx, a.UID, fixedNow()))
	found, err = repo.FindByUID(ctx, a.UID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLogin)
	assert.NotEmpty(t, found.PasswordHash)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestGrantRepository_SingleUse(t *testing.T) {
	ctx := context.Background()
	db := NewDB(fixedNow)
	grants := NewGrantRepository(db)

	require.NoError(t, grants.Create(ctx, &auth.RefreshGrant{Token: "rt-1", UID: "u1", ExpiresAt: fixedNow().Add(time.Hour)}))

	g, err := grants.Consume(ctx, "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", g.UID)
	assert.Equal(t, "rt-1", g.Token)

	_, err = grants.Consume(ctx, "rt-1")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	require.NoError(t, grants.Create(ctx, &auth.RefreshGrant{Token: "rt-old", UID: "u1", ExpiresAt: fixedNow().Add(-time.Minute)}))
	_, err = grants.Consume(ctx, "rt-old")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestDriverRepository_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	db := NewDB(fixedNow)
	require.NoError(t, SeedFixtures(ctx, db))
	drivers := NewDriverRepository(db)

	all := drivers.List(ctx, driver.ListFilters{})
	assert.Equal(t, int64(3), all.Total)
	assert.Equal(t, 1, all.TotalPages)

	page := drivers.List(ctx, driver.ListFilters{PageSize: 2, Page: 2})
	assert.Len(t, page.Drivers, 1)
	assert.Equal(t, 2, page.TotalPages)

	pending := drivers.List(ctx, driver.ListFilters{VerificationStatus: "pending"})
	require.Len(t, pending.Drivers, 1)
	assert.Equal(t, "Cynthia Mutua", pending.Drivers[0].FullName)

	found := drivers.List(ctx, driver.ListFilters{Search: "BRIAN"})
	assert.Len(t, found.Drivers, 1)

	locs := drivers.Locations(ctx)
	require.Len(t, locs, 1)
	assert.NotEmpty(t, locs[0].DriverID)
}

func TestDriverRepository_SuspendActivate(t *testing.T) {
	ctx := context.Background()
	db := NewDB(fixedNow)
	drivers := NewDriverRepository(db)

	d := &driver.Driver{FullName: "Test Driver"}
	require.NoError(t, drivers.Create(ctx, d))

	_, err := drivers.Activate(ctx, d.ID)
	assert.ErrorIs(t, err, xerrors.ErrInvalidTransition)

	_, err = drivers.Verify(ctx, d.ID, true)
	require.NoError(t, err)

	got, err := drivers.Suspend(ctx, d.ID, "fraud")
	require.NoError(t, err)
	assert.True(t, got.IsSuspended())
	assert.Equal(t, "fraud", got.SuspensionReason)

	_, err = drivers.Suspend(ctx, d.ID, "again")
	assert.ErrorIs(t, err, xerrors.ErrInvalidTransition)

	got, err = drivers.Activate(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, driver.StatusActive, got.Status)
	assert.Empty(t, got.SuspensionReason)
}

func TestDriverRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	db := NewDB(fixedNow)
	drivers := NewDriverRepository(db)

	d := &driver.Driver{FullName: "Original", Vehicle: &driver.Vehicle{Make: "Toyota"}}
	require.NoError(t, drivers.Create(ctx, d))

	got, err := drivers.FindByID(ctx, d.ID)
	require.NoError(t, err)
	got.FullName = "Changed"
	got.Vehicle.Make = "Changed"

	again, err := drivers.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.FullName)
	assert.Equal(t, "Toyota", again.Vehicle.Make)
}

func TestBookingRepository_Transitions(t *testing.T) {
	ctx := context.Background()
	db := NewDB(fixedNow)
	bookings := NewBookingRepository(db)

	b := &booking.Booking{CustomerID: "c1", Fare: 500}
	require.NoError(t, bookings.Create(ctx, b))

	_, err := bookings.UpdateStatus(ctx, b.ID, booking.StatusAccepted)
	assert.ErrorIs(t, err, xerrors.ErrInvalidTransition, "accepting requires a driver")

	got, err := bookings.AssignDriver(ctx, b.ID, "d1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusAccepted, got.Status)

	_, err = bookings.UpdateStatus(ctx, b.ID, booking.StatusCompleted)
	assert.ErrorIs(t, err, xerrors.ErrInvalidTransition)

	_, err = bookings.UpdateStatus(ctx, b.ID, booking.StatusInProgress)
	require.NoError(t, err)
	got, err = bookings.UpdateStatus(ctx, b.ID, booking.StatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)

	_, err = bookings.Cancel(ctx, b.ID, "too late")
	assert.ErrorIs(t, err, xerrors.ErrInvalidTransition)

	stats := bookings.Stats(ctx)
	assert.Equal(t, int64(1), stats.Completed)
	assert.InDelta(t, 500, stats.AverageFare, 0.001)
}

func TestBookingRepository_DateRange(t *testing.T) {
	ctx := context.Background()
	db := NewDB(fixedNow)
	bookings := NewBookingRepository(db)

	day := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	require.NoError(t, bookings.Create(ctx, &booking.Booking{CustomerID: "c1", CreatedAt: day.Add(23 * time.Hour)}))
	require.NoError(t, bookings.Create(ctx, &booking.Booking{CustomerID: "c1", CreatedAt: day.Add(25 * time.Hour)}))

	res := bookings.List(ctx, booking.ListFilters{From: &day, To: &day})
	assert.Equal(t, int64(1), res.Total)
}

func TestSupportRepository_ReplyMovesToInProgress(t *testing.T) {
	ctx := context.Background()
	db := NewDB(fixedNow)
	tickets := NewSupportRepository(db)

	tk := &support.Ticket{Subject: "help", RequesterID: "c1", RequesterType: "customer"}
	require.NoError(t, tickets.Create(ctx, tk))

	msg, err := tickets.AddMessage(ctx, tk.ID, "adm", "admin", "On it")
	require.NoError(t, err)
	assert.Equal(t, tk.ID, msg.TicketID)

	got, err := tickets.FindByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, support.StatusInProgress, got.Status)
	assert.Len(t, got.Messages, 1)

	list := tickets.List(ctx, support.ListFilters{})
	require.Len(t, list.Tickets, 1)
	assert.Nil(t, list.Tickets[0].Messages)

	_, err = tickets.UpdateStatus(ctx, tk.ID, support.StatusClosed)
	require.NoError(t, err)
	_, err = tickets.AddMessage(ctx, tk.ID, "adm", "admin", "hello?")
	assert.ErrorIs(t, err, xerrors.ErrInvalidTransition)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	got, p := paginate(items, 0, 0)
	assert.Equal(t, items, got)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)

	got, p = paginate(items, 3, 2)
	assert.Equal(t, []int{5}, got)
	assert.Equal(t, 3, p.TotalPages)

	got, _ = paginate(items, 9, 2)
	assert.Empty(t, got)
}
