// internal/handlers/analytics/analytics.go
package analytics

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"dispatch-console/internal/domain/analytics"
	"dispatch-console/internal/domain/booking"
	"dispatch-console/internal/domain/driver"
	"dispatch-console/internal/pkg/response"
	"dispatch-console/internal/repository/memory"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	drivers   *memory.DriverRepository
	customers *memory.CustomerRepository
	bookings  *memory.BookingRepository
	alerts    *memory.EmergencyRepository
	tickets   *memory.SupportRepository
	settings  *memory.SettingsRepository
	now       func() time.Time
}

func NewAnalyticsHandler(db *memory.DB) *AnalyticsHandler {
	return &AnalyticsHandler{
		drivers:   memory.NewDriverRepository(db),
		customers: memory.NewCustomerRepository(db),
		bookings:  memory.NewBookingRepository(db),
		alerts:    memory.NewEmergencyRepository(db),
		tickets:   memory.NewSupportRepository(db),
		settings:  memory.NewSettingsRepository(db),
		now:       db.Now,
	}
}

// GetDashboard returns the console landing summary
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	now := h.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	d := analytics.Dashboard{
		TotalDrivers:      h.drivers.Count(ctx, ""),
		OnlineDrivers:     h.drivers.Count(ctx, driver.StatusOnline),
		PendingDrivers:    h.drivers.Count(ctx, driver.StatusPending),
		TotalCustomers:    h.customers.Stats(ctx).TotalCustomers,
		ActiveEmergencies: h.alerts.CountOpen(ctx),
		OpenTickets:       h.tickets.CountOpen(ctx),
		GeneratedAt:       now,
	}
	for _, b := range h.bookings.All(ctx) {
		d.TotalBookings++
		switch b.Status {
		case booking.StatusAccepted, booking.StatusInProgress:
			d.ActiveBookings++
		case booking.StatusCompleted:
			if b.CompletedAt != nil && !b.CompletedAt.Before(today) {
				d.CompletedToday++
				d.RevenueToday += b.Fare
			}
		}
	}

	response.Success(c, http.StatusOK, "dashboard retrieved", d)
}

// GetRevenue reports completed-trip revenue per period
func (h *AnalyticsHandler) GetRevenue(c *gin.Context) {
	rng, from, to, ok := h.bindRange(c)
	if !ok {
		return
	}

	points := map[string]*analytics.RevenuePoint{}
	var report analytics.RevenueReport
	for _, b := range h.bookings.All(c.Request.Context()) {
		if b.Status != booking.StatusCompleted || !within(b.CreatedAt, from, to) {
			continue
		}
		key := period(b.CreatedAt, rng.Interval)
		p, exists := points[key]
		if !exists {
			p = &analytics.RevenuePoint{Period: key}
			points[key] = p
		}
		p.Revenue += b.Fare
		p.Bookings++
		report.Total += b.Fare
	}
	report.Points = make([]analytics.RevenuePoint, 0, len(points))
	for _, p := range points {
		report.Points = append(report.Points, *p)
	}
	sort.Slice(report.Points, func(i, j int) bool { return report.Points[i].Period < report.Points[j].Period })

	response.Success(c, http.StatusOK, "revenue report retrieved", report)
}

// GetBookingTrends reports booking volume per period
func (h *AnalyticsHandler) GetBookingTrends(c *gin.Context) {
	rng, from, to, ok := h.bindRange(c)
	if !ok {
		return
	}

	points := map[string]*analytics.TrendPoint{}
	for _, b := range h.bookings.All(c.Request.Context()) {
		if !within(b.CreatedAt, from, to) {
			continue
		}
		key := period(b.CreatedAt, rng.Interval)
		p, exists := points[key]
		if !exists {
			p = &analytics.TrendPoint{Period: key}
			points[key] = p
		}
		p.Created++
		switch b.Status {
		case booking.StatusCompleted:
			p.Completed++
		case booking.StatusCancelled:
			p.Cancelled++
		}
	}
	trends := analytics.BookingTrends{Points: make([]analytics.TrendPoint, 0, len(points))}
	for _, p := range points {
		trends.Points = append(trends.Points, *p)
	}
	sort.Slice(trends.Points, func(i, j int) bool { return trends.Points[i].Period < trends.Points[j].Period })

	response.Success(c, http.StatusOK, "booking trends retrieved", trends)
}

// GetDriverPerformance ranks drivers by completed trips
func (h *AnalyticsHandler) GetDriverPerformance(c *gin.Context) {
	_, from, to, ok := h.bindRange(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	commission := h.settings.Get(ctx).CommissionRate

	type tally struct {
		assigned, completed int64
		fares               float64
	}
	tallies := map[string]*tally{}
	for _, b := range h.bookings.All(ctx) {
		if b.DriverID == "" || !within(b.CreatedAt, from, to) {
			continue
		}
		t, exists := tallies[b.DriverID]
		if !exists {
			t = &tally{}
			tallies[b.DriverID] = t
		}
		t.assigned++
		if b.Status == booking.StatusCompleted {
			t.completed++
			t.fares += b.Fare
		}
	}

	report := analytics.DriverPerformanceReport{Drivers: []analytics.DriverPerformance{}}
	for _, d := range h.drivers.All(ctx) {
		perf := analytics.DriverPerformance{DriverID: d.ID, FullName: d.FullName, Rating: d.Rating}
		if t, exists := tallies[d.ID]; exists {
			perf.Trips = t.completed
			perf.Earnings = t.fares * (1 - commission)
			if t.assigned > 0 {
				perf.AcceptanceRate = float64(t.completed) / float64(t.assigned)
			}
		}
		report.Drivers = append(report.Drivers, perf)
	}
	sort.SliceStable(report.Drivers, func(i, j int) bool { return report.Drivers[i].Trips > report.Drivers[j].Trips })

	response.Success(c, http.StatusOK, "driver performance retrieved", report)
}

// --- Helper functions ---

// bindRange parses the reporting window. To is inclusive of its whole day.
func (h *AnalyticsHandler) bindRange(c *gin.Context) (analytics.Range, time.Time, time.Time, bool) {
	var rng analytics.Range
	if err := c.ShouldBindQuery(&rng); err != nil {
		response.ValidationError(c, err)
		return rng, time.Time{}, time.Time{}, false
	}
	if rng.Interval == "" {
		rng.Interval = "day"
	}

	var from, to time.Time
	if rng.From != "" {
		from, _ = time.Parse(time.DateOnly, rng.From)
	}
	if rng.To != "" {
		t, _ := time.Parse(time.DateOnly, rng.To)
		to = t.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		response.ValidationError(c, fmt.Errorf("from must not be after to"))
		return rng, from, to, false
	}
	return rng, from, to, true
}

func within(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	return to.IsZero() || t.Before(to)
}

func period(t time.Time, interval string) string {
	switch interval {
	case "week":
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case "month":
		return t.Format("2006-01")
	default:
		return t.Format(time.DateOnly)
	}
}
