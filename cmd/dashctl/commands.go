package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"dispatch-console/internal/console"
	"dispatch-console/internal/domain/analytics"
	"dispatch-console/internal/domain/booking"
	"dispatch-console/internal/domain/customer"
	"dispatch-console/internal/domain/driver"
	"dispatch-console/internal/domain/emergency"
	"dispatch-console/internal/domain/settings"
	"dispatch-console/internal/domain/support"
	"dispatch-console/internal/domain/system"
	wstypes "dispatch-console/internal/domain/websocket"
	"dispatch-console/internal/realtime"

	"github.com/spf13/pflag"
	"golang.org/x/term"
)

type command struct {
	summary string
	run     func(ctx context.Context, c *console.Console, args []string) error
}

var commandOrder = []string{
	"login", "logout", "whoami",
	"drivers", "driver", "customers", "customer",
	"bookings", "booking", "emergencies", "emergency",
	"tickets", "ticket", "dashboard", "analytics", "settings",
	"health", "logs", "watch",
}

var commands = map[string]command{
	"login":       {"sign in and store the session", runLogin},
	"logout":      {"end the stored session", runLogout},
	"whoami":      {"show the signed-in admin", runWhoami},
	"drivers":     {"list drivers", runDrivers},
	"driver":      {"show, suspend or activate a driver", runDriver},
	"customers":   {"list customers", runCustomers},
	"customer":    {"show, block or unblock a customer", runCustomer},
	"bookings":    {"list bookings", runBookings},
	"booking":     {"show, cancel, assign or move a booking", runBooking},
	"emergencies": {"list emergency alerts", runEmergencies},
	"emergency":   {"show, acknowledge or resolve an alert", runEmergency},
	"tickets":     {"list support tickets", runTickets},
	"ticket":      {"show, reply to, assign or move a ticket", runTicket},
	"dashboard":   {"show dashboard figures", runDashboard},
	"analytics":   {"show a revenue, bookings or drivers report", runAnalytics},
	"settings":    {"show or change platform settings", runSettings},
	"health":      {"show backend health", runHealth},
	"logs":        {"show recent backend logs", runLogs},
	"watch":       {"stream realtime events as JSON lines", runWatch},
}

// ========== Session ==========

func runLogin(ctx context.Context, c *console.Console, args []string) error {
	var email, password string
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	fs.StringVar(&email, "email", "", "account email")
	fs.StringVar(&password, "password", os.Getenv("DASHCTL_PASSWORD"), "account password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if email == "" {
		line, err := prompt("Email: ")
		if err != nil {
			return err
		}
		email = line
	}
	if password == "" {
		p, err := readPassword()
		if err != nil {
			return err
		}
		password = p
	}

	user, err := c.Auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s (%s)\n", user.Email, user.Role)
	return nil
}

func runLogout(ctx context.Context, c *console.Console, _ []string) error {
	c.Logout(ctx)
	fmt.Println("signed out")
	return nil
}

func runWhoami(_ context.Context, c *console.Console, _ []string) error {
	user := c.Auth.CurrentUser()
	if user == nil || !c.Auth.IsAuthenticated() {
		return fmt.Errorf("not signed in")
	}
	return printJSON(user)
}

// ========== Resources ==========

func runDrivers(ctx context.Context, c *console.Console, args []string) error {
	var f driver.ListFilters
	fs := pflag.NewFlagSet("drivers", pflag.ContinueOnError)
	fs.StringVar(&f.Status, "status", "", "filter by status")
	fs.StringVar(&f.Search, "search", "", "name, email or phone")
	fs.IntVar(&f.Page, "page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	out, err := c.Drivers.ListDrivers(ctx, f)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runDriver(ctx context.Context, c *console.Console, args []string) error {
	var suspend string
	var activate bool
	fs := pflag.NewFlagSet("driver", pflag.ContinueOnError)
	fs.StringVar(&suspend, "suspend", "", "suspend with this reason")
	fs.BoolVar(&activate, "activate", false, "reactivate the driver")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	var out *driver.Driver
	switch {
	case suspend != "" && activate:
		return fmt.Errorf("--suspend and --activate are exclusive")
	case suspend != "":
		out, err = c.Drivers.SuspendDriver(ctx, id, suspend)
	case activate:
		out, err = c.Drivers.ActivateDriver(ctx, id)
	default:
		out, err = c.Drivers.GetDriver(ctx, id)
	}
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runCustomers(ctx context.Context, c *console.Console, args []string) error {
	var f customer.CustomerListFilters
	fs := pflag.NewFlagSet("customers", pflag.ContinueOnError)
	fs.StringVar(&f.Status, "status", "", "active or blocked")
	fs.StringVar(&f.Search, "search", "", "name, email or phone")
	fs.IntVar(&f.Page, "page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	out, err := c.Customers.ListCustomers(ctx, f)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runCustomer(ctx context.Context, c *console.Console, args []string) error {
	var block string
	var unblock bool
	fs := pflag.NewFlagSet("customer", pflag.ContinueOnError)
	fs.StringVar(&block, "block", "", "block with this reason")
	fs.BoolVar(&unblock, "unblock", false, "lift a block")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	var out *customer.Customer
	switch {
	case block != "" && unblock:
		return fmt.Errorf("--block and --unblock are exclusive")
	case block != "":
		out, err = c.Customers.BlockCustomer(ctx, id, block)
	case unblock:
		out, err = c.Customers.UnblockCustomer(ctx, id)
	default:
		out, err = c.Customers.GetCustomer(ctx, id)
	}
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runBookings(ctx context.Context, c *console.Console, args []string) error {
	var f booking.ListFilters
	fs := pflag.NewFlagSet("bookings", pflag.ContinueOnError)
	fs.StringVar(&f.Status, "status", "", "filter by status")
	fs.StringVar(&f.DriverID, "driver", "", "filter by driver ID")
	fs.IntVar(&f.Page, "page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	out, err := c.Bookings.ListBookings(ctx, f)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runBooking(ctx context.Context, c *console.Console, args []string) error {
	var cancel, assign, status string
	fs := pflag.NewFlagSet("booking", pflag.ContinueOnError)
	fs.StringVar(&cancel, "cancel", "", "cancel with this reason")
	fs.StringVar(&assign, "assign", "", "dispatch this driver ID")
	fs.StringVar(&status, "status", "", "move to this status")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	var out *booking.Booking
	switch {
	case cancel != "":
		out, err = c.Bookings.CancelBooking(ctx, id, cancel)
	case assign != "":
		out, err = c.Bookings.AssignDriver(ctx, id, assign)
	case status != "":
		out, err = c.Bookings.UpdateStatus(ctx, id, booking.Status(status))
	default:
		out, err = c.Bookings.GetBooking(ctx, id)
	}
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runEmergencies(ctx context.Context, c *console.Console, args []string) error {
	var active bool
	var f emergency.ListFilters
	fs := pflag.NewFlagSet("emergencies", pflag.ContinueOnError)
	fs.BoolVar(&active, "active", false, "only unresolved alerts")
	fs.StringVar(&f.Severity, "severity", "", "filter by severity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if active {
		alerts, err := c.Alerts.GetActive(ctx)
		if err != nil {
			return err
		}
		return printJSON(alerts)
	}
	out, err := c.Alerts.ListEmergencies(ctx, f)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runEmergency(ctx context.Context, c *console.Console, args []string) error {
	var ack, resolve string
	fs := pflag.NewFlagSet("emergency", pflag.ContinueOnError)
	fs.StringVar(&ack, "ack", "", "acknowledge with these notes")
	fs.StringVar(&resolve, "resolve", "", "resolve with this resolution")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	var out *emergency.Alert
	switch {
	case resolve != "":
		out, err = c.Alerts.Resolve(ctx, id, resolve)
	case fs.Changed("ack"):
		out, err = c.Alerts.Acknowledge(ctx, id, ack)
	default:
		out, err = c.Alerts.GetEmergency(ctx, id)
	}
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runTickets(ctx context.Context, c *console.Console, args []string) error {
	var f support.ListFilters
	fs := pflag.NewFlagSet("tickets", pflag.ContinueOnError)
	fs.StringVar(&f.Status, "status", "", "filter by status")
	fs.StringVar(&f.Priority, "priority", "", "filter by priority")
	fs.StringVar(&f.AssignedTo, "assigned-to", "", "filter by admin ID")
	fs.IntVar(&f.Page, "page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	out, err := c.Support.ListTickets(ctx, f)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runTicket(ctx context.Context, c *console.Console, args []string) error {
	var reply, assign, status string
	fs := pflag.NewFlagSet("ticket", pflag.ContinueOnError)
	fs.StringVar(&reply, "reply", "", "post this reply")
	fs.StringVar(&assign, "assign", "", "assign to this admin ID")
	fs.StringVar(&status, "status", "", "move to this status")
	id, err := parseWithID(fs, args)
	if err != nil {
		return err
	}

	var out any
	switch {
	case reply != "":
		out, err = c.Support.Reply(ctx, id, reply)
	case assign != "":
		out, err = c.Support.AssignTicket(ctx, id, assign)
	case status != "":
		out, err = c.Support.UpdateStatus(ctx, id, support.Status(status))
	default:
		out, err = c.Support.GetTicket(ctx, id)
	}
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runDashboard(ctx context.Context, c *console.Console, _ []string) error {
	out, err := c.Analytics.GetDashboard(ctx)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runAnalytics(ctx context.Context, c *console.Console, args []string) error {
	var report string
	var rng analytics.Range
	fs := pflag.NewFlagSet("analytics", pflag.ContinueOnError)
	fs.StringVar(&report, "report", "revenue", "revenue, bookings or drivers")
	fs.StringVar(&rng.From, "from", "", "start date (YYYY-MM-DD)")
	fs.StringVar(&rng.To, "to", "", "end date (YYYY-MM-DD)")
	fs.StringVar(&rng.Interval, "interval", "", "day, week or month")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var out any
	var err error
	switch report {
	case "revenue":
		out, err = c.Analytics.GetRevenue(ctx, rng)
	case "bookings":
		out, err = c.Analytics.GetBookingTrends(ctx, rng)
	case "drivers":
		out, err = c.Analytics.GetDriverPerformance(ctx, rng)
	default:
		return fmt.Errorf("unknown report %q", report)
	}
	if err != nil {
		return err
	}
	return printJSON(out)
}

// runSettings prints the settings, or applies only the flags that were set
func runSettings(ctx context.Context, c *console.Console, args []string) error {
	var (
		baseFare, surge float64
		supportEmail    string
		maintenance     bool
	)
	fs := pflag.NewFlagSet("settings", pflag.ContinueOnError)
	fs.Float64Var(&baseFare, "base-fare", 0, "base fare")
	fs.Float64Var(&surge, "surge", 1, "surge multiplier (1-5)")
	fs.StringVar(&supportEmail, "support-email", "", "support contact email")
	fs.BoolVar(&maintenance, "maintenance", false, "maintenance mode")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var req settings.UpdateSettingsRequest
	if fs.Changed("base-fare") {
		req.BaseFare = &baseFare
	}
	if fs.Changed("surge") {
		req.SurgeMultiplier = &surge
	}
	if fs.Changed("support-email") {
		req.SupportEmail = &supportEmail
	}
	if fs.Changed("maintenance") {
		req.MaintenanceMode = &maintenance
	}

	var out *settings.Settings
	var err error
	if fs.NFlag() == 0 {
		out, err = c.Settings.GetSettings(ctx)
	} else {
		out, err = c.Settings.UpdateSettings(ctx, &req)
	}
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runHealth(ctx context.Context, c *console.Console, _ []string) error {
	out, err := c.System.GetHealth(ctx)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runLogs(ctx context.Context, c *console.Console, args []string) error {
	var f system.LogFilters
	fs := pflag.NewFlagSet("logs", pflag.ContinueOnError)
	fs.StringVar(&f.Level, "level", "", "minimum level")
	fs.StringVar(&f.Service, "service", "", "logger name")
	fs.IntVar(&f.Limit, "limit", 50, "maximum entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	out, err := c.System.GetLogs(ctx, f)
	if err != nil {
		return err
	}
	return printJSON(out)
}

// ========== Realtime ==========

// runWatch prints every realtime event until interrupted
func runWatch(ctx context.Context, c *console.Console, args []string) error {
	var rooms []string
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	fs.StringSliceVar(&rooms, "room", []string{wstypes.RoomEmergencies, wstypes.RoomSystemAlerts}, "rooms to join")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.Realtime == nil {
		return fmt.Errorf("realtime is not configured (set ADMIN_SOCKET_URL)")
	}
	if !c.Auth.IsAuthenticated() {
		return fmt.Errorf("not signed in")
	}

	events, unsubscribe := c.Realtime.Subscribe(realtime.AnyEvent, 64)
	defer unsubscribe()
	for _, room := range rooms {
		if err := c.Realtime.JoinRoom(room); err != nil {
			return err
		}
	}
	c.Start(ctx)

	enc := json.NewEncoder(os.Stdout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := enc.Encode(ev); err != nil {
				return err
			}
		}
	}
}

// --- Helper functions ---

// parseWithID parses fs and returns its single positional argument
func parseWithID(fs *pflag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one ID, got %d arguments", fs.NArg())
	}
	return fs.Arg(0), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt("")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
