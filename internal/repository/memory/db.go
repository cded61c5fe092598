// internal/repository/memory/db.go
package memory

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"dispatch-console/internal/domain/booking"
	"dispatch-console/internal/domain/customer"
	"dispatch-console/internal/domain/driver"
	"dispatch-console/internal/domain/emergency"
	"dispatch-console/internal/domain/settings"
	"dispatch-console/internal/domain/support"
	xerrors "dispatch-console/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
)

// table is an insertion-ordered map of rows. Rows cross the boundary as
// deep copies so callers never share state with the store.
type table[T any] struct {
	mu    sync.RWMutex
	name  string
	rows  map[string]*T
	order []string
}

func newTable[T any](name string) *table[T] {
	return &table[T]{name: name, rows: make(map[string]*T)}
}

func (t *table[T]) get(id string) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", t.name, id, xerrors.ErrNotFound)
	}
	return clone(row), nil
}

func (t *table[T]) insert(id string, row *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; ok {
		return fmt.Errorf("%s %s: %w", t.name, id, xerrors.ErrConflict)
	}
	t.rows[id] = clone(row)
	t.order = append(t.order, id)
	return nil
}

// update applies fn to the stored row atomically and returns the result.
func (t *table[T]) update(id string, fn func(*T) error) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", t.name, id, xerrors.ErrNotFound)
	}
	next := clone(row)
	if err := fn(next); err != nil {
		return nil, err
	}
	t.rows[id] = next
	return clone(next), nil
}

func (t *table[T]) delete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return fmt.Errorf("%s %s: %w", t.name, id, xerrors.ErrNotFound)
	}
	delete(t.rows, id)
	for i, cur := range t.order {
		if cur == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// list returns matching rows, newest first.
func (t *table[T]) list(match func(*T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.order))
	for i := len(t.order) - 1; i >= 0; i-- {
		row := t.rows[t.order[i]]
		if match == nil || match(row) {
			out = append(out, *clone(row))
		}
	}
	return out
}

func (t *table[T]) count(match func(*T) bool) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var n int64
	for _, row := range t.rows {
		if match == nil || match(row) {
			n++
		}
	}
	return n
}

// DB is the mock backend's in-process storage. Repositories share one DB
// and its clock.
type DB struct {
	admins    *table[adminRecord]
	grants    *table[grantRecord]
	resets    *table[resetRecord]
	drivers   *table[driver.Driver]
	customers *table[customer.Customer]
	bookings  *table[booking.Booking]
	alerts    *table[emergency.Alert]
	tickets   *table[support.Ticket]

	settingsMu sync.RWMutex
	settings   settings.Settings

	now func() time.Time
}

func NewDB(now func() time.Time) *DB {
	if now == nil {
		now = time.Now
	}
	return &DB{
		admins:    newTable[adminRecord]("admin"),
		grants:    newTable[grantRecord]("refresh grant"),
		resets:    newTable[resetRecord]("password reset"),
		drivers:   newTable[driver.Driver]("driver"),
		customers: newTable[customer.Customer]("customer"),
		bookings:  newTable[booking.Booking]("booking"),
		alerts:    newTable[emergency.Alert]("emergency"),
		tickets:   newTable[support.Ticket]("ticket"),
		settings:  DefaultSettings(),
		now:       now,
	}
}

func (db *DB) Now() time.Time {
	return db.now().UTC()
}

// --- Helper functions ---

func newID() string {
	return ulid.Make().String()
}

func clone[T any](v *T) *T {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("memory: clone %T: %v", v, err))
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("memory: clone %T: %v", v, err))
	}
	return &out
}

// Page is one window of a listing.
type Page struct {
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

func paginate[T any](items []T, page, size int) ([]T, Page) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	total := len(items)
	p := Page{Page: page, PageSize: size, Total: int64(total), TotalPages: (total + size - 1) / size}
	start := (page - 1) * size
	if start >= total {
		return []T{}, p
	}
	end := min(start+size, total)
	return items[start:end], p
}
