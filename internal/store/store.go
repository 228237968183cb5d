package store

import (
	"context"
	"time"

	"presence-track/internal/model"
)

// EventStore is append-only: there is deliberately no update or delete.
type EventStore interface {
	Insert(ctx context.Context, ev *model.Event) error
	ListByEmployeeDay(ctx context.Context, employeeID uint, day string) ([]model.Event, error)
	ListByDay(ctx context.Context, day string) ([]model.Event, error)
	// LatestClockEvent returns the most recent ClockIn/ClockOut for the
	// employee, or model.ErrNotFound if they have never clocked.
	LatestClockEvent(ctx context.Context, employeeID uint) (*model.Event, error)
	// LatestClockEvents resolves the latest clock event per employee in one
	// pass; employees with no clock events are absent from the result.
	LatestClockEvents(ctx context.Context, employeeIDs []uint) (map[uint]model.Event, error)
}

type EmployeeStore interface {
	Create(ctx context.Context, e *model.Employee) error
	Get(ctx context.Context, id uint) (*model.Employee, error)
	List(ctx context.Context, department string) ([]model.Employee, error)
}

type LocationStore interface {
	Create(ctx context.Context, l *model.Location) error
	Get(ctx context.Context, id uint) (*model.Location, error)
	List(ctx context.Context) ([]model.Location, error)
}

type RecordStore interface {
	Get(ctx context.Context, employeeID uint, day string) (*model.AttendanceRecord, error)
	Save(ctx context.Context, r *model.AttendanceRecord) error
	// ListRange returns records with from <= day <= to, all employees when
	// employeeIDs is empty.
	ListRange(ctx context.Context, from, to string, employeeIDs []uint) ([]model.AttendanceRecord, error)
}

type TaskStore interface {
	Create(ctx context.Context, t *model.TaskAssignment) error
	Get(ctx context.Context, id uint) (*model.TaskAssignment, error)
	Complete(ctx context.Context, id uint, at time.Time) error
	ListByLocationDay(ctx context.Context, locationID uint, day string) ([]model.TaskAssignment, error)
}

type MovementStore interface {
	// ReplaceForEmployeeDay swaps the derived movements for one employee-day
	// in a single step, keeping the derivation idempotent.
	ReplaceForEmployeeDay(ctx context.Context, employeeID uint, day string, ms []model.LocationMovement) error
	ListByEmployeeDay(ctx context.Context, employeeID uint, day string) ([]model.LocationMovement, error)
	ListByLocationDay(ctx context.Context, locationID uint, day string) ([]model.LocationMovement, error)
	ListByEmployeeRange(ctx context.Context, employeeID uint, from, to string) ([]model.LocationMovement, error)
}

type RollupStore interface {
	Save(ctx context.Context, a *model.LocationAnalytics) error
	Get(ctx context.Context, locationID uint, day string) (*model.LocationAnalytics, error)
	ListRange(ctx context.Context, locationID uint, from, to string) ([]model.LocationAnalytics, error)
}

// Stores bundles the per-aggregate stores a service layer is wired with.
type Stores struct {
	Events    EventStore
	Employees EmployeeStore
	Locations LocationStore
	Records   RecordStore
	Tasks     TaskStore
	Movements MovementStore
	Rollups   RollupStore
}
