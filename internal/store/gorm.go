package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"presence-track/internal/model"

	"gorm.io/gorm"
)

// NewGormStores builds the MySQL-backed store set.
func NewGormStores(db *gorm.DB) *Stores {
	return &Stores{
		Events:    &gormEvents{db},
		Employees: &gormEmployees{db},
		Locations: &gormLocations{db},
		Records:   &gormRecords{db},
		Tasks:     &gormTasks{db},
		Movements: &gormMovements{db},
		Rollups:   &gormRollups{db},
	}
}

// AutoMigrate creates or updates the schema for all aggregates.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Employee{},
		&model.Location{},
		&model.Event{},
		&model.AttendanceRecord{},
		&model.TaskAssignment{},
		&model.LocationMovement{},
		&model.LocationAnalytics{},
	)
}

func dayBounds(day string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(model.DayFormat, day, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse day %q: %w", day, err)
	}
	return start, start.Add(24 * time.Hour), nil
}

type gormEvents struct{ db *gorm.DB }

func (s *gormEvents) Insert(ctx context.Context, ev *model.Event) error {
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *gormEvents) ListByEmployeeDay(ctx context.Context, employeeID uint, day string) ([]model.Event, error) {
	start, end, err := dayBounds(day)
	if err != nil {
		return nil, err
	}
	var events []model.Event
	err = s.db.WithContext(ctx).
		Where("employee_id = ? AND timestamp >= ? AND timestamp < ?", employeeID, start, end).
		Order("timestamp").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("query employee day events: %w", err)
	}
	return events, nil
}

func (s *gormEvents) ListByDay(ctx context.Context, day string) ([]model.Event, error) {
	start, end, err := dayBounds(day)
	if err != nil {
		return nil, err
	}
	var events []model.Event
	err = s.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Order("timestamp").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("query day events: %w", err)
	}
	return events, nil
}

func (s *gormEvents) LatestClockEvent(ctx context.Context, employeeID uint) (*model.Event, error) {
	var ev model.Event
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND type IN ?", employeeID, []model.EventType{model.EventClockIn, model.EventClockOut}).
		Order("timestamp DESC").First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest clock event: %w", err)
	}
	return &ev, nil
}

func (s *gormEvents) LatestClockEvents(ctx context.Context, employeeIDs []uint) (map[uint]model.Event, error) {
	if len(employeeIDs) == 0 {
		return map[uint]model.Event{}, nil
	}
	// One pass: join each employee's max clock timestamp back to the row.
	var events []model.Event
	err := s.db.WithContext(ctx).Raw(`
		SELECT e.* FROM events e
		JOIN (
			SELECT employee_id, MAX(timestamp) AS ts FROM events
			WHERE type IN ('CLOCK_IN','CLOCK_OUT') AND employee_id IN ?
			GROUP BY employee_id
		) latest ON e.employee_id = latest.employee_id AND e.timestamp = latest.ts
		WHERE e.type IN ('CLOCK_IN','CLOCK_OUT')`, employeeIDs).Scan(&events).Error
	if err != nil {
		return nil, fmt.Errorf("query latest clock events: %w", err)
	}
	out := make(map[uint]model.Event, len(events))
	for _, ev := range events {
		// Ties on timestamp resolve to whichever row scans last; the log
		// never holds two clock toggles at the same instant for one
		// employee because of the debounce guard.
		out[ev.EmployeeID] = ev
	}
	return out, nil
}

type gormEmployees struct{ db *gorm.DB }

func (s *gormEmployees) Create(ctx context.Context, e *model.Employee) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}

func (s *gormEmployees) Get(ctx context.Context, id uint) (*model.Employee, error) {
	var e model.Employee
	err := s.db.WithContext(ctx).First(&e, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query employee: %w", err)
	}
	return &e, nil
}

func (s *gormEmployees) List(ctx context.Context, department string) ([]model.Employee, error) {
	q := s.db.WithContext(ctx).Where("active = ?", true)
	if department != "" {
		q = q.Where("department = ?", department)
	}
	var out []model.Employee
	if err := q.Order("surname, given_name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	return out, nil
}

type gormLocations struct{ db *gorm.DB }

func (s *gormLocations) Create(ctx context.Context, l *model.Location) error {
	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (s *gormLocations) Get(ctx context.Context, id uint) (*model.Location, error) {
	var l model.Location
	err := s.db.WithContext(ctx).First(&l, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query location: %w", err)
	}
	return &l, nil
}

func (s *gormLocations) List(ctx context.Context) ([]model.Location, error) {
	var out []model.Location
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	return out, nil
}

type gormRecords struct{ db *gorm.DB }

func (s *gormRecords) Get(ctx context.Context, employeeID uint, day string) (*model.AttendanceRecord, error) {
	var r model.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND day = ?", employeeID, day).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query attendance record: %w", err)
	}
	return &r, nil
}

func (s *gormRecords) Save(ctx context.Context, r *model.AttendanceRecord) error {
	if err := s.db.WithContext(ctx).Save(r).Error; err != nil {
		return fmt.Errorf("save attendance record: %w", err)
	}
	return nil
}

func (s *gormRecords) ListRange(ctx context.Context, from, to string, employeeIDs []uint) ([]model.AttendanceRecord, error) {
	q := s.db.WithContext(ctx).Where("day >= ? AND day <= ?", from, to)
	if len(employeeIDs) > 0 {
		q = q.Where("employee_id IN ?", employeeIDs)
	}
	var out []model.AttendanceRecord
	if err := q.Order("day, employee_id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	return out, nil
}

type gormTasks struct{ db *gorm.DB }

func (s *gormTasks) Create(ctx context.Context, t *model.TaskAssignment) error {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.TaskAssignment{}).
		Where("employee_id = ? AND location_id = ? AND day = ?", t.EmployeeID, t.LocationID, t.Day).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("check task uniqueness: %w", err)
	}
	if n > 0 {
		return model.ErrConflict
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("insert task assignment: %w", err)
	}
	return nil
}

func (s *gormTasks) Get(ctx context.Context, id uint) (*model.TaskAssignment, error) {
	var t model.TaskAssignment
	err := s.db.WithContext(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query task assignment: %w", err)
	}
	return &t, nil
}

func (s *gormTasks) Complete(ctx context.Context, id uint, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.TaskAssignment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"completed": true, "end_time": at})
	if res.Error != nil {
		return fmt.Errorf("complete task assignment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *gormTasks) ListByLocationDay(ctx context.Context, locationID uint, day string) ([]model.TaskAssignment, error) {
	var out []model.TaskAssignment
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND day = ?", locationID, day).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query task assignments: %w", err)
	}
	return out, nil
}

type gormMovements struct{ db *gorm.DB }

func (s *gormMovements) ReplaceForEmployeeDay(ctx context.Context, employeeID uint, day string, ms []model.LocationMovement) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ? AND day = ?", employeeID, day).
			Delete(&model.LocationMovement{}).Error; err != nil {
			return fmt.Errorf("clear movements: %w", err)
		}
		if len(ms) == 0 {
			return nil
		}
		if err := tx.Create(&ms).Error; err != nil {
			return fmt.Errorf("insert movements: %w", err)
		}
		return nil
	})
}

func (s *gormMovements) ListByEmployeeDay(ctx context.Context, employeeID uint, day string) ([]model.LocationMovement, error) {
	var out []model.LocationMovement
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND day = ?", employeeID, day).
		Order("timestamp").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	return out, nil
}

func (s *gormMovements) ListByLocationDay(ctx context.Context, locationID uint, day string) ([]model.LocationMovement, error) {
	var out []model.LocationMovement
	err := s.db.WithContext(ctx).
		Where("day = ? AND (from_location_id = ? OR to_location_id = ?)", day, locationID, locationID).
		Order("timestamp").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query location movements: %w", err)
	}
	return out, nil
}

func (s *gormMovements) ListByEmployeeRange(ctx context.Context, employeeID uint, from, to string) ([]model.LocationMovement, error) {
	var out []model.LocationMovement
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND day >= ? AND day <= ?", employeeID, from, to).
		Order("timestamp").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query movement range: %w", err)
	}
	return out, nil
}

type gormRollups struct{ db *gorm.DB }

func (s *gormRollups) Save(ctx context.Context, a *model.LocationAnalytics) error {
	var existing model.LocationAnalytics
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND day = ?", a.LocationID, a.Day).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
			return fmt.Errorf("insert rollup: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("query rollup: %w", err)
	default:
		a.ID = existing.ID
		if err := s.db.WithContext(ctx).Save(a).Error; err != nil {
			return fmt.Errorf("update rollup: %w", err)
		}
		return nil
	}
}

func (s *gormRollups) Get(ctx context.Context, locationID uint, day string) (*model.LocationAnalytics, error) {
	var a model.LocationAnalytics
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND day = ?", locationID, day).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query rollup: %w", err)
	}
	return &a, nil
}

func (s *gormRollups) ListRange(ctx context.Context, locationID uint, from, to string) ([]model.LocationAnalytics, error) {
	var out []model.LocationAnalytics
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND day >= ? AND day <= ?", locationID, from, to).
		Order("day").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query rollup range: %w", err)
	}
	return out, nil
}
