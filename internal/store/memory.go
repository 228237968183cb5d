package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"presence-track/internal/model"
)

// NewMemStores builds a fully in-memory store set. Used by tests and usable
// as a standalone backend for local runs.
func NewMemStores() *Stores {
	m := &mem{
		employees: map[uint]model.Employee{},
		locations: map[uint]model.Location{},
		records:   map[recordKey]model.AttendanceRecord{},
		tasks:     map[uint]model.TaskAssignment{},
	}
	return &Stores{
		Events:    (*memEvents)(m),
		Employees: (*memEmployees)(m),
		Locations: (*memLocations)(m),
		Records:   (*memRecords)(m),
		Tasks:     (*memTasks)(m),
		Movements: (*memMovements)(m),
		Rollups:   (*memRollups)(m),
	}
}

type recordKey struct {
	employeeID uint
	day        string
}

type mem struct {
	mu        sync.RWMutex
	events    []model.Event
	employees map[uint]model.Employee
	locations map[uint]model.Location
	records   map[recordKey]model.AttendanceRecord
	tasks     map[uint]model.TaskAssignment
	movements []model.LocationMovement
	rollups   []model.LocationAnalytics
	nextID    uint
}

func (m *mem) id() uint {
	m.nextID++
	return m.nextID
}

type memEvents mem

func (s *memEvents) Insert(_ context.Context, ev *model.Event) error {
	m := (*mem)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return nil
}

func (s *memEvents) ListByEmployeeDay(_ context.Context, employeeID uint, day string) ([]model.Event, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Event
	for _, ev := range m.events {
		if ev.EmployeeID == employeeID && model.DayOf(ev.Timestamp) == day {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *memEvents) ListByDay(_ context.Context, day string) ([]model.Event, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Event
	for _, ev := range m.events {
		if model.DayOf(ev.Timestamp) == day {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *memEvents) LatestClockEvent(_ context.Context, employeeID uint) (*model.Event, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *model.Event
	for i := range m.events {
		ev := m.events[i]
		if ev.EmployeeID != employeeID || !ev.Type.IsClockToggle() {
			continue
		}
		if latest == nil || ev.Timestamp.After(latest.Timestamp) {
			cp := ev
			latest = &cp
		}
	}
	if latest == nil {
		return nil, model.ErrNotFound
	}
	return latest, nil
}

func (s *memEvents) LatestClockEvents(_ context.Context, employeeIDs []uint) (map[uint]model.Event, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[uint]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		want[id] = true
	}
	out := map[uint]model.Event{}
	for _, ev := range m.events {
		if !want[ev.EmployeeID] || !ev.Type.IsClockToggle() {
			continue
		}
		if cur, ok := out[ev.EmployeeID]; !ok || ev.Timestamp.After(cur.Timestamp) {
			out[ev.EmployeeID] = ev
		}
	}
	return out, nil
}

func sortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

type memEmployees mem

func (s *memEmployees) Create(_ context.Context, e *model.Employee) error {
	m := (*mem)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == 0 {
		e.ID = m.id()
	}
	m.employees[e.ID] = *e
	return nil
}

func (s *memEmployees) Get(_ context.Context, id uint) (*model.Employee, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &e, nil
}

func (s *memEmployees) List(_ context.Context, department string) ([]model.Employee, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Employee
	for _, e := range m.employees {
		if !e.Active {
			continue
		}
		if department != "" && e.Department != department {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memLocations mem

func (s *memLocations) Create(_ context.Context, l *model.Location) error {
	m := (*mem)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == 0 {
		l.ID = m.id()
	}
	m.locations[l.ID] = *l
	return nil
}

func (s *memLocations) Get(_ context.Context, id uint) (*model.Location, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.locations[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &l, nil
}

func (s *memLocations) List(_ context.Context) ([]model.Location, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Location
	for _, l := range m.locations {
		if l.Active {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memRecords mem

func (s *memRecords) Get(_ context.Context, employeeID uint, day string) (*model.AttendanceRecord, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[recordKey{employeeID, day}]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &r, nil
}

func (s *memRecords) Save(_ context.Context, r *model.AttendanceRecord) error {
	m := (*mem)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.id()
	}
	r.UpdatedAt = time.Now().UTC()
	m.records[recordKey{r.EmployeeID, r.Day}] = *r
	return nil
}

func (s *memRecords) ListRange(_ context.Context, from, to string, employeeIDs []uint) ([]model.AttendanceRecord, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := map[uint]bool{}
	for _, id := range employeeIDs {
		want[id] = true
	}
	var out []model.AttendanceRecord
	for k, r := range m.records {
		if k.day < from || k.day > to {
			continue
		}
		if len(want) > 0 && !want[k.employeeID] {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

type memTasks mem

func (s *memTasks) Create(_ context.Context, t *model.TaskAssignment) error {
	m := (*mem)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.tasks {
		if other.EmployeeID == t.EmployeeID && other.LocationID == t.LocationID && other.Day == t.Day {
			return model.ErrConflict
		}
	}
	if t.ID == 0 {
		t.ID = m.id()
	}
	m.tasks[t.ID] = *t
	return nil
}

func (s *memTasks) Get(_ context.Context, id uint) (*model.TaskAssignment, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &t, nil
}

func (s *memTasks) Complete(_ context.Context, id uint, at time.Time) error {
	m := (*mem)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return model.ErrNotFound
	}
	t.Completed = true
	t.EndTime = &at
	m.tasks[id] = t
	return nil
}

func (s *memTasks) ListByLocationDay(_ context.Context, locationID uint, day string) ([]model.TaskAssignment, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.TaskAssignment
	for _, t := range m.tasks {
		if t.LocationID == locationID && t.Day == day {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memMovements mem

func (s *memMovements) ReplaceForEmployeeDay(_ context.Context, employeeID uint, day string, ms []model.LocationMovement) error {
	m := (*mem)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.movements[:0]
	for _, mv := range m.movements {
		if mv.EmployeeID != employeeID || mv.Day != day {
			kept = append(kept, mv)
		}
	}
	m.movements = kept
	for i := range ms {
		if ms[i].ID == 0 {
			ms[i].ID = m.id()
		}
		m.movements = append(m.movements, ms[i])
	}
	return nil
}

func (s *memMovements) ListByEmployeeDay(_ context.Context, employeeID uint, day string) ([]model.LocationMovement, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.LocationMovement
	for _, mv := range m.movements {
		if mv.EmployeeID == employeeID && mv.Day == day {
			out = append(out, mv)
		}
	}
	sortMovements(out)
	return out, nil
}

func (s *memMovements) ListByLocationDay(_ context.Context, locationID uint, day string) ([]model.LocationMovement, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.LocationMovement
	for _, mv := range m.movements {
		if mv.Day != day {
			continue
		}
		from := mv.FromLocationID != nil && *mv.FromLocationID == locationID
		to := mv.ToLocationID != nil && *mv.ToLocationID == locationID
		if from || to {
			out = append(out, mv)
		}
	}
	sortMovements(out)
	return out, nil
}

func (s *memMovements) ListByEmployeeRange(_ context.Context, employeeID uint, from, to string) ([]model.LocationMovement, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.LocationMovement
	for _, mv := range m.movements {
		if mv.EmployeeID == employeeID && mv.Day >= from && mv.Day <= to {
			out = append(out, mv)
		}
	}
	sortMovements(out)
	return out, nil
}

func sortMovements(ms []model.LocationMovement) {
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].Timestamp.Before(ms[j].Timestamp)
	})
}

type memRollups mem

func (s *memRollups) Save(_ context.Context, a *model.LocationAnalytics) error {
	m := (*mem)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rollups {
		if m.rollups[i].LocationID == a.LocationID && m.rollups[i].Day == a.Day {
			a.ID = m.rollups[i].ID
			m.rollups[i] = *a
			return nil
		}
	}
	if a.ID == 0 {
		a.ID = m.id()
	}
	m.rollups = append(m.rollups, *a)
	return nil
}

func (s *memRollups) Get(_ context.Context, locationID uint, day string) (*model.LocationAnalytics, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.rollups {
		if a.LocationID == locationID && a.Day == day {
			cp := a
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *memRollups) ListRange(_ context.Context, locationID uint, from, to string) ([]model.LocationAnalytics, error) {
	m := (*mem)(s)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.LocationAnalytics
	for _, a := range m.rollups {
		if a.LocationID == locationID && a.Day >= from && a.Day <= to {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}
