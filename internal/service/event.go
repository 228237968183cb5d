package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"presence-track/internal/cache"
	"presence-track/internal/logger"
	"presence-track/internal/model"
	"presence-track/internal/store"

	"github.com/google/uuid"
)

// EventService owns the append-only event log and the clock-state
// projection over it.
type EventService struct {
	events    store.EventStore
	employees store.EmployeeStore
	cache     cache.StatusCache
	locks     *keyedMutex

	debounce time.Duration
	skew     time.Duration
	now      func() time.Time
}

func NewEventService(s *store.Stores, c cache.StatusCache, debounce, skew time.Duration) *EventService {
	return &EventService{
		events:    s.Events,
		employees: s.Employees,
		cache:     c,
		locks:     newKeyedMutex(),
		debounce:  debounce,
		skew:      skew,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Append validates and writes one event, then invalidates the employee's
// cached clock state. For clock toggles the debounce check and the insert
// run under a per-employee lock, so two rapid toggles can never both land.
func (s *EventService) Append(ctx context.Context, req model.EventRequest) (*model.Event, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", req.Type)
	}
	emp, err := s.employees.Get(ctx, req.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("employee %d: %w", req.EmployeeID, err)
	}
	if !emp.Active {
		return nil, fmt.Errorf("employee %d: %w", req.EmployeeID, model.ErrNotFound)
	}

	now := s.now()
	ts := now
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}
	if ts.After(now.Add(s.skew)) {
		return nil, model.ErrInvalidTimestamp
	}

	unlock := s.locks.Lock(strconv.FormatUint(uint64(req.EmployeeID), 10))
	defer unlock()

	if req.Type.IsClockToggle() {
		// Both sides of the delta are UTC instants; mixing time references
		// here caused false accepts in an earlier system and is the reason
		// s.now is the only clock in this service.
		last, err := s.events.LatestClockEvent(ctx, req.EmployeeID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		if last != nil && now.Sub(last.Timestamp) < s.debounce {
			logger.Warn("clock toggle debounced",
				"employee", req.EmployeeID, "last_event", last.Timestamp)
			return nil, model.ErrDuplicateSubmission
		}
	}

	ev := &model.Event{
		ID:         uuid.NewString(),
		EmployeeID: req.EmployeeID,
		Type:       req.Type,
		LocationID: req.LocationID,
		Timestamp:  ts,
		Actor:      req.Actor,
		CreatedAt:  now,
	}
	if err := s.events.Insert(ctx, ev); err != nil {
		return nil, err
	}
	s.cache.Invalidate(req.EmployeeID)

	logger.Info("event appended",
		"employee", req.EmployeeID, "type", req.Type, "ts", ts)
	return ev, nil
}

// CurrentStatus answers "is this employee clocked in right now" from the
// cache, recomputing from the log on a miss.
func (s *EventService) CurrentStatus(ctx context.Context, employeeID uint) (model.StatusResponse, error) {
	gen := s.cache.Begin(employeeID)
	if e, ok := s.cache.Get(employeeID); ok {
		return model.StatusResponse{EmployeeID: employeeID, Status: e.Status, LastEventTime: e.LastEventTime}, nil
	}

	ev, err := s.events.LatestClockEvent(ctx, employeeID)
	if errors.Is(err, model.ErrNotFound) {
		e := cache.Entry{Status: model.NeverClocked}
		s.cache.SetIfCurrent(employeeID, gen, e)
		return model.StatusResponse{EmployeeID: employeeID, Status: model.NeverClocked}, nil
	}
	if err != nil {
		return model.StatusResponse{}, err
	}

	e := cache.Entry{Status: statusOf(ev.Type), LastEventTime: &ev.Timestamp}
	s.cache.SetIfCurrent(employeeID, gen, e)
	return model.StatusResponse{EmployeeID: employeeID, Status: e.Status, LastEventTime: e.LastEventTime}, nil
}

// CurrentStatusBulk resolves many employees with one latest-per-employee
// pass over the log for the cache misses. Dashboards render hundreds of
// employees per page; one lookup each does not survive that.
func (s *EventService) CurrentStatusBulk(ctx context.Context, employeeIDs []uint) ([]model.StatusResponse, error) {
	out := make([]model.StatusResponse, 0, len(employeeIDs))
	var misses []uint
	gens := make(map[uint]uint64, len(employeeIDs))
	hits := make(map[uint]model.StatusResponse, len(employeeIDs))

	for _, id := range employeeIDs {
		gens[id] = s.cache.Begin(id)
		if e, ok := s.cache.Get(id); ok {
			hits[id] = model.StatusResponse{EmployeeID: id, Status: e.Status, LastEventTime: e.LastEventTime}
		} else {
			misses = append(misses, id)
		}
	}

	latest, err := s.events.LatestClockEvents(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, id := range misses {
		var resp model.StatusResponse
		if ev, ok := latest[id]; ok {
			resp = model.StatusResponse{EmployeeID: id, Status: statusOf(ev.Type), LastEventTime: &ev.Timestamp}
			s.cache.SetIfCurrent(id, gens[id], cache.Entry{Status: resp.Status, LastEventTime: resp.LastEventTime})
		} else {
			resp = model.StatusResponse{EmployeeID: id, Status: model.NeverClocked}
			s.cache.SetIfCurrent(id, gens[id], cache.Entry{Status: model.NeverClocked})
		}
		hits[id] = resp
	}

	for _, id := range employeeIDs {
		out = append(out, hits[id])
	}
	return out, nil
}

func statusOf(t model.EventType) model.ClockStatus {
	if t == model.EventClockIn {
		return model.ClockedIn
	}
	return model.ClockedOut
}

// DaySummary aggregates one day of events for dashboards.
func (s *EventService) DaySummary(ctx context.Context, day string) (*model.DaySummary, error) {
	events, err := s.events.ListByDay(ctx, day)
	if err != nil {
		return nil, err
	}
	sum := &model.DaySummary{
		Day:          day,
		ByType:       map[model.EventType]int{},
		HourlyCounts: map[int]int{},
	}
	seen := map[uint]bool{}
	for _, ev := range events {
		sum.TotalEvents++
		sum.ByType[ev.Type]++
		sum.HourlyCounts[ev.Timestamp.UTC().Hour()]++
		seen[ev.EmployeeID] = true
		switch ev.Type {
		case model.EventClockIn:
			sum.ClockIns++
		case model.EventClockOut:
			sum.ClockOuts++
		}
	}
	sum.UniqueEmployees = len(seen)
	return sum, nil
}

// WorkedDuration pairs Clock In/Out events within the day and sums the
// spans. An unmatched Clock In contributes nothing.
func (s *EventService) WorkedDuration(ctx context.Context, employeeID uint, day string) (time.Duration, error) {
	events, err := s.events.ListByEmployeeDay(ctx, employeeID, day)
	if err != nil {
		return 0, err
	}
	var total time.Duration
	var openIn *time.Time
	for _, ev := range events {
		switch ev.Type {
		case model.EventClockIn:
			t := ev.Timestamp
			openIn = &t
		case model.EventClockOut:
			if openIn != nil {
				total += ev.Timestamp.Sub(*openIn)
				openIn = nil
			}
		}
	}
	return total, nil
}
