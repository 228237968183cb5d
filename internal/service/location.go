package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"presence-track/internal/logger"
	"presence-track/internal/model"
	"presence-track/internal/store"
)

// LocationService derives movements from the event log and rolls them up
// into per-location-per-day analytics. Both outputs are recomputable at any
// time; nothing here patches a rollup field in place.
type LocationService struct {
	events    store.EventStore
	locations store.LocationStore
	movements store.MovementStore
	tasks     store.TaskStore
	rollups   store.RollupStore

	now func() time.Time
}

func NewLocationService(s *store.Stores) *LocationService {
	return &LocationService{
		events:    s.Events,
		locations: s.Locations,
		movements: s.Movements,
		tasks:     s.Tasks,
		rollups:   s.Rollups,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// locationEffect is what one event does to an employee's current location.
type locationEffect struct {
	sets   bool
	to     *uint
	mtype  model.MovementType
	affect bool
}

func effectOf(ev model.Event) locationEffect {
	switch ev.Type {
	case model.EventRoomCheckIn:
		return locationEffect{sets: true, to: ev.LocationID, mtype: model.MovementRoom, affect: true}
	case model.EventMeetingStart:
		return locationEffect{sets: true, to: ev.LocationID, mtype: model.MovementMeeting, affect: true}
	case model.EventTaskAssignment:
		return locationEffect{sets: true, to: ev.LocationID, mtype: model.MovementTask, affect: true}
	case model.EventRoomCheckOut:
		return locationEffect{mtype: model.MovementRoom, affect: true}
	case model.EventMeetingEnd:
		return locationEffect{mtype: model.MovementMeeting, affect: true}
	case model.EventBreakStart:
		return locationEffect{mtype: model.MovementBreak, affect: true}
	case model.EventClockIn:
		return locationEffect{mtype: model.MovementClockIn, affect: true}
	case model.EventClockOut:
		return locationEffect{mtype: model.MovementClockOut, affect: true}
	}
	return locationEffect{}
}

// DeriveMovements recomputes one employee-day's movements from the event
// log and replaces the stored set. Events sharing a timestamp collapse into
// a single transition, so a checkout and a checkin stamped at the same
// instant read as one room-to-room move, not two.
func (s *LocationService) DeriveMovements(ctx context.Context, employeeID uint, day string) ([]model.LocationMovement, error) {
	events, err := s.events.ListByEmployeeDay(ctx, employeeID, day)
	if err != nil {
		return nil, err
	}

	var out []model.LocationMovement
	var current *uint
	var enteredAt time.Time

	i := 0
	for i < len(events) {
		ts := events[i].Timestamp
		next := current
		mtype := model.MovementType("")
		// Within one instant a set wins over a clear: a checkout stamped
		// together with a checkin refers to the room being left, not the
		// end state.
		cleared := false
		clearType := model.MovementType("")
		for ; i < len(events) && events[i].Timestamp.Equal(ts); i++ {
			eff := effectOf(events[i])
			if !eff.affect {
				continue
			}
			if eff.sets && eff.to != nil {
				next = eff.to
				mtype = eff.mtype
			} else if !eff.sets {
				cleared = true
				if clearType == "" {
					clearType = eff.mtype
				}
			}
		}
		if cleared && mtype == "" {
			next = nil
			mtype = clearType
		}
		if sameLocation(current, next) {
			continue
		}
		m := model.LocationMovement{
			EmployeeID:     employeeID,
			Day:            day,
			FromLocationID: current,
			ToLocationID:   next,
			Timestamp:      ts,
			Type:           mtype,
		}
		if current != nil {
			mins := int(ts.Sub(enteredAt).Minutes())
			m.DurationMinutes = &mins
		}
		out = append(out, m)
		current = next
		if next != nil {
			enteredAt = ts
		}
	}

	if err := s.movements.ReplaceForEmployeeDay(ctx, employeeID, day, out); err != nil {
		return nil, err
	}
	return out, nil
}

func sameLocation(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *LocationService) MovementsForEmployee(ctx context.Context, employeeID uint, day string) ([]model.LocationMovement, error) {
	return s.movements.ListByEmployeeDay(ctx, employeeID, day)
}

// occDelta is one occupancy change at an instant.
type occDelta struct {
	at    time.Time
	delta int
}

// Rollup recomputes the analytics row for one location-day from observed
// movements plus planned task assignments, and upserts it.
func (s *LocationService) Rollup(ctx context.Context, locationID uint, day string) (*model.LocationAnalytics, error) {
	loc, err := s.locations.Get(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("location %d: %w", locationID, err)
	}
	moves, err := s.movements.ListByLocationDay(ctx, locationID, day)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByLocationDay(ctx, locationID, day)
	if err != nil {
		return nil, err
	}

	dayStart, _ := time.Parse(model.DayFormat, day)
	dayEnd := dayStart.Add(24 * time.Hour)

	a := &model.LocationAnalytics{LocationID: locationID, Day: day}
	var deltas []occDelta
	hourly := map[int]int{}

	// Paired stays per employee; an arrival with no departure by day-end
	// counts toward occupancy and arrivals but not the stay average.
	open := map[uint]time.Time{}
	var stayMinutes []float64

	for _, m := range moves {
		a.TotalMovements++
		if m.ToLocationID != nil && *m.ToLocationID == locationID {
			a.Arrivals++
			hourly[m.Timestamp.UTC().Hour()]++
			deltas = append(deltas, occDelta{at: m.Timestamp, delta: +1})
			open[m.EmployeeID] = m.Timestamp
		}
		if m.FromLocationID != nil && *m.FromLocationID == locationID {
			a.Departures++
			deltas = append(deltas, occDelta{at: m.Timestamp, delta: -1})
			if in, ok := open[m.EmployeeID]; ok {
				stayMinutes = append(stayMinutes, m.Timestamp.Sub(in).Minutes())
				delete(open, m.EmployeeID)
			}
		}
	}

	// Planned occupancy: an untimed assignment holds the slot all day.
	for _, t := range tasks {
		start, end := dayStart, dayEnd
		if t.StartTime != nil {
			start = t.StartTime.UTC()
		}
		if t.EndTime != nil {
			end = t.EndTime.UTC()
		}
		deltas = append(deltas, occDelta{at: start, delta: +1})
		deltas = append(deltas, occDelta{at: end, delta: -1})
	}

	sort.SliceStable(deltas, func(i, j int) bool { return deltas[i].at.Before(deltas[j].at) })
	running, peak := 0, 0
	for _, d := range deltas {
		running += d.delta
		if running > peak {
			peak = running
		}
	}
	a.Occupancy = running
	a.PeakOccupancy = peak

	// Over-100% is a real signal of over-assignment, so no clamp here.
	if loc.Capacity > 0 {
		a.UtilizationRate = float64(peak) / float64(loc.Capacity) * 100
	}

	if len(stayMinutes) > 0 {
		var sum float64
		for _, m := range stayMinutes {
			sum += m
		}
		a.AvgStayMinutes = sum / float64(len(stayMinutes))
	}

	for h := 1; h < 24; h++ {
		if hourly[h] > hourly[a.PeakHour] {
			a.PeakHour = h
		}
	}
	a.HourlyBuckets = hourly
	if buf, err := json.Marshal(hourly); err == nil {
		a.HourlyArrivals = string(buf)
	}

	a.ComputedAt = s.now()
	if err := s.rollups.Save(ctx, a); err != nil {
		return nil, err
	}
	logger.Debug("rollup recomputed",
		"location", locationID, "day", day, "peak", peak, "utilization", a.UtilizationRate)
	return a, nil
}

// Analytics recomputes the rollup on every read. The stored row is a cache
// of a deterministic function; serving one that predates newer movements or
// assignments would be a stale read, so reads pay the recompute instead.
func (s *LocationService) Analytics(ctx context.Context, locationID uint, day string) (*model.LocationAnalytics, error) {
	return s.Rollup(ctx, locationID, day)
}

// AssignTask records a planned occupancy for an employee at a location on a
// day; one assignment per (employee, location, day).
func (s *LocationService) AssignTask(ctx context.Context, t *model.TaskAssignment) error {
	if _, err := s.locations.Get(ctx, t.LocationID); err != nil {
		return fmt.Errorf("location %d: %w", t.LocationID, err)
	}
	if t.Day == "" {
		t.Day = model.DayOf(s.now())
	}
	t.CreatedAt = s.now()
	return s.tasks.Create(ctx, t)
}

func (s *LocationService) CompleteTask(ctx context.Context, id uint) (*model.TaskAssignment, error) {
	if err := s.tasks.Complete(ctx, id, s.now()); err != nil {
		return nil, err
	}
	return s.tasks.Get(ctx, id)
}
