package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"presence-track/internal/config"
	"presence-track/internal/logger"
	"presence-track/internal/model"
	"presence-track/internal/store"

	"github.com/go-playground/validator/v10"
)

// AttendanceService materializes the per-employee-per-day record. All
// derived fields are rewritten whole on every Touch; manual fields only
// change through ApplyBatch.
type AttendanceService struct {
	records store.RecordStore
	events  store.EventStore
	locks   *keyedMutex

	validate *validator.Validate
	cfg      config.AttendanceConfig
	now      func() time.Time
}

func NewAttendanceService(s *store.Stores, cfg config.AttendanceConfig) *AttendanceService {
	return &AttendanceService{
		records:  s.Records,
		events:   s.Events,
		locks:    newKeyedMutex(),
		validate: validator.New(),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Touch recomputes the record for one employee-day from its events,
// creating it if this is the first touch. Manual fields survive.
func (s *AttendanceService) Touch(ctx context.Context, employeeID uint, day string) (*model.AttendanceRecord, error) {
	unlock := s.locks.Lock(dayKey(employeeID, day))
	defer unlock()
	return s.touchLocked(ctx, employeeID, day)
}

func (s *AttendanceService) touchLocked(ctx context.Context, employeeID uint, day string) (*model.AttendanceRecord, error) {
	rec, err := s.loadOrNew(ctx, employeeID, day)
	if err != nil {
		return nil, err
	}
	if err := s.recompute(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.records.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *AttendanceService) loadOrNew(ctx context.Context, employeeID uint, day string) (*model.AttendanceRecord, error) {
	rec, err := s.records.Get(ctx, employeeID, day)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	return &model.AttendanceRecord{EmployeeID: employeeID, Day: day}, nil
}

// recompute rewrites every derived field from the day's events and the
// current manual fields. It is the only writer of those fields.
func (s *AttendanceService) recompute(ctx context.Context, rec *model.AttendanceRecord) error {
	events, err := s.events.ListByEmployeeDay(ctx, rec.EmployeeID, rec.Day)
	if err != nil {
		return err
	}

	rec.ArrivalTime = nil
	rec.DepartureTime = nil
	var worked time.Duration
	var openIn *time.Time
	for _, ev := range events {
		switch ev.Type {
		case model.EventClockIn:
			t := ev.Timestamp
			if rec.ArrivalTime == nil {
				rec.ArrivalTime = &t
			}
			openIn = &t
		case model.EventClockOut:
			t := ev.Timestamp
			rec.DepartureTime = &t
			if openIn != nil {
				worked += ev.Timestamp.Sub(*openIn)
				openIn = nil
			}
		}
	}
	rec.WorkedHours = worked.Hours()

	rec.LateArrival = rec.ArrivalTime != nil && afterClock(*rec.ArrivalTime, s.cfg.LateAfter)
	rec.EarlyDeparture = rec.DepartureTime != nil && beforeClock(*rec.DepartureTime, s.cfg.EarlyBefore)

	rec.CompletionPercent = float64(rec.FilledFieldCount()) / model.TrackedFieldCount * 100
	rec.Status = classify(rec)
	rec.AttendanceScore = s.score(rec)
	rec.Problematic = rec.IssueCount() >= 2
	rec.ComputedAt = s.now()
	return nil
}

func classify(rec *model.AttendanceRecord) model.RecordStatus {
	switch {
	case rec.ArrivalTime == nil && rec.FilledFieldCount() == 0:
		return model.StatusAbsent
	case rec.CompletionPercent < 100:
		return model.StatusIncomplete
	case rec.LateArrival:
		return model.StatusLate
	default:
		return model.StatusPresent
	}
}

// score grades the day 0-100: deductions for late arrival, early departure
// and hours short of a full day, a small bonus for a clean long day.
func (s *AttendanceService) score(rec *model.AttendanceRecord) float64 {
	if rec.ArrivalTime == nil {
		return 0
	}
	score := 100.0
	if rec.LateArrival {
		score -= 15
	}
	if rec.EarlyDeparture {
		score -= 10
	}
	if rec.WorkedHours < s.cfg.FullDayHours {
		score -= (s.cfg.FullDayHours - rec.WorkedHours) * 5
	}
	if !rec.LateArrival && !rec.EarlyDeparture && rec.WorkedHours >= 8 {
		score += 5
	}
	return math.Min(100, math.Max(0, score))
}

// ApplyBatch applies field edits grouped per employee-day. Each group is
// all-or-nothing: validation runs for the whole group before any field in
// it is written, and the record recomputes once per group.
func (s *AttendanceService) ApplyBatch(ctx context.Context, req model.BatchEditRequest) (*model.BatchEditResult, error) {
	type group struct {
		employeeID uint
		day        string
		edits      []model.FieldEdit
	}
	var order []string
	groups := map[string]*group{}
	for _, e := range req.Edits {
		k := dayKey(e.EmployeeID, e.Day)
		g, ok := groups[k]
		if !ok {
			g = &group{employeeID: e.EmployeeID, day: e.Day}
			groups[k] = g
			order = append(order, k)
		}
		g.edits = append(g.edits, e)
	}

	res := &model.BatchEditResult{}
	for _, k := range order {
		g := groups[k]
		rec, err := s.applyGroup(ctx, g.employeeID, g.day, g.edits)
		if err != nil {
			res.Failed = append(res.Failed, model.BatchEditFailure{
				EmployeeID: g.employeeID, Day: g.day, Reason: err.Error(),
			})
			continue
		}
		res.Updated = append(res.Updated, *rec)
	}
	if len(res.Failed) > 0 {
		logger.Warn("batch edit partially failed",
			"updated", len(res.Updated), "failed", len(res.Failed))
	}
	return res, nil
}

func (s *AttendanceService) applyGroup(ctx context.Context, employeeID uint, day string, edits []model.FieldEdit) (*model.AttendanceRecord, error) {
	for _, e := range edits {
		if err := s.validate.Struct(e); err != nil {
			return nil, fmt.Errorf("field %s: %w", e.Field, err)
		}
		if err := validateValue(e); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(dayKey(employeeID, day))
	defer unlock()

	rec, err := s.loadOrNew(ctx, employeeID, day)
	if err != nil {
		return nil, err
	}
	for _, e := range edits {
		at := s.now()
		if e.At != nil {
			at = e.At.UTC()
		}
		applyEdit(rec, e, at)
	}
	if err := s.recompute(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.records.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func validateValue(e model.FieldEdit) error {
	if e.Field == "lunch_slot" {
		if _, err := time.Parse("15:04", e.Value); err != nil {
			return fmt.Errorf("lunch_slot %q is not HH:MM", e.Value)
		}
		return nil
	}
	if !model.AttendanceChoice(e.Value).Valid() {
		return fmt.Errorf("value %q is not a valid choice", e.Value)
	}
	return nil
}

// applyEdit writes one field if the edit is not older than the one already
// applied to that field.
func applyEdit(rec *model.AttendanceRecord, e model.FieldEdit, at time.Time) {
	newer := func(prev *time.Time) bool { return prev == nil || !at.Before(*prev) }
	switch e.Field {
	case "standup":
		if newer(rec.StandupSetAt) {
			rec.Standup = model.AttendanceChoice(e.Value)
			rec.StandupSetAt = &at
		}
	case "lunch_slot":
		if newer(rec.LunchSlotSetAt) {
			rec.LunchSlot = e.Value
			rec.LunchSlotSetAt = &at
		}
	case "left_on_time":
		if newer(rec.LeftOnTimeSetAt) {
			rec.LeftOnTime = model.AttendanceChoice(e.Value)
			rec.LeftOnTimeSetAt = &at
		}
	case "returned_on_time":
		if newer(rec.ReturnedOnTimeSetAt) {
			rec.ReturnedOnTime = model.AttendanceChoice(e.Value)
			rec.ReturnedOnTimeSetAt = &at
		}
	}
}

// Get returns the stored record without recomputing.
func (s *AttendanceService) Get(ctx context.Context, employeeID uint, day string) (*model.AttendanceRecord, error) {
	return s.records.Get(ctx, employeeID, day)
}

func (s *AttendanceService) ListRange(ctx context.Context, from, to string, employeeIDs []uint) ([]model.AttendanceRecord, error) {
	return s.records.ListRange(ctx, from, to, employeeIDs)
}

func dayKey(employeeID uint, day string) string {
	return fmt.Sprintf("%d/%s", employeeID, day)
}

// afterClock reports whether t's time of day is strictly after the "HH:MM"
// threshold, compared in UTC.
func afterClock(t time.Time, hhmm string) bool {
	h, m := parseClock(hhmm)
	u := t.UTC()
	return u.Hour()*60+u.Minute() > h*60+m
}

func beforeClock(t time.Time, hhmm string) bool {
	h, m := parseClock(hhmm)
	u := t.UTC()
	return u.Hour()*60+u.Minute() < h*60+m
}

func parseClock(hhmm string) (int, int) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, 0
	}
	return t.Hour(), t.Minute()
}
