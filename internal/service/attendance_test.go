package service

import (
	"context"
	"testing"
	"time"

	"presence-track/internal/config"
	"presence-track/internal/model"
	"presence-track/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttendanceFixture(t *testing.T) (*AttendanceService, *store.Stores) {
	t.Helper()
	stores := store.NewMemStores()
	svc := NewAttendanceService(stores, config.AttendanceConfig{
		LateAfter:    "09:00",
		EarlyBefore:  "17:00",
		FullDayHours: 7.5,
	})
	svc.now = func() time.Time { return testBase.Add(12 * time.Hour) }
	return svc, stores
}

func insertClock(t *testing.T, stores *store.Stores, employeeID uint, typ model.EventType, at time.Time) {
	t.Helper()
	err := stores.Events.Insert(context.Background(), &model.Event{
		ID: at.Format(time.RFC3339Nano), EmployeeID: employeeID, Type: typ, Timestamp: at,
	})
	require.NoError(t, err)
}

func dayAt(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func TestTouchDerivesArrivalAndDeparture(t *testing.T) {
	svc, stores := newAttendanceFixture(t)
	day := model.DayOf(testBase)

	insertClock(t, stores, 1, model.EventClockIn, dayAt(8, 58))
	insertClock(t, stores, 1, model.EventClockOut, dayAt(17, 5))

	rec, err := svc.Touch(context.Background(), 1, day)
	require.NoError(t, err)
	require.NotNil(t, rec.ArrivalTime)
	require.NotNil(t, rec.DepartureTime)
	assert.Equal(t, dayAt(8, 58), *rec.ArrivalTime)
	assert.Equal(t, dayAt(17, 5), *rec.DepartureTime)
	assert.False(t, rec.LateArrival)
	assert.False(t, rec.EarlyDeparture)
	assert.InDelta(t, 8.12, rec.WorkedHours, 0.01)
	assert.False(t, rec.ComputedAt.IsZero())
}

func TestStatusClassification(t *testing.T) {
	ctx := context.Background()
	day := model.DayOf(testBase)

	edit := func(employeeID uint, field, value string) model.FieldEdit {
		return model.FieldEdit{EmployeeID: employeeID, Day: day, Field: field, Value: value}
	}
	fillAll := func(svc *AttendanceService, employeeID uint) {
		res, err := svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: []model.FieldEdit{
			edit(employeeID, "standup", "YES"),
			edit(employeeID, "lunch_slot", "12:30"),
			edit(employeeID, "left_on_time", "YES"),
			edit(employeeID, "returned_on_time", "YES"),
		}})
		require.NoError(t, err)
		require.Empty(t, res.Failed)
	}

	t.Run("no events and no fields is absent", func(t *testing.T) {
		svc, _ := newAttendanceFixture(t)
		rec, err := svc.Touch(ctx, 1, day)
		require.NoError(t, err)
		assert.Equal(t, model.StatusAbsent, rec.Status)
		assert.Zero(t, rec.AttendanceScore)
	})

	t.Run("clocked in but fields missing is incomplete", func(t *testing.T) {
		svc, stores := newAttendanceFixture(t)
		insertClock(t, stores, 1, model.EventClockIn, dayAt(8, 30))
		rec, err := svc.Touch(ctx, 1, day)
		require.NoError(t, err)
		assert.Equal(t, model.StatusIncomplete, rec.Status)
	})

	t.Run("complete but late arrival is late", func(t *testing.T) {
		svc, stores := newAttendanceFixture(t)
		insertClock(t, stores, 1, model.EventClockIn, dayAt(9, 30))
		insertClock(t, stores, 1, model.EventClockOut, dayAt(17, 30))
		fillAll(svc, 1)
		rec, err := svc.Get(ctx, 1, day)
		require.NoError(t, err)
		assert.Equal(t, model.StatusLate, rec.Status)
		assert.True(t, rec.LateArrival)
	})

	t.Run("complete and on time is present", func(t *testing.T) {
		svc, stores := newAttendanceFixture(t)
		insertClock(t, stores, 1, model.EventClockIn, dayAt(8, 30))
		insertClock(t, stores, 1, model.EventClockOut, dayAt(17, 30))
		fillAll(svc, 1)
		rec, err := svc.Get(ctx, 1, day)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPresent, rec.Status)
	})
}

func TestCompletionPercentIsMonotonic(t *testing.T) {
	svc, _ := newAttendanceFixture(t)
	ctx := context.Background()
	day := model.DayOf(testBase)

	steps := []struct {
		field, value string
		want         float64
	}{
		{"standup", "YES", 25},
		{"lunch_slot", "12:30", 50},
		{"left_on_time", "YES", 75},
		{"returned_on_time", "NO", 100},
	}
	prev := 0.0
	for _, s := range steps {
		res, err := svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: []model.FieldEdit{
			{EmployeeID: 1, Day: day, Field: s.field, Value: s.value},
		}})
		require.NoError(t, err)
		require.Len(t, res.Updated, 1)
		got := res.Updated[0].CompletionPercent
		assert.Equal(t, s.want, got)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

// A batch touching an employee-day with no record yet creates it with just
// those fields filled; existing records gain the field.
func TestBatchCreatesMissingRecords(t *testing.T) {
	svc, _ := newAttendanceFixture(t)
	ctx := context.Background()
	day := model.DayOf(testBase)

	for _, id := range []uint{1, 3} {
		_, err := svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: []model.FieldEdit{
			{EmployeeID: id, Day: day, Field: "lunch_slot", Value: "12:00"},
		}})
		require.NoError(t, err)
	}

	var edits []model.FieldEdit
	for _, id := range []uint{1, 2, 3} {
		edits = append(edits, model.FieldEdit{EmployeeID: id, Day: day, Field: "standup", Value: "YES"})
	}
	res, err := svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: edits})
	require.NoError(t, err)
	require.Empty(t, res.Failed)
	require.Len(t, res.Updated, 3)

	rec2, err := svc.Get(ctx, 2, day)
	require.NoError(t, err)
	assert.Equal(t, model.ChoiceYes, rec2.Standup)
	assert.Equal(t, 25.0, rec2.CompletionPercent)

	rec1, err := svc.Get(ctx, 1, day)
	require.NoError(t, err)
	assert.Equal(t, 50.0, rec1.CompletionPercent)
}

// One bad edit sinks that employee-day's whole sub-batch and nothing else.
func TestBatchIsAtomicPerEmployeeDay(t *testing.T) {
	svc, _ := newAttendanceFixture(t)
	ctx := context.Background()
	day := model.DayOf(testBase)

	res, err := svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: []model.FieldEdit{
		{EmployeeID: 1, Day: day, Field: "standup", Value: "YES"},
		{EmployeeID: 1, Day: day, Field: "lunch_slot", Value: "not-a-time"},
		{EmployeeID: 2, Day: day, Field: "standup", Value: "YES"},
	}})
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, uint(1), res.Failed[0].EmployeeID)
	require.Len(t, res.Updated, 1)
	assert.Equal(t, uint(2), res.Updated[0].EmployeeID)

	// Employee 1's valid standup edit must not have been applied.
	_, err = svc.Get(ctx, 1, day)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBatchRejectsUnknownFieldAndValue(t *testing.T) {
	svc, _ := newAttendanceFixture(t)
	ctx := context.Background()
	day := model.DayOf(testBase)

	res, err := svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: []model.FieldEdit{
		{EmployeeID: 1, Day: day, Field: "mood", Value: "YES"},
	}})
	require.NoError(t, err)
	assert.Len(t, res.Failed, 1)

	res, err = svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: []model.FieldEdit{
		{EmployeeID: 1, Day: day, Field: "standup", Value: "MAYBE"},
	}})
	require.NoError(t, err)
	assert.Len(t, res.Failed, 1)
}

func TestEditsAreLastWriteWinsPerField(t *testing.T) {
	svc, _ := newAttendanceFixture(t)
	ctx := context.Background()
	day := model.DayOf(testBase)

	newer := dayAt(14, 0)
	older := dayAt(13, 0)

	_, err := svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: []model.FieldEdit{
		{EmployeeID: 1, Day: day, Field: "standup", Value: "YES", At: &newer},
	}})
	require.NoError(t, err)

	// A racing edit stamped earlier arrives afterwards; it must lose.
	_, err = svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: []model.FieldEdit{
		{EmployeeID: 1, Day: day, Field: "standup", Value: "NO", At: &older},
	}})
	require.NoError(t, err)

	rec, err := svc.Get(ctx, 1, day)
	require.NoError(t, err)
	assert.Equal(t, model.ChoiceYes, rec.Standup)
}

func TestAttendanceScoreDeductions(t *testing.T) {
	ctx := context.Background()
	day := model.DayOf(testBase)

	t.Run("late early and short day stack", func(t *testing.T) {
		svc, stores := newAttendanceFixture(t)
		insertClock(t, stores, 1, model.EventClockIn, dayAt(9, 30))
		insertClock(t, stores, 1, model.EventClockOut, dayAt(16, 0))
		rec, err := svc.Touch(ctx, 1, day)
		require.NoError(t, err)
		// 100 - 15 late - 10 early - 5 for the missing hour
		assert.InDelta(t, 70, rec.AttendanceScore, 0.01)
		assert.False(t, rec.Problematic)
	})

	t.Run("clean long day earns the bonus but clamps at 100", func(t *testing.T) {
		svc, stores := newAttendanceFixture(t)
		insertClock(t, stores, 1, model.EventClockIn, dayAt(8, 30))
		insertClock(t, stores, 1, model.EventClockOut, dayAt(17, 0))
		rec, err := svc.Touch(ctx, 1, day)
		require.NoError(t, err)
		assert.Equal(t, 100.0, rec.AttendanceScore)
	})

	t.Run("very short day stacks every deduction", func(t *testing.T) {
		svc, stores := newAttendanceFixture(t)
		insertClock(t, stores, 1, model.EventClockIn, dayAt(9, 30))
		insertClock(t, stores, 1, model.EventClockOut, dayAt(9, 45))
		rec, err := svc.Touch(ctx, 1, day)
		require.NoError(t, err)
		// 100 - 15 late - 10 early - 36.25 for 7.25 missing hours
		assert.InDelta(t, 38.75, rec.AttendanceScore, 0.01)
	})
}

// A day is problematic once two or more choice fields read NO or LATE.
func TestProblematicDayMarker(t *testing.T) {
	svc, _ := newAttendanceFixture(t)
	ctx := context.Background()
	day := model.DayOf(testBase)

	res, err := svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: []model.FieldEdit{
		{EmployeeID: 1, Day: day, Field: "left_on_time", Value: "NO"},
	}})
	require.NoError(t, err)
	require.Len(t, res.Updated, 1)
	assert.False(t, res.Updated[0].Problematic, "one issue is not enough")

	res, err = svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: []model.FieldEdit{
		{EmployeeID: 1, Day: day, Field: "returned_on_time", Value: "LATE"},
	}})
	require.NoError(t, err)
	require.Len(t, res.Updated, 1)
	assert.True(t, res.Updated[0].Problematic)

	// YES answers never count as issues.
	res, err = svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: []model.FieldEdit{
		{EmployeeID: 2, Day: day, Field: "standup", Value: "YES"},
		{EmployeeID: 2, Day: day, Field: "left_on_time", Value: "YES"},
		{EmployeeID: 2, Day: day, Field: "returned_on_time", Value: "YES"},
	}})
	require.NoError(t, err)
	require.Len(t, res.Updated, 1)
	assert.False(t, res.Updated[0].Problematic)
}

func TestTouchPreservesManualFields(t *testing.T) {
	svc, stores := newAttendanceFixture(t)
	ctx := context.Background()
	day := model.DayOf(testBase)

	_, err := svc.ApplyBatch(ctx, model.BatchEditRequest{Edits: []model.FieldEdit{
		{EmployeeID: 1, Day: day, Field: "standup", Value: "YES"},
	}})
	require.NoError(t, err)

	insertClock(t, stores, 1, model.EventClockIn, dayAt(8, 30))
	rec, err := svc.Touch(ctx, 1, day)
	require.NoError(t, err)
	assert.Equal(t, model.ChoiceYes, rec.Standup)
	assert.NotNil(t, rec.ArrivalTime)
}
