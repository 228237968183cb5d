package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"presence-track/internal/cache"
	"presence-track/internal/model"
	"presence-track/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBase = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type eventFixture struct {
	svc    *EventService
	stores *store.Stores
	cache  *cache.Memory
	clock  *time.Time
}

func newEventFixture(t *testing.T) *eventFixture {
	t.Helper()
	stores := store.NewMemStores()
	c := cache.NewMemory(5 * time.Minute)
	svc := NewEventService(stores, c, 2*time.Second, 30*time.Second)

	now := testBase
	svc.now = func() time.Time { return now }
	f := &eventFixture{svc: svc, stores: stores, cache: c, clock: &now}

	for _, e := range []model.Employee{
		{ID: 1, GivenName: "Ada", Surname: "Byron", Department: "ops", Active: true},
		{ID: 2, GivenName: "Max", Surname: "Born", Department: "ops", Active: true},
		{ID: 3, GivenName: "Ida", Surname: "Noddack", Department: "lab", Active: true},
	} {
		e := e
		require.NoError(t, stores.Employees.Create(context.Background(), &e))
	}
	return f
}

func (f *eventFixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func (f *eventFixture) append(t *testing.T, employeeID uint, typ model.EventType) *model.Event {
	t.Helper()
	ev, err := f.svc.Append(context.Background(), model.EventRequest{EmployeeID: employeeID, Type: typ})
	require.NoError(t, err)
	return ev
}

func TestCurrentStatusFollowsLatestClockEvent(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	resp, err := f.svc.CurrentStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.NeverClocked, resp.Status)

	f.append(t, 1, model.EventClockIn)
	resp, err = f.svc.CurrentStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ClockedIn, resp.Status)

	f.advance(4 * time.Hour)
	f.append(t, 1, model.EventClockOut)
	resp, err = f.svc.CurrentStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ClockedOut, resp.Status)
	require.NotNil(t, resp.LastEventTime)
	assert.Equal(t, testBase.Add(4*time.Hour), *resp.LastEventTime)
}

func TestRoomEventsDoNotAffectClockStatus(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	f.append(t, 1, model.EventClockIn)
	f.advance(time.Hour)
	loc := uint(7)
	_, err := f.svc.Append(ctx, model.EventRequest{EmployeeID: 1, Type: model.EventRoomCheckIn, LocationID: &loc})
	require.NoError(t, err)

	resp, err := f.svc.CurrentStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ClockedIn, resp.Status)
}

func TestAppendRejectsUnknownOrInactiveEmployee(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	_, err := f.svc.Append(ctx, model.EventRequest{EmployeeID: 99, Type: model.EventClockIn})
	assert.ErrorIs(t, err, model.ErrNotFound)

	gone := model.Employee{ID: 4, GivenName: "Tom", Surname: "Left", Active: false}
	require.NoError(t, f.stores.Employees.Create(ctx, &gone))
	_, err = f.svc.Append(ctx, model.EventRequest{EmployeeID: 4, Type: model.EventClockIn})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAppendRejectsFutureTimestamp(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	future := f.clock.Add(5 * time.Minute)
	_, err := f.svc.Append(ctx, model.EventRequest{EmployeeID: 1, Type: model.EventClockIn, Timestamp: &future})
	assert.ErrorIs(t, err, model.ErrInvalidTimestamp)

	// Inside the skew tolerance is fine.
	near := f.clock.Add(10 * time.Second)
	_, err = f.svc.Append(ctx, model.EventRequest{EmployeeID: 1, Type: model.EventClockIn, Timestamp: &near})
	assert.NoError(t, err)
}

func TestDebounceRejectsRapidToggle(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	f.append(t, 1, model.EventClockIn)
	f.advance(time.Second)
	_, err := f.svc.Append(ctx, model.EventRequest{EmployeeID: 1, Type: model.EventClockIn})
	assert.ErrorIs(t, err, model.ErrDuplicateSubmission)

	events, err := f.stores.Events.ListByEmployeeDay(ctx, 1, model.DayOf(testBase))
	require.NoError(t, err)
	assert.Len(t, events, 1, "log must contain exactly one clock-in")

	// After the window elapses the next toggle is accepted.
	f.advance(2 * time.Second)
	f.append(t, 1, model.EventClockOut)
}

func TestDebounceIsPerEmployee(t *testing.T) {
	f := newEventFixture(t)
	f.append(t, 1, model.EventClockIn)
	f.append(t, 2, model.EventClockIn)
}

func TestConcurrentTogglesAcceptExactlyOne(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Append(ctx, model.EventRequest{EmployeeID: 1, Type: model.EventClockIn})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			assert.ErrorIs(t, err, model.ErrDuplicateSubmission)
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestAppendInvalidatesCachedStatus(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	f.append(t, 1, model.EventClockIn)
	resp, err := f.svc.CurrentStatus(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, model.ClockedIn, resp.Status)

	f.advance(time.Minute)
	f.append(t, 1, model.EventClockOut)

	// The cached ClockedIn entry must be gone, not merely stale.
	resp, err = f.svc.CurrentStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ClockedOut, resp.Status)
}

func TestCurrentStatusBulk(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	f.append(t, 1, model.EventClockIn)
	f.advance(time.Minute)
	f.append(t, 2, model.EventClockIn)
	f.advance(time.Minute)
	f.append(t, 2, model.EventClockOut)

	resps, err := f.svc.CurrentStatusBulk(ctx, []uint{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, resps, 3)
	assert.Equal(t, model.ClockedIn, resps[0].Status)
	assert.Equal(t, model.ClockedOut, resps[1].Status)
	assert.Equal(t, model.NeverClocked, resps[2].Status)
}

func TestDaySummary(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	f.append(t, 1, model.EventClockIn)
	f.advance(time.Hour)
	f.append(t, 2, model.EventClockIn)
	f.advance(6 * time.Hour)
	f.append(t, 1, model.EventClockOut)

	sum, err := f.svc.DaySummary(ctx, model.DayOf(testBase))
	require.NoError(t, err)
	assert.Equal(t, 3, sum.TotalEvents)
	assert.Equal(t, 2, sum.ClockIns)
	assert.Equal(t, 1, sum.ClockOuts)
	assert.Equal(t, 2, sum.UniqueEmployees)
	assert.Equal(t, 2, sum.ByType[model.EventClockIn])
	assert.Equal(t, 1, sum.HourlyCounts[8])
}

func TestWorkedDurationPairsToggles(t *testing.T) {
	f := newEventFixture(t)
	ctx := context.Background()

	f.append(t, 1, model.EventClockIn)
	f.advance(3 * time.Hour)
	f.append(t, 1, model.EventClockOut)
	f.advance(time.Hour)
	f.append(t, 1, model.EventClockIn)
	f.advance(2 * time.Hour)
	f.append(t, 1, model.EventClockOut)
	f.advance(time.Hour)
	f.append(t, 1, model.EventClockIn) // still open, contributes nothing

	d, err := f.svc.WorkedDuration(ctx, 1, model.DayOf(testBase))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Hour, d)
}
