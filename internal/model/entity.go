package model

import "time"

// DayFormat is the canonical calendar-day layout. Days are always derived
// from UTC timestamps so a record and its events can never disagree about
// which day they belong to.
const DayFormat = "2006-01-02"

// DayOf returns the calendar day an instant falls on.
func DayOf(t time.Time) string { return t.UTC().Format(DayFormat) }

type EventType string

const (
	EventClockIn        EventType = "CLOCK_IN"
	EventClockOut       EventType = "CLOCK_OUT"
	EventRoomCheckIn    EventType = "ROOM_CHECK_IN"
	EventRoomCheckOut   EventType = "ROOM_CHECK_OUT"
	EventTaskAssignment EventType = "TASK_ASSIGNMENT"
	EventTaskCompletion EventType = "TASK_COMPLETION"
	EventBreakStart     EventType = "BREAK_START"
	EventBreakEnd       EventType = "BREAK_END"
	EventMeetingStart   EventType = "MEETING_START"
	EventMeetingEnd     EventType = "MEETING_END"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventClockIn, EventClockOut, EventRoomCheckIn, EventRoomCheckOut,
		EventTaskAssignment, EventTaskCompletion, EventBreakStart, EventBreakEnd,
		EventMeetingStart, EventMeetingEnd:
		return true
	}
	return false
}

// IsClockToggle reports whether t flips the clocked-in state. Only these
// events feed the clock-state projection and the debounce guard.
func (t EventType) IsClockToggle() bool {
	return t == EventClockIn || t == EventClockOut
}

// Event is an immutable presence fact. Rows are append-only: nothing in the
// codebase updates or deletes an event after insert.
type Event struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	EmployeeID uint      `gorm:"index:idx_employee_ts;not null" json:"employee_id"`
	Type       EventType `gorm:"size:20;not null" json:"type"`
	LocationID *uint     `json:"location_id,omitempty"`
	Timestamp  time.Time `gorm:"index:idx_employee_ts;not null" json:"timestamp"`
	Actor      string    `gorm:"size:64" json:"actor"`
	CreatedAt  time.Time `json:"created_at"`
}

type Employee struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	GivenName  string `gorm:"size:255;uniqueIndex:uk_name" json:"given_name"`
	Surname    string `gorm:"size:255;uniqueIndex:uk_name" json:"surname"`
	Department string `gorm:"size:64;index" json:"department"`
	CardNumber string `gorm:"size:64" json:"card_number"`
	Active     bool   `gorm:"default:true" json:"active"`
}

type LocationType string

const (
	LocationSecurity    LocationType = "SECURITY"
	LocationWorkstation LocationType = "WORKSTATION"
	LocationTaskRoom    LocationType = "TASK"
	LocationMeetingRoom LocationType = "MEETING"
	LocationStorage     LocationType = "STORAGE"
)

type Location struct {
	ID       uint         `gorm:"primaryKey" json:"id"`
	Name     string       `gorm:"size:255;uniqueIndex" json:"name"`
	Type     LocationType `gorm:"size:20;default:WORKSTATION" json:"type"`
	Capacity int          `json:"capacity"`
	Active   bool         `gorm:"default:true" json:"active"`
}

// AttendanceChoice is the value set for the manually entered fields.
type AttendanceChoice string

const (
	ChoiceYes         AttendanceChoice = "YES"
	ChoiceNo          AttendanceChoice = "NO"
	ChoiceAbsent      AttendanceChoice = "ABSENT"
	ChoiceLate        AttendanceChoice = "LATE"
	ChoiceAppointment AttendanceChoice = "APPOINTMENT"
)

func (c AttendanceChoice) Valid() bool {
	switch c {
	case ChoiceYes, ChoiceNo, ChoiceAbsent, ChoiceLate, ChoiceAppointment:
		return true
	}
	return false
}

// Issue reports whether the choice counts as an attendance issue.
func (c AttendanceChoice) Issue() bool {
	return c == ChoiceNo || c == ChoiceLate
}

type RecordStatus string

const (
	StatusAbsent     RecordStatus = "ABSENT"
	StatusIncomplete RecordStatus = "INCOMPLETE"
	StatusLate       RecordStatus = "LATE"
	StatusPresent    RecordStatus = "PRESENT"
)

// TrackedFieldCount is the fixed number of manually entered fields that the
// completion percentage is measured over.
const TrackedFieldCount = 4

// AttendanceRecord is the per-employee-per-day aggregate. Arrival, departure
// and the other derived fields are projections over the event log and are
// always rewritten whole by the materializer, never patched in place.
type AttendanceRecord struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	EmployeeID uint   `gorm:"uniqueIndex:uk_employee_day;not null" json:"employee_id"`
	Day        string `gorm:"type:date;uniqueIndex:uk_employee_day" json:"day"`

	ArrivalTime   *time.Time `json:"arrival_time,omitempty"`
	DepartureTime *time.Time `json:"departure_time,omitempty"`

	Standup        AttendanceChoice `gorm:"size:11" json:"standup,omitempty"`
	LunchSlot      string           `gorm:"size:5" json:"lunch_slot,omitempty"`
	LeftOnTime     AttendanceChoice `gorm:"size:11" json:"left_on_time,omitempty"`
	ReturnedOnTime AttendanceChoice `gorm:"size:11" json:"returned_on_time,omitempty"`

	// Per-field edit times; an edit only lands if it is not older than the
	// one already applied, which makes last-write-wins well defined.
	StandupSetAt        *time.Time `json:"-"`
	LunchSlotSetAt      *time.Time `json:"-"`
	LeftOnTimeSetAt     *time.Time `json:"-"`
	ReturnedOnTimeSetAt *time.Time `json:"-"`

	CompletionPercent float64      `json:"completion_percent"`
	Status            RecordStatus `gorm:"size:10" json:"status"`
	WorkedHours       float64      `json:"worked_hours"`
	AttendanceScore   float64      `json:"attendance_score"`
	LateArrival       bool         `json:"late_arrival"`
	EarlyDeparture    bool         `json:"early_departure"`
	Problematic       bool         `json:"problematic"`

	ComputedAt time.Time `json:"computed_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FilledFieldCount counts the manual fields that have a value.
func (r *AttendanceRecord) FilledFieldCount() int {
	n := 0
	if r.Standup != "" {
		n++
	}
	if r.LunchSlot != "" {
		n++
	}
	if r.LeftOnTime != "" {
		n++
	}
	if r.ReturnedOnTime != "" {
		n++
	}
	return n
}

// IssueCount counts the choice fields answered NO or LATE. A day with two
// or more is problematic.
func (r *AttendanceRecord) IssueCount() int {
	n := 0
	for _, c := range []AttendanceChoice{r.Standup, r.LeftOnTime, r.ReturnedOnTime} {
		if c.Issue() {
			n++
		}
	}
	return n
}

type TaskAssignment struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	EmployeeID uint       `gorm:"uniqueIndex:uk_emp_loc_day;not null" json:"employee_id"`
	LocationID uint       `gorm:"uniqueIndex:uk_emp_loc_day;not null" json:"location_id"`
	Day        string     `gorm:"type:date;uniqueIndex:uk_emp_loc_day" json:"day"`
	TaskType   string     `gorm:"size:100" json:"task_type"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Completed  bool       `json:"completed"`
	CreatedAt  time.Time  `json:"created_at"`
}

type MovementType string

const (
	MovementRoom     MovementType = "ROOM"
	MovementMeeting  MovementType = "MEETING"
	MovementBreak    MovementType = "BREAK"
	MovementTask     MovementType = "TASK"
	MovementClockIn  MovementType = "CLOCK_IN"
	MovementClockOut MovementType = "CLOCK_OUT"
)

// LocationMovement is one observed transition between locations, derived
// from adjacent events for the same employee. A nil From/To means "no
// location" (outside any tracked room).
type LocationMovement struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	EmployeeID      uint         `gorm:"index:idx_move_emp_day;not null" json:"employee_id"`
	Day             string       `gorm:"type:date;index:idx_move_emp_day" json:"day"`
	FromLocationID  *uint        `gorm:"index" json:"from_location_id,omitempty"`
	ToLocationID    *uint        `gorm:"index" json:"to_location_id,omitempty"`
	Timestamp       time.Time    `json:"timestamp"`
	Type            MovementType `gorm:"size:20" json:"type"`
	DurationMinutes *int         `json:"duration_minutes,omitempty"`
}

// LocationAnalytics is the per-location-per-day rollup. It is a cache of a
// deterministic function of events, movements and assignments; ComputedAt
// marks the last recompute and nothing writes individual fields outside the
// rollup function.
type LocationAnalytics struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	LocationID uint   `gorm:"uniqueIndex:uk_loc_day;not null" json:"location_id"`
	Day        string `gorm:"type:date;uniqueIndex:uk_loc_day" json:"day"`

	Occupancy       int     `json:"occupancy"`
	PeakOccupancy   int     `json:"peak_occupancy"`
	UtilizationRate float64 `json:"utilization_rate"`
	TotalMovements  int     `json:"total_movements"`
	Arrivals        int     `json:"arrivals"`
	Departures      int     `json:"departures"`
	AvgStayMinutes  float64 `json:"avg_stay_minutes"`
	PeakHour        int     `json:"peak_hour"`

	// HourlyArrivals is the persisted form of the buckets; HourlyBuckets is
	// what responses carry.
	HourlyArrivals string      `gorm:"type:text" json:"-"`
	HourlyBuckets  map[int]int `gorm:"-" json:"hourly_arrivals,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}

func (Event) TableName() string             { return "events" }
func (Employee) TableName() string          { return "employees" }
func (Location) TableName() string          { return "locations" }
func (AttendanceRecord) TableName() string  { return "attendance_records" }
func (TaskAssignment) TableName() string    { return "task_assignments" }
func (LocationMovement) TableName() string  { return "location_movements" }
func (LocationAnalytics) TableName() string { return "location_analytics" }
