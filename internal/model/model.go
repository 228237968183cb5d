package model

import "time"

type EventRequest struct {
	EmployeeID uint       `json:"employee_id" binding:"required"`
	Type       EventType  `json:"type" binding:"required"`
	LocationID *uint      `json:"location_id,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Actor      string     `json:"actor"`
}

type ClockStatus string

const (
	ClockedIn    ClockStatus = "CLOCKED_IN"
	ClockedOut   ClockStatus = "CLOCKED_OUT"
	NeverClocked ClockStatus = "NEVER_CLOCKED"
)

// StatusResponse is the wire shape for both single and bulk status lookups.
// Whether the answer came from the cache is deliberately not part of it.
type StatusResponse struct {
	EmployeeID    uint        `json:"employee_id"`
	Status        ClockStatus `json:"status"`
	LastEventTime *time.Time  `json:"last_event_time,omitempty"`
}

// FieldEdit is one manual-field update. Edits to the same field resolve by
// At: the most recent write wins.
type FieldEdit struct {
	EmployeeID uint       `json:"employee_id" validate:"required"`
	Day        string     `json:"day" validate:"required,datetime=2006-01-02"`
	Field      string     `json:"field" validate:"required,oneof=standup lunch_slot left_on_time returned_on_time"`
	Value      string     `json:"value" validate:"required"`
	At         *time.Time `json:"at,omitempty"`
}

type BatchEditRequest struct {
	Edits []FieldEdit `json:"edits" binding:"required,min=1"`
	Actor string      `json:"actor"`
}

// BatchEditResult enumerates which employee-days applied and which were
// rejected whole, so a caller retries only the failures.
type BatchEditResult struct {
	Updated []AttendanceRecord `json:"updated"`
	Failed  []BatchEditFailure `json:"failed,omitempty"`
}

type BatchEditFailure struct {
	EmployeeID uint   `json:"employee_id"`
	Day        string `json:"day"`
	Reason     string `json:"reason"`
}

type DaySummary struct {
	Day             string            `json:"day"`
	TotalEvents     int               `json:"total_events"`
	ClockIns        int               `json:"clock_ins"`
	ClockOuts       int               `json:"clock_outs"`
	UniqueEmployees int               `json:"unique_employees"`
	ByType          map[EventType]int `json:"by_type"`
	HourlyCounts    map[int]int       `json:"hourly_counts"`
}

// ConsistencyResult carries either a score or an explicit insufficient-data
// marker. A single observation never produces a score.
type ConsistencyResult struct {
	Score        float64 `json:"score"`
	Variance     float64 `json:"variance"`
	SampleCount  int     `json:"sample_count"`
	Insufficient bool    `json:"insufficient_data"`
}

type EmployeePattern struct {
	EmployeeID           uint              `json:"employee_id"`
	Name                 string            `json:"name"`
	Department           string            `json:"department"`
	AvgArrivalMinutes    *float64          `json:"avg_arrival_minutes,omitempty"`
	AvgDepartureMinutes  *float64          `json:"avg_departure_minutes,omitempty"`
	ArrivalConsistency   ConsistencyResult `json:"arrival_consistency"`
	DepartureConsistency ConsistencyResult `json:"departure_consistency"`
	MovementCount        int               `json:"movement_count"`
	DaysObserved         int               `json:"days_observed"`
}

type AnomalyFlag string

const (
	FlagLateArrival    AnomalyFlag = "LATE_ARRIVAL"
	FlagEarlyDeparture AnomalyFlag = "EARLY_DEPARTURE"
	FlagLowScore       AnomalyFlag = "LOW_SCORE"
	FlagHighMovement   AnomalyFlag = "HIGH_MOVEMENT"
)

type Anomaly struct {
	EmployeeID    uint          `json:"employee_id"`
	Day           string        `json:"day"`
	Flags         []AnomalyFlag `json:"flags"`
	SeverityScore int           `json:"severity_score"`
}

type PatternsResponse struct {
	From         string            `json:"from"`
	To           string            `json:"to"`
	Patterns     []EmployeePattern `json:"patterns"`
	Anomalies    []Anomaly         `json:"anomalies"`
	Insufficient bool              `json:"insufficient_data"`
}

type ForecastPoint struct {
	Day      string  `json:"day"`
	Forecast float64 `json:"forecast"`
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
}

type CapacityRecommendation struct {
	LocationID          uint    `json:"location_id"`
	ObservedPeak        int     `json:"observed_peak"`
	AveragePeak         float64 `json:"average_peak"`
	RecommendedCapacity int     `json:"recommended_capacity"`
	Utilization         float64 `json:"utilization"`
}

type ForecastResponse struct {
	Metric       string                   `json:"metric"`
	TrailingAvg  float64                  `json:"trailing_avg"`
	SampleDays   int                      `json:"sample_days"`
	Points       []ForecastPoint          `json:"points"`
	Capacity     []CapacityRecommendation `json:"capacity,omitempty"`
	Insufficient bool                     `json:"insufficient_data"`
}
