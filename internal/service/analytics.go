package service

import (
	"context"
	"math"
	"sort"
	"time"

	"presence-track/internal/config"
	"presence-track/internal/model"
	"presence-track/internal/store"
)

// AnalyticsService computes consistency, anomaly and forecast results over
// already-materialized records and rollups. Every function degrades to an
// explicit insufficient-data result instead of erroring on a thin window.
type AnalyticsService struct {
	employees store.EmployeeStore
	locations store.LocationStore
	records   store.RecordStore
	movements store.MovementStore
	rollups   store.RollupStore

	cfg config.AnalyticsConfig
	now func() time.Time
}

func NewAnalyticsService(s *store.Stores, cfg config.AnalyticsConfig) *AnalyticsService {
	return &AnalyticsService{
		employees: s.Employees,
		locations: s.Locations,
		records:   s.Records,
		movements: s.Movements,
		rollups:   s.Rollups,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Consistency scores how regular a set of observed times is. The spread is
// measured over fractional hour of day, so 08:30 and 09:30 are one hour
// apart regardless of the calendar day.
func Consistency(times []time.Time) model.ConsistencyResult {
	if len(times) < 2 {
		return model.ConsistencyResult{SampleCount: len(times), Insufficient: true}
	}
	hours := make([]float64, len(times))
	var sum float64
	for i, t := range times {
		u := t.UTC()
		hours[i] = float64(u.Hour()) + float64(u.Minute())/60 + float64(u.Second())/3600
		sum += hours[i]
	}
	mean := sum / float64(len(hours))
	var sq float64
	for _, h := range hours {
		sq += (h - mean) * (h - mean)
	}
	variance := sq / float64(len(hours)-1)
	return model.ConsistencyResult{
		Score:       math.Max(0, 100-10*variance),
		Variance:    variance,
		SampleCount: len(hours),
	}
}

// Patterns computes per-employee arrival/departure consistency and the
// anomaly list over a day window, optionally filtered to one department.
func (s *AnalyticsService) Patterns(ctx context.Context, from, to, department string) (*model.PatternsResponse, error) {
	emps, err := s.employees.List(ctx, department)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(emps))
	byID := make(map[uint]model.Employee, len(emps))
	for _, e := range emps {
		ids = append(ids, e.ID)
		byID[e.ID] = e
	}

	records, err := s.records.ListRange(ctx, from, to, ids)
	if err != nil {
		return nil, err
	}

	resp := &model.PatternsResponse{From: from, To: to}
	if len(records) == 0 {
		resp.Insufficient = true
		return resp, nil
	}

	type acc struct {
		arrivals   []time.Time
		departures []time.Time
		days       int
	}
	accs := map[uint]*acc{}
	for _, r := range records {
		a, ok := accs[r.EmployeeID]
		if !ok {
			a = &acc{}
			accs[r.EmployeeID] = a
		}
		a.days++
		if r.ArrivalTime != nil {
			a.arrivals = append(a.arrivals, *r.ArrivalTime)
		}
		if r.DepartureTime != nil {
			a.departures = append(a.departures, *r.DepartureTime)
		}
	}

	moveCounts := map[uint]map[string]int{}
	for id := range accs {
		ms, err := s.movements.ListByEmployeeRange(ctx, id, from, to)
		if err != nil {
			return nil, err
		}
		perDay := map[string]int{}
		for _, m := range ms {
			perDay[m.Day]++
		}
		moveCounts[id] = perDay
	}

	for _, id := range ids {
		a, ok := accs[id]
		if !ok {
			continue
		}
		emp := byID[id]
		p := model.EmployeePattern{
			EmployeeID:           id,
			Name:                 emp.GivenName + " " + emp.Surname,
			Department:           emp.Department,
			ArrivalConsistency:   Consistency(a.arrivals),
			DepartureConsistency: Consistency(a.departures),
			DaysObserved:         a.days,
		}
		if m := meanMinutes(a.arrivals); m != nil {
			p.AvgArrivalMinutes = m
		}
		if m := meanMinutes(a.departures); m != nil {
			p.AvgDepartureMinutes = m
		}
		for _, n := range moveCounts[id] {
			p.MovementCount += n
		}
		resp.Patterns = append(resp.Patterns, p)
	}

	for _, r := range records {
		var flags []model.AnomalyFlag
		if r.LateArrival {
			flags = append(flags, model.FlagLateArrival)
		}
		if r.EarlyDeparture {
			flags = append(flags, model.FlagEarlyDeparture)
		}
		if r.AttendanceScore < s.cfg.ScoreFloor {
			flags = append(flags, model.FlagLowScore)
		}
		if moveCounts[r.EmployeeID][r.Day] > s.cfg.MovementCeiling {
			flags = append(flags, model.FlagHighMovement)
		}
		if len(flags) == 0 {
			continue
		}
		resp.Anomalies = append(resp.Anomalies, model.Anomaly{
			EmployeeID:    r.EmployeeID,
			Day:           r.Day,
			Flags:         flags,
			SeverityScore: len(flags),
		})
	}
	return resp, nil
}

func meanMinutes(times []time.Time) *float64 {
	if len(times) == 0 {
		return nil
	}
	var sum float64
	for _, t := range times {
		u := t.UTC()
		sum += float64(u.Hour()*60+u.Minute()) + float64(u.Second())/60
	}
	m := sum / float64(len(times))
	return &m
}

// Forecast projects a trailing moving average of the chosen metric forward
// horizon days with a symmetric confidence band, plus per-location capacity
// recommendations from the same window.
func (s *AnalyticsService) Forecast(ctx context.Context, metric string, horizon int) (*model.ForecastResponse, error) {
	if metric == "" {
		metric = "attendance_score"
	}
	if horizon <= 0 {
		horizon = 7
	}

	today := s.now()
	from := model.DayOf(today.AddDate(0, 0, -s.cfg.ForecastWindowDays))
	to := model.DayOf(today)

	records, err := s.records.ListRange(ctx, from, to, nil)
	if err != nil {
		return nil, err
	}

	resp := &model.ForecastResponse{Metric: metric}
	daily := map[string][]float64{}
	for _, r := range records {
		v := r.AttendanceScore
		if metric == "completion" {
			v = r.CompletionPercent
		}
		daily[r.Day] = append(daily[r.Day], v)
	}
	if len(daily) == 0 {
		resp.Insufficient = true
		return resp, nil
	}

	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)
	if len(days) > s.cfg.ForecastWindowDays {
		days = days[len(days)-s.cfg.ForecastWindowDays:]
	}

	var sum float64
	for _, d := range days {
		var daySum float64
		for _, v := range daily[d] {
			daySum += v
		}
		sum += daySum / float64(len(daily[d]))
	}
	avg := sum / float64(len(days))
	resp.TrailingAvg = avg
	resp.SampleDays = len(days)

	margin := s.cfg.ForecastMargin
	for i := 1; i <= horizon; i++ {
		resp.Points = append(resp.Points, model.ForecastPoint{
			Day:      model.DayOf(today.AddDate(0, 0, i)),
			Forecast: avg,
			Low:      math.Max(0, avg-margin),
			High:     math.Min(100, avg+margin),
		})
	}

	caps, err := s.capacityRecommendations(ctx, from, to)
	if err != nil {
		return nil, err
	}
	resp.Capacity = caps
	return resp, nil
}

// capacityRecommendations sizes each location off its observed peaks: the
// recommended capacity is the worst peak plus a 10% buffer.
func (s *AnalyticsService) capacityRecommendations(ctx context.Context, from, to string) ([]model.CapacityRecommendation, error) {
	locs, err := s.locations.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.CapacityRecommendation
	for _, loc := range locs {
		rollups, err := s.rollups.ListRange(ctx, loc.ID, from, to)
		if err != nil {
			return nil, err
		}
		if len(rollups) == 0 {
			continue
		}
		peak, sum := 0, 0.0
		for _, r := range rollups {
			if r.PeakOccupancy > peak {
				peak = r.PeakOccupancy
			}
			sum += float64(r.PeakOccupancy)
		}
		rec := model.CapacityRecommendation{
			LocationID:          loc.ID,
			ObservedPeak:        peak,
			AveragePeak:         sum / float64(len(rollups)),
			RecommendedCapacity: int(math.Ceil(float64(peak) * 1.1)),
		}
		if peak > 0 {
			rec.Utilization = rec.AveragePeak / float64(peak) * 100
		}
		out = append(out, rec)
	}
	return out, nil
}
