package analytics

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-admin/internal/reporting"
)

const (
	monthsShown     = 6
	topProcedures   = 6
	otherProcedures = "Outros"
)

// Summary is the dashboard header.
type Summary struct {
	TotalMessages              int64            `json:"total_messages"`
	TotalUsers                 int64            `json:"total_users"`
	TotalAppointments          int64            `json:"total_appointments"`
	AvgMessagesPerConversation float64          `json:"avg_messages_per_conversation"`
	Period                     reporting.Period `json:"period"`
}

// DayMessages is one day of chat volume split by sender.
type DayMessages struct {
	Day   string `json:"dia"`
	User  int64  `json:"user"`
	AI    int64  `json:"ai"`
	Human int64  `json:"human"`
}

// MonthAppointments is one bar of the monthly bookings chart.
type MonthAppointments struct {
	Month string `json:"mes"`
	Label string `json:"mes_label"`
	Total int64  `json:"total"`
}

// Service shapes the raw aggregates for the dashboard.
type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

// NewService creates an analytics service in the clinic timezone.
func NewService(store Store) *Service {
	if store == nil {
		panic("analytics: store required")
	}
	return &Service{store: store, loc: reporting.Location(), now: time.Now}
}

// WithClock overrides the current time.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Location is the timezone periods are parsed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) Summary(ctx context.Context, p reporting.Period) (*Summary, error) {
	c, err := s.store.Counts(ctx, p.From, p.Until)
	if err != nil {
		return nil, err
	}
	return &Summary{
		TotalMessages:              c.Messages,
		TotalUsers:                 c.Users,
		TotalAppointments:          c.Appointments,
		AvgMessagesPerConversation: c.AvgMessagesPerChat,
		Period:                     p,
	}, nil
}

// MessagesByDay pivots sender counts into one row per day. Unknown sender
// kinds are dropped.
func (s *Service) MessagesByDay(ctx context.Context, p reporting.Period) ([]DayMessages, error) {
	counts, err := s.store.MessagesBySender(ctx, p.From, p.Until)
	if err != nil {
		return nil, err
	}
	out := []DayMessages{}
	index := map[string]int{}
	for _, c := range counts {
		i, ok := index[c.Day]
		if !ok {
			i = len(out)
			index[c.Day] = i
			out = append(out, DayMessages{Day: c.Day})
		}
		switch c.Sender {
		case "user":
			out[i].User += c.Total
		case "ai":
			out[i].AI += c.Total
		case "human":
			out[i].Human += c.Total
		}
	}
	return out, nil
}

// AppointmentsByMonth covers the current month and the five before it.
// Months without bookings are reported as zero.
func (s *Service) AppointmentsByMonth(ctx context.Context) ([]MonthAppointments, error) {
	now := s.now().In(s.loc)
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	first := current.AddDate(0, -(monthsShown - 1), 0)

	counts, err := s.store.AppointmentsByMonth(ctx, first)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int64, len(counts))
	for _, c := range counts {
		totals[c.Month] = c.Total
	}

	out := make([]MonthAppointments, 0, monthsShown)
	for m := first; !m.After(current); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		out = append(out, MonthAppointments{Month: key, Label: m.Format("Jan/06"), Total: totals[key]})
	}
	return out, nil
}

func (s *Service) DoctorsRanking(ctx context.Context, p reporting.Period) ([]DoctorCount, error) {
	return s.store.DoctorsRanking(ctx, p.From, p.Until)
}

// ProceduresDistribution keeps the six most booked procedures and folds the
// rest into "Outros".
func (s *Service) ProceduresDistribution(ctx context.Context, p reporting.Period) ([]ProcedureCount, error) {
	rows, err := s.store.Procedures(ctx, p.From, p.Until)
	if err != nil {
		return nil, err
	}
	if len(rows) <= topProcedures {
		return rows, nil
	}
	var rest int64
	for _, r := range rows[topProcedures:] {
		rest += r.Total
	}
	out := append([]ProcedureCount{}, rows[:topProcedures]...)
	return append(out, ProcedureCount{Procedure: otherProcedures, Total: rest}), nil
}
