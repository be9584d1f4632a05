package costs

import (
	"context"

	"github.com/wolfman30/clinic-admin/internal/reporting"
)

const topUsers = 20

// Summary is the cost overview of a period.
type Summary struct {
	Totals
	EstimatedCostUSD float64          `json:"estimated_cost_usd"`
	EstimatedCostBRL float64          `json:"estimated_cost_brl"`
	ExchangeRate     float64          `json:"exchange_rate"`
	Period           reporting.Period `json:"period"`
}

// DayCost is the USD cost of one day across all models.
type DayCost struct {
	Day     string  `json:"dia"`
	CostUSD float64 `json:"custo_usd"`
}

// UserCost is a patient's usage with an approximate cost.
type UserCost struct {
	PhoneNumber      string  `json:"phone_number"`
	CompleteName     *string `json:"complete_name"`
	Interactions     int64   `json:"interacoes"`
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// Service prices the raw usage reports.
type Service struct {
	reports Reports
	rates   RateProvider
}

// NewService creates a cost service.
func NewService(reports Reports, rates RateProvider) *Service {
	if reports == nil || rates == nil {
		panic("costs: reports and rate provider required")
	}
	return &Service{reports: reports, rates: rates}
}

// Summary totals tokens and prices each model separately.
func (s *Service) Summary(ctx context.Context, p reporting.Period) (*Summary, error) {
	totals, err := s.reports.Totals(ctx, p.From, p.Until)
	if err != nil {
		return nil, err
	}
	models, err := s.reports.ByModel(ctx, p.From, p.Until)
	if err != nil {
		return nil, err
	}
	var usd float64
	for _, m := range models {
		usd += Cost(m.InputTokens, m.OutputTokens, m.Model)
	}
	usd = roundTo(usd, 6)
	rate := s.rates.USDToBRL(ctx)

	return &Summary{
		Totals:           totals,
		EstimatedCostUSD: usd,
		EstimatedCostBRL: roundTo(usd*rate.Value, 2),
		ExchangeRate:     rate.Value,
		Period:           p,
	}, nil
}

// TokensByDay passes the daily volume through.
func (s *Service) TokensByDay(ctx context.Context, p reporting.Period) ([]DayTokens, error) {
	return s.reports.TokensByDay(ctx, p.From, p.Until)
}

// ByModel passes the per-model volume through.
func (s *Service) ByModel(ctx context.Context, p reporting.Period) ([]ModelUsage, error) {
	return s.reports.ByModel(ctx, p.From, p.Until)
}

// CostByDay sums each day's per-model cost, keeping day order.
func (s *Service) CostByDay(ctx context.Context, p reporting.Period) ([]DayCost, error) {
	rows, err := s.reports.ByDayAndModel(ctx, p.From, p.Until)
	if err != nil {
		return nil, err
	}
	out := []DayCost{}
	index := map[string]int{}
	for _, r := range rows {
		cost := Cost(r.InputTokens, r.OutputTokens, r.Model)
		if i, ok := index[r.Day]; ok {
			out[i].CostUSD += cost
			continue
		}
		index[r.Day] = len(out)
		out = append(out, DayCost{Day: r.Day, CostUSD: cost})
	}
	for i := range out {
		out[i].CostUSD = roundTo(out[i].CostUSD, 6)
	}
	return out, nil
}

// ByUser returns the top patients by volume. The cost is approximate: all of
// a patient's tokens are priced with their first model.
func (s *Service) ByUser(ctx context.Context, p reporting.Period) ([]UserCost, error) {
	rows, err := s.reports.ByUser(ctx, p.From, p.Until, topUsers)
	if err != nil {
		return nil, err
	}
	out := make([]UserCost, 0, len(rows))
	for _, u := range rows {
		model := ""
		if len(u.Models) > 0 {
			model = u.Models[0]
		}
		out = append(out, UserCost{
			PhoneNumber:      u.PhoneNumber,
			CompleteName:     u.CompleteName,
			Interactions:     u.Interactions,
			InputTokens:      u.InputTokens,
			OutputTokens:     u.OutputTokens,
			TotalTokens:      u.TotalTokens,
			EstimatedCostUSD: Cost(u.InputTokens, u.OutputTokens, model),
		})
	}
	return out, nil
}
