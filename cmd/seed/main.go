package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/wolfman30/clinic-admin/internal/config"
	"github.com/wolfman30/clinic-admin/internal/costs"
	"github.com/wolfman30/clinic-admin/internal/doctors"
	"github.com/wolfman30/clinic-admin/internal/patients"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

var (
	specialties = []string{"Dermatologia", "Cardiologia", "Clínico Geral", "Ortopedia", "Endocrinologia", "Pediatria"}
	procedures  = []string{"Consulta", "Retorno", "Botox", "Preenchimento", "Limpeza de pele", "Peeling", "Check-up"}
	insurances  = []string{"Unimed", "Bradesco Saúde", "SulAmérica", "Amil", "Particular"}
	models      = []string{"gpt-4o-mini", "gpt-4.1-mini", "llama-3.3-70b"}
)

func main() {
	doctorCount := flag.Int("doctors", 5, "doctors to create")
	patientCount := flag.Int("patients", 50, "patients to create")
	days := flag.Int("days", 90, "history window in days")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	s := &seeder{
		pool:     pool,
		doctors:  doctors.NewPostgresRepository(pool),
		patients: patients.NewPostgresRepository(pool),
		since:    time.Now().AddDate(0, 0, -*days),
		logger:   logger,
	}

	created, err := s.seedDoctors(ctx, *doctorCount)
	if err != nil {
		logger.Error("seed doctors", "error", err)
		os.Exit(1)
	}
	if err := s.seedPatients(ctx, *patientCount, created); err != nil {
		logger.Error("seed patients", "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete", "doctors", len(created), "patients", *patientCount)
}

type seeder struct {
	pool     *pgxpool.Pool
	doctors  *doctors.PostgresRepository
	patients *patients.PostgresRepository
	since    time.Time
	logger   *logging.Logger
}

func (s *seeder) seedDoctors(ctx context.Context, count int) ([]doctors.Doctor, error) {
	out := make([]doctors.Doctor, 0, count)
	for i := 0; i < count; i++ {
		number := fakePhone()
		in := doctors.DoctorInput{
			Name:              "Dr. " + gofakeit.Name(),
			DoctorNumber:      &number,
			CalendarID:        fmt.Sprintf("%s@group.calendar.google.com", strings.ToLower(gofakeit.LetterN(16))),
			Active:            gofakeit.Number(0, 9) > 1,
			Procedures:        fakeProcedures(),
			AvailableWeekdays: []int{1, 2, 3, 4, 5},
			WorkingHours: &doctors.WorkingHours{
				Morning:   &doctors.Window{Start: "08:00", End: "12:00"},
				Afternoon: &doctors.Window{Start: "14:00", End: "18:00"},
			},
			Insurances:   pickSome(insurances, 3),
			Restrictions: map[string]any{"especialidade": gofakeit.RandomString(specialties)},
		}
		d, err := s.doctors.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	s.logger.Info("doctors seeded", "count", len(out))
	return out, nil
}

func (s *seeder) seedPatients(ctx context.Context, count int, docs []doctors.Doctor) error {
	for i := 0; i < count; i++ {
		phone := fakePhone()
		firstSeen := gofakeit.DateRange(s.since, time.Now())
		_, err := s.pool.Exec(ctx, `
			INSERT INTO users (phone_number, complete_name, require_human, complete_register, origin_contact, created_at, updated_at)
			VALUES ($1, $2, $3, true, $4, $5, $5)
			ON CONFLICT (phone_number) DO NOTHING
		`, phone, gofakeit.Name(), gofakeit.Number(0, 9) == 0, gofakeit.RandomString([]string{"whatsapp", "instagram", "site"}), firstSeen)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if err := s.seedConversation(ctx, phone, firstSeen); err != nil {
			return err
		}
		if len(docs) > 0 && gofakeit.Bool() {
			if err := s.seedAppointment(ctx, phone, docs[gofakeit.Number(0, len(docs)-1)]); err != nil {
				return err
			}
		}
	}
	s.logger.Info("patients seeded", "count", count)
	return nil
}

// seedConversation writes alternating user/agent turns plus the token usage of
// each agent turn. Timestamps are rewritten afterwards so reports spread over
// the window.
func (s *seeder) seedConversation(ctx context.Context, phone string, at time.Time) error {
	turns := gofakeit.Number(2, 12)
	for t := 0; t < turns; t++ {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO chat (session_id, sender, message, created_at) VALUES ($1, 'user', jsonb_build_object('type', 'human', 'content', $2::text), $3)`,
			phone, gofakeit.Question(), at); err != nil {
			return fmt.Errorf("insert chat: %w", err)
		}
		at = at.Add(time.Duration(gofakeit.Number(10, 300)) * time.Second)

		sender := "ai"
		if gofakeit.Number(0, 9) == 0 {
			sender = "human"
		}
		if err := s.patients.RecordMessage(ctx, phone, sender, nil, agentReply()); err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx,
			`UPDATE chat SET created_at = $2 WHERE id = (SELECT max(id) FROM chat WHERE session_id = $1)`,
			phone, at); err != nil {
			return fmt.Errorf("backdate chat: %w", err)
		}
		if sender == "ai" {
			if err := s.seedTokenUsage(ctx, phone, at); err != nil {
				return err
			}
		}
		at = at.Add(time.Duration(gofakeit.Number(10, 600)) * time.Second)
	}
	return nil
}

func (s *seeder) seedTokenUsage(ctx context.Context, phone string, at time.Time) error {
	model := gofakeit.RandomString(models)
	in := gofakeit.Number(300, 4000)
	out := gofakeit.Number(20, 600)
	if _, ok := costs.PriceFor(model); !ok {
		return fmt.Errorf("model %q has no price", model)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO token_usage (phone_number, message_id, input_tokens, output_tokens, total_tokens, model_name, provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, phone, uuid.NewString(), in, out, in+out, model, providerFor(model), at)
	if err != nil {
		return fmt.Errorf("insert token usage: %w", err)
	}
	return nil
}

func (s *seeder) seedAppointment(ctx context.Context, phone string, d doctors.Doctor) error {
	start := gofakeit.DateRange(s.since, time.Now().AddDate(0, 0, 30)).Truncate(30 * time.Minute)
	proc := gofakeit.RandomString(procedures)
	if len(d.Procedures) > 0 {
		proc = d.Procedures[gofakeit.Number(0, len(d.Procedures)-1)].Name
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calendar_events (user_number, event_id, summary, dr_responsible, doctor_id, procedure, status, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8)
	`, phone, strings.ToLower(gofakeit.LetterN(26)), "Consulta - "+proc, d.Name, d.ID, proc, start, start.Add(30*time.Minute))
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func agentReply() string {
	return fmt.Sprintf("Olá %s! Temos horário para %s na %s às %02d:00.",
		gofakeit.FirstName(), strings.ToLower(gofakeit.RandomString(procedures)), gofakeit.WeekDay(), gofakeit.Number(8, 17))
}

func fakePhone() string {
	return fmt.Sprintf("55%02d9%08d", gofakeit.Number(11, 99), gofakeit.Number(10000000, 99999999))
}

func fakeProcedures() []doctors.Procedure {
	names := pickSome(procedures, 4)
	out := make([]doctors.Procedure, 0, len(names))
	for _, name := range names {
		price := doctors.FixedPrice(float64(gofakeit.Number(15, 80) * 10))
		if gofakeit.Number(0, 4) == 0 {
			price = doctors.PriceOnConsultation()
		}
		out = append(out, doctors.Procedure{
			Name:            name,
			DurationMinutes: float64(gofakeit.RandomInt([]int{30, 45, 60})),
			Price:           price,
		})
	}
	return out
}

func pickSome(from []string, max int) []string {
	n := gofakeit.Number(1, max)
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		v := gofakeit.RandomString(from)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func providerFor(model string) string {
	if strings.HasPrefix(model, "gpt") {
		return "openai"
	}
	return "groq"
}
