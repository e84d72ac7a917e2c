// Package scheduler runs the periodic jobs: the monthly consolidated
// report, the weekly retirement of old movements and the monthly nudge
// to inactive field personnel.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/supervitec/field-movement-api/internal/config"
	"github.com/supervitec/field-movement-api/internal/mailer"
	"github.com/supervitec/field-movement-api/internal/report"
	"github.com/supervitec/field-movement-api/internal/repository"
)

// retentionAge is how long movements stay active before the weekly
// cleanup retires them.
const retentionAge = 365 * 24 * time.Hour

// inactivityWindow is how long a field worker can go without recording
// a movement before the monthly job nudges them.
const inactivityWindow = 90 * 24 * time.Hour

type Scheduler struct {
	cron      *cron.Cron
	users     *repository.UserRepo
	movements *repository.MovementRepo
	mail      *mailer.Mailer
	cfg       config.Config
	log       zerolog.Logger
}

func New(users *repository.UserRepo, movements *repository.MovementRepo, mail *mailer.Mailer, cfg config.Config, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		users:     users,
		movements: movements,
		mail:      mail,
		cfg:       cfg,
		log:       log,
	}
}

// Start registers the jobs and launches the cron loop. Each job runs
// behind a panic guard so one bad run cannot take the scheduler down.
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		fn   func(context.Context) error
	}{
		// Shortly past midnight on the 2nd, so the full previous month
		// is in the books.
		{"5 0 2 * *", "monthly-report", s.monthlyReport},
		{"0 3 * * 0", "movement-cleanup", s.movementCleanup},
		{"0 9 1 * *", "inactive-users", s.inactiveUsers},
	}
	for _, j := range jobs {
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.guard(j.name, j.fn) }); err != nil {
			return fmt.Errorf("schedule %s: %w", j.name, err)
		}
	}
	s.cron.Start()
	s.log.Info().Int("jobs", len(jobs)).Msg("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) guard(name string, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("job", name).Msg("scheduled job panicked")
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
		return
	}
	s.log.Info().Str("job", name).Dur("took", time.Since(start)).Msg("scheduled job finished")
}

// monthlyReport builds the previous month's workbook and mails it to
// the configured recipients.
func (s *Scheduler) monthlyReport(ctx context.Context) error {
	if len(s.cfg.ReportRecipients) == 0 {
		s.log.Warn().Msg("monthly-report: no recipients configured, skipping")
		return nil
	}

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	to := from.AddDate(0, 1, 0)

	movements, err := s.movements.ListRange(ctx, 0, "", from, to)
	if err != nil {
		return fmt.Errorf("list movements: %w", err)
	}
	users, err := s.users.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	names := make(map[uint64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName
	}

	xlsx, err := report.MovementsWorkbook(movements, names)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}

	period := from.Format("2006-01")
	if err := s.mail.SendMonthlyReport(s.cfg.ReportRecipients, period, xlsx); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	s.log.Info().Str("period", period).Int("movements", len(movements)).
		Int("recipients", len(s.cfg.ReportRecipients)).Msg("monthly report sent")
	return nil
}

// movementCleanup soft-deletes movements older than the retention age.
func (s *Scheduler) movementCleanup(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-retentionAge)
	n, err := s.movements.SoftDeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info().Int64("retired", n).Time("cutoff", cutoff).Msg("old movements retired")
	}
	return nil
}

// inactiveUsers mails field personnel with no recorded movement in the
// inactivity window. Mail failures are logged per user; one bad
// address must not stop the rest of the batch.
func (s *Scheduler) inactiveUsers(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-inactivityWindow)
	users, err := s.users.InactiveSince(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, u := range users {
		if err := s.mail.SendInactivityNotice(u.Email, u.FullName, cutoff); err != nil {
			s.log.Warn().Err(err).Str("email", u.Email).Msg("inactivity notice failed")
		}
	}
	s.log.Info().Int("notified", len(users)).Msg("inactivity notices processed")
	return nil
}
