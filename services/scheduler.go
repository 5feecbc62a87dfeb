package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler owns the background jobs of the portal.
type Scheduler struct {
	sched  gocron.Scheduler
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{sched: sched, logger: logger}, nil
}

// ScheduleActivation runs the Sunday Activation batch on a five-field cron
// expression in the server's time zone.
func (s *Scheduler) ScheduleActivation(svc *ClientAdminService, cron string) error {
	_, err := s.sched.NewJob(
		gocron.CronJob(cron, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := svc.SundayActivation(ctx, "scheduled"); err != nil {
				s.logger.Error("[Scheduler] sunday activation failed", "err", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	s.logger.Info("⏰ sunday activation scheduled", "cron", cron)
	return nil
}

// SchedulePurge drops expired revoked-token rows once an hour.
func (s *Scheduler) SchedulePurge(accounts AccountStore) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			n, err := accounts.PurgeRevoked(context.Background(), now())
			if err != nil {
				s.logger.Error("[Scheduler] revoked token purge failed", "err", err)
				return
			}
			if n > 0 {
				s.logger.Info("🧹 purged revoked tokens", "count", n)
			}
		}),
	)
	return err
}

func (s *Scheduler) Start() { s.sched.Start() }

func (s *Scheduler) Shutdown() error { return s.sched.Shutdown() }
