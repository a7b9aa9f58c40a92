package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrNoJobs = errors.New("no jobs registered")

// Job - периодическая перезагрузка данных.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	schedule string
	jobs     []Job
	log      *slog.Logger
	cron     *cron.Cron
}

// New принимает расписание в формате cron или дескриптор вида "@every 5m".
func New(schedule string, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	return &Scheduler{
		schedule: schedule,
		log:      log,
		cron:     c,
	}
}

func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)
}

// Run блокируется до отмены ctx и дожидается завершения запущенных задач.
func (s *Scheduler) Run(ctx context.Context) error {
	const op = "sync.Run"

	if len(s.jobs) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoJobs)
	}

	for _, job := range s.jobs {
		job := job
		_, err := s.cron.AddFunc(s.schedule, func() {
			s.runJob(ctx, job)
		})
		if err != nil {
			return fmt.Errorf("%s: schedule %s: %w", op, job.Name, err)
		}
		s.log.Info("job scheduled", slog.String("job", job.Name), slog.String("schedule", s.schedule))
	}

	s.cron.Start()
	s.log.Info("scheduler started")

	<-ctx.Done()

	s.log.Info("stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	log := s.log.With(slog.String("job", job.Name))
	start := time.Now()

	if err := job.Run(ctx); err != nil {
		log.Warn("job failed", slog.String("error", err.Error()))
		return
	}
	log.Debug("job completed", slog.Duration("took", time.Since(start)))
}
