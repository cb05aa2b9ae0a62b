// Package scheduler wraps gocron for the periodic snapshot refresh loop.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// JobFunc is the function signature for scheduled jobs
type JobFunc func(ctx context.Context) error

// cronPattern matches cron expressions (5 or 6 fields)
var cronPattern = regexp.MustCompile(`^(\S+\s+){4,5}\S+$`)

// Config holds scheduler configuration
type Config struct {
	Interval       string       // Duration (e.g., "30m") or cron expression (e.g., "0 */6 * * *")
	RunImmediately bool         // Execute once on start before the first tick
	Logger         *slog.Logger // Logger for scheduler events
}

// Scheduler runs the refresh job on a fixed interval or cron schedule.
type Scheduler struct {
	gocronScheduler gocron.Scheduler
	job             gocron.Job
	interval        string
	runImmediately  bool
	logger          *slog.Logger
}

// NewScheduler creates a scheduler for the given job.
func NewScheduler(ctx context.Context, cfg Config, jobFunc JobFunc) (*Scheduler, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := ValidateInterval(cfg.Interval); err != nil {
		return nil, err
	}

	s := &Scheduler{
		interval:       cfg.Interval,
		runImmediately: cfg.RunImmediately,
		logger:         cfg.Logger,
	}

	gocronScheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(newGocronLoggerAdapter(cfg.Logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.gocronScheduler = gocronScheduler

	task := gocron.NewTask(func() {
		if err := jobFunc(ctx); err != nil {
			s.logger.Error("Refresh job failed", "error", err)
		}
	})

	var definition gocron.JobDefinition
	if isCronExpression(cfg.Interval) {
		definition = gocron.CronJob(cfg.Interval, strings.Count(cfg.Interval, " ") == 5)
	} else {
		duration, err := time.ParseDuration(cfg.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval: %w", err)
		}
		definition = gocron.DurationJob(duration)
	}

	job, err := gocronScheduler.NewJob(definition, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduled job: %w", err)
	}
	s.job = job

	return s, nil
}

// Start begins the scheduler
func (s *Scheduler) Start() error {
	if s.runImmediately {
		s.logger.Info("Executing refresh immediately before starting scheduler")
		if err := s.job.RunNow(); err != nil {
			s.logger.Error("Immediate execution failed", "error", err)
		}
	}

	s.gocronScheduler.Start()

	if nextRun, err := s.NextRun(); err == nil {
		s.logger.Info("Scheduler started", "next_run", nextRun.Format(time.RFC3339))
	} else {
		s.logger.Info("Scheduler started")
	}
	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.gocronScheduler.Shutdown()
}

// NextRun returns the next scheduled run time
func (s *Scheduler) NextRun() (time.Time, error) {
	nextRun, err := s.job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next run: %w", err)
	}
	return nextRun, nil
}

// LastRun returns the last run time
func (s *Scheduler) LastRun() (time.Time, error) {
	lastRun, err := s.job.LastRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last run: %w", err)
	}
	return lastRun, nil
}

// ExpectedInterval returns the refresh period for health-check freshness
// math. Irregular cron schedules fall back to a conservative estimate.
func (s *Scheduler) ExpectedInterval() time.Duration {
	if duration, err := time.ParseDuration(s.interval); err == nil {
		return duration
	}
	return 6 * time.Hour
}

// ValidateInterval validates a schedule interval (duration or cron).
func ValidateInterval(interval string) error {
	if interval == "" {
		return errors.New("scheduler interval must not be empty")
	}
	if isCronExpression(interval) {
		fields := strings.Fields(interval)
		if len(fields) != 5 && len(fields) != 6 {
			return errors.New("cron expression must have 5 or 6 fields")
		}
		return nil
	}
	duration, err := time.ParseDuration(interval)
	if err != nil {
		return fmt.Errorf("invalid interval %q: %w", interval, err)
	}
	if duration < time.Minute {
		return fmt.Errorf("interval %s is too short, minimum is 1m", interval)
	}
	return nil
}

// isCronExpression checks if a string is a cron expression (vs duration)
func isCronExpression(s string) bool {
	return cronPattern.MatchString(s)
}

// gocronLoggerAdapter adapts slog.Logger to gocron.Logger interface
type gocronLoggerAdapter struct {
	logger *slog.Logger
}

func newGocronLoggerAdapter(logger *slog.Logger) gocron.Logger {
	return &gocronLoggerAdapter{logger: logger}
}

func (a *gocronLoggerAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *gocronLoggerAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *gocronLoggerAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *gocronLoggerAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
