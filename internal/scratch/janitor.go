package scratch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
)

// Значения по умолчанию.
const (
	DefaultSchedule = "*/10 * * * *"
	DefaultMaxAge   = 24 * time.Hour
)

// cronParser — парсер расписаний: 5 полей или дескрипторы (@hourly, @every 5m).
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

var sweptTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "cloudbox_scratch_swept_total",
	Help: "Stale scratch entries removed by the janitor.",
})

// ValidateSchedule проверяет cron-выражение.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Janitor периодически чистит каталог временных файлов.
type Janitor struct {
	dir      *Dir
	schedule string
	maxAge   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// JanitorConfig — конфигурация Janitor.
type JanitorConfig struct {
	Dir      *Dir
	Schedule string        // cron-выражение (default: каждые 10 минут)
	MaxAge   time.Duration // возраст, после которого файл удаляется (default: 24h)
	Logger   *slog.Logger
}

// NewJanitor создаёт Janitor.
func NewJanitor(cfg JanitorConfig) (*Janitor, error) {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Janitor{
		dir:      cfg.Dir,
		schedule: schedule,
		maxAge:   maxAge,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Sweep выполняет одну чистку.
func (j *Janitor) Sweep() {
	removed, err := j.dir.Sweep(j.maxAge, j.now())
	sweptTotal.Add(float64(removed))

	if err != nil {
		j.logger.Warn("scratch sweep finished with errors", "removed", removed, "error", err)
		return
	}
	if removed > 0 {
		j.logger.Info("scratch sweep completed", "removed", removed, "max_age", j.maxAge)
	}
}

// Run запускает чистку по расписанию и блокируется до отмены ctx.
// Текущая чистка дожидается завершения.
func (j *Janitor) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if _, err := c.AddFunc(j.schedule, j.Sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	j.logger.Info("scratch janitor started",
		"dir", j.dir.Root(),
		"schedule", j.schedule,
		"max_age", j.maxAge,
	)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	j.logger.Info("scratch janitor stopped")
	return nil
}
