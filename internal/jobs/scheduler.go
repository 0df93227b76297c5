// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: автозакрытие зависших попыток
// и очистку старых записей о соединениях.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Reconciler закрывает попытки, брошенные дольше лимита времени.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// Purger удаляет устаревшие записи о соединениях.
type Purger interface {
	PurgeStale(ctx context.Context) (int64, error)
}

// Schedules — cron-выражения задач. Пустое выражение выключает задачу.
type Schedules struct {
	Reconcile string
	Purge     string
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	purger     Purger
	schedules  Schedules
	loc        *time.Location
}

// NewScheduler создаёт планировщик задач в часовом поясе loc.
func NewScheduler(reconciler Reconciler, purger Purger, schedules Schedules, loc *time.Location) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		reconciler: reconciler,
		purger:     purger,
		schedules:  schedules,
		loc:        loc,
	}
}

// Start регистрирует задачи и запускает cron. Ошибка — некорректное расписание.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedules.Reconcile != "" && s.reconciler != nil {
		if _, err := s.cron.AddFunc(s.schedules.Reconcile, func() { s.reconcile(ctx) }); err != nil {
			return fmt.Errorf("некорректное расписание автозакрытия %q: %w", s.schedules.Reconcile, err)
		}
	}

	if s.schedules.Purge != "" && s.purger != nil {
		if _, err := s.cron.AddFunc(s.schedules.Purge, func() { s.purge(ctx) }); err != nil {
			return fmt.Errorf("некорректное расписание очистки %q: %w", s.schedules.Purge, err)
		}
	}

	s.cron.Start()
	log.WithField("tz", s.loc.String()).Info("Планировщик задач запущен")
	return nil
}

func (s *Scheduler) reconcile(ctx context.Context) {
	log.Debug("[CRON] Поиск зависших попыток")
	n, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка автозакрытия попыток")
		return
	}
	if n > 0 {
		log.WithField("count", n).Info("[CRON] Зависшие попытки закрыты")
	}
}

func (s *Scheduler) purge(ctx context.Context) {
	n, err := s.purger.PurgeStale(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка очистки соединений")
		return
	}
	log.WithField("count", n).Debug("[CRON] Старые соединения удалены")
}

// Stop останавливает планировщик и ждёт завершения выполняющихся задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
