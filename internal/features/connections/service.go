// Package connections — service.go ведёт учёт соединений.
// Запись статуса вспомогательная: ошибки логируются и не прерывают игровой цикл.
package connections

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Store — хранилище соединений.
type Store interface {
	Open(ctx context.Context, s *Session) error
	SetStatus(ctx context.Context, id, status string, attemptID *int64) error
	PurgeStale(ctx context.Context, before time.Time) (int64, error)
}

// Tracker обновляет статусы соединений.
type Tracker struct {
	store      Store
	staleAfter time.Duration
	now        func() time.Time
}

// NewTracker создаёт трекер. staleAfter — через сколько удалять отключённые соединения.
func NewTracker(store Store, staleAfter time.Duration) *Tracker {
	return &Tracker{store: store, staleAfter: staleAfter, now: time.Now}
}

// Opened — соединение прошло авторизацию.
func (t *Tracker) Opened(ctx context.Context, id string, playerID int64, ip, fingerprint string) {
	s := &Session{
		ID:                id,
		PlayerID:          playerID,
		IPAddress:         ip,
		DeviceFingerprint: fingerprint,
		Status:            StatusConnected,
		ConnectedAt:       t.now().UTC(),
	}
	if err := t.store.Open(ctx, s); err != nil {
		log.WithError(err).WithField("conn_id", id).Warn("Не удалось записать соединение")
	}
}

// InGame — игрок начал попытку.
func (t *Tracker) InGame(ctx context.Context, id string, attemptID int64) {
	t.set(ctx, id, StatusInGame, &attemptID)
}

// Idle — игрок вышел из попытки, соединение живо.
func (t *Tracker) Idle(ctx context.Context, id string) {
	t.set(ctx, id, StatusConnected, nil)
}

// Closed — соединение разорвано.
func (t *Tracker) Closed(ctx context.Context, id string) {
	t.set(ctx, id, StatusDisconnected, nil)
}

func (t *Tracker) set(ctx context.Context, id, status string, attemptID *int64) {
	if id == "" {
		return
	}
	if err := t.store.SetStatus(ctx, id, status, attemptID); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"conn_id": id,
			"status":  status,
		}).Warn("Не удалось обновить статус соединения")
	}
}

// PurgeStale удаляет записи старше staleAfter. Вызывается планировщиком.
func (t *Tracker) PurgeStale(ctx context.Context) (int64, error) {
	n, err := t.store.PurgeStale(ctx, t.now().Add(-t.staleAfter))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.WithField("removed", n).Info("Удалены устаревшие соединения")
	}
	return n, nil
}
