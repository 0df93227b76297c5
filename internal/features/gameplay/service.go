// Package gameplay — service.go координирует игровой цикл игрока.
//
// Каждая операция выполняется под блокировкой игрока из Registry, а все изменения
// в базе (попытка, списание, начисление, бан) делаются одной транзакцией через Store.Atomic.
// Реестр обновляется только после коммита.
package gameplay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/puzzle-arena/internal/common"
	"serotonyl.ru/puzzle-arena/internal/features/economy"
	"serotonyl.ru/puzzle-arena/internal/features/levels"
	"serotonyl.ru/puzzle-arena/internal/features/players"
	"serotonyl.ru/puzzle-arena/internal/features/puzzle"
	"serotonyl.ru/puzzle-arena/internal/features/validator"
	"serotonyl.ru/puzzle-arena/internal/metrics"
	"serotonyl.ru/puzzle-arena/internal/notify"
)

// Store открывает транзакции игрового цикла.
type Store interface {
	// Atomic выполняет fn в одной транзакции: ошибка fn откатывает всё.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	// AbandonStale переводит в ABANDONED попытки, у которых истёк лимит времени уровня плюс grace.
	AbandonStale(ctx context.Context, now time.Time, grace time.Duration) ([]Attempt, error)
}

// Tx — репозитории, привязанные к открытой транзакции.
type Tx interface {
	Attempts() AttemptStore
	Wallets() economy.Store
	Bans() BanStore
}

// AttemptStore — попытки и действия.
type AttemptStore interface {
	// Active блокирует и возвращает ACTIVE-попытку игрока или common.ErrNoActiveAttempt.
	Active(ctx context.Context, playerID int64) (*Attempt, error)
	// Create вставляет попытку и заполняет ID. Вторая ACTIVE-попытка — common.ErrAttemptActive.
	Create(ctx context.Context, a *Attempt) error
	// AppendAction записывает действие и возвращает новое значение moves_count.
	AppendAction(ctx context.Context, act *Action) (int, error)
	Actions(ctx context.Context, attemptID int64) ([]Action, error)
	// Complete сохраняет итог попытки.
	Complete(ctx context.Context, a *Attempt) error
}

// BanStore — запись бана.
type BanStore interface {
	Ban(ctx context.Context, b *players.Ban) error
}

// LevelSource — конфигурация уровней.
type LevelSource interface {
	Get(ctx context.Context, id int64) (*levels.Level, error)
}

// PlayerGuard проверяет, что игрок существует и не заблокирован.
type PlayerGuard interface {
	Playable(ctx context.Context, id int64) (*players.Player, error)
}

type DifficultyEstimator interface {
	Estimate(ctx context.Context, playerID, levelID int64) (float64, error)
}

type PuzzleGenerator interface {
	Generate(puzzleType string, level int, difficulty float64) (*puzzle.Puzzle, error)
}

type CheatDetector interface {
	Detect(ctx context.Context, ev validator.Evidence) validator.Verdict
}

type BanNotifier interface {
	NotifyBan(ctx context.Context, ev notify.BanEvent)
}

// ConnectionTracker отмечает статус соединения. Ошибки он обрабатывает сам.
type ConnectionTracker interface {
	InGame(ctx context.Context, id string, attemptID int64)
	Idle(ctx context.Context, id string)
	Closed(ctx context.Context, id string)
}

// Deps — зависимости сервиса. Notifier, Tracker и Metrics необязательны.
type Deps struct {
	Store     Store
	Levels    LevelSource
	Players   PlayerGuard
	Estimator DifficultyEstimator
	Generator PuzzleGenerator
	Detector  CheatDetector
	Ledger    *economy.Ledger
	Registry  *Registry
	Notifier  BanNotifier
	Tracker   ConnectionTracker
	Metrics   *metrics.GameMetrics
	// AbandonGrace — запас сверх лимита времени уровня до автозакрытия попытки.
	AbandonGrace time.Duration
}

// Service — координатор игровых сессий.
type Service struct {
	Deps
	now func() time.Time
}

// NewService создаёт сервис. Если реестр или журнал не переданы, создаются новые.
func NewService(d Deps) *Service {
	if d.Registry == nil {
		d.Registry = NewRegistry()
	}
	if d.Ledger == nil {
		d.Ledger = economy.NewLedger()
	}
	return &Service{Deps: d, now: time.Now}
}

// WithClock подменяет часы (для тестов).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func checkPlayer(conn ConnInfo, playerID int64) error {
	if playerID != conn.PlayerID {
		return fmt.Errorf("%w: %d != %d", common.ErrPlayerMismatch, playerID, conn.PlayerID)
	}
	return nil
}

func checkPercent(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return common.Validationf("%s должен быть в диапазоне 0..100, получено %v", name, v)
	}
	return nil
}

// JoinGame открывает попытку: оценка сложности, генерация головоломки,
// затем в одной транзакции проверка активной попытки, создание попытки и списание стоимости входа.
func (s *Service) JoinGame(ctx context.Context, conn ConnInfo, req JoinRequest) (*JoinResult, error) {
	if err := checkPlayer(conn, req.PlayerID); err != nil {
		return nil, err
	}
	gameType, err := ParseGameType(req.GameType)
	if err != nil {
		return nil, err
	}
	if req.LevelID <= 0 {
		return nil, common.Validationf("game_level_id обязателен")
	}

	unlock := s.Registry.Lock(conn.PlayerID)
	defer unlock()

	result, err := s.join(ctx, conn, req, gameType)
	if err != nil {
		s.Metrics.ObserveJoin(common.ErrorKind(err), 0)
		return nil, err
	}
	s.Metrics.ObserveJoin("ok", result.Difficulty)
	return result, nil
}

func (s *Service) join(ctx context.Context, conn ConnInfo, req JoinRequest, gameType GameType) (*JoinResult, error) {
	if b, ok := s.Registry.Get(conn.PlayerID); ok {
		return nil, fmt.Errorf("%w (попытка %d)", common.ErrAttemptActive, b.AttemptID)
	}
	if s.Players != nil {
		if _, err := s.Players.Playable(ctx, conn.PlayerID); err != nil {
			return nil, err
		}
	}

	level, err := s.Levels.Get(ctx, req.LevelID)
	if err != nil {
		return nil, err
	}
	difficulty, err := s.Estimator.Estimate(ctx, conn.PlayerID, level.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка оценки сложности: %w", err)
	}
	pz, err := s.Generator.Generate(level.PuzzleType, level.Number, difficulty)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации головоломки: %w", err)
	}

	entryGems := level.EntryGems
	if gameType == GameTypeQuest {
		entryGems = economy.Gems{}
	}
	levelType := req.LevelType
	if levelType == "" {
		levelType = level.Type
	}

	attempt := &Attempt{
		PlayerID:          conn.PlayerID,
		LevelID:           level.ID,
		LevelNumber:       level.Number,
		GameType:          gameType,
		LevelType:         levelType,
		Status:            StatusActive,
		Difficulty:        difficulty,
		Board:             pz.Board,
		Target:            pz.Target,
		Parameters:        pz.Parameters,
		EntryCost:         level.EntryCost,
		GemsSpent:         entryGems,
		RewardCoins:       level.RewardCoins,
		RewardGems:        level.RewardGems,
		TimeLimit:         level.TimeLimit,
		MaxMoves:          DefaultMaxMoves,
		StartTime:         s.now().UTC(),
		IPAddress:         conn.IPAddress,
		DeviceFingerprint: conn.DeviceFingerprint,
		ConnectionID:      conn.ID,
	}
	free := level.EntryCost.IsZero() && entryGems.IsZero()

	err = s.Store.Atomic(ctx, func(tx Tx) error {
		existing, err := tx.Attempts().Active(ctx, conn.PlayerID)
		switch {
		case err == nil:
			return fmt.Errorf("%w (попытка %d)", common.ErrAttemptActive, existing.ID)
		case !errors.Is(err, common.ErrNoActiveAttempt):
			return err
		}

		if err := tx.Attempts().Create(ctx, attempt); err != nil {
			return err
		}
		if free {
			return nil
		}
		_, err = s.Ledger.Debit(ctx, tx.Wallets(), economy.Operation{
			PlayerID:    conn.PlayerID,
			AttemptID:   &attempt.ID,
			Tokens:      level.EntryCost,
			Gems:        entryGems,
			Type:        economy.TxTypeGameEntry,
			Description: fmt.Sprintf("Вход в уровень %d", level.Number),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Registry.Bind(conn.PlayerID, Binding{AttemptID: attempt.ID, ConnID: conn.ID})
	if s.Tracker != nil {
		s.Tracker.InGame(ctx, conn.ID, attempt.ID)
	}

	log.WithFields(log.Fields{
		"player_id":  conn.PlayerID,
		"attempt_id": attempt.ID,
		"level":      level.Number,
		"difficulty": difficulty,
		"game_type":  gameType,
		"entry_cost": level.EntryCost.StringFixed(2),
	}).Info("Игрок начал попытку")

	return &JoinResult{
		AttemptID:  attempt.ID,
		Message:    fmt.Sprintf("Игра начата: уровень %d", level.Number),
		Difficulty: difficulty,
		TimeLimit:  level.TimeLimit,
		Board:      pz.Board,
		Palette:    pz.Palette,
		Parameters: pz.Parameters,
	}, nil
}

// GameAction записывает действие в открытую попытку и увеличивает счётчик ходов.
// После рестарта сервера попытка находится по базе, и соединение привязывается к ней заново.
func (s *Service) GameAction(ctx context.Context, conn ConnInfo, req ActionRequest) (*ActionResult, error) {
	if err := checkPlayer(conn, req.PlayerID); err != nil {
		return nil, err
	}
	actionType, err := ParseActionType(req.ActionType)
	if err != nil {
		return nil, err
	}
	data := req.ActionData
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	} else if !json.Valid(data) {
		return nil, common.Validationf("action_data не является JSON")
	}

	unlock := s.Registry.Lock(conn.PlayerID)
	defer unlock()

	var (
		act   *Action
		moves int
	)
	err = s.Store.Atomic(ctx, func(tx Tx) error {
		a, err := tx.Attempts().Active(ctx, conn.PlayerID)
		if err != nil {
			return err
		}
		act = &Action{
			AttemptID: a.ID,
			PlayerID:  conn.PlayerID,
			Type:      actionType,
			Data:      data,
			SessionID: req.SessionID,
			CreatedAt: s.now().UTC(),
		}
		moves, err = tx.Attempts().AppendAction(ctx, act)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNoActiveAttempt) {
			s.Registry.Release(conn.PlayerID, 0)
		}
		return nil, err
	}

	s.Registry.Bind(conn.PlayerID, Binding{AttemptID: act.AttemptID, ConnID: conn.ID})
	s.Metrics.ObserveAction(string(actionType))

	log.WithFields(log.Fields{
		"player_id":   conn.PlayerID,
		"attempt_id":  act.AttemptID,
		"action_type": actionType,
		"moves":       moves,
	}).Debug("Действие записано")

	return &ActionResult{
		AttemptID:  act.AttemptID,
		ActionID:   act.ID,
		ActionType: actionType,
		Timestamp:  act.CreatedAt.Format(time.RFC3339Nano),
		MovesCount: moves,
	}, nil
}

// ExitGame закрывает попытку: считает награду, проверяет анти-читом и в одной транзакции
// сохраняет итог вместе с начислением (или баном, если сработала проверка).
func (s *Service) ExitGame(ctx context.Context, conn ConnInfo, req ExitRequest) (*ExitResult, error) {
	if err := checkPlayer(conn, req.PlayerID); err != nil {
		return nil, err
	}
	if err := checkPercent("score", req.Score); err != nil {
		return nil, err
	}
	if err := checkPercent("completion_percentage", req.CompletionPercentage); err != nil {
		return nil, err
	}

	unlock := s.Registry.Lock(conn.PlayerID)
	defer unlock()

	var (
		attempt *Attempt
		verdict validator.Verdict
	)
	err := s.Store.Atomic(ctx, func(tx Tx) error {
		a, err := tx.Attempts().Active(ctx, conn.PlayerID)
		if err != nil {
			return err
		}
		actions, err := tx.Attempts().Actions(ctx, a.ID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		duration := now.Sub(a.StartTime)
		if duration < 0 {
			duration = 0
		}

		completion := req.CompletionPercentage
		var replay validator.Replay
		if req.ReplayData != nil {
			replay = *req.ReplayData
			if len(replay.FinalState) > 0 {
				completion = validator.Score(replay.FinalState, a.Target)
			}
		}

		ev := validator.Evidence{
			AttemptID:            a.ID,
			PlayerID:             a.PlayerID,
			Duration:             duration,
			CompletionPercentage: completion,
			ActionTimes:          actionTimes(actions),
			Replay:               replay,
		}
		verdict = s.Detector.Detect(ctx, ev)

		if err := a.Transition(StatusCompleted); err != nil {
			return err
		}
		a.Score = req.Score
		a.CompletionPercentage = completion
		a.Duration = common.RoundTo(duration.Seconds(), 2)
		a.EndTime = &now
		a.Replay = req.ReplayData
		attempt = a

		if verdict.Detected {
			a.TokensEarned = decimal.Zero
			a.GemsEarned = economy.Gems{}
			a.CheatReason = fmt.Sprintf("%s: %s", verdict.Check, verdict.Reason)
			if err := tx.Attempts().Complete(ctx, a); err != nil {
				return err
			}
			return tx.Bans().Ban(ctx, &players.Ban{
				PlayerID:          a.PlayerID,
				AttemptID:         &a.ID,
				Reason:            a.CheatReason,
				IPAddress:         conn.IPAddress,
				DeviceFingerprint: conn.DeviceFingerprint,
				CreatedAt:         now,
			})
		}

		a.TokensEarned, a.GemsEarned = Rewards(a.EntryCost, a.RewardCoins, a.RewardGems, req.Score)
		if err := tx.Attempts().Complete(ctx, a); err != nil {
			return err
		}
		_, err = s.Ledger.Credit(ctx, tx.Wallets(), economy.Operation{
			PlayerID:    a.PlayerID,
			AttemptID:   &a.ID,
			Tokens:      a.TokensEarned,
			Gems:        a.GemsEarned,
			Type:        economy.TxTypeReward,
			Description: fmt.Sprintf("Награда за уровень %d", a.LevelNumber),
		})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNoActiveAttempt) {
			s.Registry.Release(conn.PlayerID, 0)
		}
		s.Metrics.ObserveExit(common.ErrorKind(err))
		return nil, err
	}

	s.Registry.Release(conn.PlayerID, attempt.ID)
	if s.Tracker != nil {
		s.Tracker.Idle(ctx, conn.ID)
	}

	fields := log.Fields{
		"player_id":  conn.PlayerID,
		"attempt_id": attempt.ID,
		"score":      attempt.Score,
		"completion": attempt.CompletionPercentage,
		"duration":   attempt.Duration,
	}

	if verdict.Detected {
		s.Metrics.ObserveExit(common.KindCheatDetected)
		s.Metrics.ObserveCheat(verdict.Check)
		log.WithFields(fields).WithFields(log.Fields{
			"check":  verdict.Check,
			"reason": verdict.Reason,
		}).Warn("Анти-чит: игрок заблокирован")
		if s.Notifier != nil {
			s.Notifier.NotifyBan(ctx, notify.BanEvent{
				PlayerID:  conn.PlayerID,
				Username:  conn.Username,
				AttemptID: attempt.ID,
				Check:     verdict.Check,
				Reason:    verdict.Reason,
				IPAddress: conn.IPAddress,
				At:        *attempt.EndTime,
			})
		}
		return nil, fmt.Errorf("%w: %s", common.ErrCheatDetected, verdict.Reason)
	}

	s.Metrics.ObserveExit("ok")
	fields["tokens_earned"] = attempt.TokensEarned.StringFixed(2)
	log.WithFields(fields).Info("Попытка завершена")

	return &ExitResult{
		AttemptID:            attempt.ID,
		Message:              exitMessage(attempt.TokensEarned, attempt.GemsEarned),
		Score:                attempt.Score,
		CompletionPercentage: attempt.CompletionPercentage,
		TokensEarned:         attempt.TokensEarned,
		GemsEarned:           attempt.GemsEarned,
	}, nil
}

func actionTimes(actions []Action) []time.Time {
	out := make([]time.Time, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.CreatedAt)
	}
	return out
}

func exitMessage(tokens decimal.Decimal, gems economy.Gems) string {
	msg := "Игра завершена. Начислено " + common.FormatTokens(tokens.Round(2))
	if total := gems.Blue + gems.Green + gems.Red; total > 0 {
		msg += " и " + common.FormatGems(total)
	}
	return msg
}

// ActiveAttempt возвращает ID открытой попытки игрока: из реестра или из базы.
func (s *Service) ActiveAttempt(ctx context.Context, conn ConnInfo) (int64, error) {
	if b, ok := s.Registry.Get(conn.PlayerID); ok {
		return b.AttemptID, nil
	}

	unlock := s.Registry.Lock(conn.PlayerID)
	defer unlock()

	var id int64
	err := s.Store.Atomic(ctx, func(tx Tx) error {
		a, err := tx.Attempts().Active(ctx, conn.PlayerID)
		if err != nil {
			return err
		}
		id = a.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.Registry.Bind(conn.PlayerID, Binding{AttemptID: id, ConnID: conn.ID})
	return id, nil
}

// Disconnect снимает привязку соединения. Попытка остаётся ACTIVE:
// игрок может переподключиться и продолжить, иначе её закроет Reconcile.
func (s *Service) Disconnect(ctx context.Context, conn ConnInfo) {
	s.Registry.Detach(conn.PlayerID, conn.ID)
	if s.Tracker != nil {
		s.Tracker.Closed(ctx, conn.ID)
	}
}

// Reconcile закрывает зависшие попытки (ABANDONED, без возврата стоимости).
// Вызывается планировщиком.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	abandoned, err := s.Store.AbandonStale(ctx, s.now().UTC(), s.AbandonGrace)
	if err != nil {
		return 0, fmt.Errorf("ошибка закрытия зависших попыток: %w", err)
	}
	for _, a := range abandoned {
		s.Registry.Release(a.PlayerID, a.ID)
		log.WithFields(log.Fields{
			"player_id":  a.PlayerID,
			"attempt_id": a.ID,
			"started":    a.StartTime,
		}).Info("Попытка закрыта по таймауту")
	}
	s.Metrics.ObserveAbandoned(len(abandoned))
	return len(abandoned), nil
}
