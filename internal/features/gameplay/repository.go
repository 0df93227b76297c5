// Package gameplay — repository.go хранит попытки и действия в PostgreSQL.
// Все изменения игрового цикла идут через Atomic: одна pgx.Tx на операцию,
// внутри неё работают репозитории попыток, кошельков и банов.
package gameplay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"serotonyl.ru/puzzle-arena/internal/common"
	"serotonyl.ru/puzzle-arena/internal/db/postgres"
	"serotonyl.ru/puzzle-arena/internal/features/economy"
	"serotonyl.ru/puzzle-arena/internal/features/players"
	"serotonyl.ru/puzzle-arena/internal/features/validator"
	"serotonyl.ru/puzzle-arena/internal/vault"
)

// activeIndex — частичный уникальный индекс: не больше одной ACTIVE-попытки на игрока.
const activeIndex = "game_attempt_one_active"

// Repository реализует Store поверх пула соединений.
type Repository struct {
	pool  *pgxpool.Pool
	vault vault.Vault
}

func NewRepository(pool *pgxpool.Pool, v vault.Vault) *Repository {
	return &Repository{pool: pool, vault: v}
}

var _ Store = (*Repository)(nil)

type pgTx struct {
	attempts *attemptRepository
	wallets  *economy.Repository
	bans     *players.Repository
}

func (t *pgTx) Attempts() AttemptStore { return t.attempts }
func (t *pgTx) Wallets() economy.Store { return t.wallets }
func (t *pgTx) Bans() BanStore         { return t.bans }

// Atomic открывает транзакцию и передаёт в fn репозитории, привязанные к ней.
func (r *Repository) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{
			attempts: &attemptRepository{db: tx},
			wallets:  economy.NewRepository(tx, r.vault),
			bans:     players.NewRepository(tx),
		})
	})
}

// AbandonStale закрывает ACTIVE-попытки, начатые раньше чем now − (time_limit + grace).
func (r *Repository) AbandonStale(ctx context.Context, now time.Time, grace time.Duration) ([]Attempt, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE game_attempt
		SET status = 'ABANDONED', end_time = $1, updated_at = NOW()
		WHERE status = 'ACTIVE'
		  AND start_time + make_interval(secs => time_limit + $2::float8) < $1
		RETURNING id, player_id, game_level_id, start_time
	`, now, grace.Seconds())
	if err != nil {
		return nil, fmt.Errorf("ошибка закрытия зависших попыток: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a := Attempt{Status: StatusAbandoned}
		if err := rows.Scan(&a.ID, &a.PlayerID, &a.LevelID, &a.StartTime); err != nil {
			return nil, fmt.Errorf("ошибка чтения попытки: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// attemptRepository работает внутри транзакции.
type attemptRepository struct {
	db postgres.Querier
}

const attemptColumns = `
	id, player_id, game_level_id, level_number, game_type, level_type, status, difficulty,
	board, target_state, parameters, score, completion_percentage, tokens_earned::text, gems_earned,
	entry_cost::text, gems_spent, reward_coins::text, reward_gems, time_limit, moves_count, max_moves,
	duration, start_time, end_time, ip_address, device_fingerprint, connection_id, replay_data, cheat_reason`

func (r *attemptRepository) Active(ctx context.Context, playerID int64) (*Attempt, error) {
	row := r.db.QueryRow(ctx, `SELECT `+attemptColumns+`
		FROM game_attempt
		WHERE player_id = $1 AND status = 'ACTIVE'
		FOR UPDATE
	`, playerID)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("игрок %d: %w", playerID, common.ErrNoActiveAttempt)
		}
		return nil, fmt.Errorf("ошибка чтения активной попытки: %w", err)
	}
	return a, nil
}

func scanAttempt(row pgx.Row) (*Attempt, error) {
	var (
		a                                    Attempt
		board, target, params, replay        []byte
		gemsEarned, gemsSpent, rewardGems    []byte
		tokensEarned, entryCost, rewardCoins string
		endTime                              *time.Time
		ip, fingerprint, connID, cheatReason *string
	)
	err := row.Scan(
		&a.ID, &a.PlayerID, &a.LevelID, &a.LevelNumber, &a.GameType, &a.LevelType, &a.Status, &a.Difficulty,
		&board, &target, &params, &a.Score, &a.CompletionPercentage, &tokensEarned, &gemsEarned,
		&entryCost, &gemsSpent, &rewardCoins, &rewardGems, &a.TimeLimit, &a.MovesCount, &a.MaxMoves,
		&a.Duration, &a.StartTime, &endTime, &ip, &fingerprint, &connID, &replay, &cheatReason,
	)
	if err != nil {
		return nil, err
	}

	a.EndTime = endTime
	a.IPAddress = deref(ip)
	a.DeviceFingerprint = deref(fingerprint)
	a.ConnectionID = deref(connID)
	a.CheatReason = deref(cheatReason)

	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{board, &a.Board},
		{target, &a.Target},
		{params, &a.Parameters},
		{gemsEarned, &a.GemsEarned},
		{gemsSpent, &a.GemsSpent},
		{rewardGems, &a.RewardGems},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("ошибка разбора попытки %d: %w", a.ID, err)
		}
	}
	if len(replay) > 0 && string(replay) != "null" {
		a.Replay = new(validator.Replay)
		if err := json.Unmarshal(replay, a.Replay); err != nil {
			return nil, fmt.Errorf("ошибка разбора replay_data попытки %d: %w", a.ID, err)
		}
	}

	for _, d := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{tokensEarned, &a.TokensEarned},
		{entryCost, &a.EntryCost},
		{rewardCoins, &a.RewardCoins},
	} {
		v, err := decimal.NewFromString(d.raw)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора суммы попытки %d: %w", a.ID, err)
		}
		*d.dst = v
	}
	return &a, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации попытки: %w", err)
	}
	return b, nil
}

func (r *attemptRepository) Create(ctx context.Context, a *Attempt) error {
	board, err := toJSON(a.Board)
	if err != nil {
		return err
	}
	target, err := toJSON(a.Target)
	if err != nil {
		return err
	}
	params, err := toJSON(a.Parameters)
	if err != nil {
		return err
	}
	gemsSpent, err := toJSON(a.GemsSpent)
	if err != nil {
		return err
	}
	rewardGems, err := toJSON(a.RewardGems)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO game_attempt
			(player_id, game_level_id, level_number, game_type, level_type, status, difficulty,
			 board, target_state, parameters, entry_cost, gems_spent, reward_coins, reward_gems,
			 time_limit, max_moves, start_time, ip_address, device_fingerprint, connection_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12, $13::numeric, $14,
		        $15, $16, $17, $18, $19, $20)
		RETURNING id
	`, a.PlayerID, a.LevelID, a.LevelNumber, string(a.GameType), a.LevelType, string(a.Status), a.Difficulty,
		board, target, params, a.EntryCost.StringFixed(2), gemsSpent, a.RewardCoins.StringFixed(2), rewardGems,
		a.TimeLimit, a.MaxMoves, a.StartTime, nullable(a.IPAddress), nullable(a.DeviceFingerprint), nullable(a.ConnectionID),
	).Scan(&a.ID)
	if err != nil {
		if postgres.IsUniqueViolation(err, activeIndex) {
			return fmt.Errorf("игрок %d: %w", a.PlayerID, common.ErrAttemptActive)
		}
		return fmt.Errorf("ошибка создания попытки: %w", err)
	}
	return nil
}

func (r *attemptRepository) AppendAction(ctx context.Context, act *Action) (int, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO game_action (game_attempt_id, player_id, action_type, action_data, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, act.AttemptID, act.PlayerID, string(act.Type), []byte(act.Data), nullable(act.SessionID), act.CreatedAt,
	).Scan(&act.ID)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи действия: %w", err)
	}

	var moves int
	err = r.db.QueryRow(ctx, `
		UPDATE game_attempt SET moves_count = moves_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING moves_count
	`, act.AttemptID).Scan(&moves)
	if err != nil {
		return 0, fmt.Errorf("ошибка обновления счётчика ходов: %w", err)
	}
	return moves, nil
}

func (r *attemptRepository) Actions(ctx context.Context, attemptID int64) ([]Action, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, game_attempt_id, player_id, action_type, action_data, COALESCE(session_id, ''), created_at
		FROM game_action
		WHERE game_attempt_id = $1
		ORDER BY created_at, id
	`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения действий: %w", err)
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var (
			a    Action
			data []byte
		)
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.PlayerID, &a.Type, &data, &a.SessionID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения действия: %w", err)
		}
		a.Data = data
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *attemptRepository) Complete(ctx context.Context, a *Attempt) error {
	gemsEarned, err := toJSON(a.GemsEarned)
	if err != nil {
		return err
	}
	var replay []byte
	if a.Replay != nil {
		if replay, err = toJSON(a.Replay); err != nil {
			return err
		}
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE game_attempt
		SET status = $2, score = $3, completion_percentage = $4, tokens_earned = $5::numeric,
		    gems_earned = $6, duration = $7, end_time = $8, replay_data = $9, cheat_reason = $10,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'ACTIVE'
	`, a.ID, string(a.Status), a.Score, a.CompletionPercentage, a.TokensEarned.StringFixed(2),
		gemsEarned, a.Duration, a.EndTime, replay, nullable(a.CheatReason))
	if err != nil {
		return fmt.Errorf("ошибка сохранения итога попытки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("попытка %d уже закрыта: %w", a.ID, common.ErrInvalidTransition)
	}
	return nil
}
