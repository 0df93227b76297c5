// Package economy — repository.go выполняет операции с балансами в таблице players
// и с журналом player_transaction. Денежные значения проходят через vault.Vault.
package economy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"serotonyl.ru/puzzle-arena/internal/common"
	"serotonyl.ru/puzzle-arena/internal/db/postgres"
	"serotonyl.ru/puzzle-arena/internal/vault"
)

// Repository работает через Querier: пул для чтения или pgx.Tx внутри транзакции.
type Repository struct {
	db    postgres.Querier
	vault vault.Vault
}

// NewRepository создаёт репозиторий экономики.
// Для Ledger передавайте pgx.Tx, иначе FOR UPDATE не удержит блокировку.
func NewRepository(db postgres.Querier, v vault.Vault) *Repository {
	return &Repository{db: db, vault: v}
}

var _ Store = (*Repository)(nil)

// LockWallet читает балансы игрока с блокировкой строки (SELECT ... FOR UPDATE).
func (r *Repository) LockWallet(ctx context.Context, playerID int64) (*Wallet, error) {
	return r.wallet(ctx, playerID, `
		SELECT token_balance, gems FROM players WHERE id = $1 FOR UPDATE
	`)
}

// Wallet читает балансы без блокировки.
func (r *Repository) Wallet(ctx context.Context, playerID int64) (*Wallet, error) {
	return r.wallet(ctx, playerID, `
		SELECT token_balance, gems FROM players WHERE id = $1
	`)
}

func (r *Repository) wallet(ctx context.Context, playerID int64, query string) (*Wallet, error) {
	var tokensCT, gemsCT string
	err := r.db.QueryRow(ctx, query, playerID).Scan(&tokensCT, &gemsCT)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("кошелёк (player_id=%d): %w", playerID, common.ErrPlayerNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения баланса (player_id=%d): %w", playerID, err)
	}

	tokens, err := r.decodeTokens(tokensCT)
	if err != nil {
		return nil, err
	}
	gems, err := r.decodeGems(gemsCT)
	if err != nil {
		return nil, err
	}
	return &Wallet{PlayerID: playerID, Tokens: tokens, Gems: gems}, nil
}

// SaveWallet записывает новые балансы.
func (r *Repository) SaveWallet(ctx context.Context, w *Wallet) error {
	tokensCT, err := r.encodeTokens(w.Tokens)
	if err != nil {
		return err
	}
	gemsCT, err := r.encodeGems(w.Gems)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE players SET token_balance = $2, gems = $3, updated_at = NOW()
		WHERE id = $1
	`, w.PlayerID, tokensCT, gemsCT)
	if err != nil {
		return fmt.Errorf("ошибка обновления баланса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("кошелёк (player_id=%d): %w", w.PlayerID, common.ErrPlayerNotFound)
	}
	return nil
}

// AppendTransaction добавляет запись журнала и заполняет t.ID.
func (r *Repository) AppendTransaction(ctx context.Context, t *Transaction) error {
	balanceCT, err := r.encodeTokens(t.BalanceAfter)
	if err != nil {
		return err
	}
	gemsCT, err := r.encodeGems(t.GemsAfter)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO player_transaction
			(player_id, game_attempt_id, direction, transaction_type, tokens,
			 gems_blue, gems_green, gems_red, balance_after, gems_after, description, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, t.PlayerID, t.AttemptID, string(t.Direction), t.Type, t.Tokens.StringFixed(2),
		t.Gems.Blue, t.Gems.Green, t.Gems.Red, balanceCT, gemsCT, t.Description, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}

// History возвращает последние транзакции игрока (новые сверху).
func (r *Repository) History(ctx context.Context, playerID int64, limit int) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, player_id, game_attempt_id, direction, transaction_type, tokens::text,
		       gems_blue, gems_green, gems_red, balance_after, gems_after, description, created_at
		FROM player_transaction
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			t                 Transaction
			dir, tokens       string
			balanceCT, gemsCT string
		)
		if err := rows.Scan(
			&t.ID, &t.PlayerID, &t.AttemptID, &dir, &t.Type, &tokens,
			&t.Gems.Blue, &t.Gems.Green, &t.Gems.Red, &balanceCT, &gemsCT, &t.Description, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка чтения транзакции: %w", err)
		}
		t.Direction = Direction(dir)
		if t.Tokens, err = decimal.NewFromString(tokens); err != nil {
			return nil, fmt.Errorf("некорректная сумма транзакции %d: %w", t.ID, err)
		}
		if t.BalanceAfter, err = r.decodeTokens(balanceCT); err != nil {
			return nil, err
		}
		if t.GemsAfter, err = r.decodeGems(gemsCT); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Пустая строка в базе = нулевой баланс (новый игрок ещё не получал начислений).

func (r *Repository) encodeTokens(d decimal.Decimal) (string, error) {
	ct, err := r.vault.Encrypt(d.StringFixed(2))
	if err != nil {
		return "", fmt.Errorf("ошибка шифрования баланса: %w", err)
	}
	return ct, nil
}

func (r *Repository) decodeTokens(ct string) (decimal.Decimal, error) {
	if ct == "" {
		return decimal.Zero, nil
	}
	plain, err := r.vault.Decrypt(ct)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка расшифровки баланса: %w", err)
	}
	d, err := decimal.NewFromString(plain)
	if err != nil {
		return decimal.Zero, fmt.Errorf("некорректный баланс: %w", err)
	}
	return d, nil
}

func (r *Repository) encodeGems(g Gems) (string, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации кристаллов: %w", err)
	}
	ct, err := r.vault.Encrypt(string(raw))
	if err != nil {
		return "", fmt.Errorf("ошибка шифрования кристаллов: %w", err)
	}
	return ct, nil
}

func (r *Repository) decodeGems(ct string) (Gems, error) {
	var g Gems
	if ct == "" {
		return g, nil
	}
	plain, err := r.vault.Decrypt(ct)
	if err != nil {
		return g, fmt.Errorf("ошибка расшифровки кристаллов: %w", err)
	}
	if err := json.Unmarshal([]byte(plain), &g); err != nil {
		return g, fmt.Errorf("некорректные кристаллы: %w", err)
	}
	return g, nil
}
