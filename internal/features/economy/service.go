// Package economy — service.go содержит чтение балансов и истории для игрока.
// Изменение балансов идёт только через Ledger внутри транзакции игрового цикла.
package economy

import (
	"context"

	"github.com/shopspring/decimal"
)

// HistoryLimit — сколько последних транзакций отдаём в ответе get_balance.
const HistoryLimit = 10

// Reader — то, что сервису нужно от хранилища.
type Reader interface {
	Wallet(ctx context.Context, playerID int64) (*Wallet, error)
	History(ctx context.Context, playerID int64, limit int) ([]Transaction, error)
}

// Service отдаёт баланс и историю транзакций.
type Service struct {
	repo Reader
}

// NewService создаёт сервис экономики.
func NewService(repo Reader) *Service {
	return &Service{repo: repo}
}

// BalanceView — ответ на get_balance.
type BalanceView struct {
	Tokens       decimal.Decimal   `json:"tokens"`
	Gems         Gems              `json:"gems"`
	Transactions []TransactionView `json:"transactions"`
}

// TransactionView — запись истории для клиента.
type TransactionView struct {
	ID           int64           `json:"id"`
	AttemptID    *int64          `json:"game_attempt_id,omitempty"`
	Direction    Direction       `json:"direction"`
	Type         string          `json:"transaction_type"`
	Tokens       decimal.Decimal `json:"tokens"`
	Gems         Gems            `json:"gems"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    string          `json:"created_at"`
}

// Balance возвращает текущие балансы и последние транзакции игрока.
func (s *Service) Balance(ctx context.Context, playerID int64) (*BalanceView, error) {
	w, err := s.repo.Wallet(ctx, playerID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.History(ctx, playerID, HistoryLimit)
	if err != nil {
		return nil, err
	}

	view := &BalanceView{
		Tokens:       w.Tokens.Round(2),
		Gems:         w.Gems,
		Transactions: make([]TransactionView, 0, len(history)),
	}
	for _, t := range history {
		view.Transactions = append(view.Transactions, TransactionView{
			ID:           t.ID,
			AttemptID:    t.AttemptID,
			Direction:    t.Direction,
			Type:         t.Type,
			Tokens:       t.Tokens,
			Gems:         t.Gems,
			BalanceAfter: t.BalanceAfter,
			CreatedAt:    t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return view, nil
}
