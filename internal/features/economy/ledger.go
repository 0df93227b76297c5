// Package economy — ledger.go содержит атомарные списания и начисления.
// Ledger не открывает транзакции сам: вызывающий передаёт Store, привязанный
// к уже открытой транзакции, чтобы списание и создание попытки были одним коммитом.
package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/puzzle-arena/internal/common"
)

// Store — доступ к кошелькам внутри одной транзакции.
// LockWallet должен блокировать строку игрока до конца транзакции.
type Store interface {
	LockWallet(ctx context.Context, playerID int64) (*Wallet, error)
	SaveWallet(ctx context.Context, w *Wallet) error
	AppendTransaction(ctx context.Context, t *Transaction) error
}

// Ledger выполняет операции с балансами.
type Ledger struct {
	now func() time.Time
}

// NewLedger создаёт журнал с системными часами.
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// WithClock подменяет часы (для тестов).
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Debit списывает токены и кристаллы.
// Если хоть одной валюты не хватает — *common.InsufficientFundsError со всеми нехватками, без изменений.
func (l *Ledger) Debit(ctx context.Context, s Store, op Operation) (*Wallet, error) {
	return l.apply(ctx, s, op, DirectionDebit)
}

// Credit начисляет токены и кристаллы. Суммы не могут быть отрицательными.
func (l *Ledger) Credit(ctx context.Context, s Store, op Operation) (*Wallet, error) {
	return l.apply(ctx, s, op, DirectionCredit)
}

func (l *Ledger) apply(ctx context.Context, s Store, op Operation, dir Direction) (*Wallet, error) {
	if op.Tokens.IsNegative() || op.Gems.HasNegative() {
		return nil, common.ErrInvalidAmount
	}
	tokens := op.Tokens.Round(2)

	w, err := s.LockWallet(ctx, op.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения кошелька: %w", err)
	}

	switch dir {
	case DirectionDebit:
		if err := CheckFunds(w, tokens, op.Gems); err != nil {
			return nil, err
		}
		w.Tokens = w.Tokens.Sub(tokens)
		w.Gems = w.Gems.Sub(op.Gems)
	case DirectionCredit:
		w.Tokens = w.Tokens.Add(tokens)
		w.Gems = w.Gems.Add(op.Gems)
	}

	if err := s.SaveWallet(ctx, w); err != nil {
		return nil, fmt.Errorf("ошибка сохранения кошелька: %w", err)
	}

	tx := &Transaction{
		PlayerID:     op.PlayerID,
		AttemptID:    op.AttemptID,
		Direction:    dir,
		Type:         op.Type,
		Tokens:       tokens,
		Gems:         op.Gems,
		BalanceAfter: w.Tokens,
		GemsAfter:    w.Gems,
		Description:  op.Description,
		CreatedAt:    l.now().UTC(),
	}
	if err := s.AppendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("ошибка записи транзакции: %w", err)
	}

	log.WithFields(log.Fields{
		"player_id":     op.PlayerID,
		"direction":     dir,
		"type":          op.Type,
		"tokens":        tokens.StringFixed(2),
		"balance_after": w.Tokens.StringFixed(2),
	}).Debug("Операция с балансом выполнена")

	return w, nil
}

// CheckFunds проверяет, что кошелёк покрывает сумму по каждой валюте.
func CheckFunds(w *Wallet, tokens decimal.Decimal, gems Gems) error {
	var shortfalls []common.Shortfall
	if w.Tokens.LessThan(tokens) {
		shortfalls = append(shortfalls, common.Shortfall{
			Currency:  "tokens",
			Available: w.Tokens.StringFixed(2),
			Required:  tokens.StringFixed(2),
		})
	}

	have := w.Gems.byColor()
	for i, need := range gems.byColor() {
		if have[i].value < need.value {
			shortfalls = append(shortfalls, common.Shortfall{
				Currency:  need.color,
				Available: fmt.Sprintf("%d", have[i].value),
				Required:  fmt.Sprintf("%d", need.value),
			})
		}
	}

	if len(shortfalls) > 0 {
		return &common.InsufficientFundsError{Shortfalls: shortfalls}
	}
	return nil
}
