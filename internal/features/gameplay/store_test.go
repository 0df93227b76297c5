package gameplay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"serotonyl.ru/puzzle-arena/internal/common"
	"serotonyl.ru/puzzle-arena/internal/features/economy"
	"serotonyl.ru/puzzle-arena/internal/features/players"
)

// memStore — хранилище в памяти. Atomic работает с копией состояния
// и подменяет им основное только при успехе, как коммит транзакции.
type memStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	attempts map[int64]*Attempt
	actions  []Action
	wallets  map[int64]economy.Wallet
	txs      []economy.Transaction
	bans     []players.Ban
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		attempts: make(map[int64]*Attempt),
		wallets:  make(map[int64]economy.Wallet),
	}}
}

func (s memState) clone() memState {
	out := memState{
		attempts: make(map[int64]*Attempt, len(s.attempts)),
		actions:  append([]Action(nil), s.actions...),
		wallets:  make(map[int64]economy.Wallet, len(s.wallets)),
		txs:      append([]economy.Transaction(nil), s.txs...),
		bans:     append([]players.Ban(nil), s.bans...),
		nextID:   s.nextID,
	}
	for id, a := range s.attempts {
		cp := *a
		out.attempts[id] = &cp
	}
	for id, w := range s.wallets {
		out.wallets[id] = w
	}
	return out
}

func (m *memStore) Atomic(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&memTx{s: &work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) AbandonStale(_ context.Context, now time.Time, grace time.Duration) ([]Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Attempt
	for _, a := range m.state.attempts {
		deadline := a.StartTime.Add(time.Duration(a.TimeLimit)*time.Second + grace)
		if a.Status == StatusActive && deadline.Before(now) {
			a.Status = StatusAbandoned
			end := now
			a.EndTime = &end
			out = append(out, *a)
		}
	}
	return out, nil
}

// Помощники для проверок в тестах

func (m *memStore) setWallet(w economy.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.wallets[w.PlayerID] = w
}

func (m *memStore) wallet(playerID int64) economy.Wallet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.wallets[playerID]
}

func (m *memStore) attempt(id int64) Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state.attempts[id]
}

func (m *memStore) attemptsOf(playerID int64) []Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Attempt
	for _, a := range m.state.attempts {
		if a.PlayerID == playerID {
			out = append(out, *a)
		}
	}
	return out
}

func (m *memStore) transactions() []economy.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]economy.Transaction(nil), m.state.txs...)
}

func (m *memStore) actionsOf(attemptID int64) []Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Action
	for _, a := range m.state.actions {
		if a.AttemptID == attemptID {
			out = append(out, a)
		}
	}
	return out
}

func (m *memStore) banList() []players.Ban {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]players.Ban(nil), m.state.bans...)
}

type memTx struct {
	s *memState
}

func (t *memTx) Attempts() AttemptStore { return memAttempts{t.s} }
func (t *memTx) Wallets() economy.Store { return memWallets{t.s} }
func (t *memTx) Bans() BanStore         { return memBans{t.s} }

type memAttempts struct{ s *memState }

func (r memAttempts) Active(_ context.Context, playerID int64) (*Attempt, error) {
	for _, a := range r.s.attempts {
		if a.PlayerID == playerID && a.Status == StatusActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("игрок %d: %w", playerID, common.ErrNoActiveAttempt)
}

func (r memAttempts) Create(ctx context.Context, a *Attempt) error {
	if _, err := r.Active(ctx, a.PlayerID); err == nil {
		return common.ErrAttemptActive
	}
	r.s.nextID++
	a.ID = r.s.nextID
	cp := *a
	r.s.attempts[a.ID] = &cp
	return nil
}

func (r memAttempts) AppendAction(_ context.Context, act *Action) (int, error) {
	r.s.nextID++
	act.ID = r.s.nextID
	r.s.actions = append(r.s.actions, *act)
	a := r.s.attempts[act.AttemptID]
	a.MovesCount++
	return a.MovesCount, nil
}

func (r memAttempts) Actions(_ context.Context, attemptID int64) ([]Action, error) {
	var out []Action
	for _, a := range r.s.actions {
		if a.AttemptID == attemptID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memAttempts) Complete(_ context.Context, a *Attempt) error {
	stored, ok := r.s.attempts[a.ID]
	if !ok || stored.Status != StatusActive {
		return common.ErrInvalidTransition
	}
	cp := *a
	r.s.attempts[a.ID] = &cp
	return nil
}

type memWallets struct{ s *memState }

func (r memWallets) LockWallet(_ context.Context, playerID int64) (*economy.Wallet, error) {
	w, ok := r.s.wallets[playerID]
	if !ok {
		return nil, common.ErrPlayerNotFound
	}
	return &w, nil
}

func (r memWallets) SaveWallet(_ context.Context, w *economy.Wallet) error {
	r.s.wallets[w.PlayerID] = *w
	return nil
}

func (r memWallets) AppendTransaction(_ context.Context, t *economy.Transaction) error {
	r.s.nextID++
	t.ID = r.s.nextID
	r.s.txs = append(r.s.txs, *t)
	return nil
}

type memBans struct{ s *memState }

func (r memBans) Ban(_ context.Context, b *players.Ban) error {
	r.s.nextID++
	b.ID = r.s.nextID
	r.s.bans = append(r.s.bans, *b)
	return nil
}
