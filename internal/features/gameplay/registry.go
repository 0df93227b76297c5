// Package gameplay — registry.go хранит в памяти привязку игрок → (попытка, соединение)
// и выдаёт поигроковые блокировки.
//
// Реестр только кэш и сериализатор: источник истины — ACTIVE-строка в game_attempt
// с уникальным частичным индексом. После рестарта реестр пуст, а игровой цикл
// восстанавливает привязку из базы.
package gameplay

import "sync"

// Binding — открытая попытка игрока и соединение, с которого она идёт.
type Binding struct {
	AttemptID int64
	ConnID    string
}

type playerLock struct {
	mu   sync.Mutex
	refs int
}

// Registry потокобезопасен.
type Registry struct {
	mu     sync.Mutex
	locks  map[int64]*playerLock
	active map[int64]Binding
}

func NewRegistry() *Registry {
	return &Registry{
		locks:  make(map[int64]*playerLock),
		active: make(map[int64]Binding),
	}
}

// Lock захватывает блокировку игрока и возвращает функцию освобождения.
// Все переходы одного игрока выполняются под ней, с какого бы соединения они ни пришли.
func (r *Registry) Lock(playerID int64) (unlock func()) {
	r.mu.Lock()
	l, ok := r.locks[playerID]
	if !ok {
		l = &playerLock{}
		r.locks[playerID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, playerID)
		}
		r.mu.Unlock()
	}
}

// Bind запоминает открытую попытку игрока.
func (r *Registry) Bind(playerID int64, b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[playerID] = b
}

// Get возвращает привязку игрока.
func (r *Registry) Get(playerID int64) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.active[playerID]
	return b, ok
}

// State — IDLE или ACTIVE по данным реестра.
func (r *Registry) State(playerID int64) PlayerState {
	if _, ok := r.Get(playerID); ok {
		return StateActive
	}
	return StateIdle
}

// Release убирает игрока из индекса, если attemptID совпадает (0 — без проверки).
func (r *Registry) Release(playerID, attemptID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.active[playerID]; ok && (attemptID == 0 || b.AttemptID == attemptID) {
		delete(r.active, playerID)
	}
}

// Detach снимает привязку соединения. Попытка остаётся в индексе.
func (r *Registry) Detach(playerID int64, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.active[playerID]; ok && b.ConnID == connID {
		b.ConnID = ""
		r.active[playerID] = b
	}
}

// Len — число игроков с открытой попыткой.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
