// Package server — hub.go хранит множество живых соединений и рассылает общие события (чат).
package server

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Hub владеет множеством клиентов. Регистрация, удаление и рассылка идут через каналы
// в одну горутину Run; mu нужен только для чтения счётчиков снаружи.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*Client]struct{}),
	}
}

// Run обслуживает хаб до отмены ctx. При остановке закрывает всех клиентов.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				// медленный клиент закрывается внутри enqueue
				_ = c.enqueue(msg)
			}
			h.mu.RUnlock()
		}
	}
}

// Register добавляет клиента. Возвращает false, если хаб уже остановлен.
func (h *Hub) Register(ctx context.Context, c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// Unregister убирает клиента.
func (h *Hub) Unregister(ctx context.Context, c *Client) {
	select {
	case h.unregister <- c:
	case <-ctx.Done():
	}
}

// Broadcast рассылает событие всем клиентам. Если очередь рассылки полна, событие теряется.
func (h *Hub) Broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("Ошибка сериализации события рассылки")
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		log.Warn("Очередь рассылки переполнена, событие пропущено")
	}
}

// Count — число открытых соединений.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Players — id игроков онлайн по возрастанию, без повторов.
func (h *Hub) Players() []int64 {
	h.mu.RLock()
	seen := make(map[int64]struct{}, len(h.clients))
	for c := range h.clients {
		seen[c.info.PlayerID] = struct{}{}
	}
	h.mu.RUnlock()

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
