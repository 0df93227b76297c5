// Package server содержит HTTP/WebSocket-сервер: приём подключений, авторизацию,
// очередь сообщений каждого соединения и служебные эндпоинты.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/puzzle-arena/internal/config"
	"serotonyl.ru/puzzle-arena/internal/features/gameplay"
	"serotonyl.ru/puzzle-arena/internal/metrics"
	"serotonyl.ru/puzzle-arena/internal/server/filters"
	"serotonyl.ru/puzzle-arena/internal/server/middleware"
)

// Authenticator проверяет подключение до апгрейда в игровую сессию.
type Authenticator interface {
	Authenticate(ctx context.Context, token, ip, fingerprint string) (*filters.Identity, error)
}

// SessionEnder вызывается после разрыва соединения.
type SessionEnder interface {
	Disconnect(ctx context.Context, conn gameplay.ConnInfo)
}

// ConnTracker записывает открытые соединения.
type ConnTracker interface {
	Opened(ctx context.Context, id string, playerID int64, ip, fingerprint string)
}

// Pinger — проверка доступности базы для /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GameCounter — число открытых попыток для /status.
type GameCounter interface {
	Len() int
}

// Deps — зависимости сервера. Tracker, DB, Games и Metrics необязательны.
type Deps struct {
	Config   *config.Config
	Hub      *Hub
	Handler  MessageHandler
	Auth     Authenticator
	Sessions SessionEnder
	Tracker  ConnTracker
	DB       Pinger
	Games    GameCounter
	Metrics  *metrics.GameMetrics
}

// Server — HTTP-сервер игры.
type Server struct {
	cfg      *config.Config
	hub      *Hub
	handler  MessageHandler
	auth     Authenticator
	sessions SessionEnder
	tracker  ConnTracker
	db       Pinger
	games    GameCounter
	metrics  *metrics.GameMetrics

	limiter  *middleware.RateLimiter
	upgrader websocket.Upgrader
	router   *mux.Router
	http     *http.Server

	// контекст жизни сервера; в нём работают игровые операции соединений
	ctx context.Context

	// ограничитель параллелизма обработки сообщений
	inflight chan struct{}
}

func New(d Deps) *Server {
	maxInFlight := d.Config.ServerMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}
	if d.Hub == nil {
		d.Hub = NewHub()
	}

	s := &Server{
		cfg:      d.Config,
		hub:      d.Hub,
		handler:  d.Handler,
		auth:     d.Auth,
		sessions: d.Sessions,
		tracker:  d.Tracker,
		db:       d.DB,
		games:    d.Games,
		metrics:  d.Metrics,
		limiter:  middleware.NewRateLimiter(d.Config.RateLimitRPS, d.Config.RateLimitBurst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// источник проверяет фронтенд-прокси, сюда доходят только его запросы
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ctx:      context.Background(),
		inflight: make(chan struct{}, maxInFlight),
	}

	r := mux.NewRouter()
	r.Use(middleware.Recover, middleware.LogRequests)
	r.HandleFunc("/ws", s.serveWS).Methods(http.MethodGet)
	r.HandleFunc("/status", s.serveStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.serveHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router = r

	s.http = &http.Server{
		Addr:              d.Config.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler возвращает маршрутизатор (для тестов и встраивания).
func (s *Server) Handler() http.Handler { return s.router }

// Start запускает хаб и HTTP-сервер и блокируется до отмены ctx.
func (s *Server) Start(ctx context.Context) error {
	s.ctx = ctx
	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":         s.cfg.HTTPAddr,
			"max_inflight": cap(s.inflight),
		}).Info("Сервер запущен и ожидает подключения...")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Сервер останавливается (ctx done)...")
	case err := <-errCh:
		s.limiter.Close()
		return fmt.Errorf("ошибка HTTP-сервера: %w", err)
	}
	return s.Shutdown()
}

// Shutdown останавливает приём запросов. Открытые WebSocket закрывает хаб по отмене ctx.
func (s *Server) Shutdown() error {
	defer s.limiter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTPShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP-сервера: %w", err)
	}
	return nil
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	token := filters.TokenFromRequest(r)
	ip := filters.ClientIP(r, s.cfg.WSTrustClientAddress)
	fingerprint := filters.Fingerprint(r, s.cfg.WSTrustClientAddress)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).WithField("ip", ip).Debug("Ошибка апгрейда WebSocket")
		return
	}

	id, err := s.auth.Authenticate(r.Context(), token, ip, fingerprint)
	if err != nil {
		s.rejectConn(ws, ip, err)
		return
	}

	c := newClient(gameplay.ConnInfo{
		ID:                uuid.NewString(),
		PlayerID:          id.PlayerID,
		Username:          id.Username,
		IPAddress:         id.IPAddress,
		DeviceFingerprint: id.DeviceFingerprint,
	}, ws, s.cfg.WSSendBuffer)

	ctx := s.ctx
	if !s.hub.Register(ctx, c) {
		ws.Close()
		return
	}
	s.metrics.ConnectionOpened()
	if s.tracker != nil {
		s.tracker.Opened(ctx, c.info.ID, c.info.PlayerID, ip, fingerprint)
	}

	logger := log.WithFields(log.Fields{
		"player_id": c.info.PlayerID,
		"conn_id":   c.info.ID,
		"ip":        ip,
	})
	logger.Info("Игрок подключился")

	go c.writePump(s.cfg.WSWriteWait, s.cfg.WSPongWait*9/10)
	_ = c.Send(gameplay.ConnectionEstablished{
		Type:     gameplay.EventConnectionEstablished,
		PlayerID: c.info.PlayerID,
		Username: c.info.Username,
	})

	c.readPump(ctx, s)

	// соединение закрыто: попытка остаётся ACTIVE до выхода или автозакрытия
	cleanupCtx := context.WithoutCancel(ctx)
	s.hub.Unregister(ctx, c)
	if s.sessions != nil {
		s.sessions.Disconnect(cleanupCtx, c.info)
	}
	s.metrics.ConnectionClosed()
	logger.Info("Игрок отключился")
}

// rejectConn закрывает сокет с кодом из *filters.AuthError (4000 для прочих ошибок).
func (s *Server) rejectConn(ws *websocket.Conn, ip string, err error) {
	code, reason := filters.CloseAuthFailed, "Authentication failed"
	var authErr *filters.AuthError
	if errors.As(err, &authErr) {
		code, reason = authErr.Code, authErr.Reason
	}

	s.metrics.ObserveRejected(strconv.Itoa(code))
	log.WithError(err).WithFields(log.Fields{
		"ip":   ip,
		"code": code,
	}).Warn("Подключение отклонено")

	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(s.cfg.WSWriteWait))
	ws.Close()
}

// dispatch передаёт сообщение обработчику с учётом общего лимита параллелизма.
func (s *Server) dispatch(ctx context.Context, c *Client, raw []byte) {
	select {
	case s.inflight <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-s.inflight }()
	defer middleware.RecoverFromPanic()

	s.handler.Handle(ctx, c, raw)
}

type statusResponse struct {
	Status      string  `json:"status"`
	Connections int     `json:"connections"`
	Players     int     `json:"connected_players"`
	PlayerIDs   []int64 `json:"active_connections"`
	ActiveGames int     `json:"active_games"`
}

func (s *Server) serveStatus(w http.ResponseWriter, _ *http.Request) {
	players := s.hub.Players()
	resp := statusResponse{
		Status:      "ok",
		Connections: s.hub.Count(),
		Players:     len(players),
		PlayerIDs:   players,
	}
	if s.games != nil {
		resp.ActiveGames = s.games.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			log.WithError(err).Warn("Проверка здоровья: база недоступна")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("Ошибка записи ответа")
	}
}
