package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/puzzle-arena/internal/features/gameplay"
	"serotonyl.ru/puzzle-arena/internal/server/middleware"
)

var (
	errClientClosed = errors.New("соединение закрыто")
	errSlowClient   = errors.New("очередь отправки переполнена")
)

// Client — одно WebSocket-соединение игрока. Реализует gameplay.Conn.
// Читает одна горутина (readPump), пишет другая (writePump); остальные только кладут в send.
type Client struct {
	info gameplay.ConnInfo
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(info gameplay.ConnInfo, ws *websocket.Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = 64
	}
	return &Client{
		info: info,
		ws:   ws,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *Client) Info() gameplay.ConnInfo { return c.info }

// Send сериализует событие и ставит его в очередь отправки.
func (c *Client) Send(v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}
	return c.enqueue(msg)
}

func (c *Client) enqueue(msg []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		log.WithFields(log.Fields{
			"player_id": c.info.PlayerID,
			"conn_id":   c.info.ID,
		}).Warn("Клиент не успевает читать, соединение закрывается")
		c.Close()
		return errSlowClient
	}
}

// Close просит writePump закрыть соединение. Повторные вызовы безопасны.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump отправляет сообщения из очереди и пинги, пока клиент не закрыт.
func (c *Client) writePump(writeWait, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			// досылаем то, что уже в очереди (например, событие error перед закрытием)
		drain:
			for {
				select {
				case msg := <-c.send:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					break drain
				}
			}
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// MessageHandler обрабатывает одно входящее сообщение.
type MessageHandler interface {
	Handle(ctx context.Context, conn gameplay.Conn, raw []byte)
}

// readPump читает сообщения по очереди до ошибки чтения или закрытия клиента.
func (c *Client) readPump(ctx context.Context, s *Server) {
	defer c.Close()

	c.ws.SetReadLimit(s.cfg.WSMaxMessageBytes)
	c.ws.SetReadDeadline(time.Now().Add(s.cfg.WSPongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(s.cfg.WSPongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("conn_id", c.info.ID).Debug("Соединение прервано")
			}
			return
		}

		middleware.LogMessage(c.info.PlayerID, c.info.ID, raw)

		if !s.limiter.Allow(c.info.PlayerID) {
			s.metrics.ObserveRateLimited()
			log.WithField("player_id", c.info.PlayerID).Debug("rate limited")
			_ = c.Send(gameplay.ErrorEvent{
				Type:    gameplay.EventError,
				Kind:    "rate_limited",
				Message: "слишком много сообщений, подождите",
			})
			continue
		}

		s.dispatch(ctx, c, raw)
	}
}
