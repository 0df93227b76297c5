// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
)

// LogMessage логирует входящее сообщение WebSocket.
// Записывает: player_id, conn_id, текст (первые 50 символов).
func LogMessage(playerID int64, connID string, raw []byte) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}

	text := string(raw)
	if utf8.RuneCountInString(text) > 50 {
		text = string([]rune(text)[:50]) + "..."
	}

	log.WithFields(log.Fields{
		"player_id": playerID,
		"conn_id":   connID,
		"text":      text,
		"time":      time.Now().Format("15:04:05"),
	}).Debug("Входящее сообщение")
}

// LogRequests логирует HTTP-запросы: метод, путь, статус, время.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		}).Debug("HTTP-запрос")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack нужен для апгрейда до WebSocket.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("соединение не поддерживает hijack")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
