//go:build ignore

// issue_token.go — утилита для локальной разработки: выпускает JWT игрока
// и печатает SQL для записи сессии в player_sessions.
// Запуск: JWT_SECRET=... go run scripts/issue_token.go <player_id> [fingerprint] [ttl]
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"serotonyl.ru/puzzle-arena/internal/server/filters"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Использование: go run scripts/issue_token.go <player_id> [fingerprint] [ttl, например 24h]")
		os.Exit(1)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Println("Задайте JWT_SECRET")
		os.Exit(1)
	}

	playerID, err := strconv.ParseInt(os.Args[1], 10, 64)
	if err != nil || playerID <= 0 {
		fmt.Printf("Некорректный player_id: %s\n", os.Args[1])
		os.Exit(1)
	}

	fingerprint := ""
	if len(os.Args) > 2 {
		fingerprint = os.Args[2]
	}

	ttl := 24 * time.Hour
	if len(os.Args) > 3 {
		if ttl, err = time.ParseDuration(os.Args[3]); err != nil {
			fmt.Printf("Некорректный ttl: %v\n", err)
			os.Exit(1)
		}
	}

	expires := time.Now().Add(ttl).UTC()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(playerID, 10),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}).SignedString([]byte(secret))
	if err != nil {
		fmt.Printf("Ошибка подписи токена: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Токен (передайте в ?token= или cookie access_token):")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("SQL для player_sessions:")
	fmt.Printf("INSERT INTO player_sessions (player_id, token_hash, device_fingerprint, expires_at) VALUES (%d, '%s', '%s', '%s');\n",
		playerID, filters.HashToken(token), fingerprint, expires.Format(time.RFC3339))
}
