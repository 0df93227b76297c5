// Package common — errors.go определяет ошибки, которые используются во всех модулях сервера.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять игроку понятное событие error с нужным kind.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки валидации входящих сообщений
var (
	// ErrValidation — некорректная форма сообщения или недопустимое значение поля
	ErrValidation = errors.New("некорректный запрос")
	// ErrPlayerMismatch — player_id в сообщении не совпадает с игроком соединения
	ErrPlayerMismatch = errors.New("player_id не совпадает с авторизованным игроком")
)

// Ошибки поиска ресурсов
var (
	// ErrLevelNotFound — уровень не найден в конфигурации
	ErrLevelNotFound = errors.New("уровень не найден")
	// ErrPlayerNotFound — игрок не найден в базе
	ErrPlayerNotFound = errors.New("игрок не найден")
	// ErrNoActiveAttempt — у игрока нет активной попытки
	ErrNoActiveAttempt = errors.New("нет активной игры")
	// ErrSessionNotFound — сессия авторизации не найдена
	ErrSessionNotFound = errors.New("сессия не найдена")
)

// Ошибки игрового цикла
var (
	// ErrAttemptActive — у игрока уже есть активная попытка
	ErrAttemptActive = errors.New("игра уже запущена")
	// ErrInvalidTransition — недопустимый переход статуса попытки
	ErrInvalidTransition = errors.New("недопустимый переход состояния попытки")
	// ErrCheatDetected — сработала анти-чит проверка
	ErrCheatDetected = errors.New("обнаружено нарушение правил, аккаунт заблокирован")
	// ErrPlayerBanned — игрок заблокирован
	ErrPlayerBanned = errors.New("игрок заблокирован")
)

// Ошибки экономики
var (
	// ErrInsufficientFunds — недостаточно токенов или кристаллов
	ErrInsufficientFunds = errors.New("недостаточно средств")
	// ErrInvalidAmount — отрицательная сумма операции
	ErrInvalidAmount = errors.New("сумма не может быть отрицательной")
)

// Shortfall описывает нехватку одной валюты.
type Shortfall struct {
	Currency  string // "tokens", "blue", "green", "red"
	Available string
	Required  string
}

// InsufficientFundsError перечисляет все валюты, которых не хватило для списания.
// errors.Is(err, ErrInsufficientFunds) == true.
type InsufficientFundsError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientFundsError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s: %s/%s", CurrencyTitle(s.Currency), s.Available, s.Required))
	}
	return fmt.Sprintf("%s: %s", ErrInsufficientFunds.Error(), strings.Join(parts, ", "))
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Validationf оборачивает ErrValidation с деталями.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Виды ошибок в исходящем событии error
const (
	KindValidation        = "validation"
	KindNotFound          = "not_found"
	KindInsufficientFunds = "insufficient_funds"
	KindCheatDetected     = "cheat_detected"
	KindConflict          = "conflict"
	KindForbidden         = "forbidden"
	KindInternal          = "internal"
)

// ErrorKind сопоставляет ошибку с kind исходящего события.
// Всё, что не распознано, считается внутренней ошибкой.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrPlayerMismatch), errors.Is(err, ErrInvalidAmount):
		return KindValidation
	case errors.Is(err, ErrLevelNotFound), errors.Is(err, ErrPlayerNotFound),
		errors.Is(err, ErrNoActiveAttempt), errors.Is(err, ErrSessionNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrCheatDetected):
		return KindCheatDetected
	case errors.Is(err, ErrAttemptActive), errors.Is(err, ErrInvalidTransition):
		return KindConflict
	case errors.Is(err, ErrPlayerBanned):
		return KindForbidden
	default:
		return KindInternal
	}
}

// PublicMessage возвращает текст для игрока. Внутренние ошибки не раскрываются.
func PublicMessage(err error) string {
	if ErrorKind(err) == KindInternal {
		return "внутренняя ошибка сервера, попробуйте позже"
	}
	return err.Error()
}
