package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{Validationf("action_type %q", "JUMP"), KindValidation},
		{fmt.Errorf("загрузка уровня: %w", ErrLevelNotFound), KindNotFound},
		{&InsufficientFundsError{}, KindInsufficientFunds},
		{ErrAttemptActive, KindConflict},
		{fmt.Errorf("exit: %w", ErrCheatDetected), KindCheatDetected},
		{ErrPlayerBanned, KindForbidden},
		{errors.New("connection reset"), KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, ErrorKind(tc.err), tc.err.Error())
	}
	assert.Empty(t, ErrorKind(nil))
}

func TestInsufficientFundsMessage(t *testing.T) {
	err := error(&InsufficientFundsError{Shortfalls: []Shortfall{
		{Currency: "tokens", Available: "50.00", Required: "100.00"},
		{Currency: "blue", Available: "0", Required: "2"},
	}})
	require.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.Equal(t, "недостаточно средств: токены: 50.00/100.00, синие кристаллы: 0/2", err.Error())
}

func TestPublicMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "внутренняя ошибка сервера, попробуйте позже", PublicMessage(errors.New("pq: deadlock")))
	assert.Equal(t, ErrAttemptActive.Error(), PublicMessage(ErrAttemptActive))
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "токен", PluralizeTokens(21))
	assert.Equal(t, "токена", PluralizeTokens(3))
	assert.Equal(t, "токенов", PluralizeTokens(12))
	assert.Equal(t, "2 кристалла", FormatGems(2))
	assert.Equal(t, "5 кристаллов", FormatGems(5))
	assert.Equal(t, "120 токенов", FormatTokens(decimal.RequireFromString("120.00")))
	assert.Equal(t, "12.50 токена", FormatTokens(decimal.RequireFromString("12.5")))
}

func TestRoundAndClamp(t *testing.T) {
	assert.Equal(t, 1.24, RoundTo(1.236, 2))
	assert.Equal(t, 1.23, RoundTo(1.2345, 2))
	assert.Equal(t, 2.0, Clamp(3.7, 1, 2))
	assert.Equal(t, 1.0, Clamp(0.2, 1, 2))
	assert.Equal(t, 3, ClampInt(9, 1, 3))
}
