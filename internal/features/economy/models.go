// Package economy управляет игровой валютой: токенами и тремя цветами кристаллов.
// models.go описывает кошелёк игрока, операции и записи журнала транзакций.
package economy

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Gems — балансы или суммы кристаллов трёх цветов.
type Gems struct {
	Blue  int64 `json:"blue" yaml:"blue"`
	Green int64 `json:"green" yaml:"green"`
	Red   int64 `json:"red" yaml:"red"`
}

// Add складывает покомпонентно.
func (g Gems) Add(o Gems) Gems {
	return Gems{Blue: g.Blue + o.Blue, Green: g.Green + o.Green, Red: g.Red + o.Red}
}

// Sub вычитает покомпонентно.
func (g Gems) Sub(o Gems) Gems {
	return Gems{Blue: g.Blue - o.Blue, Green: g.Green - o.Green, Red: g.Red - o.Red}
}

// IsZero — все цвета равны нулю.
func (g Gems) IsZero() bool {
	return g.Blue == 0 && g.Green == 0 && g.Red == 0
}

// HasNegative — хотя бы один цвет отрицательный.
func (g Gems) HasNegative() bool {
	return g.Blue < 0 || g.Green < 0 || g.Red < 0
}

// Scale возвращает round(g[color] × percent / 100) для каждого цвета.
// Половина округляется к чётному: 2.5 → 2, 3.5 → 4.
func (g Gems) Scale(percent float64) Gems {
	scale := func(v int64) int64 { return int64(math.RoundToEven(float64(v) * percent / 100)) }
	return Gems{Blue: scale(g.Blue), Green: scale(g.Green), Red: scale(g.Red)}
}

// byColor — порядок обхода цветов для сообщений о нехватке средств.
func (g Gems) byColor() []struct {
	color string
	value int64
} {
	return []struct {
		color string
		value int64
	}{{"blue", g.Blue}, {"green", g.Green}, {"red", g.Red}}
}

// Wallet — текущие балансы игрока.
type Wallet struct {
	PlayerID int64
	Tokens   decimal.Decimal
	Gems     Gems
}

// Direction — направление движения средств.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Типы транзакций
const (
	TxTypeGameEntry = "game_entry" // Плата за вход в уровень
	TxTypeReward    = "reward"     // Награда за прохождение
)

// Operation — запрос на списание или начисление.
type Operation struct {
	PlayerID    int64
	AttemptID   *int64 // Попытка, вызвавшая операцию
	Tokens      decimal.Decimal
	Gems        Gems
	Type        string
	Description string
}

// Transaction — неизменяемая запись журнала.
// Каждая операция Ledger создаёт ровно одну запись со снимком баланса после операции.
type Transaction struct {
	ID           int64
	PlayerID     int64
	AttemptID    *int64
	Direction    Direction
	Type         string
	Tokens       decimal.Decimal
	Gems         Gems
	BalanceAfter decimal.Decimal
	GemsAfter    Gems
	Description  string
	CreatedAt    time.Time
}
