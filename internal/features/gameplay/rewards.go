package gameplay

import (
	"github.com/shopspring/decimal"

	"serotonyl.ru/puzzle-arena/internal/features/economy"
)

var hundred = decimal.NewFromInt(100)

// Rewards считает награду за попытку:
//
//	tokens = round((entryCost + rewardCoins) × score / 100, 2)
//	gems[c] = round(rewardGems[c] × score / 100)
//
// Обе суммы округляются банковским способом (половина к чётному).
func Rewards(entryCost, rewardCoins decimal.Decimal, rewardGems economy.Gems, score float64) (decimal.Decimal, economy.Gems) {
	ratio := decimal.NewFromFloat(score).Div(hundred)
	tokens := entryCost.Add(rewardCoins).Mul(ratio).RoundBank(2)
	return tokens, rewardGems.Scale(score)
}
