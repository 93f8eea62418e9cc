package core

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places money is rounded to on output.
const MoneyPlaces = 2

// RoundMoney rounds d half away from zero to MoneyPlaces.
// Sums are kept at full precision and only rounded when leaving the service.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// maxMoney bounds the magnitude of stored money, i.e. NUMERIC(12,2).
var maxMoney = decimal.New(1, 10)

// ValidMoney reports whether d can be stored without losing precision:
// at most MoneyPlaces decimal places and 10 integer digits.
func ValidMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyPlaces)) && d.Abs().LessThan(maxMoney)
}
