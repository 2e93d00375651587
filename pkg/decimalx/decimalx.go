package decimalx

import "github.com/shopspring/decimal"

// MustFromString is for literals known good at compile time.
func MustFromString(s string) decimal.Decimal {
	res, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return res
}
