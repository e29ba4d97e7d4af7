package models

import "strings"

// currencyPrecision maps ISO currencies to their minor-unit precision.
var currencyPrecision = map[string]int{
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"CAD": 2,
	"AUD": 2,
	"JPY": 0,
	"KRW": 0,
}

// CurrencyPrecision returns the number of minor-unit digits for currency, 2 when unknown.
func CurrencyPrecision(currency string) int {
	if p, ok := currencyPrecision[strings.ToUpper(currency)]; ok {
		return p
	}
	return 2
}
