package enums

import "strings"

// Currency is a lowercase ISO 4217 code as understood by the payment gateway.
type Currency string

const DefaultCurrency Currency = "idr"

var zeroDecimalCurrencies = map[Currency]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "idr": {}, "jpy": {},
	"kmf": {}, "krw": {}, "mga": {}, "pyg": {}, "rwf": {}, "ugx": {},
	"vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// NormalizeCurrency lowercases and trims the code, falling back to the default.
func NormalizeCurrency(value string) Currency {
	c := Currency(strings.ToLower(strings.TrimSpace(value)))
	if c == "" {
		return DefaultCurrency
	}
	return c
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsZeroDecimal reports whether the currency has no minor unit.
func (c Currency) IsZeroDecimal() bool {
	_, ok := zeroDecimalCurrencies[c]
	return ok
}
