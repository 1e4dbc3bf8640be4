package revenue

import "strings"

// vatRates maps currencies to the flat consumption-tax rate (percent) of
// their primary jurisdiction. Prices in these currencies are VAT-inclusive,
// so when the processor reports no tax the VAT share is carved out of the
// gross amount instead of added on top.
var vatRates = map[string]int64{
	"eur": 20,
	"gbp": 20,
	"sek": 25,
	"dkk": 25,
	"nok": 25,
	"pln": 23,
	"chf": 8,
}

// EstimateTax returns the VAT-inclusive tax share of a gross amount:
// round(gross * rate / (100 + rate)), half up at the cent boundary.
// Currencies without a known flat rate estimate zero.
func EstimateTax(grossAmount int64, currency string) int64 {
	rate, ok := vatRates[strings.ToLower(currency)]
	if !ok || grossAmount <= 0 {
		return 0
	}
	return roundHalfUp(grossAmount*rate, 100+rate)
}

// roundHalfUp divides num by den rounding half away from zero toward
// positive infinity. Inputs are non-negative minor units.
func roundHalfUp(num, den int64) int64 {
	return (2*num + den) / (2 * den)
}
