package currency

// fallbackUnitsPerUSD approximates how many units of each currency one US
// dollar buys. Used only when the live rate service is unreachable.
var fallbackUnitsPerUSD = map[string]float64{
	"USD": 1,
	"EUR": 0.92,
	"GBP": 0.79,
	"JPY": 150,
	"KRW": 1350,
	"CNY": 7.2,
	"AUD": 1.52,
	"CAD": 1.36,
	"CHF": 0.88,
	"SGD": 1.34,
	"THB": 35.5,
	"HKD": 7.8,
}

// StaticRate returns the fallback rate for converting one unit of from
// into to.
func StaticRate(from, to string) (float64, bool) {
	f, okF := fallbackUnitsPerUSD[from]
	t, okT := fallbackUnitsPerUSD[to]
	if !okF || !okT || f == 0 {
		return 0, false
	}
	return t / f, true
}
