package billing

import "talkline/internal/calls"

const bpsScale = 10000

// Split is the money breakdown of a settlement in minor units.
type Split struct {
	ProratedMinor    int64
	AppFeeMinor      int64
	PayeeAmountMinor int64
}

// ComputeSplit prorates the package price by usage and splits off the app fee.
//
// Rounding is half-up in minor units, applied twice: once when prorating and
// once for the payee share. The app fee is the remainder, so the two parts
// always sum to the prorated amount.
func ComputeSplit(unitPriceMinor, minutesPurchased int64, used calls.Minutes, appFeeBPS int64) Split {
	purchased := calls.WholeMinutes(minutesPurchased).Hundredths()
	if purchased <= 0 || unitPriceMinor <= 0 || used <= 0 {
		return Split{}
	}
	u := used.Hundredths()
	if u > purchased {
		u = purchased
	}

	prorated := divRoundHalfUp(unitPriceMinor*u, purchased)
	payee := divRoundHalfUp(prorated*(bpsScale-appFeeBPS), bpsScale)
	return Split{
		ProratedMinor:    prorated,
		AppFeeMinor:      prorated - payee,
		PayeeAmountMinor: payee,
	}
}

// divRoundHalfUp divides non-negative integers rounding halves up.
func divRoundHalfUp(num, den int64) int64 {
	return (2*num + den) / (2 * den)
}
