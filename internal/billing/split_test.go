package billing

import (
	"testing"

	"talkline/internal/calls"
)

func TestComputeSplit(t *testing.T) {
	cases := []struct {
		name      string
		unit      int64
		purchased int64
		used      calls.Minutes
		bps       int64
		prorated  int64
		payee     int64
	}{
		{"full use", 3000, 30, calls.WholeMinutes(30), 1000, 3000, 2700},
		{"partial", 3000, 30, calls.WholeMinutes(29), 1000, 2900, 2610},
		{"rounding half up", 1000, 3, calls.WholeMinutes(1), 1000, 333, 300},
		{"fractional minutes", 999, 10, 125, 1500, 125, 106},
		{"zero usage", 3000, 30, 0, 1000, 0, 0},
		{"no fee", 500, 5, calls.WholeMinutes(5), 0, 500, 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeSplit(tc.unit, tc.purchased, tc.used, tc.bps)
			if got.ProratedMinor != tc.prorated {
				t.Fatalf("prorated: expected %d, got %d", tc.prorated, got.ProratedMinor)
			}
			if got.PayeeAmountMinor != tc.payee {
				t.Fatalf("payee: expected %d, got %d", tc.payee, got.PayeeAmountMinor)
			}
			if got.AppFeeMinor+got.PayeeAmountMinor != got.ProratedMinor {
				t.Fatalf("split does not sum: %+v", got)
			}
		})
	}
}

func TestComputeSplit_SumsForAllUsage(t *testing.T) {
	for used := calls.Minutes(0); used <= calls.WholeMinutes(7); used += 7 {
		got := ComputeSplit(1234, 7, used, 1250)
		if got.AppFeeMinor+got.PayeeAmountMinor != got.ProratedMinor {
			t.Fatalf("used=%s: split does not sum: %+v", used, got)
		}
		if got.AppFeeMinor < 0 || got.PayeeAmountMinor < 0 {
			t.Fatalf("used=%s: negative part: %+v", used, got)
		}
	}
}
