package billing

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	if !dec(want).Equal(got) {
		assert.Fail(t, fmt.Sprintf("want %s, got %s", want, got), msgAndArgs...)
	}
}

func TestTimeCost_Tiered(t *testing.T) {
	tests := []struct {
		name    string
		minutes int64
		hourly  string
		first   string
		want    string
	}{
		{"zero minutes", 0, "100", "50", "0"},
		{"grace boundary is free", 15, "100", "50", "0"},
		{"first minute past grace", 16, "100", "50", "50"},
		{"first hour plateau end", 60, "100", "50", "50"},
		{"one minute of overage rounds up", 61, "100", "50", "52"},
		{"exactly one extra hour", 120, "100", "50", "150"},
		{"half hour overage", 90, "100", "50", "100"},
		{"fractional rate", 75, "10.5", "20", "23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDec(t, tt.want, TimeCost(tt.minutes, dec(tt.hourly), ptr(dec(tt.first))))
		})
	}
}

func TestTimeCost_GraceIndependentOfRates(t *testing.T) {
	for _, r := range []string{"0", "1", "99.99", "1000"} {
		for _, f := range []string{"0", "5", "250"} {
			assertDec(t, "0", TimeCost(15, dec(r), ptr(dec(f))), "rate=%s first=%s", r, f)
			assertDec(t, f, TimeCost(16, dec(r), ptr(dec(f))))
			assertDec(t, f, TimeCost(60, dec(r), ptr(dec(f))))
		}
	}
}

func TestTimeCost_Legacy(t *testing.T) {
	assertDec(t, "90", TimeCost(90, dec("60"), nil))
	assertDec(t, "2", TimeCost(1, dec("100"), nil), "rounded up, never undercharged")
	assertDec(t, "0", TimeCost(0, dec("100"), nil))
	assertDec(t, "70", TimeCost(70, dec("60"), nil), "no float drift on exact multiples")
	assertDec(t, "5", TimeCost(10, dec("30"), nil))
}

func TestTimeCost_NegativeMinutesPropagate(t *testing.T) {
	assertDec(t, "-1", TimeCost(-90, dec("1"), nil))
	assertDec(t, "0", TimeCost(-5, dec("100"), ptr(dec("50"))), "negative falls in the grace branch")
}

func TestTimeCost_Monotonic(t *testing.T) {
	first := ptr(dec("50"))
	prevTiered := TimeCost(0, dec("37.5"), first)
	prevLegacy := TimeCost(0, dec("37.5"), nil)
	for m := int64(1); m <= 600; m++ {
		tiered := TimeCost(m, dec("37.5"), first)
		legacy := TimeCost(m, dec("37.5"), nil)
		assert.False(t, tiered.LessThan(prevTiered), "tiered cost decreased at %d minutes", m)
		assert.False(t, legacy.LessThan(prevLegacy), "legacy cost decreased at %d minutes", m)
		prevTiered, prevLegacy = tiered, legacy
	}
}

func TestElapsedMinutes(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(15), ElapsedMinutes(start, start.Add(15*time.Minute+59*time.Second)))
	assert.Equal(t, int64(16), ElapsedMinutes(start, start.Add(16*time.Minute)))
	assert.Equal(t, int64(0), ElapsedMinutes(start, start))
}

func TestMinutesToHours(t *testing.T) {
	assertDec(t, "1.5", MinutesToHours(90))
	assertDec(t, "3", MinutesToHours(180))
}
