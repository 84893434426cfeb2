package stock

import (
	"testing"
	"time"
)

func TestIsMarketOpen_Boundaries(t *testing.T) {
	// 2025-01-06 is a Monday, 2025-01-10 a Friday.
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"monday open bell", time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), true},
		{"monday before open", time.Date(2025, 1, 6, 8, 59, 0, 0, time.UTC), false},
		{"saturday noon", time.Date(2025, 1, 11, 12, 0, 0, 0, time.UTC), false},
		{"sunday noon", time.Date(2025, 1, 12, 12, 0, 0, 0, time.UTC), false},
		{"friday close bell", time.Date(2025, 1, 10, 17, 30, 0, 0, time.UTC), true},
		{"friday close bell last second", time.Date(2025, 1, 10, 17, 30, 59, 0, time.UTC), true},
		{"friday after close", time.Date(2025, 1, 10, 17, 31, 0, 0, time.UTC), false},
		{"wednesday midday", time.Date(2025, 1, 8, 13, 15, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		if got := IsMarketOpen(tc.at); got != tc.want {
			t.Fatalf("%s: IsMarketOpen(%s) = %v, want %v", tc.name, tc.at, got, tc.want)
		}
	}
}

func TestIsMarketOpen_UsesLocationOfTime(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 08:30 UTC on a winter Monday is 09:30 in Paris.
	utc := time.Date(2025, 1, 6, 8, 30, 0, 0, time.UTC)
	if IsMarketOpen(utc) {
		t.Fatalf("expected closed in UTC")
	}
	if !IsMarketOpen(utc.In(paris)) {
		t.Fatalf("expected open in Paris")
	}
}
