package strava

import (
	"net/http"
	"testing"
	"time"
)

func TestUntilNextWindow(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Duration
	}{
		{"on the hour", time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), 15*time.Minute + resetSlack},
		{"one minute before quarter", time.Date(2024, 1, 15, 10, 14, 0, 0, time.UTC), time.Minute + resetSlack},
		{"on the quarter", time.Date(2024, 1, 15, 10, 15, 0, 0, time.UTC), 15*time.Minute + resetSlack},
		{"mid window with seconds", time.Date(2024, 1, 15, 10, 37, 30, 0, time.UTC), 7*time.Minute + 30*time.Second + resetSlack},
		{"end of hour", time.Date(2024, 1, 15, 10, 59, 0, 0, time.UTC), time.Minute + resetSlack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := untilNextWindow(tt.at); got != tt.want {
				t.Errorf("untilNextWindow(%s) = %v, want %v", tt.at.Format("15:04:05"), got, tt.want)
			}
		})
	}
}

func TestUntilMidnightUTC(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Duration
	}{
		{"at midnight", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 24*time.Hour + resetSlack},
		{"at noon", time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), 12*time.Hour + resetSlack},
		{"late evening", time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC), time.Minute + resetSlack},
		{"other zone", time.Date(2024, 1, 15, 20, 0, 0, 0, time.FixedZone("EST", -5*3600)), 23*time.Hour + resetSlack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := untilMidnightUTC(tt.at); got != tt.want {
				t.Errorf("untilMidnightUTC(%s) = %v, want %v", tt.at.Format(time.RFC3339), got, tt.want)
			}
		})
	}
}

func TestRateLimitInfoApproaching(t *testing.T) {
	tests := []struct {
		name  string
		info  RateLimitInfo
		short bool
		daily bool
	}{
		{"well under", RateLimitInfo{Limit15Min: 100, Usage15Min: 50, LimitDaily: 1000, UsageDaily: 500}, false, false},
		{"inside 15min buffer", RateLimitInfo{Limit15Min: 100, Usage15Min: 95}, true, false},
		{"just outside 15min buffer", RateLimitInfo{Limit15Min: 100, Usage15Min: 94}, false, false},
		{"inside daily buffer", RateLimitInfo{LimitDaily: 1000, UsageDaily: 996}, false, true},
		{"unknown limits", RateLimitInfo{Usage15Min: 100, UsageDaily: 1000}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.IsApproaching15MinLimit(); got != tt.short {
				t.Errorf("IsApproaching15MinLimit() = %v, want %v", got, tt.short)
			}
			if got := tt.info.IsApproachingDailyLimit(); got != tt.daily {
				t.Errorf("IsApproachingDailyLimit() = %v, want %v", got, tt.daily)
			}
		})
	}
}

func TestParseRateLimitHeaders(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 5, 0, 0, time.UTC)

	t.Run("read limits are tighter", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-RateLimit-Limit", "200,2000")
		h.Set("X-RateLimit-Usage", "10,100")
		h.Set("X-ReadRateLimit-Limit", "100,1000")
		h.Set("X-ReadRateLimit-Usage", "12,90")

		info := parseRateLimitHeaders(h, now)
		if info.Limit15Min != 100 || info.LimitDaily != 1000 {
			t.Errorf("expected limits 100/1000, got %d/%d", info.Limit15Min, info.LimitDaily)
		}
		if info.Usage15Min != 12 || info.UsageDaily != 100 {
			t.Errorf("expected usage 12/100, got %d/%d", info.Usage15Min, info.UsageDaily)
		}
		if info.RecommendedWait != 0 || info.IsRateLimited {
			t.Errorf("expected no wait, got %v (limited=%v)", info.RecommendedWait, info.IsRateLimited)
		}
	})

	t.Run("exhausted 15min window", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-RateLimit-Limit", "100,1000")
		h.Set("X-RateLimit-Usage", "100,400")

		info := parseRateLimitHeaders(h, now)
		if !info.IsRateLimited {
			t.Error("expected rate limited")
		}
		if info.RecommendedWait != 10*time.Minute+resetSlack {
			t.Errorf("expected wait until :15, got %v", info.RecommendedWait)
		}
	})

	t.Run("exhausted daily", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-RateLimit-Limit", "100,1000")
		h.Set("X-RateLimit-Usage", "3,1000")

		info := parseRateLimitHeaders(h, now)
		if info.RecommendedWait != info.TimeUntilDailyReset {
			t.Errorf("expected wait until midnight, got %v", info.RecommendedWait)
		}
	})

	t.Run("no headers", func(t *testing.T) {
		info := parseRateLimitHeaders(http.Header{}, now)
		if info.Limit15Min != 0 || info.RecommendedWait != 0 {
			t.Errorf("expected empty info, got %+v", info)
		}
	})
}

func TestRedactedHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Accept", "application/json")

	got := redactedHeaders(h)
	want := `{Accept: "application/json", Authorization: "[REDACTED]"}`
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if redactedHeaders(http.Header{}) != "{}" {
		t.Error("expected {} for empty headers")
	}
}
