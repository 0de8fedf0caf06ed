package strava

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Requests kept in reserve below each limit
const rateLimitBuffer = 5

const limitWindow = 15 * time.Minute

// resetSlack pushes waits just past the reset boundary
const resetSlack = 2 * time.Second

// RateLimitInfo is the API budget reported by Strava response headers
type RateLimitInfo struct {
	Limit15Min    int
	Usage15Min    int
	LimitDaily    int
	UsageDaily    int
	IsRateLimited bool

	TimeUntil15MinReset time.Duration
	TimeUntilDailyReset time.Duration
	RecommendedWait     time.Duration
}

// IsApproaching15MinLimit reports usage within the buffer of the 15-minute limit
func (info RateLimitInfo) IsApproaching15MinLimit() bool {
	return info.Limit15Min > 0 && info.Usage15Min >= info.Limit15Min-rateLimitBuffer
}

// IsApproachingDailyLimit reports usage within the buffer of the daily limit
func (info RateLimitInfo) IsApproachingDailyLimit() bool {
	return info.LimitDaily > 0 && info.UsageDaily >= info.LimitDaily-rateLimitBuffer
}

// evaluate fills reset times and the recommended wait as of now
func (info *RateLimitInfo) evaluate(now time.Time) {
	info.TimeUntil15MinReset = untilNextWindow(now)
	info.TimeUntilDailyReset = untilMidnightUTC(now)

	exhausted15 := info.Limit15Min > 0 && info.Usage15Min >= info.Limit15Min
	exhaustedDaily := info.LimitDaily > 0 && info.UsageDaily >= info.LimitDaily
	if exhausted15 || exhaustedDaily {
		info.IsRateLimited = true
	}

	switch {
	case exhausted15:
		info.RecommendedWait = info.TimeUntil15MinReset
	case exhaustedDaily:
		info.RecommendedWait = info.TimeUntilDailyReset
	case info.IsApproaching15MinLimit():
		info.RecommendedWait = info.TimeUntil15MinReset
	case info.IsApproachingDailyLimit():
		info.RecommendedWait = info.TimeUntilDailyReset
	default:
		info.RecommendedWait = 0
	}
}

// untilNextWindow returns the time to the next quarter-hour boundary.
// Strava resets short-term limits at :00, :15, :30 and :45.
func untilNextWindow(now time.Time) time.Duration {
	next := now.Truncate(limitWindow).Add(limitWindow)
	return next.Sub(now) + resetSlack
}

func untilMidnightUTC(now time.Time) time.Duration {
	u := now.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day()+1, 0, 0, 0, 0, time.UTC)
	return midnight.Sub(u) + resetSlack
}

// parseRateLimitHeaders merges the general and read-specific limits.
// Each header is "15min,daily"; the tighter limit and higher usage win.
func parseRateLimitHeaders(h http.Header, now time.Time) RateLimitInfo {
	genLimit15, genLimitDay := parsePair(h.Get("X-RateLimit-Limit"))
	genUsage15, genUsageDay := parsePair(h.Get("X-RateLimit-Usage"))
	readLimit15, readLimitDay := parsePair(h.Get("X-ReadRateLimit-Limit"))
	readUsage15, readUsageDay := parsePair(h.Get("X-ReadRateLimit-Usage"))

	info := RateLimitInfo{
		Limit15Min: tighter(genLimit15, readLimit15),
		LimitDaily: tighter(genLimitDay, readLimitDay),
		Usage15Min: max(genUsage15, readUsage15),
		UsageDaily: max(genUsageDay, readUsageDay),
	}
	info.evaluate(now)
	return info
}

func parsePair(v string) (int, int) {
	if v == "" {
		return 0, 0
	}
	first, second, _ := strings.Cut(v, ",")
	a, _ := strconv.Atoi(strings.TrimSpace(first))
	b, _ := strconv.Atoi(strings.TrimSpace(second))
	return a, b
}

// tighter returns the smaller positive limit; zero means unknown
func tighter(a, b int) int {
	switch {
	case a <= 0:
		return b
	case b <= 0:
		return a
	default:
		return min(a, b)
	}
}
