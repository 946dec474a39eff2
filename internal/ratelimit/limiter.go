// Package ratelimit implements per-identity admission control across
// minute, hour and day windows, with escalating blocks for repeat violators.
package ratelimit

import (
	"sync"
	"time"

	"auroraai/internal/domain"
)

// Window lengths. Each window resets lazily when its elapsed time exceeds
// the fixed length.
const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
	dayWindow    = 24 * time.Hour
)

// Reason identifies why an admission check failed
type Reason string

const (
	ReasonBlocked      Reason = "Blocked"
	ReasonMinuteLimit  Reason = "MinuteLimitExceeded"
	ReasonHourlyTokens Reason = "HourlyTokenLimitExceeded"
	ReasonDailyLimit   Reason = "DailyLimitExceeded"
)

// Message returns the user-facing rejection message for a reason
func (r Reason) Message() string {
	switch r {
	case ReasonBlocked:
		return "temporarily blocked due to repeated violations"
	case ReasonMinuteLimit:
		return "rate limit exceeded: too many requests per minute"
	case ReasonHourlyTokens:
		return "rate limit exceeded: too many tokens per hour"
	case ReasonDailyLimit:
		return "rate limit exceeded: too many requests per day"
	default:
		return ""
	}
}

// Settings contains limiter-wide penalty settings
type Settings struct {
	ViolationPenalty time.Duration // block applied per violation
	ExtendedPenalty  time.Duration // block applied once MaxViolations reached
	MaxViolations    int           // violations before extended blocks kick in
}

// DefaultSettings returns the standard penalty settings
func DefaultSettings() Settings {
	return Settings{
		ViolationPenalty: 5 * time.Minute,
		ExtendedPenalty:  1 * time.Hour,
		MaxViolations:    5,
	}
}

// entry tracks one identity's usage. Window starts only ever move forward.
type entry struct {
	requests    int
	tokens      int
	windowStart time.Time

	hourlyTokens      int
	hourlyWindowStart time.Time

	dailyRequests    int
	dailyWindowStart time.Time

	violations    int
	lastViolation time.Time
	blockedUntil  time.Time
}

// Remaining is the headroom left in each window
type Remaining struct {
	Requests int `json:"requests"`
	Tokens   int `json:"tokens"`
	Hourly   int `json:"hourly"`
	Daily    int `json:"daily"`
}

// Result is the typed outcome of an admission check. The limiter never
// returns errors; every outcome is a value.
type Result struct {
	OK             bool          `json:"ok"`
	Reason         Reason        `json:"reason,omitempty"`
	Remaining      Remaining     `json:"remaining"`
	ResetTime      time.Time     `json:"reset_time,omitempty"`
	RetryAfter     time.Duration `json:"retry_after,omitempty"`
	ViolationCount int           `json:"violation_count,omitempty"`
}

// WindowState describes one window's timing in a status snapshot
type WindowState struct {
	Start time.Time `json:"start"`
	Reset time.Time `json:"reset"`
}

// Usage is the current consumption in a status snapshot
type Usage struct {
	Requests      int `json:"requests"`
	Tokens        int `json:"tokens"`
	HourlyTokens  int `json:"hourly_tokens"`
	DailyRequests int `json:"daily_requests"`
}

// Status is a point-in-time snapshot of one identity's limiter state
type Status struct {
	Current      Usage       `json:"current"`
	Remaining    Remaining   `json:"remaining"`
	Minute       WindowState `json:"minute"`
	Hourly       WindowState `json:"hourly"`
	Daily        WindowState `json:"daily"`
	Violations   int         `json:"violations"`
	Blocked      bool        `json:"blocked"`
	BlockedUntil time.Time   `json:"blocked_until,omitempty"`
}

// Limiter guards requests against per-identity multi-window quotas.
// Construct one per process and inject it; all state is in memory.
type Limiter struct {
	mu       sync.Mutex
	entries  map[string]*entry
	settings Settings
	limits   domain.TierSource

	now func() time.Time // injectable clock for tests
}

// New creates a limiter that reads per-tier limits from the given source
func New(limits domain.TierSource, settings Settings) *Limiter {
	def := DefaultSettings()
	if settings.ViolationPenalty <= 0 {
		settings.ViolationPenalty = def.ViolationPenalty
	}
	if settings.ExtendedPenalty <= 0 {
		settings.ExtendedPenalty = def.ExtendedPenalty
	}
	if settings.MaxViolations <= 0 {
		settings.MaxViolations = def.MaxViolations
	}

	return &Limiter{
		entries:  make(map[string]*entry),
		settings: settings,
		limits:   limits,
		now:      time.Now,
	}
}

// IdentityKey derives the limiter key: user ID, else IP, else "anonymous"
func IdentityKey(userID, ip string) string {
	if userID != "" {
		return userID
	}
	if ip != "" {
		return ip
	}
	return "anonymous"
}

// CheckAndConsume performs the admission check for one request and, on
// success, consumes quota across all windows atomically.
func (l *Limiter) CheckAndConsume(identity string, tier domain.Tier, tokens int) Result {
	cfg := l.limits.LimitsFor(tier)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e := l.entries[identity]
	if e == nil {
		e = freshEntry(now)
		l.entries[identity] = e
	}

	// Block check comes before any window accounting.
	if now.Before(e.blockedUntil) {
		return Result{
			Reason:         ReasonBlocked,
			Remaining:      remaining(e, cfg),
			RetryAfter:     e.blockedUntil.Sub(now),
			ViolationCount: e.violations,
		}
	}

	resetWindows(e, now)

	if e.requests >= cfg.RequestsPerMinute {
		return l.reject(e, now, ReasonMinuteLimit, e.windowStart.Add(minuteWindow), cfg)
	}
	if cfg.TokensPerHour > 0 && e.hourlyTokens+tokens > cfg.TokensPerHour {
		return l.reject(e, now, ReasonHourlyTokens, e.hourlyWindowStart.Add(hourWindow), cfg)
	}
	if cfg.RequestsPerDay > 0 && e.dailyRequests >= cfg.RequestsPerDay {
		return l.reject(e, now, ReasonDailyLimit, e.dailyWindowStart.Add(dayWindow), cfg)
	}

	e.requests++
	e.tokens += tokens
	e.hourlyTokens += tokens
	e.dailyRequests++

	return Result{
		OK:        true,
		Remaining: remaining(e, cfg),
		ResetTime: e.windowStart.Add(minuteWindow),
	}
}

// reject records a violation and builds the rejection result. Caller holds
// the lock.
func (l *Limiter) reject(e *entry, now time.Time, reason Reason, reset time.Time, cfg domain.RateLimitConfig) Result {
	e.violations++
	e.lastViolation = now

	penalty := l.settings.ViolationPenalty
	if e.violations >= l.settings.MaxViolations {
		penalty = l.settings.ExtendedPenalty
	}
	e.blockedUntil = now.Add(penalty)

	return Result{
		Reason:         reason,
		Remaining:      remaining(e, cfg),
		ResetTime:      reset,
		RetryAfter:     reset.Sub(now),
		ViolationCount: e.violations,
	}
}

// Status returns the identity's current state without consuming quota or
// mutating any counter. Windows that have lapsed are reported as if reset.
func (l *Limiter) Status(identity string, tier domain.Tier) Status {
	cfg := l.limits.LimitsFor(tier)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e := l.entries[identity]
	if e == nil {
		e = freshEntry(now)
	} else {
		// Work on a copy so repeated status calls stay idempotent.
		copied := *e
		e = &copied
		resetWindows(e, now)
	}

	return Status{
		Current: Usage{
			Requests:      e.requests,
			Tokens:        e.tokens,
			HourlyTokens:  e.hourlyTokens,
			DailyRequests: e.dailyRequests,
		},
		Remaining:    remaining(e, cfg),
		Minute:       WindowState{Start: e.windowStart, Reset: e.windowStart.Add(minuteWindow)},
		Hourly:       WindowState{Start: e.hourlyWindowStart, Reset: e.hourlyWindowStart.Add(hourWindow)},
		Daily:        WindowState{Start: e.dailyWindowStart, Reset: e.dailyWindowStart.Add(dayWindow)},
		Violations:   e.violations,
		Blocked:      now.Before(e.blockedUntil),
		BlockedUntil: e.blockedUntil,
	}
}

// Unblock clears an identity's block and resets its violation count
func (l *Limiter) Unblock(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identity]
	if !ok || e.blockedUntil.IsZero() {
		return false
	}

	e.blockedUntil = time.Time{}
	e.violations = 0
	return true
}

// Reset zeroes an identity's entry entirely
func (l *Limiter) Reset(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[identity]; !ok {
		return false
	}

	l.entries[identity] = freshEntry(l.now())
	return true
}

// Cleanup evicts identities idle across all three windows and returns the
// number evicted. Call periodically to bound memory.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	evicted := 0
	for key, e := range l.entries {
		if now.Sub(e.windowStart) > dayWindow &&
			now.Sub(e.hourlyWindowStart) > hourWindow &&
			now.Sub(e.dailyWindowStart) > dayWindow &&
			!now.Before(e.blockedUntil) {
			delete(l.entries, key)
			evicted++
		}
	}
	return evicted
}

func freshEntry(now time.Time) *entry {
	return &entry{
		windowStart:       now,
		hourlyWindowStart: now,
		dailyWindowStart:  now,
	}
}

// resetWindows zeroes any window whose elapsed time exceeds its length.
// Window starts move forward only.
func resetWindows(e *entry, now time.Time) {
	if now.Sub(e.windowStart) > minuteWindow {
		e.requests = 0
		e.tokens = 0
		e.windowStart = now
	}
	if now.Sub(e.hourlyWindowStart) > hourWindow {
		e.hourlyTokens = 0
		e.hourlyWindowStart = now
	}
	if now.Sub(e.dailyWindowStart) > dayWindow {
		e.dailyRequests = 0
		e.dailyWindowStart = now
	}
}

func remaining(e *entry, cfg domain.RateLimitConfig) Remaining {
	return Remaining{
		Requests: max(0, cfg.RequestsPerMinute-e.requests),
		Tokens:   max(0, cfg.TokensPerHour-e.tokens),
		Hourly:   max(0, cfg.TokensPerHour-e.hourlyTokens),
		Daily:    max(0, cfg.RequestsPerDay-e.dailyRequests),
	}
}
