package middleware

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"
)

// updateKind names the update type for logs and rate-limit exclusions
func updateKind(c tele.Context) string {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Query != nil:
		return "inline_query"
	case upd.Message != nil:
		return "message"
	default:
		return "other"
	}
}

func senderID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

// Recover stops a panic in a handler from killing the poller
func Recover(logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Panic recovered",
						zap.Any("panic", r),
						zap.Int("update_id", c.Update().ID),
						zap.Int64("user_id", senderID(c)),
						zap.Stack("stack"),
					)
					err = nil
				}
			}()
			return next(c)
		}
	}
}

// Logger logs every update with its handling time
func Logger(logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)

			fields := []zap.Field{
				zap.Int("update_id", c.Update().ID),
				zap.String("kind", updateKind(c)),
				zap.Int64("user_id", senderID(c)),
				zap.Duration("took", time.Since(start)),
			}
			if err != nil {
				logger.Warn("Update failed", append(fields, zap.Error(err))...)
				return err
			}
			logger.Debug("Update handled", fields...)
			return nil
		}
	}
}

// RateLimitOptions configures the per-user rate limit
type RateLimitOptions struct {
	// Interval is the minimum spacing between updates from one user.
	// Zero disables the limit.
	Interval time.Duration
	Burst    int
	// Exclude lists update kinds that are never limited
	Exclude map[string]struct{}
	// Notice is sent once when a user starts being limited. Empty keeps
	// dropped updates silent.
	Notice string
	// IdleTTL is how long an untouched limiter is kept. Defaults to 10m.
	IdleTTL time.Duration
}

// now and sendNotice are replaced in tests
var (
	now        = time.Now
	sendNotice = func(c tele.Context, text string) error {
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: text})
		}
		return c.Send(text)
	}
)

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	warned   bool
}

// limiterSet holds one limiter per user and forgets users idle for ttl
type limiterSet struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	ttl       time.Duration
	users     map[int64]*userLimiter
	lastSweep time.Time
}

func newLimiterSet(interval time.Duration, burst int, ttl time.Duration) *limiterSet {
	return &limiterSet{
		every:     rate.Every(interval),
		burst:     burst,
		ttl:       ttl,
		users:     make(map[int64]*userLimiter),
		lastSweep: now(),
	}
}

// allow reports whether the update may pass, and whether the user should be
// told they are being limited
func (s *limiterSet) allow(userID int64) (ok, notify bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := now()
	if t.Sub(s.lastSweep) >= s.ttl {
		s.sweep(t)
	}

	u, found := s.users[userID]
	if !found {
		u = &userLimiter{limiter: rate.NewLimiter(s.every, s.burst)}
		s.users[userID] = u
	}
	u.lastSeen = t

	if u.limiter.AllowN(t, 1) {
		u.warned = false
		return true, false
	}
	notify = !u.warned
	u.warned = true
	return false, notify
}

// sweep drops limiters untouched since t-ttl. Caller must hold s.mu.
func (s *limiterSet) sweep(t time.Time) {
	for id, u := range s.users {
		if t.Sub(u.lastSeen) >= s.ttl {
			delete(s.users, id)
		}
	}
	s.lastSweep = t
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// RateLimit drops updates from users who send faster than opts allow
func RateLimit(opts RateLimitOptions, logger *zap.Logger) tele.MiddlewareFunc {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	limiters := newLimiterSet(opts.Interval, opts.Burst, opts.IdleTTL)

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			userID := senderID(c)
			if userID == 0 || opts.Interval <= 0 {
				return next(c)
			}

			kind := updateKind(c)
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			ok, notify := limiters.allow(userID)
			if ok {
				return next(c)
			}

			logger.Warn("Rate limit hit",
				zap.Int64("user_id", userID),
				zap.String("kind", kind),
			)
			if notify && opts.Notice != "" {
				if err := sendNotice(c, opts.Notice); err != nil {
					logger.Warn("Failed to send rate limit notice",
						zap.Int64("user_id", userID),
						zap.Error(err),
					)
				}
			}
			return nil
		}
	}
}
