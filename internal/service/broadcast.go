package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"qrbot/internal/domain"
	"qrbot/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Sender delivers a single outbound message
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, msg domain.Message) error
}

// BroadcastOptions tunes the fan-out
type BroadcastOptions struct {
	Workers     int
	RatePerSec  float64
	SendTimeout time.Duration
	ListenerTTL time.Duration
}

// BroadcastResult summarizes one broadcast
type BroadcastResult struct {
	Sent  int
	Total int
}

// Failed returns the number of recipients that did not receive the message
func (r BroadcastResult) Failed() int {
	return r.Total - r.Sent
}

type pendingBroadcast struct {
	adminID int64
	armedAt time.Time
}

// BroadcastService fans a message out to every registered user and holds
// the single pending "next message is a broadcast" listener.
type BroadcastService struct {
	userRepo repository.UserRepository
	sender   Sender
	opts     BroadcastOptions
	limiter  *rate.Limiter
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending *pendingBroadcast
}

// NewBroadcastService creates a broadcast engine
func NewBroadcastService(
	userRepo repository.UserRepository,
	sender Sender,
	opts BroadcastOptions,
	logger *zap.Logger,
) *BroadcastService {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}

	limit := rate.Inf
	burst := 1
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
		burst = opts.Workers
	}

	return &BroadcastService{
		userRepo: userRepo,
		sender:   sender,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
		now:      time.Now,
	}
}

// Broadcast sends text (HTML) to every registered user. Per-recipient
// failures are logged and counted; an error is returned only when the
// recipient list cannot be loaded.
func (s *BroadcastService) Broadcast(ctx context.Context, text string) (BroadcastResult, error) {
	ids, err := s.userRepo.ListUserIDs()
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("list users: %w", err)
	}

	s.logger.Info("Starting broadcast", zap.Int("recipients", len(ids)))

	var (
		sent atomic.Int64
		g    errgroup.Group
	)
	g.SetLimit(s.opts.Workers)

	msg := domain.HTMLMessage(text)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := s.sendOne(ctx, id, msg); err != nil {
				s.logger.Warn("Failed to deliver broadcast",
					zap.Int64("user_id", id),
					zap.Error(err),
				)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result := BroadcastResult{Sent: int(sent.Load()), Total: len(ids)}
	s.logger.Info("Broadcast finished",
		zap.Int("sent", result.Sent),
		zap.Int("total", result.Total),
	)
	return result, nil
}

func (s *BroadcastService) sendOne(ctx context.Context, chatID int64, msg domain.Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
	defer cancel()

	return s.sender.SendMessage(sendCtx, chatID, msg)
}

// Arm makes the next free-text message from adminID a broadcast. Any
// listener armed by another admin is replaced.
func (s *BroadcastService) Arm(adminID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil && s.pending.adminID != adminID {
		s.logger.Info("Replacing pending broadcast listener",
			zap.Int64("previous_admin_id", s.pending.adminID),
			zap.Int64("admin_id", adminID),
		)
	}
	s.pending = &pendingBroadcast{adminID: adminID, armedAt: s.now()}
}

// Claim consumes the listener if senderID armed it. It returns true at
// most once per Arm.
func (s *BroadcastService) Claim(senderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.liveLocked() || s.pending.adminID != senderID {
		return false
	}
	s.pending = nil
	return true
}

// Disarm removes the listener if senderID armed it
func (s *BroadcastService) Disarm(senderID int64) bool {
	return s.Claim(senderID)
}

// liveLocked drops an expired listener. Caller holds s.mu.
func (s *BroadcastService) liveLocked() bool {
	if s.pending == nil {
		return false
	}
	if s.opts.ListenerTTL > 0 && s.now().Sub(s.pending.armedAt) >= s.opts.ListenerTTL {
		s.pending = nil
		return false
	}
	return true
}
