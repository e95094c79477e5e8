package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"qrbot/internal/domain"

	"go.uber.org/zap"
)

// DefaultConversationTTL is how long a flow may stay idle before it expires
const DefaultConversationTTL = 10 * time.Minute

type session struct {
	conv    domain.Conversation
	touched time.Time
}

// ConversationService tracks per-user flows in memory.
// A missing entry means the user is idle.
type ConversationService struct {
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[int64]session
}

// NewConversationService creates a conversation tracker. ttl <= 0 disables expiry.
func NewConversationService(ttl time.Duration, logger *zap.Logger) *ConversationService {
	return &ConversationService{
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		sessions: make(map[int64]session),
	}
}

// Get returns the user's current conversation
func (s *ConversationService) Get(userID int64) domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(userID)
	if !ok {
		return domain.Conversation{Step: domain.StepIdle}
	}
	return sess.conv
}

// StartWiFi begins the Wi-Fi builder flow, replacing any active flow.
// It returns the step that was replaced.
func (s *ConversationService) StartWiFi(userID int64) domain.Step {
	return s.start(userID, domain.Conversation{Step: domain.StepAwaitingWiFiSSID})
}

// StartSendToUser begins the admin relay flow, replacing any active flow.
// It returns the step that was replaced.
func (s *ConversationService) StartSendToUser(userID int64) domain.Step {
	return s.start(userID, domain.Conversation{Step: domain.StepAwaitingRecipientID})
}

// Cancel drops the user's flow and reports whether one was active
func (s *ConversationService) Cancel(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookup(userID)
	delete(s.sessions, userID)
	return ok
}

// Advance feeds free text into the user's flow. The transition is applied
// atomically; the caller performs the returned effect. The second return
// value is false when the user is idle.
func (s *ConversationService) Advance(userID int64, text string) (domain.Transition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(userID)
	if !ok {
		return domain.Transition{}, false
	}

	from := sess.conv.Step
	tr := domain.Transition{From: from}

	switch from {
	case domain.StepAwaitingWiFiSSID:
		s.put(userID, domain.Conversation{Step: domain.StepAwaitingWiFiPassword, SSID: text})
		tr.To = domain.StepAwaitingWiFiPassword
		tr.Effect = domain.EffectAskPassword

	case domain.StepAwaitingWiFiPassword:
		delete(s.sessions, userID)
		tr.To = domain.StepIdle
		tr.Effect = domain.EffectEmitWiFi
		tr.Payload = domain.NewBuilderWiFi(sess.conv.SSID, text).Payload()

	case domain.StepAwaitingRecipientID:
		recipientID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			// keep the step but refresh the expiry
			s.put(userID, sess.conv)
			tr.To = from
			tr.Effect = domain.EffectRejectRecipient
			break
		}
		s.put(userID, domain.Conversation{Step: domain.StepAwaitingMessageBody, RecipientID: recipientID})
		tr.To = domain.StepAwaitingMessageBody
		tr.Effect = domain.EffectAskBody
		tr.RecipientID = recipientID

	case domain.StepAwaitingMessageBody:
		delete(s.sessions, userID)
		tr.To = domain.StepIdle
		tr.Effect = domain.EffectDeliver
		tr.RecipientID = sess.conv.RecipientID
		tr.Body = text

	default:
		delete(s.sessions, userID)
		return domain.Transition{}, false
	}

	s.logger.Debug("Conversation advanced",
		zap.Int64("user_id", userID),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
	)
	return tr, true
}

// Sweep removes expired sessions and returns how many were dropped
func (s *ConversationService) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for userID, sess := range s.sessions {
		if now.Sub(sess.touched) >= s.ttl {
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done
func (s *ConversationService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Conversation sweeper stopped")
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				s.logger.Info("Expired idle conversations", zap.Int("count", removed))
			}
		}
	}
}

func (s *ConversationService) start(userID int64, conv domain.Conversation) domain.Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := domain.StepIdle
	if sess, ok := s.lookup(userID); ok {
		prev = sess.conv.Step
	}
	s.put(userID, conv)

	if prev != domain.StepIdle {
		s.logger.Info("Conversation replaced by new flow",
			zap.Int64("user_id", userID),
			zap.String("previous", string(prev)),
			zap.String("step", string(conv.Step)),
		)
	}
	return prev
}

// lookup returns a live session, dropping it when expired. Caller holds s.mu.
func (s *ConversationService) lookup(userID int64) (session, bool) {
	sess, ok := s.sessions[userID]
	if !ok {
		return session{}, false
	}
	if s.ttl > 0 && s.now().Sub(sess.touched) >= s.ttl {
		delete(s.sessions, userID)
		return session{}, false
	}
	return sess, true
}

func (s *ConversationService) put(userID int64, conv domain.Conversation) {
	s.sessions[userID] = session{conv: conv, touched: s.now()}
}
