package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"qrbot/internal/domain"
	"qrbot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestBroadcast(repo *testutil.MockUserRepository, sender *testutil.MockMessenger) *BroadcastService {
	return NewBroadcastService(repo, sender, BroadcastOptions{
		Workers:     3,
		SendTimeout: time.Second,
		ListenerTTL: 10 * time.Minute,
	}, testutil.NewTestLogger())
}

func TestBroadcastService_Broadcast_PartialFailure(t *testing.T) {
	mockRepo := new(testutil.MockUserRepository)
	mockRepo.On("ListUserIDs").Return([]int64{1, 2, 3, 4, 5}, nil)

	msg := domain.HTMLMessage("<b>news</b>")
	mockSender := new(testutil.MockMessenger)
	for _, id := range []int64{1, 3, 5} {
		mockSender.On("SendMessage", mock.Anything, id, msg).Return(nil).Once()
	}
	for _, id := range []int64{2, 4} {
		mockSender.On("SendMessage", mock.Anything, id, msg).Return(fmt.Errorf("blocked")).Once()
	}

	result, err := newTestBroadcast(mockRepo, mockSender).Broadcast(context.Background(), "<b>news</b>")

	require.NoError(t, err)
	assert.Equal(t, BroadcastResult{Sent: 3, Total: 5}, result)
	assert.Equal(t, 2, result.Failed())
	mockSender.AssertExpectations(t)
}

func TestBroadcastService_Broadcast_NoUsers(t *testing.T) {
	mockRepo := new(testutil.MockUserRepository)
	mockRepo.On("ListUserIDs").Return([]int64{}, nil)
	mockSender := new(testutil.MockMessenger)

	result, err := newTestBroadcast(mockRepo, mockSender).Broadcast(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, BroadcastResult{}, result)
	mockSender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastService_Broadcast_ListError(t *testing.T) {
	mockRepo := new(testutil.MockUserRepository)
	mockRepo.On("ListUserIDs").Return(nil, fmt.Errorf("db error"))
	mockSender := new(testutil.MockMessenger)

	_, err := newTestBroadcast(mockRepo, mockSender).Broadcast(context.Background(), "hi")

	assert.Error(t, err)
}

func TestBroadcastService_Broadcast_SendsCarryDeadline(t *testing.T) {
	mockRepo := new(testutil.MockUserRepository)
	mockRepo.On("ListUserIDs").Return([]int64{1}, nil)

	mockSender := new(testutil.MockMessenger)
	mockSender.On("SendMessage", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), int64(1), mock.Anything).Return(nil)

	result, err := newTestBroadcast(mockRepo, mockSender).Broadcast(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	mockSender.AssertExpectations(t)
}

func TestBroadcastService_Broadcast_CancelledContextCountsFailures(t *testing.T) {
	mockRepo := new(testutil.MockUserRepository)
	mockRepo.On("ListUserIDs").Return([]int64{1, 2}, nil)
	mockSender := new(testutil.MockMessenger)

	svc := NewBroadcastService(mockRepo, mockSender, BroadcastOptions{
		Workers:    1,
		RatePerSec: 1,
	}, testutil.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Broadcast(ctx, "hi")

	require.NoError(t, err)
	assert.Equal(t, BroadcastResult{Sent: 0, Total: 2}, result)
	mockSender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastService_Listener(t *testing.T) {
	svc := newTestBroadcast(new(testutil.MockUserRepository), new(testutil.MockMessenger))

	assert.False(t, svc.Claim(1))

	svc.Arm(1)
	assert.False(t, svc.Claim(2), "other users must not trigger the listener")
	assert.True(t, svc.Claim(1))
	assert.False(t, svc.Claim(1), "listener is one-shot")

	svc.Arm(1)
	svc.Arm(2)
	assert.False(t, svc.Claim(1), "second admin replaced the listener")
	assert.True(t, svc.Claim(2))

	svc.Arm(1)
	assert.False(t, svc.Disarm(2))
	assert.True(t, svc.Disarm(1))
	assert.False(t, svc.Claim(1))
}

func TestBroadcastService_ListenerExpires(t *testing.T) {
	svc := newTestBroadcast(new(testutil.MockUserRepository), new(testutil.MockMessenger))
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc.now = clock.Now

	svc.Arm(1)
	clock.Advance(11 * time.Minute)

	assert.False(t, svc.Claim(1))
}
