package testutil

import (
	"context"

	"qrbot/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock for UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) AddUser(userID int64, username string) (bool, error) {
	args := m.Called(userID, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) DeleteUser(userID int64) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByID(userID int64) (*domain.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByUsername(username string) (*domain.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) Count() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) ListUserIDs() ([]int64, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockUserRepository) IsPremium(userID int64) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) SetPremium(userID int64) error {
	args := m.Called(userID)
	return args.Error(0)
}

// MockMessenger is a mock for the outbound transport
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendMessage(ctx context.Context, chatID int64, msg domain.Message) error {
	args := m.Called(ctx, chatID, msg)
	return args.Error(0)
}

func (m *MockMessenger) SendPhoto(ctx context.Context, chatID int64, image []byte, caption string) error {
	args := m.Called(ctx, chatID, image, caption)
	return args.Error(0)
}

func (m *MockMessenger) AnswerCallback(ctx context.Context, callbackID string) error {
	args := m.Called(ctx, callbackID)
	return args.Error(0)
}

func (m *MockMessenger) AnswerInlineQuery(ctx context.Context, queryID string, answer domain.InlineAnswer) error {
	args := m.Called(ctx, queryID, answer)
	return args.Error(0)
}

// MockCodec is a mock for the QR codec
type MockCodec struct {
	mock.Mock
}

func (m *MockCodec) Encode(text string) ([]byte, error) {
	args := m.Called(text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCodec) Decode(image []byte) (string, error) {
	args := m.Called(image)
	return args.String(0), args.Error(1)
}
