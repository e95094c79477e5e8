package testutil

import (
	"qrbot/internal/domain"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestSender creates a test sender
func NewTestSender(userID int64, username string) domain.Sender {
	return domain.Sender{
		ID:       userID,
		Username: username,
		FullName: "Test " + username,
	}
}

// NewCommandUpdate creates a command update sent from a private chat
func NewCommandUpdate(userID int64, command, payload string) domain.Update {
	return domain.Update{
		Kind:    domain.UpdateCommand,
		Sender:  NewTestSender(userID, "user"),
		ChatID:  userID,
		Command: command,
		Payload: payload,
	}
}

// NewTextUpdate creates a free-text update sent from a private chat
func NewTextUpdate(userID int64, text string) domain.Update {
	return domain.Update{
		Kind:   domain.UpdateText,
		Sender: NewTestSender(userID, "user"),
		ChatID: userID,
		Text:   text,
	}
}
