package handler

import (
	"testing"

	"qrbot/internal/domain"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v3"
)

func TestCleanCallbackData(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normal string",
			input:    "test_data",
			expected: "test_data",
		},
		{
			name:     "string with whitespace",
			input:    "  test_data  ",
			expected: "test_data",
		},
		{
			name:     "string with newline",
			input:    "test\ndata",
			expected: "testdata",
		},
		{
			name:     "string with tab",
			input:    "test\tdata",
			expected: "testdata",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "only whitespace",
			input:    "   ",
			expected: "",
		},
		{
			name:     "string with unprintable characters",
			input:    "test\x00data\x01",
			expected: "testdata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cleanCallbackData(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestHandler_Callback(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		chat     *tele.Chat
		wantData string
		wantChat int64
	}{
		{
			name:     "button without registered unique",
			data:     "\fstats",
			chat:     &tele.Chat{ID: 7},
			wantData: "stats",
			wantChat: 7,
		},
		{
			name:     "plain data",
			data:     "send_to_user",
			chat:     &tele.Chat{ID: 7},
			wantData: "send_to_user",
			wantChat: 7,
		},
		{
			name:     "inline message answers privately",
			data:     "\fbroadcast",
			wantData: "broadcast",
			wantChat: 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, d := newTestHandler(t)

			cb := &tele.Callback{ID: "cb1", Data: tt.data, Sender: &tele.User{ID: 9}}
			if tt.chat != nil {
				cb.Message = &tele.Message{Chat: tt.chat}
			}
			bot.ProcessUpdate(tele.Update{Callback: cb})

			upd := d.last(t)
			assert.Equal(t, domain.UpdateCallback, upd.Kind)
			assert.Equal(t, "cb1", upd.CallbackID)
			assert.Equal(t, tt.wantData, upd.CallbackData)
			assert.Equal(t, tt.wantChat, upd.ChatID)
		})
	}
}
