package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"qrbot/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Messenger sends outbound messages through the Telegram Bot API
type Messenger struct {
	bot         *tele.Bot
	cacheChatID int64
	logger      *zap.Logger

	// inline photos are uploaded once and reused by file id
	fileMux sync.Mutex
	fileIDs map[string]string
}

// NewMessenger creates a messenger. Inline query photos are uploaded to
// cacheChatID to obtain a Telegram file id.
func NewMessenger(bot *tele.Bot, cacheChatID int64, logger *zap.Logger) *Messenger {
	return &Messenger{
		bot:         bot,
		cacheChatID: cacheChatID,
		logger:      logger,
		fileIDs:     make(map[string]string),
	}
}

// SendMessage sends a text message with optional formatting and keyboard
func (m *Messenger) SendMessage(ctx context.Context, chatID int64, msg domain.Message) error {
	opts := &tele.SendOptions{
		ParseMode:   tele.ParseMode(msg.ParseMode),
		ReplyMarkup: replyMarkup(msg.Keyboard),
	}
	_, err := do(ctx, func() (*tele.Message, error) {
		return m.bot.Send(tele.ChatID(chatID), msg.Text, opts)
	})
	return err
}

// SendPhoto uploads a PNG as a photo
func (m *Messenger) SendPhoto(ctx context.Context, chatID int64, image []byte, caption string) error {
	photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(image)), Caption: caption}
	_, err := do(ctx, func() (*tele.Message, error) {
		return m.bot.Send(tele.ChatID(chatID), photo)
	})
	return err
}

// AnswerCallback acknowledges a button press
func (m *Messenger) AnswerCallback(ctx context.Context, callbackID string) error {
	_, err := do(ctx, func() (struct{}, error) {
		return struct{}{}, m.bot.Respond(&tele.Callback{ID: callbackID})
	})
	return err
}

// AnswerInlineQuery answers an inline query with cached photo results
func (m *Messenger) AnswerInlineQuery(ctx context.Context, queryID string, answer domain.InlineAnswer) error {
	results := make(tele.Results, 0, len(answer.Results))
	for _, r := range answer.Results {
		fileID, err := m.uploadForInline(ctx, r.ID, r.Image)
		if err != nil {
			return fmt.Errorf("upload inline photo: %w", err)
		}

		result := &tele.PhotoResult{Cache: fileID, Caption: r.Caption}
		result.SetResultID(r.ID)
		results = append(results, result)
	}

	resp := &tele.QueryResponse{
		Results:           results,
		CacheTime:         answer.CacheTime,
		SwitchPMText:      answer.Prompt,
		SwitchPMParameter: answer.PromptParam,
	}
	_, err := do(ctx, func() (struct{}, error) {
		return struct{}{}, m.bot.Answer(&tele.Query{ID: queryID}, resp)
	})
	return err
}

// uploadForInline sends the image to the cache chat, remembers the file id
// and removes the message again
func (m *Messenger) uploadForInline(ctx context.Context, resultID string, image []byte) (string, error) {
	m.fileMux.Lock()
	fileID, ok := m.fileIDs[resultID]
	m.fileMux.Unlock()
	if ok {
		return fileID, nil
	}

	if m.cacheChatID == 0 {
		return "", errors.New("no cache chat configured")
	}

	sent, err := do(ctx, func() (*tele.Message, error) {
		return m.bot.Send(tele.ChatID(m.cacheChatID), &tele.Photo{File: tele.FromReader(bytes.NewReader(image))})
	})
	if err != nil {
		return "", err
	}
	if sent.Photo == nil || sent.Photo.FileID == "" {
		return "", errors.New("upload returned no photo")
	}

	if err := m.bot.Delete(sent); err != nil {
		m.logger.Warn("Failed to delete inline cache message", zap.Error(err))
	}

	m.fileMux.Lock()
	m.fileIDs[resultID] = sent.Photo.FileID
	m.fileMux.Unlock()

	return sent.Photo.FileID, nil
}

func replyMarkup(kb domain.Keyboard) *tele.ReplyMarkup {
	if len(kb) == 0 {
		return nil
	}

	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(kb))
	for _, row := range kb {
		btns := make([]tele.Btn, 0, len(row))
		for _, b := range row {
			if b.SwitchInlineQuery != "" {
				btns = append(btns, markup.Query(b.Text, b.SwitchInlineQuery))
				continue
			}
			btns = append(btns, markup.Data(b.Text, b.Data))
		}
		rows = append(rows, markup.Row(btns...))
	}
	markup.Inline(rows...)
	return markup
}

type outcome[T any] struct {
	val T
	err error
}

// do runs a blocking Bot API call and gives up when ctx is done. The call
// itself keeps running in the background until the HTTP client returns.
func do[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	done := make(chan outcome[T], 1)
	go func() {
		v, err := fn()
		done <- outcome[T]{val: v, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case o := <-done:
		return o.val, o.err
	}
}
