package handler

import (
	"strings"
	"unicode"

	"qrbot/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// cleanCallbackData removes all non-printable characters from callback data
func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

// handleCallback handles ALL callback queries
func (h *Handler) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}

	// Buttons are built with a unique but no handler is registered for it,
	// so telebot leaves the "\f" marker in Data
	data := callback.Unique
	if data == "" {
		data = cleanCallbackData(callback.Data)
	}

	h.logger.Debug("Processing callback",
		zap.String("data", data),
		zap.String("data_raw", callback.Data),
		zap.String("id", callback.ID),
		zap.Int64("user_id", c.Sender().ID),
	)

	upd := h.baseUpdate(c, domain.UpdateCallback)
	upd.CallbackID = callback.ID
	upd.CallbackData = data
	h.dispatcher.Dispatch(h.ctx, upd)
	return nil
}
