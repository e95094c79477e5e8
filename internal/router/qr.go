package router

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"qrbot/internal/domain"
	"qrbot/internal/service"

	"go.uber.org/zap"
)

// Inline query prompts and their private-chat start parameters
const (
	PromptTooShort      = "Type at least 3 characters to generate a QR code"
	PromptTooShortParam = "start"
	PromptTooLong       = "Text too long! Try shorter text."
	PromptTooLongParam  = "error"
)

const inlineCacheTime = 60

// handlePhoto decodes a QR code from an uploaded image
func (r *Router) handlePhoto(ctx context.Context, upd domain.Update) error {
	if upd.Photo == nil {
		return errors.New("photo update without fetcher")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	image, err := upd.Photo(fetchCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("download photo: %w", err)
	}

	result, err := r.qr.Scan(image)
	if errors.Is(err, domain.ErrNoQRCode) {
		return r.reply(ctx, upd, domain.PlainMessage("⚠️ No QR code detected in the image."))
	}
	if err != nil {
		return fmt.Errorf("scan photo: %w", err)
	}

	r.logger.Info("QR code scanned",
		zap.Int64("user_id", upd.Sender.ID),
		zap.Bool("wifi", result.WiFi != nil),
	)

	if result.WiFi != nil {
		return r.reply(ctx, upd, wifiMessage(*result.WiFi))
	}
	return r.reply(ctx, upd, domain.HTMLMessage(
		"📷 Scanned QR content:\n<code>"+html.EscapeString(result.Raw)+"</code>",
	))
}

func wifiMessage(w domain.WiFi) domain.Message {
	password := "🔓 Open network"
	if !w.IsOpen() {
		password = "🔑 Password: <code>" + html.EscapeString(w.Password) + "</code>"
	}

	var b strings.Builder
	b.WriteString("📶 <b>Wi-Fi QR Code Detected:</b>\n\n")
	b.WriteString("🔹 SSID: <code>" + html.EscapeString(w.SSID) + "</code>\n")
	b.WriteString(password + "\n")
	b.WriteString("🔐 Security: <code>" + html.EscapeString(w.Security) + "</code>")

	msg := domain.HTMLMessage(b.String())
	msg.Keyboard = domain.Keyboard{
		{{Text: "📋 Copy Wi-Fi Config", SwitchInlineQuery: w.Payload()}},
	}
	return msg
}

// handleInlineQuery answers with a single QR photo for valid queries
func (r *Router) handleInlineQuery(ctx context.Context, upd domain.Update) error {
	query := strings.TrimSpace(upd.Query)

	switch service.CheckInlineQuery(query) {
	case service.InlineTooShort:
		return r.answerInline(ctx, upd.QueryID, domain.InlineAnswer{
			CacheTime:   1,
			Prompt:      PromptTooShort,
			PromptParam: PromptTooShortParam,
		})
	case service.InlineTooLong:
		return r.answerInline(ctx, upd.QueryID, domain.InlineAnswer{
			CacheTime:   1,
			Prompt:      PromptTooLong,
			PromptParam: PromptTooLongParam,
		})
	}

	img, err := r.qr.Generate(query)
	if err != nil {
		return fmt.Errorf("generate inline qr: %w", err)
	}

	r.logger.Debug("Answering inline query",
		zap.Int64("user_id", upd.Sender.ID),
		zap.Int("length", len(query)),
	)

	return r.answerInline(ctx, upd.QueryID, domain.InlineAnswer{
		Results: []domain.InlineResult{{
			ID:      service.ResultID(query),
			Image:   img,
			Caption: "QR code for: " + service.Preview(query, 50),
		}},
		CacheTime: inlineCacheTime,
	})
}
