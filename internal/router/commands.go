package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"qrbot/internal/domain"
	"qrbot/internal/service"

	"go.uber.org/zap"
)

const greetingText = "Hey! 👋\n" +
	"Send /generate <text> to get a QR code.\n" +
	"Or send me a photo of a QR code to scan it!\n" +
	"Use /wifiqr to build a Wi-Fi QR code, /cancel to stop."

// handleStart handles /start and /help
func (r *Router) handleStart(ctx context.Context, upd domain.Update) error {
	r.logger.Info("User started bot",
		zap.Int64("user_id", upd.Sender.ID),
		zap.String("username", upd.Sender.Username),
	)
	return r.reply(ctx, upd, domain.PlainMessage(greetingText))
}

// handleGenerate handles /generate <text>
func (r *Router) handleGenerate(ctx context.Context, upd domain.Update) error {
	text := strings.TrimSpace(upd.Payload)

	img, err := r.qr.Generate(text)
	if errors.Is(err, service.ErrEmptyText) {
		return r.reply(ctx, upd, domain.PlainMessage("❗ Usage: /generate <text>"))
	}
	if err != nil {
		r.logger.Warn("Failed to generate QR",
			zap.Int64("user_id", upd.Sender.ID),
			zap.Int("length", len(text)),
			zap.Error(err),
		)
		return r.reply(ctx, upd, domain.PlainMessage("⚠️ Could not generate a QR code for this text. Try a shorter one."))
	}

	if err := r.sendPhoto(ctx, upd.ChatID, img, "✅ Your QR code!"); err != nil {
		return fmt.Errorf("send qr photo: %w", err)
	}
	return nil
}

// handleScan explains how scanning works
func (r *Router) handleScan(ctx context.Context, upd domain.Update) error {
	return r.reply(ctx, upd, domain.PlainMessage("📷 Send me a photo of a QR code and I will decode it."))
}

// handleWiFiStart starts the Wi-Fi builder flow
func (r *Router) handleWiFiStart(ctx context.Context, upd domain.Update) error {
	r.logger.Info("Starting Wi-Fi QR code creation", zap.Int64("user_id", upd.Sender.ID))
	r.conv.StartWiFi(upd.Sender.ID)
	return r.reply(ctx, upd, domain.PlainMessage("📶 Send the Wi-Fi name (SSID):"))
}

// handleCancel leaves the active flow and any pending broadcast
func (r *Router) handleCancel(ctx context.Context, upd domain.Update) error {
	hadFlow := r.conv.Cancel(upd.Sender.ID)
	hadBroadcast := r.broadcast.Disarm(upd.Sender.ID)

	if !hadFlow && !hadBroadcast {
		return r.reply(ctx, upd, domain.PlainMessage("Nothing to cancel."))
	}
	return r.reply(ctx, upd, domain.PlainMessage("✖️ Cancelled."))
}
