package router

import (
	"context"
	"fmt"

	"qrbot/internal/domain"

	"go.uber.org/zap"
)

// handleText routes free text. An active conversation wins over a pending
// broadcast; text from idle users without a listener is ignored.
func (r *Router) handleText(ctx context.Context, upd domain.Update) error {
	if tr, ok := r.conv.Advance(upd.Sender.ID, upd.Text); ok {
		return r.applyTransition(ctx, upd, tr)
	}

	if r.broadcast.Claim(upd.Sender.ID) {
		r.logger.Info("Broadcast message received", zap.Int64("admin_id", upd.Sender.ID))
		return r.runBroadcast(ctx, upd, upd.Text)
	}

	r.logger.Debug("Ignoring free text", zap.Int64("user_id", upd.Sender.ID))
	return nil
}

// applyTransition performs the side effect of a conversation step
func (r *Router) applyTransition(ctx context.Context, upd domain.Update, tr domain.Transition) error {
	r.logger.Debug("Conversation advanced",
		zap.Int64("user_id", upd.Sender.ID),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
	)

	switch tr.Effect {
	case domain.EffectAskPassword:
		return r.reply(ctx, upd, domain.PlainMessage("🔒 Now send the Wi-Fi password:"))

	case domain.EffectEmitWiFi:
		img, err := r.qr.Generate(tr.Payload)
		if err != nil {
			return fmt.Errorf("generate wifi qr: %w", err)
		}
		if err := r.sendPhoto(ctx, upd.ChatID, img, "📡 Your Wi-Fi QR Code is ready!"); err != nil {
			return fmt.Errorf("send wifi qr: %w", err)
		}
		r.logger.Info("Sent Wi-Fi QR code", zap.Int64("user_id", upd.Sender.ID))
		return nil

	case domain.EffectAskBody:
		return r.reply(ctx, upd, domain.PlainMessage("📝 Now enter the message you want to send:"))

	case domain.EffectRejectRecipient:
		return r.reply(ctx, upd, domain.PlainMessage(invalidIDText))

	case domain.EffectDeliver:
		return r.deliver(ctx, upd, tr.RecipientID, tr.Body)

	default:
		return nil
	}
}
