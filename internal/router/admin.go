package router

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"

	"qrbot/internal/domain"
	"qrbot/internal/service"

	"go.uber.org/zap"
)

const invalidIDText = "❌ Invalid user ID. Please enter a number."

func adminMenu() domain.Keyboard {
	return domain.Keyboard{
		{
			{Text: "📊 Stats", Data: "stats"},
			{Text: "📢 Broadcast", Data: "broadcast"},
		},
		{
			{Text: "✉️ Send to User", Data: "send_to_user"},
		},
	}
}

// handleAdminPanel shows the admin action menu
func (r *Router) handleAdminPanel(ctx context.Context, upd domain.Update) error {
	r.logger.Info("Admin panel opened",
		zap.Int64("user_id", upd.Sender.ID),
		zap.String("username", upd.Sender.Username),
	)
	return r.reply(ctx, upd, domain.Message{Text: "👑 Admin Panel", Keyboard: adminMenu()})
}

// handleStats shows the registry size
func (r *Router) handleStats(ctx context.Context, upd domain.Update) error {
	count, err := r.users.Count()
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	r.logger.Info("Stats shown", zap.Int64("user_id", upd.Sender.ID), zap.Int("total_users", count))
	return r.reply(ctx, upd, domain.HTMLMessage(fmt.Sprintf("📊 Usage Stats:\n- Total users: <b>%d</b>", count)))
}

// handleBroadcastStart arms the listener for the admin's next message
func (r *Router) handleBroadcastStart(ctx context.Context, upd domain.Update) error {
	r.broadcast.Arm(upd.Sender.ID)
	r.logger.Info("Waiting for broadcast message", zap.Int64("user_id", upd.Sender.ID))
	return r.reply(ctx, upd, domain.PlainMessage("Send me the broadcast message (HTML format). /cancel to abort."))
}

// handleSendToUser relays "/send_to_user <id> <text>" directly, or starts
// the interactive flow when called without arguments
func (r *Router) handleSendToUser(ctx context.Context, upd domain.Update) error {
	payload := strings.TrimSpace(upd.Payload)
	if payload == "" {
		r.conv.StartSendToUser(upd.Sender.ID)
		return r.reply(ctx, upd, domain.PlainMessage("👤 Enter the user ID to send the message to:"))
	}

	idStr, text := splitFirstWord(payload)
	if text == "" {
		return r.reply(ctx, upd, domain.PlainMessage("❗ Usage: /send_to_user <user_id> <message>"))
	}

	recipientID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return r.reply(ctx, upd, domain.PlainMessage(invalidIDText))
	}

	return r.deliver(ctx, upd, recipientID, text)
}

// handlePremium marks a user as premium
func (r *Router) handlePremium(ctx context.Context, upd domain.Update) error {
	userID, ok, err := r.resolveTarget(ctx, upd, "/premium")
	if !ok || err != nil {
		return err
	}

	found, err := r.users.GrantPremium(userID)
	if err != nil {
		return fmt.Errorf("grant premium to %d: %w", userID, err)
	}
	if !found {
		return r.replyNotRegistered(ctx, upd)
	}

	r.logger.Info("Premium granted", zap.Int64("user_id", userID), zap.Int64("admin_id", upd.Sender.ID))
	return r.reply(ctx, upd, domain.HTMLMessage(fmt.Sprintf("⭐ User <code>%d</code> is now premium.", userID)))
}

// handleDeleteUser removes a user from the registry
func (r *Router) handleDeleteUser(ctx context.Context, upd domain.Update) error {
	userID, ok, err := r.resolveTarget(ctx, upd, "/deluser")
	if !ok || err != nil {
		return err
	}

	found, err := r.users.Forget(userID)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", userID, err)
	}
	if !found {
		return r.replyNotRegistered(ctx, upd)
	}

	r.logger.Info("User deleted", zap.Int64("user_id", userID), zap.Int64("admin_id", upd.Sender.ID))
	return r.reply(ctx, upd, domain.HTMLMessage(fmt.Sprintf("🗑 User <code>%d</code> removed.", userID)))
}

// resolveTarget reads "<user_id>" or "@username" from the payload. When ok
// is false the admin has already been answered.
func (r *Router) resolveTarget(ctx context.Context, upd domain.Update, command string) (int64, bool, error) {
	userID, found, err := r.users.ResolveID(upd.Payload)
	switch {
	case errors.Is(err, service.ErrInvalidUserRef):
		return 0, false, r.reply(ctx, upd, domain.PlainMessage("❗ Usage: "+command+" <user_id|@username>"))
	case err != nil:
		return 0, false, err
	case !found:
		return 0, false, r.replyNotRegistered(ctx, upd)
	}
	return userID, true, nil
}

func (r *Router) replyNotRegistered(ctx context.Context, upd domain.Update) error {
	ref := html.EscapeString(strings.TrimSpace(upd.Payload))
	return r.reply(ctx, upd, domain.HTMLMessage("❌ User <code>"+ref+"</code> is not registered."))
}

// deliver sends an admin's message and reports the outcome to the admin
func (r *Router) deliver(ctx context.Context, upd domain.Update, recipientID int64, text string) error {
	if err := r.send(ctx, recipientID, domain.PlainMessage(text)); err != nil {
		r.logger.Error("Failed to send message",
			zap.Int64("recipient_id", recipientID),
			zap.Int64("admin_id", upd.Sender.ID),
			zap.Error(err),
		)
		return r.reply(ctx, upd, domain.PlainMessage(fmt.Sprintf("❌ Failed to send message: %v", err)))
	}

	r.logger.Info("Message sent",
		zap.Int64("recipient_id", recipientID),
		zap.Int64("admin_id", upd.Sender.ID),
	)
	return r.reply(ctx, upd, domain.HTMLMessage(fmt.Sprintf("✅ Message sent to <code>%d</code>", recipientID)))
}

// runBroadcast fans text out and reports the summary to the admin
func (r *Router) runBroadcast(ctx context.Context, upd domain.Update, text string) error {
	result, err := r.broadcast.Broadcast(ctx, text)
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}

	if result.Total == 0 {
		return r.reply(ctx, upd, domain.PlainMessage("⚠️ No users to broadcast to."))
	}
	return r.reply(ctx, upd, domain.PlainMessage(
		fmt.Sprintf("✅ Broadcast sent to %d/%d users.", result.Sent, result.Total),
	))
}

// splitFirstWord splits s at the first whitespace run
func splitFirstWord(s string) (string, string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
