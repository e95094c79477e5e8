package router

import (
	"context"
	"fmt"
	"html"
	"sort"
	"time"

	"qrbot/internal/domain"
	"qrbot/internal/service"

	"go.uber.org/zap"
)

// Messenger is the outbound side of the chat platform
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, msg domain.Message) error
	SendPhoto(ctx context.Context, chatID int64, image []byte, caption string) error
	AnswerCallback(ctx context.Context, callbackID string) error
	AnswerInlineQuery(ctx context.Context, queryID string, answer domain.InlineAnswer) error
}

// Options holds the static router configuration
type Options struct {
	// AdminIDs is the privileged allow-list; the first entry is the
	// primary admin that receives notifications.
	AdminIDs    []int64
	SendTimeout time.Duration
}

// Command describes a registered command for publishing to the platform
type Command struct {
	Name        string
	Description string
}

type handlerFunc func(ctx context.Context, upd domain.Update) error

type route struct {
	handle      handlerFunc
	privileged  bool
	reject      string
	description string
}

const apologyText = "😔 Something went wrong. Please try again later."

// Router classifies inbound updates and dispatches them to handlers
type Router struct {
	users        *service.UserService
	conv         *service.ConversationService
	broadcast    *service.BroadcastService
	qr           *service.QRService
	out          Messenger
	logger       *zap.Logger
	sendTimeout  time.Duration
	admins       map[int64]struct{}
	primaryAdmin int64

	commands  map[string]route
	callbacks map[string]route
}

// New creates a router and registers every command and callback
func New(
	opts Options,
	users *service.UserService,
	conv *service.ConversationService,
	broadcast *service.BroadcastService,
	qr *service.QRService,
	out Messenger,
	logger *zap.Logger,
) *Router {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}

	r := &Router{
		users:       users,
		conv:        conv,
		broadcast:   broadcast,
		qr:          qr,
		out:         out,
		logger:      logger,
		sendTimeout: opts.SendTimeout,
		admins:      make(map[int64]struct{}, len(opts.AdminIDs)),
	}
	for _, id := range opts.AdminIDs {
		r.admins[id] = struct{}{}
	}
	if len(opts.AdminIDs) > 0 {
		r.primaryAdmin = opts.AdminIDs[0]
	}

	r.registerRoutes()
	return r
}

func (r *Router) registerRoutes() {
	r.commands = map[string]route{
		"start":    {handle: r.handleStart, description: "Start the bot"},
		"help":     {handle: r.handleStart, description: "Show help message"},
		"generate": {handle: r.handleGenerate, description: "Generate QR code"},
		"scan":     {handle: r.handleScan, description: "Scan QR from photo"},
		"wifiqr":   {handle: r.handleWiFiStart, description: "Create Wi-Fi QR code"},
		"cancel":   {handle: r.handleCancel, description: "Cancel the current action"},
		"admin": {
			handle:      r.handleAdminPanel,
			privileged:  true,
			reject:      "❌ You are not authorized to access the admin panel.",
			description: "Admin panel",
		},
		"send_to_user": {
			handle:     r.handleSendToUser,
			privileged: true,
			reject:     "⚠️ You are not authorized to send messages to other users.",
		},
		"stats": {
			handle:     r.handleStats,
			privileged: true,
			reject:     "⚠️ You are not authorized to view the stats.",
		},
		"broadcast": {
			handle:     r.handleBroadcastStart,
			privileged: true,
			reject:     "⛔ You are not allowed to use this command.",
		},
		"premium": {
			handle:     r.handlePremium,
			privileged: true,
			reject:     "⛔ You are not allowed to use this command.",
		},
		"deluser": {
			handle:     r.handleDeleteUser,
			privileged: true,
			reject:     "⛔ You are not allowed to use this command.",
		},
	}

	r.callbacks = map[string]route{
		"stats":        r.commands["stats"],
		"broadcast":    r.commands["broadcast"],
		"send_to_user": r.commands["send_to_user"],
	}
}

// CommandNames returns every registered command name
func (r *Router) CommandNames() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PublicCommands returns the commands shown in the platform's command menu
func (r *Router) PublicCommands() []Command {
	order := []string{"start", "help", "generate", "scan", "wifiqr", "cancel", "admin"}
	cmds := make([]Command, 0, len(order))
	for _, name := range order {
		cmds = append(cmds, Command{Name: name, Description: r.commands[name].description})
	}
	return cmds
}

// IsAdmin reports whether userID is on the allow-list
func (r *Router) IsAdmin(userID int64) bool {
	_, ok := r.admins[userID]
	return ok
}

// Dispatch handles one update. Errors and panics never escape: they are
// logged and turned into an apology to the invoking chat.
func (r *Router) Dispatch(ctx context.Context, upd domain.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Handler panicked",
				zap.Any("panic", rec),
				zap.String("kind", upd.Kind.String()),
				zap.Int64("user_id", upd.Sender.ID),
				zap.Stack("stack"),
			)
			r.apologize(ctx, upd)
		}
	}()

	if err := r.route(ctx, upd); err != nil {
		r.logger.Error("Handler failed",
			zap.Error(err),
			zap.String("kind", upd.Kind.String()),
			zap.String("command", upd.Command),
			zap.Int64("user_id", upd.Sender.ID),
		)
		r.apologize(ctx, upd)
	}
}

func (r *Router) route(ctx context.Context, upd domain.Update) error {
	switch upd.Kind {
	case domain.UpdateCommand:
		return r.handleCommand(ctx, upd)
	case domain.UpdateText:
		return r.handleText(ctx, upd)
	case domain.UpdatePhoto:
		return r.handlePhoto(ctx, upd)
	case domain.UpdateCallback:
		return r.handleCallback(ctx, upd)
	case domain.UpdateInlineQuery:
		return r.handleInlineQuery(ctx, upd)
	default:
		return fmt.Errorf("unsupported update kind %d", upd.Kind)
	}
}

func (r *Router) handleCommand(ctx context.Context, upd domain.Update) error {
	rt, ok := r.commands[upd.Command]
	if !ok {
		return r.reply(ctx, upd, domain.PlainMessage("🤷 Unknown command. Send /help to see what I can do."))
	}

	if rt.privileged && !r.IsAdmin(upd.Sender.ID) {
		r.reject(ctx, upd, rt.reject)
		return nil
	}

	r.registerSender(ctx, upd.Sender)
	return rt.handle(ctx, upd)
}

func (r *Router) handleCallback(ctx context.Context, upd domain.Update) error {
	if err := r.out.AnswerCallback(ctx, upd.CallbackID); err != nil {
		r.logger.Warn("Failed to acknowledge callback",
			zap.Error(err),
			zap.String("callback_id", upd.CallbackID),
		)
	}

	rt, ok := r.callbacks[upd.CallbackData]
	if !ok {
		r.logger.Warn("Unhandled callback",
			zap.String("data", upd.CallbackData),
			zap.Int64("user_id", upd.Sender.ID),
		)
		return nil
	}

	if rt.privileged && !r.IsAdmin(upd.Sender.ID) {
		r.reject(ctx, upd, rt.reject)
		return nil
	}

	return rt.handle(ctx, upd)
}

// reject answers an unauthorized caller. Nothing else is sent or mutated.
func (r *Router) reject(ctx context.Context, upd domain.Update, text string) {
	r.logger.Warn("Unauthorized privileged action",
		zap.Int64("user_id", upd.Sender.ID),
		zap.String("username", upd.Sender.Username),
		zap.String("command", upd.Command),
		zap.String("callback", upd.CallbackData),
	)
	if err := r.reply(ctx, upd, domain.PlainMessage(text)); err != nil {
		r.logger.Warn("Failed to send rejection", zap.Error(err))
	}
}

// registerSender adds first-time users and tells the primary admin.
// Failures are logged only.
func (r *Router) registerSender(ctx context.Context, sender domain.Sender) {
	isNew, count, err := r.users.Register(sender)
	if err != nil {
		r.logger.Error("Failed to register user",
			zap.Int64("user_id", sender.ID),
			zap.Error(err),
		)
		return
	}
	if !isNew {
		return
	}

	r.logger.Info("New user registered",
		zap.Int64("user_id", sender.ID),
		zap.String("username", sender.Username),
		zap.Int("total_users", count),
	)

	if r.primaryAdmin == 0 {
		return
	}
	text := fmt.Sprintf(
		"<b>📥 New User Joined!</b>\n"+
			"🆔 ID: <code>%d</code>\n"+
			"🔗 Username: %s\n"+
			"👤 Name: %s\n"+
			"📊 Total users: %d",
		sender.ID,
		html.EscapeString(sender.DisplayUsername()),
		html.EscapeString(sender.FullName),
		count,
	)
	if err := r.send(ctx, r.primaryAdmin, domain.HTMLMessage(text)); err != nil {
		r.logger.Warn("Failed to notify admin about new user",
			zap.Int64("user_id", sender.ID),
			zap.Error(err),
		)
	}
}

// AnnounceStartup tells the primary admin the bot is up. Best-effort.
func (r *Router) AnnounceStartup(ctx context.Context) {
	if r.primaryAdmin == 0 {
		return
	}
	if err := r.send(ctx, r.primaryAdmin, domain.PlainMessage("Bot started!")); err != nil {
		r.logger.Warn("Failed to announce startup", zap.Error(err))
	}
}

func (r *Router) apologize(ctx context.Context, upd domain.Update) {
	var err error
	switch {
	case upd.Kind == domain.UpdateInlineQuery:
		err = r.answerInline(ctx, upd.QueryID, domain.InlineAnswer{CacheTime: 1})
	case upd.ChatID != 0:
		err = r.reply(ctx, upd, domain.PlainMessage(apologyText))
	}
	if err != nil {
		r.logger.Warn("Failed to send apology", zap.Error(err))
	}
}

func (r *Router) reply(ctx context.Context, upd domain.Update, msg domain.Message) error {
	return r.send(ctx, upd.ChatID, msg)
}

func (r *Router) send(ctx context.Context, chatID int64, msg domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	return r.out.SendMessage(ctx, chatID, msg)
}

func (r *Router) sendPhoto(ctx context.Context, chatID int64, image []byte, caption string) error {
	ctx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	return r.out.SendPhoto(ctx, chatID, image, caption)
}

func (r *Router) answerInline(ctx context.Context, queryID string, answer domain.InlineAnswer) error {
	ctx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	return r.out.AnswerInlineQuery(ctx, queryID, answer)
}
