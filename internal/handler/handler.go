package handler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"qrbot/internal/domain"
	"qrbot/internal/router"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// maxImageSize caps photo downloads; the Bot API serves at most 20 MB
const maxImageSize = 20 << 20

// Dispatcher routes platform-independent updates
type Dispatcher interface {
	Dispatch(ctx context.Context, upd domain.Update)
	CommandNames() []string
	PublicCommands() []router.Command
}

// Handler translates Telegram updates into domain updates
type Handler struct {
	ctx        context.Context
	bot        *tele.Bot
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewHandler creates a new handler instance. ctx bounds every dispatched
// update and is cancelled on shutdown.
func NewHandler(ctx context.Context, bot *tele.Bot, dispatcher Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{
		ctx:        ctx,
		bot:        bot,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers() {
	// Commands
	for _, name := range h.dispatcher.CommandNames() {
		h.bot.Handle("/"+name, h.commandHandler(name))
	}

	// Free text, including commands nobody registered
	h.bot.Handle(tele.OnText, h.handleText)

	// Images to scan
	h.bot.Handle(tele.OnPhoto, h.handlePhoto)
	h.bot.Handle(tele.OnDocument, h.handleDocument)

	// Callback queries (inline buttons)
	h.bot.Handle(tele.OnCallback, h.handleCallback)

	// Inline mode
	h.bot.Handle(tele.OnQuery, h.handleQuery)
}

// PublishCommands sets the command menu shown by Telegram clients
func (h *Handler) PublishCommands() error {
	public := h.dispatcher.PublicCommands()
	cmds := make([]tele.Command, 0, len(public))
	for _, c := range public {
		cmds = append(cmds, tele.Command{Text: c.Name, Description: c.Description})
	}
	if err := h.bot.SetCommands(cmds); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	return nil
}

func (h *Handler) commandHandler(name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := h.baseUpdate(c, domain.UpdateCommand)
		upd.Command = name
		upd.Payload = strings.TrimSpace(c.Message().Payload)
		h.dispatcher.Dispatch(h.ctx, upd)
		return nil
	}
}

// handleText handles all text messages
func (h *Handler) handleText(c tele.Context) error {
	text := c.Text()

	if name, payload, ok := parseCommand(text); ok {
		upd := h.baseUpdate(c, domain.UpdateCommand)
		upd.Command = name
		upd.Payload = payload
		h.dispatcher.Dispatch(h.ctx, upd)
		return nil
	}

	upd := h.baseUpdate(c, domain.UpdateText)
	upd.Text = text
	h.dispatcher.Dispatch(h.ctx, upd)
	return nil
}

func (h *Handler) handlePhoto(c tele.Context) error {
	photo := c.Message().Photo
	if photo == nil {
		return nil
	}

	upd := h.baseUpdate(c, domain.UpdatePhoto)
	upd.Photo = h.fetcher(photo.File)
	h.dispatcher.Dispatch(h.ctx, upd)
	return nil
}

// handleDocument accepts images sent as files, which keeps them uncompressed
func (h *Handler) handleDocument(c tele.Context) error {
	doc := c.Message().Document
	if doc == nil || !strings.HasPrefix(doc.MIME, "image/") {
		return nil
	}

	upd := h.baseUpdate(c, domain.UpdatePhoto)
	upd.Photo = h.fetcher(doc.File)
	h.dispatcher.Dispatch(h.ctx, upd)
	return nil
}

// handleQuery handles inline queries
func (h *Handler) handleQuery(c tele.Context) error {
	q := c.Query()
	if q == nil {
		return nil
	}

	upd := h.baseUpdate(c, domain.UpdateInlineQuery)
	upd.QueryID = q.ID
	upd.Query = q.Text
	h.dispatcher.Dispatch(h.ctx, upd)
	return nil
}

func (h *Handler) baseUpdate(c tele.Context, kind domain.UpdateKind) domain.Update {
	upd := domain.Update{Kind: kind}

	if u := c.Sender(); u != nil {
		upd.Sender = domain.Sender{
			ID:       u.ID,
			Username: u.Username,
			FullName: strings.TrimSpace(u.FirstName + " " + u.LastName),
		}
	}

	if chat := c.Chat(); chat != nil {
		upd.ChatID = chat.ID
	} else if kind != domain.UpdateInlineQuery {
		// inline-message callbacks carry no chat; answer privately
		upd.ChatID = upd.Sender.ID
	}
	return upd
}

// fetcher downloads file lazily, when the router asks for it
func (h *Handler) fetcher(file tele.File) domain.PhotoFetcher {
	return func(ctx context.Context) ([]byte, error) {
		return do(ctx, func() ([]byte, error) {
			rc, err := h.bot.File(&file)
			if err != nil {
				return nil, err
			}
			defer rc.Close()

			return io.ReadAll(io.LimitReader(rc, maxImageSize))
		})
	}
}

// parseCommand splits "/name@bot payload" into its parts
func parseCommand(text string) (string, string, bool) {
	if !strings.HasPrefix(text, "/") || len(text) < 2 {
		return "", "", false
	}

	head, payload := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, payload = head[:i], strings.TrimSpace(head[i:])
	}
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), payload, true
}
