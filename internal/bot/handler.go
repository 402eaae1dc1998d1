package bot

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"callscribe/internal/domain"
	"callscribe/internal/service"
)

// historyLimit is how many runs /history shows.
const historyLimit = 10

// Extractor is the part of the service the bot calls.
type Extractor interface {
	Extract(ctx context.Context, req service.Request) (domain.ExtractionResult, error)
	RunsByUser(ctx context.Context, userID int64, limit int) ([]domain.RunRecord, error)
}

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot *tgbot.Bot
	svc Extractor
	log logrus.FieldLogger
}

// NewHandler creates a new bot handler instance.
func NewHandler(token string, svc Extractor, logger logrus.FieldLogger) (*Handler, error) {
	log := logger.WithField("component", "bot_handler")

	h := &Handler{
		svc: svc,
		log: log,
	}

	// Plain messages go to the default handler; commands are matched exactly.
	b, err := tgbot.New(token, tgbot.WithDefaultHandler(h.defaultHandler))
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	h.bot = b

	h.registerHandlers()

	log.Info("Telegram bot handler initialized")
	return h, nil
}

// registerHandlers sets up the command handlers.
func (h *Handler) registerHandlers() {
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, h.startHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/help", tgbot.MatchTypeExact, h.startHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/history", tgbot.MatchTypeExact, h.historyHandler)
	h.log.Info("Registered /start, /help and /history command handlers")
}

// Start begins polling for updates from Telegram.
// This function blocks until the context is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
}

// startHandler handles the /start and /help commands.
func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	log := h.log.WithFields(logrus.Fields{
		"chat_id": update.Message.Chat.ID,
		"command": update.Message.Text,
	})
	log.Info("Received command")

	h.reply(ctx, b, update.Message.Chat.ID, welcomeMessage, log)
}

// historyHandler lists the user's recent runs.
func (h *Handler) historyHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID
	log := h.log.WithFields(logrus.Fields{
		"user_id": userID,
		"command": "/history",
	})
	log.Info("Received /history command")

	runs, err := h.svc.RunsByUser(ctx, userID, historyLimit)
	if err != nil {
		log.WithError(err).Error("Failed to load run history")
		h.reply(ctx, b, update.Message.Chat.ID, "Sorry, I could not load your history right now.", log)
		return
	}
	h.reply(ctx, b, update.Message.Chat.ID, formatRuns(runs), log)
}

// defaultHandler extracts the first call link in a message.
func (h *Handler) defaultHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	log := h.log.WithFields(logrus.Fields{
		"user_id": userID,
		"chat_id": msg.Chat.ID,
	})

	urls := findURLs(msg.Text)
	if len(urls) == 0 {
		log.Debug("Received message without a link")
		h.reply(ctx, b, msg.Chat.ID, "Send me a call recording link, or use /history.", log)
		return
	}

	target := urls[0]
	log = log.WithField("url", target)
	log.Info("Received extraction request")
	h.reply(ctx, b, msg.Chat.ID, "Working on it, this can take a minute...", log)

	res, err := h.svc.Extract(ctx, service.Request{
		URL:    target,
		Source: domain.SourceTelegram,
		UserID: userID,
	})
	if err != nil {
		log.WithError(err).Warn("Extraction request rejected")
		h.reply(ctx, b, msg.Chat.ID, "That does not look like a valid link: "+err.Error(), log)
		return
	}
	h.reply(ctx, b, msg.Chat.ID, formatResult(res), log)
}

// reply sends text, split into as many messages as Telegram needs.
func (h *Handler) reply(ctx context.Context, b *tgbot.Bot, chatID int64, text string, log logrus.FieldLogger) {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		})
		if err != nil {
			log.WithError(err).Error("Failed to send message")
			return
		}
	}
}
