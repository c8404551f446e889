package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/atorrez/fleetwatch/internal/directory"
	"github.com/atorrez/fleetwatch/internal/docs"
	"github.com/atorrez/fleetwatch/internal/fleet"
	"github.com/atorrez/fleetwatch/internal/logger"
	"github.com/atorrez/fleetwatch/internal/maintenance"
	"github.com/atorrez/fleetwatch/internal/samsara"
)

// pollTimeout is the long-poll wait passed to Telegram.
const pollTimeout = 60

// Boter is the slice of the Telegram bot API the bot uses.
// *tgbotapi.BotAPI satisfies it.
type Boter interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Gateway is the slice of the telemetry client the bot uses.
// *samsara.Client satisfies it.
type Gateway interface {
	GetVehicles(ctx context.Context, useCache bool) []fleet.Vehicle
	GetVehicleByID(ctx context.Context, id string) (fleet.Vehicle, bool)
	GetVehicleWithStats(ctx context.Context, id string) (fleet.Vehicle, bool)
	GetVehicleLocation(ctx context.Context, id string) (fleet.GPSSample, bool)
	GetOdometerStats(ctx context.Context, ids []string) map[string]fleet.OdometerReading
	SearchVehicles(ctx context.Context, query string, field fleet.SearchField, limit int) []fleet.Vehicle
	TestConnection(ctx context.Context) bool
	ClearCache()
	Status() samsara.Status
}

// Config carries the bot's dependencies.
type Config struct {
	API       Boter
	SelfID    int64
	Gateway   Gateway
	Directory *directory.Store
	Shop      *maintenance.Tracker
	Docs      *docs.Library
	Logger    *zap.Logger
}

// Bot handles Telegram updates.
type Bot struct {
	api       Boter
	selfID    int64
	gateway   Gateway
	dir       *directory.Store
	shop      *maintenance.Tracker
	library   *docs.Library
	log       *zap.Logger
	startedAt time.Time
}

// New creates a Bot.
func New(cfg Config) *Bot {
	log := cfg.Logger
	if log == nil {
		log = logger.Named("bot")
	}
	return &Bot{
		api:       cfg.API,
		selfID:    cfg.SelfID,
		gateway:   cfg.Gateway,
		dir:       cfg.Directory,
		shop:      cfg.Shop,
		library:   cfg.Docs,
		log:       log,
		startedAt: time.Now(),
	}
}

// Run long-polls Telegram until ctx is cancelled or the update channel
// closes. Updates are handled one at a time; fleet chats are low
// traffic and ordering keeps /link then /where coherent.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)

	b.log.Info("bot polling for updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic handling update", zap.Any("panic", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}

	if len(msg.NewChatMembers) > 0 {
		b.handleGroupJoin(ctx, msg)
		return
	}

	if msg.From != nil && !msg.From.IsBot {
		if err := b.dir.RememberUser(ctx, msg.From.ID, msg.From.UserName); err != nil {
			b.log.Debug("remembering user", zap.Error(err))
		}
	}

	if !msg.IsCommand() {
		return
	}

	b.log.Info("command received",
		zap.String("command", msg.Command()),
		zap.Int64("chat_id", msg.Chat.ID))
	b.dispatchCommand(ctx, msg)
}

// handleGroupJoin links a group to its unit when the bot is added and
// the chat title names one ("Dispatch - Truck 4021").
func (b *Bot) handleGroupJoin(ctx context.Context, msg *tgbotapi.Message) {
	joined := false
	for _, member := range msg.NewChatMembers {
		if member.ID == b.selfID {
			joined = true
			break
		}
	}
	if !joined {
		return
	}

	unit := directory.ExtractUnit(msg.Chat.Title)
	if unit == "" {
		b.reply(msg.Chat.ID, "👋 Hi! Link this chat to a truck with /link &lt;unit&gt; and I'll report on it here.")
		return
	}

	if err := b.dir.LinkUnit(ctx, unit, msg.Chat.ID, 0, msg.Chat.Title); err != nil {
		b.log.Error("linking group on join", zap.String("unit", unit), zap.Error(err))
		return
	}
	b.log.Info("group linked from title",
		zap.String("unit", unit), zap.Int64("chat_id", msg.Chat.ID))
	b.reply(msg.Chat.ID, "👋 Linked this chat to <b>unit "+unit+"</b>. Try /where or /maintenance.")
}

// reply sends an HTML message, logging failures instead of bubbling
// them into the update loop.
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("sending reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("sending reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
