package notifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/atorrez/fleetwatch/internal/logger"
)

// sendPace is the minimum spacing between consecutive sends, keeping
// alert bursts under Telegram's per-bot rate limit.
const sendPace = 500 * time.Millisecond

// maxSendRetries bounds how many times a failed send is reattempted.
const maxSendRetries = 3

// telegramSender is the slice of the bot API the notifier uses.
// *tgbotapi.BotAPI satisfies it.
type telegramSender interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// Telegram delivers messages through the Telegram bot API.
type Telegram struct {
	api       telegramSender
	log       *zap.Logger
	pace      time.Duration
	retryBase time.Duration

	mu       sync.Mutex
	lastSend time.Time
}

// NewTelegram creates a Telegram notifier on an existing bot client.
func NewTelegram(api *tgbotapi.BotAPI, log *zap.Logger) *Telegram {
	return newTelegram(api, log)
}

func newTelegram(api telegramSender, log *zap.Logger) *Telegram {
	if log == nil {
		log = logger.Named("notifier")
	}
	return &Telegram{
		api:       api,
		log:       log,
		pace:      sendPace,
		retryBase: backoff.DefaultInitialInterval,
	}
}

// Send posts the message as HTML, retrying transient failures with
// exponential backoff. Messages addressed to a forum topic go out with
// a thread id.
func (t *Telegram) Send(ctx context.Context, msg Message) error {
	if msg.ChatID == 0 {
		return errors.New("notifier: message has no chat id")
	}

	if err := t.waitPace(ctx); err != nil {
		return fmt.Errorf("sending telegram message to chat %d: %w", msg.ChatID, err)
	}

	params := tgbotapi.Params{}
	params["chat_id"] = strconv.FormatInt(msg.ChatID, 10)
	params["text"] = msg.Text
	params["parse_mode"] = tgbotapi.ModeHTML
	params.AddNonZero("message_thread_id", msg.TopicID)
	params.AddBool("disable_notification", msg.Silent)

	op := func() error {
		_, err := t.api.MakeRequest("sendMessage", params)
		if err == nil {
			return nil
		}
		var tgErr *tgbotapi.Error
		if errors.As(err, &tgErr) && tgErr.Code >= 400 && tgErr.Code < 500 && tgErr.Code != 429 {
			// Malformed message or missing permissions; retrying cannot help.
			return backoff.Permanent(err)
		}
		t.log.Warn("telegram send failed, will retry", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = t.retryBase
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxSendRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("sending telegram message to chat %d: %w", msg.ChatID, err)
	}

	t.markSent()
	return nil
}

// waitPace blocks until enough time has passed since the previous
// send, or the context is cancelled.
func (t *Telegram) waitPace(ctx context.Context) error {
	t.mu.Lock()
	wait := t.pace - time.Since(t.lastSend)
	t.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
	return ctx.Err()
}

func (t *Telegram) markSent() {
	t.mu.Lock()
	t.lastSend = time.Now()
	t.mu.Unlock()
}
