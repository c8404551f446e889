package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/atorrez/fleetwatch/internal/fleet"
)

const vehiclesPerPage = 8

// handleCallback answers inline-keyboard taps. Callback data is
// "action:param", e.g. "veh:281474986" or "vp:2".
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			b.log.Debug("answering callback", zap.Error(err))
		}
	}()

	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	action, param, ok := strings.Cut(cb.Data, ":")
	if !ok {
		return
	}

	switch action {
	case "veh":
		b.sendVehicleCard(ctx, chatID, param)
	case "loc":
		v, ok := b.gateway.GetVehicleByID(ctx, param)
		if !ok {
			b.reply(chatID, "That vehicle is gone from the fleet list.")
			return
		}
		b.sendLocation(ctx, chatID, v)
	case "odo":
		b.sendSingleOdometer(ctx, chatID, param)
	case "vp":
		page, err := strconv.Atoi(param)
		if err != nil || page < 0 {
			return
		}
		b.editVehiclePage(ctx, cb.Message, page)
	}
}

func (b *Bot) sendVehicleCard(ctx context.Context, chatID int64, id string) {
	v, ok := b.gateway.GetVehicleWithStats(ctx, id)
	if !ok {
		b.reply(chatID, "That vehicle is gone from the fleet list.")
		return
	}
	b.replyWithKeyboard(chatID, FormatVehicleCard(v), vehicleActions(v.ID))
}

func (b *Bot) sendSingleOdometer(ctx context.Context, chatID int64, id string) {
	v, ok := b.gateway.GetVehicleByID(ctx, id)
	if !ok {
		b.reply(chatID, "That vehicle is gone from the fleet list.")
		return
	}
	readings := b.gateway.GetOdometerStats(ctx, []string{v.ID})
	b.reply(chatID, FormatOdometerDigest([]fleet.Vehicle{v}, readings))
}

func (b *Bot) editVehiclePage(ctx context.Context, msg *tgbotapi.Message, page int) {
	vehicles := b.gateway.GetVehicles(ctx, true)
	if len(vehicles) == 0 {
		return
	}
	text, keyboard := vehiclePage(vehicles, page)
	edit := tgbotapi.NewEditMessageTextAndMarkup(msg.Chat.ID, msg.MessageID, text, keyboard)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("editing vehicle page", zap.Error(err))
	}
}

// vehiclePage renders one page of the fleet list plus its keyboard.
// Out-of-range pages are clamped so a stale Next button never errors.
func vehiclePage(vehicles []fleet.Vehicle, page int) (string, tgbotapi.InlineKeyboardMarkup) {
	pages := (len(vehicles) + vehiclesPerPage - 1) / vehiclesPerPage
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}
	start := page * vehiclesPerPage
	end := start + vehiclesPerPage
	if end > len(vehicles) {
		end = len(vehicles)
	}

	text := fmt.Sprintf("🚛 <b>Fleet vehicles</b> (%d total, page %d/%d)\nTap a truck for details.",
		len(vehicles), page+1, pages)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, end-start+1)
	for _, v := range vehicles[start:end] {
		label := v.DisplayName()
		if desc := v.Description(); desc != "" {
			label = label + " · " + desc
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "veh:"+v.ID),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅ Prev", fmt.Sprintf("vp:%d", page-1)))
	}
	if page < pages-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡", fmt.Sprintf("vp:%d", page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	return text, tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func vehicleButtons(vehicles []fleet.Vehicle) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(vehicles))
	for _, v := range vehicles {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(v.DisplayName(), "veh:"+v.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func vehicleActions(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📍 Location", "loc:"+id),
			tgbotapi.NewInlineKeyboardButtonData("🛣 Odometer", "odo:"+id),
		),
	)
}
