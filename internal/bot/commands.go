package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/atorrez/fleetwatch/internal/directory"
	"github.com/atorrez/fleetwatch/internal/docs"
	"github.com/atorrez/fleetwatch/internal/fleet"
	"github.com/atorrez/fleetwatch/internal/maintenance"
)

const (
	searchLimit  = 10
	dueSoonDays  = 14
	dueSoonMiles = 2000
)

var unitArgPattern = regexp.MustCompile(`^\d{2,6}$`)

func (b *Bot) dispatchCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.reply(chatID, welcomeText)
	case "help":
		b.reply(chatID, helpText)
	case "vehicles":
		b.cmdVehicles(ctx, chatID)
	case "find":
		b.cmdFind(ctx, chatID, args)
	case "where":
		b.cmdWhere(ctx, msg, args)
	case "odometer":
		b.cmdOdometer(ctx, msg, args)
	case "truck":
		b.cmdTruck(ctx, msg, args)
	case "maintenance":
		b.cmdMaintenance(ctx, msg, args)
	case "link":
		b.cmdLink(ctx, msg, args)
	case "unlink":
		b.cmdUnlink(ctx, msg)
	case "docs":
		b.cmdDocs(ctx, msg, args)
	case "refresh":
		b.cmdRefresh(ctx, chatID)
	case "status":
		b.cmdStatus(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. /help lists what I can do.")
	}
}

func (b *Bot) cmdVehicles(ctx context.Context, chatID int64) {
	vehicles := b.gateway.GetVehicles(ctx, true)
	if len(vehicles) == 0 {
		b.reply(chatID, "No vehicles available yet. Try /refresh to pull the fleet list.")
		return
	}
	text, keyboard := vehiclePage(vehicles, 0)
	b.replyWithKeyboard(chatID, text, keyboard)
}

func (b *Bot) cmdFind(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /find &lt;query&gt;. Prefix with a field to narrow it: /find vin:1FUJ or /find plate:KTX.")
		return
	}

	field := fleet.FieldAll
	query := args
	if prefix, rest, ok := strings.Cut(args, ":"); ok {
		if f, err := fleet.ParseSearchField(prefix); err == nil {
			field, query = f, strings.TrimSpace(rest)
		}
	}

	matches := b.gateway.SearchVehicles(ctx, query, field, searchLimit)
	if len(matches) == 0 {
		b.reply(chatID, fmt.Sprintf("No vehicles matching <b>%s</b>.", esc(query)))
		return
	}
	b.replyWithKeyboard(chatID, FormatSearchResults(query, matches), vehicleButtons(matches))
}

func (b *Bot) cmdWhere(ctx context.Context, msg *tgbotapi.Message, args string) {
	ref := args
	if ref == "" {
		ref = b.impliedUnit(ctx, msg.Chat.ID)
	}
	if ref == "" {
		b.reply(msg.Chat.ID, "Usage: /where &lt;unit&gt;. In a linked group chat you can just send /where.")
		return
	}

	v, ok := b.resolveVehicle(ctx, ref)
	if !ok {
		b.reply(msg.Chat.ID, fmt.Sprintf("I don't know a truck called <b>%s</b>. Try /find.", esc(ref)))
		return
	}
	b.sendLocation(ctx, msg.Chat.ID, v)
}

func (b *Bot) cmdOdometer(ctx context.Context, msg *tgbotapi.Message, args string) {
	if args == "" {
		args = b.impliedUnit(ctx, msg.Chat.ID)
	}

	var vehicles []fleet.Vehicle
	if args == "" {
		vehicles = b.gateway.GetVehicles(ctx, true)
		if len(vehicles) == 0 {
			b.reply(msg.Chat.ID, "No vehicles available yet. Try /refresh first.")
			return
		}
	} else {
		for _, ref := range strings.Fields(args) {
			v, ok := b.resolveVehicle(ctx, ref)
			if !ok {
				b.reply(msg.Chat.ID, fmt.Sprintf("I don't know a truck called <b>%s</b>. Try /find.", esc(ref)))
				return
			}
			vehicles = append(vehicles, v)
		}
	}

	ids := make([]string, len(vehicles))
	for i, v := range vehicles {
		ids[i] = v.ID
	}
	readings := b.gateway.GetOdometerStats(ctx, ids)
	b.reply(msg.Chat.ID, FormatOdometerDigest(vehicles, readings))
}

func (b *Bot) cmdTruck(ctx context.Context, msg *tgbotapi.Message, args string) {
	ref := args
	if ref == "" {
		ref = b.impliedUnit(ctx, msg.Chat.ID)
	}
	if ref == "" {
		b.reply(msg.Chat.ID, "Usage: /truck &lt;unit&gt;. In a linked group chat you can just send /truck.")
		return
	}

	v, ok := b.resolveVehicle(ctx, ref)
	if !ok {
		b.reply(msg.Chat.ID, fmt.Sprintf("I don't know a truck called <b>%s</b>. Try /find.", esc(ref)))
		return
	}
	if enriched, ok := b.gateway.GetVehicleWithStats(ctx, v.ID); ok {
		v = enriched
	}
	b.replyWithKeyboard(msg.Chat.ID, FormatVehicleCard(v), vehicleActions(v.ID))
}

func (b *Bot) cmdMaintenance(ctx context.Context, msg *tgbotapi.Message, args string) {
	unit := args
	if unit == "" {
		unit = b.impliedUnit(ctx, msg.Chat.ID)
	}

	var (
		records []maintenance.Record
		scope   string
		err     error
	)
	if unit != "" {
		records, err = b.shop.ForUnit(ctx, unit)
		scope = "unit " + unit
	} else {
		records, err = b.shop.DueSoon(ctx, dueSoonDays, dueSoonMiles, b.odometerLookup(ctx))
		scope = fmt.Sprintf("due within %d days or %s mi", dueSoonDays, withCommas(dueSoonMiles))
	}

	switch {
	case errors.Is(err, maintenance.ErrNoSheet):
		b.reply(msg.Chat.ID, "Maintenance sheet isn't configured.")
	case err != nil:
		b.log.Error("maintenance lookup failed", zap.Error(err))
		b.reply(msg.Chat.ID, "Couldn't read the maintenance sheet. Try again in a bit.")
	default:
		b.reply(msg.Chat.ID, FormatMaintenance(scope, records))
	}
}

func (b *Bot) cmdLink(ctx context.Context, msg *tgbotapi.Message, args string) {
	unit := args
	if extracted := directory.ExtractUnit(unit); extracted != "" {
		unit = extracted
	}
	if unit == "" {
		unit = directory.ExtractUnit(msg.Chat.Title)
	}
	if !unitArgPattern.MatchString(unit) {
		b.reply(msg.Chat.ID, "Usage: /link &lt;unit&gt;, e.g. /link 4021. I can also pick the unit up from the group title.")
		return
	}

	if err := b.dir.LinkUnit(ctx, unit, msg.Chat.ID, 0, msg.Chat.Title); err != nil {
		b.log.Error("linking unit", zap.String("unit", unit), zap.Error(err))
		b.reply(msg.Chat.ID, "Couldn't save the link. Try again.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("🔗 Linked this chat to <b>unit %s</b>.", esc(unit)))
}

func (b *Bot) cmdUnlink(ctx context.Context, msg *tgbotapi.Message) {
	n, err := b.dir.UnlinkChat(ctx, msg.Chat.ID)
	if err != nil {
		b.log.Error("unlinking chat", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		b.reply(msg.Chat.ID, "Couldn't remove the link. Try again.")
		return
	}
	if n == 0 {
		b.reply(msg.Chat.ID, "This chat wasn't linked to any unit.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("🔓 Unlinked %d unit%s from this chat.", n, pluralize(n)))
}

func (b *Bot) cmdDocs(ctx context.Context, msg *tgbotapi.Message, args string) {
	unit := args
	if unit == "" {
		unit = b.impliedUnit(ctx, msg.Chat.ID)
	}
	if unit == "" {
		b.reply(msg.Chat.ID, "Usage: /docs &lt;unit&gt;.")
		return
	}

	paths, err := b.library.Find(unit)
	switch {
	case errors.Is(err, docs.ErrNoDocs):
		b.reply(msg.Chat.ID, fmt.Sprintf("No documents on file for unit %s.", esc(unit)))
		return
	case err != nil:
		b.log.Error("finding documents", zap.String("unit", unit), zap.Error(err))
		b.reply(msg.Chat.ID, "Couldn't read the document folder.")
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("📎 %d document%s for unit %s:", len(paths), pluralize(len(paths)), esc(unit)))
	for _, path := range paths {
		doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FilePath(path))
		if _, err := b.api.Send(doc); err != nil {
			b.log.Error("sending document", zap.String("path", path), zap.Error(err))
		}
	}
}

func (b *Bot) cmdRefresh(ctx context.Context, chatID int64) {
	b.gateway.ClearCache()
	vehicles := b.gateway.GetVehicles(ctx, false)
	if len(vehicles) == 0 {
		b.reply(chatID, "Refresh failed; the fleet list is unavailable right now.")
		return
	}
	b.reply(chatID, fmt.Sprintf("♻️ Cache refreshed: %d vehicle%s.", len(vehicles), pluralize(len(vehicles))))
}

func (b *Bot) cmdStatus(ctx context.Context, chatID int64) {
	st := b.gateway.Status()
	connected := b.gateway.TestConnection(ctx)
	b.reply(chatID, FormatStatus(st, connected, time.Since(b.startedAt)))
}

// impliedUnit is the unit a bare command refers to in a linked chat.
func (b *Bot) impliedUnit(ctx context.Context, chatID int64) string {
	unit, err := b.dir.UnitForChat(ctx, chatID)
	if err != nil {
		return ""
	}
	return unit
}

// resolveVehicle turns whatever a dispatcher typed (unit number, name
// fragment, VIN, raw id) into a vehicle. An exact name match wins,
// then a unique search hit, then an id lookup, then the best fuzzy hit.
func (b *Bot) resolveVehicle(ctx context.Context, ref string) (fleet.Vehicle, bool) {
	ref = strings.TrimSpace(ref)
	matches := b.gateway.SearchVehicles(ctx, ref, fleet.FieldAll, searchLimit)
	for _, v := range matches {
		if strings.EqualFold(strings.TrimSpace(v.Name), ref) {
			return v, true
		}
	}
	if len(matches) == 1 {
		return matches[0], true
	}
	if v, ok := b.gateway.GetVehicleByID(ctx, ref); ok {
		return v, true
	}
	if len(matches) > 0 {
		return matches[0], true
	}
	return fleet.Vehicle{}, false
}

func (b *Bot) sendLocation(ctx context.Context, chatID int64, v fleet.Vehicle) {
	gps, ok := b.gateway.GetVehicleLocation(ctx, v.ID)
	if !ok {
		b.reply(chatID, fmt.Sprintf("No recent GPS fix for <b>%s</b>.", esc(v.DisplayName())))
		return
	}
	b.reply(chatID, FormatLocation(v, gps))
}

// odometerLookup adapts the gateway to the maintenance tracker's
// per-unit lookup. The whole fleet's readings are pulled once, on the
// first unit the tracker asks about.
func (b *Bot) odometerLookup(ctx context.Context) maintenance.OdometerFunc {
	var once sync.Once
	var byUnit map[string]int64

	return func(unit string) (int64, bool) {
		once.Do(func() {
			vehicles := b.gateway.GetVehicles(ctx, true)
			ids := make([]string, len(vehicles))
			for i, v := range vehicles {
				ids[i] = v.ID
			}
			readings := b.gateway.GetOdometerStats(ctx, ids)

			byUnit = make(map[string]int64, len(readings))
			for _, v := range vehicles {
				if r, ok := readings[v.ID]; ok {
					byUnit[strings.TrimSpace(v.Name)] = r.Miles
				}
			}
		})
		miles, ok := byUnit[strings.TrimSpace(unit)]
		return miles, ok
	}
}
