package alerts

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/atorrez/fleetwatch/internal/directory"
	"github.com/atorrez/fleetwatch/internal/logger"
	"github.com/atorrez/fleetwatch/internal/notifier"
)

// dedupTTL covers Samsara's webhook redelivery window with margin.
const dedupTTL = 15 * time.Minute

// unitPattern pulls a unit number out of a vehicle name like "4021"
// or "Truck 4021".
var unitPattern = regexp.MustCompile(`\b(\d{2,6})\b`)

// UnitResolver maps a fleet unit number to its linked group chat.
// *directory.Store satisfies it.
type UnitResolver interface {
	ChatForUnit(ctx context.Context, unit string) (int64, error)
}

// Router delivers parsed alert events to their configured chats.
type Router struct {
	table  *Table
	notify notifier.Notifier
	units  UnitResolver
	dedup  *deduper
	log    *zap.Logger
}

// NewRouter creates a Router. units may be nil when unit-to-chat
// linking is not configured.
func NewRouter(table *Table, n notifier.Notifier, units UnitResolver, log *zap.Logger) *Router {
	if log == nil {
		log = logger.Named("alerts")
	}
	return &Router{
		table:  table,
		notify: n,
		units:  units,
		dedup:  newDeduper(dedupTTL),
		log:    log,
	}
}

// Dispatch routes one event. It never returns an error: the webhook
// has already been acknowledged, so delivery problems are logged and
// the event is dropped.
func (r *Router) Dispatch(ctx context.Context, evt Event) {
	if !r.dedup.remember(evt.EventID) {
		r.log.Debug("duplicate event dropped", zap.String("event_id", evt.EventID))
		return
	}

	route := r.table.For(evt.Type)
	text := FormatEvent(evt)

	r.log.Info("dispatching alert",
		zap.String("event_id", evt.EventID),
		zap.String("type", evt.Type),
		zap.String("severity", evt.Severity.String()),
		zap.Int64("chat_id", route.ChatID))

	if err := r.notify.Send(ctx, notifier.Message{
		ChatID:  route.ChatID,
		TopicID: route.TopicID,
		Text:    text,
		Silent:  evt.Severity == SeverityInfo,
	}); err != nil {
		r.log.Error("alert delivery failed",
			zap.String("event_id", evt.EventID),
			zap.Int64("chat_id", route.ChatID),
			zap.Error(err))
	}

	r.copyToUnitChat(ctx, evt, route.ChatID, text)
}

// copyToUnitChat sends a copy of the alert to the group chat linked to
// the vehicle's unit number, when one exists.
func (r *Router) copyToUnitChat(ctx context.Context, evt Event, sentTo int64, text string) {
	if r.units == nil {
		return
	}
	match := unitPattern.FindStringSubmatch(evt.VehicleName)
	if match == nil {
		return
	}
	unit := match[1]

	chatID, err := r.units.ChatForUnit(ctx, unit)
	switch {
	case errors.Is(err, directory.ErrNotLinked):
		return
	case err != nil:
		r.log.Warn("unit chat lookup failed", zap.String("unit", unit), zap.Error(err))
		return
	case chatID == sentTo:
		return
	}

	if err := r.notify.Send(ctx, notifier.Message{ChatID: chatID, Text: text}); err != nil {
		r.log.Error("unit copy delivery failed",
			zap.String("event_id", evt.EventID),
			zap.String("unit", unit),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
