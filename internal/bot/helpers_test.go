package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atorrez/fleetwatch/internal/directory"
	"github.com/atorrez/fleetwatch/internal/docs"
	"github.com/atorrez/fleetwatch/internal/fleet"
	"github.com/atorrez/fleetwatch/internal/maintenance"
	"github.com/atorrez/fleetwatch/internal/samsara"
)

const testSelfID int64 = 777000

// fakeBoter records everything sent through the Telegram API.
type fakeBoter struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeBoter() *fakeBoter {
	return &fakeBoter{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeBoter) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeBoter) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBoter) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeBoter) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.updates)
	}
}

func (f *fakeBoter) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeBoter) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBoter) documents() []tgbotapi.DocumentConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.DocumentConfig
	for _, c := range f.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeBoter) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.sent {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeBoter) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msgs := f.messages()
	require.NotEmpty(t, msgs, "expected at least one message")
	return msgs[len(msgs)-1]
}

// fakeGateway serves canned fleet data in place of the live telemetry
// client.
type fakeGateway struct {
	mu        sync.Mutex
	vehicles  []fleet.Vehicle
	locations map[string]fleet.GPSSample
	odometers map[string]fleet.OdometerReading
	connected bool
	status    samsara.Status
	cleared   int
	panicOn   string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		vehicles:  testFleet(),
		locations: map[string]fleet.GPSSample{},
		odometers: map[string]fleet.OdometerReading{},
		connected: true,
	}
}

func (g *fakeGateway) maybePanic(op string) {
	if g.panicOn == op {
		panic("gateway exploded in " + op)
	}
}

func (g *fakeGateway) GetVehicles(context.Context, bool) []fleet.Vehicle {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maybePanic("GetVehicles")
	return append([]fleet.Vehicle(nil), g.vehicles...)
}

func (g *fakeGateway) GetVehicleByID(_ context.Context, id string) (fleet.Vehicle, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, v := range g.vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return fleet.Vehicle{}, false
}

func (g *fakeGateway) GetVehicleWithStats(ctx context.Context, id string) (fleet.Vehicle, bool) {
	v, ok := g.GetVehicleByID(ctx, id)
	if !ok {
		return fleet.Vehicle{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.odometers[id]; ok {
		v.Odometer = &r
	}
	return v, true
}

func (g *fakeGateway) GetVehicleLocation(_ context.Context, id string) (fleet.GPSSample, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	gps, ok := g.locations[id]
	return gps, ok
}

func (g *fakeGateway) GetOdometerStats(_ context.Context, ids []string) map[string]fleet.OdometerReading {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]fleet.OdometerReading)
	for _, id := range ids {
		if r, ok := g.odometers[id]; ok {
			out[id] = r
		}
	}
	return out
}

func (g *fakeGateway) SearchVehicles(_ context.Context, query string, field fleet.SearchField, limit int) []fleet.Vehicle {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []fleet.Vehicle
	for i := range g.vehicles {
		if g.vehicles[i].MatchesField(query, field) {
			out = append(out, g.vehicles[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

func (g *fakeGateway) TestConnection(context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

func (g *fakeGateway) ClearCache() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleared++
}

func (g *fakeGateway) Status() samsara.Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

func testFleet() []fleet.Vehicle {
	return []fleet.Vehicle{
		{ID: "281474", Name: "4021", VIN: "1FUJGLDR2KLKX1234", LicensePlate: "KTX4821", Make: "Freightliner", Model: "Cascadia", Year: "2019"},
		{ID: "281475", Name: "4022", VIN: "3AKJHHDR8JSKK9981", LicensePlate: "KTX5530", Make: "Kenworth", Model: "T680", Year: "2021"},
		{ID: "281476", Name: "5105", VIN: "1XPBDP9X1MD771204", LicensePlate: "RGV2210", Make: "Peterbilt", Model: "579", Year: "2020"},
	}
}

type testHarness struct {
	bot *Bot
	api *fakeBoter
	gw  *fakeGateway
	dir *directory.Store
}

func newTestBot(t *testing.T) *testHarness {
	t.Helper()

	api := newFakeBoter()
	gw := newFakeGateway()

	dir, err := directory.Open(filepath.Join(t.TempDir(), "directory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dir.Close() })

	b := New(Config{
		API:       api,
		SelfID:    testSelfID,
		Gateway:   gw,
		Directory: dir,
		Shop:      maintenance.New("", zap.NewNop()),
		Docs:      docs.NewLibrary(filepath.Join(t.TempDir(), "docs")),
		Logger:    zap.NewNop(),
	})
	return &testHarness{bot: b, api: api, gw: gw, dir: dir}
}

// commandMessage builds an incoming message carrying a bot_command
// entity, the way Telegram delivers "/where 4021".
func commandMessage(chatID int64, text string) *tgbotapi.Message {
	cmdLen := len(text)
	if i := strings.IndexAny(text, " \n"); i >= 0 {
		cmdLen = i
	}
	return &tgbotapi.Message{
		MessageID: 100,
		From:      &tgbotapi.User{ID: 42, UserName: "dispatcher"},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}

func groupCommandMessage(chatID int64, title, text string) *tgbotapi.Message {
	msg := commandMessage(chatID, text)
	msg.Chat.Type = "supergroup"
	msg.Chat.Title = title
	return msg
}

func callbackUpdate(chatID int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: 42},
			Message: &tgbotapi.Message{
				MessageID: messageID,
				Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			},
			Data: data,
		},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
