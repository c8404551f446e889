package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/atorrez/fleetwatch/internal/directory"
	"github.com/atorrez/fleetwatch/internal/notifier"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []notifier.Message
	fail error
}

func (c *captureNotifier) Send(_ context.Context, msg notifier.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return c.fail
}

func (c *captureNotifier) messages() []notifier.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notifier.Message(nil), c.sent...)
}

// fakeUnits resolves unit numbers from a fixed map, mirroring the
// directory contract for unlinked units.
type fakeUnits struct {
	chats map[string]int64
}

func (f *fakeUnits) ChatForUnit(_ context.Context, unit string) (int64, error) {
	chatID, ok := f.chats[unit]
	if !ok {
		return 0, directory.ErrNotLinked
	}
	return chatID, nil
}

func testTable() *Table {
	return &Table{
		Default: Route{ChatID: -100111},
		Routes: map[string]Route{
			"engine_fault": {ChatID: -100222, TopicID: 12},
		},
	}
}

func TestDispatchRoutesByType(t *testing.T) {
	sink := &captureNotifier{}
	r := NewRouter(testTable(), sink, nil, zaptest.NewLogger(t))

	r.Dispatch(context.Background(), Event{
		EventID:     "evt-1",
		Type:        "engine_fault",
		Severity:    SeverityCritical,
		VehicleName: "Truck 4021",
		Description: "fault code P0217",
	})

	msgs := sink.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(-100222), msgs[0].ChatID)
	assert.Equal(t, 12, msgs[0].TopicID)
	assert.False(t, msgs[0].Silent, "critical alerts should ring")
	assert.Contains(t, msgs[0].Text, "Truck 4021")
	assert.Contains(t, msgs[0].Text, "fault code P0217")
}

func TestDispatchFallsBackToDefaultRoute(t *testing.T) {
	sink := &captureNotifier{}
	r := NewRouter(testTable(), sink, nil, zaptest.NewLogger(t))

	r.Dispatch(context.Background(), Event{EventID: "evt-2", Type: "geofence_exit", Severity: SeverityInfo})

	msgs := sink.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(-100111), msgs[0].ChatID)
	assert.True(t, msgs[0].Silent, "informational alerts should not ring")
}

func TestDispatchDropsDuplicates(t *testing.T) {
	sink := &captureNotifier{}
	r := NewRouter(testTable(), sink, nil, zaptest.NewLogger(t))

	evt := Event{EventID: "evt-3", Type: "speeding", Severity: SeverityWarning}
	r.Dispatch(context.Background(), evt)
	r.Dispatch(context.Background(), evt)

	assert.Len(t, sink.messages(), 1)
}

func TestDispatchCopiesToLinkedUnitChat(t *testing.T) {
	sink := &captureNotifier{}
	units := &fakeUnits{chats: map[string]int64{"4021": -900}}
	r := NewRouter(testTable(), sink, units, zaptest.NewLogger(t))

	r.Dispatch(context.Background(), Event{
		EventID:     "evt-4",
		Type:        "engine_fault",
		Severity:    SeverityCritical,
		VehicleName: "Truck 4021",
	})

	msgs := sink.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(-100222), msgs[0].ChatID)
	assert.Equal(t, int64(-900), msgs[1].ChatID)
	assert.Equal(t, msgs[0].Text, msgs[1].Text)
}

func TestDispatchSkipsCopyForUnlinkedUnit(t *testing.T) {
	sink := &captureNotifier{}
	units := &fakeUnits{chats: map[string]int64{}}
	r := NewRouter(testTable(), sink, units, zaptest.NewLogger(t))

	r.Dispatch(context.Background(), Event{EventID: "evt-5", Type: "speeding", VehicleName: "Truck 4021"})

	assert.Len(t, sink.messages(), 1)
}

func TestDispatchSkipsCopyToSameChat(t *testing.T) {
	sink := &captureNotifier{}
	units := &fakeUnits{chats: map[string]int64{"4021": -100222}}
	r := NewRouter(testTable(), sink, units, zaptest.NewLogger(t))

	r.Dispatch(context.Background(), Event{
		EventID:     "evt-6",
		Type:        "engine_fault",
		VehicleName: "Truck 4021",
	})

	assert.Len(t, sink.messages(), 1, "copy should be skipped when the unit chat is the route chat")
}

func TestDispatchSurvivesNotifierFailure(t *testing.T) {
	sink := &captureNotifier{fail: errors.New("telegram down")}
	r := NewRouter(testTable(), sink, nil, zaptest.NewLogger(t))

	r.Dispatch(context.Background(), Event{EventID: "evt-7", Type: "speeding"})

	assert.Len(t, sink.messages(), 1, "failure is logged, not propagated")
}
