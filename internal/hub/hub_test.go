package hub

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"jewgo-discovery/internal/models"
	"jewgo-discovery/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLogger(io.Discard, "ERROR")
	m.Run()
}

func newTestHub(t *testing.T, sendBuffer int) *Hub {
	t.Helper()
	h := New(25*time.Second, 30*time.Second, 10*time.Second, sendBuffer)
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

// readEvent pulls the next delivered event off a connection's send channel.
func readEvent(t *testing.T, c *Connection) models.Event {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var ev models.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return models.Event{}
	}
}

func expectNothing(t *testing.T, c *Connection) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected delivery: %s", data)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishOrderPreservedWithinRoom(t *testing.T) {
	h := newTestHub(t, 64)
	c := NewConnection(h, nil)
	h.Register(c)
	h.Subscribe(c, "room-1")

	const n = 20
	for i := 0; i < n; i++ {
		h.PublishRoom("room-1", models.Event{
			Type:   models.MessageFilterResultChanged,
			Data:   map[string]interface{}{"seq": i},
			SentAt: time.Now(),
		})
	}

	for i := 0; i < n; i++ {
		ev := readEvent(t, c)
		assert.Equal(t, "room-1", ev.Room)
		data, ok := ev.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(i), data["seq"], "event %d out of order", i)
	}
}

func TestPublishToEmptyRoomIsNoOp(t *testing.T) {
	h := newTestHub(t, 8)
	c := NewConnection(h, nil)
	h.Register(c)
	h.Subscribe(c, "room-1")

	h.PublishRoom("room-nobody", models.Event{Type: models.MessageHeartbeat, SentAt: time.Now()})
	h.PublishRoom("room-1", models.Event{Type: models.MessageFilterResultChanged, SentAt: time.Now()})

	ev := readEvent(t, c)
	assert.Equal(t, models.MessageFilterResultChanged, ev.Type)
	expectNothing(t, c)
}

func TestSlowConnectionDroppedOthersUnaffected(t *testing.T) {
	h := newTestHub(t, 1)

	slow := NewConnection(h, nil)
	fast := NewConnection(h, nil)
	h.Register(slow)
	h.Register(fast)
	h.Subscribe(slow, "room-1")
	h.Subscribe(fast, "room-1")

	// Drain the fast connection continuously; never read from the slow one.
	received := make(chan models.Event, 16)
	go func() {
		for data := range fast.send {
			var ev models.Event
			if json.Unmarshal(data, &ev) == nil {
				received <- ev
			}
		}
		close(received)
	}()

	// Pace the publishes so the fast connection's size-1 buffer never
	// overflows; only the slow one falls behind.
	const n = 5
	for i := 0; i < n; i++ {
		h.PublishRoom("room-1", models.Event{Type: models.MessageFilterResultChanged, SentAt: time.Now()})
		select {
		case _, ok := <-received:
			require.True(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatalf("fast connection missed event %d", i)
		}
	}

	// The slow connection's buffer (size 1) overflowed, so the hub dropped it
	// and closed its send channel.
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-slow.send:
			return !ok // drained the one buffered event, then closed
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPublishCellReachesMatchingRoomsOnly(t *testing.T) {
	h := newTestHub(t, 8)

	inCellA := NewConnection(h, nil)
	inCellB := NewConnection(h, nil)
	other := NewConnection(h, nil)
	h.Register(inCellA)
	h.Register(inCellB)
	h.Register(other)
	h.Subscribe(inCellA, "dr5rs|restaurant|true")
	h.Subscribe(inCellB, "dr5rs|synagogue|false")
	h.Subscribe(other, "9q8yy|restaurant|true")

	h.PublishCell("dr5rs", models.Event{Type: models.MessageListingStatusChanged, SentAt: time.Now()})

	assert.Equal(t, models.MessageListingStatusChanged, readEvent(t, inCellA).Type)
	assert.Equal(t, models.MessageListingStatusChanged, readEvent(t, inCellB).Type)
	expectNothing(t, other)
}

func TestUnregisterIsIdempotentAndCleansRooms(t *testing.T) {
	h := newTestHub(t, 8)
	c := NewConnection(h, nil)
	h.Register(c)
	h.Subscribe(c, "room-1")
	h.Subscribe(c, "room-2")

	require.Eventually(t, func() bool {
		return len(h.ActiveRooms()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	h.Unregister(c)
	h.Unregister(c)

	assert.Eventually(t, func() bool {
		return len(h.ActiveRooms()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	// Send channel is closed exactly once.
	_, ok := <-c.send
	assert.False(t, ok)
}

func TestUnsubscribeLeavesOtherMembersIntact(t *testing.T) {
	h := newTestHub(t, 8)
	a := NewConnection(h, nil)
	b := NewConnection(h, nil)
	h.Register(a)
	h.Register(b)
	h.Subscribe(a, "room-1")
	h.Subscribe(b, "room-1")

	h.Unsubscribe(a, "room-1")
	h.PublishRoom("room-1", models.Event{Type: models.MessageFilterResultChanged, SentAt: time.Now()})

	assert.Equal(t, models.MessageFilterResultChanged, readEvent(t, b).Type)
	expectNothing(t, a)
}

func TestSubscribeWithoutRegisterIsIgnored(t *testing.T) {
	h := newTestHub(t, 8)
	c := NewConnection(h, nil)

	h.Subscribe(c, "room-1")

	assert.Empty(t, h.ActiveRooms())
	h.PublishRoom("room-1", models.Event{Type: models.MessageFilterResultChanged, SentAt: time.Now()})
	expectNothing(t, c)
}
