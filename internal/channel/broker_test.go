package channel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagewise/internal/domain"
)

type recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *recorder) add(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) all() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func (r *recorder) len() int {
	return len(r.all())
}

func TestBrokerDeliversToOtherParticipants(t *testing.T) {
	b := NewBroker()
	ui := b.Open("viewer")
	surface := b.Open("viewer")
	other := b.Open("elsewhere")
	defer ui.Close()
	defer surface.Close()
	defer other.Close()

	var atUI, atSurface, atOther recorder
	ui.OnMessage(atUI.add)
	surface.OnMessage(atSurface.add)
	other.OnMessage(atOther.add)

	require.NoError(t, ui.Send(FindNew("cat", domain.DefaultFindOptions())))

	require.Eventually(t, func() bool { return atSurface.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, CmdFindNew, atSurface.all()[0].Cmd)
	assert.Zero(t, atUI.len(), "sender must not receive its own message")
	assert.Zero(t, atOther.len())
	assert.Equal(t, 1, ui.Peers())
}

func TestBrokerPreservesSenderOrder(t *testing.T) {
	b := NewBroker()
	ui := b.Open("viewer")
	surface := b.Open("viewer")
	defer ui.Close()
	defer surface.Close()

	var got recorder
	surface.OnMessage(got.add)

	for i := 1; i <= 50; i++ {
		require.NoError(t, ui.Send(SearchResults("q", i, 50)))
	}

	require.Eventually(t, func() bool { return got.len() == 50 }, time.Second, 5*time.Millisecond)
	for i, m := range got.all() {
		assert.Equal(t, i+1, m.Payload.Current)
	}
}

func TestBrokerDropsWithoutListener(t *testing.T) {
	b := NewBroker()
	ui := b.Open("viewer")
	defer ui.Close()

	require.NoError(t, ui.Send(ClearHighlights()))

	late := b.Open("viewer")
	defer late.Close()
	var got recorder
	late.OnMessage(got.add)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, got.len(), "messages sent before a listener attached are not queued")
}

func TestClosedHandleDropsSilently(t *testing.T) {
	b := NewBroker()
	ui := b.Open("viewer")
	surface := b.Open("viewer")
	defer surface.Close()

	var atUI, atSurface recorder
	ui.OnMessage(atUI.add)
	surface.OnMessage(atSurface.add)

	require.NoError(t, ui.Close())
	require.NoError(t, ui.Close())
	assert.True(t, ui.Closed())

	assert.NoError(t, ui.Send(ClearHighlights()))
	assert.NoError(t, surface.Send(SearchCleared()))

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atUI.len())
	assert.Zero(t, atSurface.len())
	assert.Zero(t, surface.Peers())
}

func TestSendRejectsInvalidMessage(t *testing.T) {
	b := NewBroker()
	ui := b.Open("viewer")
	defer ui.Close()
	assert.ErrorIs(t, ui.Send(Message{Cmd: "bogus"}), domain.ErrUnknownCommand)
}

func TestOnMessageRemoveAndPanicIsolation(t *testing.T) {
	b := NewBroker()
	ui := b.Open("viewer")
	surface := b.Open("viewer")
	defer ui.Close()
	defer surface.Close()

	var removed, kept recorder
	surface.OnMessage(func(Message) { panic("bad handler") })
	remove := surface.OnMessage(removed.add)
	surface.OnMessage(kept.add)
	remove()

	require.NoError(t, ui.Send(SearchCleared()))
	require.Eventually(t, func() bool { return kept.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, removed.len())
}
