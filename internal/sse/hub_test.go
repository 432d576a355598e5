package sse

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishReachesSubscriber(t *testing.T) {
	h := testHub()
	ch, cancel := h.Subscribe("scan-1")
	defer cancel()

	h.Publish("scan-1", Event{Type: "progress", Data: []byte(`{"stage":"fetch"}`)})

	select {
	case ev := <-ch:
		assert.Equal(t, "progress", ev.Type)
		assert.JSONEq(t, `{"stage":"fetch"}`, string(ev.Data))
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestPublishScopedToScanID(t *testing.T) {
	h := testHub()
	ch, cancel := h.Subscribe("scan-a")
	defer cancel()

	h.Publish("scan-b", Event{Type: "progress", Data: []byte(`{}`)})

	select {
	case <-ch:
		t.Fatal("event leaked across scan ids")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	h := testHub()
	_, cancel := h.Subscribe("scan-1")
	require.Equal(t, 1, h.SubscriberCount("scan-1"))

	cancel()
	assert.Equal(t, 0, h.SubscriberCount("scan-1"))

	// Publishing to a cancelled subscriber must not panic.
	h.Publish("scan-1", Event{Type: "progress", Data: []byte(`{}`)})
}

func TestPublishDuringSubscribeChurn(t *testing.T) {
	h := testHub()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			ch, cancel := h.Subscribe("scan-1")
			_ = ch
			cancel()
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
			h.Publish("scan-1", Event{Type: "progress", Data: []byte(`{}`)})
		}
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	h := testHub()
	ch, cancel := h.Subscribe("scan-1")
	defer cancel()

	// Fill the buffer and then some. Publish must never block.
	for i := 0; i < cap(ch)+10; i++ {
		h.Publish("scan-1", Event{Type: "progress", Data: []byte(`{}`)})
	}
	assert.Equal(t, cap(ch), len(ch))
}
