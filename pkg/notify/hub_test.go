package notify

import (
	"testing"

	"docflow-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishToSubscribers(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	require.Equal(t, 2, h.Len())

	h.Publish(model.StatusEvent{Type: model.EventStatusChanged, DocumentID: "doc-1", Status: model.StatusQueued})

	for _, sub := range []*Subscription{a, b} {
		ev := <-sub.Events()
		assert.Equal(t, "doc-1", ev.DocumentID)
		assert.Equal(t, model.StatusQueued, ev.Status)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe()
	h.Unsubscribe(sub)
	h.Unsubscribe(sub)

	_, open := <-sub.Events()
	assert.False(t, open)
	assert.Equal(t, 0, h.Len())

	h.Publish(model.StatusEvent{DocumentID: "doc-1"})
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe()

	for i := 0; i < subscriberBuffer+5; i++ {
		h.Publish(model.StatusEvent{DocumentID: "doc-1"})
	}
	assert.Len(t, sub.Events(), subscriberBuffer)
}
