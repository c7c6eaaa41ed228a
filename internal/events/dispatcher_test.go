package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInvokesMatchingHandlers(t *testing.T) {
	d := NewMemoryDispatcher()

	var got []Event
	d.Subscribe(EventNoteAdded, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	d.Subscribe(EventNoteDeleted, func(_ context.Context, e Event) error {
		t.Fatal("handler for a different event type must not run")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventNoteAdded, TicketID: "t-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t-1", got[0].TicketID)
}

func TestPublishRunsEveryHandlerDespiteFailures(t *testing.T) {
	d := NewMemoryDispatcher()

	boom := errors.New("boom")
	ran := 0
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		ran++
		return boom
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		ran++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, ran)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventNoteEdited}))
}
