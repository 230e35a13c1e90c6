package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dombus "github.com/pivend/vend/internal/domain/bus"
)

type testEvent struct{ payload string }

func (testEvent) EventName() string { return "test.event" }

func waitFor(t *testing.T, ch <-chan dombus.Event) dombus.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
		return nil
	}
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	b := New(nil)
	b.Start(context.Background())
	defer b.Stop(context.Background())

	first := make(chan dombus.Event, 1)
	second := make(chan dombus.Event, 1)
	b.Subscribe("test.event", func(_ context.Context, e dombus.Event) error {
		first <- e
		return nil
	})
	b.Subscribe("test.event", func(_ context.Context, e dombus.Event) error {
		second <- e
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), testEvent{payload: "hello"}))

	got, ok := waitFor(t, first).(testEvent)
	require.True(t, ok)
	assert.Equal(t, "hello", got.payload)
	waitFor(t, second)
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	b := New(nil)
	b.Start(context.Background())
	defer b.Stop(context.Background())

	delivered := make(chan dombus.Event, 2)
	b.Subscribe("test.event", func(_ context.Context, _ dombus.Event) error {
		panic("handler exploded")
	})
	b.Subscribe("test.event", func(_ context.Context, e dombus.Event) error {
		delivered <- e
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), testEvent{payload: "one"}))
	waitFor(t, delivered)

	// The dispatcher must still be alive after the panic.
	require.NoError(t, b.Publish(context.Background(), testEvent{payload: "two"}))
	waitFor(t, delivered)
}

func TestBusDropsEventWithoutSubscribers(t *testing.T) {
	b := New(nil)
	b.Start(context.Background())
	defer b.Stop(context.Background())

	require.NoError(t, b.Publish(context.Background(), testEvent{payload: "ignored"}))
}

func TestBusRefusesPublishAfterStop(t *testing.T) {
	b := New(nil)
	b.Start(context.Background())
	b.Stop(context.Background())

	err := b.Publish(context.Background(), testEvent{payload: "late"})
	require.ErrorIs(t, err, ErrClosed)

	// Stop is idempotent and a second late publish behaves the same.
	b.Stop(context.Background())
	require.ErrorIs(t, b.Publish(context.Background(), testEvent{payload: "later"}), ErrClosed)
}

func TestBusNilEventIsANoOp(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.Publish(context.Background(), nil))
}
