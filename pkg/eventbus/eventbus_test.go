package eventbus

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type paidEvent struct {
	Reference string
}

func newTestBus() EventBus {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return NewEventPublisher(l)
}

func TestPublish_MatchingSubscriber(t *testing.T) {
	bus := newTestBus()

	var got *paidEvent
	bus.Subscribe(func(ev *paidEvent) {
		got = ev
	})

	bus.Publish(&paidEvent{Reference: "PAY-1"})
	require.NotNil(t, got)
	require.Equal(t, "PAY-1", got.Reference)
}

func TestPublish_NonMatchingSubscriberIgnored(t *testing.T) {
	bus := newTestBus()

	called := false
	bus.Subscribe(func(s string) {
		called = true
	})

	bus.Publish(&paidEvent{Reference: "PAY-2"})
	require.False(t, called)
}

func TestPublish_PanickingHandlerDoesNotPropagate(t *testing.T) {
	bus := newTestBus()

	bus.Subscribe(func(ev *paidEvent) {
		panic("boom")
	})

	require.NotPanics(t, func() {
		bus.Publish(&paidEvent{Reference: "PAY-3"})
	})
}

func TestUnsubscribeAndClear(t *testing.T) {
	bus := newTestBus()

	h := func(ev *paidEvent) {}
	bus.Subscribe(h)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Unsubscribe(h)
	require.Equal(t, 0, bus.SubscribersCount())

	bus.Subscribe(h)
	bus.Subscribe(func(ev *paidEvent) {})
	bus.Clear()
	require.Equal(t, 0, bus.SubscribersCount())
}
