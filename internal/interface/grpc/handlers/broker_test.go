package handlers

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBroker(t *testing.T) {
	t.Parallel()

	t.Run("newListener", func(t *testing.T) {
		listener := newListener[string]("test-id", []string{"deposit", " WITHDRAW "}, 1)

		require.Equal(t, "test-id", listener.id)
		require.Equal(t, 1, cap(listener.ch))
		require.Len(t, listener.topics, 2)
		require.Contains(t, listener.topics, "deposit")
		require.Contains(t, listener.topics, "withdraw")
	})

	t.Run("includes", func(t *testing.T) {
		listener := newListener[string]("test-id", []string{"deposit"}, 1)
		require.True(t, listener.includes("deposit"))
		require.True(t, listener.includes("DEPOSIT"))
		require.False(t, listener.includes("withdraw"))

		all := newListener[string]("all", nil, 1)
		require.True(t, all.includes("withdraw"))
	})

	t.Run("push and remove", func(t *testing.T) {
		broker := newBroker[string]()
		require.False(t, broker.hasListeners())

		listener := newListener[string]("test-id", nil, 1)
		broker.pushListener(listener)
		require.True(t, broker.hasListeners())
		require.Equal(t, listener, broker.getListenersCopy()["test-id"])

		broker.removeListener("test-id")
		require.False(t, broker.hasListeners())

		// removing an unknown listener is a no-op
		broker.removeListener("unknown")
	})

	t.Run("publish", func(t *testing.T) {
		broker := newBroker[string]()
		deposits := newListener[string]("deposits", []string{"deposit"}, 2)
		all := newListener[string]("all", nil, 2)
		broker.pushListener(deposits)
		broker.pushListener(all)

		require.Equal(t, 2, broker.publish("deposit", "ev1"))
		require.Equal(t, 1, broker.publish("withdraw", "ev2"))

		require.Equal(t, "ev1", <-deposits.ch)
		require.Empty(t, deposits.ch)
		require.Equal(t, "ev1", <-all.ch)
		require.Equal(t, "ev2", <-all.ch)
	})

	t.Run("publish skips full listeners", func(t *testing.T) {
		broker := newBroker[string]()
		listener := newListener[string]("test-id", nil, 1)
		broker.pushListener(listener)

		require.Equal(t, 1, broker.publish("deposit", "ev1"))
		require.Equal(t, 0, broker.publish("deposit", "ev2"))
		require.Equal(t, "ev1", <-listener.ch)
	})

	t.Run("concurrent access", func(t *testing.T) {
		broker := newBroker[int]()
		wg := &sync.WaitGroup{}

		for i := range 10 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("listener-%d", i)
				broker.pushListener(newListener[int](id, nil, 10))
				broker.publish("deposit", i)
				broker.removeListener(id)
			}(i)
		}
		wg.Wait()

		require.False(t, broker.hasListeners())
	})
}
