package queue

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanInForwardsFromEveryQueue(t *testing.T) {
	confirmed := make(chan amqp.Delivery, 1)
	cancelled := make(chan amqp.Delivery, 1)
	out := fanIn(map[string]<-chan amqp.Delivery{
		ConfirmedQueue: confirmed,
		CancelledQueue: cancelled,
	})

	confirmed <- amqp.Delivery{Body: []byte(`{"reservation_id":"r1"}`)}
	qd := receiveDelivery(t, out)
	assert.Equal(t, ConfirmedQueue, qd.queue)
	assert.Equal(t, []byte(`{"reservation_id":"r1"}`), qd.delivery.Body)

	cancelled <- amqp.Delivery{Body: []byte(`{"reservation_id":"r2"}`)}
	qd = receiveDelivery(t, out)
	assert.Equal(t, CancelledQueue, qd.queue)

	close(confirmed)
	close(cancelled)
}

// On connection loss the amqp library closes every consume channel.  The
// merged stream must close in response, otherwise the consume loop would
// block forever and the consumer would never reconnect.
func TestFanInClosesWhenSourcesClose(t *testing.T) {
	confirmed := make(chan amqp.Delivery)
	cancelled := make(chan amqp.Delivery)
	out := fanIn(map[string]<-chan amqp.Delivery{
		ConfirmedQueue: confirmed,
		CancelledQueue: cancelled,
	})

	close(confirmed)
	select {
	case _, ok := <-out:
		require.False(t, ok)
		t.Fatal("merged stream closed while one source was still open")
	case <-time.After(50 * time.Millisecond):
	}

	close(cancelled)
	select {
	case _, ok := <-out:
		require.False(t, ok, "merged stream must close, not deliver")
	case <-time.After(2 * time.Second):
		t.Fatal("merged stream did not close after all sources closed")
	}
}

func receiveDelivery(t *testing.T, out <-chan queuedDelivery) queuedDelivery {
	t.Helper()
	select {
	case qd := <-out:
		return qd
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a merged delivery")
		return queuedDelivery{}
	}
}
