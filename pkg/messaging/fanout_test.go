package messaging_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/timevault/pkg/messaging"
)

type failingSink struct{ err error }

func (f failingSink) Publish(messaging.Event) error { return f.err }

func TestFanout(t *testing.T) {
	t.Run("delivers to every sink despite failures", func(t *testing.T) {
		a := messaging.NewRecorder()
		b := messaging.NewRecorder()
		boom := errors.New("sink down")

		fanout := messaging.NewFanout(a, failingSink{err: boom}, nil, b)

		evt, err := messaging.NewEvent(messaging.SubjectPaymentCanceled, messaging.PaymentCanceledEvent{Index: 3})
		require.NoError(t, err)

		assert.ErrorIs(t, fanout.Publish(evt), boom)
		assert.Len(t, a.Events(), 1)
		assert.Len(t, b.Events(), 1)
	})
}

func TestEventRoundTrip(t *testing.T) {
	evt, err := messaging.NewEvent(messaging.SubjectPaymentDelayed, messaging.PaymentDelayedEvent{
		Index:           2,
		ExtraDelay:      50,
		EarliestPayTime: 51_050,
	})
	require.NoError(t, err)
	assert.Equal(t, messaging.SubjectPaymentDelayed, evt.Subject)
	assert.NotEmpty(t, evt.ID)

	data, err := messaging.ParseEventData[messaging.PaymentDelayedEvent](evt)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), data.ExtraDelay)
	assert.Equal(t, uint64(51_050), data.EarliestPayTime)
}

func TestRecorderBySubject(t *testing.T) {
	rec := messaging.NewRecorder()

	canceled, err := messaging.NewEvent(messaging.SubjectPaymentCanceled, messaging.PaymentCanceledEvent{Index: 0})
	require.NoError(t, err)
	collected, err := messaging.NewEvent(messaging.SubjectPaymentCollected, messaging.PaymentCollectedEvent{Index: 1})
	require.NoError(t, err)

	require.NoError(t, rec.Publish(canceled))
	require.NoError(t, rec.Publish(collected))

	assert.Len(t, rec.BySubject(messaging.SubjectPaymentCanceled), 1)
	assert.Len(t, rec.BySubject(messaging.SubjectPaymentCollected), 1)
	assert.Empty(t, rec.BySubject(messaging.SubjectEscapeInvoked))
}
