package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_RecoversPanic(t *testing.T) {
	err := Process(context.Background(), []byte("{}"), func(context.Context, []byte) error {
		panic("boom")
	})
	require.Error(t, err)
	assert.True(t, isPermanent(err))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, isPermanent(fmt.Errorf("decode: %w", ErrPermanent)))
	assert.False(t, isPermanent(errors.New("smtp down")))
	assert.False(t, isPermanent(nil))
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var p Publisher = &r
	require.NoError(t, p.Publish(context.Background(), "ex", KeyMailSend, MailJob{To: "a@b.c"}, "rid"))
	msgs := r.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, KeyMailSend, msgs[0].Key)
	assert.Equal(t, "rid", msgs[0].ReqID)
	assert.Equal(t, "a@b.c", msgs[0].Event.(MailJob).To)

	assert.NoError(t, NewNoop().Publish(context.Background(), "ex", "k", nil, ""))
}

type acks struct {
	acked, requeued, dropped int
}

func (a *acks) Ack(uint64, bool) error { a.acked++; return nil }

func (a *acks) Nack(_ uint64, _ bool, requeue bool) error {
	if requeue {
		a.requeued++
	} else {
		a.dropped++
	}
	return nil
}

func (a *acks) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func TestDispatch(t *testing.T) {
	smtpDown := func(context.Context, []byte) error { return errors.New("smtp down") }
	cases := []struct {
		name   string
		d      amqp.Delivery
		handle Handler
		want   acks
	}{
		{"ok", amqp.Delivery{}, func(context.Context, []byte) error { return nil }, acks{acked: 1}},
		{"permanent", amqp.Delivery{}, func(context.Context, []byte) error { return ErrPermanent }, acks{dropped: 1}},
		{"first failure", amqp.Delivery{}, smtpDown, acks{requeued: 1}},
		{"failed redelivery", amqp.Delivery{Redelivered: true}, smtpDown, acks{dropped: 1}},
		{"quorum retry", amqp.Delivery{Redelivered: true, Headers: amqp.Table{"x-delivery-count": int64(1)}}, smtpDown, acks{requeued: 1}},
		{"quorum exhausted", amqp.Delivery{Redelivered: true, Headers: amqp.Table{"x-delivery-count": int64(2)}}, smtpDown, acks{dropped: 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var got acks
			c.d.Acknowledger = &got
			dispatch(context.Background(), c.d, c.handle)
			assert.Equal(t, c.want, got)
		})
	}
}
