package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhibayda/todo-service/internal/log"
	"github.com/tazhibayda/todo-service/internal/queue"
)

type captureSender struct{ got []Message }

func (c *captureSender) Send(_ context.Context, m Message) error {
	c.got = append(c.got, m)
	return nil
}

func TestResetCodeMessage(t *testing.T) {
	m := ResetCodeMessage("ann@example.com", "123456", 10*time.Minute)
	assert.Equal(t, "ann@example.com", m.To)
	assert.Contains(t, m.Body, "123456")
	assert.Contains(t, m.Body, "10 minutes")
}

func TestQueueSender_PublishesJob(t *testing.T) {
	rec := &queue.Recorder{}
	s := QueueSender{Pub: rec, Exchange: "todo.events"}
	ctx := log.WithRequestID(context.Background(), "req-1")

	require.NoError(t, s.Send(ctx, Message{To: "a@b.c", Subject: "s", Body: "b"}))
	msgs := rec.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "todo.events", msgs[0].Exchange)
	assert.Equal(t, queue.KeyMailSend, msgs[0].Key)
	assert.Equal(t, "req-1", msgs[0].ReqID)
	assert.Equal(t, queue.MailJob{To: "a@b.c", Subject: "s", Body: "b"}, msgs[0].Event)
}

func TestJobHandler(t *testing.T) {
	cs := &captureSender{}
	h := JobHandler(cs)

	require.NoError(t, h(context.Background(), []byte(`{"to":"a@b.c","subject":"hi","body":"x"}`)))
	require.Len(t, cs.got, 1)
	assert.Equal(t, "hi", cs.got[0].Subject)

	err := h(context.Background(), []byte(`not json`))
	assert.True(t, errors.Is(err, queue.ErrPermanent))

	err = h(context.Background(), []byte(`{"subject":"no one"}`))
	assert.True(t, errors.Is(err, queue.ErrPermanent))
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, LogSender{}.Send(context.Background(), Message{To: "x@y.z"}))
}
