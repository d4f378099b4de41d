package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tazhibayda/todo-service/internal/log"
	"github.com/tazhibayda/todo-service/internal/queue"
)

// QueueSender hands messages to the notifier worker through RabbitMQ.
type QueueSender struct {
	Pub      queue.Publisher
	Exchange string
}

func (q QueueSender) Send(ctx context.Context, m Message) error {
	return q.Pub.Publish(ctx, q.Exchange, queue.KeyMailSend,
		queue.MailJob{To: m.To, Subject: m.Subject, Body: m.Body},
		log.RequestID(ctx))
}

// JobHandler decodes queued MailJobs and delivers them through s.
func JobHandler(s Sender) queue.Handler {
	return func(ctx context.Context, body []byte) error {
		var job queue.MailJob
		if err := json.Unmarshal(body, &job); err != nil {
			return fmt.Errorf("%w: decode mail job: %v", queue.ErrPermanent, err)
		}
		if job.To == "" {
			return fmt.Errorf("%w: mail job without recipient", queue.ErrPermanent)
		}
		return s.Send(ctx, Message{To: job.To, Subject: job.Subject, Body: job.Body})
	}
}
