package mail

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/log"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender only logs; it is the development default.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m Message) error {
	log.Ctx(ctx).Info("mail",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("body", m.Body),
	)
	return nil
}

func ResetCodeMessage(to, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your password reset code",
		Body: fmt.Sprintf("Your password reset code is %s.\n\nIt expires in %d minutes. "+
			"If you did not request a reset, ignore this email.", code, int(ttl.Minutes())),
	}
}
