package mail

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

var (
	ErrNoRecipients = errors.New("mail: no recipients provided")
	ErrNoSender     = errors.New("mail: no sender provided")
)

type Message struct {
	// From overrides the sender configured on the Mail implementation.
	From     string
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

// Log is a Mail that only logs the envelope. Bodies are never logged since
// they carry one-time codes.
type Log struct{}

func NewLog() *Log { return &Log{} }

func (*Log) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	slog.InfoContext(ctx, "mail suppressed by log sender", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (*Log) Close() error { return nil }
