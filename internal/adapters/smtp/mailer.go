// Package smtp sends best-effort notification mail. Delivery failures are
// logged by callers and never fail the operation that triggered them.
package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type Mailer struct {
	addr string
	from string
}

func NewMailer(addr, from string) *Mailer {
	return &Mailer{addr: addr, from: from}
}

func (m *Mailer) Send(ctx context.Context, to []string, subject, body string) error {
	if m.addr == "" {
		return fmt.Errorf("smtp address not configured")
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(m.addr, nil, m.from, to, []byte(msg))
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
