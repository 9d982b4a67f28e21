// Package notify emails inbox owners about new notes.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/saythanks/saythanks/internal/common"
	"github.com/saythanks/saythanks/internal/server/models"
	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"
)

// Notifier delivers a note to a recipient. AudioURL, when set, is a link to
// the voice recording.
type Notifier interface {
	Send(ctx context.Context, note *models.Note, recipient, topic, audioURL string) error
}

// sender is the slice of gomail.Dialer we depend on.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends plain-text email over SMTP.
type SMTPNotifier struct {
	from    string
	dialer  sender
	limiter *rate.Limiter
}

// Option customises an SMTPNotifier.
type Option func(*SMTPNotifier)

// WithRateLimit caps delivery at perSecond messages with the given burst.
// Send blocks until a token is available or ctx is done. A non-positive
// rate leaves delivery unlimited.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(n *SMTPNotifier) {
		if perSecond <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		n.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewSMTPNotifier builds a notifier for the given SMTP relay. Empty user
// disables authentication.
func NewSMTPNotifier(host string, port int, user, password, from string, opts ...Option) *SMTPNotifier {
	n := &SMTPNotifier{from: from, dialer: gomail.NewDialer(host, port, user, password)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var bodyTemplate = template.Must(template.New("note").Parse(`You've received a new note of thanks!

{{.Body}}

    -- {{.Byline}}
{{if .AudioURL}}
Listen to the voice note: {{.AudioURL}}
{{end}}`))

// Subject returns the subject line for a note notification.
func Subject(topic string) string {
	if topic == "" {
		return "You've received a new note of thanks!"
	}
	return "You've received a new note of thanks about " + topic + "!"
}

// Send composes and delivers the notification. gomail has no context
// support, so ctx only bounds the wait for the rate limiter.
func (n *SMTPNotifier) Send(ctx context.Context, note *models.Note, recipient, topic, audioURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.limiter != nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var body bytes.Buffer
	err := bodyTemplate.Execute(&body, struct {
		Body, Byline, AudioURL string
	}{note.Body, note.Byline, audioURL})
	if err != nil {
		return fmt.Errorf("%w: render: %v", common.ErrNotifier, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", Subject(topic))
	m.SetBody("text/plain", body.String())

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: send to %s: %v", common.ErrNotifier, recipient, err)
	}
	return nil
}
