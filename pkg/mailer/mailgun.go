package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun sends transactional mail (verification codes, payment receipts)
// through the Mailgun API.
type Mailgun struct {
	Domain string
	APIKey string
	Sender string

	client *mg.MailgunImpl
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{
		Domain: domain,
		APIKey: apiKey,
		Sender: sender,
		client: mg.NewMailgun(domain, apiKey),
	}
}

// Send delivers one message. html is optional; when present it rides along
// as the HTML body next to the plain-text part.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	if m.client == nil {
		m.client = mg.NewMailgun(m.Domain, m.APIKey)
	}
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}
