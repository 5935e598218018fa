// Package email sends notification emails.
//
// Services depend on the Sender interface; the Resend implementation is
// wired in main.go only when EMAIL_NOTIFICATIONS is enabled.
package email

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v3"
)

// Message is one notification email.
type Message struct {
	To      string
	Subject string
	Body    string
	// Link is an app-relative path such as /books/42; empty omits the button.
	Link string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type resendSender struct {
	client    *resend.Client
	fromEmail string
	appURL    string
}

// NewResendSender builds a Sender on the Resend API. fromEmail must be on a
// domain verified in Resend; appURL prefixes notification links.
func NewResendSender(apiKey, fromEmail, appURL string) Sender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		appURL:    appURL,
	}
}

func (s *resendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Bookshelf <%s>", s.fromEmail),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    renderHTML(msg.Body, s.absoluteLink(msg.Link)),
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	return nil
}

func (s *resendSender) absoluteLink(link string) string {
	if link == "" {
		return ""
	}
	return s.appURL + link
}

func renderHTML(body, link string) string {
	button := ""
	if link != "" {
		escaped := html.EscapeString(link)
		button = fmt.Sprintf(`
              <table cellpadding="0" cellspacing="0" style="margin:0 0 8px 0;">
                <tr>
                  <td style="background-color:#7c5c3b;border-radius:6px;padding:12px 32px;">
                    <a href="%s" style="color:#ffffff;text-decoration:none;font-size:15px;font-weight:600;">Open Bookshelf</a>
                  </td>
                </tr>
              </table>`, escaped)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#f6f1e9;font-family:Georgia,serif;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="padding:40px 0;">
    <tr>
      <td align="center">
        <table width="480" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;padding:40px;">
          <tr>
            <td>
              <h1 style="color:#3b2f24;font-size:22px;margin:0 0 24px 0;">Bookshelf</h1>
              <p style="color:#4a4037;font-size:15px;line-height:1.6;margin:0 0 24px 0;">%s</p>%s
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`, html.EscapeString(body), button)
}

// Nop discards every message. Used when email notifications are disabled.
type Nop struct{}

func (Nop) Send(context.Context, Message) error { return nil }
