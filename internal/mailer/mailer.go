package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/go-mail/mail/v2"
)

//go:embed "templates"
var templateFS embed.FS

type Mailer interface {
	Send(recipient, templateFile string, data any) error
}

type SMTPMailer struct {
	dialer *mail.Dialer
	sender string
}

func NewSMTPMailer(host string, port int, username, password, sender string) *SMTPMailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second

	return &SMTPMailer{
		dialer: dialer,
		sender: sender,
	}
}

func (m *SMTPMailer) Send(recipient, templateFile string, data any) error {
	content, err := render(templateFile, data)
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", recipient)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", content.subject)
	msg.SetBody("text/plain", content.plainBody)
	msg.AddAlternative("text/html", content.htmlBody)

	err = m.dialer.DialAndSend(msg)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}

type rendered struct {
	subject   string
	plainBody string
	htmlBody  string
}

// render executes the subject, plainBody and htmlBody blocks of a template.
func render(templateFile string, data any) (*rendered, error) {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail template: %w", err)
	}

	var out rendered

	blocks := []struct {
		name string
		dst  *string
	}{
		{"subject", &out.subject},
		{"plainBody", &out.plainBody},
		{"htmlBody", &out.htmlBody},
	}

	for _, block := range blocks {
		buf := new(bytes.Buffer)

		err = tmpl.ExecuteTemplate(buf, block.name, data)
		if err != nil {
			return nil, fmt.Errorf("failed to execute %s of %s: %w", block.name, templateFile, err)
		}

		*block.dst = buf.String()
	}

	return &out, nil
}
