package infra

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// Mailer sends the cashier closing report to accounting, with the PDF
// summary attached.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
}

func NewMailer(host string, port int, user, password string) *Mailer {
	return &Mailer{
		host:     host,
		user:     user,
		password: password,
		addr:     fmt.Sprintf("%s:%d", host, port),
	}
}

// Send delivers a plain-text message, attaching pdfPath when non-empty.
func (m *Mailer) Send(to, subject, body, pdfPath string) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return e.Send(m.addr, auth)
}
