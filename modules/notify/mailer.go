package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/veritas-edu/campus-sdk/modules/exeat/domain/exeatrequest"
	"github.com/veritas-edu/campus-sdk/pkg/configuration"
)

// Contact is the slice of a student record the notifier needs. The student
// record itself lives outside this module.
type Contact struct {
	Name  string
	Email string
}

type StudentDirectory interface {
	Contact(ctx context.Context, studentID uint) (Contact, error)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier delivers notifications over plain SMTP. Consent requests are
// copied to the oversight mailbox.
type SMTPNotifier struct {
	opts     configuration.MailOptions
	students StudentDirectory
	send     sendFunc
}

func NewSMTPNotifier(opts configuration.MailOptions, students StudentDirectory) *SMTPNotifier {
	return &SMTPNotifier{opts: opts, students: students, send: smtp.SendMail}
}

func (n *SMTPNotifier) StatusChanged(ctx context.Context, req exeatrequest.ExeatRequest) error {
	contact, err := n.students.Contact(ctx, req.StudentID())
	if err != nil {
		return fmt.Errorf("resolve student contact: %w", err)
	}
	subject := "Exeat request update"
	body := fmt.Sprintf(
		"Your exeat request #%d is now at stage: %s.\r\n\r\nReason on file: %s\r\n",
		req.ID(), req.Status(), req.Reason(),
	)
	return n.deliver([]string{contact.Email}, subject, body)
}

func (n *SMTPNotifier) ParentConsentRequested(ctx context.Context, cr ConsentRequest) error {
	studentName := "your ward"
	if contact, err := n.students.Contact(ctx, cr.StudentID); err == nil && contact.Name != "" {
		studentName = contact.Name
	}

	subject := "Exeat parent consent required"
	body := fmt.Sprintf(
		"Dear parent/guardian of %s,\r\n\r\n"+
			"%s\r\n\r\n"+
			"Reason for the request: %s\r\n\r\n"+
			"Approve: %s\r\nDecline: %s\r\n\r\n"+
			"This link expires at %s.\r\n",
		studentName,
		cr.Message,
		cr.Reason,
		cr.ApproveLink,
		cr.DeclineLink,
		cr.ExpiresAt.Format(time.RFC1123),
	)

	recipients := []string{cr.ParentEmail}
	if n.opts.OversightMailbox != "" {
		recipients = append(recipients, n.opts.OversightMailbox)
	}
	return n.deliver(recipients, subject, body)
}

func (n *SMTPNotifier) deliver(to []string, subject, body string) error {
	var auth smtp.Auth
	if n.opts.User != "" {
		auth = smtp.PlainAuth("", n.opts.User, n.opts.Password, n.opts.Host)
	}

	msg := strings.Join([]string{
		"From: " + n.opts.From,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", n.opts.Host, n.opts.Port)
	return n.send(addr, auth, n.opts.From, to, []byte(msg))
}
