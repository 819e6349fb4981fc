package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/veritas-edu/campus-sdk/modules/exeat/domain/exeatrequest"
	"github.com/veritas-edu/campus-sdk/pkg/configuration"
)

type stubDirectory struct {
	contact Contact
	err     error
}

func (d *stubDirectory) Contact(ctx context.Context, studentID uint) (Contact, error) {
	return d.contact, d.err
}

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func captureSMTP(t *testing.T, n *SMTPNotifier) *[]capturedMail {
	t.Helper()
	var mails []capturedMail
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		mails = append(mails, capturedMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return &mails
}

func testMailOptions() configuration.MailOptions {
	return configuration.MailOptions{
		Host:             "mail.test",
		Port:             587,
		From:             "noreply@test",
		OversightMailbox: "oversight@test",
	}
}

func TestSMTPNotifier_StatusChanged(t *testing.T) {
	n := NewSMTPNotifier(testMailOptions(), &stubDirectory{contact: Contact{Name: "Ada Obi", Email: "student@test"}})
	mails := captureSMTP(t, n)

	req := exeatrequest.Hydrate(4, 9, "medical trip", true, exeatrequest.ContactEmail,
		"parent@test", "", exeatrequest.StatusCMDReview, time.Now(), time.Now())

	require.NoError(t, n.StatusChanged(context.Background(), req))
	require.Len(t, *mails, 1)
	require.Equal(t, []string{"student@test"}, (*mails)[0].to)
	require.Contains(t, (*mails)[0].msg, "cmd_review")
}

func TestSMTPNotifier_StatusChanged_DirectoryFailure(t *testing.T) {
	n := NewSMTPNotifier(testMailOptions(), &stubDirectory{err: errors.New("unknown student")})
	mails := captureSMTP(t, n)

	req := exeatrequest.New(9, "travel", false, exeatrequest.ContactEmail, "parent@test", "")
	require.Error(t, n.StatusChanged(context.Background(), req))
	require.Empty(t, *mails)
}

func TestSMTPNotifier_ConsentCopiesOversightMailbox(t *testing.T) {
	n := NewSMTPNotifier(testMailOptions(), &stubDirectory{contact: Contact{Name: "Ada Obi", Email: "student@test"}})
	mails := captureSMTP(t, n)

	cr := ConsentRequest{
		StudentID:   9,
		ParentEmail: "parent@test",
		Reason:      "family event",
		Message:     "Please respond to this request.",
		ApproveLink: "https://campus/parent/exeat-consent/tok/approve",
		DeclineLink: "https://campus/parent/exeat-consent/tok/reject",
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}

	require.NoError(t, n.ParentConsentRequested(context.Background(), cr))
	require.Len(t, *mails, 1)
	require.Equal(t, []string{"parent@test", "oversight@test"}, (*mails)[0].to)
	require.True(t, strings.Contains((*mails)[0].msg, cr.ApproveLink))
	require.True(t, strings.Contains((*mails)[0].msg, cr.DeclineLink))
}

func TestEskizSender_DisabledIsNoop(t *testing.T) {
	s := NewEskizSender(configuration.EskizOptions{Enabled: false})
	err := s.ParentConsentRequested(context.Background(), ConsentRequest{ParentPhone: "+2348000000000"})
	require.NoError(t, err)
}

func TestComposite_SwallowsChannelFailures(t *testing.T) {
	failing := &failingChannel{}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	c := NewComposite(logrus.NewEntry(log), failing)

	req := exeatrequest.New(1, "travel", false, exeatrequest.ContactEmail, "p@test", "")
	require.NoError(t, c.StatusChanged(context.Background(), req))
	require.NoError(t, c.ParentConsentRequested(context.Background(), ConsentRequest{}))
	require.Equal(t, 2, failing.calls)
}

type failingChannel struct {
	calls int
}

func (f *failingChannel) StatusChanged(ctx context.Context, req exeatrequest.ExeatRequest) error {
	f.calls++
	return errors.New("smtp down")
}

func (f *failingChannel) ParentConsentRequested(ctx context.Context, cr ConsentRequest) error {
	f.calls++
	return errors.New("smtp down")
}
