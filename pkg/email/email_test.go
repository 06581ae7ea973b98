package email

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newTestService(cfg EmailConfig, sendErr error) (*EmailService, *[]sentMail) {
	var sent []sentMail
	s := NewEmailService(cfg)
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, auth: a, from: from, to: to, msg: string(msg)})
		return sendErr
	}
	return s, &sent
}

func TestSendCorrectionRequestEmail(t *testing.T) {
	s, sent := newTestService(EmailConfig{
		SMTPHost:  "smtp.clinic.ph",
		SMTPPort:  587,
		FromName:  "Clinic POS",
		FromEmail: "pos@clinic.ph",
		AppName:   "Sta. Ana Diagnostics",
	}, nil)
	assert.True(t, s.Enabled())

	err := s.SendCorrectionRequestEmail([]string{"owner@clinic.ph", "ops@clinic.ph"}, CorrectionRequest{
		ReconciliationID:   "0b6f",
		ReconciliationDate: "2024-03-15",
		ExpectedCash:       "12500.00",
		ActualCash:         "12400.00",
		Variance:           "-100.00",
		Status:             "short",
		Reason:             "Miscounted <coins>",
		RequestedBy:        "Maria Santos",
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	mail := (*sent)[0]
	assert.Equal(t, "smtp.clinic.ph:587", mail.addr)
	assert.Nil(t, mail.auth)
	assert.Equal(t, "pos@clinic.ph", mail.from)
	assert.Equal(t, []string{"owner@clinic.ph", "ops@clinic.ph"}, mail.to)
	assert.Contains(t, mail.msg, "To: owner@clinic.ph, ops@clinic.ph\r\n")
	assert.Contains(t, mail.msg, "Subject: Cash reconciliation correction requested - 2024-03-15\r\n")
	assert.Contains(t, mail.msg, "Sta. Ana Diagnostics")
	assert.Contains(t, mail.msg, "-100.00 (short)")
	assert.Contains(t, mail.msg, "Miscounted &lt;coins&gt;")
}

func TestSendCorrectionRequestEmailErrors(t *testing.T) {
	s, sent := newTestService(EmailConfig{SMTPHost: "smtp.clinic.ph", SMTPPort: 25, SMTPUsername: "pos"}, errors.New("550 rejected"))

	err := s.SendCorrectionRequestEmail(nil, CorrectionRequest{})
	assert.Error(t, err)
	assert.Empty(t, *sent)

	err = s.SendCorrectionRequestEmail([]string{"owner@clinic.ph"}, CorrectionRequest{})
	assert.ErrorContains(t, err, "550 rejected")
	require.Len(t, *sent, 1)
	assert.NotNil(t, (*sent)[0].auth)
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewEmailService(EmailConfig{}).Enabled())
}
