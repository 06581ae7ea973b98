package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
	AppName      string
}

// CorrectionRequest is the content of a reconciliation correction notice
type CorrectionRequest struct {
	ReconciliationID   string
	ReconciliationDate string
	ExpectedCash       string
	ActualCash         string
	Variance           string
	Status             string
	Reason             string
	RequestedBy        string
}

// sendFunc matches smtp.SendMail so delivery can be swapped in tests
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService handles email sending
type EmailService struct {
	config EmailConfig
	send   sendFunc
	tmpl   *template.Template
}

// NewEmailService creates a new email service
func NewEmailService(config EmailConfig) *EmailService {
	if config.AppName == "" {
		config.AppName = "Diagnostics Clinic"
	}
	return &EmailService{
		config: config,
		send:   smtp.SendMail,
		tmpl:   template.Must(template.New("correction_request").Parse(correctionRequestTemplate)),
	}
}

// Enabled reports whether an SMTP host is configured
func (s *EmailService) Enabled() bool {
	return s.config.SMTPHost != ""
}

// SendCorrectionRequestEmail notifies admins that a cashier asked to correct a reconciliation
func (s *EmailService) SendCorrectionRequestEmail(recipients []string, req CorrectionRequest) error {
	if len(recipients) == 0 {
		return errors.New("email: no recipients")
	}

	htmlContent, err := s.render(req)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	subject := fmt.Sprintf("Cash reconciliation correction requested - %s", req.ReconciliationDate)
	message := s.buildHTMLEmail(recipients, subject, htmlContent)

	return s.sendEmail(recipients, message)
}

// sendEmail sends an email using SMTP
func (s *EmailService) sendEmail(to []string, message []byte) error {
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	var auth smtp.Auth
	if s.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
	}

	if err := s.send(addr, auth, s.config.FromEmail, to, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// buildHTMLEmail builds an HTML email message
func (s *EmailService) buildHTMLEmail(to []string, subject, htmlBody string) []byte {
	headers := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
			"\r\n",
		s.config.FromName,
		s.config.FromEmail,
		strings.Join(to, ", "),
		subject,
	)

	return []byte(headers + htmlBody)
}

func (s *EmailService) render(req CorrectionRequest) (string, error) {
	data := struct {
		CorrectionRequest
		AppName string
	}{
		CorrectionRequest: req,
		AppName:           s.config.AppName,
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

const correctionRequestTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Correction Requested</title>
</head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f4f7fa;">
    <table role="presentation" style="max-width: 600px; margin: 40px auto; background-color: #ffffff; border-radius: 12px; border-collapse: collapse;">
        <tr>
            <td style="background-color: #0f766e; padding: 30px; text-align: center;">
                <h1 style="color: #ffffff; margin: 0; font-size: 24px;">{{.AppName}}</h1>
            </td>
        </tr>
        <tr>
            <td style="padding: 30px;">
                <h2 style="color: #1a1a2e; margin: 0 0 20px 0; font-size: 20px;">Cash reconciliation correction requested</h2>
                <p style="color: #4a5568; font-size: 15px; line-height: 1.6;">
                    <strong>{{.RequestedBy}}</strong> asked to correct the reconciliation for <strong>{{.ReconciliationDate}}</strong>.
                </p>
                <table role="presentation" style="width: 100%; font-size: 14px; color: #4a5568;">
                    <tr><td>Expected cash</td><td style="text-align: right;">{{.ExpectedCash}}</td></tr>
                    <tr><td>Actual cash</td><td style="text-align: right;">{{.ActualCash}}</td></tr>
                    <tr><td>Variance</td><td style="text-align: right;">{{.Variance}} ({{.Status}})</td></tr>
                </table>
                <p style="color: #4a5568; font-size: 15px; line-height: 1.6;">Reason: {{.Reason}}</p>
                <p style="color: #718096; font-size: 13px;">Reconciliation ID: {{.ReconciliationID}}</p>
            </td>
        </tr>
    </table>
</body>
</html>
`
