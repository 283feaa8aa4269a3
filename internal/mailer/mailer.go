// Package mailer renders and delivers the one-time password emails.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var otpTemplate = template.Must(template.ParseFS(templateFS, "templates/otp.html"))

// OTPMessage is everything needed to render one OTP email.
type OTPMessage struct {
	To          string `json:"to"`
	Name        string `json:"name"`
	OTP         string `json:"otp"`
	ProjectName string `json:"project_name"`
}

// Subject line of the email.
func (m OTPMessage) Subject() string {
	return "OTP for " + m.ProjectName
}

// Render produces the HTML body.
func (m OTPMessage) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := otpTemplate.Execute(&buf, m); err != nil {
		return nil, fmt.Errorf("render otp email: %w", err)
	}
	return buf.Bytes(), nil
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg OTPMessage) error
}

// Dispatcher accepts a message for delivery in the background.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg OTPMessage) error
}
