package services

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

// Mailer sends transactional email
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends through an SMTP relay with gomail
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer returns nil when SMTP is not configured
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Host == "" || cfg.From == "" {
		log.Println("SMTP not configured; email delivery disabled")
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

type nopMailer struct{}

func (nopMailer) Send(string, string, string) error { return nil }

func orNopMailer(m Mailer) Mailer {
	if m == nil {
		return nopMailer{}
	}
	// a typed nil *SMTPMailer still means disabled
	if sm, ok := m.(*SMTPMailer); ok && sm == nil {
		return nopMailer{}
	}
	return m
}
