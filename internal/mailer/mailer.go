package mailer

import (
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/rs/zerolog"

	"donationBoard/internal/model"
	"donationBoard/internal/render"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends donation receipts. A Mailer without an SMTP host is disabled and
// only logs.
type Mailer struct {
	cfg  Config
	log  *zerolog.Logger
	send sendFunc
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &Mailer{cfg: cfg, log: log, send: smtp.SendMail}
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != ""
}

// ThankYouMessage is the confirmation shown to the donor.
func ThankYouMessage(amount float64, method model.PaymentMethod) string {
	return fmt.Sprintf("Obrigado pela doação de %s via %s 💙", render.Currency(amount), method)
}

func (m *Mailer) SendReceipt(recipient, eventName string, amount float64, method model.PaymentMethod) error {
	if !m.Enabled() {
		m.log.Debug().Str("recipient", recipient).Msg("smtp not configured, receipt skipped")
		return nil
	}

	subject := "💙 Recibo da sua doação"
	body := fmt.Sprintf("Olá!\n\n%s\nEvento: «%s».\n", ThankYouMessage(amount, method), eventName)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.cfg.From, recipient, subject, body,
	)

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, []string{recipient}, []byte(msg)); err != nil {
		m.log.Warn().Err(err).Str("recipient", recipient).Msg("failed to send donation receipt")
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Str("recipient", recipient).Str("event", eventName).Msg("📧 donation receipt sent")
	return nil
}
