package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
)

// smtpSender is the concrete Sender over implicit-TLS SMTP (port 465).
type smtpSender struct {
	host     string
	port     string
	username string
	password string
	fromName string
}

// NewSMTPSender returns a Sender that delivers mail through host:port with
// PLAIN auth. The From header is "fromName <username>".
func NewSMTPSender(host, port, username, password, fromName string) Sender {
	return &smtpSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		fromName: fromName,
	}
}

// Send opens a TLS connection, authenticates, and submits one HTML message.
// One connection per message; nothing is pooled.
func (s *smtpSender) Send(ctx context.Context, m Message) error {
	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("mail: auth: %w", err)
	}

	if err := client.Mail(s.username); err != nil {
		return fmt.Errorf("mail: MAIL FROM: %w", err)
	}
	if err := client.Rcpt(m.To); err != nil {
		return fmt.Errorf("mail: RCPT TO: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: DATA: %w", err)
	}

	msg := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.username) +
		fmt.Sprintf("To: %s\r\n", m.To) +
		fmt.Sprintf("Subject: %s\r\n", encodeSubject(m.Subject)) +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"utf-8\"\r\n" +
		"\r\n" +
		m.HTML

	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("mail: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: close body: %w", err)
	}

	return nil
}

// Verify dials the server and completes the SMTP handshake, then quits.
// Proves DNS, TCP, TLS and the banner exchange all work.
func (s *smtpSender) Verify(ctx context.Context) error {
	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	return client.Quit()
}

// dial opens the implicit-TLS connection and completes the EHLO exchange.
// The context deadline bounds the TCP+TLS dial; SMTP commands after that ride
// on the connection without their own deadline.
func (s *smtpSender) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.host, s.port)

	dialer := &tls.Dialer{
		Config: &tls.Config{ServerName: s.host},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mail: dial %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mail: smtp handshake: %w", err)
	}
	return client, nil
}

// encodeSubject wraps non-ASCII subjects in RFC 2047 UTF-8 B-encoding so
// Cyrillic subject lines survive intermediate relays.
func encodeSubject(subject string) string {
	return mime.BEncoding.Encode("UTF-8", subject)
}
