package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/m-mizutani/goerr/v2"
)

// SMTPConfig holds the connection settings for the SMTP transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string `masq:"secret"`
}

// SMTPTransport delivers raw messages over SMTP. Port 465 uses implicit
// TLS; any other port negotiates STARTTLS. Like the SES transport, a failed
// send is final for the current invocation.
type SMTPTransport struct {
	cfg SMTPConfig
}

func NewSMTP(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

func (x *SMTPTransport) Send(ctx context.Context, raw []byte, from, to string) error {
	client, err := x.connect()
	if err != nil {
		return err
	}
	defer client.Close()

	if x.cfg.Password != "" {
		auth := smtp.PlainAuth("", x.cfg.Username, x.cfg.Password, x.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return goerr.Wrap(err, "failed to authenticate to SMTP server")
		}
	}

	if err := client.Mail(from); err != nil {
		return goerr.Wrap(err, "failed to set sender", goerr.V("from", from))
	}
	if err := client.Rcpt(to); err != nil {
		return goerr.Wrap(err, "failed to set recipient", goerr.V("to", to))
	}

	w, err := client.Data()
	if err != nil {
		return goerr.Wrap(err, "failed to open data stream")
	}
	if _, err := w.Write(raw); err != nil {
		return goerr.Wrap(err, "failed to write message")
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close data stream")
	}

	return client.Quit()
}

func (x *SMTPTransport) Name() string {
	return "smtp"
}

func (x *SMTPTransport) connect() (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", x.cfg.Host, x.cfg.Port)
	tlsConfig := &tls.Config{ServerName: x.cfg.Host}

	if x.cfg.Port == 465 {
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to connect to SMTP server", goerr.V("addr", addr))
		}
		client, err := smtp.NewClient(conn, x.cfg.Host)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create SMTP client")
		}
		return client, nil
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to SMTP server", goerr.V("addr", addr))
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		client.Close()
		return nil, goerr.Wrap(err, "failed to start TLS")
	}
	return client, nil
}
