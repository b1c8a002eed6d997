package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/askemail/pkg/domain/interfaces"
	"github.com/secmon-lab/askemail/pkg/service/mail"
	"github.com/secmon-lab/askemail/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Mail holds CLI flags for the outbound transports. SMTP is the primary
// transport; SES is the fallback and wins whenever its credentials are
// present. The choice happens once here, never per message.
type Mail struct {
	smtpHost     string
	smtpPort     int
	smtpUsername string
	smtpPassword string

	sesRegion    string
	sesAccessKey string
	sesSecretKey string
}

// Flags returns CLI flags for outbound transport configuration
func (m *Mail) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "smtp-host",
			Usage:       "SMTP server host",
			Category:    "Transport",
			Sources:     cli.EnvVars("ASKEMAIL_SMTP_HOST"),
			Destination: &m.smtpHost,
		},
		&cli.IntFlag{
			Name:        "smtp-port",
			Usage:       "SMTP server port (465 for TLS, otherwise STARTTLS)",
			Category:    "Transport",
			Value:       587,
			Sources:     cli.EnvVars("ASKEMAIL_SMTP_PORT"),
			Destination: &m.smtpPort,
		},
		&cli.StringFlag{
			Name:        "smtp-username",
			Usage:       "SMTP username",
			Category:    "Transport",
			Sources:     cli.EnvVars("ASKEMAIL_SMTP_USERNAME"),
			Destination: &m.smtpUsername,
		},
		&cli.StringFlag{
			Name:        "smtp-password",
			Usage:       "SMTP password",
			Category:    "Transport",
			Sources:     cli.EnvVars("ASKEMAIL_SMTP_PASSWORD"),
			Destination: &m.smtpPassword,
		},
		&cli.StringFlag{
			Name:        "ses-region",
			Usage:       "AWS region for the SES fallback transport",
			Category:    "Transport",
			Sources:     cli.EnvVars("ASKEMAIL_SES_REGION"),
			Destination: &m.sesRegion,
		},
		&cli.StringFlag{
			Name:        "ses-access-key-id",
			Usage:       "AWS access key ID for the SES fallback transport",
			Category:    "Transport",
			Sources:     cli.EnvVars("ASKEMAIL_SES_ACCESS_KEY_ID"),
			Destination: &m.sesAccessKey,
		},
		&cli.StringFlag{
			Name:        "ses-secret-access-key",
			Usage:       "AWS secret access key for the SES fallback transport",
			Category:    "Transport",
			Sources:     cli.EnvVars("ASKEMAIL_SES_SECRET_ACCESS_KEY"),
			Destination: &m.sesSecretKey,
		},
	}
}

// Configure selects and builds the active outbound transport.
func (m *Mail) Configure(ctx context.Context) (interfaces.Transport, error) {
	sesCfg := mail.SESConfig{
		Region:          m.sesRegion,
		AccessKeyID:     m.sesAccessKey,
		SecretAccessKey: m.sesSecretKey,
	}

	if sesCfg.Configured() {
		transport, err := mail.NewSES(ctx, sesCfg)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize SES transport")
		}
		logging.Default().Info("Using SES transport", "region", m.sesRegion)
		return transport, nil
	}

	if m.smtpHost == "" {
		return nil, goerr.New("no outbound transport configured: set smtp-host or SES credentials")
	}

	logging.Default().Info("Using SMTP transport", "host", m.smtpHost, "port", m.smtpPort)
	return mail.NewSMTP(mail.SMTPConfig{
		Host:     m.smtpHost,
		Port:     m.smtpPort,
		Username: m.smtpUsername,
		Password: m.smtpPassword,
	}), nil
}
